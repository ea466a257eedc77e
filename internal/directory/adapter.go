package directory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leavekeeper/leavekeeper/internal/observability"
	"github.com/leavekeeper/leavekeeper/internal/shared"
)

const notifyModule = "leave_notify"

// NotifyLedger records delivered notifications so that re-running a sweep does
// not deliver the same message twice. shared.IdempotencyStore satisfies it.
type NotifyLedger interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Adapter implements the scheduler-facing action set against the directory
// service. All operations are idempotent: marker mutations short-circuit on
// the member's current state, notifications deduplicate through the ledger.
type Adapter struct {
	client   *Client
	markerID string
	ledger   NotifyLedger
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewAdapter constructs the adapter and verifies once that the automation's
// rank exceeds the marker's rank; without that the service cannot mutate the
// marker at all, which is a startup failure rather than a steady-state one.
func NewAdapter(ctx context.Context, client *Client, markerID string, ledger NotifyLedger, metrics *observability.Metrics, logger *slog.Logger) (*Adapter, error) {
	if logger == nil {
		logger = slog.Default()
	}
	automation, err := client.Automation(ctx)
	if err != nil {
		return nil, err
	}
	marker, err := client.Marker(ctx, markerID)
	if err != nil {
		return nil, err
	}
	if automation.Rank <= marker.Rank {
		return nil, fmt.Errorf("directory: automation rank %d does not exceed marker %q rank %d: %w",
			automation.Rank, marker.Name, marker.Rank, shared.ErrPermission)
	}
	logger.Info("directory adapter ready",
		slog.String("marker", marker.Name),
		slog.Int("marker_rank", marker.Rank),
		slog.Int("automation_rank", automation.Rank))
	return &Adapter{client: client, markerID: markerID, ledger: ledger, metrics: metrics, logger: logger}, nil
}

// ApplyMarker grants the on-leave marker. Success when already present.
func (a *Adapter) ApplyMarker(ctx context.Context, accountID string) error {
	member, err := a.client.Member(ctx, accountID)
	if err != nil {
		return err
	}
	if member.HasMarker(a.markerID) {
		return nil
	}
	return a.client.GrantMarker(ctx, accountID, a.markerID)
}

// ClearMarker revokes the on-leave marker. Success when already absent.
func (a *Adapter) ClearMarker(ctx context.Context, accountID string) error {
	member, err := a.client.Member(ctx, accountID)
	if err != nil {
		return err
	}
	if !member.HasMarker(a.markerID) {
		return nil
	}
	return a.client.RevokeMarker(ctx, accountID, a.markerID)
}

// Notify sends a direct notification once per (account, message) pair. The
// message text carries the period id and boundary, so retries of the same
// transition deduplicate while distinct transitions do not.
func (a *Adapter) Notify(ctx context.Context, accountID, message string) error {
	if a.ledger == nil {
		return a.client.SendNotification(ctx, accountID, message)
	}

	key := notifyKey(accountID, message)
	if err := a.ledger.CheckAndInsert(ctx, key, notifyModule); err != nil {
		if errors.Is(err, shared.ErrIdempotencyConflict) {
			return nil
		}
		return fmt.Errorf("notify ledger: %v: %w", err, shared.ErrTransient)
	}
	if err := a.client.SendNotification(ctx, accountID, message); err != nil {
		if delErr := a.ledger.Delete(ctx, key); delErr != nil {
			// The stale key makes the retry dedup to success, so this
			// notification is dropped for good. Count it.
			a.metrics.IncNotifyDropped()
			a.logger.Error("notify ledger rollback failed, notification dropped",
				slog.String("account_id", accountID), slog.Any("error", delErr))
		}
		return err
	}
	return nil
}

func notifyKey(accountID, message string) string {
	sum := sha256.Sum256([]byte(accountID + "\x00" + message))
	return hex.EncodeToString(sum[:])
}
