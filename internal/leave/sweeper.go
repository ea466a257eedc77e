package leave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/leavekeeper/leavekeeper/internal/observability"
	"github.com/leavekeeper/leavekeeper/internal/shared"
)

// Sweep task names, also used as metric labels and lock keys.
const (
	TaskStartSweep = "start_sweep"
	TaskEndSweep   = "end_sweep"
)

// SweepConfig collects the dependencies shared by both sweep instances.
type SweepConfig struct {
	Repo       Repository
	Actions    Actions
	Lock       *shared.SweepLock
	Metrics    *observability.Metrics
	Logger     *slog.Logger
	BatchLimit int
	// Now overrides the clock in tests. Defaults to time.Now.
	Now func() time.Time
}

// Sweep is one periodic lifecycle task: it drains the currently-due records of
// a single source status, runs each record's action pair, and commits the
// state machine's decision. The same routine serves both transitions; only the
// (from, to, boundary) triple differs.
type Sweep struct {
	name     string
	from     Status
	to       Status
	boundary DueKind

	repo    Repository
	actions Actions
	lock    *shared.SweepLock
	metrics *observability.Metrics
	logger  *slog.Logger
	limit   int
	now     func() time.Time

	inflight atomic.Bool
}

// NewStartSweep builds the pending -> active task, due on start instants.
func NewStartSweep(cfg SweepConfig) *Sweep {
	return newSweep(TaskStartSweep, StatusPending, StatusActive, DueStart, cfg)
}

// NewEndSweep builds the active -> completed task, due on end instants.
func NewEndSweep(cfg SweepConfig) *Sweep {
	return newSweep(TaskEndSweep, StatusActive, StatusCompleted, DueEnd, cfg)
}

func newSweep(name string, from, to Status, boundary DueKind, cfg SweepConfig) *Sweep {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweep{
		name:     name,
		from:     from,
		to:       to,
		boundary: boundary,
		repo:     cfg.Repo,
		actions:  cfg.Actions,
		lock:     cfg.Lock,
		metrics:  cfg.Metrics,
		logger:   logger.With(slog.String("task", name)),
		limit:    cfg.BatchLimit,
		now:      now,
	}
}

// Name returns the task name.
func (s *Sweep) Name() string {
	return s.name
}

// Run executes one sweep. A tick arriving while the previous sweep for the
// same task is still in flight is dropped, not queued. Per-record failures are
// logged and isolated; Run itself fails only when the due query does.
func (s *Sweep) Run(ctx context.Context) error {
	if !s.inflight.CompareAndSwap(false, true) {
		s.logger.Warn("previous sweep still in flight, dropping tick")
		return nil
	}
	defer s.inflight.Store(false)

	held, err := s.lock.Acquire(ctx, s.name)
	if err != nil {
		return fmt.Errorf("leave: %s: %w", s.name, err)
	}
	if !held {
		s.logger.Info("sweep lease held elsewhere, skipping tick")
		return nil
	}
	defer func() {
		if err := s.lock.Release(context.WithoutCancel(ctx), s.name); err != nil {
			s.logger.Warn("sweep lease release", slog.Any("error", err))
		}
	}()

	started := s.now()
	due, err := s.repo.QueryDue(ctx, DueQuery{
		Status:   s.from,
		Boundary: s.boundary,
		Before:   started,
		Limit:    s.limit,
	})
	if err != nil {
		return fmt.Errorf("leave: %s: %w", s.name, err)
	}

	advanced, processed := 0, 0
	for _, period := range due {
		if ctx.Err() != nil {
			s.logger.Info("shutdown requested, leaving remaining records for next tick",
				slog.Int("remaining", len(due)-processed))
			break
		}
		// The record in flight finishes its action pair and status write even
		// during shutdown, so a marker is never applied without being recorded.
		if s.process(context.WithoutCancel(ctx), period) {
			advanced++
		}
		processed++
	}

	s.metrics.ObserveSweep(s.name, time.Since(started))
	if len(due) > 0 {
		s.logger.Info("sweep finished",
			slog.Int("due", len(due)),
			slog.Int("advanced", advanced),
			slog.Time("reference", started))
	}
	return nil
}

// process handles a single due record: action pair, decision, guarded write.
// Returns true when the status advanced.
func (s *Sweep) process(ctx context.Context, p Period) bool {
	outcomes := s.runActions(ctx, p)
	s.logOutcomes(p, outcomes)

	next, changed, err := Decide(p.Status, s.boundary, outcomes)
	if err != nil {
		s.logger.Error("lifecycle decision", slog.String("period_id", p.ID.String()), slog.Any("error", err))
		return false
	}
	if !changed {
		return false
	}

	if err := s.repo.UpdateStatus(ctx, p.ID, s.from, next); err != nil {
		if errors.Is(err, shared.ErrConflict) {
			s.metrics.IncFailure(s.name, "conflict")
			s.logger.Info("stale status view, reconsidering next tick",
				slog.String("period_id", p.ID.String()))
		} else {
			s.metrics.IncFailure(s.name, "store")
			s.logger.Error("status update", slog.String("period_id", p.ID.String()), slog.Any("error", err))
		}
		return false
	}

	s.metrics.IncTransition(s.name)
	s.logger.Info("period transitioned",
		slog.String("period_id", p.ID.String()),
		slog.String("account_id", p.AccountID),
		slog.String("from", string(p.Status)),
		slog.String("to", string(next)))
	return true
}

func (s *Sweep) runActions(ctx context.Context, p Period) ActionOutcomes {
	var out ActionOutcomes
	switch s.boundary {
	case DueStart:
		out.Marker = s.actions.ApplyMarker(ctx, p.AccountID)
		out.Notify = s.actions.Notify(ctx, p.AccountID, StartMessage(p))
	case DueEnd:
		out.Marker = s.actions.ClearMarker(ctx, p.AccountID)
		out.Notify = s.actions.Notify(ctx, p.AccountID, EndMessage(p))
	}
	return out
}

func (s *Sweep) logOutcomes(p Period, out ActionOutcomes) {
	for kind, err := range map[string]error{"marker": out.Marker, "notify": out.Notify} {
		if err == nil {
			continue
		}
		attrs := []any{
			slog.String("period_id", p.ID.String()),
			slog.String("account_id", p.AccountID),
			slog.String("action", kind),
			slog.Any("error", err),
		}
		switch {
		case errors.Is(err, shared.ErrPermission):
			// Does not self-heal; operators must intervene.
			s.metrics.IncFailure(s.name, "permission")
			s.logger.Error("action requires operator intervention", attrs...)
		case errors.Is(err, shared.ErrNotFound):
			s.metrics.IncFailure(s.name, "not_found")
			s.logger.Warn("action target unreachable, will retry", attrs...)
		case shared.Retryable(err):
			s.metrics.IncFailure(s.name, "transient")
			s.logger.Warn("action failed, will retry", attrs...)
		default:
			// Unclassified errors are still reselected next tick.
			s.metrics.IncFailure(s.name, "unknown")
			s.logger.Warn("action failed, will retry", attrs...)
		}
	}
}

// StartMessage is the notification sent when a period begins.
func StartMessage(p Period) string {
	return fmt.Sprintf("Your leave has started and runs until %s. Reason on file: %s. [%s/start]",
		p.EndTime.UTC().Format(time.RFC3339), reasonOrDash(p.Reason), p.ID)
}

// EndMessage is the notification sent when a period ends.
func EndMessage(p Period) string {
	return fmt.Sprintf("Your leave has ended; welcome back. [%s/end]", p.ID)
}

func reasonOrDash(reason string) string {
	if reason == "" {
		return "-"
	}
	return reason
}
