package leave

import "context"

// Actions wraps the external side effects required to move a period through
// its lifecycle. Every operation is idempotent: repeating a call with the same
// arguments after a success has no further effect, which is what lets a sweep
// retry a whole record without distinguishing "never attempted" from
// "attempted but unconfirmed".
type Actions interface {
	// ApplyMarker grants the on-leave marker. Success when already present.
	ApplyMarker(ctx context.Context, accountID string) error
	// ClearMarker revokes the on-leave marker. Success when already absent.
	ClearMarker(ctx context.Context, accountID string) error
	// Notify sends a direct notification to the account.
	Notify(ctx context.Context, accountID, message string) error
}
