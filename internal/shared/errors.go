package shared

import "errors"

// Error taxonomy for the leave lifecycle. Callers classify with errors.Is;
// the concrete wrapping carries the operation context.
var (
	// ErrValidation indicates malformed or logically invalid input, rejected
	// synchronously at creation. It never reaches the sweeps.
	ErrValidation = errors.New("validation failed")
	// ErrConflict indicates an optimistic-concurrency failure on a status
	// update. Resolved by natural re-query on the next tick.
	ErrConflict = errors.New("status conflict")
	// ErrTransient indicates a network or service hiccup on an external
	// action. Retried on the next tick.
	ErrTransient = errors.New("transient failure")
	// ErrPermission indicates the automation's privileges are insufficient to
	// mutate the marker. Requires operator intervention.
	ErrPermission = errors.New("insufficient privileges")
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
)

// Retryable reports whether an error is expected to self-heal across ticks.
func Retryable(err error) bool {
	return errors.Is(err, ErrTransient) || errors.Is(err, ErrConflict)
}
