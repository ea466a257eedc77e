package leave

import "fmt"

// DueKind identifies which boundary instant made a period due.
type DueKind string

const (
	// DueStart means the period's start instant has passed.
	DueStart DueKind = "start"
	// DueEnd means the period's end instant has passed.
	DueEnd DueKind = "end"
)

// ActionOutcomes carries the results of the two external actions required for
// one transition attempt. Marker holds the grant outcome for a start boundary
// and the revoke outcome for an end boundary.
type ActionOutcomes struct {
	Marker error
	Notify error
}

func (o ActionOutcomes) succeeded() bool {
	return o.Marker == nil && o.Notify == nil
}

// Decide is the pure lifecycle decision: given a period's current status, the
// boundary that made it due, and the outcomes of its required actions, it
// returns the next status and whether the status changed.
//
// A transition is taken only when both actions succeeded; any failure leaves
// the status unchanged so the record is re-evaluated on the next tick. A
// (status, boundary) pair outside the two defined transitions is a logic error
// in the caller, reported as an error rather than an outcome.
func Decide(current Status, due DueKind, outcomes ActionOutcomes) (Status, bool, error) {
	switch {
	case current == StatusPending && due == DueStart:
		if outcomes.succeeded() {
			return StatusActive, true, nil
		}
		return current, false, nil
	case current == StatusActive && due == DueEnd:
		if outcomes.succeeded() {
			return StatusCompleted, true, nil
		}
		return current, false, nil
	}
	return current, false, fmt.Errorf("leave: no transition from %q on %s boundary", current, due)
}
