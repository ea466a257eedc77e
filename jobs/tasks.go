package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLeaveStartSweep activates due pending periods.
	TaskLeaveStartSweep = "leave:start_sweep"
	// TaskLeaveEndSweep completes due active periods.
	TaskLeaveEndSweep = "leave:end_sweep"
)

// SweepPayload records what fired the sweep, for log correlation.
type SweepPayload struct {
	Trigger string `json:"trigger"`
}

// NewSweepTask constructs an Asynq task for one of the two sweep types.
func NewSweepTask(taskType, trigger string) (*asynq.Task, error) {
	if taskType != TaskLeaveStartSweep && taskType != TaskLeaveEndSweep {
		return nil, fmt.Errorf("jobs: unknown sweep task %q", taskType)
	}
	data, err := json.Marshal(SweepPayload{Trigger: trigger})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, data), nil
}
