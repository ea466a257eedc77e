package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/leavekeeper/leavekeeper/internal/jobs"
)

// Sweeper is one periodic lifecycle task.
type Sweeper interface {
	Name() string
	Run(ctx context.Context) error
}

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// NewSweepHandler bridges a sweep into the asynq.HandlerFunc contract. Sweep
// failures are logged but not returned: the next cron tick is the retry, and
// queueing retries behind it would violate the one-in-flight rule.
func NewSweepHandler(s Sweeper, logger *slog.Logger, metrics *jobmetrics.Metrics) asynq.HandlerFunc {
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	return func(ctx context.Context, task *asynq.Task) error {
		var payload SweepPayload
		if len(task.Payload()) > 0 {
			if err := json.Unmarshal(task.Payload(), &payload); err != nil {
				return asynq.SkipRetry
			}
		}
		tracker := metrics.Track(s.Name())
		if err := tracker.End(s.Run(ctx)); err != nil {
			if logger != nil {
				logger.Error("sweep run",
					slog.String("task", s.Name()),
					slog.String("trigger", payload.Trigger),
					slog.Any("error", err))
			}
		}
		return nil
	}
}
