package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/leavekeeper/leavekeeper/internal/jobs"
)

// TaskNotifyLedgerTrim prunes old notification dedup keys.
const TaskNotifyLedgerTrim = "leave:notify_ledger_trim"

// LedgerCleaner removes idempotency entries older than a retention window.
type LedgerCleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) error
}

// NewLedgerTrimTask constructs the trim task.
func NewLedgerTrimTask() *asynq.Task {
	return asynq.NewTask(TaskNotifyLedgerTrim, nil)
}

// NewLedgerTrimHandler prunes dedup keys past retention. Keys only need to
// outlive the retries of their own transition, so retention is generous.
func NewLedgerTrimHandler(cleaner LedgerCleaner, retention time.Duration, logger *slog.Logger, metrics *jobmetrics.Metrics) asynq.HandlerFunc {
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	return func(ctx context.Context, task *asynq.Task) error {
		tracker := metrics.Track("notify_ledger_trim")
		if err := tracker.End(cleaner.Cleanup(ctx, retention)); err != nil {
			if logger != nil {
				logger.Warn("notify ledger trim", slog.Any("error", err))
			}
			return err
		}
		return nil
	}
}
