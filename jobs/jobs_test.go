package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/leavekeeper/leavekeeper/internal/jobs"
)

type fakeSweeper struct {
	runs int
	err  error
}

func (f *fakeSweeper) Name() string { return "start_sweep" }

func (f *fakeSweeper) Run(ctx context.Context) error {
	f.runs++
	return f.err
}

func TestNewSweepTaskRejectsUnknownType(t *testing.T) {
	_, err := NewSweepTask("leave:reindex", "cron")
	require.Error(t, err)

	task, err := NewSweepTask(TaskLeaveStartSweep, "cron")
	require.NoError(t, err)
	assert.Equal(t, TaskLeaveStartSweep, task.Type())
}

func TestSweepHandlerRunsSweep(t *testing.T) {
	sweeper := &fakeSweeper{}
	handler := NewSweepHandler(sweeper, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	task, err := NewSweepTask(TaskLeaveStartSweep, "cron")
	require.NoError(t, err)
	require.NoError(t, handler(context.Background(), task))
	assert.Equal(t, 1, sweeper.runs)
}

func TestSweepHandlerDoesNotRequeueFailures(t *testing.T) {
	// The next cron tick is the retry; a returned error would make asynq
	// queue a duplicate attempt behind it.
	sweeper := &fakeSweeper{err: errors.New("store down")}
	handler := NewSweepHandler(sweeper, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	task, err := NewSweepTask(TaskLeaveEndSweep, "cron")
	require.NoError(t, err)
	require.NoError(t, handler(context.Background(), task))
	assert.Equal(t, 1, sweeper.runs)
}

func TestSweepHandlerSkipsMalformedPayload(t *testing.T) {
	sweeper := &fakeSweeper{}
	handler := NewSweepHandler(sweeper, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	err := handler(context.Background(), asynq.NewTask(TaskLeaveStartSweep, []byte(`{"trigger":`)))
	require.ErrorIs(t, err, asynq.SkipRetry)
	assert.Zero(t, sweeper.runs)
}
