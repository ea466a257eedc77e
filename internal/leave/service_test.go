package leave

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leavekeeper/leavekeeper/internal/shared"
)

func TestScheduleRejectsNonPositiveDuration(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)
	now := time.Now().UTC()

	cases := []struct {
		name  string
		start time.Time
		end   time.Time
	}{
		{"end before start", now, now.Add(-time.Hour)},
		{"end equals start", now, now},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Schedule(context.Background(), CreatePeriodInput{
				AccountID: "acct-a",
				StartTime: tc.start,
				EndTime:   tc.end,
			})
			require.ErrorIs(t, err, shared.ErrValidation)

			// Nothing was persisted.
			_, total, listErr := svc.List(context.Background(), ListRequest{})
			require.NoError(t, listErr)
			assert.Zero(t, total)
		})
	}
}

func TestScheduleRequiresAccount(t *testing.T) {
	svc := NewService(newFakeRepo(), nil)
	now := time.Now().UTC()
	_, err := svc.Schedule(context.Background(), CreatePeriodInput{
		StartTime: now,
		EndTime:   now.Add(time.Hour),
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestSchedulePersistsPendingPeriod(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)
	now := time.Now().UTC()

	p, err := svc.Schedule(context.Background(), CreatePeriodInput{
		AccountID: "acct-a",
		Reason:    "parental leave",
		StartTime: now.Add(time.Hour),
		EndTime:   now.Add(48 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, p.Status)
	assert.NotEqual(t, p.ID.String(), "00000000-0000-0000-0000-000000000000")

	got, err := svc.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, "parental leave", got.Reason)
}

func TestGetMissingPeriod(t *testing.T) {
	svc := NewService(newFakeRepo(), nil)
	p, err := svc.Schedule(context.Background(), CreatePeriodInput{
		AccountID: "acct-a",
		StartTime: time.Now(),
		EndTime:   time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), p.ID)
	require.NoError(t, err)

	other := p.ID
	other[0] ^= 0xff
	_, err = svc.Get(context.Background(), other)
	require.ErrorIs(t, err, shared.ErrNotFound)
}
