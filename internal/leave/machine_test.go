package leave

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leavekeeper/leavekeeper/internal/shared"
)

func TestDecideAdvancesOnlyWhenBothActionsSucceed(t *testing.T) {
	next, changed, err := Decide(StatusPending, DueStart, ActionOutcomes{})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, StatusActive, next)

	next, changed, err = Decide(StatusActive, DueEnd, ActionOutcomes{})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, StatusCompleted, next)
}

func TestDecideHoldsStatusOnAnyFailure(t *testing.T) {
	cases := []struct {
		name     string
		outcomes ActionOutcomes
	}{
		{"marker transient", ActionOutcomes{Marker: shared.ErrTransient}},
		{"marker permission", ActionOutcomes{Marker: shared.ErrPermission}},
		{"notify not found", ActionOutcomes{Notify: shared.ErrNotFound}},
		{"both failed", ActionOutcomes{Marker: shared.ErrTransient, Notify: shared.ErrTransient}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			next, changed, err := Decide(StatusPending, DueStart, tc.outcomes)
			require.NoError(t, err)
			assert.False(t, changed)
			assert.Equal(t, StatusPending, next)

			next, changed, err = Decide(StatusActive, DueEnd, tc.outcomes)
			require.NoError(t, err)
			assert.False(t, changed)
			assert.Equal(t, StatusActive, next)
		})
	}
}

func TestDecideRejectsUndefinedPairs(t *testing.T) {
	undefined := []struct {
		status Status
		due    DueKind
	}{
		{StatusPending, DueEnd},
		{StatusActive, DueStart},
		{StatusCompleted, DueStart},
		{StatusCompleted, DueEnd},
	}
	for _, tc := range undefined {
		_, changed, err := Decide(tc.status, tc.due, ActionOutcomes{})
		require.Error(t, err, "status=%s due=%s", tc.status, tc.due)
		assert.False(t, changed)
	}
}

func TestDecideNeverRegresses(t *testing.T) {
	// Even a fully successful action pair cannot move a status backwards.
	_, _, err := Decide(StatusCompleted, DueEnd, ActionOutcomes{})
	require.Error(t, err)
	require.False(t, errors.Is(err, shared.ErrTransient))
}
