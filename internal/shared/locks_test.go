package shared

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestSweepLockExcludesSecondHolder(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	lock := NewSweepLock(client, time.Minute)
	ctx := context.Background()

	ok, err := lock.Acquire(ctx, "start_sweep")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = lock.Acquire(ctx, "start_sweep")
	require.NoError(t, err)
	require.False(t, ok, "second acquire must lose the lease")

	// Independent tasks do not share a lease.
	ok, err = lock.Acquire(ctx, "end_sweep")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, lock.Release(ctx, "start_sweep"))
	ok, err = lock.Acquire(ctx, "start_sweep")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestSweepLockLeaseExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	lock := NewSweepLock(client, time.Second)
	ctx := context.Background()

	ok, err := lock.Acquire(ctx, "start_sweep")
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)

	ok, err = lock.Acquire(ctx, "start_sweep")
	require.NoError(t, err)
	require.True(t, ok, "expired lease must be reacquirable")
}

func TestSweepLockNilClientIsNoop(t *testing.T) {
	var lock *SweepLock
	ok, err := lock.Acquire(context.Background(), "start_sweep")
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, lock.Release(context.Background(), "start_sweep"))
}
