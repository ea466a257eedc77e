package shared

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SweepLockKey builds redis keys for per-task sweep leases.
func SweepLockKey(task string) string {
	return fmt.Sprintf("leave:sweep:%s:lock", task)
}

// SweepLock is a coarse lease preventing two worker replicas from running the
// same sweep task concurrently. Losing the lease means skipping the tick, not
// queueing it.
type SweepLock struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSweepLock constructs the lock with a lease TTL covering a slow sweep.
func NewSweepLock(client *redis.Client, ttl time.Duration) *SweepLock {
	return &SweepLock{client: client, ttl: ttl}
}

// Acquire attempts to take the lease for a task. Returns false when another
// holder owns it.
func (l *SweepLock) Acquire(ctx context.Context, task string) (bool, error) {
	if l == nil || l.client == nil {
		return true, nil
	}
	ok, err := l.client.SetNX(ctx, SweepLockKey(task), "1", l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("sweep lock acquire: %w", err)
	}
	return ok, nil
}

// Release drops the lease. Safe to call when the lease already expired.
func (l *SweepLock) Release(ctx context.Context, task string) error {
	if l == nil || l.client == nil {
		return nil
	}
	if err := l.client.Del(ctx, SweepLockKey(task)).Err(); err != nil {
		return fmt.Errorf("sweep lock release: %w", err)
	}
	return nil
}
