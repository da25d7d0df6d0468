package shared

import (
	"context"
	"time"
)

// ReleaseFunc releases a held lock
type ReleaseFunc func(ctx context.Context) error

// RunLock guards a job against overlapping runs across processes
type RunLock interface {
	// TryAcquire takes the lock for ttl. acquired is false when another holder
	// owns it; release is nil in that case.
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (release ReleaseFunc, acquired bool, err error)
}
