package cache

import (
	"context"
	"sync"
	"time"

	"github.com/bookstore/backend/internal/domain/shared"
)

// InMemoryRunLock implements shared.RunLock within a single process.
// Used when Redis is not configured and in tests.
type InMemoryRunLock struct {
	mu      sync.Mutex
	holders map[string]memoryHold
	seq     uint64
	now     func() time.Time
}

type memoryHold struct {
	token     uint64
	expiresAt time.Time
}

var _ shared.RunLock = (*InMemoryRunLock)(nil)

// NewInMemoryRunLock creates an empty in-process lock table
func NewInMemoryRunLock() *InMemoryRunLock {
	return &InMemoryRunLock{
		holders: make(map[string]memoryHold),
		now:     time.Now,
	}
}

// TryAcquire takes key for ttl unless a live holder owns it
func (l *InMemoryRunLock) TryAcquire(_ context.Context, key string, ttl time.Duration) (shared.ReleaseFunc, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if h, ok := l.holders[key]; ok && now.Before(h.expiresAt) {
		return nil, false, nil
	}

	l.seq++
	token := l.seq
	l.holders[key] = memoryHold{token: token, expiresAt: now.Add(ttl)}

	release := func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		h, ok := l.holders[key]
		if !ok || h.token != token {
			return ErrLockLost
		}
		delete(l.holders, key)
		return nil
	}
	return release, true, nil
}
