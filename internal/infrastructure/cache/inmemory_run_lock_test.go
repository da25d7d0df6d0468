package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryRunLock(t *testing.T) {
	ctx := context.Background()

	t.Run("second acquire fails until release", func(t *testing.T) {
		lock := NewInMemoryRunLock()

		release, ok, err := lock.TryAcquire(ctx, "erp:product-sync", time.Minute)
		require.NoError(t, err)
		require.True(t, ok)

		_, ok, err = lock.TryAcquire(ctx, "erp:product-sync", time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, release(ctx))

		_, ok, err = lock.TryAcquire(ctx, "erp:product-sync", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("keys are independent", func(t *testing.T) {
		lock := NewInMemoryRunLock()
		_, ok, _ := lock.TryAcquire(ctx, "a", time.Minute)
		assert.True(t, ok)
		_, ok, _ = lock.TryAcquire(ctx, "b", time.Minute)
		assert.True(t, ok)
	})

	t.Run("expired holder is replaced and cannot release", func(t *testing.T) {
		lock := NewInMemoryRunLock()
		now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		lock.now = func() time.Time { return now }

		stale, ok, _ := lock.TryAcquire(ctx, "job", time.Minute)
		require.True(t, ok)

		now = now.Add(2 * time.Minute)
		fresh, ok, _ := lock.TryAcquire(ctx, "job", time.Minute)
		require.True(t, ok)

		assert.ErrorIs(t, stale(ctx), ErrLockLost)
		assert.NoError(t, fresh(ctx))
	})

	t.Run("only one concurrent winner", func(t *testing.T) {
		lock := NewInMemoryRunLock()
		var winners int32
		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, ok, _ := lock.TryAcquire(ctx, "job", time.Minute); ok {
					atomic.AddInt32(&winners, 1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), winners)
	})
}
