package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLocker_ExclusivePerKey(t *testing.T) {
	l := NewMemoryLocker(time.Second)
	ctx := context.Background()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(ctx, "order:1")
			require.NoError(t, err)
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			release()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Equal(t, 0, l.held())
}

func TestMemoryLocker_IndependentKeys(t *testing.T) {
	l := NewMemoryLocker(0)
	ctx := context.Background()

	r1, err := l.Acquire(ctx, "order:1")
	require.NoError(t, err)
	r2, err := l.Acquire(ctx, "order:2")
	require.NoError(t, err)

	r1()
	r2()
}

func TestMemoryLocker_BusyWithoutWait(t *testing.T) {
	l := NewMemoryLocker(0)
	ctx := context.Background()

	release, err := l.Acquire(ctx, "order:9")
	require.NoError(t, err)

	_, err = l.Acquire(ctx, "order:9")
	assert.ErrorIs(t, err, ErrNotAcquired)

	release()
	release()

	again, err := l.Acquire(ctx, "order:9")
	require.NoError(t, err)
	again()
	assert.Equal(t, 0, l.held())
}

func TestMemoryLocker_WaitTimesOut(t *testing.T) {
	l := NewMemoryLocker(20 * time.Millisecond)
	ctx := context.Background()

	release, err := l.Acquire(ctx, "order:5")
	require.NoError(t, err)
	defer release()

	start := time.Now()
	_, err = l.Acquire(ctx, "order:5")
	assert.ErrorIs(t, err, ErrNotAcquired)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestMemoryLocker_ContextCancelled(t *testing.T) {
	l := NewMemoryLocker(time.Minute)

	release, err := l.Acquire(context.Background(), "order:5")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Acquire(ctx, "order:5")
	assert.ErrorIs(t, err, ErrNotAcquired)
}
