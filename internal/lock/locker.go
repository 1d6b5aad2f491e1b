// Package lock provides per-key mutual exclusion for order transitions.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var ErrNotAcquired = errors.New("lock not acquired")

// Locker serialises work on one key. The returned release func is safe to call more than once.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// MemoryLocker is a keyed mutex for a single process.
type MemoryLocker struct {
	mu    sync.Mutex
	slots map[string]*slot
	wait  time.Duration
}

type slot struct {
	ch   chan struct{}
	refs int
}

// NewMemoryLocker waits at most wait for a busy key; zero means fail immediately.
func NewMemoryLocker(wait time.Duration) *MemoryLocker {
	return &MemoryLocker{slots: make(map[string]*slot), wait: wait}
}

func (l *MemoryLocker) Acquire(ctx context.Context, key string) (func(), error) {
	s := l.ref(key)

	select {
	case s.ch <- struct{}{}:
		return l.releaser(key, s), nil
	default:
	}
	if l.wait <= 0 {
		l.unref(key, s)
		return nil, fmt.Errorf("%w: %s busy", ErrNotAcquired, key)
	}

	timer := time.NewTimer(l.wait)
	defer timer.Stop()

	select {
	case s.ch <- struct{}{}:
		return l.releaser(key, s), nil
	case <-timer.C:
		l.unref(key, s)
		return nil, fmt.Errorf("%w: %s busy for %s", ErrNotAcquired, key, l.wait)
	case <-ctx.Done():
		l.unref(key, s)
		return nil, fmt.Errorf("%w: %v", ErrNotAcquired, ctx.Err())
	}
}

func (l *MemoryLocker) releaser(key string, s *slot) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			l.unref(key, s)
		})
	}
}

func (l *MemoryLocker) ref(key string) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	return s
}

func (l *MemoryLocker) unref(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}

// held is used by tests to check that idle keys are dropped.
func (l *MemoryLocker) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}
