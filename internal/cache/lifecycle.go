package cache

import (
	"context"
	"sync"
	"sync/atomic"
)

// lifecycle guards backend calls against a concurrent Close.
// Operations hold the read lock; Close takes the write lock once.
type lifecycle struct {
	mu     sync.RWMutex
	closed atomic.Bool
}

// enter returns a release func when the cache is open and ctx is live.
func (l *lifecycle) enter(ctx context.Context) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if l.closed.Load() {
		return nil, ErrClosed
	}
	l.mu.RLock()
	if l.closed.Load() {
		l.mu.RUnlock()
		return nil, ErrClosed
	}
	return l.mu.RUnlock, nil
}

// shut runs fn exactly once, after in-flight operations drain.
func (l *lifecycle) shut(fn func() error) error {
	if l.closed.Load() {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed.Swap(true) {
		return nil
	}
	return fn()
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
