// Package synclock serializes sync calls per key (one user at a time).
package synclock

import (
	"context"
	"sync"
)

// Locker acquires a lock for key and returns the function that releases it.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// Local is an in-process keyed lock. Waiting honours ctx.
type Local struct {
	mu   sync.Mutex
	keys map[string]chan struct{}
}

func NewLocal() *Local {
	return &Local{keys: map[string]chan struct{}{}}
}

func (l *Local) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	sem, ok := l.keys[key]
	if !ok {
		sem = make(chan struct{}, 1)
		l.keys[key] = sem
	}
	l.mu.Unlock()

	select {
	case sem <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-sem }) }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
