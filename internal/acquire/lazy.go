package acquire

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// lazy holds a process-wide instance created on first use. Concurrent first
// callers share one in-flight creation. An instance that fails the alive
// check is dropped and recreated on the next Get.
type lazy[T comparable] struct {
	create  func(context.Context) (T, error)
	alive   func(T) bool
	release func(T)

	mu     sync.Mutex
	val    T
	ok     bool
	flight singleflight.Group
}

func (l *lazy[T]) Get(ctx context.Context) (T, error) {
	l.mu.Lock()
	cur, ok := l.val, l.ok
	l.mu.Unlock()

	if ok {
		if l.alive == nil || l.alive(cur) {
			return cur, nil
		}
		l.invalidate(cur)
	}

	v, err, _ := l.flight.Do("create", func() (any, error) {
		l.mu.Lock()
		if l.ok {
			v := l.val
			l.mu.Unlock()
			return v, nil
		}
		l.mu.Unlock()

		v, err := l.create(ctx)
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		l.val, l.ok = v, true
		l.mu.Unlock()
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// invalidate drops stale if it is still the held instance.
func (l *lazy[T]) invalidate(stale T) {
	l.mu.Lock()
	if !l.ok || l.val != stale {
		l.mu.Unlock()
		return
	}
	var zero T
	l.val, l.ok = zero, false
	l.mu.Unlock()

	if l.release != nil {
		l.release(stale)
	}
}

// Close releases the held instance, if any.
func (l *lazy[T]) Close() {
	l.mu.Lock()
	cur, ok := l.val, l.ok
	l.mu.Unlock()
	if ok {
		l.invalidate(cur)
	}
}
