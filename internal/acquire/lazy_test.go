package acquire

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type instance struct {
	id    int32
	alive atomic.Bool
}

func TestLazy_SingleCreationUnderConcurrency(t *testing.T) {
	var created atomic.Int32
	l := &lazy[*instance]{
		create: func(context.Context) (*instance, error) {
			time.Sleep(20 * time.Millisecond)
			inst := &instance{id: created.Add(1)}
			inst.alive.Store(true)
			return inst, nil
		},
		alive: func(i *instance) bool { return i.alive.Load() },
	}

	var wg sync.WaitGroup
	results := make([]*instance, 16)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			inst, err := l.Get(context.Background())
			if err != nil {
				t.Error(err)
				return
			}
			results[i] = inst
		}()
	}
	wg.Wait()

	if got := created.Load(); got != 1 {
		t.Fatalf("create calls = %d, want 1", got)
	}
	for _, r := range results {
		if r != results[0] {
			t.Fatal("callers received different instances")
		}
	}
}

func TestLazy_RelaunchAfterDisconnect(t *testing.T) {
	var created, released atomic.Int32
	l := &lazy[*instance]{
		create: func(context.Context) (*instance, error) {
			inst := &instance{id: created.Add(1)}
			inst.alive.Store(true)
			return inst, nil
		},
		alive:   func(i *instance) bool { return i.alive.Load() },
		release: func(*instance) { released.Add(1) },
	}

	first, _ := l.Get(context.Background())
	first.alive.Store(false)

	second, err := l.Get(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if second == first || second.id != 2 {
		t.Errorf("expected a relaunched instance, got id %d", second.id)
	}
	if released.Load() != 1 {
		t.Errorf("released = %d, want 1", released.Load())
	}
}

func TestLazy_CreateErrorNotCached(t *testing.T) {
	var calls atomic.Int32
	l := &lazy[*instance]{
		create: func(context.Context) (*instance, error) {
			if calls.Add(1) == 1 {
				return nil, errors.New("boom")
			}
			return &instance{}, nil
		},
	}
	if _, err := l.Get(context.Background()); err == nil {
		t.Fatal("expected first Get to fail")
	}
	if _, err := l.Get(context.Background()); err != nil {
		t.Fatalf("second Get: %v", err)
	}
}
