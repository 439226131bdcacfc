// Package backoff computes bounded exponential retry delays.
package backoff

import (
	"context"
	"math/rand/v2"
	"time"
)

// Policy describes an exponential backoff with a cap and random jitter.
type Policy struct {
	Base   time.Duration
	Max    time.Duration
	Jitter time.Duration

	// rand returns a value in [0, n). Tests replace it for determinism.
	rand func(n int64) int64
}

// Default returns the policy used for provider calls: 1s base, 10s cap, up to 300ms jitter.
func Default() Policy {
	return Policy{Base: time.Second, Max: 10 * time.Second, Jitter: 300 * time.Millisecond}
}

// WithoutJitter returns a copy of p that never adds jitter.
func (p Policy) WithoutJitter() Policy {
	p.Jitter = 0
	return p
}

// Delay returns the wait before retry number attempt (1-based):
// min(Base*2^(attempt-1), Max) plus jitter in [0, Jitter).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := p.Base
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.Max > 0 && d >= p.Max {
			d = p.Max
			break
		}
	}
	if p.Max > 0 && d > p.Max {
		d = p.Max
	}
	if p.Jitter > 0 {
		rnd := p.rand
		if rnd == nil {
			rnd = rand.Int64N
		}
		d += time.Duration(rnd(int64(p.Jitter)))
	}
	return d
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
