package backoff

import (
	"context"
	"testing"
	"time"
)

func TestDelay_Exponential(t *testing.T) {
	p := Policy{Base: time.Second, Max: 10 * time.Second}
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, time.Second},
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 10 * time.Second},
		{40, 10 * time.Second},
	}
	for _, tt := range tests {
		if got := p.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestDelay_JitterBounded(t *testing.T) {
	p := Default()
	for i := 0; i < 200; i++ {
		d := p.Delay(1)
		if d < time.Second || d >= time.Second+300*time.Millisecond {
			t.Fatalf("Delay(1) = %v, want [1s, 1.3s)", d)
		}
	}
}

func TestDelay_InjectedRand(t *testing.T) {
	p := Policy{Base: 100 * time.Millisecond, Max: time.Second, Jitter: 50 * time.Millisecond}
	p.rand = func(n int64) int64 { return n - 1 }
	if got, want := p.Delay(2), 200*time.Millisecond+50*time.Millisecond-1; got != want {
		t.Errorf("Delay(2) = %v, want %v", got, want)
	}
	if got := p.WithoutJitter().Delay(2); got != 200*time.Millisecond {
		t.Errorf("WithoutJitter().Delay(2) = %v", got)
	}
}

func TestSleep_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	if err := Sleep(ctx, time.Minute); err == nil {
		t.Fatal("expected context error")
	}
	if time.Since(start) > time.Second {
		t.Error("Sleep should return immediately on a cancelled context")
	}
}
