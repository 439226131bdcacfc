package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestCache_LRUEvictionByCount(t *testing.T) {
	c := New[string, int](Config{MaxEntries: 2}, nil)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // a is now most recent
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted as least recently used")
	}
	for _, k := range []string{"a", "c"} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("%s should still be cached", k)
		}
	}
	if s := c.Stats(); s.Entries != 2 || s.Evictions != 1 {
		t.Errorf("Stats = %+v", s)
	}
}

func TestCache_EvictionByBytes(t *testing.T) {
	c := New[string, string](Config{MaxBytes: 10}, func(s string) int64 { return int64(len(s)) })
	c.Set("a", "12345")
	c.Set("b", "12345")
	c.Set("c", "123")

	if _, ok := c.Get("a"); ok {
		t.Error("a should have been evicted to fit c")
	}
	if s := c.Stats(); s.Bytes != 8 {
		t.Errorf("Bytes = %d, want 8", s.Bytes)
	}

	c.Set("huge", "12345678901")
	if _, ok := c.Get("huge"); ok {
		t.Error("value larger than MaxBytes must not be stored")
	}
}

func TestCache_ReplaceUpdatesBytes(t *testing.T) {
	c := New[string, string](Config{}, func(s string) int64 { return int64(len(s)) })
	c.Set("k", "long value")
	c.Set("k", "v")
	if s := c.Stats(); s.Bytes != 1 || s.Entries != 1 {
		t.Errorf("Stats = %+v, want 1 entry of 1 byte", s)
	}
}

func TestCache_TTL(t *testing.T) {
	clk := &clock{t: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}
	c := New[string, int](Config{TTL: time.Minute}, nil)
	c.now = clk.now

	c.Set("a", 1)
	clk.advance(30 * time.Second)
	c.Set("b", 2)

	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Error("a should be fresh")
	}
	clk.advance(31 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Error("a should have expired")
	}

	clk.advance(time.Minute)
	if n := c.PurgeExpired(); n != 1 {
		t.Errorf("PurgeExpired = %d, want 1", n)
	}
	if s := c.Stats(); s.Entries != 0 || s.Bytes != 0 {
		t.Errorf("Stats after purge = %+v", s)
	}
}

func TestCache_SetUntilCapsLifetime(t *testing.T) {
	clk := &clock{t: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}
	c := New[string, int](Config{TTL: time.Hour}, nil)
	c.now = clk.now

	c.SetUntil("short", 1, clk.t.Add(time.Minute))
	c.SetUntil("long", 2, clk.t.Add(24*time.Hour))
	c.SetUntil("ttl", 3, time.Time{})

	clk.advance(2 * time.Minute)
	if _, ok := c.Get("short"); ok {
		t.Error("short should expire at its own deadline, before the TTL")
	}
	if _, ok := c.Get("long"); !ok {
		t.Error("long should still be fresh")
	}

	clk.advance(time.Hour)
	for _, k := range []string{"long", "ttl"} {
		if _, ok := c.Get(k); ok {
			t.Errorf("%s should be capped by the TTL", k)
		}
	}
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := New[string, int](Config{MaxEntries: 50}, nil)
	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 500 {
				k := fmt.Sprintf("k%d", (g*31+i)%120)
				c.Set(k, i)
				c.Get(k)
				if i%50 == 0 {
					c.PurgeExpired()
				}
			}
		}()
	}
	wg.Wait()

	if s := c.Stats(); s.Entries > 50 {
		t.Errorf("Entries = %d, exceeds MaxEntries", s.Entries)
	}
}
