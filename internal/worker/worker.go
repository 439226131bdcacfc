package worker

import (
	"context"
	"log/slog"
	"time"
)

// ResearchPurger deletes expired volatile company research.
type ResearchPurger interface {
	PurgeExpiredResearch(ctx context.Context, now time.Time) (int64, error)
}

// ExpiringCache drops expired in-memory entries.
type ExpiringCache interface {
	PurgeExpired() int
}

// Sweeper periodically purges expired research from the store and the
// in-memory cache. Either collaborator may be nil.
type Sweeper struct {
	store    ResearchPurger
	cache    ExpiringCache
	interval time.Duration
	now      func() time.Time
}

// New creates a new Sweeper.
func New(store ResearchPurger, cache ExpiringCache, interval time.Duration) *Sweeper {
	return &Sweeper{store: store, cache: cache, interval: interval, now: time.Now}
}

// Start runs a sweep immediately and then once per interval. It blocks
// until ctx is cancelled.
func (w *Sweeper) Start(ctx context.Context) {
	slog.Info("sweeper started", "interval", w.interval.String())
	for {
		w.Sweep(ctx)

		select {
		case <-ctx.Done():
			slog.Info("sweeper stopped")
			return
		case <-time.After(w.interval):
		}
	}
}

// Sweep runs one purge pass and returns how many store rows and cache
// entries were removed.
func (w *Sweeper) Sweep(ctx context.Context) (rows int64, entries int) {
	if w.store != nil {
		n, err := w.store.PurgeExpiredResearch(ctx, w.now())
		if err != nil {
			slog.Error("purge expired research failed", "error", err)
		}
		rows = n
	}
	if w.cache != nil {
		entries = w.cache.PurgeExpired()
	}
	if rows > 0 || entries > 0 {
		slog.Info("expired research purged", "rows", rows, "cache_entries", entries)
	}
	return rows, entries
}
