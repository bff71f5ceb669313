package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// Limiter allows at most Limit events per Window for each key. Timestamps
// are kept per key; idle keys expire from the cache after one window.
type Limiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu    sync.Mutex
	cache *ttlcache.Cache[string, []time.Time]
}

// Option customizes a Limiter.
type Option func(*Limiter)

// WithClock overrides the time source (useful for tests).
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// New constructs a limiter. Non-positive limits deny everything; a
// non-positive window is treated as one minute.
func New(limit int, window time.Duration, opts ...Option) *Limiter {
	if window <= 0 {
		window = time.Minute
	}
	l := &Limiter{
		limit:  limit,
		window: window,
		now:    time.Now,
		cache: ttlcache.New[string, []time.Time](
			ttlcache.WithTTL[string, []time.Time](window),
		),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow records an event for key and reports whether it fits in the window.
// Denied events are not recorded.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	hits := l.live(key, now)
	if len(hits) >= l.limit {
		l.store(key, hits)
		return false
	}
	l.store(key, append(hits, now))
	return true
}

// Remaining reports how many more events key may record right now.
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	remaining := l.limit - len(l.live(key, l.now()))
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RetryAfter reports how long key must wait before its next allowed event.
func (l *Limiter) RetryAfter(key string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	hits := l.live(key, now)
	if len(hits) < l.limit || len(hits) == 0 {
		return 0
	}
	return hits[0].Add(l.window).Sub(now)
}

// Reset forgets all events for key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache.Delete(key)
}

// Len reports how many keys are tracked.
func (l *Limiter) Len() int {
	return l.cache.Len()
}

// Run evicts idle keys in the background until ctx is cancelled.
func (l *Limiter) Run(ctx context.Context) {
	go l.cache.Start()
	<-ctx.Done()
	l.cache.Stop()
}

func (l *Limiter) live(key string, now time.Time) []time.Time {
	item := l.cache.Get(key)
	if item == nil {
		return nil
	}
	cutoff := now.Add(-l.window)
	stamps := item.Value()
	kept := make([]time.Time, 0, len(stamps))
	for _, ts := range stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	return kept
}

func (l *Limiter) store(key string, hits []time.Time) {
	if len(hits) == 0 {
		l.cache.Delete(key)
		return
	}
	l.cache.Set(key, hits, ttlcache.DefaultTTL)
}
