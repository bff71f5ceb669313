package ratelimit

import (
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestLimiterSlidingWindow(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	limiter := New(3, 5*time.Minute, WithClock(clock.Now))

	for i := range 3 {
		if !limiter.Allow("1.2.3.4") {
			t.Fatalf("request %d denied", i+1)
		}
		clock.Advance(time.Minute)
	}
	if limiter.Allow("1.2.3.4") {
		t.Fatal("fourth request within window allowed")
	}
	if got := limiter.Remaining("1.2.3.4"); got != 0 {
		t.Fatalf("Remaining = %d", got)
	}
	if got := limiter.RetryAfter("1.2.3.4"); got != 2*time.Minute {
		t.Fatalf("RetryAfter = %s", got)
	}
	if !limiter.Allow("5.6.7.8") {
		t.Fatal("other key denied")
	}

	clock.Advance(2*time.Minute + time.Second)
	if got := limiter.Remaining("1.2.3.4"); got != 1 {
		t.Fatalf("Remaining after slide = %d", got)
	}
	if !limiter.Allow("1.2.3.4") {
		t.Fatal("request after first hit expired was denied")
	}
}

func TestLimiterReset(t *testing.T) {
	limiter := New(1, time.Hour)
	if !limiter.Allow("k") {
		t.Fatal("first request denied")
	}
	if limiter.Allow("k") {
		t.Fatal("second request allowed")
	}
	limiter.Reset("k")
	if got := limiter.Remaining("k"); got != 1 {
		t.Fatalf("Remaining after reset = %d", got)
	}
	if !limiter.Allow("k") {
		t.Fatal("request after reset denied")
	}
}

func TestLimiterZeroLimitDenies(t *testing.T) {
	limiter := New(0, time.Minute)
	if limiter.Allow("k") {
		t.Fatal("zero limit allowed a request")
	}
}

func TestLimiterConcurrentAllow(t *testing.T) {
	limiter := New(10, time.Hour)
	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.Allow("shared") {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if allowed != 10 {
		t.Fatalf("allowed = %d, want 10", allowed)
	}
}
