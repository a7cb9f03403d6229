package api

import (
	"sync"
	"time"
)

// sweepInterval paces the inline cleanup of expired windows.
const sweepInterval = 5 * time.Minute

// Result is the outcome of one rate-limit check.
type Result struct {
	Allowed   bool
	Remaining int
}

// RateLimiter is a per-identifier fixed-window counter. The window
// resets when it has fully elapsed, at which point the counter starts
// over at 1. State is in-memory only; a restart resets all counters,
// which is fine for abuse mitigation.
//
// Expired entries are removed inline during Check calls, so no
// background goroutine is needed.
type RateLimiter struct {
	mu        sync.Mutex
	counters  map[string]*window
	limit     int
	window    time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type window struct {
	start time.Time
	count int
}

// NewRateLimiter creates a limiter allowing limit requests per
// identifier per window.
func NewRateLimiter(limit int, windowDur time.Duration) *RateLimiter {
	return &RateLimiter{
		counters:  make(map[string]*window),
		limit:     limit,
		window:    windowDur,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

// Check counts one request for id. It never fails; callers only
// branch on Result.Allowed.
func (rl *RateLimiter) Check(id string) Result {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()

	if now.Sub(rl.lastSweep) > sweepInterval {
		for k, w := range rl.counters {
			if now.Sub(w.start) > rl.window {
				delete(rl.counters, k)
			}
		}
		rl.lastSweep = now
	}

	w, ok := rl.counters[id]
	if !ok || now.Sub(w.start) > rl.window {
		rl.counters[id] = &window{start: now, count: 1}
		return Result{Allowed: true, Remaining: rl.limit - 1}
	}

	if w.count < rl.limit {
		w.count++
		return Result{Allowed: true, Remaining: rl.limit - w.count}
	}
	return Result{Allowed: false, Remaining: 0}
}
