package service

import (
	"sync"
	"time"

	"banlink/internal/crash"
)

// RateLimiter throttles outbound alert volume per origin community with a
// sliding time window: at most maxEvents admitted per origin in any rolling
// window. Each origin has its own entry and lock, so admission checks are
// linearized per origin without serializing unrelated origins.
type RateLimiter struct {
	maxEvents int
	window    time.Duration

	mu      sync.RWMutex
	origins map[int64]*originWindow

	now func() time.Time
}

type originWindow struct {
	mu         sync.Mutex
	admissions []time.Time
}

func NewRateLimiter(maxEvents int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		maxEvents: maxEvents,
		window:    window,
		origins:   make(map[int64]*originWindow),
		now:       time.Now,
	}
}

func (rl *RateLimiter) entry(originID int64) *originWindow {
	rl.mu.RLock()
	w := rl.origins[originID]
	rl.mu.RUnlock()
	if w != nil {
		return w
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if w = rl.origins[originID]; w == nil {
		w = &originWindow{}
		rl.origins[originID] = w
	}
	return w
}

// Admit records an admission and returns true when the origin still has
// budget in the current window; otherwise it returns false with no side
// effect. Stale timestamps are evicted lazily on every check.
func (rl *RateLimiter) Admit(originID int64) bool {
	w := rl.entry(originID)
	w.mu.Lock()
	defer w.mu.Unlock()

	now := rl.now()
	w.admissions = pruneBefore(w.admissions, now.Add(-rl.window))

	if len(w.admissions) >= rl.maxEvents {
		return false
	}
	w.admissions = append(w.admissions, now)
	return true
}

// Refund returns the most recent admission slot for an origin. The
// dispatcher calls it when persistence fails after admission, so a dropped
// event never charges the budget.
func (rl *RateLimiter) Refund(originID int64) {
	w := rl.entry(originID)
	w.mu.Lock()
	defer w.mu.Unlock()
	if n := len(w.admissions); n > 0 {
		w.admissions = w.admissions[:n-1]
	}
}

func pruneBefore(stamps []time.Time, cutoff time.Time) []time.Time {
	kept := stamps[:0]
	for _, ts := range stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	return kept
}

// Sweep drops entries for origins with no admissions inside the window, so
// inactive origins do not leak memory.
func (rl *RateLimiter) Sweep() {
	cutoff := rl.now().Add(-rl.window)
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for originID, w := range rl.origins {
		w.mu.Lock()
		w.admissions = pruneBefore(w.admissions, cutoff)
		empty := len(w.admissions) == 0
		w.mu.Unlock()
		if empty {
			delete(rl.origins, originID)
		}
	}
}

// StartSweeper runs Sweep periodically in a recovered goroutine.
func (rl *RateLimiter) StartSweeper(interval time.Duration) {
	crash.SafeGoroutine("ratelimit-sweeper", func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			rl.Sweep()
		}
	})
}
