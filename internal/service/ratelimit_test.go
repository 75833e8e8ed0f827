package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterAdmitsUpToBudget(t *testing.T) {
	rl := NewRateLimiter(5, 180*time.Second)

	for i := 0; i < 5; i++ {
		assert.True(t, rl.Admit(1), "admission %d should fit the budget", i+1)
	}
	assert.False(t, rl.Admit(1), "sixth admission must be refused")
}

func TestRateLimiterWindowSlides(t *testing.T) {
	base := time.Now()
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return base }

	assert.True(t, rl.Admit(1))
	assert.True(t, rl.Admit(1))
	assert.False(t, rl.Admit(1))

	// The first admission ages out, freeing exactly one slot.
	rl.now = func() time.Time { return base.Add(61 * time.Second) }
	assert.True(t, rl.Admit(1))
	assert.False(t, rl.Admit(1))
}

func TestRateLimiterTracksOriginsIndependently(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)

	assert.True(t, rl.Admit(1))
	assert.True(t, rl.Admit(2))
	assert.False(t, rl.Admit(1))
	assert.False(t, rl.Admit(2))
}

func TestRateLimiterRefundReturnsSlot(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)

	assert.True(t, rl.Admit(1))
	assert.False(t, rl.Admit(1))

	rl.Refund(1)
	assert.True(t, rl.Admit(1))
}

func TestRateLimiterRefundOnEmptyIsNoop(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)

	rl.Refund(1)
	assert.True(t, rl.Admit(1))
	assert.False(t, rl.Admit(1))
}

func TestRateLimiterSweepEvictsIdleOrigins(t *testing.T) {
	base := time.Now()
	rl := NewRateLimiter(3, time.Minute)
	rl.now = func() time.Time { return base }

	rl.Admit(1)
	rl.Admit(2)

	rl.now = func() time.Time { return base.Add(2 * time.Minute) }
	rl.Sweep()

	rl.mu.RLock()
	remaining := len(rl.origins)
	rl.mu.RUnlock()
	assert.Zero(t, remaining, "idle origins should be evicted")

	// Eviction must not affect fresh admissions.
	assert.True(t, rl.Admit(1))
}
