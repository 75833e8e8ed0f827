package service

import (
	"sync"

	"banlink/internal/models"
)

const ledgerShards = 64

// IntegrityLedger holds each community's trust score. Adjustments are a
// clamped read-modify-write serialized per community by a sharded mutex, so
// concurrent workflows never lose updates while unrelated communities never
// contend.
type IntegrityLedger struct {
	registry *CommunityRegistry
	locks    [ledgerShards]sync.Mutex
}

func NewIntegrityLedger(registry *CommunityRegistry) *IntegrityLedger {
	return &IntegrityLedger{registry: registry}
}

func (l *IntegrityLedger) lockFor(communityID int64) *sync.Mutex {
	return &l.locks[uint64(communityID)%ledgerShards]
}

func clampIntegrity(score int) int {
	if score < models.IntegrityMin {
		return models.IntegrityMin
	}
	if score > models.IntegrityMax {
		return models.IntegrityMax
	}
	return score
}

// Adjust applies delta and clamps the result to [0, 100]. The new score is
// persisted before Adjust returns so dependent threshold reads never see a
// stale value. Out-of-range results clamp; they are never an error.
func (l *IntegrityLedger) Adjust(communityID int64, delta int) (int, error) {
	mu := l.lockFor(communityID)
	mu.Lock()
	defer mu.Unlock()

	c, err := l.registry.Ensure(communityID, "")
	if err != nil {
		return 0, err
	}
	c.Integrity = clampIntegrity(c.Integrity + delta)
	if err := l.registry.Save(c); err != nil {
		return 0, err
	}
	return c.Integrity, nil
}

// Get returns the community's current score; communities the system has
// never seen read as the default 100.
func (l *IntegrityLedger) Get(communityID int64) (int, error) {
	c, err := l.registry.Get(communityID)
	if err != nil {
		return 0, err
	}
	if c == nil {
		return models.IntegrityMax, nil
	}
	return c.Integrity, nil
}
