package service

import (
	"banlink/internal/logger"
	"banlink/internal/models"
)

// Decision is the per-destination outcome of the auto-ban engine.
type Decision int

const (
	// Defer hands the alert to a human review workflow.
	Defer Decision = iota
	// AutoEnforce bans the subject immediately, recorded as an implicit
	// accept.
	AutoEnforce
)

// AutoBanEngine decides whether a destination enforces a propagated ban
// without waiting for a human: auto-ban must be enabled there and the
// origin's integrity must be at or above the threshold.
type AutoBanEngine struct {
	ledger    *IntegrityLedger
	threshold int
}

func NewAutoBanEngine(ledger *IntegrityLedger, threshold int) *AutoBanEngine {
	return &AutoBanEngine{ledger: ledger, threshold: threshold}
}

func (e *AutoBanEngine) Decide(destination *models.Community, originID int64) Decision {
	if destination == nil || !destination.AutoBanEnabled {
		return Defer
	}
	score, err := e.ledger.Get(originID)
	if err != nil {
		logger.Warningf("Integrity read for origin %d failed, deferring: %v", originID, err)
		return Defer
	}
	if score >= e.threshold {
		return AutoEnforce
	}
	return Defer
}
