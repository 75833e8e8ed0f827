package service

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"banlink/internal/logger"
	"banlink/internal/models"
)

// Dispatcher fans one ban event out to every eligible destination. The
// pipeline order is fixed: blacklist veto, reason resolution, duplicate
// suppression, rate-limit admission, destination filtering, record creation,
// then a per-destination auto-ban decision or deferred review. Every drop
// along the way is policy, logged and never surfaced as a user error.
type Dispatcher struct {
	registry *CommunityRegistry
	ledger   *IntegrityLedger
	limiter  *RateLimiter
	resolver *ReasonResolver
	engine   *AutoBanEngine
	workflow *ReviewWorkflow
	bans     BanStore
	reviews  ReviewStore
	emitter  Emitter

	// Bans issued by this identity (the bot itself) are never propagated.
	selfID          int64
	duplicateWindow time.Duration
}

func NewDispatcher(
	registry *CommunityRegistry,
	ledger *IntegrityLedger,
	limiter *RateLimiter,
	resolver *ReasonResolver,
	engine *AutoBanEngine,
	workflow *ReviewWorkflow,
	bans BanStore,
	reviews ReviewStore,
	emitter Emitter,
	selfID int64,
	duplicateWindow time.Duration,
) *Dispatcher {
	return &Dispatcher{
		registry:        registry,
		ledger:          ledger,
		limiter:         limiter,
		resolver:        resolver,
		engine:          engine,
		workflow:        workflow,
		bans:            bans,
		reviews:         reviews,
		emitter:         emitter,
		selfID:          selfID,
		duplicateWindow: duplicateWindow,
	}
}

// Propagate runs one ban event through the pipeline. It returns an error
// only for failures the caller should know about; policy drops return nil.
func (d *Dispatcher) Propagate(ctx context.Context, event BanEvent) error {
	if d.selfID != 0 && event.IssuerID == d.selfID {
		logger.Debugf("Ignoring self-issued ban for user %d in %d", event.SubjectUserID, event.OriginID)
		return nil
	}

	origin, err := d.registry.Ensure(event.OriginID, "")
	if err != nil {
		return err
	}
	if origin.Blacklisted {
		// Absolute veto: no record, no alerts, nothing downstream.
		logger.Infof("Dropping ban from blacklisted origin %d", event.OriginID)
		return nil
	}

	reason, ok := d.resolver.Resolve(ctx, event)
	if !ok {
		logger.Infof("No reason for ban of user %d in %d within budget, dropping", event.SubjectUserID, event.OriginID)
		return nil
	}

	if d.isDuplicate(event) {
		logger.Infof("Ban of user %d already propagated recently, dropping", event.SubjectUserID)
		return nil
	}

	if !d.limiter.Admit(event.OriginID) {
		logger.Infof("Origin %d rate limited, dropping ban of user %d", event.OriginID, event.SubjectUserID)
		return nil
	}

	all, err := d.registry.All()
	if err != nil {
		d.limiter.Refund(event.OriginID)
		logger.Errorf("Listing communities for propagation: %v", err)
		return nil
	}

	destinations := d.alertable(EligibleDestinations(origin, all))
	if len(destinations) == 0 {
		logger.Infof("No eligible destinations for ban of user %d from %d", event.SubjectUserID, event.OriginID)
		return nil
	}

	record := &models.BanRecord{
		SubjectUserID: event.SubjectUserID,
		OriginID:      event.OriginID,
		IssuerID:      event.IssuerID,
		Reason:        reason,
		Status:        models.BanStatusPending,
		CreatedAt:     event.ObservedAt,
	}
	if err := d.createWithRetry(ctx, record); err != nil {
		// Give the admission slot back so the budget stays accurate.
		d.limiter.Refund(event.OriginID)
		logger.Errorf("Dropping ban of user %d after persistence retries: %v", event.SubjectUserID, err)
		return nil
	}

	score, err := d.ledger.Get(event.OriginID)
	if err != nil {
		score = origin.Integrity
	}
	payload := AlertPayload{
		BanID:           record.ID,
		SubjectUserID:   event.SubjectUserID,
		OriginID:        event.OriginID,
		OriginName:      origin.Name,
		OriginIntegrity: score,
		Reason:          reason,
	}

	for _, dest := range destinations {
		if d.engine.Decide(dest, event.OriginID) == AutoEnforce {
			d.autoEnforce(dest, record, payload)
			continue
		}
		if _, err := d.workflow.Open(record.ID, dest.CommunityID); err != nil {
			logger.Errorf("Opening review for ban %d at %d: %v", record.ID, dest.CommunityID, err)
			continue
		}
		d.emitter.EmitAlert(dest, payload)
	}
	return nil
}

// autoEnforce records the implicit accept for a destination: an audit
// instance already in Accepted state, the same +1 a manual accept applies,
// and a non-interactive notification.
func (d *Dispatcher) autoEnforce(dest *models.Community, record *models.BanRecord, payload AlertPayload) {
	instance := &models.ReviewInstance{
		BanID:         record.ID,
		DestinationID: dest.CommunityID,
		State:         models.ReviewStateAccepted,
		Deadline:      time.Now(),
	}
	if err := d.reviews.Create(instance); err != nil {
		logger.Warningf("Recording auto-enforce audit for ban %d at %d: %v", record.ID, dest.CommunityID, err)
	}
	if _, err := d.ledger.Adjust(record.OriginID, +1); err != nil {
		logger.Errorf("Integrity credit for origin %d failed: %v", record.OriginID, err)
	}
	if err := d.bans.MarkStatus(record.ID, models.BanStatusAccepted); err != nil {
		logger.Warningf("Marking ban %d accepted: %v", record.ID, err)
	}
	d.emitter.EmitAutoEnforcement(dest, payload)
}

// alertable keeps destinations that have somewhere to render an alert.
func (d *Dispatcher) alertable(destinations []*models.Community) []*models.Community {
	kept := destinations[:0]
	for _, dest := range destinations {
		if dest.AlertChannelID == 0 {
			continue
		}
		kept = append(kept, dest)
	}
	return kept
}

func (d *Dispatcher) isDuplicate(event BanEvent) bool {
	if d.duplicateWindow <= 0 {
		return false
	}
	recent, err := d.bans.RecentForUser(event.SubjectUserID, time.Now().Add(-d.duplicateWindow))
	if err != nil {
		logger.Warningf("Duplicate check for user %d: %v", event.SubjectUserID, err)
		return false
	}
	return len(recent) > 0
}

func (d *Dispatcher) createWithRetry(ctx context.Context, record *models.BanRecord) error {
	operation := func() error {
		return d.bans.Create(record)
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 4), ctx)
	return backoff.Retry(operation, policy)
}
