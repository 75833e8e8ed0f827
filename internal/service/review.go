package service

import (
	"errors"
	"sync"
	"time"

	"banlink/internal/crash"
	"banlink/internal/logger"
	"banlink/internal/models"
)

var (
	// ErrAlreadyResolved is returned for a decision on an instance another
	// action already resolved.
	ErrAlreadyResolved = errors.New("review instance already resolved")
	// ErrExpired is returned for a decision on an instance whose deadline
	// fired first.
	ErrExpired = errors.New("review instance expired")
	// ErrReviewNotFound is returned when no instance exists for the
	// (ban, destination) pair.
	ErrReviewNotFound = errors.New("review instance not found")
)

// ReviewWorkflow drives the per-(ban, destination) state machine:
// Pending moves to exactly one of Accepted, Dismissed or Expired. Human
// transitions adjust the origin's integrity; expiry is neutral. Terminal
// arbitration is a compare-and-set on the durable row, so a decision racing
// the deadline timer has exactly one winner and the loser reports
// ErrAlreadyResolved / ErrExpired.
type ReviewWorkflow struct {
	reviews ReviewStore
	bans    BanStore
	ledger  *IntegrityLedger
	emitter Emitter
	ttl     time.Duration

	mu     sync.Mutex
	timers map[uint]*time.Timer

	now func() time.Time
}

func NewReviewWorkflow(reviews ReviewStore, bans BanStore, ledger *IntegrityLedger, emitter Emitter, ttl time.Duration) *ReviewWorkflow {
	return &ReviewWorkflow{
		reviews: reviews,
		bans:    bans,
		ledger:  ledger,
		emitter: emitter,
		ttl:     ttl,
		timers:  make(map[uint]*time.Timer),
		now:     time.Now,
	}
}

// Open creates a pending instance for a (ban, destination) pair with an
// absolute deadline ttl from now, and arms its expiry timer.
func (w *ReviewWorkflow) Open(banID uint, destinationID int64) (*models.ReviewInstance, error) {
	instance := &models.ReviewInstance{
		BanID:         banID,
		DestinationID: destinationID,
		State:         models.ReviewStatePending,
		Deadline:      w.now().Add(w.ttl),
	}
	if err := w.reviews.Create(instance); err != nil {
		return nil, err
	}
	w.schedule(instance)
	return instance, nil
}

// Accept resolves the instance as accepted by actorID and credits the
// origin's integrity.
func (w *ReviewWorkflow) Accept(banID uint, destinationID, actorID int64) error {
	return w.resolve(banID, destinationID, actorID, models.ReviewStateAccepted, +1)
}

// Dismiss resolves the instance as dismissed by actorID and debits the
// origin's integrity.
func (w *ReviewWorkflow) Dismiss(banID uint, destinationID, actorID int64) error {
	return w.resolve(banID, destinationID, actorID, models.ReviewStateDismissed, -1)
}

func (w *ReviewWorkflow) resolve(banID uint, destinationID, actorID int64, toState string, delta int) error {
	instance, err := w.reviews.Get(banID, destinationID)
	if err != nil {
		return err
	}
	if instance == nil {
		return ErrReviewNotFound
	}
	if instance.Terminal() {
		if instance.State == models.ReviewStateExpired {
			return ErrExpired
		}
		return ErrAlreadyResolved
	}

	won, err := w.reviews.Transition(instance.ID, toState, actorID)
	if err != nil {
		return err
	}
	if !won {
		// Lost the race against expiry or another decision; report what
		// actually happened.
		current, err := w.reviews.Get(banID, destinationID)
		if err == nil && current != nil && current.State == models.ReviewStateExpired {
			return ErrExpired
		}
		return ErrAlreadyResolved
	}

	w.cancelTimer(instance.ID)

	record, err := w.bans.Get(banID)
	if err != nil || record == nil {
		logger.Errorf("Ban record %d missing after review transition: %v", banID, err)
		return nil
	}
	if _, err := w.ledger.Adjust(record.OriginID, delta); err != nil {
		logger.Errorf("Integrity adjust for origin %d failed: %v", record.OriginID, err)
	}
	if err := w.bans.MarkStatus(banID, toState); err != nil {
		logger.Warningf("Marking ban %d %s: %v", banID, toState, err)
	}
	return nil
}

// expire fires the deadline transition. Integrity stays untouched: an
// unreviewed alert is neutral, not a penalty.
func (w *ReviewWorkflow) expire(instanceID, banID uint, destinationID int64) {
	won, err := w.reviews.Transition(instanceID, models.ReviewStateExpired, 0)
	if err != nil {
		logger.Warningf("Expiring review instance %d: %v", instanceID, err)
		return
	}
	w.cancelTimer(instanceID)
	if !won {
		// A human decision landed first.
		return
	}
	logger.Infof("Review instance %d (ban %d, destination %d) expired", instanceID, banID, destinationID)
	if w.emitter != nil {
		w.emitter.EmitExpired(banID, destinationID)
	}
}

func (w *ReviewWorkflow) schedule(instance *models.ReviewInstance) {
	id, banID, destID := instance.ID, instance.BanID, instance.DestinationID
	delay := time.Until(instance.Deadline)
	if delay < 0 {
		delay = 0
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.timers[id] = time.AfterFunc(delay, func() {
		defer crash.RecoverWithStack("review-expiry")
		w.expire(id, banID, destID)
	})
}

func (w *ReviewWorkflow) cancelTimer(instanceID uint) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[instanceID]; ok {
		t.Stop()
		delete(w.timers, instanceID)
	}
}

// SweepExpired expires every pending instance whose deadline has passed.
// Timers cover instances created in this process; the sweep recovers
// deadlines that survived a restart.
func (w *ReviewWorkflow) SweepExpired() {
	due, err := w.reviews.DuePending(w.now())
	if err != nil {
		logger.Warningf("Expiry sweep query: %v", err)
		return
	}
	for _, instance := range due {
		w.expire(instance.ID, instance.BanID, instance.DestinationID)
	}
}

// StartSweeper runs SweepExpired periodically in a recovered goroutine.
func (w *ReviewWorkflow) StartSweeper(interval time.Duration) {
	crash.SafeGoroutine("review-sweeper", func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			w.SweepExpired()
		}
	})
}

// Get returns the instance for a (ban, destination) pair, or nil.
func (w *ReviewWorkflow) Get(banID uint, destinationID int64) (*models.ReviewInstance, error) {
	return w.reviews.Get(banID, destinationID)
}
