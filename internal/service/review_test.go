package service

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"banlink/internal/models"
)

// fakeEmitter records emitted events for assertions.
type fakeEmitter struct {
	mu           sync.Mutex
	alerts       []AlertPayload
	enforcements []AlertPayload
	expired      [][2]int64
}

func (e *fakeEmitter) EmitAlert(dest *models.Community, payload AlertPayload) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.alerts = append(e.alerts, payload)
}

func (e *fakeEmitter) EmitAutoEnforcement(dest *models.Community, payload AlertPayload) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enforcements = append(e.enforcements, payload)
}

func (e *fakeEmitter) EmitExpired(banID uint, destinationID int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.expired = append(e.expired, [2]int64{int64(banID), destinationID})
}

func (e *fakeEmitter) counts() (alerts, enforcements, expired int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.alerts), len(e.enforcements), len(e.expired)
}

type reviewFixture struct {
	registry *CommunityRegistry
	ledger   *IntegrityLedger
	bans     *MemoryBanStore
	reviews  *MemoryReviewStore
	emitter  *fakeEmitter
	workflow *ReviewWorkflow
}

func newReviewFixture(t *testing.T, originIntegrity int) *reviewFixture {
	t.Helper()

	registry := newTestRegistry()
	origin, err := registry.Ensure(1, "origin")
	require.NoError(t, err)
	origin.Integrity = originIntegrity
	require.NoError(t, registry.Save(origin))

	ledger := NewIntegrityLedger(registry)
	bans := NewMemoryBanStore()
	reviews := NewMemoryReviewStore()
	emitter := &fakeEmitter{}
	workflow := NewReviewWorkflow(reviews, bans, ledger, emitter, time.Hour)

	return &reviewFixture{
		registry: registry,
		ledger:   ledger,
		bans:     bans,
		reviews:  reviews,
		emitter:  emitter,
		workflow: workflow,
	}
}

func (f *reviewFixture) createBan(t *testing.T, subject int64) *models.BanRecord {
	t.Helper()
	record := &models.BanRecord{
		SubjectUserID: subject,
		OriginID:      1,
		IssuerID:      500,
		Reason:        "spam",
		Status:        models.BanStatusPending,
	}
	require.NoError(t, f.bans.Create(record))
	return record
}

func TestReviewAcceptCreditsOrigin(t *testing.T) {
	f := newReviewFixture(t, 80)
	record := f.createBan(t, 1000)

	_, err := f.workflow.Open(record.ID, 2)
	require.NoError(t, err)

	require.NoError(t, f.workflow.Accept(record.ID, 2, 77))

	score, err := f.ledger.Get(1)
	require.NoError(t, err)
	assert.Equal(t, 81, score)

	instance, err := f.workflow.Get(record.ID, 2)
	require.NoError(t, err)
	require.NotNil(t, instance)
	assert.Equal(t, models.ReviewStateAccepted, instance.State)
	assert.Equal(t, int64(77), instance.ResolvedBy)

	stored, err := f.bans.Get(record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BanStatusAccepted, stored.Status)
}

func TestReviewDismissDebitsOrigin(t *testing.T) {
	f := newReviewFixture(t, 80)
	record := f.createBan(t, 1000)

	_, err := f.workflow.Open(record.ID, 2)
	require.NoError(t, err)

	require.NoError(t, f.workflow.Dismiss(record.ID, 2, 77))

	score, err := f.ledger.Get(1)
	require.NoError(t, err)
	assert.Equal(t, 79, score)

	stored, err := f.bans.Get(record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BanStatusDismissed, stored.Status)
}

func TestReviewDoubleDecisionAppliesOnce(t *testing.T) {
	f := newReviewFixture(t, 80)
	record := f.createBan(t, 1000)

	_, err := f.workflow.Open(record.ID, 2)
	require.NoError(t, err)

	require.NoError(t, f.workflow.Accept(record.ID, 2, 77))
	assert.ErrorIs(t, f.workflow.Accept(record.ID, 2, 78), ErrAlreadyResolved)
	assert.ErrorIs(t, f.workflow.Dismiss(record.ID, 2, 78), ErrAlreadyResolved)

	score, err := f.ledger.Get(1)
	require.NoError(t, err)
	assert.Equal(t, 81, score, "integrity adjusts exactly once")
}

func TestReviewUnknownInstance(t *testing.T) {
	f := newReviewFixture(t, 80)
	assert.ErrorIs(t, f.workflow.Accept(12345, 2, 77), ErrReviewNotFound)
}

func TestReviewExpiryIsNeutral(t *testing.T) {
	f := newReviewFixture(t, 80)
	record := f.createBan(t, 1000)

	base := time.Now()
	f.workflow.now = func() time.Time { return base }

	_, err := f.workflow.Open(record.ID, 2)
	require.NoError(t, err)

	f.workflow.now = func() time.Time { return base.Add(2 * time.Hour) }
	f.workflow.SweepExpired()

	instance, err := f.workflow.Get(record.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, models.ReviewStateExpired, instance.State)

	score, err := f.ledger.Get(1)
	require.NoError(t, err)
	assert.Equal(t, 80, score, "expiry never moves integrity")

	stored, err := f.bans.Get(record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BanStatusPending, stored.Status, "an expired instance leaves the record pending")

	_, _, expired := f.emitter.counts()
	assert.Equal(t, 1, expired)
}

func TestReviewDecisionAfterExpiry(t *testing.T) {
	f := newReviewFixture(t, 80)
	record := f.createBan(t, 1000)

	base := time.Now()
	f.workflow.now = func() time.Time { return base }

	_, err := f.workflow.Open(record.ID, 2)
	require.NoError(t, err)

	f.workflow.now = func() time.Time { return base.Add(2 * time.Hour) }
	f.workflow.SweepExpired()

	assert.ErrorIs(t, f.workflow.Accept(record.ID, 2, 77), ErrExpired)

	score, err := f.ledger.Get(1)
	require.NoError(t, err)
	assert.Equal(t, 80, score)
}

func TestReviewExpiryAfterDecisionIsNoop(t *testing.T) {
	f := newReviewFixture(t, 80)
	record := f.createBan(t, 1000)

	base := time.Now()
	f.workflow.now = func() time.Time { return base }

	instance, err := f.workflow.Open(record.ID, 2)
	require.NoError(t, err)
	require.NoError(t, f.workflow.Accept(record.ID, 2, 77))

	f.workflow.now = func() time.Time { return base.Add(2 * time.Hour) }
	f.workflow.SweepExpired()

	current, err := f.workflow.Get(record.ID, instance.DestinationID)
	require.NoError(t, err)
	assert.Equal(t, models.ReviewStateAccepted, current.State, "the decision won, expiry must not overwrite it")

	_, _, expired := f.emitter.counts()
	assert.Zero(t, expired)
}

func TestReviewDestinationsDecideIndependently(t *testing.T) {
	f := newReviewFixture(t, 80)
	record := f.createBan(t, 1000)

	_, err := f.workflow.Open(record.ID, 2)
	require.NoError(t, err)
	_, err = f.workflow.Open(record.ID, 3)
	require.NoError(t, err)

	require.NoError(t, f.workflow.Accept(record.ID, 2, 77))
	require.NoError(t, f.workflow.Dismiss(record.ID, 3, 88))

	score, err := f.ledger.Get(1)
	require.NoError(t, err)
	assert.Equal(t, 80, score, "one accept and one dismiss net to zero")

	a, err := f.workflow.Get(record.ID, 2)
	require.NoError(t, err)
	b, err := f.workflow.Get(record.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, models.ReviewStateAccepted, a.State)
	assert.Equal(t, models.ReviewStateDismissed, b.State)

	// The record summary keeps the first terminal outcome.
	stored, err := f.bans.Get(record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BanStatusAccepted, stored.Status)
}

func TestReviewDuplicateOpenRejected(t *testing.T) {
	f := newReviewFixture(t, 80)
	record := f.createBan(t, 1000)

	_, err := f.workflow.Open(record.ID, 2)
	require.NoError(t, err)
	_, err = f.workflow.Open(record.ID, 2)
	assert.Error(t, err, "one instance per (ban, destination) pair")
}
