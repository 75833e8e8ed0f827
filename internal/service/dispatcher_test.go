package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"banlink/internal/models"
)

// staticReasonSource answers every lookup immediately.
type staticReasonSource struct {
	reason string
	found  bool
}

func (s staticReasonSource) LookupReason(ctx context.Context, event BanEvent) (string, bool, error) {
	return s.reason, s.found, nil
}

// failingBanStore rejects every create, for persistence failure paths.
type failingBanStore struct {
	*MemoryBanStore
}

func (s *failingBanStore) Create(record *models.BanRecord) error {
	return errors.New("database unavailable")
}

type pipelineFixture struct {
	registry   *CommunityRegistry
	ledger     *IntegrityLedger
	limiter    *RateLimiter
	bans       BanStore
	reviews    *MemoryReviewStore
	emitter    *fakeEmitter
	workflow   *ReviewWorkflow
	dispatcher *Dispatcher
}

type pipelineOptions struct {
	bans            BanStore
	source          ReasonSource
	maxAlerts       int
	selfID          int64
	duplicateWindow time.Duration
}

func newPipelineFixture(t *testing.T, opts pipelineOptions) *pipelineFixture {
	t.Helper()

	if opts.bans == nil {
		opts.bans = NewMemoryBanStore()
	}
	if opts.source == nil {
		opts.source = staticReasonSource{reason: "spam", found: true}
	}
	if opts.maxAlerts == 0 {
		opts.maxAlerts = 5
	}

	registry := newTestRegistry()
	ledger := NewIntegrityLedger(registry)
	limiter := NewRateLimiter(opts.maxAlerts, 180*time.Second)
	engine := NewAutoBanEngine(ledger, 50)
	resolver := NewReasonResolver(opts.source, 50*time.Millisecond, 10*time.Millisecond)
	reviews := NewMemoryReviewStore()
	emitter := &fakeEmitter{}
	workflow := NewReviewWorkflow(reviews, opts.bans, ledger, emitter, time.Hour)
	dispatcher := NewDispatcher(registry, ledger, limiter, resolver, engine,
		workflow, opts.bans, reviews, emitter, opts.selfID, opts.duplicateWindow)

	return &pipelineFixture{
		registry:   registry,
		ledger:     ledger,
		limiter:    limiter,
		bans:       opts.bans,
		reviews:    reviews,
		emitter:    emitter,
		workflow:   workflow,
		dispatcher: dispatcher,
	}
}

func (f *pipelineFixture) addCommunity(t *testing.T, id int64, integrity int, autoBan bool, alertChannel int64) *models.Community {
	t.Helper()
	c, err := f.registry.Ensure(id, "")
	require.NoError(t, err)
	c.Integrity = integrity
	c.AutoBanEnabled = autoBan
	c.AlertChannelID = alertChannel
	require.NoError(t, f.registry.Save(c))
	return c
}

func banEvent(subject, origin, issuer int64) BanEvent {
	return BanEvent{
		SubjectUserID: subject,
		OriginID:      origin,
		IssuerID:      issuer,
		ObservedAt:    time.Now(),
	}
}

func TestPropagateFansOutPerDestinationPolicy(t *testing.T) {
	f := newPipelineFixture(t, pipelineOptions{})
	f.addCommunity(t, 1, 100, false, 0)
	f.addCommunity(t, 2, 100, false, 200) // defers to review
	f.addCommunity(t, 3, 100, true, 300)  // auto-enforces

	err := f.dispatcher.Propagate(context.Background(), banEvent(1000, 1, 500))
	require.NoError(t, err)

	history, err := f.bans.HistoryForUser(1000)
	require.NoError(t, err)
	require.Len(t, history, 1, "one shared record per event")
	record := history[0]
	assert.Equal(t, "spam", record.Reason)

	alerts, enforcements, _ := f.emitter.counts()
	assert.Equal(t, 1, alerts)
	assert.Equal(t, 1, enforcements)

	pending, err := f.reviews.Get(record.ID, 2)
	require.NoError(t, err)
	require.NotNil(t, pending)
	assert.Equal(t, models.ReviewStatePending, pending.State)

	audit, err := f.reviews.Get(record.ID, 3)
	require.NoError(t, err)
	require.NotNil(t, audit)
	assert.Equal(t, models.ReviewStateAccepted, audit.State, "auto-enforcement leaves an accepted audit instance")

	// The auto-enforce credit cannot push integrity past the ceiling.
	score, err := f.ledger.Get(1)
	require.NoError(t, err)
	assert.Equal(t, models.IntegrityMax, score)
}

func TestPropagateBlacklistedOriginIsVetoed(t *testing.T) {
	f := newPipelineFixture(t, pipelineOptions{})
	origin := f.addCommunity(t, 1, 100, false, 0)
	origin.Blacklisted = true
	require.NoError(t, f.registry.Save(origin))
	f.addCommunity(t, 2, 100, false, 200)

	err := f.dispatcher.Propagate(context.Background(), banEvent(1000, 1, 500))
	require.NoError(t, err)

	history, err := f.bans.HistoryForUser(1000)
	require.NoError(t, err)
	assert.Empty(t, history, "veto happens before any record exists")

	alerts, enforcements, _ := f.emitter.counts()
	assert.Zero(t, alerts)
	assert.Zero(t, enforcements)
}

func TestPropagateSelfIssuedBanIsIgnored(t *testing.T) {
	f := newPipelineFixture(t, pipelineOptions{selfID: 900})
	f.addCommunity(t, 1, 100, false, 0)
	f.addCommunity(t, 2, 100, false, 200)

	err := f.dispatcher.Propagate(context.Background(), banEvent(1000, 1, 900))
	require.NoError(t, err)

	history, err := f.bans.HistoryForUser(1000)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestPropagateDropsWhenReasonNeverSurfaces(t *testing.T) {
	f := newPipelineFixture(t, pipelineOptions{source: staticReasonSource{found: false}})
	f.addCommunity(t, 1, 100, false, 0)
	f.addCommunity(t, 2, 100, false, 200)

	err := f.dispatcher.Propagate(context.Background(), banEvent(1000, 1, 500))
	require.NoError(t, err)

	history, err := f.bans.HistoryForUser(1000)
	require.NoError(t, err)
	assert.Empty(t, history, "an unexplained ban is never broadcast")
}

func TestPropagateRateLimitsPerOrigin(t *testing.T) {
	f := newPipelineFixture(t, pipelineOptions{maxAlerts: 1})
	f.addCommunity(t, 1, 100, false, 0)
	f.addCommunity(t, 2, 100, false, 200)

	require.NoError(t, f.dispatcher.Propagate(context.Background(), banEvent(1000, 1, 500)))
	require.NoError(t, f.dispatcher.Propagate(context.Background(), banEvent(1001, 1, 500)))

	first, err := f.bans.HistoryForUser(1000)
	require.NoError(t, err)
	second, err := f.bans.HistoryForUser(1001)
	require.NoError(t, err)
	assert.Len(t, first, 1)
	assert.Empty(t, second, "second event exceeds the origin's budget")
}

func TestPropagateSuppressesDuplicates(t *testing.T) {
	f := newPipelineFixture(t, pipelineOptions{duplicateWindow: 300 * time.Second})
	f.addCommunity(t, 1, 100, false, 0)
	f.addCommunity(t, 2, 100, false, 200)
	f.addCommunity(t, 3, 100, false, 300)

	require.NoError(t, f.dispatcher.Propagate(context.Background(), banEvent(1000, 1, 500)))
	require.NoError(t, f.dispatcher.Propagate(context.Background(), banEvent(1000, 3, 500)))

	history, err := f.bans.HistoryForUser(1000)
	require.NoError(t, err)
	assert.Len(t, history, 1, "same subject within the window propagates once")
}

func TestPropagateNoAlertableDestinations(t *testing.T) {
	f := newPipelineFixture(t, pipelineOptions{})
	f.addCommunity(t, 1, 100, false, 0)
	f.addCommunity(t, 2, 100, false, 0) // no alert channel

	err := f.dispatcher.Propagate(context.Background(), banEvent(1000, 1, 500))
	require.NoError(t, err)

	history, err := f.bans.HistoryForUser(1000)
	require.NoError(t, err)
	assert.Empty(t, history, "no record without a destination to alert")
}

func TestPropagateRefundsAdmissionOnPersistenceFailure(t *testing.T) {
	f := newPipelineFixture(t, pipelineOptions{
		bans:      &failingBanStore{NewMemoryBanStore()},
		maxAlerts: 1,
	})
	f.addCommunity(t, 1, 100, false, 0)
	f.addCommunity(t, 2, 100, false, 200)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := f.dispatcher.Propagate(ctx, banEvent(1000, 1, 500))
	require.NoError(t, err, "persistence failure is absorbed, not surfaced")

	alerts, enforcements, _ := f.emitter.counts()
	assert.Zero(t, alerts)
	assert.Zero(t, enforcements)

	assert.True(t, f.limiter.Admit(1), "the failed event must not charge the budget")
}
