package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"banlink/internal/models"
)

func TestFlagLifecycle(t *testing.T) {
	flags := NewFlagService(NewMemoryFlagStore())

	record, err := flags.Create(1000, 1, 77, "ban evasion", "https://example.com/proof")
	require.NoError(t, err)
	assert.Equal(t, models.FlagStatusPendingReview, record.Status)

	pending, err := flags.Pending()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, record.ID, pending[0].ID)

	require.NoError(t, flags.Review(record.ID, models.FlagStatusResolved))

	pending, err = flags.Pending()
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestFlagRequiresReason(t *testing.T) {
	flags := NewFlagService(NewMemoryFlagStore())

	_, err := flags.Create(1000, 1, 77, "", "")
	assert.Error(t, err)
}

func TestFlagDoubleReviewRejected(t *testing.T) {
	flags := NewFlagService(NewMemoryFlagStore())

	record, err := flags.Create(1000, 1, 77, "spam", "")
	require.NoError(t, err)

	require.NoError(t, flags.Review(record.ID, models.FlagStatusRejected))
	assert.ErrorIs(t, flags.Review(record.ID, models.FlagStatusResolved), ErrFlagAlreadyReviewed)
}

func TestFlagReviewValidatesOutcome(t *testing.T) {
	flags := NewFlagService(NewMemoryFlagStore())

	record, err := flags.Create(1000, 1, 77, "spam", "")
	require.NoError(t, err)

	assert.Error(t, flags.Review(record.ID, "Banned"))
	assert.ErrorIs(t, flags.Review(9999, models.FlagStatusResolved), ErrFlagNotFound)
}

func TestFlagsNeverTouchIntegrity(t *testing.T) {
	registry := newTestRegistry()
	ledger := NewIntegrityLedger(registry)
	origin, err := registry.Ensure(1, "origin")
	require.NoError(t, err)
	origin.Integrity = 80
	require.NoError(t, registry.Save(origin))

	flags := NewFlagService(NewMemoryFlagStore())
	record, err := flags.Create(1000, 1, 77, "spam", "")
	require.NoError(t, err)
	require.NoError(t, flags.Review(record.ID, models.FlagStatusResolved))

	score, err := ledger.Get(1)
	require.NoError(t, err)
	assert.Equal(t, 80, score)
}
