package service

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"banlink/internal/models"
)

func newTestRegistry() *CommunityRegistry {
	return NewCommunityRegistry(NewMemoryCommunityStore())
}

func TestLedgerDefaultsToMax(t *testing.T) {
	ledger := NewIntegrityLedger(newTestRegistry())

	score, err := ledger.Get(42)
	require.NoError(t, err)
	assert.Equal(t, models.IntegrityMax, score)
}

func TestLedgerAdjustClampsAtBounds(t *testing.T) {
	registry := newTestRegistry()
	ledger := NewIntegrityLedger(registry)

	// A fresh community starts at the ceiling, so a credit cannot push past it.
	score, err := ledger.Adjust(1, +1)
	require.NoError(t, err)
	assert.Equal(t, models.IntegrityMax, score)

	for i := 0; i < models.IntegrityMax+10; i++ {
		score, err = ledger.Adjust(1, -1)
		require.NoError(t, err)
	}
	assert.Equal(t, models.IntegrityMin, score)

	score, err = ledger.Adjust(1, +1)
	require.NoError(t, err)
	assert.Equal(t, models.IntegrityMin+1, score)
}

func TestLedgerAdjustPersistsBeforeReturn(t *testing.T) {
	registry := newTestRegistry()
	ledger := NewIntegrityLedger(registry)

	_, err := ledger.Adjust(7, -5)
	require.NoError(t, err)

	c, err := registry.Get(7)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, models.IntegrityMax-5, c.Integrity)

	score, err := ledger.Get(7)
	require.NoError(t, err)
	assert.Equal(t, models.IntegrityMax-5, score)
}

func TestLedgerConcurrentAdjustLosesNoUpdates(t *testing.T) {
	registry := newTestRegistry()
	ledger := NewIntegrityLedger(registry)

	const workers = 8
	const perWorker = 10

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				_, err := ledger.Adjust(99, -1)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	score, err := ledger.Get(99)
	require.NoError(t, err)
	assert.Equal(t, models.IntegrityMax-workers*perWorker, score)
}
