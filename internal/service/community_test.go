package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"banlink/internal/models"
)

func TestRegistryEnsureRegistersWithDefaults(t *testing.T) {
	registry := newTestRegistry()

	c, err := registry.Ensure(1, "my group")
	require.NoError(t, err)
	assert.Equal(t, models.IntegrityMax, c.Integrity)
	assert.False(t, c.Blacklisted)
	assert.False(t, c.AutoBanEnabled)
	assert.Zero(t, c.AlertChannelID)

	again, err := registry.Ensure(1, "my group")
	require.NoError(t, err)
	assert.Equal(t, c.CommunityID, again.CommunityID)

	all, err := registry.All()
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRegistryEnsureUpdatesName(t *testing.T) {
	registry := newTestRegistry()

	_, err := registry.Ensure(1, "old name")
	require.NoError(t, err)

	c, err := registry.Ensure(1, "new name")
	require.NoError(t, err)
	assert.Equal(t, "new name", c.Name)
}

func TestRegistryPreloadWarmsCache(t *testing.T) {
	store := NewMemoryCommunityStore()
	require.NoError(t, store.Save(&models.Community{CommunityID: 1, Name: "seeded", Integrity: 70}))

	registry := NewCommunityRegistry(store)
	require.NoError(t, registry.Preload())

	c, err := registry.Get(1)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, 70, c.Integrity)
}

func TestSetPreferencesValidation(t *testing.T) {
	registry := newTestRegistry()
	_, err := registry.Ensure(1, "group")
	require.NoError(t, err)

	err = registry.SetPreferences(1, Preferences{BlockedOrigins: []int64{1}})
	assert.Error(t, err, "a community cannot block itself")

	err = registry.SetPreferences(1, Preferences{BlockedOrigins: []int64{0}})
	assert.Error(t, err, "zero is not a valid origin id")

	err = registry.SetPreferences(1, Preferences{
		AutoBanEnabled: true,
		AlertChannelID: 500,
		BlockedOrigins: []int64{2, 3},
	})
	require.NoError(t, err)

	c, err := registry.Get(1)
	require.NoError(t, err)
	assert.True(t, c.AutoBanEnabled)
	assert.Equal(t, int64(500), c.AlertChannelID)
	assert.True(t, c.HasBlockedOrigin(2))
}

func TestSetBlacklistedDoesNotTouchScore(t *testing.T) {
	registry := newTestRegistry()
	c, err := registry.Ensure(1, "group")
	require.NoError(t, err)
	c.Integrity = 60
	require.NoError(t, registry.Save(c))

	require.NoError(t, registry.SetBlacklisted(1, true))

	c, err = registry.Get(1)
	require.NoError(t, err)
	assert.True(t, c.Blacklisted)
	assert.Equal(t, 60, c.Integrity)

	require.NoError(t, registry.SetBlacklisted(1, false))
	c, err = registry.Get(1)
	require.NoError(t, err)
	assert.False(t, c.Blacklisted)
}
