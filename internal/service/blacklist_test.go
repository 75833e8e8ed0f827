package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"banlink/internal/models"
)

func community(id int64) *models.Community {
	return &models.Community{CommunityID: id, Integrity: models.IntegrityMax}
}

func TestEligibleDestinationsExcludesOrigin(t *testing.T) {
	origin := community(1)
	candidates := []*models.Community{origin, community(2), community(3)}

	eligible := EligibleDestinations(origin, candidates)

	assert.Len(t, eligible, 2)
	for _, c := range eligible {
		assert.NotEqual(t, origin.CommunityID, c.CommunityID)
	}
}

func TestEligibleDestinationsBlacklistedOriginYieldsNothing(t *testing.T) {
	origin := community(1)
	origin.Blacklisted = true

	eligible := EligibleDestinations(origin, []*models.Community{community(2), community(3)})
	assert.Empty(t, eligible)
}

func TestEligibleDestinationsSkipsBlacklistedDestinations(t *testing.T) {
	origin := community(1)
	struck := community(2)
	struck.Blacklisted = true

	eligible := EligibleDestinations(origin, []*models.Community{struck, community(3)})

	assert.Len(t, eligible, 1)
	assert.Equal(t, int64(3), eligible[0].CommunityID)
}

func TestEligibleDestinationsHonorsBlockedOrigins(t *testing.T) {
	origin := community(1)
	blocking := community(2)
	blocking.SetBlockedOriginIDs([]int64{1})

	eligible := EligibleDestinations(origin, []*models.Community{blocking, community(3)})

	assert.Len(t, eligible, 1)
	assert.Equal(t, int64(3), eligible[0].CommunityID)
}

func TestEligibleDestinationsNilOrigin(t *testing.T) {
	assert.Nil(t, EligibleDestinations(nil, []*models.Community{community(2)}))
}
