package service

import "banlink/internal/models"

// EligibleDestinations computes which communities may receive an alert for
// a ban from origin. A blacklisted origin yields nothing at all; the origin
// itself, blacklisted destinations and destinations that blocked the origin
// are removed.
func EligibleDestinations(origin *models.Community, candidates []*models.Community) []*models.Community {
	if origin == nil || origin.Blacklisted {
		return nil
	}

	var eligible []*models.Community
	for _, c := range candidates {
		if c.CommunityID == origin.CommunityID {
			continue
		}
		if c.Blacklisted {
			continue
		}
		if c.HasBlockedOrigin(origin.CommunityID) {
			continue
		}
		eligible = append(eligible, c)
	}
	return eligible
}
