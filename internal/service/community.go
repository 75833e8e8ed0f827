package service

import (
	"fmt"

	"banlink/internal/logger"
	"banlink/internal/models"
)

// CommunityRegistry fronts the community store with the in-memory manager
// cache. All reads go through the cache; writes go to both.
type CommunityRegistry struct {
	manager *models.CommunityManager
	store   CommunityStore
}

func NewCommunityRegistry(store CommunityStore) *CommunityRegistry {
	return &CommunityRegistry{
		manager: models.NewCommunityManager(),
		store:   store,
	}
}

// Get returns the community with the given platform id, or nil if it has
// never interacted with the system.
func (r *CommunityRegistry) Get(communityID int64) (*models.Community, error) {
	if c := r.manager.Get(communityID); c != nil {
		return c, nil
	}
	c, err := r.store.Get(communityID)
	if err != nil {
		return nil, err
	}
	if c != nil {
		r.manager.Add(c)
	}
	return c, nil
}

// Ensure returns the community, registering it with default preferences and
// full integrity on first interaction.
func (r *CommunityRegistry) Ensure(communityID int64, name string) (*models.Community, error) {
	c, err := r.Get(communityID)
	if err != nil {
		return nil, err
	}
	if c != nil {
		if name != "" && c.Name != name {
			c.Name = name
			if err := r.Save(c); err != nil {
				logger.Warningf("Error updating community name for %d: %v", communityID, err)
			}
		}
		return c, nil
	}

	logger.Infof("Registering new community %d (%s)", communityID, name)
	c = &models.Community{
		CommunityID: communityID,
		Name:        name,
		Integrity:   models.IntegrityMax,
	}
	if err := r.Save(c); err != nil {
		return nil, err
	}
	return c, nil
}

// Save writes the community to the cache and the store.
func (r *CommunityRegistry) Save(c *models.Community) error {
	r.manager.Add(c)
	return r.store.Save(c)
}

// All returns every registered community.
func (r *CommunityRegistry) All() ([]*models.Community, error) {
	return r.store.All()
}

// Preload warms the cache from the store.
func (r *CommunityRegistry) Preload() error {
	communities, err := r.store.All()
	if err != nil {
		return err
	}
	for _, c := range communities {
		r.manager.Add(c)
	}
	logger.Infof("Loaded %d communities into cache", len(communities))
	return nil
}

// SetBlacklisted flips the global blacklist flag. Privileged action; the
// scoring path never touches this flag.
func (r *CommunityRegistry) SetBlacklisted(communityID int64, blacklisted bool) error {
	c, err := r.Ensure(communityID, "")
	if err != nil {
		return err
	}
	c.Blacklisted = blacklisted
	return r.Save(c)
}

// Preferences is the validated administrative input for a community.
type Preferences struct {
	AutoBanEnabled bool
	AlertChannelID int64
	PingTargetID   int64
	BlockedOrigins []int64
}

// Validate rejects malformed preferences at the administrative boundary so
// the dispatcher never sees a partially valid record.
func (p Preferences) Validate(communityID int64) error {
	for _, id := range p.BlockedOrigins {
		if id == communityID {
			return fmt.Errorf("community %d cannot block itself", communityID)
		}
		if id == 0 {
			return fmt.Errorf("invalid blocked origin id 0")
		}
	}
	return nil
}

// SetPreferences validates and applies preferences for a community.
func (r *CommunityRegistry) SetPreferences(communityID int64, prefs Preferences) error {
	if err := prefs.Validate(communityID); err != nil {
		return err
	}
	c, err := r.Ensure(communityID, "")
	if err != nil {
		return err
	}
	c.AutoBanEnabled = prefs.AutoBanEnabled
	c.AlertChannelID = prefs.AlertChannelID
	c.PingTargetID = prefs.PingTargetID
	c.SetBlockedOriginIDs(prefs.BlockedOrigins)
	return r.Save(c)
}
