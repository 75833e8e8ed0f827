package models

import (
	"encoding/json"
	"sync"
	"time"
)

// Community represents one connected group the bot propagates bans across.
// Integrity is a bounded trust score adjusted by how peers respond to the
// community's bans. Blacklisted is set only by a privileged strike, never
// by the scoring path.
type Community struct {
	ID          uint  `gorm:"primaryKey;autoIncrement"`
	CommunityID int64 `gorm:"uniqueIndex;not null"`
	Name        string
	Link        string
	Integrity   int  `gorm:"default:100"`
	Blacklisted bool `gorm:"default:false"`

	AutoBanEnabled bool  `gorm:"default:false"`
	AlertChannelID int64 `gorm:"default:0"`
	PingTargetID   int64 `gorm:"default:0"`
	// BlockedOrigins holds a JSON array of community ids this community
	// refuses alerts from.
	BlockedOrigins string `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IntegrityMax and IntegrityMin bound every community score.
const (
	IntegrityMin = 0
	IntegrityMax = 100
)

// BlockedOriginIDs decodes the blocked origin list. A malformed or empty
// column reads as no blocks.
func (c *Community) BlockedOriginIDs() []int64 {
	if c.BlockedOrigins == "" {
		return nil
	}
	var ids []int64
	if err := json.Unmarshal([]byte(c.BlockedOrigins), &ids); err != nil {
		return nil
	}
	return ids
}

// SetBlockedOriginIDs encodes the blocked origin list.
func (c *Community) SetBlockedOriginIDs(ids []int64) {
	if len(ids) == 0 {
		c.BlockedOrigins = ""
		return
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return
	}
	c.BlockedOrigins = string(data)
}

// HasBlockedOrigin reports whether originID is on this community's block list.
func (c *Community) HasBlockedOrigin(originID int64) bool {
	for _, id := range c.BlockedOriginIDs() {
		if id == originID {
			return true
		}
	}
	return false
}

// CommunityManager is an in-memory cache of community records keyed by
// platform community id.
type CommunityManager struct {
	communities map[int64]*Community
	mu          sync.RWMutex
}

func NewCommunityManager() *CommunityManager {
	return &CommunityManager{
		communities: make(map[int64]*Community),
	}
}

func (m *CommunityManager) Get(communityID int64) *Community {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.communities[communityID]
}

func (m *CommunityManager) Add(community *Community) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.communities[community.CommunityID] = community
}

func (m *CommunityManager) Remove(communityID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.communities, communityID)
}

// All returns a snapshot of every cached community.
func (m *CommunityManager) All() []*Community {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Community, 0, len(m.communities))
	for _, c := range m.communities {
		out = append(out, c)
	}
	return out
}
