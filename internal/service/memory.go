package service

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"banlink/internal/models"
)

// In-memory store implementations. They back a database-less deployment
// (database.enabled=false) and the engine tests. State does not survive a
// restart.

type MemoryCommunityStore struct {
	mu          sync.RWMutex
	communities map[int64]*models.Community
	nextID      uint
}

func NewMemoryCommunityStore() *MemoryCommunityStore {
	return &MemoryCommunityStore{communities: make(map[int64]*models.Community)}
}

func (s *MemoryCommunityStore) Get(communityID int64) (*models.Community, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.communities[communityID], nil
}

func (s *MemoryCommunityStore) All() ([]*models.Community, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Community, 0, len(s.communities))
	for _, c := range s.communities {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CommunityID < out[j].CommunityID })
	return out, nil
}

func (s *MemoryCommunityStore) Save(community *models.Community) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing := s.communities[community.CommunityID]; existing == nil {
		s.nextID++
		community.ID = s.nextID
		community.CreatedAt = time.Now()
	}
	community.UpdatedAt = time.Now()
	s.communities[community.CommunityID] = community
	return nil
}

type MemoryBanStore struct {
	mu      sync.RWMutex
	records []*models.BanRecord
	nextID  uint
}

func NewMemoryBanStore() *MemoryBanStore {
	return &MemoryBanStore{}
}

func (s *MemoryBanStore) Create(record *models.BanRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	record.ID = s.nextID
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	record.UpdatedAt = time.Now()
	s.records = append(s.records, record)
	return nil
}

func (s *MemoryBanStore) Get(id uint) (*models.BanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.records {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, nil
}

func (s *MemoryBanStore) MarkStatus(id uint, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.ID == id && r.Status == models.BanStatusPending {
			r.Status = status
			r.UpdatedAt = time.Now()
		}
	}
	return nil
}

func (s *MemoryBanStore) HistoryForUser(userID int64) ([]*models.BanRecord, error) {
	return s.filter(func(r *models.BanRecord) bool {
		return r.SubjectUserID == userID
	})
}

func (s *MemoryBanStore) AcceptedForUser(userID int64) ([]*models.BanRecord, error) {
	return s.filter(func(r *models.BanRecord) bool {
		return r.SubjectUserID == userID && r.Status == models.BanStatusAccepted
	})
}

func (s *MemoryBanStore) RecentForUser(userID int64, since time.Time) ([]*models.BanRecord, error) {
	return s.filter(func(r *models.BanRecord) bool {
		return r.SubjectUserID == userID && r.CreatedAt.After(since)
	})
}

func (s *MemoryBanStore) filter(keep func(*models.BanRecord) bool) ([]*models.BanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.BanRecord
	for _, r := range s.records {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type MemoryReviewStore struct {
	mu        sync.Mutex
	instances []*models.ReviewInstance
	nextID    uint
}

func NewMemoryReviewStore() *MemoryReviewStore {
	return &MemoryReviewStore{}
}

func (s *MemoryReviewStore) Create(instance *models.ReviewInstance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.instances {
		if existing.BanID == instance.BanID && existing.DestinationID == instance.DestinationID {
			return fmt.Errorf("review instance for ban %d destination %d already exists", instance.BanID, instance.DestinationID)
		}
	}
	s.nextID++
	instance.ID = s.nextID
	instance.CreatedAt = time.Now()
	instance.UpdatedAt = time.Now()
	s.instances = append(s.instances, instance)
	return nil
}

func (s *MemoryReviewStore) Get(banID uint, destinationID int64) (*models.ReviewInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, instance := range s.instances {
		if instance.BanID == banID && instance.DestinationID == destinationID {
			return instance, nil
		}
	}
	return nil, nil
}

func (s *MemoryReviewStore) Transition(id uint, toState string, resolvedBy int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, instance := range s.instances {
		if instance.ID != id {
			continue
		}
		if instance.State != models.ReviewStatePending {
			return false, nil
		}
		instance.State = toState
		instance.ResolvedBy = resolvedBy
		instance.UpdatedAt = time.Now()
		return true, nil
	}
	return false, nil
}

func (s *MemoryReviewStore) DuePending(now time.Time) ([]*models.ReviewInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.ReviewInstance
	for _, instance := range s.instances {
		if instance.State == models.ReviewStatePending && !instance.Deadline.After(now) {
			out = append(out, instance)
		}
	}
	return out, nil
}

type MemoryFlagStore struct {
	mu      sync.Mutex
	records []*models.FlagRecord
	nextID  uint
}

func NewMemoryFlagStore() *MemoryFlagStore {
	return &MemoryFlagStore{}
}

func (s *MemoryFlagStore) Create(record *models.FlagRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	record.ID = s.nextID
	record.CreatedAt = time.Now()
	record.UpdatedAt = time.Now()
	s.records = append(s.records, record)
	return nil
}

func (s *MemoryFlagStore) Get(id uint) (*models.FlagRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, nil
}

func (s *MemoryFlagStore) Pending() ([]*models.FlagRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.FlagRecord
	for _, r := range s.records {
		if r.Status == models.FlagStatusPendingReview {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryFlagStore) Transition(id uint, toStatus string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.ID != id {
			continue
		}
		if r.Status != models.FlagStatusPendingReview {
			return false, nil
		}
		r.Status = toStatus
		r.UpdatedAt = time.Now()
		return true, nil
	}
	return false, nil
}
