package storage

import (
	"time"

	"banlink/internal/models"

	"gorm.io/gorm"
)

// CommunityRepository handles database operations for Community
type CommunityRepository struct {
	db *gorm.DB
}

// NewCommunityRepository creates a new CommunityRepository
func NewCommunityRepository(db *gorm.DB) *CommunityRepository {
	return &CommunityRepository{db: db}
}

// MigrateTable ensures the Community table exists
func (r *CommunityRepository) MigrateTable() error {
	return r.db.AutoMigrate(&models.Community{})
}

// Get retrieves a community by its platform id; nil when absent.
func (r *CommunityRepository) Get(communityID int64) (*models.Community, error) {
	var community models.Community
	result := r.db.Where("community_id = ?", communityID).First(&community)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, result.Error
	}
	return &community, nil
}

// All retrieves every registered community.
func (r *CommunityRepository) All() ([]*models.Community, error) {
	var communities []*models.Community
	result := r.db.Find(&communities)
	if result.Error != nil {
		return nil, result.Error
	}
	return communities, nil
}

// Save creates a new community row or updates an existing one.
func (r *CommunityRepository) Save(community *models.Community) error {
	var existing models.Community
	result := r.db.Where("community_id = ?", community.CommunityID).First(&existing)

	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			community.CreatedAt = time.Now()
			community.UpdatedAt = time.Now()
			return r.db.Create(community).Error
		}
		return result.Error
	}

	community.ID = existing.ID
	community.CreatedAt = existing.CreatedAt
	community.UpdatedAt = time.Now()

	return r.db.Save(community).Error
}
