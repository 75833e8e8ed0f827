package storage

import (
	"time"

	"banlink/internal/models"

	"gorm.io/gorm"
)

// FlagRepository handles database operations for FlagRecord
type FlagRepository struct {
	db *gorm.DB
}

// NewFlagRepository creates a new FlagRepository
func NewFlagRepository(db *gorm.DB) *FlagRepository {
	return &FlagRepository{db: db}
}

// MigrateTable ensures the FlagRecord table exists
func (r *FlagRepository) MigrateTable() error {
	return r.db.AutoMigrate(&models.FlagRecord{})
}

// Create inserts a new FlagRecord
func (r *FlagRepository) Create(record *models.FlagRecord) error {
	return r.db.Create(record).Error
}

// Get retrieves a flag by id; nil when absent.
func (r *FlagRepository) Get(id uint) (*models.FlagRecord, error) {
	var record models.FlagRecord
	result := r.db.First(&record, id)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, result.Error
	}
	return &record, nil
}

// Pending returns flags awaiting review, newest first.
func (r *FlagRepository) Pending() ([]*models.FlagRecord, error) {
	var records []*models.FlagRecord
	result := r.db.Where("status = ?", models.FlagStatusPendingReview).
		Order("created_at DESC").
		Find(&records)
	return records, result.Error
}

// Transition moves a flag from PendingReview to a terminal status, guarded
// against double review.
func (r *FlagRepository) Transition(id uint, toStatus string) (bool, error) {
	result := r.db.Model(&models.FlagRecord{}).
		Where("id = ? AND status = ?", id, models.FlagStatusPendingReview).
		Updates(map[string]interface{}{"status": toStatus, "updated_at": time.Now()})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
