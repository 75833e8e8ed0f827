package storage

import (
	"time"

	"banlink/internal/models"

	"gorm.io/gorm"
)

// BanRepository handles database operations for BanRecord
type BanRepository struct {
	db *gorm.DB
}

// NewBanRepository creates a new BanRepository
func NewBanRepository(db *gorm.DB) *BanRepository {
	return &BanRepository{db: db}
}

// MigrateTable ensures the BanRecord table exists
func (r *BanRepository) MigrateTable() error {
	return r.db.AutoMigrate(&models.BanRecord{})
}

// Create inserts a new BanRecord
func (r *BanRepository) Create(record *models.BanRecord) error {
	return r.db.Create(record).Error
}

// Get retrieves a record by id; nil when absent.
func (r *BanRepository) Get(id uint) (*models.BanRecord, error) {
	var record models.BanRecord
	result := r.db.First(&record, id)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, result.Error
	}
	return &record, nil
}

// MarkStatus moves a still-pending record to a terminal status. The WHERE
// guard keeps record status monotone under concurrent decisions; losing
// callers are a no-op.
func (r *BanRepository) MarkStatus(id uint, status string) error {
	result := r.db.Model(&models.BanRecord{}).
		Where("id = ? AND status = ?", id, models.BanStatusPending).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now()})
	return result.Error
}

// HistoryForUser returns the full ban history for a subject, newest first.
func (r *BanRepository) HistoryForUser(userID int64) ([]*models.BanRecord, error) {
	var records []*models.BanRecord
	result := r.db.Where("subject_user_id = ?", userID).
		Order("created_at DESC").
		Find(&records)
	return records, result.Error
}

// AcceptedForUser returns accepted records for a subject, newest first.
func (r *BanRepository) AcceptedForUser(userID int64) ([]*models.BanRecord, error) {
	var records []*models.BanRecord
	result := r.db.Where("subject_user_id = ? AND status = ?", userID, models.BanStatusAccepted).
		Order("created_at DESC").
		Find(&records)
	return records, result.Error
}

// RecentForUser returns records for a subject created after the given time.
func (r *BanRepository) RecentForUser(userID int64, since time.Time) ([]*models.BanRecord, error) {
	var records []*models.BanRecord
	result := r.db.Where("subject_user_id = ? AND created_at > ?", userID, since).
		Find(&records)
	return records, result.Error
}
