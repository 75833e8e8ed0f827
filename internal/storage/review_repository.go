package storage

import (
	"time"

	"banlink/internal/models"

	"gorm.io/gorm"
)

// ReviewRepository handles database operations for ReviewInstance
type ReviewRepository struct {
	db *gorm.DB
}

// NewReviewRepository creates a new ReviewRepository
func NewReviewRepository(db *gorm.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// MigrateTable ensures the ReviewInstance table exists
func (r *ReviewRepository) MigrateTable() error {
	return r.db.AutoMigrate(&models.ReviewInstance{})
}

// Create inserts a new ReviewInstance
func (r *ReviewRepository) Create(instance *models.ReviewInstance) error {
	return r.db.Create(instance).Error
}

// Get retrieves the instance for a (ban, destination) pair; nil when absent.
func (r *ReviewRepository) Get(banID uint, destinationID int64) (*models.ReviewInstance, error) {
	var instance models.ReviewInstance
	result := r.db.Where("ban_id = ? AND destination_id = ?", banID, destinationID).First(&instance)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, result.Error
	}
	return &instance, nil
}

// Transition moves an instance from Pending to a terminal state. The state
// guard in the WHERE clause is the compare-and-set that arbitrates races
// between human decisions and the expiry sweep: exactly one transition wins.
func (r *ReviewRepository) Transition(id uint, toState string, resolvedBy int64) (bool, error) {
	result := r.db.Model(&models.ReviewInstance{}).
		Where("id = ? AND state = ?", id, models.ReviewStatePending).
		Updates(map[string]interface{}{
			"state":       toState,
			"resolved_by": resolvedBy,
			"updated_at":  time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// DuePending returns pending instances whose deadline has passed.
func (r *ReviewRepository) DuePending(now time.Time) ([]*models.ReviewInstance, error) {
	var instances []*models.ReviewInstance
	result := r.db.Where("state = ? AND deadline <= ?", models.ReviewStatePending, now).
		Find(&instances)
	return instances, result.Error
}
