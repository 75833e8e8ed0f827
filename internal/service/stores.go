package service

import (
	"time"

	"banlink/internal/models"
)

// Store interfaces cover exactly what the engine needs. The gorm
// repositories in internal/storage satisfy them when the database is
// enabled; the in-memory stores in memory.go back a database-less run and
// the tests.

type CommunityStore interface {
	Get(communityID int64) (*models.Community, error)
	All() ([]*models.Community, error)
	Save(community *models.Community) error
}

type BanStore interface {
	Create(record *models.BanRecord) error
	Get(id uint) (*models.BanRecord, error)
	MarkStatus(id uint, status string) error
	HistoryForUser(userID int64) ([]*models.BanRecord, error)
	AcceptedForUser(userID int64) ([]*models.BanRecord, error)
	RecentForUser(userID int64, since time.Time) ([]*models.BanRecord, error)
}

type ReviewStore interface {
	Create(instance *models.ReviewInstance) error
	Get(banID uint, destinationID int64) (*models.ReviewInstance, error)
	Transition(id uint, toState string, resolvedBy int64) (bool, error)
	DuePending(now time.Time) ([]*models.ReviewInstance, error)
}

type FlagStore interface {
	Create(record *models.FlagRecord) error
	Get(id uint) (*models.FlagRecord, error)
	Pending() ([]*models.FlagRecord, error)
	Transition(id uint, toStatus string) (bool, error)
}
