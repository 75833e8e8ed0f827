package models

import "time"

// Flag statuses. Flags are reviewed only by the operator; unlike ban review
// instances they carry no deadline and never touch integrity.
const (
	FlagStatusPendingReview = "PendingReview"
	FlagStatusResolved      = "Resolved"
	FlagStatusRejected      = "Rejected"
)

// FlagRecord is a manual report raised with /flag in one community.
type FlagRecord struct {
	ID            uint   `gorm:"primaryKey;autoIncrement"`
	SubjectUserID int64  `gorm:"index;not null"`
	CommunityID   int64  `gorm:"index;not null"`
	FlaggedBy     int64  `gorm:"not null"`
	Reason        string `gorm:"type:text"`
	ProofURL      string
	Status        string `gorm:"default:'PendingReview'"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
