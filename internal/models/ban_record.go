package models

import "time"

// Ban record statuses. Transitions are monotone: once a record leaves
// Pending it never changes again. The record-level status summarizes the
// first terminal per-destination outcome; per-destination state lives in
// ReviewInstance.
const (
	BanStatusPending   = "Pending"
	BanStatusAccepted  = "Accepted"
	BanStatusDismissed = "Dismissed"
	BanStatusRejected  = "Rejected"
)

// BanRecord is one propagation event: a ban observed in an origin community
// and fanned out to the other connected communities. Records are append-only
// so /search can show the full audit trail.
type BanRecord struct {
	ID            uint   `gorm:"primaryKey;autoIncrement"`
	SubjectUserID int64  `gorm:"index;not null"`
	OriginID      int64  `gorm:"index;not null"`
	IssuerID      int64  `gorm:"not null"`
	Reason        string `gorm:"type:text"`
	Status        string `gorm:"default:'Pending'"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
