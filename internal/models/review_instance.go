package models

import "time"

// Review instance states. Pending moves to exactly one of the terminal
// states; Expired is reachable only by the deadline sweep.
const (
	ReviewStatePending   = "Pending"
	ReviewStateAccepted  = "Accepted"
	ReviewStateDismissed = "Dismissed"
	ReviewStateExpired   = "Expired"
)

// ReviewInstance is the per-(ban, destination) decision state. Each eligible
// destination gets its own instance so communities decide independently of
// each other; the deadline bounds how long the rendered decision surface
// stays interactive.
type ReviewInstance struct {
	ID            uint  `gorm:"primaryKey;autoIncrement"`
	BanID         uint  `gorm:"index:idx_ban_dest,unique;not null"`
	DestinationID int64 `gorm:"index:idx_ban_dest,unique;not null"`
	State         string `gorm:"default:'Pending'"`
	Deadline      time.Time `gorm:"index"`
	// ResolvedBy records the acting moderator for human transitions; zero
	// for auto-enforcement and expiry.
	ResolvedBy int64 `gorm:"default:0"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Terminal reports whether the instance can accept no further transition.
func (r *ReviewInstance) Terminal() bool {
	return r.State != ReviewStatePending
}
