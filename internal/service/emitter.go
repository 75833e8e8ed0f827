package service

import (
	"time"

	"banlink/internal/models"
)

// BanEvent is a raw ban observed in an origin community, before reason
// resolution and filtering.
type BanEvent struct {
	SubjectUserID int64
	OriginID      int64
	IssuerID      int64
	ObservedAt    time.Time
}

// AlertPayload carries everything the host platform needs to render one
// alert. The engine never formats messages itself.
type AlertPayload struct {
	BanID           uint
	SubjectUserID   int64
	OriginID        int64
	OriginName      string
	OriginIntegrity int
	Reason          string
}

// Emitter is the outbound seam to the host platform. Implementations render
// alerts, auto-enforcement notices and expiry updates; internal/handler
// provides the Telegram one.
type Emitter interface {
	EmitAlert(destination *models.Community, payload AlertPayload)
	EmitAutoEnforcement(destination *models.Community, payload AlertPayload)
	EmitExpired(banID uint, destinationID int64)
}
