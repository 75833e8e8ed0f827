package service

import (
	"context"
	"time"

	"banlink/internal/logger"
)

// ReasonSource is the inbound seam for eventually-available ban reasons.
// Lookup reports found=false while the reason has not surfaced yet.
type ReasonSource interface {
	LookupReason(ctx context.Context, event BanEvent) (reason string, found bool, err error)
}

// ReasonResolver polls a ReasonSource until the reason surfaces or the total
// budget runs out. A timeout is a normal outcome: unexplained bans are not
// broadcast.
type ReasonResolver struct {
	source       ReasonSource
	timeout      time.Duration
	pollInterval time.Duration
}

func NewReasonResolver(source ReasonSource, timeout, pollInterval time.Duration) *ReasonResolver {
	return &ReasonResolver{
		source:       source,
		timeout:      timeout,
		pollInterval: pollInterval,
	}
}

// Resolve returns the reason and true, or "" and false when no reason was
// obtained within the budget (or the context was cancelled).
func (r *ReasonResolver) Resolve(ctx context.Context, event BanEvent) (string, bool) {
	deadline := time.Now().Add(r.timeout)

	for {
		reason, found, err := r.source.LookupReason(ctx, event)
		if err != nil {
			logger.Warningf("Reason lookup for user %d in %d: %v", event.SubjectUserID, event.OriginID, err)
		}
		if found {
			return reason, true
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return "", false
		}
		wait := r.pollInterval
		if wait > remaining {
			wait = remaining
		}
		select {
		case <-ctx.Done():
			return "", false
		case <-time.After(wait):
		}
	}
}
