package handler

import (
	"context"
	"sync"
	"time"

	"banlink/internal/service"
)

type reasonKey struct {
	originID      int64
	subjectUserID int64
}

// PendingReasons is the Telegram reason source. Telegram ban updates carry
// no reason, so moderators supply one with /reason while the resolver is
// still polling; entries are consumed on first successful lookup and aged
// out otherwise.
type PendingReasons struct {
	mu      sync.Mutex
	reasons map[reasonKey]pendingReason
	ttl     time.Duration
}

type pendingReason struct {
	text    string
	addedAt time.Time
}

func NewPendingReasons(ttl time.Duration) *PendingReasons {
	return &PendingReasons{
		reasons: make(map[reasonKey]pendingReason),
		ttl:     ttl,
	}
}

// Supply records a moderator-provided reason for a recent ban.
func (p *PendingReasons) Supply(originID, subjectUserID int64, reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reasons[reasonKey{originID, subjectUserID}] = pendingReason{
		text:    reason,
		addedAt: time.Now(),
	}
}

// LookupReason implements service.ReasonSource.
func (p *PendingReasons) LookupReason(ctx context.Context, event service.BanEvent) (string, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.evictStale()

	key := reasonKey{event.OriginID, event.SubjectUserID}
	if pending, ok := p.reasons[key]; ok {
		delete(p.reasons, key)
		return pending.text, true, nil
	}
	return "", false, nil
}

func (p *PendingReasons) evictStale() {
	cutoff := time.Now().Add(-p.ttl)
	for key, pending := range p.reasons {
		if pending.addedAt.Before(cutoff) {
			delete(p.reasons, key)
		}
	}
}
