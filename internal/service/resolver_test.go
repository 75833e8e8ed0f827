package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// countingReasonSource succeeds after a fixed number of polls.
type countingReasonSource struct {
	calls     atomic.Int32
	succeedOn int32
	reason    string
}

func (s *countingReasonSource) LookupReason(ctx context.Context, event BanEvent) (string, bool, error) {
	n := s.calls.Add(1)
	if s.succeedOn > 0 && n >= s.succeedOn {
		return s.reason, true, nil
	}
	return "", false, nil
}

func TestResolverReturnsLateReason(t *testing.T) {
	source := &countingReasonSource{succeedOn: 3, reason: "spam"}
	resolver := NewReasonResolver(source, time.Second, 5*time.Millisecond)

	reason, ok := resolver.Resolve(context.Background(), BanEvent{})
	assert.True(t, ok)
	assert.Equal(t, "spam", reason)
	assert.GreaterOrEqual(t, source.calls.Load(), int32(3))
}

func TestResolverTimesOut(t *testing.T) {
	source := &countingReasonSource{}
	resolver := NewReasonResolver(source, 30*time.Millisecond, 10*time.Millisecond)

	start := time.Now()
	reason, ok := resolver.Resolve(context.Background(), BanEvent{})
	assert.False(t, ok)
	assert.Empty(t, reason)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestResolverHonorsContextCancellation(t *testing.T) {
	source := &countingReasonSource{}
	resolver := NewReasonResolver(source, time.Hour, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, ok := resolver.Resolve(ctx, BanEvent{})
	assert.False(t, ok)
	assert.Less(t, time.Since(start), time.Second)
}
