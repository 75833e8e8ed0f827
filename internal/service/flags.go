package service

import (
	"errors"
	"fmt"

	"banlink/internal/models"
)

var (
	// ErrFlagNotFound is returned for a review of an unknown flag.
	ErrFlagNotFound = errors.New("flag not found")
	// ErrFlagAlreadyReviewed is returned when a flag was already resolved
	// or rejected.
	ErrFlagAlreadyReviewed = errors.New("flag already reviewed")
)

// FlagService handles manually created flags. Flags have their own small
// workflow, PendingReview to Resolved or Rejected, transitioned only by the
// operator; they never touch any community's integrity and never expire.
type FlagService struct {
	flags FlagStore
}

func NewFlagService(flags FlagStore) *FlagService {
	return &FlagService{flags: flags}
}

// Create records a new flag for review.
func (s *FlagService) Create(subjectUserID, communityID, flaggedBy int64, reason, proofURL string) (*models.FlagRecord, error) {
	if reason == "" {
		return nil, fmt.Errorf("flag reason is required")
	}
	record := &models.FlagRecord{
		SubjectUserID: subjectUserID,
		CommunityID:   communityID,
		FlaggedBy:     flaggedBy,
		Reason:        reason,
		ProofURL:      proofURL,
		Status:        models.FlagStatusPendingReview,
	}
	if err := s.flags.Create(record); err != nil {
		return nil, err
	}
	return record, nil
}

// Pending lists flags awaiting review.
func (s *FlagService) Pending() ([]*models.FlagRecord, error) {
	return s.flags.Pending()
}

// Review moves a flag to Resolved or Rejected. Double reviews are rejected,
// never re-applied.
func (s *FlagService) Review(id uint, outcome string) error {
	if outcome != models.FlagStatusResolved && outcome != models.FlagStatusRejected {
		return fmt.Errorf("invalid flag outcome %q", outcome)
	}
	record, err := s.flags.Get(id)
	if err != nil {
		return err
	}
	if record == nil {
		return ErrFlagNotFound
	}
	won, err := s.flags.Transition(id, outcome)
	if err != nil {
		return err
	}
	if !won {
		return ErrFlagAlreadyReviewed
	}
	return nil
}
