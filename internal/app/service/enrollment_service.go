package service

import (
	"context"
	"errors"
	"fmt"

	"olymphub/internal/common"
	"olymphub/internal/domain/model"
	"olymphub/internal/domain/repository"

	"github.com/google/uuid"
)

type EnrollmentService struct {
	enrollRepo      repository.EnrollmentRepository
	userRepo        repository.UserRepository
	olympiadService *OlympiadService
}

func NewEnrollmentService(
	enrollRepo repository.EnrollmentRepository,
	userRepo repository.UserRepository,
	olympiadService *OlympiadService,
) *EnrollmentService {
	return &EnrollmentService{
		enrollRepo:      enrollRepo,
		userRepo:        userRepo,
		olympiadService: olympiadService,
	}
}

// Enroll registers a student for an olympiad. Get-or-create: enrolling twice
// returns the existing record rather than an error. Only the closed state
// rejects; upcoming olympiads accept pre-registration. The bool reports
// whether this call actually created the row, so callers can tell a fresh
// enrollment from a no-op.
func (s *EnrollmentService) Enroll(ctx context.Context, userID, olympiadID string) (*model.Enrollment, bool, error) {
	profile, err := s.userRepo.GetProfile(ctx, userID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load profile: %w", err)
	}
	if profile.Role != model.RoleStudent {
		return nil, false, fmt.Errorf("only students can enroll: %w", common.ErrForbidden)
	}

	olympiad, err := s.olympiadService.GetResolvedByID(ctx, olympiadID)
	if err != nil {
		return nil, false, err
	}
	if olympiad.Status == model.StatusClosed {
		return nil, false, fmt.Errorf("olympiad %q is closed: %w", olympiad.Title, common.ErrInvalidState)
	}

	if existing, err := s.enrollRepo.FindByUserAndOlympiad(ctx, userID, olympiadID); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, false, err
	}

	enrollment := &model.Enrollment{
		ID:         uuid.NewString(),
		UserID:     userID,
		OlympiadID: olympiadID,
	}
	if err := s.enrollRepo.Create(ctx, nil, enrollment); err != nil {
		if errors.Is(err, common.ErrConflict) {
			// Lost a race with a concurrent request for the same pair; the
			// unique constraint guarantees exactly one row exists. Return it.
			existing, ferr := s.enrollRepo.FindByUserAndOlympiad(ctx, userID, olympiadID)
			return existing, false, ferr
		}
		return nil, false, fmt.Errorf("failed to enroll: %w", err)
	}
	row, err := s.enrollRepo.FindByUserAndOlympiad(ctx, userID, olympiadID)
	if err != nil {
		return nil, false, err
	}
	return row, true, nil
}
