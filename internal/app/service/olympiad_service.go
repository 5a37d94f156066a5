package service

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strconv"
	"time"

	"olymphub/internal/common"
	"olymphub/internal/domain/model"
	"olymphub/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

type OlympiadService struct {
	olympiadRepo repository.OlympiadRepository
	problemRepo  repository.ProblemRepository
	enrollRepo   repository.EnrollmentRepository
	userRepo     repository.UserRepository
	db           *sql.DB
	now          func() time.Time // Injectable clock for tests
}

func NewOlympiadService(
	olympiadRepo repository.OlympiadRepository,
	problemRepo repository.ProblemRepository,
	enrollRepo repository.EnrollmentRepository,
	userRepo repository.UserRepository,
	db *sql.DB,
) *OlympiadService {
	return &OlympiadService{
		olympiadRepo: olympiadRepo,
		problemRepo:  problemRepo,
		enrollRepo:   enrollRepo,
		userRepo:     userRepo,
		db:           db,
		now:          time.Now,
	}
}

type CreateOlympiadRequest struct {
	Title       string    `json:"title"`
	Subject     string    `json:"subject"`
	Description string    `json:"description"`
	Rules       string    `json:"rules"`
	Difficulty  string    `json:"difficulty"`
	StartAt     time.Time `json:"start_at"`
	EndAt       time.Time `json:"end_at"`
}

type UpdateOlympiadRequest struct {
	Title       *string    `json:"title,omitempty"`
	Subject     *string    `json:"subject,omitempty"`
	Description *string    `json:"description,omitempty"`
	Rules       *string    `json:"rules,omitempty"`
	Difficulty  *string    `json:"difficulty,omitempty"`
	StartAt     *time.Time `json:"start_at,omitempty"`
	EndAt       *time.Time `json:"end_at,omitempty"`
}

func validDifficulty(d string) bool {
	switch model.OlympiadDifficulty(d) {
	case model.DifficultyEasy, model.DifficultyMedium, model.DifficultyHard:
		return true
	}
	return false
}

// resolveAndRefresh recomputes the olympiad status from the clock and writes it
// back if it drifted. Always called before the status is displayed or gates an
// action, so stale cached values never decide anything. The write is
// last-write-wins; concurrent refreshers all converge on the same value.
func (s *OlympiadService) resolveAndRefresh(ctx context.Context, o *model.Olympiad) {
	resolved := model.ResolveStatus(s.now(), o.StartAt, o.EndAt)
	if resolved == o.Status {
		return
	}
	if err := s.olympiadRepo.UpdateStatus(ctx, o.ID, resolved); err != nil {
		// Gate decisions use the computed value either way.
		log.Printf("Failed to refresh status of olympiad %s: %v", o.ID, err)
	}
	o.Status = resolved
}

func (s *OlympiadService) Create(ctx context.Context, creatorID string, req CreateOlympiadRequest) (*model.Olympiad, error) {
	profile, err := s.userRepo.GetProfile(ctx, creatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load creator profile: %w", err)
	}
	if !model.CanCreateOlympiad(profile.Role) {
		return nil, fmt.Errorf("only teachers and admins can create olympiads: %w", common.ErrForbidden)
	}
	if req.Title == "" || req.Subject == "" {
		return nil, fmt.Errorf("title and subject are required: %w", common.ErrValidation)
	}
	if !req.StartAt.Before(req.EndAt) {
		return nil, fmt.Errorf("start_at must be before end_at: %w", common.ErrValidation)
	}
	if req.Difficulty != "" && !validDifficulty(req.Difficulty) {
		return nil, fmt.Errorf("unknown difficulty %q: %w", req.Difficulty, common.ErrValidation)
	}
	difficulty := model.OlympiadDifficulty(req.Difficulty)
	if difficulty == "" {
		difficulty = model.DifficultyMedium
	}

	o := &model.Olympiad{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Subject:     req.Subject,
		Description: req.Description,
		Rules:       req.Rules,
		Difficulty:  difficulty,
		StartAt:     req.StartAt,
		EndAt:       req.EndAt,
		Status:      model.ResolveStatus(s.now(), req.StartAt, req.EndAt),
		CreatedByID: creatorID,
	}
	o.Slug = slug.Make(o.Title)

	err = s.olympiadRepo.Create(ctx, nil, o)
	for attempt := 2; err != nil && common.PgUniqueViolation(err) && attempt <= 5; attempt++ {
		// Slug collision with another olympiad of the same title.
		o.Slug = slug.Make(o.Title) + "-" + strconv.Itoa(attempt)
		err = s.olympiadRepo.Create(ctx, nil, o)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create olympiad: %w", err)
	}
	return o, nil
}

// canManage: only the creator or an admin touches an olympiad's definition.
func (s *OlympiadService) canManage(ctx context.Context, userID string, o *model.Olympiad) error {
	if o.CreatedByID == userID {
		return nil
	}
	profile, err := s.userRepo.GetProfile(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}
	if profile.Role != model.RoleAdmin {
		return fmt.Errorf("only the olympiad creator or an admin may do this: %w", common.ErrForbidden)
	}
	return nil
}

func (s *OlympiadService) Update(ctx context.Context, userID, olympiadID string, req UpdateOlympiadRequest) (*model.Olympiad, error) {
	o, err := s.olympiadRepo.FindByID(ctx, olympiadID)
	if err != nil {
		return nil, err
	}
	if err := s.canManage(ctx, userID, o); err != nil {
		return nil, err
	}

	if req.Title != nil {
		o.Title = *req.Title
	}
	if req.Subject != nil {
		o.Subject = *req.Subject
	}
	if req.Description != nil {
		o.Description = *req.Description
	}
	if req.Rules != nil {
		o.Rules = *req.Rules
	}
	if req.Difficulty != nil {
		if !validDifficulty(*req.Difficulty) {
			return nil, fmt.Errorf("unknown difficulty %q: %w", *req.Difficulty, common.ErrValidation)
		}
		o.Difficulty = model.OlympiadDifficulty(*req.Difficulty)
	}
	if req.StartAt != nil {
		o.StartAt = *req.StartAt
	}
	if req.EndAt != nil {
		o.EndAt = *req.EndAt
	}
	if !o.StartAt.Before(o.EndAt) {
		return nil, fmt.Errorf("start_at must be before end_at: %w", common.ErrValidation)
	}
	o.Status = model.ResolveStatus(s.now(), o.StartAt, o.EndAt)

	if err := s.olympiadRepo.Update(ctx, nil, o); err != nil {
		return nil, fmt.Errorf("failed to update olympiad: %w", err)
	}
	return o, nil
}

func (s *OlympiadService) Delete(ctx context.Context, userID, olympiadID string) error {
	o, err := s.olympiadRepo.FindByID(ctx, olympiadID)
	if err != nil {
		return err
	}
	if err := s.canManage(ctx, userID, o); err != nil {
		return err
	}
	return s.olympiadRepo.Delete(ctx, olympiadID)
}

// GetResolvedByID loads an olympiad with its status freshly resolved.
// Other services gate enroll/submit on the result.
func (s *OlympiadService) GetResolvedByID(ctx context.Context, id string) (*model.Olympiad, error) {
	o, err := s.olympiadRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.resolveAndRefresh(ctx, o)
	return o, nil
}

type OlympiadDetail struct {
	Olympiad   *model.Olympiad `json:"olympiad"`
	IsEnrolled bool            `json:"is_enrolled"`
}

func (s *OlympiadService) GetDetailBySlug(ctx context.Context, olympiadSlug, viewerID string) (*OlympiadDetail, error) {
	o, err := s.olympiadRepo.FindBySlug(ctx, olympiadSlug)
	if err != nil {
		return nil, err
	}
	s.resolveAndRefresh(ctx, o)

	problems, err := s.problemRepo.ListByOlympiad(ctx, o.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list problems: %w", err)
	}
	o.Problems = problems

	detail := &OlympiadDetail{Olympiad: o}
	if viewerID != "" {
		if _, err := s.enrollRepo.FindByUserAndOlympiad(ctx, viewerID, o.ID); err == nil {
			detail.IsEnrolled = true
		}
	}
	return detail, nil
}

func (s *OlympiadService) List(ctx context.Context, page, pageSize int, status model.OlympiadStatus, searchTerm string) ([]model.Olympiad, int, error) {
	olympiads, total, err := s.olympiadRepo.List(ctx, pageSize, (page-1)*pageSize, status, searchTerm)
	if err != nil {
		return nil, 0, err
	}
	for i := range olympiads {
		s.resolveAndRefresh(ctx, &olympiads[i])
	}
	return olympiads, total, nil
}

type StatusRefreshResult struct {
	Success      bool      `json:"success"`
	UpdatedCount int       `json:"updated_count"`
	Timestamp    time.Time `json:"timestamp"`
}

// RefreshAllStatuses recomputes every olympiad's status. Exposed as the bulk
// JSON endpoint; safe to run concurrently since each write is idempotent.
func (s *OlympiadService) RefreshAllStatuses(ctx context.Context) (*StatusRefreshResult, error) {
	olympiads, err := s.olympiadRepo.ListStatusFields(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list olympiads for status refresh: %w", err)
	}

	now := s.now()
	updated := 0
	for i := range olympiads {
		o := &olympiads[i]
		resolved := model.ResolveStatus(now, o.StartAt, o.EndAt)
		if resolved == o.Status {
			continue
		}
		if err := s.olympiadRepo.UpdateStatus(ctx, o.ID, resolved); err != nil {
			return nil, fmt.Errorf("failed to refresh status of olympiad %s: %w", o.ID, err)
		}
		updated++
	}
	if updated > 0 {
		log.Printf("Status refresh updated %d of %d olympiads.", updated, len(olympiads))
	}
	return &StatusRefreshResult{Success: true, UpdatedCount: updated, Timestamp: now}, nil
}
