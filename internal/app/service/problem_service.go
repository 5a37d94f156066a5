package service

import (
	"context"
	"fmt"

	"olymphub/internal/common"
	"olymphub/internal/domain/model"
	"olymphub/internal/domain/repository"

	"github.com/google/uuid"
)

type ProblemService struct {
	problemRepo     repository.ProblemRepository
	olympiadRepo    repository.OlympiadRepository
	userRepo        repository.UserRepository
	olympiadService *OlympiadService
}

func NewProblemService(
	problemRepo repository.ProblemRepository,
	olympiadRepo repository.OlympiadRepository,
	userRepo repository.UserRepository,
	olympiadService *OlympiadService,
) *ProblemService {
	return &ProblemService{
		problemRepo:     problemRepo,
		olympiadRepo:    olympiadRepo,
		userRepo:        userRepo,
		olympiadService: olympiadService,
	}
}

type CreateProblemRequest struct {
	Title     string `json:"title"`
	Statement string `json:"statement"`
	MaxScore  int    `json:"max_score"`
	SortOrder int    `json:"sort_order"`
}

type UpdateProblemRequest struct {
	Title     *string `json:"title,omitempty"`
	Statement *string `json:"statement,omitempty"`
	MaxScore  *int    `json:"max_score,omitempty"`
	SortOrder *int    `json:"sort_order,omitempty"`
}

func (s *ProblemService) Create(ctx context.Context, userID, olympiadID string, req CreateProblemRequest) (*model.Problem, error) {
	olympiad, err := s.olympiadRepo.FindByID(ctx, olympiadID)
	if err != nil {
		return nil, err
	}
	if err := s.olympiadService.canManage(ctx, userID, olympiad); err != nil {
		return nil, err
	}
	if req.Title == "" {
		return nil, fmt.Errorf("title is required: %w", common.ErrValidation)
	}
	if req.MaxScore == 0 {
		req.MaxScore = 100
	}
	if req.MaxScore < 1 {
		return nil, fmt.Errorf("max_score must be positive: %w", common.ErrValidation)
	}

	problem := &model.Problem{
		ID:         uuid.NewString(),
		OlympiadID: olympiadID,
		Title:      req.Title,
		Statement:  req.Statement,
		MaxScore:   req.MaxScore,
		SortOrder:  req.SortOrder,
	}
	if err := s.problemRepo.Create(ctx, nil, problem); err != nil {
		return nil, fmt.Errorf("failed to create problem: %w", err)
	}
	return problem, nil
}

func (s *ProblemService) Update(ctx context.Context, userID, problemID string, req UpdateProblemRequest) (*model.Problem, error) {
	problem, err := s.problemRepo.FindByID(ctx, problemID)
	if err != nil {
		return nil, err
	}
	olympiad, err := s.olympiadRepo.FindByID(ctx, problem.OlympiadID)
	if err != nil {
		return nil, err
	}
	if err := s.olympiadService.canManage(ctx, userID, olympiad); err != nil {
		return nil, err
	}

	if req.Title != nil {
		problem.Title = *req.Title
	}
	if req.Statement != nil {
		problem.Statement = *req.Statement
	}
	if req.MaxScore != nil {
		if *req.MaxScore < 1 {
			return nil, fmt.Errorf("max_score must be positive: %w", common.ErrValidation)
		}
		problem.MaxScore = *req.MaxScore
	}
	if req.SortOrder != nil {
		problem.SortOrder = *req.SortOrder
	}
	if err := s.problemRepo.Update(ctx, nil, problem); err != nil {
		return nil, fmt.Errorf("failed to update problem: %w", err)
	}
	return problem, nil
}

func (s *ProblemService) Delete(ctx context.Context, userID, problemID string) error {
	problem, err := s.problemRepo.FindByID(ctx, problemID)
	if err != nil {
		return err
	}
	olympiad, err := s.olympiadRepo.FindByID(ctx, problem.OlympiadID)
	if err != nil {
		return err
	}
	if err := s.olympiadService.canManage(ctx, userID, olympiad); err != nil {
		return err
	}
	return s.problemRepo.Delete(ctx, problemID)
}

func (s *ProblemService) Get(ctx context.Context, problemID string) (*model.Problem, error) {
	return s.problemRepo.FindByID(ctx, problemID)
}
