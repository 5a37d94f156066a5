package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"olymphub/internal/common"
	"olymphub/internal/domain/model"
	"olymphub/internal/domain/repository"
	"olymphub/internal/platform/config"
	"olymphub/internal/platform/storage"
)

var allowedAvatarExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
}

type ProfileService struct {
	userRepo          repository.UserRepository
	enrollRepo        repository.EnrollmentRepository
	olympiadRepo      repository.OlympiadRepository
	scoreboardService *ScoreboardService
	store             storage.Storage
	now               func() time.Time
}

func NewProfileService(
	userRepo repository.UserRepository,
	enrollRepo repository.EnrollmentRepository,
	olympiadRepo repository.OlympiadRepository,
	scoreboardService *ScoreboardService,
	store storage.Storage,
) *ProfileService {
	return &ProfileService{
		userRepo:          userRepo,
		enrollRepo:        enrollRepo,
		olympiadRepo:      olympiadRepo,
		scoreboardService: scoreboardService,
		store:             store,
		now:               time.Now,
	}
}

type ProfileResponse struct {
	User    *model.User        `json:"user"`
	Profile *model.UserProfile `json:"profile"`
}

func (s *ProfileService) Get(ctx context.Context, userID string) (*ProfileResponse, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile, err := s.userRepo.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.HashedPassword = ""
	return &ProfileResponse{User: user, Profile: profile}, nil
}

type UpdateProfileRequest struct {
	Bio          *string `json:"bio,omitempty"`
	Organization *string `json:"organization,omitempty"`
}

func (s *ProfileService) Update(ctx context.Context, userID string, req UpdateProfileRequest) (*model.UserProfile, error) {
	profile, err := s.userRepo.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if req.Bio != nil {
		profile.Bio = *req.Bio
	}
	if req.Organization != nil {
		profile.Organization = *req.Organization
	}
	if err := s.userRepo.UpdateProfile(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// UploadAvatar stores the image and points the profile at it. Same storage
// discipline as submissions: validated first, stored under a generated key.
func (s *ProfileService) UploadAvatar(ctx context.Context, userID string, up FileUpload) (*model.UserProfile, error) {
	if up.Size == 0 {
		return nil, fmt.Errorf("uploaded file is empty: %w", common.ErrValidation)
	}
	if limit := config.AppConfig.MaxAvatarBytes; up.Size > limit {
		return nil, fmt.Errorf("avatar exceeds the %d MiB limit (%d bytes): %w", limit>>20, up.Size, common.ErrValidation)
	}
	ext := strings.ToLower(filepath.Ext(up.Filename))
	if !allowedAvatarExtensions[ext] {
		return nil, fmt.Errorf("avatar type %q is not allowed: %w", ext, common.ErrValidation)
	}

	profile, err := s.userRepo.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("avatars/%s_%d%s", userID, s.now().UnixNano(), ext)
	if _, err := s.store.Save(ctx, key, up.Data); err != nil {
		return nil, fmt.Errorf("failed to store avatar: %w", common.ErrStorage)
	}

	old := profile.AvatarPath
	profile.AvatarPath = &key
	if err := s.userRepo.UpdateProfile(ctx, profile); err != nil {
		s.store.Delete(ctx, key)
		return nil, err
	}
	if old != nil {
		s.store.Delete(ctx, *old)
	}
	return profile, nil
}

// SetRole changes a user's role; admin only.
func (s *ProfileService) SetRole(ctx context.Context, adminID, userID, role string) error {
	adminProfile, err := s.userRepo.GetProfile(ctx, adminID)
	if err != nil {
		return fmt.Errorf("failed to load admin profile: %w", err)
	}
	if adminProfile.Role != model.RoleAdmin {
		return fmt.Errorf("only admins can change roles: %w", common.ErrForbidden)
	}
	switch role {
	case model.RoleStudent, model.RoleTeacher, model.RoleAdmin:
	default:
		return fmt.Errorf("unknown role %q: %w", role, common.ErrValidation)
	}
	return s.userRepo.UpdateRole(ctx, userID, role)
}

// ResultRow is one olympiad the user participated in, with total and place.
type ResultRow struct {
	OlympiadID    string `json:"olympiad_id"`
	OlympiadTitle string `json:"olympiad_title"`
	Total         int    `json:"total"`
	Place         int    `json:"place"`
}

// Results lists the user's standing in every olympiad they enrolled in.
func (s *ProfileService) Results(ctx context.Context, userID string) ([]ResultRow, error) {
	enrollments, err := s.enrollRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	results := make([]ResultRow, 0, len(enrollments))
	for _, e := range enrollments {
		olympiad, err := s.olympiadRepo.FindByID(ctx, e.OlympiadID)
		if err != nil {
			return nil, fmt.Errorf("failed to load olympiad %s: %w", e.OlympiadID, err)
		}
		rows, err := s.scoreboardService.Scoreboard(ctx, e.OlympiadID)
		if err != nil {
			return nil, err
		}
		result := ResultRow{OlympiadID: olympiad.ID, OlympiadTitle: olympiad.Title}
		for _, row := range rows {
			if row.UserID == userID {
				result.Total = row.Total
				result.Place = row.Rank
				break
			}
		}
		results = append(results, result)
	}
	return results, nil
}
