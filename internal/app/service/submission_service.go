package service

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"time"

	"olymphub/internal/common"
	"olymphub/internal/domain/model"
	"olymphub/internal/domain/repository"
	"olymphub/internal/platform/config"
	"olymphub/internal/platform/storage"

	"github.com/google/uuid"
)

// allowedExtensions is the accepted set for solution uploads, lowercase.
var allowedExtensions = map[string]bool{
	".pdf": true, ".doc": true, ".docx": true, ".txt": true,
	".py": true, ".cpp": true, ".c": true, ".java": true,
	".js": true, ".zip": true,
}

type SubmissionService struct {
	submissionRepo    repository.SubmissionRepository
	problemRepo       repository.ProblemRepository
	olympiadRepo      repository.OlympiadRepository
	userRepo          repository.UserRepository
	enrollmentService *EnrollmentService
	olympiadService   *OlympiadService
	scoreboardService *ScoreboardService
	store             storage.Storage
	db                *sql.DB
	now               func() time.Time
}

func NewSubmissionService(
	submissionRepo repository.SubmissionRepository,
	problemRepo repository.ProblemRepository,
	olympiadRepo repository.OlympiadRepository,
	userRepo repository.UserRepository,
	enrollmentService *EnrollmentService,
	olympiadService *OlympiadService,
	scoreboardService *ScoreboardService,
	store storage.Storage,
	db *sql.DB,
) *SubmissionService {
	return &SubmissionService{
		submissionRepo:    submissionRepo,
		problemRepo:       problemRepo,
		olympiadRepo:      olympiadRepo,
		userRepo:          userRepo,
		enrollmentService: enrollmentService,
		olympiadService:   olympiadService,
		scoreboardService: scoreboardService,
		store:             store,
		db:                db,
		now:               time.Now,
	}
}

// FileUpload carries one uploaded file from the HTTP layer.
type FileUpload struct {
	Filename string
	Size     int64
	Data     io.Reader
}

func validateSolutionFile(up FileUpload) error {
	if up.Size == 0 {
		return fmt.Errorf("uploaded file is empty: %w", common.ErrValidation)
	}
	if limit := config.AppConfig.MaxSubmissionBytes; up.Size > limit {
		return fmt.Errorf("file exceeds the %d MiB limit (%d bytes): %w", limit>>20, up.Size, common.ErrValidation)
	}
	ext := strings.ToLower(filepath.Ext(up.Filename))
	if !allowedExtensions[ext] {
		return fmt.Errorf("file type %q is not allowed: %w", ext, common.ErrValidation)
	}
	return nil
}

// Submit validates the upload, auto-enrolls the user if needed, stores the
// file and creates the pending submission row. The file write and the row
// insert are atomic as a unit: the row is only committed after the file is
// on disk, and the file is removed again if the insert fails.
func (s *SubmissionService) Submit(ctx context.Context, userID, problemID string, up FileUpload) (*model.Submission, error) {
	problem, err := s.problemRepo.FindByID(ctx, problemID)
	if err != nil {
		return nil, err
	}

	olympiad, err := s.olympiadService.GetResolvedByID(ctx, problem.OlympiadID)
	if err != nil {
		return nil, err
	}
	if olympiad.Status != model.StatusActive {
		return nil, fmt.Errorf("olympiad %q is %s, submissions are only accepted while active: %w",
			olympiad.Title, olympiad.Status, common.ErrInvalidState)
	}

	if err := validateSolutionFile(up); err != nil {
		return nil, err
	}

	enrollment, enrolled, err := s.enrollmentService.Enroll(ctx, userID, olympiad.ID)
	if err != nil {
		return nil, err
	}
	if enrolled {
		log.Printf("User %s enrolled in olympiad %s (auto-enroll on submit).", userID, olympiad.ID)
	}

	// Collision-resistant stored name; the uploader-supplied name is kept
	// only as display metadata, never as the storage key.
	ext := strings.ToLower(filepath.Ext(up.Filename))
	key := fmt.Sprintf("submissions/%s/%s_%d%s", olympiad.ID, userID, s.now().UnixNano(), ext)

	written, err := s.store.Save(ctx, key, up.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to store solution file: %w", common.ErrStorage)
	}

	submission := &model.Submission{
		ID:               uuid.NewString(),
		EnrollmentID:     enrollment.ID,
		ProblemID:        problem.ID,
		FilePath:         key,
		OriginalFilename: up.Filename,
		SizeBytes:        written,
		Status:           model.SubmissionPending,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.removeStoredFile(ctx, key)
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.submissionRepo.Create(ctx, tx, submission); err != nil {
		s.removeStoredFile(ctx, key)
		return nil, fmt.Errorf("failed to create submission: %w", err)
	}
	if err := tx.Commit(); err != nil {
		s.removeStoredFile(ctx, key)
		return nil, fmt.Errorf("failed to commit submission: %w", err)
	}

	submission.SubmittedAt = s.now()
	s.scoreboardService.Invalidate(ctx, olympiad.ID)
	log.Printf("Submission %s created for problem %s by user %s.", submission.ID, problem.ID, userID)
	return submission, nil
}

func (s *SubmissionService) removeStoredFile(ctx context.Context, key string) {
	if err := s.store.Delete(ctx, key); err != nil {
		log.Printf("Failed to remove orphaned file %s: %v", key, err)
	}
}

type ReviewRequest struct {
	Score   int    `json:"score"`
	Comment string `json:"comment"`
}

// Review records a grader's verdict. Graders are teachers, admins, or the
// owning olympiad's creator. Re-reviewing overwrites the prior score and
// comment; no history is kept.
func (s *SubmissionService) Review(ctx context.Context, graderID, submissionID string, req ReviewRequest) (*model.Submission, error) {
	submission, err := s.submissionRepo.FindByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	problem, err := s.problemRepo.FindByID(ctx, submission.ProblemID)
	if err != nil {
		return nil, fmt.Errorf("failed to load problem: %w", err)
	}
	olympiad, err := s.olympiadRepo.FindByID(ctx, problem.OlympiadID)
	if err != nil {
		return nil, fmt.Errorf("failed to load olympiad: %w", err)
	}

	profile, err := s.userRepo.GetProfile(ctx, graderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load grader profile: %w", err)
	}
	if !model.CanGrade(profile.Role) && olympiad.CreatedByID != graderID {
		return nil, fmt.Errorf("grading requires teacher/admin role or olympiad ownership: %w", common.ErrForbidden)
	}

	if req.Score < 0 || req.Score > problem.MaxScore {
		return nil, fmt.Errorf("score %d out of range [0, %d]: %w", req.Score, problem.MaxScore, common.ErrValidation)
	}

	now := s.now()
	score := req.Score
	submission.Status = model.SubmissionReviewed
	submission.Score = &score
	submission.Comment = req.Comment
	submission.ReviewedAt = &now
	submission.ReviewedByID = &graderID

	if err := s.submissionRepo.UpdateReview(ctx, submission); err != nil {
		return nil, fmt.Errorf("failed to save review: %w", err)
	}

	s.scoreboardService.Invalidate(ctx, olympiad.ID)
	return submission, nil
}

// ListMine returns the caller's own submissions for a problem, newest first.
func (s *SubmissionService) ListMine(ctx context.Context, userID, problemID string) ([]model.Submission, error) {
	return s.submissionRepo.ListForUserProblem(ctx, userID, problemID)
}

// ListForOlympiad returns all submissions of an olympiad for graders.
func (s *SubmissionService) ListForOlympiad(ctx context.Context, graderID, olympiadID string) ([]model.Submission, error) {
	olympiad, err := s.olympiadRepo.FindByID(ctx, olympiadID)
	if err != nil {
		return nil, err
	}
	profile, err := s.userRepo.GetProfile(ctx, graderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if !model.CanGrade(profile.Role) && olympiad.CreatedByID != graderID {
		return nil, fmt.Errorf("listing submissions requires grading capability: %w", common.ErrForbidden)
	}
	return s.submissionRepo.ListByOlympiadDetailed(ctx, olympiadID)
}
