package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"olymphub/internal/common"
	"olymphub/internal/domain/model"
)

type SubmissionRepository interface {
	Create(ctx context.Context, tx *sql.Tx, sub *model.Submission) error
	FindByID(ctx context.Context, id string) (*model.Submission, error)
	// UpdateReview records a grader's verdict; re-review overwrites (last-write-wins).
	UpdateReview(ctx context.Context, sub *model.Submission) error
	// ListByOlympiad returns every submission of an olympiad with the minimal
	// fields the scoreboard aggregation needs.
	ListByOlympiad(ctx context.Context, olympiadID string) ([]model.Submission, error)
	// ListByOlympiadDetailed joins display fields for grader listings.
	ListByOlympiadDetailed(ctx context.Context, olympiadID string) ([]model.Submission, error)
	ListForUserProblem(ctx context.Context, userID, problemID string) ([]model.Submission, error)
}

type pgSubmissionRepository struct {
	db *sql.DB
}

func NewPgSubmissionRepository(db *sql.DB) SubmissionRepository {
	return &pgSubmissionRepository{db: db}
}

func (r *pgSubmissionRepository) Create(ctx context.Context, tx *sql.Tx, sub *model.Submission) error {
	query := `INSERT INTO submissions (id, enrollment_id, problem_id, file_path, original_filename, size_bytes, status, comment)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, sub.ID, sub.EnrollmentID, sub.ProblemID, sub.FilePath, sub.OriginalFilename, sub.SizeBytes, sub.Status, sub.Comment)
	} else {
		_, err = r.db.ExecContext(ctx, query, sub.ID, sub.EnrollmentID, sub.ProblemID, sub.FilePath, sub.OriginalFilename, sub.SizeBytes, sub.Status, sub.Comment)
	}
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.Create: %w", err)
	}
	return nil
}

func (r *pgSubmissionRepository) FindByID(ctx context.Context, id string) (*model.Submission, error) {
	query := `SELECT id, enrollment_id, problem_id, file_path, original_filename, size_bytes,
	                 status, score, comment, submitted_at, reviewed_at, reviewed_by
	          FROM submissions WHERE id = $1`
	sub := &model.Submission{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&sub.ID, &sub.EnrollmentID, &sub.ProblemID, &sub.FilePath, &sub.OriginalFilename, &sub.SizeBytes,
		&sub.Status, &sub.Score, &sub.Comment, &sub.SubmittedAt, &sub.ReviewedAt, &sub.ReviewedByID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgSubmissionRepository.FindByID: %w", err)
	}
	return sub, nil
}

func (r *pgSubmissionRepository) UpdateReview(ctx context.Context, sub *model.Submission) error {
	query := `UPDATE submissions SET
	            status = $1, score = $2, comment = $3, reviewed_at = $4, reviewed_by = $5
	          WHERE id = $6`
	res, err := r.db.ExecContext(ctx, query, sub.Status, sub.Score, sub.Comment, sub.ReviewedAt, sub.ReviewedByID, sub.ID)
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.UpdateReview: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgSubmissionRepository) ListByOlympiad(ctx context.Context, olympiadID string) ([]model.Submission, error) {
	query := `SELECT s.id, s.enrollment_id, s.problem_id, s.status, s.score
	          FROM submissions s
	          JOIN enrollments e ON s.enrollment_id = e.id
	          WHERE e.olympiad_id = $1`
	rows, err := r.db.QueryContext(ctx, query, olympiadID)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.ListByOlympiad: %w", err)
	}
	defer rows.Close()

	var subs []model.Submission
	for rows.Next() {
		s := model.Submission{}
		if err := rows.Scan(&s.ID, &s.EnrollmentID, &s.ProblemID, &s.Status, &s.Score); err != nil {
			return nil, fmt.Errorf("pgSubmissionRepository.ListByOlympiad scan: %w", err)
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.ListByOlympiad rows: %w", err)
	}
	return subs, nil
}

func (r *pgSubmissionRepository) ListByOlympiadDetailed(ctx context.Context, olympiadID string) ([]model.Submission, error) {
	query := `SELECT s.id, s.enrollment_id, s.problem_id, s.file_path, s.original_filename, s.size_bytes,
	                 s.status, s.score, s.comment, s.submitted_at, s.reviewed_at, s.reviewed_by,
	                 p.title AS problem_title, u.username
	          FROM submissions s
	          JOIN enrollments e ON s.enrollment_id = e.id
	          JOIN users u ON e.user_id = u.id
	          JOIN problems p ON s.problem_id = p.id
	          WHERE e.olympiad_id = $1
	          ORDER BY s.submitted_at DESC`
	rows, err := r.db.QueryContext(ctx, query, olympiadID)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.ListByOlympiadDetailed: %w", err)
	}
	defer rows.Close()

	var subs []model.Submission
	for rows.Next() {
		s := model.Submission{}
		if err := rows.Scan(
			&s.ID, &s.EnrollmentID, &s.ProblemID, &s.FilePath, &s.OriginalFilename, &s.SizeBytes,
			&s.Status, &s.Score, &s.Comment, &s.SubmittedAt, &s.ReviewedAt, &s.ReviewedByID,
			&s.ProblemTitle, &s.Username,
		); err != nil {
			return nil, fmt.Errorf("pgSubmissionRepository.ListByOlympiadDetailed scan: %w", err)
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.ListByOlympiadDetailed rows: %w", err)
	}
	return subs, nil
}

func (r *pgSubmissionRepository) ListForUserProblem(ctx context.Context, userID, problemID string) ([]model.Submission, error) {
	query := `SELECT s.id, s.enrollment_id, s.problem_id, s.file_path, s.original_filename, s.size_bytes,
	                 s.status, s.score, s.comment, s.submitted_at, s.reviewed_at, s.reviewed_by
	          FROM submissions s
	          JOIN enrollments e ON s.enrollment_id = e.id
	          WHERE e.user_id = $1 AND s.problem_id = $2
	          ORDER BY s.submitted_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID, problemID)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.ListForUserProblem: %w", err)
	}
	defer rows.Close()

	var subs []model.Submission
	for rows.Next() {
		s := model.Submission{}
		if err := rows.Scan(
			&s.ID, &s.EnrollmentID, &s.ProblemID, &s.FilePath, &s.OriginalFilename, &s.SizeBytes,
			&s.Status, &s.Score, &s.Comment, &s.SubmittedAt, &s.ReviewedAt, &s.ReviewedByID,
		); err != nil {
			return nil, fmt.Errorf("pgSubmissionRepository.ListForUserProblem scan: %w", err)
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.ListForUserProblem rows: %w", err)
	}
	return subs, nil
}
