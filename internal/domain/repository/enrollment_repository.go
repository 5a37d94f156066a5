package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"olymphub/internal/common"
	"olymphub/internal/domain/model"
)

type EnrollmentRepository interface {
	// Create inserts the enrollment; the UNIQUE (user_id, olympiad_id)
	// constraint returns common.ErrConflict on a duplicate, which the
	// enrollment service resolves into get-or-create semantics.
	Create(ctx context.Context, tx *sql.Tx, e *model.Enrollment) error
	FindByUserAndOlympiad(ctx context.Context, userID, olympiadID string) (*model.Enrollment, error)
	ListByOlympiad(ctx context.Context, olympiadID string) ([]model.Enrollment, error)
	ListByUser(ctx context.Context, userID string) ([]model.Enrollment, error)
}

type pgEnrollmentRepository struct {
	db *sql.DB
}

func NewPgEnrollmentRepository(db *sql.DB) EnrollmentRepository {
	return &pgEnrollmentRepository{db: db}
}

func (r *pgEnrollmentRepository) Create(ctx context.Context, tx *sql.Tx, e *model.Enrollment) error {
	query := `INSERT INTO enrollments (id, user_id, olympiad_id) VALUES ($1, $2, $3)`
	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, e.ID, e.UserID, e.OlympiadID)
	} else {
		_, err = r.db.ExecContext(ctx, query, e.ID, e.UserID, e.OlympiadID)
	}
	if err != nil {
		if common.PgUniqueViolation(err) {
			return fmt.Errorf("user already enrolled in olympiad: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgEnrollmentRepository.Create: %w", err)
	}
	return nil
}

func (r *pgEnrollmentRepository) FindByUserAndOlympiad(ctx context.Context, userID, olympiadID string) (*model.Enrollment, error) {
	query := `SELECT id, user_id, olympiad_id, registered_at
	          FROM enrollments WHERE user_id = $1 AND olympiad_id = $2`
	e := &model.Enrollment{}
	err := r.db.QueryRowContext(ctx, query, userID, olympiadID).Scan(
		&e.ID, &e.UserID, &e.OlympiadID, &e.RegisteredAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgEnrollmentRepository.FindByUserAndOlympiad: %w", err)
	}
	return e, nil
}

func (r *pgEnrollmentRepository) ListByOlympiad(ctx context.Context, olympiadID string) ([]model.Enrollment, error) {
	query := `SELECT e.id, e.user_id, e.olympiad_id, e.registered_at, u.username
	          FROM enrollments e
	          JOIN users u ON e.user_id = u.id
	          WHERE e.olympiad_id = $1
	          ORDER BY e.registered_at`
	rows, err := r.db.QueryContext(ctx, query, olympiadID)
	if err != nil {
		return nil, fmt.Errorf("pgEnrollmentRepository.ListByOlympiad: %w", err)
	}
	defer rows.Close()

	var enrollments []model.Enrollment
	for rows.Next() {
		e := model.Enrollment{}
		if err := rows.Scan(&e.ID, &e.UserID, &e.OlympiadID, &e.RegisteredAt, &e.Username); err != nil {
			return nil, fmt.Errorf("pgEnrollmentRepository.ListByOlympiad scan: %w", err)
		}
		enrollments = append(enrollments, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgEnrollmentRepository.ListByOlympiad rows: %w", err)
	}
	return enrollments, nil
}

func (r *pgEnrollmentRepository) ListByUser(ctx context.Context, userID string) ([]model.Enrollment, error) {
	query := `SELECT id, user_id, olympiad_id, registered_at
	          FROM enrollments WHERE user_id = $1 ORDER BY registered_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("pgEnrollmentRepository.ListByUser: %w", err)
	}
	defer rows.Close()

	var enrollments []model.Enrollment
	for rows.Next() {
		e := model.Enrollment{}
		if err := rows.Scan(&e.ID, &e.UserID, &e.OlympiadID, &e.RegisteredAt); err != nil {
			return nil, fmt.Errorf("pgEnrollmentRepository.ListByUser scan: %w", err)
		}
		enrollments = append(enrollments, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgEnrollmentRepository.ListByUser rows: %w", err)
	}
	return enrollments, nil
}
