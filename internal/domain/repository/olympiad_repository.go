package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"olymphub/internal/common"
	"olymphub/internal/domain/model"
)

type OlympiadRepository interface {
	Create(ctx context.Context, tx *sql.Tx, o *model.Olympiad) error
	Update(ctx context.Context, tx *sql.Tx, o *model.Olympiad) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*model.Olympiad, error)
	FindBySlug(ctx context.Context, slug string) (*model.Olympiad, error)
	List(ctx context.Context, limit, offset int, status model.OlympiadStatus, searchTerm string) ([]model.Olympiad, int, error)

	// UpdateStatus persists a newly resolved status (write-through cache).
	UpdateStatus(ctx context.Context, id string, status model.OlympiadStatus) error
	// ListStatusFields returns the minimal rows the bulk status refresh needs.
	ListStatusFields(ctx context.Context) ([]model.Olympiad, error)
}

type pgOlympiadRepository struct {
	db *sql.DB
}

func NewPgOlympiadRepository(db *sql.DB) OlympiadRepository {
	return &pgOlympiadRepository{db: db}
}

func (r *pgOlympiadRepository) Create(ctx context.Context, tx *sql.Tx, o *model.Olympiad) error {
	query := `INSERT INTO olympiads (id, title, slug, subject, description, rules, difficulty, start_at, end_at, status, created_by)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, o.ID, o.Title, o.Slug, o.Subject, o.Description, o.Rules, o.Difficulty, o.StartAt, o.EndAt, o.Status, o.CreatedByID)
	} else {
		_, err = r.db.ExecContext(ctx, query, o.ID, o.Title, o.Slug, o.Subject, o.Description, o.Rules, o.Difficulty, o.StartAt, o.EndAt, o.Status, o.CreatedByID)
	}
	if err != nil {
		if common.PgUniqueViolation(err) { // Unique constraint for slug
			return fmt.Errorf("olympiad with this slug already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgOlympiadRepository.Create: %w", err)
	}
	return nil
}

func (r *pgOlympiadRepository) Update(ctx context.Context, tx *sql.Tx, o *model.Olympiad) error {
	query := `UPDATE olympiads SET
	            title = $1, subject = $2, description = $3, rules = $4, difficulty = $5,
	            start_at = $6, end_at = $7, status = $8, updated_at = CURRENT_TIMESTAMP
	          WHERE id = $9`
	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, o.Title, o.Subject, o.Description, o.Rules, o.Difficulty, o.StartAt, o.EndAt, o.Status, o.ID)
	} else {
		_, err = r.db.ExecContext(ctx, query, o.Title, o.Subject, o.Description, o.Rules, o.Difficulty, o.StartAt, o.EndAt, o.Status, o.ID)
	}
	if err != nil {
		return fmt.Errorf("pgOlympiadRepository.Update: %w", err)
	}
	return nil
}

func (r *pgOlympiadRepository) Delete(ctx context.Context, id string) error {
	// Problems, enrollments and submissions cascade via FK constraints.
	res, err := r.db.ExecContext(ctx, `DELETE FROM olympiads WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pgOlympiadRepository.Delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

const olympiadSelect = `
        SELECT o.id, o.title, o.slug, o.subject, o.description, o.rules, o.difficulty,
               o.start_at, o.end_at, o.status,
               o.created_by, u.username AS created_by_username,
               o.created_at, o.updated_at
        FROM olympiads o
        LEFT JOIN users u ON o.created_by = u.id`

func (r *pgOlympiadRepository) scanOlympiad(row *sql.Row) (*model.Olympiad, error) {
	o := &model.Olympiad{}
	err := row.Scan(
		&o.ID, &o.Title, &o.Slug, &o.Subject, &o.Description, &o.Rules, &o.Difficulty,
		&o.StartAt, &o.EndAt, &o.Status,
		&o.CreatedByID, &o.CreatedByUsername,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, err
	}
	return o, nil
}

func (r *pgOlympiadRepository) FindByID(ctx context.Context, id string) (*model.Olympiad, error) {
	o, err := r.scanOlympiad(r.db.QueryRowContext(ctx, olympiadSelect+` WHERE o.id = $1`, id))
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("pgOlympiadRepository.FindByID: %w", err)
	}
	return o, err
}

func (r *pgOlympiadRepository) FindBySlug(ctx context.Context, slug string) (*model.Olympiad, error) {
	o, err := r.scanOlympiad(r.db.QueryRowContext(ctx, olympiadSelect+` WHERE o.slug = $1`, slug))
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("pgOlympiadRepository.FindBySlug: %w", err)
	}
	return o, err
}

func (r *pgOlympiadRepository) List(ctx context.Context, limit, offset int, status model.OlympiadStatus, searchTerm string) ([]model.Olympiad, int, error) {
	where := " WHERE 1=1"
	args := []interface{}{}
	argIdx := 1

	if status != "" {
		where += " AND o.status = $" + strconv.Itoa(argIdx)
		args = append(args, status)
		argIdx++
	}
	if searchTerm != "" {
		where += " AND (o.title ILIKE $" + strconv.Itoa(argIdx) + " OR o.subject ILIKE $" + strconv.Itoa(argIdx) + ")"
		args = append(args, "%"+searchTerm+"%")
		argIdx++
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM olympiads o` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgOlympiadRepository.List count: %w", err)
	}

	query := olympiadSelect + where +
		" ORDER BY o.start_at DESC LIMIT $" + strconv.Itoa(argIdx) + " OFFSET $" + strconv.Itoa(argIdx+1)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgOlympiadRepository.List: %w", err)
	}
	defer rows.Close()

	var olympiads []model.Olympiad
	for rows.Next() {
		o := model.Olympiad{}
		if err := rows.Scan(
			&o.ID, &o.Title, &o.Slug, &o.Subject, &o.Description, &o.Rules, &o.Difficulty,
			&o.StartAt, &o.EndAt, &o.Status,
			&o.CreatedByID, &o.CreatedByUsername,
			&o.CreatedAt, &o.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("pgOlympiadRepository.List scan: %w", err)
		}
		olympiads = append(olympiads, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("pgOlympiadRepository.List rows: %w", err)
	}
	return olympiads, total, nil
}

func (r *pgOlympiadRepository) UpdateStatus(ctx context.Context, id string, status model.OlympiadStatus) error {
	query := `UPDATE olympiads SET status = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`
	if _, err := r.db.ExecContext(ctx, query, status, id); err != nil {
		return fmt.Errorf("pgOlympiadRepository.UpdateStatus: %w", err)
	}
	return nil
}

func (r *pgOlympiadRepository) ListStatusFields(ctx context.Context) ([]model.Olympiad, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, start_at, end_at, status FROM olympiads`)
	if err != nil {
		return nil, fmt.Errorf("pgOlympiadRepository.ListStatusFields: %w", err)
	}
	defer rows.Close()

	var olympiads []model.Olympiad
	for rows.Next() {
		o := model.Olympiad{}
		if err := rows.Scan(&o.ID, &o.StartAt, &o.EndAt, &o.Status); err != nil {
			return nil, fmt.Errorf("pgOlympiadRepository.ListStatusFields scan: %w", err)
		}
		olympiads = append(olympiads, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgOlympiadRepository.ListStatusFields rows: %w", err)
	}
	return olympiads, nil
}
