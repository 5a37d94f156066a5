package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"olymphub/internal/common"
	"olymphub/internal/domain/model"
)

type ProblemRepository interface {
	Create(ctx context.Context, tx *sql.Tx, p *model.Problem) error
	Update(ctx context.Context, tx *sql.Tx, p *model.Problem) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*model.Problem, error)
	ListByOlympiad(ctx context.Context, olympiadID string) ([]model.Problem, error)
}

type pgProblemRepository struct {
	db *sql.DB
}

func NewPgProblemRepository(db *sql.DB) ProblemRepository {
	return &pgProblemRepository{db: db}
}

func (r *pgProblemRepository) Create(ctx context.Context, tx *sql.Tx, p *model.Problem) error {
	query := `INSERT INTO problems (id, olympiad_id, title, statement, max_score, attachment_path, sort_order)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`
	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, p.ID, p.OlympiadID, p.Title, p.Statement, p.MaxScore, p.AttachmentPath, p.SortOrder)
	} else {
		_, err = r.db.ExecContext(ctx, query, p.ID, p.OlympiadID, p.Title, p.Statement, p.MaxScore, p.AttachmentPath, p.SortOrder)
	}
	if err != nil {
		return fmt.Errorf("pgProblemRepository.Create: %w", err)
	}
	return nil
}

func (r *pgProblemRepository) Update(ctx context.Context, tx *sql.Tx, p *model.Problem) error {
	query := `UPDATE problems SET
	            title = $1, statement = $2, max_score = $3, attachment_path = $4,
	            sort_order = $5, updated_at = CURRENT_TIMESTAMP
	          WHERE id = $6`
	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, p.Title, p.Statement, p.MaxScore, p.AttachmentPath, p.SortOrder, p.ID)
	} else {
		_, err = r.db.ExecContext(ctx, query, p.Title, p.Statement, p.MaxScore, p.AttachmentPath, p.SortOrder, p.ID)
	}
	if err != nil {
		return fmt.Errorf("pgProblemRepository.Update: %w", err)
	}
	return nil
}

func (r *pgProblemRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM problems WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.Delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgProblemRepository) FindByID(ctx context.Context, id string) (*model.Problem, error) {
	query := `SELECT id, olympiad_id, title, statement, max_score, attachment_path, sort_order, created_at, updated_at
	          FROM problems WHERE id = $1`
	p := &model.Problem{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.OlympiadID, &p.Title, &p.Statement, &p.MaxScore, &p.AttachmentPath, &p.SortOrder, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgProblemRepository.FindByID: %w", err)
	}
	return p, nil
}

func (r *pgProblemRepository) ListByOlympiad(ctx context.Context, olympiadID string) ([]model.Problem, error) {
	query := `SELECT id, olympiad_id, title, statement, max_score, attachment_path, sort_order, created_at, updated_at
	          FROM problems WHERE olympiad_id = $1 ORDER BY sort_order, created_at`
	rows, err := r.db.QueryContext(ctx, query, olympiadID)
	if err != nil {
		return nil, fmt.Errorf("pgProblemRepository.ListByOlympiad: %w", err)
	}
	defer rows.Close()

	var problems []model.Problem
	for rows.Next() {
		p := model.Problem{}
		if err := rows.Scan(
			&p.ID, &p.OlympiadID, &p.Title, &p.Statement, &p.MaxScore, &p.AttachmentPath, &p.SortOrder, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("pgProblemRepository.ListByOlympiad scan: %w", err)
		}
		problems = append(problems, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgProblemRepository.ListByOlympiad rows: %w", err)
	}
	return problems, nil
}
