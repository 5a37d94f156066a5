package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"olymphub/internal/common"
	"olymphub/internal/domain/model"
)

type UserRepository interface {
	Create(ctx context.Context, tx *sql.Tx, user *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)

	CreateProfile(ctx context.Context, tx *sql.Tx, profile *model.UserProfile) error
	GetProfile(ctx context.Context, userID string) (*model.UserProfile, error)
	UpdateProfile(ctx context.Context, profile *model.UserProfile) error
	UpdateRole(ctx context.Context, userID, role string) error
}

type pgUserRepository struct {
	db *sql.DB
}

func NewPgUserRepository(db *sql.DB) UserRepository {
	return &pgUserRepository{db: db}
}

func (r *pgUserRepository) Create(ctx context.Context, tx *sql.Tx, user *model.User) error {
	query := `INSERT INTO users (id, username, email, hashed_password)
	          VALUES ($1, $2, $3, $4)`
	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, user.ID, user.Username, user.Email, user.HashedPassword)
	} else {
		_, err = r.db.ExecContext(ctx, query, user.ID, user.Username, user.Email, user.HashedPassword)
	}
	if err != nil {
		if common.PgUniqueViolation(err) {
			return fmt.Errorf("user with given username or email already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgUserRepository.Create: %w", err)
	}
	return nil
}

func (r *pgUserRepository) findUser(ctx context.Context, where, arg string) (*model.User, error) {
	query := `SELECT id, username, email, hashed_password, created_at, updated_at
	          FROM users WHERE ` + where + ` = $1`
	user := &model.User{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Username, &user.Email, &user.HashedPassword, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgUserRepository.findUser by %s: %w", where, err)
	}
	return user, nil
}

func (r *pgUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findUser(ctx, "email", email)
}

func (r *pgUserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.findUser(ctx, "username", username)
}

func (r *pgUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.findUser(ctx, "id", id)
}

func (r *pgUserRepository) CreateProfile(ctx context.Context, tx *sql.Tx, p *model.UserProfile) error {
	query := `INSERT INTO user_profiles (user_id, role, bio, organization, avatar_path)
	          VALUES ($1, $2, $3, $4, $5)`
	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, p.UserID, p.Role, p.Bio, p.Organization, p.AvatarPath)
	} else {
		_, err = r.db.ExecContext(ctx, query, p.UserID, p.Role, p.Bio, p.Organization, p.AvatarPath)
	}
	if err != nil {
		if common.PgUniqueViolation(err) {
			return fmt.Errorf("profile already exists for user: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgUserRepository.CreateProfile: %w", err)
	}
	return nil
}

func (r *pgUserRepository) GetProfile(ctx context.Context, userID string) (*model.UserProfile, error) {
	query := `SELECT user_id, role, bio, organization, avatar_path, updated_at
	          FROM user_profiles WHERE user_id = $1`
	p := &model.UserProfile{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&p.UserID, &p.Role, &p.Bio, &p.Organization, &p.AvatarPath, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgUserRepository.GetProfile: %w", err)
	}
	return p, nil
}

func (r *pgUserRepository) UpdateProfile(ctx context.Context, p *model.UserProfile) error {
	query := `UPDATE user_profiles SET bio = $1, organization = $2, avatar_path = $3, updated_at = CURRENT_TIMESTAMP
	          WHERE user_id = $4`
	_, err := r.db.ExecContext(ctx, query, p.Bio, p.Organization, p.AvatarPath, p.UserID)
	if err != nil {
		return fmt.Errorf("pgUserRepository.UpdateProfile: %w", err)
	}
	return nil
}

func (r *pgUserRepository) UpdateRole(ctx context.Context, userID, role string) error {
	query := `UPDATE user_profiles SET role = $1, updated_at = CURRENT_TIMESTAMP WHERE user_id = $2`
	res, err := r.db.ExecContext(ctx, query, role, userID)
	if err != nil {
		return fmt.Errorf("pgUserRepository.UpdateRole: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}
