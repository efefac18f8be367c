package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// User is an account row joined with its organization membership.
// A user belongs to exactly one organization.
type User struct {
	ID             uuid.UUID
	Email          string
	PasswordHash   string
	Name           string
	OrganizationID uuid.UUID
	Role           string
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

const getUserByEmailQuery = `
	SELECT u.id, u.email, u.password_hash, u.name, om.organization_id, om.role, u.is_active, u.created_at, u.updated_at
	FROM users u
	JOIN organization_members om ON om.user_id = u.id
	WHERE lower(u.email) = lower($1)`

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := r.pool.QueryRow(ctx, getUserByEmailQuery, email).Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.Name,
		&u.OrganizationID,
		&u.Role,
		&u.IsActive,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

const getUserByIDQuery = `
	SELECT u.id, u.email, u.password_hash, u.name, om.organization_id, om.role, u.is_active, u.created_at, u.updated_at
	FROM users u
	JOIN organization_members om ON om.user_id = u.id
	WHERE u.id = $1`

func (r *Repository) GetUserByID(ctx context.Context, userID uuid.UUID) (User, error) {
	var u User
	err := r.pool.QueryRow(ctx, getUserByIDQuery, userID).Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.Name,
		&u.OrganizationID,
		&u.Role,
		&u.IsActive,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

func (r *Repository) CreateUser(ctx context.Context, orgID uuid.UUID, email, passwordHash, name, role string) (User, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return User{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var u User
	err = tx.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, name, is_active)
		VALUES ($1, $2, $3, true)
		RETURNING id, email, password_hash, name, is_active, created_at, updated_at
	`, email, passwordHash, name).Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.Name,
		&u.IsActive,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return User{}, err
	}

	if _, err = tx.Exec(ctx, `
		INSERT INTO organization_members (organization_id, user_id, role)
		VALUES ($1, $2, $3)
	`, orgID, u.ID, role); err != nil {
		return User{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return User{}, err
	}

	u.OrganizationID = orgID
	u.Role = role
	return u, nil
}
