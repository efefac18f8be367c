package repository

import (
	"context"
	"errors"

	"mentorcrm_backend/internal/tenant"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const getOrganizationQuery = `
	SELECT id, name, referral_commission_amount, warm_threshold, hot_threshold, is_active, created_at, updated_at
	FROM organizations
	WHERE id = $1
`

func (r *Repository) GetOrganization(ctx context.Context, orgID uuid.UUID) (tenant.Organization, error) {
	var org tenant.Organization
	err := r.pool.QueryRow(ctx, getOrganizationQuery, orgID).Scan(
		&org.ID, &org.Name, &org.ReferralCommissionAmount,
		&org.WarmThreshold, &org.HotThreshold, &org.IsActive,
		&org.CreatedAt, &org.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return tenant.Organization{}, tenant.ErrNotFound
	}
	if err != nil {
		return tenant.Organization{}, err
	}
	return org, nil
}

const isMemberQuery = `
	SELECT EXISTS (
		SELECT 1 FROM organization_members
		WHERE organization_id = $1 AND user_id = $2
	)
`

func (r *Repository) IsMember(ctx context.Context, orgID, userID uuid.UUID) (bool, error) {
	var member bool
	err := r.pool.QueryRow(ctx, isMemberQuery, orgID, userID).Scan(&member)
	if err != nil {
		return false, err
	}
	return member, nil
}

func (r *Repository) SetCommissionAmount(ctx context.Context, orgID uuid.UUID, amount float64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE organizations SET referral_commission_amount = $2, updated_at = NOW()
		WHERE id = $1
	`, orgID, amount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return tenant.ErrNotFound
	}
	return nil
}

func (r *Repository) SetTemperatureThresholds(ctx context.Context, orgID uuid.UUID, warm, hot int) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE organizations SET warm_threshold = $2, hot_threshold = $3, updated_at = NOW()
		WHERE id = $1
	`, orgID, warm, hot)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return tenant.ErrNotFound
	}
	return nil
}

var _ tenant.Store = (*Repository)(nil)
