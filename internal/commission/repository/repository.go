package repository

import (
	"context"
	"errors"
	"time"

	"mentorcrm_backend/internal/commission/domain"
	"mentorcrm_backend/internal/tenant"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("commission not found")

type Commission struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	LeadID         uuid.UUID
	ReferrerID     uuid.UUID
	Amount         float64
	Status         string
	PaidAt         *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const commissionColumns = `id, organization_id, lead_id, referrer_id, amount, status, paid_at, created_at, updated_at`

func scanCommission(row pgx.Row) (Commission, error) {
	var c Commission
	err := row.Scan(
		&c.ID,
		&c.OrganizationID,
		&c.LeadID,
		&c.ReferrerID,
		&c.Amount,
		&c.Status,
		&c.PaidAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	return c, err
}

// The conflict target matches the partial unique index on commissions:
// one live commission per lead, cancelled rows excluded.
const insertCommissionQuery = `
	INSERT INTO commissions (organization_id, lead_id, referrer_id, amount, status)
	VALUES ($1, $2, $3, $4, 'pending')
	ON CONFLICT (lead_id) WHERE status <> 'cancelled' DO NOTHING
	RETURNING ` + commissionColumns

const getLiveByLeadQuery = `
	SELECT ` + commissionColumns + `
	FROM commissions
	WHERE lead_id = $1 AND organization_id = $2 AND status <> 'cancelled'`

type CreateParams struct {
	LeadID     uuid.UUID
	ReferrerID uuid.UUID
	Amount     float64
}

// CreateTx inserts a pending commission inside the caller's transaction.
// When a live commission for the lead already exists, the existing row is
// returned with created = false instead of an error.
func (r *Repository) CreateTx(ctx context.Context, tx pgx.Tx, scope tenant.Scope, params CreateParams) (Commission, bool, error) {
	row := tx.QueryRow(ctx, insertCommissionQuery,
		scope.OrganizationID(), params.LeadID, params.ReferrerID, params.Amount)

	commission, err := scanCommission(row)
	if err == nil {
		return commission, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Commission{}, false, err
	}

	existing, err := scanCommission(tx.QueryRow(ctx, getLiveByLeadQuery, params.LeadID, scope.OrganizationID()))
	if err != nil {
		return Commission{}, false, err
	}
	return existing, false, nil
}

const getCommissionQuery = `
	SELECT ` + commissionColumns + `
	FROM commissions
	WHERE id = $1 AND organization_id = $2`

func (r *Repository) Get(ctx context.Context, scope tenant.Scope, commissionID uuid.UUID) (Commission, error) {
	row := r.pool.QueryRow(ctx, getCommissionQuery, commissionID, scope.OrganizationID())
	commission, err := scanCommission(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Commission{}, ErrNotFound
	}
	return commission, err
}

// ExistsAnyOrg reports whether the commission exists in any organization.
// Used to tell a cross-tenant probe apart from a genuine miss.
func (r *Repository) ExistsAnyOrg(ctx context.Context, commissionID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM commissions WHERE id = $1)`, commissionID).Scan(&exists)
	return exists, err
}

type ListFilter struct {
	Status     string
	ReferrerID *uuid.UUID
}

const listCommissionsQuery = `
	SELECT ` + commissionColumns + `
	FROM commissions
	WHERE organization_id = $1
	  AND ($2 = '' OR status = $2)
	  AND ($3::uuid IS NULL OR referrer_id = $3)
	ORDER BY created_at DESC`

func (r *Repository) List(ctx context.Context, scope tenant.Scope, filter ListFilter) ([]Commission, error) {
	rows, err := r.pool.Query(ctx, listCommissionsQuery,
		scope.OrganizationID(), filter.Status, filter.ReferrerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Commission
	for rows.Next() {
		c, err := scanCommission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

const markPaidQuery = `
	UPDATE commissions
	SET status = 'paid', paid_at = now(), updated_at = now()
	WHERE id = $1 AND organization_id = $2 AND status = 'pending'
	RETURNING ` + commissionColumns

// MarkPaid settles a pending commission. Only the pending state is payable.
func (r *Repository) MarkPaid(ctx context.Context, scope tenant.Scope, commissionID uuid.UUID) (Commission, error) {
	row := r.pool.QueryRow(ctx, markPaidQuery, commissionID, scope.OrganizationID())
	commission, err := scanCommission(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Commission{}, ErrNotFound
	}
	return commission, err
}

const cancelPendingQuery = `
	UPDATE commissions
	SET status = 'cancelled', updated_at = now()
	WHERE id = $1 AND organization_id = $2 AND status = 'pending'
	RETURNING lead_id, referrer_id`

// CancelAndRecreate cancels a pending commission and issues a fresh
// pending one for the same lead with the given amount, atomically. A paid
// or already cancelled commission cannot be replaced.
func (r *Repository) CancelAndRecreate(ctx context.Context, scope tenant.Scope, commissionID uuid.UUID, amount float64) (Commission, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Commission{}, err
	}
	defer tx.Rollback(ctx)

	var leadID, referrerID uuid.UUID
	err = tx.QueryRow(ctx, cancelPendingQuery, commissionID, scope.OrganizationID()).Scan(&leadID, &referrerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Commission{}, ErrNotFound
	}
	if err != nil {
		return Commission{}, err
	}

	replacement, created, err := r.CreateTx(ctx, tx, scope, CreateParams{
		LeadID:     leadID,
		ReferrerID: referrerID,
		Amount:     amount,
	})
	if err != nil {
		return Commission{}, err
	}
	if !created {
		return Commission{}, errors.New("live commission still present after cancellation")
	}

	if err = tx.Commit(ctx); err != nil {
		return Commission{}, err
	}
	return replacement, nil
}

func (r *Repository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// Paid reports whether the commission has been settled.
func (c Commission) Paid() bool {
	return c.Status == domain.StatusPaid
}
