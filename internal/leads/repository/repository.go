package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("lead not found")
var ErrStale = errors.New("lead changed concurrently")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Lead struct {
	ID               uuid.UUID
	OrganizationID   uuid.UUID
	Name             string
	Phone            *string
	Email            *string
	Company          *string
	Position         *string
	Temperature      *string
	InterestLevel    *string
	InterestTag      *string
	HasBudget        bool
	IsDecisionMaker  bool
	MainPain         *string
	Source           *string
	ReferrerID       *uuid.UUID
	AssignedCloserID *uuid.UUID
	LeadScore        int
	ScoreFactors     []string
	Status           string
	SoldValue        *float64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

const leadColumns = `id, organization_id, name, phone, email, company, position, temperature,
	interest_level, interest_tag, has_budget, is_decision_maker, main_pain, source, referrer_id,
	assigned_closer_id, lead_score, score_factors, status, sold_value, created_at, updated_at`

func scanLead(row pgx.Row) (Lead, error) {
	var l Lead
	err := row.Scan(
		&l.ID,
		&l.OrganizationID,
		&l.Name,
		&l.Phone,
		&l.Email,
		&l.Company,
		&l.Position,
		&l.Temperature,
		&l.InterestLevel,
		&l.InterestTag,
		&l.HasBudget,
		&l.IsDecisionMaker,
		&l.MainPain,
		&l.Source,
		&l.ReferrerID,
		&l.AssignedCloserID,
		&l.LeadScore,
		&l.ScoreFactors,
		&l.Status,
		&l.SoldValue,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return l, err
}

type CreateLeadParams struct {
	OrganizationID  uuid.UUID
	Name            string
	Phone           *string
	Email           *string
	Company         *string
	Position        *string
	Temperature     *string
	InterestLevel   *string
	InterestTag     *string
	HasBudget       bool
	IsDecisionMaker bool
	MainPain        *string
	Source          *string
	ReferrerID      *uuid.UUID
}

func (r *Repository) Create(ctx context.Context, params CreateLeadParams) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO leads (
			organization_id, name, phone, email, company, position, temperature,
			interest_level, interest_tag, has_budget, is_decision_maker, main_pain, source, referrer_id,
			lead_score, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, 0, 'new')
		RETURNING `+leadColumns,
		params.OrganizationID, params.Name, params.Phone, params.Email, params.Company,
		params.Position, params.Temperature, params.InterestLevel, params.InterestTag,
		params.HasBudget, params.IsDecisionMaker, params.MainPain, params.Source, params.ReferrerID,
	)
	return scanLead(row)
}

const getLeadQuery = `
	SELECT ` + leadColumns + `
	FROM leads
	WHERE id = $1 AND organization_id = $2`

func (r *Repository) GetByID(ctx context.Context, orgID, leadID uuid.UUID) (Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, getLeadQuery, leadID, orgID))
}

const existsAnyOrgQuery = `SELECT EXISTS (SELECT 1 FROM leads WHERE id = $1)`

// ExistsAnyOrg reports whether a lead row exists regardless of tenant.
// Used only to distinguish a cross-tenant access from a plain missing row;
// no lead data is returned.
func (r *Repository) ExistsAnyOrg(ctx context.Context, leadID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, existsAnyOrgQuery, leadID).Scan(&exists)
	return exists, err
}

type ListParams struct {
	Status      string
	Temperature string
	CloserID    *uuid.UUID
	Unassigned  bool
	Limit       int
	Offset      int
}

func (r *Repository) List(ctx context.Context, orgID uuid.UUID, params ListParams) ([]Lead, int, error) {
	conditions := []string{"organization_id = $1"}
	args := []any{orgID}

	if params.Status != "" {
		args = append(args, params.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if params.Temperature != "" {
		args = append(args, params.Temperature)
		conditions = append(conditions, fmt.Sprintf("temperature = $%d", len(args)))
	}
	if params.CloserID != nil {
		args = append(args, *params.CloserID)
		conditions = append(conditions, fmt.Sprintf("assigned_closer_id = $%d", len(args)))
	}
	if params.Unassigned {
		conditions = append(conditions, "assigned_closer_id IS NULL")
	}

	where := strings.Join(conditions, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT count(*) FROM leads WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := params.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	args = append(args, limit, params.Offset)
	query := fmt.Sprintf(
		"SELECT %s FROM leads WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		leadColumns, where, len(args)-1, len(args),
	)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	leads := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, 0, err
		}
		leads = append(leads, lead)
	}
	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}

	return leads, total, nil
}

const listUnassignedQuery = `
	SELECT ` + leadColumns + `
	FROM leads
	WHERE organization_id = $1
	  AND assigned_closer_id IS NULL
	  AND status NOT IN ('sold', 'lost')
	ORDER BY lead_score DESC, created_at ASC
	LIMIT $2`

// ListUnassigned returns queued leads waiting for closer capacity,
// hottest and oldest first.
func (r *Repository) ListUnassigned(ctx context.Context, orgID uuid.UUID, limit int) ([]Lead, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx, listUnassignedQuery, orgID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

const listOpenLeadIDsQuery = `
	SELECT id
	FROM leads
	WHERE organization_id = $1
	  AND status NOT IN ('sold', 'lost')`

// ListOpenLeadIDs returns the IDs of every lead still in the pipeline.
// Used to fan out rescoring work after a rule change.
func (r *Repository) ListOpenLeadIDs(ctx context.Context, orgID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, listOpenLeadIDsQuery, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

const updateScoreQuery = `
	UPDATE leads
	SET lead_score = $3, temperature = $4, score_factors = $5, updated_at = now()
	WHERE id = $1 AND organization_id = $2
	RETURNING ` + leadColumns

func (r *Repository) UpdateScore(ctx context.Context, orgID, leadID uuid.UUID, score int, temperature string, factors []string) (Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, updateScoreQuery, leadID, orgID, score, temperature, factors))
}

// Begin starts a transaction for multi-aggregate writes. The leads service
// owns the transaction boundary for the sold edge.
func (r *Repository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

const updateStatusTxQuery = `
	UPDATE leads
	SET status = $3, sold_value = $4, updated_at = now()
	WHERE id = $1 AND organization_id = $2 AND status = $5
	RETURNING ` + leadColumns

// UpdateStatusTx advances the lead status inside tx. The expected previous
// status acts as a row guard: a concurrent transition makes the update
// match zero rows and ErrStale is returned.
func (r *Repository) UpdateStatusTx(ctx context.Context, tx pgx.Tx, orgID, leadID uuid.UUID, newStatus string, soldValue *float64, expectedStatus string) (Lead, error) {
	lead, err := scanLead(tx.QueryRow(ctx, updateStatusTxQuery, leadID, orgID, newStatus, soldValue, expectedStatus))
	if errors.Is(err, ErrNotFound) {
		return Lead{}, ErrStale
	}
	return lead, err
}

const setCloserTxQuery = `
	UPDATE leads
	SET assigned_closer_id = $3, updated_at = now()
	WHERE id = $1 AND organization_id = $2
	RETURNING ` + leadColumns

func (r *Repository) SetCloserTx(ctx context.Context, tx pgx.Tx, orgID, leadID uuid.UUID, closerID *uuid.UUID) (Lead, error) {
	return scanLead(tx.QueryRow(ctx, setCloserTxQuery, leadID, orgID, closerID))
}
