package repository

import (
	"context"
	"errors"
	"time"

	"mentorcrm_backend/internal/leads/ports"
	"mentorcrm_backend/internal/tenant"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("closer not found")
var ErrClaimConflict = errors.New("closer load changed concurrently")
var ErrCapacityBelowLoad = errors.New("capacity is below the current load")
var ErrOrganizationInactive = errors.New("organization is inactive")
var ErrLeadNotRoutable = errors.New("lead is not available for routing")

type Closer struct {
	ID               uuid.UUID
	OrganizationID   uuid.UUID
	Name             string
	Phone            *string
	Email            *string
	Specializations  []string
	CapacityMax      int
	CurrentLoad      int
	PerformanceScore float64
	IsActive         bool
	LastAssignedAt   *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type Assignment struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	LeadID         uuid.UUID
	CloserID       uuid.UUID
	CreatedAt      time.Time
	ReleasedAt     *time.Time
}

type Repository struct {
	pool    *pgxpool.Pool
	auditor ports.Auditor
	outbox  ports.Outbox
}

func New(pool *pgxpool.Pool, auditor ports.Auditor, outbox ports.Outbox) *Repository {
	return &Repository{pool: pool, auditor: auditor, outbox: outbox}
}

const closerColumns = `id, organization_id, name, phone, email, specializations, capacity_max,
	current_load, performance_score, is_active, last_assigned_at, created_at, updated_at`

func scanCloser(row pgx.Row) (Closer, error) {
	var c Closer
	err := row.Scan(
		&c.ID,
		&c.OrganizationID,
		&c.Name,
		&c.Phone,
		&c.Email,
		&c.Specializations,
		&c.CapacityMax,
		&c.CurrentLoad,
		&c.PerformanceScore,
		&c.IsActive,
		&c.LastAssignedAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Closer{}, ErrNotFound
	}
	return c, err
}

const listEligibleQuery = `
	SELECT ` + closerColumns + `
	FROM closers
	WHERE organization_id = $1
	  AND is_active = true
	  AND current_load < capacity_max`

// ListEligible returns active closers with spare capacity. Specialization
// filtering and selection ordering happen in the routing service.
func (r *Repository) ListEligible(ctx context.Context, orgID uuid.UUID) ([]Closer, error) {
	rows, err := r.pool.Query(ctx, listEligibleQuery, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	closers := make([]Closer, 0)
	for rows.Next() {
		c, err := scanCloser(rows)
		if err != nil {
			return nil, err
		}
		closers = append(closers, c)
	}
	return closers, rows.Err()
}

const claimCloserQuery = `
	UPDATE closers
	SET current_load = current_load + 1, last_assigned_at = now(), updated_at = now()
	WHERE id = $1
	  AND organization_id = $2
	  AND current_load = $3
	  AND current_load < capacity_max`

const orgActiveQuery = `SELECT is_active FROM organizations WHERE id = $1`

type ClaimParams struct {
	Scope        tenant.Scope
	LeadID       uuid.UUID
	CloserID     uuid.UUID
	ObservedLoad int
	CloserPhone  *string
	Actor        string
}

// Claim atomically increments the closer's load and records the
// assignment. The load increment only matches when the load observed at
// selection time still holds, so concurrent claims against the last slot
// collapse to exactly one winner.
func (r *Repository) Claim(ctx context.Context, params ClaimParams) (Assignment, error) {
	orgID := params.Scope.OrganizationID()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Assignment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var orgActive bool
	if err := tx.QueryRow(ctx, orgActiveQuery, orgID).Scan(&orgActive); err != nil {
		return Assignment{}, err
	}
	if !orgActive {
		return Assignment{}, ErrOrganizationInactive
	}

	tag, err := tx.Exec(ctx, claimCloserQuery, params.CloserID, orgID, params.ObservedLoad)
	if err != nil {
		return Assignment{}, err
	}
	if tag.RowsAffected() == 0 {
		return Assignment{}, ErrClaimConflict
	}

	var assignment Assignment
	err = tx.QueryRow(ctx, `
		INSERT INTO assignments (organization_id, lead_id, closer_id)
		VALUES ($1, $2, $3)
		RETURNING id, organization_id, lead_id, closer_id, created_at, released_at
	`, orgID, params.LeadID, params.CloserID).Scan(
		&assignment.ID,
		&assignment.OrganizationID,
		&assignment.LeadID,
		&assignment.CloserID,
		&assignment.CreatedAt,
		&assignment.ReleasedAt,
	)
	if err != nil {
		return Assignment{}, err
	}

	if _, err = tx.Exec(ctx, `
		UPDATE leads SET assigned_closer_id = $3, updated_at = now()
		WHERE id = $1 AND organization_id = $2
	`, params.LeadID, orgID, params.CloserID); err != nil {
		return Assignment{}, err
	}

	if err = r.auditor.RecordTx(ctx, tx, params.Scope, ports.AuditEntry{
		EntityType: "assignment",
		EntityID:   assignment.ID,
		OldState:   "",
		NewState:   "assigned:" + params.CloserID.String(),
		Actor:      params.Actor,
	}); err != nil {
		return Assignment{}, err
	}

	payload := map[string]any{
		"lead_id":   params.LeadID,
		"closer_id": params.CloserID,
	}
	if params.CloserPhone != nil {
		payload["phone"] = *params.CloserPhone
		payload["message"] = "Novo lead atribuido a voce. Acesse o painel para detalhes."
	}
	if err = r.outbox.EnqueueTx(ctx, tx, orgID, "assignment.created", payload); err != nil {
		return Assignment{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return Assignment{}, err
	}
	return assignment, nil
}

const releaseAssignmentQuery = `
	UPDATE assignments
	SET released_at = now()
	WHERE organization_id = $1 AND lead_id = $2 AND released_at IS NULL
	RETURNING closer_id`

const decrementLoadQuery = `
	UPDATE closers
	SET current_load = current_load - 1, updated_at = now()
	WHERE id = $1 AND organization_id = $2 AND current_load > 0`

// ReleaseForLeadTx closes the lead's active assignment and returns the
// freed closer's capacity, inside the caller's transaction. A lead with
// no active assignment is a no-op.
func (r *Repository) ReleaseForLeadTx(ctx context.Context, tx pgx.Tx, scope tenant.Scope, leadID uuid.UUID) (bool, uuid.UUID, error) {
	orgID := scope.OrganizationID()

	var closerID uuid.UUID
	err := tx.QueryRow(ctx, releaseAssignmentQuery, orgID, leadID).Scan(&closerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, uuid.Nil, nil
	}
	if err != nil {
		return false, uuid.Nil, err
	}

	if _, err := tx.Exec(ctx, decrementLoadQuery, closerID, orgID); err != nil {
		return false, uuid.Nil, err
	}

	if err := r.auditor.RecordTx(ctx, tx, scope, ports.AuditEntry{
		EntityType: "assignment",
		EntityID:   leadID,
		OldState:   "assigned:" + closerID.String(),
		NewState:   "released",
		Actor:      scope.Actor(),
	}); err != nil {
		return false, uuid.Nil, err
	}

	return true, closerID, nil
}

type ReassignParams struct {
	Scope          tenant.Scope
	LeadID         uuid.UUID
	TargetCloserID uuid.UUID
	ObservedLoad   int
	CloserPhone    *string
	Actor          string
}

// Reassign releases the previous closer and claims the target closer as
// one compound transaction, so a failure between release and claim can
// never leak capacity.
func (r *Repository) Reassign(ctx context.Context, params ReassignParams) (Assignment, *uuid.UUID, error) {
	orgID := params.Scope.OrganizationID()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Assignment{}, nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var orgActive bool
	if err := tx.QueryRow(ctx, orgActiveQuery, orgID).Scan(&orgActive); err != nil {
		return Assignment{}, nil, err
	}
	if !orgActive {
		return Assignment{}, nil, ErrOrganizationInactive
	}

	released, previousCloserID, err := r.ReleaseForLeadTx(ctx, tx, params.Scope, params.LeadID)
	if err != nil {
		return Assignment{}, nil, err
	}
	var releasedCloser *uuid.UUID
	if released {
		releasedCloser = &previousCloserID
	}

	// When the lead was already on the target closer, the release step
	// above decremented its load inside this transaction; the claim must
	// compare against that in-transaction value, not the caller's read.
	observedLoad := params.ObservedLoad
	if released && previousCloserID == params.TargetCloserID {
		observedLoad--
	}

	tag, err := tx.Exec(ctx, claimCloserQuery, params.TargetCloserID, orgID, observedLoad)
	if err != nil {
		return Assignment{}, nil, err
	}
	if tag.RowsAffected() == 0 {
		return Assignment{}, nil, ErrClaimConflict
	}

	var assignment Assignment
	err = tx.QueryRow(ctx, `
		INSERT INTO assignments (organization_id, lead_id, closer_id)
		VALUES ($1, $2, $3)
		RETURNING id, organization_id, lead_id, closer_id, created_at, released_at
	`, orgID, params.LeadID, params.TargetCloserID).Scan(
		&assignment.ID,
		&assignment.OrganizationID,
		&assignment.LeadID,
		&assignment.CloserID,
		&assignment.CreatedAt,
		&assignment.ReleasedAt,
	)
	if err != nil {
		return Assignment{}, nil, err
	}

	if _, err = tx.Exec(ctx, `
		UPDATE leads SET assigned_closer_id = $3, updated_at = now()
		WHERE id = $1 AND organization_id = $2
	`, params.LeadID, orgID, params.TargetCloserID); err != nil {
		return Assignment{}, nil, err
	}

	if err = r.auditor.RecordTx(ctx, tx, params.Scope, ports.AuditEntry{
		EntityType: "assignment",
		EntityID:   assignment.ID,
		OldState:   "",
		NewState:   "reassigned:" + params.TargetCloserID.String(),
		Actor:      params.Actor,
	}); err != nil {
		return Assignment{}, nil, err
	}

	payload := map[string]any{
		"lead_id":   params.LeadID,
		"closer_id": params.TargetCloserID,
	}
	if params.CloserPhone != nil {
		payload["phone"] = *params.CloserPhone
		payload["message"] = "Um lead foi transferido para voce. Acesse o painel para detalhes."
	}
	if err = r.outbox.EnqueueTx(ctx, tx, orgID, "assignment.created", payload); err != nil {
		return Assignment{}, nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return Assignment{}, nil, err
	}
	return assignment, releasedCloser, nil
}

// Begin exposes a transaction for callers composing release with their
// own writes.
func (r *Repository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

const leadInterestTagQuery = `
	SELECT interest_tag FROM leads
	WHERE id = $1 AND organization_id = $2 AND status NOT IN ('sold', 'lost')`

// LeadInterestTag returns the interest tag of an open lead. Closed leads
// and leads of other organizations are not routable.
func (r *Repository) LeadInterestTag(ctx context.Context, scope tenant.Scope, leadID uuid.UUID) (string, error) {
	var tag *string
	err := r.pool.QueryRow(ctx, leadInterestTagQuery, leadID, scope.OrganizationID()).Scan(&tag)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrLeadNotRoutable
	}
	if err != nil {
		return "", err
	}
	if tag == nil {
		return "", nil
	}
	return *tag, nil
}
