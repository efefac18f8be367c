// Package audit provides the append-only audit log. Entries are only
// ever inserted; there is no update or delete path.
package audit

import (
	"context"
	"time"

	"mentorcrm_backend/internal/leads/ports"
	"mentorcrm_backend/internal/tenant"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Entry struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	EntityType     string
	EntityID       uuid.UUID
	OldState       string
	NewState       string
	Actor          string
	CreatedAt      time.Time
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const insertEntryQuery = `
	INSERT INTO audit_entries (organization_id, entity_type, entity_id, old_state, new_state, actor)
	VALUES ($1, $2, $3, $4, $5, $6)`

func (r *Repository) Record(ctx context.Context, scope tenant.Scope, entry ports.AuditEntry) error {
	_, err := r.pool.Exec(ctx, insertEntryQuery,
		scope.OrganizationID(), entry.EntityType, entry.EntityID, entry.OldState, entry.NewState, entry.Actor)
	return err
}

func (r *Repository) RecordTx(ctx context.Context, tx pgx.Tx, scope tenant.Scope, entry ports.AuditEntry) error {
	_, err := tx.Exec(ctx, insertEntryQuery,
		scope.OrganizationID(), entry.EntityType, entry.EntityID, entry.OldState, entry.NewState, entry.Actor)
	return err
}

const listEntriesQuery = `
	SELECT id, organization_id, entity_type, entity_id, old_state, new_state, actor, created_at
	FROM audit_entries
	WHERE organization_id = $1 AND entity_id = $2
	ORDER BY created_at ASC`

// ListForEntity returns the full trail for one entity, oldest first.
func (r *Repository) ListForEntity(ctx context.Context, scope tenant.Scope, entityID uuid.UUID) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, listEntriesQuery, scope.OrganizationID(), entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.OrganizationID, &e.EntityType, &e.EntityID, &e.OldState, &e.NewState, &e.Actor, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

var _ ports.Auditor = (*Repository)(nil)
