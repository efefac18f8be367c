// Package outbox stores notification intents in the same database
// transaction as the state change that caused them. A separate dispatcher
// delivers them after commit; delivery failure never affects the writer.
package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"mentorcrm_backend/internal/leads/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusEnqueued   Status = "enqueued"
	StatusProcessing Status = "processing"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
)

// maxAttempts is the delivery retry budget before a record is parked as failed.
const maxAttempts = 5

type Record struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	EventType      string
	Payload        json.RawMessage
	RunAt          time.Time
	Status         Status
	Attempts       int
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const insertQuery = `
	INSERT INTO notification_outbox (organization_id, event_type, payload, run_at, status)
	VALUES ($1, $2, $3, now(), 'pending')`

func (r *Repository) Enqueue(ctx context.Context, orgID uuid.UUID, eventType string, payload any) error {
	body, err := marshalPayload(orgID, eventType, payload)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, insertQuery, orgID, eventType, body)
	return err
}

func (r *Repository) EnqueueTx(ctx context.Context, tx pgx.Tx, orgID uuid.UUID, eventType string, payload any) error {
	body, err := marshalPayload(orgID, eventType, payload)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, insertQuery, orgID, eventType, body)
	return err
}

func marshalPayload(orgID uuid.UUID, eventType string, payload any) ([]byte, error) {
	if orgID == uuid.Nil {
		return nil, errors.New("organization id is required")
	}
	if eventType == "" {
		return nil, errors.New("event type is required")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal outbox payload: %w", err)
	}
	return body, nil
}

// ClaimPending atomically moves due pending records to enqueued and
// returns them. SKIP LOCKED keeps concurrent dispatchers from claiming
// the same rows.
func (r *Repository) ClaimPending(ctx context.Context, limit int) ([]Record, error) {
	if limit < 1 {
		limit = 50
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `WITH cte AS (
		SELECT id
		FROM notification_outbox
		WHERE status = 'pending' AND run_at <= now()
		ORDER BY run_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	)
	UPDATE notification_outbox o
	SET status = 'enqueued', updated_at = now()
	FROM cte
	WHERE o.id = cte.id
	RETURNING o.id, o.organization_id, o.event_type, o.payload, o.run_at, o.status, o.attempts`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Record
	for rows.Next() {
		var rec Record
		var status string
		if err := rows.Scan(&rec.ID, &rec.OrganizationID, &rec.EventType, &rec.Payload, &rec.RunAt, &status, &rec.Attempts); err != nil {
			return nil, err
		}
		rec.Status = Status(status)
		results = append(results, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return results, nil
}

var ErrNotFound = errors.New("outbox record not found")

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Record, error) {
	var rec Record
	var status string
	err := r.pool.QueryRow(ctx, `
		SELECT id, organization_id, event_type, payload, run_at, status, attempts
		FROM notification_outbox
		WHERE id = $1`, id).Scan(
		&rec.ID, &rec.OrganizationID, &rec.EventType, &rec.Payload, &rec.RunAt, &status, &rec.Attempts)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	rec.Status = Status(status)
	return rec, err
}

func (r *Repository) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE notification_outbox
		SET status = 'processing', attempts = attempts + 1, updated_at = now()
		WHERE id = $1`, id)
	return err
}

func (r *Repository) MarkSucceeded(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE notification_outbox
		SET status = 'succeeded', last_error = NULL, updated_at = now()
		WHERE id = $1`, id)
	return err
}

// MarkRetry returns a record to pending with a delayed run_at, or parks it
// as failed once the attempt budget is spent.
func (r *Repository) MarkRetry(ctx context.Context, id uuid.UUID, attempts int, lastError string) error {
	if attempts >= maxAttempts {
		_, err := r.pool.Exec(ctx, `
			UPDATE notification_outbox
			SET status = 'failed', last_error = $2, updated_at = now()
			WHERE id = $1`, id, lastError)
		return err
	}

	delay := time.Duration(attempts*attempts) * 30 * time.Second
	_, err := r.pool.Exec(ctx, `
		UPDATE notification_outbox
		SET status = 'pending', last_error = $2, run_at = now() + $3, updated_at = now()
		WHERE id = $1`, id, lastError, delay)
	return err
}

var _ ports.Outbox = (*Repository)(nil)
