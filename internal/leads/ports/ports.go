// Package ports declares the collaborator contracts the leads service
// depends on. Concrete implementations live in their own bounded
// contexts and are wired in the composition root.
package ports

import (
	"context"

	"mentorcrm_backend/internal/tenant"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AssignOutcome is the result of a routing attempt. A nil CloserID means
// the lead was queued as unassigned, which is a valid outcome.
type AssignOutcome struct {
	AssignmentID uuid.UUID
	CloserID     *uuid.UUID
	Unassigned   bool
}

// Router allocates a lead to an eligible closer.
type Router interface {
	AssignLead(ctx context.Context, scope tenant.Scope, leadID uuid.UUID, interestTag string) (AssignOutcome, error)
	ReleaseForLeadTx(ctx context.Context, tx pgx.Tx, scope tenant.Scope, leadID uuid.UUID) (released bool, closerID uuid.UUID, err error)
}

// SoldLead carries the fields the commission engine needs on the sold edge.
type SoldLead struct {
	LeadID     uuid.UUID
	ReferrerID *uuid.UUID
	SoldValue  *float64
}

// CommissionResult reports what the commission engine did for a sale.
type CommissionResult struct {
	CommissionID *uuid.UUID
	Value        float64
	Created      bool
	AlreadyPaid  bool
	Skipped      bool
	SkipReason   string
}

// CommissionSettler creates the referral commission inside the sold
// transition's transaction.
type CommissionSettler interface {
	SettleOnSoldTx(ctx context.Context, tx pgx.Tx, scope tenant.Scope, lead SoldLead) (CommissionResult, error)
}

// TaskScheduler queues background rescoring work. Deployments without a
// job queue run without one; callers treat it as optional.
type TaskScheduler interface {
	ScheduleLeadRescore(ctx context.Context, orgID, leadID uuid.UUID) error
}

// AuditEntry is one append-only audit record.
type AuditEntry struct {
	EntityType string
	EntityID   uuid.UUID
	OldState   string
	NewState   string
	Actor      string
}

// Auditor appends audit entries, inside or outside a transaction.
type Auditor interface {
	Record(ctx context.Context, scope tenant.Scope, entry AuditEntry) error
	RecordTx(ctx context.Context, tx pgx.Tx, scope tenant.Scope, entry AuditEntry) error
}

// Outbox stores notification intents transactionally for post-commit
// delivery. Dispatch failure never affects the writing operation.
type Outbox interface {
	EnqueueTx(ctx context.Context, tx pgx.Tx, orgID uuid.UUID, eventType string, payload any) error
	Enqueue(ctx context.Context, orgID uuid.UUID, eventType string, payload any) error
}
