// Package events defines the domain events exchanged between modules.
package events

import "github.com/google/uuid"

// Event names. Subscribers register against these.
const (
	NameLeadSubmitted          = "lead.submitted"
	NameLeadScored             = "lead.scored"
	NameLeadStatusChanged      = "lead.status_changed"
	NameAssignmentCreated      = "assignment.created"
	NameCloserCapacityReleased = "closer.capacity_released"
	NameCommissionCreated      = "commission.created"
	NameCommissionCancelled    = "commission.cancelled"
)

// LeadSubmitted fires after a lead has been ingested, scored, and routed.
type LeadSubmitted struct {
	BaseEvent
	LeadID         uuid.UUID `json:"leadId"`
	OrganizationID uuid.UUID `json:"organizationId"`
}

func (LeadSubmitted) EventName() string { return NameLeadSubmitted }

// LeadScored fires after a lead's score has been recomputed and persisted.
type LeadScored struct {
	BaseEvent
	LeadID         uuid.UUID `json:"leadId"`
	OrganizationID uuid.UUID `json:"organizationId"`
	Score          int       `json:"score"`
	Temperature    string    `json:"temperature"`
}

func (LeadScored) EventName() string { return NameLeadScored }

// LeadStatusChanged fires after a committed status transition.
type LeadStatusChanged struct {
	BaseEvent
	LeadID         uuid.UUID `json:"leadId"`
	OrganizationID uuid.UUID `json:"organizationId"`
	OldStatus      string    `json:"oldStatus"`
	NewStatus      string    `json:"newStatus"`
	Actor          string    `json:"actor"`
}

func (LeadStatusChanged) EventName() string { return NameLeadStatusChanged }

// AssignmentCreated fires after a closer has been claimed for a lead.
// The messaging module consumes it best-effort; delivery failure never
// affects the committed assignment.
type AssignmentCreated struct {
	BaseEvent
	AssignmentID   uuid.UUID `json:"assignmentId"`
	LeadID         uuid.UUID `json:"leadId"`
	CloserID       uuid.UUID `json:"closerId"`
	OrganizationID uuid.UUID `json:"organizationId"`
}

func (AssignmentCreated) EventName() string { return NameAssignmentCreated }

// CloserCapacityReleased fires whenever a closer's load decreases, giving
// queued unassigned leads a chance to be routed.
type CloserCapacityReleased struct {
	BaseEvent
	CloserID       uuid.UUID `json:"closerId"`
	OrganizationID uuid.UUID `json:"organizationId"`
}

func (CloserCapacityReleased) EventName() string { return NameCloserCapacityReleased }

// CommissionCreated fires after a referral commission row has been committed.
type CommissionCreated struct {
	BaseEvent
	CommissionID   uuid.UUID `json:"commissionId"`
	LeadID         uuid.UUID `json:"leadId"`
	ReferrerID     uuid.UUID `json:"referrerId"`
	OrganizationID uuid.UUID `json:"organizationId"`
	Value          float64   `json:"value"`
}

func (CommissionCreated) EventName() string { return NameCommissionCreated }

// CommissionCancelled fires after a commission has been cancelled as part of
// a correction.
type CommissionCancelled struct {
	BaseEvent
	CommissionID   uuid.UUID `json:"commissionId"`
	LeadID         uuid.UUID `json:"leadId"`
	OrganizationID uuid.UUID `json:"organizationId"`
}

func (CommissionCancelled) EventName() string { return NameCommissionCancelled }
