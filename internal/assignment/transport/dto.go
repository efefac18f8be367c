// Package transport contains the HTTP request and response shapes of the
// assignment bounded context.
package transport

import (
	"time"

	"mentorcrm_backend/internal/assignment/repository"
	"mentorcrm_backend/internal/leads/ports"

	"github.com/google/uuid"
)

type CreateCloserRequest struct {
	Name             string   `json:"name" validate:"required,min=2,max=120"`
	Phone            *string  `json:"phone" validate:"omitempty,min=8,max=20"`
	Email            *string  `json:"email" validate:"omitempty,email"`
	Specializations  []string `json:"specializations" validate:"omitempty,dive,min=2,max=60"`
	CapacityMax      int      `json:"capacityMax" validate:"required,min=1"`
	PerformanceScore float64  `json:"performanceScore" validate:"omitempty,min=0,max=10"`
}

type UpdateCloserRequest struct {
	Name             *string  `json:"name" validate:"omitempty,min=2,max=120"`
	Phone            *string  `json:"phone" validate:"omitempty,min=8,max=20"`
	Email            *string  `json:"email" validate:"omitempty,email"`
	Specializations  []string `json:"specializations" validate:"omitempty,dive,min=2,max=60"`
	CapacityMax      *int     `json:"capacityMax" validate:"omitempty,min=1"`
	PerformanceScore *float64 `json:"performanceScore" validate:"omitempty,min=0,max=10"`
	IsActive         *bool    `json:"isActive"`
}

type ReassignLeadRequest struct {
	CloserID uuid.UUID `json:"closerId" validate:"required"`
}

type CloserResponse struct {
	ID               uuid.UUID  `json:"id"`
	Name             string     `json:"name"`
	Phone            *string    `json:"phone,omitempty"`
	Email            *string    `json:"email,omitempty"`
	Specializations  []string   `json:"specializations"`
	CapacityMax      int        `json:"capacityMax"`
	CurrentLoad      int        `json:"currentLoad"`
	PerformanceScore float64    `json:"performanceScore"`
	IsActive         bool       `json:"isActive"`
	LastAssignedAt   *time.Time `json:"lastAssignedAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
}

func ToCloserResponse(c repository.Closer) CloserResponse {
	return CloserResponse{
		ID:               c.ID,
		Name:             c.Name,
		Phone:            c.Phone,
		Email:            c.Email,
		Specializations:  c.Specializations,
		CapacityMax:      c.CapacityMax,
		CurrentLoad:      c.CurrentLoad,
		PerformanceScore: c.PerformanceScore,
		IsActive:         c.IsActive,
		LastAssignedAt:   c.LastAssignedAt,
		CreatedAt:        c.CreatedAt,
	}
}

type CloserListResponse struct {
	Closers []CloserResponse `json:"closers"`
}

func ToCloserListResponse(closers []repository.Closer) CloserListResponse {
	out := CloserListResponse{Closers: make([]CloserResponse, 0, len(closers))}
	for _, c := range closers {
		out.Closers = append(out.Closers, ToCloserResponse(c))
	}
	return out
}

type AssignmentResponse struct {
	ID        uuid.UUID `json:"id"`
	LeadID    uuid.UUID `json:"leadId"`
	CloserID  uuid.UUID `json:"closerId"`
	CreatedAt time.Time `json:"createdAt"`
}

func ToAssignmentResponse(a repository.Assignment) AssignmentResponse {
	return AssignmentResponse{
		ID:        a.ID,
		LeadID:    a.LeadID,
		CloserID:  a.CloserID,
		CreatedAt: a.CreatedAt,
	}
}

type AssignOutcomeResponse struct {
	Assigned     bool       `json:"assigned"`
	AssignmentID *uuid.UUID `json:"assignmentId,omitempty"`
	CloserID     *uuid.UUID `json:"closerId,omitempty"`
}

func ToAssignOutcomeResponse(outcome ports.AssignOutcome) AssignOutcomeResponse {
	if outcome.Unassigned {
		return AssignOutcomeResponse{Assigned: false}
	}
	id := outcome.AssignmentID
	return AssignOutcomeResponse{Assigned: true, AssignmentID: &id, CloserID: outcome.CloserID}
}
