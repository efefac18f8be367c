package transport

import (
	"time"

	"mentorcrm_backend/internal/leads/ports"
	"mentorcrm_backend/internal/leads/repository"
	"mentorcrm_backend/internal/leads/scoring"

	"github.com/google/uuid"
)

type SubmitLeadRequest struct {
	OrganizationID  uuid.UUID `json:"organizationId" validate:"required"`
	Name            string    `json:"name" validate:"required,min=2,max=200"`
	Phone           string    `json:"phone" validate:"omitempty,max=32"`
	Email           string    `json:"email" validate:"omitempty,email"`
	Company         string    `json:"company" validate:"omitempty,max=200"`
	Position        string    `json:"position" validate:"omitempty,max=120"`
	Temperature     string    `json:"temperature" validate:"omitempty,oneof=frio morno quente"`
	InterestLevel   string    `json:"interestLevel" validate:"omitempty,oneof=baixo medio alto"`
	InterestTag     string    `json:"interestTag" validate:"omitempty,max=80"`
	HasBudget       bool      `json:"hasBudget"`
	IsDecisionMaker bool      `json:"isDecisionMaker"`
	MainPain        string    `json:"mainPain" validate:"omitempty,max=500"`
	Source          string    `json:"source" validate:"omitempty,max=80"`
	ReferrerID      *uuid.UUID `json:"referrerId"`
}

type TransitionStatusRequest struct {
	Status    string   `json:"status" validate:"required"`
	SoldValue *float64 `json:"soldValue" validate:"omitempty,gt=0"`
}

type UpdateScoringConfigRequest struct {
	Name  string        `json:"name" validate:"required,min=1,max=120"`
	Rules []RuleRequest `json:"rules" validate:"required,min=1,dive"`
}

type RuleRequest struct {
	Key       string  `json:"key" validate:"required"`
	Field     string  `json:"field" validate:"required"`
	Predicate string  `json:"predicate" validate:"required,oneof=present equals gte"`
	Value     string  `json:"value"`
	Threshold float64 `json:"threshold"`
	Weight    int     `json:"weight" validate:"required,min=-100,max=100"`
}

func (r RuleRequest) ToRule() scoring.Rule {
	return scoring.Rule{
		Key:       r.Key,
		Field:     r.Field,
		Predicate: r.Predicate,
		Value:     r.Value,
		Threshold: r.Threshold,
		Weight:    r.Weight,
	}
}

type LeadResponse struct {
	ID               uuid.UUID  `json:"id"`
	OrganizationID   uuid.UUID  `json:"organizationId"`
	Name             string     `json:"name"`
	Phone            *string    `json:"phone,omitempty"`
	Email            *string    `json:"email,omitempty"`
	Company          *string    `json:"company,omitempty"`
	Position         *string    `json:"position,omitempty"`
	Temperature      *string    `json:"temperature,omitempty"`
	InterestLevel    *string    `json:"interestLevel,omitempty"`
	InterestTag      *string    `json:"interestTag,omitempty"`
	HasBudget        bool       `json:"hasBudget"`
	IsDecisionMaker  bool       `json:"isDecisionMaker"`
	MainPain         *string    `json:"mainPain,omitempty"`
	Source           *string    `json:"source,omitempty"`
	ReferrerID       *uuid.UUID `json:"referrerId,omitempty"`
	AssignedCloserID *uuid.UUID `json:"assignedCloserId,omitempty"`
	LeadScore        int        `json:"leadScore"`
	ScoreFactors     []string   `json:"scoreFactors,omitempty"`
	Status           string     `json:"status"`
	SoldValue        *float64   `json:"soldValue,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

func ToLeadResponse(lead repository.Lead) LeadResponse {
	return LeadResponse{
		ID:               lead.ID,
		OrganizationID:   lead.OrganizationID,
		Name:             lead.Name,
		Phone:            lead.Phone,
		Email:            lead.Email,
		Company:          lead.Company,
		Position:         lead.Position,
		Temperature:      lead.Temperature,
		InterestLevel:    lead.InterestLevel,
		InterestTag:      lead.InterestTag,
		HasBudget:        lead.HasBudget,
		IsDecisionMaker:  lead.IsDecisionMaker,
		MainPain:         lead.MainPain,
		Source:           lead.Source,
		ReferrerID:       lead.ReferrerID,
		AssignedCloserID: lead.AssignedCloserID,
		LeadScore:        lead.LeadScore,
		ScoreFactors:     lead.ScoreFactors,
		Status:           lead.Status,
		SoldValue:        lead.SoldValue,
		CreatedAt:        lead.CreatedAt,
		UpdatedAt:        lead.UpdatedAt,
	}
}

type LeadListResponse struct {
	Items []LeadResponse `json:"items"`
	Total int            `json:"total"`
}

type CommissionOutcomeResponse struct {
	Created      bool       `json:"created"`
	CommissionID *uuid.UUID `json:"commissionId,omitempty"`
	Amount       float64    `json:"amount,omitempty"`
	Skipped      bool       `json:"skipped,omitempty"`
	SkipReason   string     `json:"skipReason,omitempty"`
}

type TransitionResponse struct {
	Lead       LeadResponse               `json:"lead"`
	Commission *CommissionOutcomeResponse `json:"commission,omitempty"`
}

func ToTransitionResponse(lead repository.Lead, commission ports.CommissionResult) TransitionResponse {
	resp := TransitionResponse{Lead: ToLeadResponse(lead)}
	if commission.Created || commission.Skipped || commission.CommissionID != nil {
		resp.Commission = &CommissionOutcomeResponse{
			Created:      commission.Created,
			CommissionID: commission.CommissionID,
			Amount:       commission.Value,
			Skipped:      commission.Skipped,
			SkipReason:   commission.SkipReason,
		}
	}
	return resp
}

type ScoringConfigResponse struct {
	ID             uuid.UUID      `json:"id"`
	OrganizationID uuid.UUID      `json:"organizationId"`
	Name           string         `json:"name"`
	Rules          []scoring.Rule `json:"rules"`
	IsActive       bool           `json:"isActive"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

func ToScoringConfigResponse(cfg repository.ScoringConfiguration) ScoringConfigResponse {
	return ScoringConfigResponse{
		ID:             cfg.ID,
		OrganizationID: cfg.OrganizationID,
		Name:           cfg.Name,
		Rules:          cfg.Rules,
		IsActive:       cfg.IsActive,
		CreatedAt:      cfg.CreatedAt,
		UpdatedAt:      cfg.UpdatedAt,
	}
}
