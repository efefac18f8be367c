// Package transport contains the HTTP shapes of the commission context.
package transport

import (
	"time"

	"mentorcrm_backend/internal/commission/repository"

	"github.com/google/uuid"
)

type CommissionResponse struct {
	ID         uuid.UUID  `json:"id"`
	LeadID     uuid.UUID  `json:"leadId"`
	ReferrerID uuid.UUID  `json:"referrerId"`
	Amount     float64    `json:"amount"`
	Status     string     `json:"status"`
	PaidAt     *time.Time `json:"paidAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

func ToCommissionResponse(c repository.Commission) CommissionResponse {
	return CommissionResponse{
		ID:         c.ID,
		LeadID:     c.LeadID,
		ReferrerID: c.ReferrerID,
		Amount:     c.Amount,
		Status:     c.Status,
		PaidAt:     c.PaidAt,
		CreatedAt:  c.CreatedAt,
	}
}

type CommissionListResponse struct {
	Commissions []CommissionResponse `json:"commissions"`
}

func ToCommissionListResponse(commissions []repository.Commission) CommissionListResponse {
	out := CommissionListResponse{Commissions: make([]CommissionResponse, 0, len(commissions))}
	for _, c := range commissions {
		out.Commissions = append(out.Commissions, ToCommissionResponse(c))
	}
	return out
}
