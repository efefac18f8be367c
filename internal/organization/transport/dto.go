package transport

import (
	"time"

	"mentorcrm_backend/internal/tenant"

	"github.com/google/uuid"
)

type OrganizationResponse struct {
	ID                       uuid.UUID `json:"id"`
	Name                     string    `json:"name"`
	ReferralCommissionAmount float64   `json:"referralCommissionAmount"`
	WarmThreshold            int       `json:"warmThreshold"`
	HotThreshold             int       `json:"hotThreshold"`
	IsActive                 bool      `json:"isActive"`
	CreatedAt                time.Time `json:"createdAt"`
}

func ToOrganizationResponse(org tenant.Organization) OrganizationResponse {
	return OrganizationResponse{
		ID:                       org.ID,
		Name:                     org.Name,
		ReferralCommissionAmount: org.CommissionAmount(),
		WarmThreshold:            org.WarmThreshold,
		HotThreshold:             org.HotThreshold,
		IsActive:                 org.IsActive,
		CreatedAt:                org.CreatedAt,
	}
}

type SetCommissionAmountRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
}

type SetThresholdsRequest struct {
	WarmThreshold int `json:"warmThreshold" validate:"gte=0,lte=100"`
	HotThreshold  int `json:"hotThreshold" validate:"gte=0,lte=100"`
}
