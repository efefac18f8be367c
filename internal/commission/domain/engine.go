// Package domain holds the referral commission decision rules.
package domain

import "mentorcrm_backend/internal/leads/ports"

// Commission status values. A cancelled commission no longer blocks a new
// one for the same lead.
const (
	StatusPending   = "pending"
	StatusPaid      = "paid"
	StatusCancelled = "cancelled"
)

// Decision is the outcome of evaluating a sale for a referral payout.
type Decision struct {
	Create     bool
	Value      float64
	SkipReason string
}

// Decide evaluates whether a sold lead earns its referrer a commission.
// The payout is the organization's fixed referral amount and does not
// scale with the sale value.
func Decide(lead ports.SoldLead, fixedAmount float64) Decision {
	if lead.ReferrerID == nil {
		return Decision{SkipReason: "lead has no referrer"}
	}
	if lead.SoldValue == nil || *lead.SoldValue <= 0 {
		return Decision{SkipReason: "sale has no positive value"}
	}
	if fixedAmount <= 0 {
		return Decision{SkipReason: "organization commission amount is not configured"}
	}
	return Decision{Create: true, Value: fixedAmount}
}
