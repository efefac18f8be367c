package domain

import (
	"testing"

	"mentorcrm_backend/internal/leads/ports"

	"github.com/google/uuid"
)

func ptr[T any](v T) *T { return &v }

func TestDecideFixedAmountIgnoresSaleValue(t *testing.T) {
	lead := ports.SoldLead{
		LeadID:     uuid.New(),
		ReferrerID: ptr(uuid.New()),
		SoldValue:  ptr(9000.00),
	}

	decision := Decide(lead, 2000.00)
	if !decision.Create {
		t.Fatalf("expected a commission, got skip: %s", decision.SkipReason)
	}
	if decision.Value != 2000.00 {
		t.Fatalf("commission value = %.2f, want 2000.00", decision.Value)
	}
}

func TestDecideSkips(t *testing.T) {
	referrer := ptr(uuid.New())

	tests := []struct {
		name   string
		lead   ports.SoldLead
		amount float64
	}{
		{"no referrer", ports.SoldLead{SoldValue: ptr(5000.00)}, 2000.00},
		{"nil sale value", ports.SoldLead{ReferrerID: referrer}, 2000.00},
		{"zero sale value", ports.SoldLead{ReferrerID: referrer, SoldValue: ptr(0.0)}, 2000.00},
		{"negative sale value", ports.SoldLead{ReferrerID: referrer, SoldValue: ptr(-10.0)}, 2000.00},
		{"unconfigured amount", ports.SoldLead{ReferrerID: referrer, SoldValue: ptr(5000.00)}, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			decision := Decide(tc.lead, tc.amount)
			if decision.Create {
				t.Fatal("expected the commission to be skipped")
			}
			if decision.SkipReason == "" {
				t.Fatal("skip must carry a reason")
			}
		})
	}
}
