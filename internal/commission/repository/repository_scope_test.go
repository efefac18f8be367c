package repository

import (
	"strings"
	"testing"
)

func TestInsertCommissionQueryUsesLiveUniqueConflictTarget(t *testing.T) {
	query := strings.ToLower(insertCommissionQuery)

	requiredFragments := []string{
		"on conflict (lead_id) where status <> 'cancelled' do nothing",
		"values ($1, $2, $3, $4, 'pending')",
	}
	for _, fragment := range requiredFragments {
		if !strings.Contains(query, fragment) {
			t.Fatalf("expected insert fragment %q to be present", fragment)
		}
	}
}

func TestCommissionLookupsAreTenantScoped(t *testing.T) {
	queries := map[string]string{
		"get":    getCommissionQuery,
		"list":   listCommissionsQuery,
		"paid":   markPaidQuery,
		"cancel": cancelPendingQuery,
		"byLead": getLiveByLeadQuery,
	}

	for name, query := range queries {
		if !strings.Contains(strings.ToLower(query), "organization_id = $") {
			t.Errorf("query %q is missing the organization filter", name)
		}
	}
}

func TestMarkPaidOnlyTouchesPendingCommissions(t *testing.T) {
	query := strings.ToLower(markPaidQuery)
	if !strings.Contains(query, "status = 'pending'") {
		t.Fatal("paying must be restricted to pending commissions")
	}
}

func TestCancelOnlyTouchesPendingCommissions(t *testing.T) {
	query := strings.ToLower(cancelPendingQuery)
	if !strings.Contains(query, "status = 'pending'") {
		t.Fatal("cancellation must be restricted to pending commissions")
	}
}
