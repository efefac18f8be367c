package repository

import (
	"strings"
	"testing"
)

func TestListEligibleQueryFiltersCapacityAndTenant(t *testing.T) {
	query := strings.ToLower(listEligibleQuery)

	requiredFragments := []string{
		"organization_id = $1",
		"is_active = true",
		"current_load < capacity_max",
	}
	for _, fragment := range requiredFragments {
		if !strings.Contains(query, fragment) {
			t.Fatalf("expected eligibility fragment %q to be present", fragment)
		}
	}
}

func TestClaimCloserQueryUsesObservedLoadGuard(t *testing.T) {
	query := strings.ToLower(claimCloserQuery)

	requiredFragments := []string{
		"set current_load = current_load + 1",
		"organization_id = $2",
		"current_load = $3",
		"current_load < capacity_max",
	}
	for _, fragment := range requiredFragments {
		if !strings.Contains(query, fragment) {
			t.Fatalf("expected claim guard fragment %q to be present", fragment)
		}
	}
}

func TestReleaseAssignmentQueryTouchesOnlyActiveAssignment(t *testing.T) {
	query := strings.ToLower(releaseAssignmentQuery)

	requiredFragments := []string{
		"organization_id = $1",
		"released_at is null",
	}
	for _, fragment := range requiredFragments {
		if !strings.Contains(query, fragment) {
			t.Fatalf("expected release fragment %q to be present", fragment)
		}
	}
}

func TestDecrementLoadQueryNeverGoesNegative(t *testing.T) {
	query := strings.ToLower(decrementLoadQuery)

	if !strings.Contains(query, "current_load > 0") {
		t.Fatal("load decrement must guard against negative load")
	}
}

func TestUpdateCloserQueryRejectsCapacityBelowLoad(t *testing.T) {
	query := strings.ToLower(updateCloserQuery)

	requiredFragments := []string{
		"organization_id = $2",
		"($7::int is null or $7 >= current_load)",
	}
	for _, fragment := range requiredFragments {
		if !strings.Contains(query, fragment) {
			t.Fatalf("expected capacity guard fragment %q to be present", fragment)
		}
	}
}

func TestCloserLookupsAreTenantScoped(t *testing.T) {
	for name, query := range map[string]string{
		"get":  getCloserQuery,
		"list": listClosersQuery,
	} {
		if !strings.Contains(strings.ToLower(query), "organization_id = $") {
			t.Fatalf("%s closer query must filter by organization_id", name)
		}
	}
}

func TestLeadInterestTagQueryExcludesClosedLeads(t *testing.T) {
	query := strings.ToLower(leadInterestTagQuery)

	requiredFragments := []string{
		"organization_id = $2",
		"status not in ('sold', 'lost')",
	}
	for _, fragment := range requiredFragments {
		if !strings.Contains(query, fragment) {
			t.Fatalf("expected routing lookup fragment %q to be present", fragment)
		}
	}
}
