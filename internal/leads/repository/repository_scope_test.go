package repository

import (
	"strings"
	"testing"
)

func TestGetLeadQueryIsTenantScoped(t *testing.T) {
	query := strings.ToLower(getLeadQuery)

	if !strings.Contains(query, "where id = $1 and organization_id = $2") {
		t.Fatal("lead lookup must filter by organization_id")
	}
}

func TestUpdateScoreQueryIsTenantScoped(t *testing.T) {
	query := strings.ToLower(updateScoreQuery)

	if !strings.Contains(query, "where id = $1 and organization_id = $2") {
		t.Fatal("score update must filter by organization_id")
	}
}

func TestUpdateStatusQueryGuardsPreviousStatus(t *testing.T) {
	query := strings.ToLower(updateStatusTxQuery)

	requiredFragments := []string{
		"organization_id = $2",
		"and status = $5",
	}
	for _, fragment := range requiredFragments {
		if !strings.Contains(query, fragment) {
			t.Fatalf("expected status update fragment %q to be present", fragment)
		}
	}
}

func TestExistsAnyOrgQueryReturnsNoLeadData(t *testing.T) {
	query := strings.ToLower(existsAnyOrgQuery)

	if !strings.Contains(query, "select exists") {
		t.Fatal("existence probe must be an EXISTS query")
	}
	for _, column := range []string{"phone", "email", "name", "sold_value"} {
		if strings.Contains(query, column) {
			t.Fatalf("existence probe must not select lead column %q", column)
		}
	}
}

func TestListUnassignedQueryExcludesTerminalLeads(t *testing.T) {
	query := strings.ToLower(listUnassignedQuery)

	requiredFragments := []string{
		"organization_id = $1",
		"assigned_closer_id is null",
		"status not in ('sold', 'lost')",
	}
	for _, fragment := range requiredFragments {
		if !strings.Contains(query, fragment) {
			t.Fatalf("expected unassigned queue fragment %q to be present", fragment)
		}
	}
}

func TestGetActiveConfigQueryIsTenantScoped(t *testing.T) {
	query := strings.ToLower(getActiveConfigQuery)

	if !strings.Contains(query, "organization_id = $1 and is_active = true") {
		t.Fatal("active config lookup must be tenant scoped")
	}
}
