package schemacheck

import (
	"errors"
	"strings"
	"testing"
)

func TestClassify(t *testing.T) {
	rule := Rule{Table: "leads", Columns: []string{"id", "organization_id"}, RequireRLS: true}

	tests := []struct {
		name        string
		tableExists bool
		missing     []string
		rlsEnabled  bool
		err         error
		want        Status
	}{
		{"protected table", true, nil, true, nil, StatusProtected},
		{"rls not enabled", true, nil, false, nil, StatusExists},
		{"table absent", false, nil, false, nil, StatusMissing},
		{"column absent", true, []string{"organization_id"}, true, nil, StatusMissing},
		{"inspection failure", true, nil, true, errors.New("connection reset"), StatusError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := Classify(rule, tc.tableExists, tc.missing, tc.rlsEnabled, tc.err)
			if result.Status != tc.want {
				t.Fatalf("status = %q, want %q", result.Status, tc.want)
			}
		})
	}
}

func TestClassifyMissingColumnsAreNamed(t *testing.T) {
	rule := Rule{Table: "closers", Columns: []string{"capacity_max", "current_load"}}
	result := Classify(rule, true, []string{"capacity_max", "current_load"}, false, nil)

	if result.Status != StatusMissing {
		t.Fatalf("status = %q, want missing", result.Status)
	}
	for _, col := range rule.Columns {
		if !strings.Contains(result.Detail, col) {
			t.Errorf("detail %q does not name column %q", result.Detail, col)
		}
	}
}

func TestDefaultRulesScopeTenantTables(t *testing.T) {
	for _, rule := range DefaultRules() {
		if !rule.RequireRLS {
			continue
		}
		found := false
		for _, col := range rule.Columns {
			if col == "organization_id" {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("tenant table %q has no organization_id column requirement", rule.Table)
		}
	}
}
