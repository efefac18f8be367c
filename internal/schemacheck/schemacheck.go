// Package schemacheck verifies that the live database matches the schema
// the application expects: required tables and columns present, and row
// level security enabled where tenant data lives.
package schemacheck

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Status string

const (
	// StatusExists means the table and all required columns are present.
	StatusExists Status = "exists"
	// StatusProtected means the table is present and has row level
	// security enabled.
	StatusProtected Status = "protected"
	// StatusMissing means the table or one of its required columns is
	// absent.
	StatusMissing Status = "missing"
	// StatusError means the check itself failed.
	StatusError Status = "error"
)

// Rule declares what one table must look like.
type Rule struct {
	Table      string
	Columns    []string
	RequireRLS bool
}

// Result is the outcome of checking one rule.
type Result struct {
	Rule   Rule
	Status Status
	Detail string
}

// DefaultRules covers every table the application writes to. The
// organization_id columns are listed explicitly: a tenant table without
// one cannot be scoped.
func DefaultRules() []Rule {
	return []Rule{
		{Table: "organizations", Columns: []string{"id", "name", "referral_commission_amount", "warm_threshold", "hot_threshold", "is_active"}},
		{Table: "organization_members", Columns: []string{"organization_id", "user_id"}},
		{Table: "users", Columns: []string{"id", "email", "password_hash", "is_active"}},
		{Table: "leads", Columns: []string{"id", "organization_id", "lead_score", "score_factors", "status", "interest_tag", "assigned_closer_id", "referrer_id", "sold_value"}, RequireRLS: true},
		{Table: "closers", Columns: []string{"id", "organization_id", "specializations", "capacity_max", "current_load", "performance_score", "is_active", "last_assigned_at"}, RequireRLS: true},
		{Table: "assignments", Columns: []string{"id", "organization_id", "lead_id", "closer_id", "released_at"}, RequireRLS: true},
		{Table: "commissions", Columns: []string{"id", "organization_id", "lead_id", "referrer_id", "amount", "status", "paid_at"}, RequireRLS: true},
		{Table: "scoring_configurations", Columns: []string{"id", "organization_id", "rules", "is_active"}, RequireRLS: true},
		{Table: "audit_entries", Columns: []string{"id", "organization_id", "entity_type", "entity_id", "old_state", "new_state", "actor"}, RequireRLS: true},
		{Table: "notification_outbox", Columns: []string{"id", "organization_id", "event_type", "payload", "run_at", "status", "attempts"}, RequireRLS: true},
	}
}

// Classify turns raw observations about one table into a tagged result.
// Pure so the tagging rules are testable without a database.
func Classify(rule Rule, tableExists bool, missingColumns []string, rlsEnabled bool, err error) Result {
	if err != nil {
		return Result{Rule: rule, Status: StatusError, Detail: err.Error()}
	}
	if !tableExists {
		return Result{Rule: rule, Status: StatusMissing, Detail: "table does not exist"}
	}
	if len(missingColumns) > 0 {
		return Result{
			Rule:   rule,
			Status: StatusMissing,
			Detail: "missing columns: " + strings.Join(missingColumns, ", "),
		}
	}
	if rule.RequireRLS && !rlsEnabled {
		return Result{Rule: rule, Status: StatusExists, Detail: "row level security not enabled"}
	}
	if rlsEnabled {
		return Result{Rule: rule, Status: StatusProtected}
	}
	return Result{Rule: rule, Status: StatusExists}
}

// Checker runs rules against a live database.
type Checker struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Checker {
	return &Checker{pool: pool}
}

const columnsQuery = `
	SELECT column_name
	FROM information_schema.columns
	WHERE table_schema = 'public' AND table_name = $1`

const rlsQuery = `
	SELECT relrowsecurity
	FROM pg_class
	WHERE oid = to_regclass('public.' || $1)`

// Check evaluates every rule and never aborts early: a broken table must
// not hide the state of the others.
func (c *Checker) Check(ctx context.Context, rules []Rule) []Result {
	results := make([]Result, 0, len(rules))
	for _, rule := range rules {
		results = append(results, c.checkOne(ctx, rule))
	}
	return results
}

func (c *Checker) checkOne(ctx context.Context, rule Rule) Result {
	present, err := c.tableColumns(ctx, rule.Table)
	if err != nil {
		return Classify(rule, false, nil, false, fmt.Errorf("inspect %s: %w", rule.Table, err))
	}
	if len(present) == 0 {
		return Classify(rule, false, nil, false, nil)
	}

	var missing []string
	for _, col := range rule.Columns {
		if !present[col] {
			missing = append(missing, col)
		}
	}

	var rlsEnabled bool
	if err := c.pool.QueryRow(ctx, rlsQuery, rule.Table).Scan(&rlsEnabled); err != nil {
		return Classify(rule, true, missing, false, fmt.Errorf("inspect rls on %s: %w", rule.Table, err))
	}

	return Classify(rule, true, missing, rlsEnabled, nil)
}

func (c *Checker) tableColumns(ctx context.Context, table string) (map[string]bool, error) {
	rows, err := c.pool.Query(ctx, columnsQuery, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		columns[name] = true
	}
	return columns, rows.Err()
}
