package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"mentorcrm_backend/internal/leads/scoring"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var ErrConfigNotFound = errors.New("scoring configuration not found")

type ScoringConfiguration struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	Name           string
	Rules          []scoring.Rule
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

const getActiveConfigQuery = `
	SELECT id, organization_id, name, rules, is_active, created_at, updated_at
	FROM scoring_configurations
	WHERE organization_id = $1 AND is_active = true`

func (r *Repository) GetActiveConfig(ctx context.Context, orgID uuid.UUID) (ScoringConfiguration, error) {
	var cfg ScoringConfiguration
	var rawRules []byte
	err := r.pool.QueryRow(ctx, getActiveConfigQuery, orgID).Scan(
		&cfg.ID,
		&cfg.OrganizationID,
		&cfg.Name,
		&rawRules,
		&cfg.IsActive,
		&cfg.CreatedAt,
		&cfg.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return ScoringConfiguration{}, ErrConfigNotFound
	}
	if err != nil {
		return ScoringConfiguration{}, err
	}
	if err := json.Unmarshal(rawRules, &cfg.Rules); err != nil {
		return ScoringConfiguration{}, err
	}
	return cfg, nil
}

// ReplaceActiveConfig deactivates the current active configuration and
// installs the given rule set as the single active one, atomically. The
// partial unique index on (organization_id) WHERE is_active makes a second
// concurrent activation fail instead of leaving two actives.
func (r *Repository) ReplaceActiveConfig(ctx context.Context, orgID uuid.UUID, name string, rules []scoring.Rule) (ScoringConfiguration, error) {
	rawRules, err := json.Marshal(rules)
	if err != nil {
		return ScoringConfiguration{}, err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return ScoringConfiguration{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, `
		UPDATE scoring_configurations
		SET is_active = false, updated_at = now()
		WHERE organization_id = $1 AND is_active = true
	`, orgID); err != nil {
		return ScoringConfiguration{}, err
	}

	var cfg ScoringConfiguration
	var storedRules []byte
	err = tx.QueryRow(ctx, `
		INSERT INTO scoring_configurations (organization_id, name, rules, is_active)
		VALUES ($1, $2, $3, true)
		RETURNING id, organization_id, name, rules, is_active, created_at, updated_at
	`, orgID, name, rawRules).Scan(
		&cfg.ID,
		&cfg.OrganizationID,
		&cfg.Name,
		&storedRules,
		&cfg.IsActive,
		&cfg.CreatedAt,
		&cfg.UpdatedAt,
	)
	if err != nil {
		return ScoringConfiguration{}, err
	}
	if err = json.Unmarshal(storedRules, &cfg.Rules); err != nil {
		return ScoringConfiguration{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return ScoringConfiguration{}, err
	}
	return cfg, nil
}
