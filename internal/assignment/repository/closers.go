package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

type CreateCloserParams struct {
	OrganizationID   uuid.UUID
	Name             string
	Phone            *string
	Email            *string
	Specializations  []string
	CapacityMax      int
	PerformanceScore float64
}

func (r *Repository) CreateCloser(ctx context.Context, params CreateCloserParams) (Closer, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO closers (organization_id, name, phone, email, specializations, capacity_max, performance_score, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, true)
		RETURNING `+closerColumns,
		params.OrganizationID, params.Name, params.Phone, params.Email,
		params.Specializations, params.CapacityMax, params.PerformanceScore,
	)
	return scanCloser(row)
}

const getCloserQuery = `
	SELECT ` + closerColumns + `
	FROM closers
	WHERE id = $1 AND organization_id = $2`

func (r *Repository) GetCloser(ctx context.Context, orgID, closerID uuid.UUID) (Closer, error) {
	return scanCloser(r.pool.QueryRow(ctx, getCloserQuery, closerID, orgID))
}

const listClosersQuery = `
	SELECT ` + closerColumns + `
	FROM closers
	WHERE organization_id = $1
	ORDER BY name ASC`

func (r *Repository) ListClosers(ctx context.Context, orgID uuid.UUID) ([]Closer, error) {
	rows, err := r.pool.Query(ctx, listClosersQuery, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	closers := make([]Closer, 0)
	for rows.Next() {
		c, err := scanCloser(rows)
		if err != nil {
			return nil, err
		}
		closers = append(closers, c)
	}
	return closers, rows.Err()
}

type UpdateCloserParams struct {
	Name             *string
	Phone            *string
	Email            *string
	Specializations  []string
	CapacityMax      *int
	PerformanceScore *float64
	IsActive         *bool
}

const updateCloserQuery = `
	UPDATE closers SET
		name = COALESCE($3, name),
		phone = COALESCE($4, phone),
		email = COALESCE($5, email),
		specializations = COALESCE($6, specializations),
		capacity_max = COALESCE($7, capacity_max),
		performance_score = COALESCE($8, performance_score),
		is_active = COALESCE($9, is_active),
		updated_at = now()
	WHERE id = $1 AND organization_id = $2
	  AND ($7::int IS NULL OR $7 >= current_load)
	RETURNING ` + closerColumns

// UpdateCloser applies a partial update. current_load <= capacity_max
// holds at all times, so a capacity shrink below the load already
// claimed is rejected; the caller must wait for the load to drain.
func (r *Repository) UpdateCloser(ctx context.Context, orgID, closerID uuid.UUID, params UpdateCloserParams) (Closer, error) {
	row := r.pool.QueryRow(ctx, updateCloserQuery,
		closerID, orgID, params.Name, params.Phone, params.Email,
		params.Specializations, params.CapacityMax, params.PerformanceScore, params.IsActive,
	)
	closer, err := scanCloser(row)
	if errors.Is(err, ErrNotFound) && params.CapacityMax != nil {
		if _, getErr := r.GetCloser(ctx, orgID, closerID); getErr == nil {
			return Closer{}, ErrCapacityBelowLoad
		}
	}
	return closer, err
}
