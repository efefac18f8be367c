package service

import (
	"context"
	"errors"

	"mentorcrm_backend/internal/assignment/repository"
	"mentorcrm_backend/internal/events"
	"mentorcrm_backend/internal/leads/ports"
	"mentorcrm_backend/internal/tenant"
	"mentorcrm_backend/platform/apperr"

	"github.com/google/uuid"
)

type CreateCloserParams struct {
	Name             string
	Phone            *string
	Email            *string
	Specializations  []string
	CapacityMax      int
	PerformanceScore float64
}

func (s *Service) CreateCloser(ctx context.Context, scope tenant.Scope, params CreateCloserParams) (repository.Closer, error) {
	if params.CapacityMax < 1 {
		return repository.Closer{}, apperr.Validation("capacity must be at least 1")
	}
	specs := params.Specializations
	if len(specs) == 0 {
		specs = []string{GeneralSpecialization}
	}

	closer, err := s.store.CreateCloser(ctx, repository.CreateCloserParams{
		OrganizationID:   scope.OrganizationID(),
		Name:             params.Name,
		Phone:            params.Phone,
		Email:            params.Email,
		Specializations:  specs,
		CapacityMax:      params.CapacityMax,
		PerformanceScore: params.PerformanceScore,
	})
	if err != nil {
		return repository.Closer{}, apperr.Wrap(apperr.KindInternal, "failed to create closer", err)
	}

	if err := s.auditor.Record(ctx, scope, ports.AuditEntry{
		EntityType: "closer",
		EntityID:   closer.ID,
		OldState:   "",
		NewState:   "created",
		Actor:      scope.Actor(),
	}); err != nil {
		s.log.Error("failed to record closer creation audit", "closer_id", closer.ID, "error", err)
	}

	return closer, nil
}

func (s *Service) GetCloser(ctx context.Context, scope tenant.Scope, closerID uuid.UUID) (repository.Closer, error) {
	closer, err := s.store.GetCloser(ctx, scope.OrganizationID(), closerID)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Closer{}, apperr.NotFound("closer not found")
	}
	if err != nil {
		return repository.Closer{}, apperr.Wrap(apperr.KindInternal, "failed to load closer", err)
	}
	return closer, nil
}

func (s *Service) ListClosers(ctx context.Context, scope tenant.Scope) ([]repository.Closer, error) {
	closers, err := s.store.ListClosers(ctx, scope.OrganizationID())
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list closers", err)
	}
	return closers, nil
}

type UpdateCloserParams = repository.UpdateCloserParams

// UpdateCloser applies a partial update. A capacity increase on a closer
// with queued organization leads frees routing space, so capacity release
// is announced on the bus.
func (s *Service) UpdateCloser(ctx context.Context, scope tenant.Scope, closerID uuid.UUID, params UpdateCloserParams) (repository.Closer, error) {
	if params.CapacityMax != nil && *params.CapacityMax < 1 {
		return repository.Closer{}, apperr.Validation("capacity must be at least 1")
	}

	before, err := s.GetCloser(ctx, scope, closerID)
	if err != nil {
		return repository.Closer{}, err
	}
	if params.CapacityMax != nil && *params.CapacityMax < before.CurrentLoad {
		return repository.Closer{}, apperr.Validation("capacity cannot drop below the current load")
	}

	closer, err := s.store.UpdateCloser(ctx, scope.OrganizationID(), closerID, params)
	if errors.Is(err, repository.ErrCapacityBelowLoad) {
		return repository.Closer{}, apperr.Validation("capacity cannot drop below the current load")
	}
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Closer{}, apperr.NotFound("closer not found")
	}
	if err != nil {
		return repository.Closer{}, apperr.Wrap(apperr.KindInternal, "failed to update closer", err)
	}

	gainedCapacity := closer.IsActive && closer.CapacityMax > before.CapacityMax
	reactivated := closer.IsActive && !before.IsActive
	if gainedCapacity || reactivated {
		s.bus.Publish(ctx, events.CloserCapacityReleased{
			BaseEvent:      events.NewBaseEvent(),
			OrganizationID: scope.OrganizationID(),
			CloserID:       closer.ID,
		})
	}

	return closer, nil
}
