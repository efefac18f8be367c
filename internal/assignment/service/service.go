package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"mentorcrm_backend/internal/assignment/repository"
	"mentorcrm_backend/internal/events"
	"mentorcrm_backend/internal/leads/ports"
	"mentorcrm_backend/internal/tenant"
	"mentorcrm_backend/platform/apperr"
	"mentorcrm_backend/platform/config"
	"mentorcrm_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// GeneralSpecialization matches every interest tag.
const GeneralSpecialization = "geral"

// Store is the persistence contract of the routing engine. The claim
// operations use compare-and-swap semantics on the closer's observed load.
type Store interface {
	ListEligible(ctx context.Context, orgID uuid.UUID) ([]repository.Closer, error)
	LeadInterestTag(ctx context.Context, scope tenant.Scope, leadID uuid.UUID) (string, error)
	Claim(ctx context.Context, params repository.ClaimParams) (repository.Assignment, error)
	Reassign(ctx context.Context, params repository.ReassignParams) (repository.Assignment, *uuid.UUID, error)
	ReleaseForLeadTx(ctx context.Context, tx pgx.Tx, scope tenant.Scope, leadID uuid.UUID) (bool, uuid.UUID, error)
	GetCloser(ctx context.Context, orgID, closerID uuid.UUID) (repository.Closer, error)
	ListClosers(ctx context.Context, orgID uuid.UUID) ([]repository.Closer, error)
	CreateCloser(ctx context.Context, params repository.CreateCloserParams) (repository.Closer, error)
	UpdateCloser(ctx context.Context, orgID, closerID uuid.UUID, params repository.UpdateCloserParams) (repository.Closer, error)
}

type Service struct {
	store   Store
	auditor ports.Auditor
	bus     events.Bus
	cfg     config.RoutingConfig
	log     *logger.Logger
}

func New(store Store, auditor ports.Auditor, bus events.Bus, cfg config.RoutingConfig, log *logger.Logger) *Service {
	return &Service{store: store, auditor: auditor, bus: bus, cfg: cfg, log: log}
}

// AssignLead allocates the lead to the best eligible closer. When every
// claim attempt loses the race, the pool is re-read and the allocation
// retried up to the configured bound; an empty pool queues the lead as
// unassigned, which is a valid outcome rather than an error.
func (s *Service) AssignLead(ctx context.Context, scope tenant.Scope, leadID uuid.UUID, interestTag string) (ports.AssignOutcome, error) {
	maxAttempts := s.cfg.GetAssignMaxAttempts()
	if maxAttempts < 1 {
		maxAttempts = 3
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		candidates, err := s.eligibleCandidates(ctx, scope.OrganizationID(), interestTag)
		if err != nil {
			return ports.AssignOutcome{}, apperr.Wrap(apperr.KindInternal, "failed to list eligible closers", err)
		}

		if len(candidates) == 0 {
			return s.queueUnassigned(ctx, scope, leadID)
		}

		candidate := candidates[0]
		assignment, err := s.store.Claim(ctx, repository.ClaimParams{
			Scope:        scope,
			LeadID:       leadID,
			CloserID:     candidate.ID,
			ObservedLoad: candidate.CurrentLoad,
			CloserPhone:  candidate.Phone,
			Actor:        scope.Actor(),
		})
		if errors.Is(err, repository.ErrClaimConflict) {
			s.backoff(ctx, attempt)
			continue
		}
		if errors.Is(err, repository.ErrOrganizationInactive) {
			return ports.AssignOutcome{}, apperr.Forbidden("organization is inactive")
		}
		if err != nil {
			return ports.AssignOutcome{}, apperr.Wrap(apperr.KindInternal, "failed to claim closer", err)
		}

		closerID := candidate.ID
		s.bus.Publish(ctx, events.AssignmentCreated{
			BaseEvent:      events.NewBaseEvent(),
			OrganizationID: scope.OrganizationID(),
			AssignmentID:   assignment.ID,
			LeadID:         leadID,
			CloserID:       closerID,
		})

		return ports.AssignOutcome{AssignmentID: assignment.ID, CloserID: &closerID}, nil
	}

	return ports.AssignOutcome{}, apperr.CapacityConflict("could not claim a closer after repeated attempts")
}

// AssignLeadByID routes an open lead looked up by ID. Used by the manual
// assignment endpoint, where the caller knows the lead but not its tag.
func (s *Service) AssignLeadByID(ctx context.Context, scope tenant.Scope, leadID uuid.UUID) (ports.AssignOutcome, error) {
	tag, err := s.store.LeadInterestTag(ctx, scope, leadID)
	if errors.Is(err, repository.ErrLeadNotRoutable) {
		return ports.AssignOutcome{}, apperr.NotFound("lead not found or already closed")
	}
	if err != nil {
		return ports.AssignOutcome{}, apperr.Wrap(apperr.KindInternal, "failed to load lead for routing", err)
	}
	return s.AssignLead(ctx, scope, leadID, tag)
}

// Reassign moves the lead to a specific closer, releasing the previous
// one in the same transaction. The target must itself be eligible.
func (s *Service) Reassign(ctx context.Context, scope tenant.Scope, leadID, targetCloserID uuid.UUID, actor string) (repository.Assignment, error) {
	maxAttempts := s.cfg.GetAssignMaxAttempts()
	if maxAttempts < 1 {
		maxAttempts = 3
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		target, err := s.store.GetCloser(ctx, scope.OrganizationID(), targetCloserID)
		if errors.Is(err, repository.ErrNotFound) {
			return repository.Assignment{}, apperr.NotFound("closer not found")
		}
		if err != nil {
			return repository.Assignment{}, apperr.Wrap(apperr.KindInternal, "failed to load closer", err)
		}
		if !target.IsActive {
			return repository.Assignment{}, apperr.Validation("closer is not active")
		}
		if target.CurrentLoad >= target.CapacityMax {
			return repository.Assignment{}, apperr.CapacityConflict("closer has no spare capacity")
		}

		assignment, releasedCloserID, err := s.store.Reassign(ctx, repository.ReassignParams{
			Scope:          scope,
			LeadID:         leadID,
			TargetCloserID: targetCloserID,
			ObservedLoad:   target.CurrentLoad,
			CloserPhone:    target.Phone,
			Actor:          actor,
		})
		if errors.Is(err, repository.ErrClaimConflict) {
			s.backoff(ctx, attempt)
			continue
		}
		if errors.Is(err, repository.ErrOrganizationInactive) {
			return repository.Assignment{}, apperr.Forbidden("organization is inactive")
		}
		if err != nil {
			return repository.Assignment{}, apperr.Wrap(apperr.KindInternal, "failed to reassign lead", err)
		}

		s.bus.Publish(ctx, events.AssignmentCreated{
			BaseEvent:      events.NewBaseEvent(),
			OrganizationID: scope.OrganizationID(),
			AssignmentID:   assignment.ID,
			LeadID:         leadID,
			CloserID:       targetCloserID,
		})
		if releasedCloserID != nil && *releasedCloserID != targetCloserID {
			s.bus.Publish(ctx, events.CloserCapacityReleased{
				BaseEvent:      events.NewBaseEvent(),
				OrganizationID: scope.OrganizationID(),
				CloserID:       *releasedCloserID,
			})
		}

		return assignment, nil
	}

	return repository.Assignment{}, apperr.CapacityConflict("could not claim target closer after repeated attempts")
}

// ReleaseForLeadTx frees the lead's closer inside the caller's
// transaction. Part of the ports.Router contract used by the lead
// state machine on terminal transitions.
func (s *Service) ReleaseForLeadTx(ctx context.Context, tx pgx.Tx, scope tenant.Scope, leadID uuid.UUID) (bool, uuid.UUID, error) {
	released, closerID, err := s.store.ReleaseForLeadTx(ctx, tx, scope, leadID)
	if err != nil {
		return false, uuid.Nil, apperr.Wrap(apperr.KindInternal, "failed to release assignment", err)
	}
	return released, closerID, nil
}

func (s *Service) eligibleCandidates(ctx context.Context, orgID uuid.UUID, interestTag string) ([]repository.Closer, error) {
	closers, err := s.store.ListEligible(ctx, orgID)
	if err != nil {
		return nil, err
	}

	candidates := make([]repository.Closer, 0, len(closers))
	for _, closer := range closers {
		if MatchesSpecialization(closer.Specializations, interestTag) {
			candidates = append(candidates, closer)
		}
	}

	SortCandidates(candidates)
	return candidates, nil
}

func (s *Service) queueUnassigned(ctx context.Context, scope tenant.Scope, leadID uuid.UUID) (ports.AssignOutcome, error) {
	if err := s.auditor.Record(ctx, scope, ports.AuditEntry{
		EntityType: "assignment",
		EntityID:   leadID,
		OldState:   "",
		NewState:   "unassigned",
		Actor:      scope.Actor(),
	}); err != nil {
		s.log.Error("failed to record unassigned audit", "lead_id", leadID, "error", err)
	}

	s.log.Info("no eligible closer, lead queued", "lead_id", leadID, "organization_id", scope.OrganizationID())
	return ports.AssignOutcome{Unassigned: true}, nil
}

func (s *Service) backoff(ctx context.Context, attempt int) {
	base := s.cfg.GetAssignRetryBaseDelay()
	if base <= 0 {
		base = 25 * time.Millisecond
	}
	select {
	case <-time.After(time.Duration(attempt*attempt) * base):
	case <-ctx.Done():
	}
}

// MatchesSpecialization reports whether a closer can take a lead with the
// given interest tag. The generic specialization matches everything, and
// a lead without a tag is only routed to generalists.
func MatchesSpecialization(specializations []string, interestTag string) bool {
	for _, spec := range specializations {
		if spec == GeneralSpecialization {
			return true
		}
		if interestTag != "" && spec == interestTag {
			return true
		}
	}
	return false
}

// SortCandidates orders closers by spare capacity first (lowest load),
// then performance, then least recently assigned as a round-robin
// fallback. A closer never assigned sorts before any assigned one.
func SortCandidates(candidates []repository.Closer) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.CurrentLoad != b.CurrentLoad {
			return a.CurrentLoad < b.CurrentLoad
		}
		if a.PerformanceScore != b.PerformanceScore {
			return a.PerformanceScore > b.PerformanceScore
		}
		switch {
		case a.LastAssignedAt == nil && b.LastAssignedAt == nil:
			return false
		case a.LastAssignedAt == nil:
			return true
		case b.LastAssignedAt == nil:
			return false
		default:
			return a.LastAssignedAt.Before(*b.LastAssignedAt)
		}
	})
}

var _ ports.Router = (*Service)(nil)
