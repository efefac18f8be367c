package service

import (
	"context"
	"errors"

	"mentorcrm_backend/internal/commission/domain"
	"mentorcrm_backend/internal/commission/repository"
	"mentorcrm_backend/internal/events"
	"mentorcrm_backend/internal/leads/ports"
	"mentorcrm_backend/internal/tenant"
	"mentorcrm_backend/platform/apperr"
	"mentorcrm_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Service struct {
	repo      *repository.Repository
	directory *tenant.Directory
	auditor   ports.Auditor
	outbox    ports.Outbox
	bus       events.Bus
	log       *logger.Logger
}

func New(
	repo *repository.Repository,
	directory *tenant.Directory,
	auditor ports.Auditor,
	outbox ports.Outbox,
	bus events.Bus,
	log *logger.Logger,
) *Service {
	return &Service{repo: repo, directory: directory, auditor: auditor, outbox: outbox, bus: bus, log: log}
}

// SettleOnSoldTx evaluates the referral payout for a sold lead and writes
// the commission inside the sold transition's transaction. A lead that
// already has a live commission is a no-op returning the existing row, so
// re-closing a reopened lead never pays twice.
func (s *Service) SettleOnSoldTx(ctx context.Context, tx pgx.Tx, scope tenant.Scope, lead ports.SoldLead) (ports.CommissionResult, error) {
	org, err := s.directory.Organization(ctx, scope)
	if err != nil {
		return ports.CommissionResult{}, err
	}

	decision := domain.Decide(lead, org.CommissionAmount())
	if !decision.Create {
		s.log.Info("commission skipped",
			"lead_id", lead.LeadID,
			"organization_id", scope.OrganizationID(),
			"reason", decision.SkipReason,
		)
		return ports.CommissionResult{Skipped: true, SkipReason: decision.SkipReason}, nil
	}

	commission, created, err := s.repo.CreateTx(ctx, tx, scope, repository.CreateParams{
		LeadID:     lead.LeadID,
		ReferrerID: *lead.ReferrerID,
		Amount:     decision.Value,
	})
	if err != nil {
		return ports.CommissionResult{}, apperr.Wrap(apperr.KindInternal, "failed to create commission", err)
	}

	result := ports.CommissionResult{
		CommissionID: &commission.ID,
		Value:        commission.Amount,
		Created:      created,
		AlreadyPaid:  commission.Paid(),
	}
	if !created {
		return result, nil
	}

	if err := s.auditor.RecordTx(ctx, tx, scope, ports.AuditEntry{
		EntityType: "commission",
		EntityID:   commission.ID,
		OldState:   "",
		NewState:   domain.StatusPending,
		Actor:      scope.Actor(),
	}); err != nil {
		return ports.CommissionResult{}, err
	}

	if err := s.outbox.EnqueueTx(ctx, tx, scope.OrganizationID(), events.NameCommissionCreated, map[string]any{
		"commission_id": commission.ID,
		"lead_id":       lead.LeadID,
		"referrer_id":   commission.ReferrerID,
		"amount":        commission.Amount,
	}); err != nil {
		return ports.CommissionResult{}, err
	}

	return result, nil
}

func (s *Service) Get(ctx context.Context, scope tenant.Scope, commissionID uuid.UUID) (repository.Commission, error) {
	commission, err := s.repo.Get(ctx, scope, commissionID)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Commission{}, s.classifyMiss(ctx, scope, commissionID)
	}
	if err != nil {
		return repository.Commission{}, apperr.Wrap(apperr.KindInternal, "failed to load commission", err)
	}
	return commission, nil
}

func (s *Service) List(ctx context.Context, scope tenant.Scope, filter repository.ListFilter) ([]repository.Commission, error) {
	if filter.Status != "" &&
		filter.Status != domain.StatusPending &&
		filter.Status != domain.StatusPaid &&
		filter.Status != domain.StatusCancelled {
		return nil, apperr.Validation("unknown commission status")
	}

	commissions, err := s.repo.List(ctx, scope, filter)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list commissions", err)
	}
	return commissions, nil
}

// MarkPaid settles a pending commission. Paying a paid or cancelled
// commission is a state conflict, not a silent success.
func (s *Service) MarkPaid(ctx context.Context, scope tenant.Scope, commissionID uuid.UUID) (repository.Commission, error) {
	commission, err := s.repo.MarkPaid(ctx, scope, commissionID)
	if errors.Is(err, repository.ErrNotFound) {
		existing, getErr := s.Get(ctx, scope, commissionID)
		if getErr != nil {
			return repository.Commission{}, getErr
		}
		return repository.Commission{}, apperr.Conflict("commission is " + existing.Status + " and cannot be paid")
	}
	if err != nil {
		return repository.Commission{}, apperr.Wrap(apperr.KindInternal, "failed to pay commission", err)
	}

	if err := s.auditor.Record(ctx, scope, ports.AuditEntry{
		EntityType: "commission",
		EntityID:   commission.ID,
		OldState:   domain.StatusPending,
		NewState:   domain.StatusPaid,
		Actor:      scope.Actor(),
	}); err != nil {
		s.log.Error("failed to record commission payment audit", "commission_id", commission.ID, "error", err)
	}

	return commission, nil
}

// CancelAndRecreate replaces a pending commission with a fresh one at the
// organization's current fixed amount. The correction path for payouts
// created before an amount change.
func (s *Service) CancelAndRecreate(ctx context.Context, scope tenant.Scope, commissionID uuid.UUID) (repository.Commission, error) {
	org, err := s.directory.Organization(ctx, scope)
	if err != nil {
		return repository.Commission{}, err
	}

	replacement, err := s.repo.CancelAndRecreate(ctx, scope, commissionID, org.CommissionAmount())
	if errors.Is(err, repository.ErrNotFound) {
		existing, getErr := s.Get(ctx, scope, commissionID)
		if getErr != nil {
			return repository.Commission{}, getErr
		}
		return repository.Commission{}, apperr.Conflict("commission is " + existing.Status + " and cannot be replaced")
	}
	if err != nil {
		return repository.Commission{}, apperr.Wrap(apperr.KindInternal, "failed to replace commission", err)
	}

	if err := s.auditor.Record(ctx, scope, ports.AuditEntry{
		EntityType: "commission",
		EntityID:   commissionID,
		OldState:   domain.StatusPending,
		NewState:   domain.StatusCancelled,
		Actor:      scope.Actor(),
	}); err != nil {
		s.log.Error("failed to record commission cancellation audit", "commission_id", commissionID, "error", err)
	}

	s.bus.Publish(ctx, events.CommissionCancelled{
		BaseEvent:      events.NewBaseEvent(),
		CommissionID:   commissionID,
		LeadID:         replacement.LeadID,
		OrganizationID: scope.OrganizationID(),
	})
	s.bus.Publish(ctx, events.CommissionCreated{
		BaseEvent:      events.NewBaseEvent(),
		CommissionID:   replacement.ID,
		LeadID:         replacement.LeadID,
		ReferrerID:     replacement.ReferrerID,
		OrganizationID: scope.OrganizationID(),
		Value:          replacement.Amount,
	})

	return replacement, nil
}

// classifyMiss distinguishes a genuine miss from a cross-tenant probe.
// A commission that exists in another organization must be reported
// exactly like one that does not exist, after logging the attempt.
func (s *Service) classifyMiss(ctx context.Context, scope tenant.Scope, commissionID uuid.UUID) error {
	exists, err := s.repo.ExistsAnyOrg(ctx, commissionID)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to classify commission miss", err)
	}
	if exists {
		s.log.SecurityEvent("cross_tenant_commission_access",
			scope.UserID().String(), scope.OrganizationID().String(), commissionID.String(), nil)
		return apperr.TenantViolation("commission not found")
	}
	return apperr.NotFound("commission not found")
}

var _ ports.CommissionSettler = (*Service)(nil)
