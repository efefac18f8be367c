package service

import (
	"context"
	"errors"
	"fmt"

	"mentorcrm_backend/internal/events"
	"mentorcrm_backend/internal/leads/domain"
	"mentorcrm_backend/internal/leads/ports"
	"mentorcrm_backend/internal/leads/repository"
	"mentorcrm_backend/internal/leads/scoring"
	"mentorcrm_backend/internal/tenant"
	"mentorcrm_backend/platform/apperr"
	"mentorcrm_backend/platform/logger"
	"mentorcrm_backend/platform/phone"

	"github.com/google/uuid"
)

type Service struct {
	repo       *repository.Repository
	directory  *tenant.Directory
	router     ports.Router
	commission ports.CommissionSettler
	auditor    ports.Auditor
	outbox     ports.Outbox
	bus        events.Bus
	scheduler  ports.TaskScheduler
	log        *logger.Logger
}

func New(
	repo *repository.Repository,
	directory *tenant.Directory,
	router ports.Router,
	commission ports.CommissionSettler,
	auditor ports.Auditor,
	outbox ports.Outbox,
	bus events.Bus,
	log *logger.Logger,
) *Service {
	return &Service{
		repo:       repo,
		directory:  directory,
		router:     router,
		commission: commission,
		auditor:    auditor,
		outbox:     outbox,
		bus:        bus,
		log:        log,
	}
}

// SetTaskScheduler attaches a job queue for background rescoring. Without
// one, rule changes only affect leads scored afterwards.
func (s *Service) SetTaskScheduler(scheduler ports.TaskScheduler) {
	s.scheduler = scheduler
}

type SubmitLeadParams struct {
	Name            string
	Phone           string
	Email           string
	Company         string
	Position        string
	Temperature     string
	InterestLevel   string
	InterestTag     string
	HasBudget       bool
	IsDecisionMaker bool
	MainPain        string
	Source          string
	ReferrerID      *uuid.UUID
}

// SubmitLead ingests a raw form payload: it creates the lead, computes the
// initial score and immediately attempts routing. Routing failure other
// than a full pool is not fatal to the submission.
func (s *Service) SubmitLead(ctx context.Context, scope tenant.Scope, params SubmitLeadParams) (repository.Lead, error) {
	createParams := repository.CreateLeadParams{
		OrganizationID:  scope.OrganizationID(),
		Name:            params.Name,
		HasBudget:       params.HasBudget,
		IsDecisionMaker: params.IsDecisionMaker,
		ReferrerID:      params.ReferrerID,
	}
	if params.Phone != "" {
		normalized := phone.NormalizeE164(params.Phone)
		createParams.Phone = &normalized
	}
	createParams.Email = optional(params.Email)
	createParams.Company = optional(params.Company)
	createParams.Position = optional(params.Position)
	createParams.Temperature = optional(params.Temperature)
	createParams.InterestLevel = optional(params.InterestLevel)
	createParams.InterestTag = optional(params.InterestTag)
	createParams.MainPain = optional(params.MainPain)
	createParams.Source = optional(params.Source)

	lead, err := s.repo.Create(ctx, createParams)
	if err != nil {
		return repository.Lead{}, apperr.Wrap(apperr.KindInternal, "failed to create lead", err)
	}

	if err := s.auditor.Record(ctx, scope, ports.AuditEntry{
		EntityType: "lead",
		EntityID:   lead.ID,
		OldState:   "",
		NewState:   domain.StatusNew,
		Actor:      scope.Actor(),
	}); err != nil {
		s.log.Error("failed to record lead creation audit", "lead_id", lead.ID, "error", err)
	}

	s.bus.Publish(ctx, events.LeadSubmitted{
		BaseEvent:      events.NewBaseEvent(),
		OrganizationID: lead.OrganizationID,
		LeadID:         lead.ID,
	})

	lead, err = s.scoreAndStore(ctx, scope, lead)
	if err != nil {
		return repository.Lead{}, err
	}

	outcome, err := s.router.AssignLead(ctx, scope, lead.ID, interestTag(lead))
	if err != nil {
		// The lead is created and scored; surface routing trouble in the
		// log and leave the lead queued instead of failing the intake.
		s.log.Error("initial routing failed", "lead_id", lead.ID, "error", err)
		return lead, nil
	}
	if outcome.CloserID != nil {
		lead.AssignedCloserID = outcome.CloserID
	}

	return lead, nil
}

// Get returns a lead within the caller's organization. A lead that exists
// under another tenant is reported as a tenant violation and its data is
// never returned.
func (s *Service) Get(ctx context.Context, scope tenant.Scope, leadID uuid.UUID) (repository.Lead, error) {
	lead, err := s.repo.GetByID(ctx, scope.OrganizationID(), leadID)
	if err == nil {
		return lead, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return repository.Lead{}, apperr.Wrap(apperr.KindInternal, "failed to load lead", err)
	}
	return repository.Lead{}, s.classifyMiss(ctx, scope, leadID)
}

func (s *Service) List(ctx context.Context, scope tenant.Scope, params repository.ListParams) ([]repository.Lead, int, error) {
	leads, total, err := s.repo.List(ctx, scope.OrganizationID(), params)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.KindInternal, "failed to list leads", err)
	}
	return leads, total, nil
}

// ScoreLead recomputes the lead score from the organization's active
// configuration. Scoring is deterministic, so re-running it on an
// unchanged lead is a no-op in effect.
func (s *Service) ScoreLead(ctx context.Context, scope tenant.Scope, leadID uuid.UUID) (repository.Lead, error) {
	lead, err := s.Get(ctx, scope, leadID)
	if err != nil {
		return repository.Lead{}, err
	}
	return s.scoreAndStore(ctx, scope, lead)
}

func (s *Service) scoreAndStore(ctx context.Context, scope tenant.Scope, lead repository.Lead) (repository.Lead, error) {
	rules, err := s.activeRules(ctx, scope)
	if err != nil {
		return repository.Lead{}, err
	}

	org, err := s.directory.Organization(ctx, scope)
	if err != nil {
		return repository.Lead{}, err
	}

	thresholds := scoring.Thresholds{Warm: org.WarmThreshold, Hot: org.HotThreshold}
	result := scoring.Score(snapshotOf(lead), rules, thresholds)

	oldScore := lead.LeadScore
	updated, err := s.repo.UpdateScore(ctx, scope.OrganizationID(), lead.ID, result.Score, result.Temperature, result.Matched)
	if err != nil {
		return repository.Lead{}, apperr.Wrap(apperr.KindInternal, "failed to store lead score", err)
	}

	if err := s.auditor.Record(ctx, scope, ports.AuditEntry{
		EntityType: "lead_score",
		EntityID:   lead.ID,
		OldState:   fmt.Sprintf("%d", oldScore),
		NewState:   fmt.Sprintf("%d/%s", result.Score, result.Temperature),
		Actor:      scope.Actor(),
	}); err != nil {
		s.log.Error("failed to record scoring audit", "lead_id", lead.ID, "error", err)
	}

	s.bus.Publish(ctx, events.LeadScored{
		BaseEvent:      events.NewBaseEvent(),
		OrganizationID: updated.OrganizationID,
		LeadID:         updated.ID,
		Score:          result.Score,
		Temperature:    result.Temperature,
	})

	return updated, nil
}

func (s *Service) activeRules(ctx context.Context, scope tenant.Scope) ([]scoring.Rule, error) {
	cfg, err := s.repo.GetActiveConfig(ctx, scope.OrganizationID())
	if errors.Is(err, repository.ErrConfigNotFound) {
		return scoring.DefaultRules(), nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load scoring configuration", err)
	}
	return cfg.Rules, nil
}

// TransitionStatus advances the lead through the pipeline. The sold edge
// settles the referral commission and releases closer capacity in the
// same transaction as the status change.
func (s *Service) TransitionStatus(ctx context.Context, scope tenant.Scope, leadID uuid.UUID, newStatus string, soldValue *float64, actor string) (repository.Lead, ports.CommissionResult, error) {
	if !domain.IsKnownStatus(newStatus) {
		return repository.Lead{}, ports.CommissionResult{}, apperr.Validation("unknown lead status")
	}

	lead, err := s.Get(ctx, scope, leadID)
	if err != nil {
		return repository.Lead{}, ports.CommissionResult{}, err
	}

	if !domain.CanTransition(lead.Status, newStatus) {
		return repository.Lead{}, ports.CommissionResult{}, apperr.InvalidTransition(
			fmt.Sprintf("cannot transition lead from %s to %s", lead.Status, newStatus))
	}

	closing := domain.ClosesSale(lead.Status, newStatus)
	if closing && soldValue == nil {
		return repository.Lead{}, ports.CommissionResult{}, apperr.Validation("sold transition requires a sold value")
	}

	nextSoldValue := lead.SoldValue
	if closing {
		nextSoldValue = soldValue
	}

	return s.commitTransition(ctx, scope, lead, newStatus, nextSoldValue, actor)
}

// Reopen puts a terminal lead back into the pipeline at contacted,
// clearing the sold value. Assignment history is preserved as is.
func (s *Service) Reopen(ctx context.Context, scope tenant.Scope, leadID uuid.UUID, actor string) (repository.Lead, error) {
	lead, err := s.Get(ctx, scope, leadID)
	if err != nil {
		return repository.Lead{}, err
	}

	if !domain.CanReopen(lead.Status) {
		return repository.Lead{}, apperr.InvalidTransition(
			fmt.Sprintf("cannot reopen lead in status %s", lead.Status))
	}

	reopened, _, err := s.commitTransition(ctx, scope, lead, domain.ReopenedStatus, nil, actor)
	return reopened, err
}

func (s *Service) commitTransition(ctx context.Context, scope tenant.Scope, lead repository.Lead, newStatus string, soldValue *float64, actor string) (repository.Lead, ports.CommissionResult, error) {
	closing := domain.ClosesSale(lead.Status, newStatus)
	terminal := domain.IsTerminal(newStatus)

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return repository.Lead{}, ports.CommissionResult{}, apperr.Wrap(apperr.KindInternal, "failed to open transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	updated, err := s.repo.UpdateStatusTx(ctx, tx, scope.OrganizationID(), lead.ID, newStatus, soldValue, lead.Status)
	if errors.Is(err, repository.ErrStale) {
		return repository.Lead{}, ports.CommissionResult{}, apperr.Conflict("lead status changed concurrently")
	}
	if err != nil {
		return repository.Lead{}, ports.CommissionResult{}, apperr.Wrap(apperr.KindInternal, "failed to update lead status", err)
	}

	var commission ports.CommissionResult
	if closing {
		commission, err = s.commission.SettleOnSoldTx(ctx, tx, scope, ports.SoldLead{
			LeadID:     updated.ID,
			ReferrerID: updated.ReferrerID,
			SoldValue:  updated.SoldValue,
		})
		if err != nil {
			return repository.Lead{}, ports.CommissionResult{}, err
		}
	}

	var releasedCloserID uuid.UUID
	var released bool
	if terminal {
		released, releasedCloserID, err = s.router.ReleaseForLeadTx(ctx, tx, scope, updated.ID)
		if err != nil {
			return repository.Lead{}, ports.CommissionResult{}, err
		}
	}

	if err := s.auditor.RecordTx(ctx, tx, scope, ports.AuditEntry{
		EntityType: "lead_status",
		EntityID:   updated.ID,
		OldState:   lead.Status,
		NewState:   newStatus,
		Actor:      actor,
	}); err != nil {
		return repository.Lead{}, ports.CommissionResult{}, apperr.Wrap(apperr.KindInternal, "failed to record status audit", err)
	}

	if err := s.outbox.EnqueueTx(ctx, tx, scope.OrganizationID(), events.NameLeadStatusChanged, map[string]any{
		"lead_id":    updated.ID,
		"old_status": lead.Status,
		"new_status": newStatus,
	}); err != nil {
		return repository.Lead{}, ports.CommissionResult{}, apperr.Wrap(apperr.KindInternal, "failed to enqueue notification", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return repository.Lead{}, ports.CommissionResult{}, apperr.Wrap(apperr.KindInternal, "failed to commit status transition", err)
	}

	s.bus.Publish(ctx, events.LeadStatusChanged{
		BaseEvent:      events.NewBaseEvent(),
		OrganizationID: updated.OrganizationID,
		LeadID:         updated.ID,
		OldStatus:      lead.Status,
		NewStatus:      newStatus,
		Actor:          actor,
	})
	if released {
		s.bus.Publish(ctx, events.CloserCapacityReleased{
			BaseEvent:      events.NewBaseEvent(),
			OrganizationID: updated.OrganizationID,
			CloserID:       releasedCloserID,
		})
	}
	if commission.Created && commission.CommissionID != nil {
		var referrerID uuid.UUID
		if updated.ReferrerID != nil {
			referrerID = *updated.ReferrerID
		}
		s.bus.Publish(ctx, events.CommissionCreated{
			BaseEvent:      events.NewBaseEvent(),
			OrganizationID: updated.OrganizationID,
			CommissionID:   *commission.CommissionID,
			LeadID:         updated.ID,
			ReferrerID:     referrerID,
			Value:          commission.Value,
		})
	}

	return updated, commission, nil
}

// GetScoringConfiguration returns the active rule set, or the defaults
// when the organization has not configured one.
func (s *Service) GetScoringConfiguration(ctx context.Context, scope tenant.Scope) (repository.ScoringConfiguration, error) {
	cfg, err := s.repo.GetActiveConfig(ctx, scope.OrganizationID())
	if errors.Is(err, repository.ErrConfigNotFound) {
		return repository.ScoringConfiguration{
			OrganizationID: scope.OrganizationID(),
			Name:           "default",
			Rules:          scoring.DefaultRules(),
			IsActive:       true,
		}, nil
	}
	if err != nil {
		return repository.ScoringConfiguration{}, apperr.Wrap(apperr.KindInternal, "failed to load scoring configuration", err)
	}
	return cfg, nil
}

func (s *Service) UpdateScoringConfiguration(ctx context.Context, scope tenant.Scope, name string, rules []scoring.Rule) (repository.ScoringConfiguration, error) {
	if err := validateRules(rules); err != nil {
		return repository.ScoringConfiguration{}, err
	}

	cfg, err := s.repo.ReplaceActiveConfig(ctx, scope.OrganizationID(), name, rules)
	if err != nil {
		return repository.ScoringConfiguration{}, apperr.Wrap(apperr.KindInternal, "failed to replace scoring configuration", err)
	}

	if err := s.auditor.Record(ctx, scope, ports.AuditEntry{
		EntityType: "scoring_configuration",
		EntityID:   cfg.ID,
		OldState:   "",
		NewState:   name,
		Actor:      scope.Actor(),
	}); err != nil {
		s.log.Error("failed to record configuration audit", "config_id", cfg.ID, "error", err)
	}

	s.scheduleRescore(ctx, scope)

	return cfg, nil
}

// scheduleRescore fans out one rescoring task per open lead so existing
// scores converge on the new rule set. Best effort: a queue outage leaves
// stale scores, not inconsistent data.
func (s *Service) scheduleRescore(ctx context.Context, scope tenant.Scope) {
	if s.scheduler == nil {
		return
	}

	ids, err := s.repo.ListOpenLeadIDs(ctx, scope.OrganizationID())
	if err != nil {
		s.log.Error("failed to list leads for rescoring", "organization_id", scope.OrganizationID(), "error", err)
		return
	}

	for _, leadID := range ids {
		if err := s.scheduler.ScheduleLeadRescore(ctx, scope.OrganizationID(), leadID); err != nil {
			s.log.Error("failed to schedule lead rescore", "lead_id", leadID, "error", err)
			return
		}
	}
	s.log.Info("rescoring scheduled", "organization_id", scope.OrganizationID(), "leads", len(ids))
}

func validateRules(rules []scoring.Rule) error {
	if len(rules) == 0 {
		return apperr.Validation("at least one scoring rule is required")
	}
	seen := make(map[string]bool, len(rules))
	for _, rule := range rules {
		if rule.Key == "" || rule.Field == "" {
			return apperr.Validation("every rule needs a key and a field")
		}
		if seen[rule.Key] {
			return apperr.Validation(fmt.Sprintf("duplicate rule key %q", rule.Key))
		}
		seen[rule.Key] = true
		switch rule.Predicate {
		case scoring.PredicatePresent:
		case scoring.PredicateEquals:
			if rule.Value == "" {
				return apperr.Validation(fmt.Sprintf("rule %q needs a comparison value", rule.Key))
			}
		case scoring.PredicateGte:
		default:
			return apperr.Validation(fmt.Sprintf("rule %q has unknown predicate %q", rule.Key, rule.Predicate))
		}
	}
	return nil
}

// leadExistence is the narrow probe behind miss classification: it may
// only answer whether a lead ID exists anywhere, never return lead data.
type leadExistence interface {
	ExistsAnyOrg(ctx context.Context, leadID uuid.UUID) (bool, error)
}

func (s *Service) classifyMiss(ctx context.Context, scope tenant.Scope, leadID uuid.UUID) error {
	return classifyLeadMiss(ctx, s.repo, s.log, scope, leadID)
}

// classifyLeadMiss decides what a scoped lookup miss means: a lead that
// exists in another organization is a tenant violation and is logged as a
// security event; one that exists nowhere is a plain not-found.
func classifyLeadMiss(ctx context.Context, probe leadExistence, log *logger.Logger, scope tenant.Scope, leadID uuid.UUID) error {
	exists, err := probe.ExistsAnyOrg(ctx, leadID)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to check lead existence", err)
	}
	if exists {
		log.SecurityEvent("cross_tenant_lead_access", scope.Actor(), scope.OrganizationID().String(), "", map[string]string{
			"lead_id": leadID.String(),
		})
		return apperr.TenantViolation("lead belongs to another organization")
	}
	return apperr.NotFound("lead not found")
}

func snapshotOf(lead repository.Lead) scoring.Snapshot {
	snap := scoring.Snapshot{}
	put := func(key string, value *string) {
		if value != nil {
			snap[key] = *value
		}
	}
	put("telefone", lead.Phone)
	put("email", lead.Email)
	put("empresa", lead.Company)
	put("cargo", lead.Position)
	put("temperatura", lead.Temperature)
	put("nivel_interesse", lead.InterestLevel)
	put("dor_principal", lead.MainPain)
	if lead.HasBudget {
		snap["orcamento_disponivel"] = true
	}
	if lead.IsDecisionMaker {
		snap["decisor_principal"] = true
	}
	return snap
}

func interestTag(lead repository.Lead) string {
	if lead.InterestTag != nil {
		return *lead.InterestTag
	}
	return ""
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
