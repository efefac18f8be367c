package tenant

import (
	"context"
	"errors"
	"time"

	"mentorcrm_backend/platform/apperr"
	"mentorcrm_backend/platform/logger"

	"github.com/google/uuid"
)

// DefaultReferralCommission is the payout used when an organization has not
// configured its own fixed referral amount.
const DefaultReferralCommission = 2000.00

// ErrNotFound is returned when an organization does not exist.
var ErrNotFound = errors.New("organization not found")

// Organization is a tenant. Every other entity in the system carries its ID.
type Organization struct {
	ID                       uuid.UUID
	Name                     string
	ReferralCommissionAmount *float64
	WarmThreshold            int
	HotThreshold             int
	IsActive                 bool
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

// CommissionAmount returns the fixed referral payout for this organization,
// falling back to the documented default when unconfigured.
func (o Organization) CommissionAmount() float64 {
	if o.ReferralCommissionAmount == nil || *o.ReferralCommissionAmount <= 0 {
		return DefaultReferralCommission
	}
	return *o.ReferralCommissionAmount
}

// Store is the persistence surface the Directory needs.
type Store interface {
	GetOrganization(ctx context.Context, orgID uuid.UUID) (Organization, error)
	IsMember(ctx context.Context, orgID, userID uuid.UUID) (bool, error)
	SetCommissionAmount(ctx context.Context, orgID uuid.UUID, amount float64) error
	SetTemperatureThresholds(ctx context.Context, orgID uuid.UUID, warm, hot int) error
}

// Directory validates callers against organizations and mints Scopes.
// It is the single entry point of the isolation layer: no repository in the
// system accepts an organization ID that did not pass through here.
type Directory struct {
	store Store
	log   *logger.Logger
}

// NewDirectory creates a tenant directory.
func NewDirectory(store Store, log *logger.Logger) *Directory {
	return &Directory{store: store, log: log}
}

// ScopeFor authorizes an authenticated caller against the target organization.
// A mismatch between the caller's token organization and the target, or a
// missing membership, is a TenantViolation: rejected before any business
// logic runs and always logged as a security event.
func (d *Directory) ScopeFor(ctx context.Context, userID, callerOrgID, targetOrgID uuid.UUID) (Scope, error) {
	if targetOrgID == uuid.Nil {
		return Scope{}, apperr.Validation("organization id is required")
	}

	if callerOrgID != targetOrgID {
		d.log.SecurityEvent("cross_tenant_access", userID.String(), callerOrgID.String(), targetOrgID.String(), nil)
		return Scope{}, apperr.TenantViolation("access to this organization is not permitted")
	}

	org, err := d.store.GetOrganization(ctx, targetOrgID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Scope{}, apperr.NotFound("organization not found")
		}
		return Scope{}, err
	}
	if !org.IsActive {
		return Scope{}, apperr.Forbidden("organization is deactivated")
	}

	member, err := d.store.IsMember(ctx, targetOrgID, userID)
	if err != nil {
		return Scope{}, err
	}
	if !member {
		d.log.SecurityEvent("non_member_access", userID.String(), callerOrgID.String(), targetOrgID.String(), nil)
		return Scope{}, apperr.TenantViolation("caller is not a member of this organization")
	}

	return Scope{orgID: targetOrgID, userID: userID}, nil
}

// PublicScope authorizes anonymous lead ingestion against an organization.
// Only active organizations accept public submissions.
func (d *Directory) PublicScope(ctx context.Context, orgID uuid.UUID) (Scope, error) {
	if orgID == uuid.Nil {
		return Scope{}, apperr.Validation("organization id is required")
	}

	org, err := d.store.GetOrganization(ctx, orgID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Scope{}, apperr.NotFound("organization not found")
		}
		return Scope{}, err
	}
	if !org.IsActive {
		return Scope{}, apperr.Forbidden("organization is deactivated")
	}

	return Scope{orgID: orgID}, nil
}

// SystemScope authorizes internal background work, such as requeueing
// leads after capacity frees up, against an active organization.
func (d *Directory) SystemScope(ctx context.Context, orgID uuid.UUID) (Scope, error) {
	scope, err := d.PublicScope(ctx, orgID)
	if err != nil {
		return Scope{}, err
	}
	scope.system = true
	return scope, nil
}

// Organization returns the scoped organization record.
func (d *Directory) Organization(ctx context.Context, scope Scope) (Organization, error) {
	if !scope.Valid() {
		return Organization{}, apperr.TenantViolation("missing tenant scope")
	}
	org, err := d.store.GetOrganization(ctx, scope.OrganizationID())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Organization{}, apperr.NotFound("organization not found")
		}
		return Organization{}, err
	}
	return org, nil
}

// SetCommissionAmount updates the organization's fixed referral payout.
func (d *Directory) SetCommissionAmount(ctx context.Context, scope Scope, amount float64) error {
	if !scope.Valid() {
		return apperr.TenantViolation("missing tenant scope")
	}
	if amount <= 0 {
		return apperr.Validation("commission amount must be positive")
	}
	return d.store.SetCommissionAmount(ctx, scope.OrganizationID(), amount)
}

// SetTemperatureThresholds updates the score cutoffs for warm and hot leads.
func (d *Directory) SetTemperatureThresholds(ctx context.Context, scope Scope, warm, hot int) error {
	if !scope.Valid() {
		return apperr.TenantViolation("missing tenant scope")
	}
	if warm < 0 || hot > 100 || warm >= hot {
		return apperr.Validation("thresholds must satisfy 0 <= warm < hot <= 100")
	}
	return d.store.SetTemperatureThresholds(ctx, scope.OrganizationID(), warm, hot)
}
