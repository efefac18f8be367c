package tenant

import (
	"context"
	"errors"
	"testing"

	"mentorcrm_backend/platform/apperr"
	"mentorcrm_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeStore struct {
	orgs    map[uuid.UUID]Organization
	members map[uuid.UUID]uuid.UUID
}

func (s *fakeStore) GetOrganization(_ context.Context, orgID uuid.UUID) (Organization, error) {
	org, ok := s.orgs[orgID]
	if !ok {
		return Organization{}, ErrNotFound
	}
	return org, nil
}

func (s *fakeStore) IsMember(_ context.Context, orgID, userID uuid.UUID) (bool, error) {
	return s.members[userID] == orgID, nil
}

func (s *fakeStore) SetCommissionAmount(_ context.Context, _ uuid.UUID, _ float64) error {
	return nil
}

func (s *fakeStore) SetTemperatureThresholds(_ context.Context, _ uuid.UUID, _, _ int) error {
	return nil
}

func newTestDirectory(store *fakeStore) *Directory {
	return NewDirectory(store, logger.New("development"))
}

func assertKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperr.Error, got %v", err)
	}
	if appErr.Kind != kind {
		t.Fatalf("expected kind %v, got %v (%s)", kind, appErr.Kind, appErr.Message)
	}
}

func TestScopeForMintsScopeForMember(t *testing.T) {
	orgID := uuid.New()
	userID := uuid.New()
	store := &fakeStore{
		orgs:    map[uuid.UUID]Organization{orgID: {ID: orgID, IsActive: true}},
		members: map[uuid.UUID]uuid.UUID{userID: orgID},
	}

	scope, err := newTestDirectory(store).ScopeFor(context.Background(), userID, orgID, orgID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scope.OrganizationID() != orgID {
		t.Fatalf("scope bound to %s, want %s", scope.OrganizationID(), orgID)
	}
	if scope.Actor() != userID.String() {
		t.Fatalf("actor = %s, want %s", scope.Actor(), userID)
	}
}

func TestScopeForRejectsCrossTenantCaller(t *testing.T) {
	callerOrg := uuid.New()
	targetOrg := uuid.New()
	userID := uuid.New()
	store := &fakeStore{
		orgs: map[uuid.UUID]Organization{
			callerOrg: {ID: callerOrg, IsActive: true},
			targetOrg: {ID: targetOrg, IsActive: true},
		},
		members: map[uuid.UUID]uuid.UUID{userID: callerOrg},
	}

	_, err := newTestDirectory(store).ScopeFor(context.Background(), userID, callerOrg, targetOrg)
	assertKind(t, err, apperr.KindTenantViolation)
}

func TestScopeForRejectsNonMember(t *testing.T) {
	orgID := uuid.New()
	store := &fakeStore{
		orgs:    map[uuid.UUID]Organization{orgID: {ID: orgID, IsActive: true}},
		members: map[uuid.UUID]uuid.UUID{},
	}

	_, err := newTestDirectory(store).ScopeFor(context.Background(), uuid.New(), orgID, orgID)
	assertKind(t, err, apperr.KindTenantViolation)
}

func TestScopeForRejectsDeactivatedOrganization(t *testing.T) {
	orgID := uuid.New()
	userID := uuid.New()
	store := &fakeStore{
		orgs:    map[uuid.UUID]Organization{orgID: {ID: orgID, IsActive: false}},
		members: map[uuid.UUID]uuid.UUID{userID: orgID},
	}

	_, err := newTestDirectory(store).ScopeFor(context.Background(), userID, orgID, orgID)
	assertKind(t, err, apperr.KindForbidden)
}

func TestScopeForRejectsMissingOrganization(t *testing.T) {
	orgID := uuid.New()
	userID := uuid.New()
	store := &fakeStore{orgs: map[uuid.UUID]Organization{}, members: map[uuid.UUID]uuid.UUID{userID: orgID}}

	_, err := newTestDirectory(store).ScopeFor(context.Background(), userID, orgID, orgID)
	assertKind(t, err, apperr.KindNotFound)
}

func TestPublicScopeHasAnonymousActor(t *testing.T) {
	orgID := uuid.New()
	store := &fakeStore{orgs: map[uuid.UUID]Organization{orgID: {ID: orgID, IsActive: true}}}

	scope, err := newTestDirectory(store).PublicScope(context.Background(), orgID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scope.Actor() != "public" {
		t.Fatalf("actor = %s, want public", scope.Actor())
	}
}

func TestSystemScopeActor(t *testing.T) {
	orgID := uuid.New()
	store := &fakeStore{orgs: map[uuid.UUID]Organization{orgID: {ID: orgID, IsActive: true}}}

	scope, err := newTestDirectory(store).SystemScope(context.Background(), orgID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scope.Actor() != "system" {
		t.Fatalf("actor = %s, want system", scope.Actor())
	}
}

func TestSystemScopeRejectsDeactivatedOrganization(t *testing.T) {
	orgID := uuid.New()
	store := &fakeStore{orgs: map[uuid.UUID]Organization{orgID: {ID: orgID, IsActive: false}}}

	_, err := newTestDirectory(store).SystemScope(context.Background(), orgID)
	assertKind(t, err, apperr.KindForbidden)
}

func TestCommissionAmountFallsBackToDefault(t *testing.T) {
	configured := 3500.0
	cases := []struct {
		name string
		org  Organization
		want float64
	}{
		{"unconfigured", Organization{}, DefaultReferralCommission},
		{"configured", Organization{ReferralCommissionAmount: &configured}, 3500.0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.org.CommissionAmount(); got != tc.want {
				t.Fatalf("CommissionAmount() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSetTemperatureThresholdsValidatesRange(t *testing.T) {
	orgID := uuid.New()
	store := &fakeStore{orgs: map[uuid.UUID]Organization{orgID: {ID: orgID, IsActive: true}}}
	d := newTestDirectory(store)
	scope := TestScope(orgID, uuid.New())

	if err := d.SetTemperatureThresholds(context.Background(), scope, 40, 70); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, pair := range [][2]int{{-1, 70}, {40, 101}, {70, 40}, {50, 50}} {
		if err := d.SetTemperatureThresholds(context.Background(), scope, pair[0], pair[1]); err == nil {
			t.Fatalf("thresholds %v accepted, want validation error", pair)
		}
	}
}
