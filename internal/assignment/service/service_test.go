package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"mentorcrm_backend/internal/assignment/repository"
	"mentorcrm_backend/internal/events"
	"mentorcrm_backend/internal/leads/ports"
	"mentorcrm_backend/internal/tenant"
	"mentorcrm_backend/platform/apperr"
	"mentorcrm_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type fakeStore struct {
	mu       sync.Mutex
	closers  map[uuid.UUID]*repository.Closer
	assigned map[uuid.UUID]uuid.UUID
	claims   []repository.ClaimParams
}

func newFakeStore(closers ...repository.Closer) *fakeStore {
	s := &fakeStore{
		closers:  make(map[uuid.UUID]*repository.Closer),
		assigned: make(map[uuid.UUID]uuid.UUID),
	}
	for i := range closers {
		c := closers[i]
		s.closers[c.ID] = &c
	}
	return s
}

func (s *fakeStore) LeadInterestTag(context.Context, tenant.Scope, uuid.UUID) (string, error) {
	return "", nil
}

func (s *fakeStore) ListEligible(_ context.Context, orgID uuid.UUID) ([]repository.Closer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []repository.Closer
	for _, c := range s.closers {
		if c.OrganizationID == orgID && c.IsActive && c.CurrentLoad < c.CapacityMax {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s *fakeStore) Claim(_ context.Context, params repository.ClaimParams) (repository.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.closers[params.CloserID]
	if !ok {
		return repository.Assignment{}, repository.ErrNotFound
	}
	if c.CurrentLoad != params.ObservedLoad || c.CurrentLoad >= c.CapacityMax {
		return repository.Assignment{}, repository.ErrClaimConflict
	}
	c.CurrentLoad++
	now := time.Now()
	c.LastAssignedAt = &now
	s.claims = append(s.claims, params)
	s.assigned[params.LeadID] = params.CloserID

	return repository.Assignment{
		ID:             uuid.New(),
		OrganizationID: params.Scope.OrganizationID(),
		LeadID:         params.LeadID,
		CloserID:       params.CloserID,
		CreatedAt:      now,
	}, nil
}

// Reassign mirrors the repository's transaction: release the previous
// closer first, then claim the target with the in-transaction load.
func (s *fakeStore) Reassign(ctx context.Context, params repository.ReassignParams) (repository.Assignment, *uuid.UUID, error) {
	s.mu.Lock()
	observed := params.ObservedLoad
	prev, wasAssigned := s.assigned[params.LeadID]
	if wasAssigned {
		if c, ok := s.closers[prev]; ok && c.CurrentLoad > 0 {
			c.CurrentLoad--
		}
		if prev == params.TargetCloserID {
			observed--
		}
	}
	s.mu.Unlock()

	assignment, err := s.Claim(ctx, repository.ClaimParams{
		Scope:        params.Scope,
		LeadID:       params.LeadID,
		CloserID:     params.TargetCloserID,
		ObservedLoad: observed,
		Actor:        params.Actor,
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		if wasAssigned {
			if c, ok := s.closers[prev]; ok {
				c.CurrentLoad++
			}
			s.assigned[params.LeadID] = prev
		}
		return repository.Assignment{}, nil, err
	}
	if !wasAssigned {
		return assignment, nil, nil
	}
	released := prev
	return assignment, &released, nil
}

func (s *fakeStore) ReleaseForLeadTx(context.Context, pgx.Tx, tenant.Scope, uuid.UUID) (bool, uuid.UUID, error) {
	return false, uuid.Nil, nil
}

func (s *fakeStore) GetCloser(_ context.Context, orgID, closerID uuid.UUID) (repository.Closer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.closers[closerID]
	if !ok || c.OrganizationID != orgID {
		return repository.Closer{}, repository.ErrNotFound
	}
	return *c, nil
}

func (s *fakeStore) ListClosers(_ context.Context, orgID uuid.UUID) ([]repository.Closer, error) {
	return s.ListEligible(context.Background(), orgID)
}

func (s *fakeStore) CreateCloser(_ context.Context, params repository.CreateCloserParams) (repository.Closer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := repository.Closer{
		ID:               uuid.New(),
		OrganizationID:   params.OrganizationID,
		Name:             params.Name,
		Specializations:  params.Specializations,
		CapacityMax:      params.CapacityMax,
		PerformanceScore: params.PerformanceScore,
		IsActive:         true,
	}
	s.closers[c.ID] = &c
	return c, nil
}

func (s *fakeStore) UpdateCloser(_ context.Context, orgID, closerID uuid.UUID, params repository.UpdateCloserParams) (repository.Closer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.closers[closerID]
	if !ok || c.OrganizationID != orgID {
		return repository.Closer{}, repository.ErrNotFound
	}
	if params.CapacityMax != nil {
		if *params.CapacityMax < c.CurrentLoad {
			return repository.Closer{}, repository.ErrCapacityBelowLoad
		}
		c.CapacityMax = *params.CapacityMax
	}
	if params.IsActive != nil {
		c.IsActive = *params.IsActive
	}
	return *c, nil
}

type nopAuditor struct{}

func (nopAuditor) Record(context.Context, tenant.Scope, ports.AuditEntry) error { return nil }
func (nopAuditor) RecordTx(context.Context, pgx.Tx, tenant.Scope, ports.AuditEntry) error {
	return nil
}

type routingConfig struct {
	attempts int
	delay    time.Duration
}

func (c routingConfig) GetAssignMaxAttempts() int             { return c.attempts }
func (c routingConfig) GetAssignRetryBaseDelay() time.Duration { return c.delay }

func newTestService(store Store) *Service {
	log := logger.New("development")
	bus := events.NewInMemoryBus(log)
	return New(store, nopAuditor{}, bus, routingConfig{attempts: 3, delay: time.Millisecond}, log)
}

func testScope(orgID uuid.UUID) tenant.Scope {
	return tenant.TestScope(orgID, uuid.New())
}

func closerWith(orgID uuid.UUID, name string, load, capacity int, perf float64, specs ...string) repository.Closer {
	if len(specs) == 0 {
		specs = []string{GeneralSpecialization}
	}
	return repository.Closer{
		ID:               uuid.New(),
		OrganizationID:   orgID,
		Name:             name,
		Specializations:  specs,
		CapacityMax:      capacity,
		CurrentLoad:      load,
		PerformanceScore: perf,
		IsActive:         true,
	}
}

func TestAssignLeadSelectsCloserWithSpareCapacity(t *testing.T) {
	orgID := uuid.New()
	closerA := closerWith(orgID, "A", 0, 1, 1.0)
	closerB := closerWith(orgID, "B", 1, 1, 9.0)
	store := newFakeStore(closerA, closerB)
	svc := newTestService(store)

	outcome, err := svc.AssignLead(context.Background(), testScope(orgID), uuid.New(), "")
	if err != nil {
		t.Fatalf("AssignLead returned error: %v", err)
	}
	if outcome.Unassigned {
		t.Fatal("expected an assignment, got unassigned")
	}
	if outcome.CloserID == nil || *outcome.CloserID != closerA.ID {
		t.Fatalf("expected closer A to be selected, got %v", outcome.CloserID)
	}
}

func TestAssignLeadPrefersPerformanceOnEqualLoad(t *testing.T) {
	orgID := uuid.New()
	low := closerWith(orgID, "low", 0, 2, 1.5)
	high := closerWith(orgID, "high", 0, 2, 8.5)
	store := newFakeStore(low, high)
	svc := newTestService(store)

	outcome, err := svc.AssignLead(context.Background(), testScope(orgID), uuid.New(), "")
	if err != nil {
		t.Fatalf("AssignLead returned error: %v", err)
	}
	if outcome.CloserID == nil || *outcome.CloserID != high.ID {
		t.Fatal("expected the higher performing closer to be selected")
	}
}

func TestAssignLeadRespectsSpecialization(t *testing.T) {
	orgID := uuid.New()
	specialist := closerWith(orgID, "specialist", 0, 2, 5.0, "implante")
	generalist := closerWith(orgID, "generalist", 1, 2, 5.0, GeneralSpecialization)
	store := newFakeStore(specialist, generalist)
	svc := newTestService(store)

	outcome, err := svc.AssignLead(context.Background(), testScope(orgID), uuid.New(), "estetica")
	if err != nil {
		t.Fatalf("AssignLead returned error: %v", err)
	}
	if outcome.CloserID == nil || *outcome.CloserID != generalist.ID {
		t.Fatal("lead with unmatched tag must go to the generalist")
	}
}

func TestAssignLeadQueuesWhenPoolIsEmpty(t *testing.T) {
	orgID := uuid.New()
	full := closerWith(orgID, "full", 2, 2, 5.0)
	store := newFakeStore(full)
	svc := newTestService(store)

	outcome, err := svc.AssignLead(context.Background(), testScope(orgID), uuid.New(), "")
	if err != nil {
		t.Fatalf("AssignLead returned error: %v", err)
	}
	if !outcome.Unassigned {
		t.Fatal("expected the lead to be queued as unassigned")
	}
}

func TestConcurrentAssignsClaimLastSlotExactlyOnce(t *testing.T) {
	orgID := uuid.New()
	closer := closerWith(orgID, "solo", 0, 1, 5.0)
	store := newFakeStore(closer)
	svc := newTestService(store)
	scope := testScope(orgID)

	const n = 16
	var wg sync.WaitGroup
	outcomes := make([]ports.AssignOutcome, n)
	errs := make([]error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i], errs[i] = svc.AssignLead(context.Background(), scope, uuid.New(), "")
		}(i)
	}
	wg.Wait()

	winners := 0
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("call %d returned error: %v", i, errs[i])
		}
		if !outcomes[i].Unassigned {
			winners++
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}

	final, _ := store.GetCloser(context.Background(), orgID, closer.ID)
	if final.CurrentLoad != 1 {
		t.Fatalf("closer load = %d, want 1", final.CurrentLoad)
	}
}

func TestReassignToCurrentCloserKeepsAssignment(t *testing.T) {
	orgID := uuid.New()
	closer := closerWith(orgID, "keeper", 1, 2, 5.0)
	store := newFakeStore(closer)
	leadID := uuid.New()
	store.assigned[leadID] = closer.ID
	svc := newTestService(store)

	assignment, err := svc.Reassign(context.Background(), testScope(orgID), leadID, closer.ID, "admin")
	if err != nil {
		t.Fatalf("Reassign to the current closer returned error: %v", err)
	}
	if assignment.CloserID != closer.ID {
		t.Fatalf("assignment closer = %s, want %s", assignment.CloserID, closer.ID)
	}

	final, _ := store.GetCloser(context.Background(), orgID, closer.ID)
	if final.CurrentLoad != 1 {
		t.Fatalf("closer load = %d, want 1 (release and claim must cancel out)", final.CurrentLoad)
	}
}

func TestUpdateCloserRejectsCapacityBelowLoad(t *testing.T) {
	orgID := uuid.New()
	closer := closerWith(orgID, "busy", 2, 3, 5.0)
	store := newFakeStore(closer)
	svc := newTestService(store)

	capacity := 1
	_, err := svc.UpdateCloser(context.Background(), testScope(orgID), closer.ID, UpdateCloserParams{CapacityMax: &capacity})
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperr.KindValidation {
		t.Fatalf("shrinking capacity below the load must fail validation, got %v", err)
	}

	final, _ := store.GetCloser(context.Background(), orgID, closer.ID)
	if final.CapacityMax != 3 {
		t.Fatalf("capacity = %d, want 3 (rejected update must not apply)", final.CapacityMax)
	}
}

func TestUpdateCloserAllowsShrinkToExactLoad(t *testing.T) {
	orgID := uuid.New()
	closer := closerWith(orgID, "tight", 2, 4, 5.0)
	store := newFakeStore(closer)
	svc := newTestService(store)

	capacity := 2
	updated, err := svc.UpdateCloser(context.Background(), testScope(orgID), closer.ID, UpdateCloserParams{CapacityMax: &capacity})
	if err != nil {
		t.Fatalf("UpdateCloser returned error: %v", err)
	}
	if updated.CapacityMax != 2 {
		t.Fatalf("capacity = %d, want 2", updated.CapacityMax)
	}
}

func TestSortCandidatesRoundRobinFallback(t *testing.T) {
	orgID := uuid.New()
	older := time.Now().Add(-2 * time.Hour)
	newer := time.Now().Add(-10 * time.Minute)

	a := closerWith(orgID, "a", 1, 3, 5.0)
	a.LastAssignedAt = &newer
	b := closerWith(orgID, "b", 1, 3, 5.0)
	b.LastAssignedAt = &older
	c := closerWith(orgID, "c", 1, 3, 5.0)

	candidates := []repository.Closer{a, b, c}
	SortCandidates(candidates)

	if candidates[0].ID != c.ID {
		t.Fatal("never assigned closer should sort first")
	}
	if candidates[1].ID != b.ID {
		t.Fatal("least recently assigned closer should sort second")
	}
}

func TestMatchesSpecialization(t *testing.T) {
	tests := []struct {
		specs []string
		tag   string
		want  bool
	}{
		{[]string{GeneralSpecialization}, "implante", true},
		{[]string{GeneralSpecialization}, "", true},
		{[]string{"implante"}, "implante", true},
		{[]string{"implante"}, "estetica", false},
		{[]string{"implante"}, "", false},
		{nil, "implante", false},
	}

	for _, tc := range tests {
		if got := MatchesSpecialization(tc.specs, tc.tag); got != tc.want {
			t.Errorf("MatchesSpecialization(%v, %q) = %v, want %v", tc.specs, tc.tag, got, tc.want)
		}
	}
}
