package service

import (
	"context"
	"errors"
	"testing"

	"mentorcrm_backend/internal/tenant"
	"mentorcrm_backend/platform/apperr"
	"mentorcrm_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeExistence struct {
	exists bool
	err    error
}

func (f fakeExistence) ExistsAnyOrg(context.Context, uuid.UUID) (bool, error) {
	return f.exists, f.err
}

func missKind(t *testing.T, probe fakeExistence) apperr.Kind {
	t.Helper()

	scope := tenant.TestScope(uuid.New(), uuid.New())
	err := classifyLeadMiss(context.Background(), probe, logger.New("development"), scope, uuid.New())
	if err == nil {
		t.Fatal("a lookup miss must always classify as an error")
	}

	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("expected a typed error, got %v", err)
	}
	return appErr.Kind
}

func TestLookupMissOnForeignLeadIsTenantViolation(t *testing.T) {
	if kind := missKind(t, fakeExistence{exists: true}); kind != apperr.KindTenantViolation {
		t.Fatalf("kind = %v, want KindTenantViolation", kind)
	}
}

func TestLookupMissOnUnknownLeadIsNotFound(t *testing.T) {
	if kind := missKind(t, fakeExistence{exists: false}); kind != apperr.KindNotFound {
		t.Fatalf("kind = %v, want KindNotFound", kind)
	}
}

func TestLookupMissProbeFailureIsInternal(t *testing.T) {
	probe := fakeExistence{err: errors.New("connection reset")}
	if kind := missKind(t, probe); kind != apperr.KindInternal {
		t.Fatalf("kind = %v, want KindInternal", kind)
	}
}
