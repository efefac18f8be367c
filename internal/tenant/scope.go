// Package tenant provides the tenant directory and the isolation scope that
// every organization-bound read or write path must carry.
package tenant

import "github.com/google/uuid"

// Scope proves that a caller has been authorized against one organization.
// Repositories accept a Scope instead of a raw organization ID so that the
// membership check cannot be skipped: the only way to obtain a valid Scope
// is through the Directory, and the zero value matches no rows.
type Scope struct {
	orgID  uuid.UUID
	userID uuid.UUID
	system bool
}

// OrganizationID returns the organization this scope is bound to.
func (s Scope) OrganizationID() uuid.UUID {
	return s.orgID
}

// UserID returns the authenticated user, or uuid.Nil for public ingestion.
func (s Scope) UserID() uuid.UUID {
	return s.userID
}

// Actor returns the audit-log actor string for this scope.
func (s Scope) Actor() string {
	if s.system {
		return "system"
	}
	if s.userID == uuid.Nil {
		return "public"
	}
	return s.userID.String()
}

// Valid reports whether the scope was produced by the Directory.
func (s Scope) Valid() bool {
	return s.orgID != uuid.Nil
}

// TestScope mints a scope without membership checks. Only for tests.
func TestScope(orgID, userID uuid.UUID) Scope {
	return Scope{orgID: orgID, userID: userID}
}
