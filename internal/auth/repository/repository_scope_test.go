package repository

import (
	"strings"
	"testing"
)

func TestGetUserByEmailQueryJoinsMembership(t *testing.T) {
	query := strings.ToLower(getUserByEmailQuery)

	requiredFragments := []string{
		"from users u",
		"join organization_members om on om.user_id = u.id",
		"om.organization_id",
	}

	for _, fragment := range requiredFragments {
		if !strings.Contains(query, fragment) {
			t.Fatalf("expected query fragment %q to be present", fragment)
		}
	}
}

func TestGetUserByIDQueryJoinsMembership(t *testing.T) {
	query := strings.ToLower(getUserByIDQuery)

	if !strings.Contains(query, "join organization_members om on om.user_id = u.id") {
		t.Fatal("user lookup must resolve the organization membership")
	}
}
