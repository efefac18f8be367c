package domain

import "testing"

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from string
		to   string
		want bool
	}{
		{StatusNew, StatusContacted, true},
		{StatusContacted, StatusQualified, true},
		{StatusQualified, StatusProposal, true},
		{StatusProposal, StatusNegotiation, true},
		{StatusNegotiation, StatusSold, true},
		{StatusNegotiation, StatusLost, true},

		{StatusNew, StatusLost, true},
		{StatusContacted, StatusLost, true},
		{StatusQualified, StatusLost, true},
		{StatusProposal, StatusLost, true},

		{StatusNew, StatusQualified, false},
		{StatusNew, StatusSold, false},
		{StatusContacted, StatusSold, false},
		{StatusQualified, StatusNegotiation, false},
		{StatusProposal, StatusSold, false},
		{StatusContacted, StatusNew, false},
		{StatusQualified, StatusContacted, false},

		{StatusSold, StatusLost, false},
		{StatusSold, StatusContacted, false},
		{StatusLost, StatusContacted, false},
		{StatusLost, StatusNew, false},
		{StatusSold, StatusSold, false},

		{"unknown", StatusContacted, false},
		{StatusNew, "unknown", false},
	}

	for _, tc := range tests {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%q, %q) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestCanReopen(t *testing.T) {
	tests := []struct {
		from string
		want bool
	}{
		{StatusSold, true},
		{StatusLost, true},
		{StatusNew, false},
		{StatusContacted, false},
		{StatusNegotiation, false},
	}

	for _, tc := range tests {
		if got := CanReopen(tc.from); got != tc.want {
			t.Errorf("CanReopen(%q) = %v, want %v", tc.from, got, tc.want)
		}
	}
}

func TestClosesSale(t *testing.T) {
	tests := []struct {
		from string
		to   string
		want bool
	}{
		{StatusNegotiation, StatusSold, true},
		{StatusSold, StatusSold, false},
		{StatusNegotiation, StatusLost, false},
		{StatusNew, StatusContacted, false},
	}

	for _, tc := range tests {
		if got := ClosesSale(tc.from, tc.to); got != tc.want {
			t.Errorf("ClosesSale(%q, %q) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestEveryNonTerminalStatusCanReachLost(t *testing.T) {
	for status := range knownStatuses {
		if IsTerminal(status) {
			continue
		}
		if !CanTransition(status, StatusLost) {
			t.Errorf("status %q should be able to transition to lost", status)
		}
	}
}
