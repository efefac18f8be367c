// Package domain provides core business rules for the leads bounded context.
package domain

const (
	StatusNew         = "new"
	StatusContacted   = "contacted"
	StatusQualified   = "qualified"
	StatusProposal    = "proposal"
	StatusNegotiation = "negotiation"
	StatusSold        = "sold"
	StatusLost        = "lost"
)

// allowedTransitions is the lead pipeline adjacency. A lead can be marked
// lost from any non-terminal status; sold is only reachable from negotiation.
// Sold and lost are terminal except for an explicit reopen.
var allowedTransitions = map[string]map[string]bool{
	StatusNew:         {StatusContacted: true, StatusLost: true},
	StatusContacted:   {StatusQualified: true, StatusLost: true},
	StatusQualified:   {StatusProposal: true, StatusLost: true},
	StatusProposal:    {StatusNegotiation: true, StatusLost: true},
	StatusNegotiation: {StatusSold: true, StatusLost: true},
	StatusSold:        {},
	StatusLost:        {},
}

var knownStatuses = map[string]struct{}{
	StatusNew:         {},
	StatusContacted:   {},
	StatusQualified:   {},
	StatusProposal:    {},
	StatusNegotiation: {},
	StatusSold:        {},
	StatusLost:        {},
}

func IsKnownStatus(status string) bool {
	_, ok := knownStatuses[status]
	return ok
}

// IsTerminal returns true when no forward transition is allowed from status.
func IsTerminal(status string) bool {
	return status == StatusSold || status == StatusLost
}

// CanTransition reports whether a direct pipeline transition from one
// status to another is allowed. Reopening is not a pipeline transition
// and is checked separately with CanReopen.
func CanTransition(from, to string) bool {
	next, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	return next[to]
}

// CanReopen reports whether a terminal lead may be reopened. Reopening
// always places the lead back in contacted.
func CanReopen(from string) bool {
	return IsTerminal(from)
}

// ReopenedStatus is the status a lead lands in after a reopen.
const ReopenedStatus = StatusContacted

// ClosesSale reports whether a transition represents the closing edge.
// Only the edge into sold from a different status counts; re-asserting
// sold on an already sold lead does not.
func ClosesSale(from, to string) bool {
	return to == StatusSold && from != StatusSold
}
