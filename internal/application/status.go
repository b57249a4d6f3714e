// Package application defines the status state machine for job applications.
//
// Valid status graph:
//
//	Applied ──► Shortlisted ──► Interview ──► Offered
//	   │             │              │
//	   └─────────────┴──────────────┴──► Rejected
//
// Offered and Rejected are terminal states.
package application

import "fmt"

// Status values mirror the job_applications.status column.
type Status string

const (
	StatusApplied     Status = "Applied"
	StatusShortlisted Status = "Shortlisted"
	StatusInterview   Status = "Interview"
	StatusOffered     Status = "Offered"
	StatusRejected    Status = "Rejected"
)

// validTransitions lists every allowed (from → to) pair.
var validTransitions = map[Status][]Status{
	StatusApplied:     {StatusShortlisted, StatusRejected},
	StatusShortlisted: {StatusInterview, StatusRejected},
	StatusInterview:   {StatusOffered, StatusRejected},
	// Offered and Rejected are terminal — no outgoing transitions
}

// ParseStatus converts a raw string to a Status, returning an error for
// unknown values.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	switch st {
	case StatusApplied, StatusShortlisted, StatusInterview, StatusOffered, StatusRejected:
		return st, nil
	}
	return "", fmt.Errorf("unknown application status %q", s)
}

// IsTransitionAllowed returns true when moving from → to is permitted by the
// state machine.
func IsTransitionAllowed(from, to Status) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false // terminal state — no outgoing transitions
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal returns true when no further transitions are possible.
func IsTerminal(s Status) bool {
	_, ok := validTransitions[s]
	return !ok
}
