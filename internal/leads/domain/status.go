// Package domain provides core business rules for the leads bounded context.
package domain

import "fmt"

// Status is the stored lifecycle state of a lead.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCalling   Status = "calling"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	// StatusNoAnswer is reserved: the transition table never stores it as a
	// final state, but it remains a legal column value for forward
	// compatibility with product changes.
	StatusNoAnswer Status = "no_answer"
)

// Outcome is the signal a call attempt resolves to.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeNoAnswer  Outcome = "no_answer"
	OutcomeFailed    Outcome = "failed"
)

const (
	// MaxCallAttempts is the retry bound: a no-answer on the third attempt
	// fails the lead instead of requeueing it.
	MaxCallAttempts = 3
	// PassBatchSize caps how many pending leads one queue pass touches.
	PassBatchSize = 5
)

var knownStatuses = map[Status]struct{}{
	StatusPending:   {},
	StatusCalling:   {},
	StatusCompleted: {},
	StatusFailed:    {},
	StatusNoAnswer:  {},
}

// IsKnownStatus reports whether s is a recognized lead status.
func IsKnownStatus(s Status) bool {
	_, ok := knownStatuses[s]
	return ok
}

// IsTerminal reports whether the status admits no further transitions.
func IsTerminal(s Status) bool {
	return s == StatusCompleted || s == StatusFailed
}

// Resolve maps a call outcome and the attempt count recorded for the current
// call to the lead's next stored status. attempts is the value AFTER the
// transition into calling incremented it.
func Resolve(outcome Outcome, attempts int) (Status, error) {
	switch outcome {
	case OutcomeCompleted:
		return StatusCompleted, nil
	case OutcomeFailed:
		return StatusFailed, nil
	case OutcomeNoAnswer:
		if attempts >= MaxCallAttempts {
			return StatusFailed, nil
		}
		return StatusPending, nil
	default:
		return "", fmt.Errorf("unknown call outcome %q", outcome)
	}
}
