package enums

import "fmt"

// ApprovalOutcome is the reviewer's verdict on a usage record. The pending
// outcome transitions to approved or rejected exactly once.
type ApprovalOutcome string

const (
	ApprovalOutcomePending  ApprovalOutcome = "pending"
	ApprovalOutcomeApproved ApprovalOutcome = "approved"
	ApprovalOutcomeRejected ApprovalOutcome = "rejected"
)

var validApprovalOutcomes = []ApprovalOutcome{
	ApprovalOutcomePending,
	ApprovalOutcomeApproved,
	ApprovalOutcomeRejected,
}

// IsValid reports whether the value matches the canonical approval outcome enum.
func (o ApprovalOutcome) IsValid() bool {
	for _, candidate := range validApprovalOutcomes {
		if candidate == o {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the outcome permits no further transitions.
func (o ApprovalOutcome) IsTerminal() bool {
	return o == ApprovalOutcomeApproved || o == ApprovalOutcomeRejected
}

// IsDecision reports whether the outcome is a valid reviewer decision input.
func (o ApprovalOutcome) IsDecision() bool {
	return o == ApprovalOutcomeApproved || o == ApprovalOutcomeRejected
}

// ParseApprovalOutcome converts the raw string to ApprovalOutcome.
func ParseApprovalOutcome(value string) (ApprovalOutcome, error) {
	for _, candidate := range validApprovalOutcomes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid approval outcome %q", value)
}
