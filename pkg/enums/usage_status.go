package enums

import "fmt"

// UsageStatus is the lifecycle state of a usage record. A record starts
// pending and terminates as applied (stock deducted) or voided (rejected,
// no stock effect).
type UsageStatus string

const (
	UsageStatusPending UsageStatus = "pending"
	UsageStatusApplied UsageStatus = "applied"
	UsageStatusVoided  UsageStatus = "voided"
)

var validUsageStatuses = []UsageStatus{
	UsageStatusPending,
	UsageStatusApplied,
	UsageStatusVoided,
}

// IsValid reports whether the value matches the canonical usage status enum.
func (s UsageStatus) IsValid() bool {
	for _, candidate := range validUsageStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status permits no further transitions.
func (s UsageStatus) IsTerminal() bool {
	return s == UsageStatusApplied || s == UsageStatusVoided
}

// ParseUsageStatus converts the raw string to UsageStatus.
func ParseUsageStatus(value string) (UsageStatus, error) {
	for _, candidate := range validUsageStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid usage status %q", value)
}
