package router

import "strings"

// strPtr returns a trimmed pointer or nil when the input is empty.
func strPtr(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
