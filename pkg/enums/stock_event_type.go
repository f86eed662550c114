package enums

import "fmt"

// StockEventType describes the allowed values for the `type` column in
// stock_events.
type StockEventType string

const (
	StockEventTypeDeducted  StockEventType = "deducted"
	StockEventTypeRestocked StockEventType = "restocked"
)

var validStockEventTypes = []StockEventType{
	StockEventTypeDeducted,
	StockEventTypeRestocked,
}

// IsValid reports whether the value matches the canonical stock event type enum.
func (t StockEventType) IsValid() bool {
	for _, candidate := range validStockEventTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseStockEventType converts the raw string to StockEventType.
func ParseStockEventType(value string) (StockEventType, error) {
	for _, candidate := range validStockEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stock event type %q", value)
}
