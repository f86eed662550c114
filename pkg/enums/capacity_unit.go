package enums

import "fmt"

// CapacityUnit is the measurement unit for a consumable item's per-container
// capacity.
type CapacityUnit string

const (
	CapacityUnitMilliliter CapacityUnit = "ml"
	CapacityUnitGram       CapacityUnit = "g"
)

var validCapacityUnits = []CapacityUnit{
	CapacityUnitMilliliter,
	CapacityUnitGram,
}

// IsValid reports whether the value matches the canonical capacity unit enum.
func (u CapacityUnit) IsValid() bool {
	for _, candidate := range validCapacityUnits {
		if candidate == u {
			return true
		}
	}
	return false
}

// ParseCapacityUnit converts the raw string to CapacityUnit.
func ParseCapacityUnit(value string) (CapacityUnit, error) {
	for _, candidate := range validCapacityUnits {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid capacity unit %q", value)
}
