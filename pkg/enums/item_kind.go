package enums

import "fmt"

// ItemKind describes how a catalog item is counted: whole pieces or a
// divisible capacity per container.
type ItemKind string

const (
	ItemKindDiscrete   ItemKind = "discrete"
	ItemKindConsumable ItemKind = "consumable"
)

var validItemKinds = []ItemKind{
	ItemKindDiscrete,
	ItemKindConsumable,
}

// IsValid reports whether the value matches the canonical item kind enum.
func (k ItemKind) IsValid() bool {
	for _, candidate := range validItemKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseItemKind converts the raw string to ItemKind.
func ParseItemKind(value string) (ItemKind, error) {
	for _, candidate := range validItemKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid item kind %q", value)
}
