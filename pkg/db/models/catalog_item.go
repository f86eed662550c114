package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fieldstock/fieldstock-backend/pkg/enums"
)

// CatalogItem is the static reference row for a part type. Discrete items are
// counted in whole pieces; consumables carry a per-container capacity.
type CatalogItem struct {
	ID              uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name            string             `gorm:"column:name;not null"`
	Brand           string             `gorm:"column:brand;not null"`
	Kind            enums.ItemKind     `gorm:"column:kind;type:item_kind;not null"`
	CapacityPerUnit *decimal.Decimal   `gorm:"column:capacity_per_unit;type:numeric(12,3)"`
	CapacityUnit    *enums.CapacityUnit `gorm:"column:capacity_unit;type:capacity_unit"`
	IsActive        bool               `gorm:"column:is_active;not null;default:true"`
	CreatedAt       time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// IsConsumable reports whether the item is drawn down by capacity.
func (c CatalogItem) IsConsumable() bool {
	return c.Kind == enums.ItemKindConsumable
}

// Capacity returns the per-unit capacity for consumables, zero otherwise.
func (c CatalogItem) Capacity() decimal.Decimal {
	if c.CapacityPerUnit == nil {
		return decimal.Zero
	}
	return *c.CapacityPerUnit
}
