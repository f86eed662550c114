package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockHolding tracks one technician's stock of one catalog item: sealed
// whole units plus at most one opened container. RemainingCapacity is set iff
// IsOpened is true and always stays in (0, capacity_per_unit]. The row is
// versioned so concurrent approvals against the same holding cannot silently
// overwrite each other.
type StockHolding struct {
	TechnicianID      uuid.UUID        `gorm:"column:technician_id;type:uuid;primaryKey"`
	ItemID            uuid.UUID        `gorm:"column:item_id;type:uuid;primaryKey"`
	WholeUnits        int              `gorm:"column:whole_units;not null;default:0"`
	IsOpened          bool             `gorm:"column:is_opened;not null;default:false"`
	RemainingCapacity *decimal.Decimal `gorm:"column:remaining_capacity;type:numeric(12,3)"`
	Version           int64            `gorm:"column:version;not null;default:0"`
	UpdatedAt         time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// ZeroHolding is the canonical state of a holding that has never been
// provisioned: no units, nothing opened.
func ZeroHolding(technicianID, itemID uuid.UUID) StockHolding {
	return StockHolding{TechnicianID: technicianID, ItemID: itemID}
}

// IsZero reports whether the holding carries no stock at all.
func (h StockHolding) IsZero() bool {
	return h.WholeUnits == 0 && !h.IsOpened
}

// Remaining returns the opened container's remaining capacity, zero when no
// container is open.
func (h StockHolding) Remaining() decimal.Decimal {
	if !h.IsOpened || h.RemainingCapacity == nil {
		return decimal.Zero
	}
	return *h.RemainingCapacity
}
