package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fieldstock/fieldstock-backend/pkg/enums"
)

// StockEvent records an immutable stock movement against a holding: one row
// per applied deduction and one per restock. UsageRecordID is set for
// deductions only.
type StockEvent struct {
	ID            uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TechnicianID  uuid.UUID            `gorm:"column:technician_id;type:uuid;not null;index"`
	ItemID        uuid.UUID            `gorm:"column:item_id;type:uuid;not null"`
	UsageRecordID *uuid.UUID           `gorm:"column:usage_record_id;type:uuid;uniqueIndex"`
	Type          enums.StockEventType `gorm:"column:type;type:stock_event_type;not null"`
	Amount        decimal.Decimal      `gorm:"column:amount;type:numeric(12,3);not null"`
	Breakdown     json.RawMessage      `gorm:"column:breakdown;type:jsonb"`
	CreatedAt     time.Time            `gorm:"column:created_at;autoCreateTime"`
}

// DrawBreakdown is the stored JSON shape describing how a deduction was
// satisfied across the opened container and sealed units.
type DrawBreakdown struct {
	FromOpened        decimal.Decimal `json:"from_opened"`
	WholeUnitsUsed    int             `json:"whole_units_used"`
	OpenedNewUnit     bool            `json:"opened_new_unit"`
	RemainingAfter    decimal.Decimal `json:"remaining_after"`
	ExhaustedOpenUnit bool            `json:"exhausted_open_unit"`
}

// SetBreakdown stores the draw breakdown as the event's JSON payload.
func (e *StockEvent) SetBreakdown(b DrawBreakdown) error {
	raw, err := json.Marshal(b)
	if err != nil {
		return err
	}
	e.Breakdown = raw
	return nil
}

// GetBreakdown decodes the stored breakdown. Restock events carry none.
func (e *StockEvent) GetBreakdown() (DrawBreakdown, error) {
	var b DrawBreakdown
	if len(e.Breakdown) == 0 {
		return b, nil
	}
	err := json.Unmarshal(e.Breakdown, &b)
	return b, err
}
