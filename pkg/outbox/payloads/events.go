package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fieldstock/fieldstock-backend/pkg/db/models"
)

// UsageAppliedEvent is emitted when an approval deducts stock for a usage
// record. Breakdown mirrors the stored stock event so consumers never re-read
// the ledger.
type UsageAppliedEvent struct {
	UsageRecordID uuid.UUID            `json:"usage_record_id"`
	ServiceID     uuid.UUID            `json:"service_id"`
	ItemID        uuid.UUID            `json:"item_id"`
	TechnicianID  uuid.UUID            `json:"technician_id"`
	Amount        decimal.Decimal      `json:"amount"`
	Breakdown     models.DrawBreakdown `json:"breakdown"`
	DecidedAt     time.Time            `json:"decided_at"`
}

// UsageVoidedEvent is emitted when a reviewer rejects a usage record. No
// stock moved.
type UsageVoidedEvent struct {
	UsageRecordID uuid.UUID       `json:"usage_record_id"`
	ServiceID     uuid.UUID       `json:"service_id"`
	ItemID        uuid.UUID       `json:"item_id"`
	TechnicianID  uuid.UUID       `json:"technician_id"`
	Amount        decimal.Decimal `json:"amount"`
	DecidedAt     time.Time       `json:"decided_at"`
}

// StockRestockedEvent signals replenishment of a technician's holding.
type StockRestockedEvent struct {
	TechnicianID uuid.UUID `json:"technician_id"`
	ItemID       uuid.UUID `json:"item_id"`
	Units        int       `json:"units"`
}
