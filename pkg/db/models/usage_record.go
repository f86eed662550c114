package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fieldstock/fieldstock-backend/pkg/enums"
)

// UsageRecord is the append-only entry a technician files when consuming
// parts against a service job. The record itself never moves stock; it is the
// idempotency key for the single deduction the approval gate may later apply.
type UsageRecord struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ServiceID       uuid.UUID         `gorm:"column:service_id;type:uuid;not null;index"`
	ItemID          uuid.UUID         `gorm:"column:item_id;type:uuid;not null"`
	TechnicianID    uuid.UUID         `gorm:"column:technician_id;type:uuid;not null;index"`
	RequestedAmount decimal.Decimal   `gorm:"column:requested_amount;type:numeric(12,3);not null"`
	Status          enums.UsageStatus `gorm:"column:status;type:usage_status;not null;default:'pending'"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
