package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/fieldstock/fieldstock-backend/pkg/enums"
)

// ApprovalDecision holds the reviewer verdict for exactly one usage record.
// The outcome leaves pending exactly once; re-deciding a terminal decision is
// rejected by the approval gate.
type ApprovalDecision struct {
	ID            uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UsageRecordID uuid.UUID             `gorm:"column:usage_record_id;type:uuid;not null;uniqueIndex"`
	Outcome       enums.ApprovalOutcome `gorm:"column:outcome;type:approval_outcome;not null;default:'pending'"`
	DecidedBy     *uuid.UUID            `gorm:"column:decided_by;type:uuid"`
	DecidedAt     *time.Time            `gorm:"column:decided_at"`
	CreatedAt     time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
