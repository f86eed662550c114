package usage

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fieldstock/fieldstock-backend/pkg/db/models"
	"github.com/fieldstock/fieldstock-backend/pkg/enums"
	pkgerrors "github.com/fieldstock/fieldstock-backend/pkg/errors"
	"github.com/fieldstock/fieldstock-backend/pkg/pagination"
)

// Repository manages persistence for usage records and their paired
// approval decisions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, record *models.UsageRecord) error
	CreateDecision(ctx context.Context, decision *models.ApprovalDecision) error
	GetByID(ctx context.Context, id uuid.UUID) (models.UsageRecord, error)
	GetDecision(ctx context.Context, usageRecordID uuid.UUID) (models.ApprovalDecision, error)
	ListByTechnician(ctx context.Context, technicianID uuid.UUID, params pagination.Params) ([]models.UsageRecord, string, error)
	ListPendingForService(ctx context.Context, serviceID uuid.UUID) ([]models.UsageRecord, error)
	// UpdateStatus moves a record out of pending. The WHERE clause keeps
	// the transition one-way: a terminal record is never rewritten.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.UsageStatus) error
	UpdateDecision(ctx context.Context, decision *models.ApprovalDecision) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a usage repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, record *models.UsageRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repository) CreateDecision(ctx context.Context, decision *models.ApprovalDecision) error {
	return r.db.WithContext(ctx).Create(decision).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (models.UsageRecord, error) {
	var record models.UsageRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.UsageRecord{}, pkgerrors.New(pkgerrors.CodeNotFound, "usage record not found")
		}
		return models.UsageRecord{}, err
	}
	return record, nil
}

func (r *repository) GetDecision(ctx context.Context, usageRecordID uuid.UUID) (models.ApprovalDecision, error) {
	var decision models.ApprovalDecision
	err := r.db.WithContext(ctx).Where("usage_record_id = ?", usageRecordID).First(&decision).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.ApprovalDecision{}, pkgerrors.New(pkgerrors.CodeNotFound, "approval decision not found")
		}
		return models.ApprovalDecision{}, err
	}
	return decision, nil
}

func (r *repository) ListByTechnician(ctx context.Context, technicianID uuid.UUID, params pagination.Params) ([]models.UsageRecord, string, error) {
	limit := pagination.LimitWithBuffer(params.Limit)

	query := r.db.WithContext(ctx).
		Where("technician_id = ?", technicianID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit)

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	if cursor != nil {
		query = query.Where(
			"(created_at, id) < (?, ?)",
			cursor.CreatedAt, cursor.ID,
		)
	}

	var records []models.UsageRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, "", err
	}

	pageSize := pagination.NormalizeLimit(params.Limit)
	next := ""
	if len(records) > pageSize {
		records = records[:pageSize]
		last := records[len(records)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return records, next, nil
}

func (r *repository) ListPendingForService(ctx context.Context, serviceID uuid.UUID) ([]models.UsageRecord, error) {
	var records []models.UsageRecord
	err := r.db.WithContext(ctx).
		Where("service_id = ? AND status = ?", serviceID, enums.UsageStatusPending).
		Order("created_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.UsageStatus) error {
	result := r.db.WithContext(ctx).
		Model(&models.UsageRecord{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeAlreadyDecided, "usage record is no longer pending")
	}
	return nil
}

func (r *repository) UpdateDecision(ctx context.Context, decision *models.ApprovalDecision) error {
	result := r.db.WithContext(ctx).
		Model(&models.ApprovalDecision{}).
		Where("id = ? AND outcome = ?", decision.ID, enums.ApprovalOutcomePending).
		Updates(map[string]any{
			"outcome":    decision.Outcome,
			"decided_by": decision.DecidedBy,
			"decided_at": decision.DecidedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeAlreadyDecided, "approval decision already recorded")
	}
	return nil
}
