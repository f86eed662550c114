package stock

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/fieldstock/fieldstock-backend/pkg/db"
	"github.com/fieldstock/fieldstock-backend/pkg/db/models"
	pkgerrors "github.com/fieldstock/fieldstock-backend/pkg/errors"
)

// Repository manages persistence for stock holdings and their event trail.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// Get loads a holding. A missing row is not an error: the zero holding
	// is returned with found=false.
	Get(ctx context.Context, technicianID, itemID uuid.UUID) (models.StockHolding, bool, error)
	// Create inserts a brand-new holding at version 0. A concurrent insert
	// of the same key surfaces as CONCURRENCY_CONFLICT.
	Create(ctx context.Context, holding models.StockHolding) error
	// CompareAndSwap writes next only if the stored row still carries
	// expectedVersion, bumping the version by one. A stale version surfaces
	// as CONCURRENCY_CONFLICT and the caller must re-read and retry.
	CompareAndSwap(ctx context.Context, next models.StockHolding, expectedVersion int64) error
	AppendEvent(ctx context.Context, event *models.StockEvent) error
	ListEvents(ctx context.Context, technicianID, itemID uuid.UUID, limit int) ([]models.StockEvent, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a stock repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Get(ctx context.Context, technicianID, itemID uuid.UUID) (models.StockHolding, bool, error) {
	var holding models.StockHolding
	err := r.db.WithContext(ctx).
		Where("technician_id = ? AND item_id = ?", technicianID, itemID).
		First(&holding).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.ZeroHolding(technicianID, itemID), false, nil
		}
		return models.StockHolding{}, false, err
	}
	return holding, true, nil
}

func (r *repository) Create(ctx context.Context, holding models.StockHolding) error {
	holding.Version = 0
	if err := r.db.WithContext(ctx).Create(&holding).Error; err != nil {
		if dbpkg.IsUniqueViolation(err, "") {
			return pkgerrors.Wrap(pkgerrors.CodeConcurrency, err, "holding was created concurrently")
		}
		return err
	}
	return nil
}

func (r *repository) CompareAndSwap(ctx context.Context, next models.StockHolding, expectedVersion int64) error {
	updates := map[string]any{
		"whole_units":        next.WholeUnits,
		"is_opened":          next.IsOpened,
		"remaining_capacity": next.RemainingCapacity,
		"version":            expectedVersion + 1,
	}
	result := r.db.WithContext(ctx).
		Model(&models.StockHolding{}).
		Where("technician_id = ? AND item_id = ? AND version = ?", next.TechnicianID, next.ItemID, expectedVersion).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeConcurrency, "stock holding version conflict")
	}
	return nil
}

func (r *repository) AppendEvent(ctx context.Context, event *models.StockEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) ListEvents(ctx context.Context, technicianID, itemID uuid.UUID, limit int) ([]models.StockEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	var events []models.StockEvent
	err := r.db.WithContext(ctx).
		Where("technician_id = ? AND item_id = ?", technicianID, itemID).
		Order("created_at DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}
