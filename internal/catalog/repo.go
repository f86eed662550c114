package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fieldstock/fieldstock-backend/pkg/db/models"
	pkgerrors "github.com/fieldstock/fieldstock-backend/pkg/errors"
)

// Repository manages persistence for catalog items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, item *models.CatalogItem) error
	GetByID(ctx context.Context, id uuid.UUID) (models.CatalogItem, error)
	List(ctx context.Context, filter ListFilter) ([]models.CatalogItem, error)
	Update(ctx context.Context, item *models.CatalogItem) error
}

// ListFilter narrows a catalog listing.
type ListFilter struct {
	ActiveOnly bool
	Limit      int
	Offset     int
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a catalog repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, item *models.CatalogItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (models.CatalogItem, error) {
	var item models.CatalogItem
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.CatalogItem{}, pkgerrors.New(pkgerrors.CodeNotFound, "catalog item not found")
		}
		return models.CatalogItem{}, err
	}
	return item, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.CatalogItem, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query := r.db.WithContext(ctx).Model(&models.CatalogItem{})
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	var items []models.CatalogItem
	err := query.Order("name ASC").
		Limit(limit).
		Offset(filter.Offset).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) Update(ctx context.Context, item *models.CatalogItem) error {
	result := r.db.WithContext(ctx).
		Model(&models.CatalogItem{}).
		Where("id = ?", item.ID).
		Updates(map[string]any{
			"name":              item.Name,
			"brand":             item.Brand,
			"capacity_per_unit": item.CapacityPerUnit,
			"capacity_unit":     item.CapacityUnit,
			"is_active":         item.IsActive,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "catalog item not found")
	}
	return nil
}
