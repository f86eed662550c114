package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fieldstock/fieldstock-backend/pkg/db/models"
	"github.com/fieldstock/fieldstock-backend/pkg/enums"
	pkgerrors "github.com/fieldstock/fieldstock-backend/pkg/errors"
)

// Service exposes catalog item management.
type Service interface {
	CreateItem(ctx context.Context, input CreateItemInput) (models.CatalogItem, error)
	GetItem(ctx context.Context, id uuid.UUID) (models.CatalogItem, error)
	ListItems(ctx context.Context, filter ListFilter) ([]models.CatalogItem, error)
	UpdateItem(ctx context.Context, id uuid.UUID, input UpdateItemInput) (models.CatalogItem, error)
}

// CreateItemInput holds the validated payload to create a catalog item.
type CreateItemInput struct {
	Name            string
	Brand           string
	Kind            enums.ItemKind
	CapacityPerUnit *decimal.Decimal
	CapacityUnit    *enums.CapacityUnit
}

// UpdateItemInput holds optional mutation values for a catalog item.
type UpdateItemInput struct {
	Name     *string
	Brand    *string
	IsActive *bool
}

type service struct {
	repo Repository
}

// NewService constructs a catalog service instance.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) CreateItem(ctx context.Context, input CreateItemInput) (models.CatalogItem, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return models.CatalogItem{}, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	brand := strings.TrimSpace(input.Brand)
	if brand == "" {
		return models.CatalogItem{}, pkgerrors.New(pkgerrors.CodeValidation, "brand is required")
	}
	if !input.Kind.IsValid() {
		return models.CatalogItem{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid item kind")
	}

	switch input.Kind {
	case enums.ItemKindDiscrete:
		if input.CapacityPerUnit != nil || input.CapacityUnit != nil {
			return models.CatalogItem{}, pkgerrors.New(pkgerrors.CodeValidation, "discrete items carry no capacity")
		}
	case enums.ItemKindConsumable:
		if input.CapacityPerUnit == nil || !input.CapacityPerUnit.IsPositive() {
			return models.CatalogItem{}, pkgerrors.New(pkgerrors.CodeValidation, "consumable items require a positive capacity_per_unit")
		}
		if input.CapacityUnit == nil || !input.CapacityUnit.IsValid() {
			return models.CatalogItem{}, pkgerrors.New(pkgerrors.CodeValidation, "consumable items require a capacity_unit")
		}
	}

	item := models.CatalogItem{
		Name:            name,
		Brand:           brand,
		Kind:            input.Kind,
		CapacityPerUnit: input.CapacityPerUnit,
		CapacityUnit:    input.CapacityUnit,
		IsActive:        true,
	}
	if err := s.repo.Create(ctx, &item); err != nil {
		return models.CatalogItem{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert catalog item")
	}
	return item, nil
}

func (s *service) GetItem(ctx context.Context, id uuid.UUID) (models.CatalogItem, error) {
	if id == uuid.Nil {
		return models.CatalogItem{}, pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListItems(ctx context.Context, filter ListFilter) ([]models.CatalogItem, error) {
	return s.repo.List(ctx, filter)
}

func (s *service) UpdateItem(ctx context.Context, id uuid.UUID, input UpdateItemInput) (models.CatalogItem, error) {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return models.CatalogItem{}, err
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return models.CatalogItem{}, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		item.Name = name
	}
	if input.Brand != nil {
		brand := strings.TrimSpace(*input.Brand)
		if brand == "" {
			return models.CatalogItem{}, pkgerrors.New(pkgerrors.CodeValidation, "brand cannot be empty")
		}
		item.Brand = brand
	}
	if input.IsActive != nil {
		item.IsActive = *input.IsActive
	}
	if err := s.repo.Update(ctx, &item); err != nil {
		return models.CatalogItem{}, err
	}
	return item, nil
}
