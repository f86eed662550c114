package usage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/fieldstock/fieldstock-backend/pkg/db/models"
	"github.com/fieldstock/fieldstock-backend/pkg/enums"
	pkgerrors "github.com/fieldstock/fieldstock-backend/pkg/errors"
	"github.com/fieldstock/fieldstock-backend/pkg/logger"
	"github.com/fieldstock/fieldstock-backend/pkg/pagination"
)

// Service exposes the usage record intake and read surface. Intake never
// touches stock: sufficiency is checked only when a reviewer approves.
type Service interface {
	RecordUsage(ctx context.Context, input RecordUsageInput) (models.UsageRecord, error)
	GetUsageRecord(ctx context.Context, id uuid.UUID) (models.UsageRecord, error)
	ListUsageRecordsByTechnician(ctx context.Context, technicianID uuid.UUID, params pagination.Params) ([]models.UsageRecord, string, error)
	ListPendingForService(ctx context.Context, serviceID uuid.UUID) ([]models.UsageRecord, error)
}

// RecordUsageInput is the validated intake payload.
type RecordUsageInput struct {
	ServiceID    uuid.UUID
	ItemID       uuid.UUID
	TechnicianID uuid.UUID
	Amount       decimal.Decimal
}

type itemReader interface {
	GetItem(ctx context.Context, id uuid.UUID) (models.CatalogItem, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams wires the usage service dependencies.
type ServiceParams struct {
	DB      txRunner
	Repo    Repository
	Catalog itemReader
	Logger  *logger.Logger
}

type service struct {
	db      txRunner
	repo    Repository
	catalog itemReader
	logg    *logger.Logger
}

// NewService constructs a usage service instance.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("usage repository required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog reader required")
	}
	return &service{
		db:      params.DB,
		repo:    params.Repo,
		catalog: params.Catalog,
		logg:    params.Logger,
	}, nil
}

func (s *service) RecordUsage(ctx context.Context, input RecordUsageInput) (models.UsageRecord, error) {
	if input.ServiceID == uuid.Nil {
		return models.UsageRecord{}, pkgerrors.New(pkgerrors.CodeValidation, "service_id is required")
	}
	if input.TechnicianID == uuid.Nil {
		return models.UsageRecord{}, pkgerrors.New(pkgerrors.CodeValidation, "technician_id is required")
	}
	if input.ItemID == uuid.Nil {
		return models.UsageRecord{}, pkgerrors.New(pkgerrors.CodeValidation, "item_id is required")
	}
	if !input.Amount.IsPositive() {
		return models.UsageRecord{}, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	item, err := s.catalog.GetItem(ctx, input.ItemID)
	if err != nil {
		return models.UsageRecord{}, err
	}
	if !item.IsConsumable() && !input.Amount.IsInteger() {
		return models.UsageRecord{}, pkgerrors.New(pkgerrors.CodeValidation, "discrete items require a whole-number amount")
	}

	record := models.UsageRecord{
		ServiceID:       input.ServiceID,
		ItemID:          input.ItemID,
		TechnicianID:    input.TechnicianID,
		RequestedAmount: input.Amount,
		Status:          enums.UsageStatusPending,
	}
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, &record); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert usage record")
		}
		decision := models.ApprovalDecision{
			UsageRecordID: record.ID,
			Outcome:       enums.ApprovalOutcomePending,
		}
		if err := repo.CreateDecision(ctx, &decision); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert approval decision")
		}
		return nil
	})
	if err != nil {
		return models.UsageRecord{}, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithUsageRecordID(ctx, record.ID.String())
		s.logg.Info(logCtx, "usage recorded")
	}
	return record, nil
}

func (s *service) GetUsageRecord(ctx context.Context, id uuid.UUID) (models.UsageRecord, error) {
	if id == uuid.Nil {
		return models.UsageRecord{}, pkgerrors.New(pkgerrors.CodeValidation, "usage record id is required")
	}
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListUsageRecordsByTechnician(ctx context.Context, technicianID uuid.UUID, params pagination.Params) ([]models.UsageRecord, string, error) {
	if technicianID == uuid.Nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "technician_id is required")
	}
	return s.repo.ListByTechnician(ctx, technicianID, params)
}

func (s *service) ListPendingForService(ctx context.Context, serviceID uuid.UUID) ([]models.UsageRecord, error) {
	if serviceID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "service_id is required")
	}
	return s.repo.ListPendingForService(ctx, serviceID)
}
