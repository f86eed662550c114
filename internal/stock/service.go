package stock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/fieldstock/fieldstock-backend/pkg/db/models"
	"github.com/fieldstock/fieldstock-backend/pkg/enums"
	pkgerrors "github.com/fieldstock/fieldstock-backend/pkg/errors"
	"github.com/fieldstock/fieldstock-backend/pkg/logger"
	"github.com/fieldstock/fieldstock-backend/pkg/outbox"
	"github.com/fieldstock/fieldstock-backend/pkg/outbox/payloads"
)

// Service exposes read and provisioning operations over stock holdings.
// Deductions are owned by the approval gate; this service never consumes.
type Service interface {
	GetHolding(ctx context.Context, technicianID, itemID uuid.UUID) (models.StockHolding, error)
	AddStock(ctx context.Context, input AddStockInput) (models.StockHolding, error)
	ListEvents(ctx context.Context, technicianID, itemID uuid.UUID, limit int) ([]models.StockEvent, error)
}

// AddStockInput describes a provisioning delivery of sealed units.
type AddStockInput struct {
	TechnicianID uuid.UUID
	ItemID       uuid.UUID
	Units        int
	ActorID      uuid.UUID
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type itemReader interface {
	GetItem(ctx context.Context, id uuid.UUID) (models.CatalogItem, error)
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ServiceParams wires the stock service dependencies.
type ServiceParams struct {
	DB           txRunner
	Repo         Repository
	Catalog      itemReader
	Outbox       outboxEmitter
	Logger       *logger.Logger
	MaxRetries   int
	RetryBackoff time.Duration
}

type service struct {
	db           txRunner
	repo         Repository
	catalog      itemReader
	outbox       outboxEmitter
	logg         *logger.Logger
	maxRetries   uint64
	retryBackoff time.Duration
}

// NewService builds the stock service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog reader required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	maxRetries := params.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 5
	}
	backoff := params.RetryBackoff
	if backoff <= 0 {
		backoff = 25 * time.Millisecond
	}
	return &service{
		db:           params.DB,
		repo:         params.Repo,
		catalog:      params.Catalog,
		outbox:       params.Outbox,
		logg:         params.Logger,
		maxRetries:   uint64(maxRetries),
		retryBackoff: backoff,
	}, nil
}

func (s *service) GetHolding(ctx context.Context, technicianID, itemID uuid.UUID) (models.StockHolding, error) {
	holding, _, err := s.repo.Get(ctx, technicianID, itemID)
	if err != nil {
		return models.StockHolding{}, err
	}
	return holding, nil
}

func (s *service) ListEvents(ctx context.Context, technicianID, itemID uuid.UUID, limit int) ([]models.StockEvent, error) {
	return s.repo.ListEvents(ctx, technicianID, itemID, limit)
}

func (s *service) AddStock(ctx context.Context, input AddStockInput) (models.StockHolding, error) {
	if input.Units <= 0 {
		return models.StockHolding{}, pkgerrors.New(pkgerrors.CodeValidation, "restock units must be positive")
	}
	if _, err := s.catalog.GetItem(ctx, input.ItemID); err != nil {
		return models.StockHolding{}, err
	}

	var result models.StockHolding
	backoff := retry.WithMaxRetries(s.maxRetries, retry.NewConstant(s.retryBackoff))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		txErr := s.db.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)

			holding, found, err := repo.Get(ctx, input.TechnicianID, input.ItemID)
			if err != nil {
				return err
			}

			next := holding
			next.WholeUnits += input.Units
			if found {
				if err := repo.CompareAndSwap(ctx, next, holding.Version); err != nil {
					return err
				}
				next.Version = holding.Version + 1
			} else {
				if err := repo.Create(ctx, next); err != nil {
					return err
				}
			}

			event := &models.StockEvent{
				TechnicianID: input.TechnicianID,
				ItemID:       input.ItemID,
				Type:         enums.StockEventTypeRestocked,
				Amount:       decimal.NewFromInt(int64(input.Units)),
			}
			if err := repo.AppendEvent(ctx, event); err != nil {
				return err
			}

			if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventStockRestocked,
				AggregateType: enums.AggregateStockHolding,
				AggregateID:   input.ItemID,
				Actor:         &outbox.ActorRef{ActorID: input.ActorID},
				Data: payloads.StockRestockedEvent{
					TechnicianID: input.TechnicianID,
					ItemID:       input.ItemID,
					Units:        input.Units,
				},
				Version: 1,
			}); err != nil {
				return err
			}

			result = next
			return nil
		})
		if pkgerrors.Is(txErr, pkgerrors.CodeConcurrency) {
			return retry.RetryableError(txErr)
		}
		return txErr
	})
	if err != nil {
		return models.StockHolding{}, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"technician_id": input.TechnicianID.String(),
			"item_id":       input.ItemID.String(),
			"units":         input.Units,
		})
		s.logg.Info(logCtx, "stock restocked")
	}
	return result, nil
}
