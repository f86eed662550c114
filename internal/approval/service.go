package approval

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"

	"github.com/fieldstock/fieldstock-backend/internal/stock"
	"github.com/fieldstock/fieldstock-backend/internal/usage"
	"github.com/fieldstock/fieldstock-backend/pkg/db/models"
	"github.com/fieldstock/fieldstock-backend/pkg/enums"
	pkgerrors "github.com/fieldstock/fieldstock-backend/pkg/errors"
	"github.com/fieldstock/fieldstock-backend/pkg/logger"
	"github.com/fieldstock/fieldstock-backend/pkg/metrics"
	"github.com/fieldstock/fieldstock-backend/pkg/outbox"
	"github.com/fieldstock/fieldstock-backend/pkg/outbox/payloads"
)

// Service is the approval gate: the only code path that moves stock. A
// usage record is deducted exactly once, atomically, when a reviewer
// approves it; rejection voids the record without touching stock.
type Service interface {
	DecideApproval(ctx context.Context, usageRecordID uuid.UUID, outcome enums.ApprovalOutcome, reviewerID uuid.UUID) (models.ApprovalDecision, error)
	GetDecision(ctx context.Context, usageRecordID uuid.UUID) (models.ApprovalDecision, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type itemReader interface {
	GetItem(ctx context.Context, id uuid.UUID) (models.CatalogItem, error)
}

type outboxEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ServiceParams wires the approval service dependencies.
type ServiceParams struct {
	DB           txRunner
	Usage        usage.Repository
	Stock        stock.Repository
	Catalog      itemReader
	Outbox       outboxEmitter
	Metrics      *metrics.ApprovalMetrics
	Logger       *logger.Logger
	MaxRetries   int
	RetryBackoff time.Duration
}

type service struct {
	db           txRunner
	usage        usage.Repository
	stock        stock.Repository
	catalog      itemReader
	outbox       outboxEmitter
	metrics      *metrics.ApprovalMetrics
	logg         *logger.Logger
	maxRetries   uint64
	retryBackoff time.Duration
}

// NewService constructs the approval gate.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	if params.Usage == nil {
		return nil, fmt.Errorf("usage store required")
	}
	if params.Stock == nil {
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
		usage:        params.Usage,
		stock:        params.Stock,
		catalog:      params.Catalog,
		outbox:       params.Outbox,
		metrics:      params.Metrics,
		logg:         params.Logger,
		maxRetries:   uint64(maxRetries),
		retryBackoff: backoff,
	}, nil
}

func (s *service) DecideApproval(ctx context.Context, usageRecordID uuid.UUID, outcome enums.ApprovalOutcome, reviewerID uuid.UUID) (models.ApprovalDecision, error) {
	if usageRecordID == uuid.Nil {
		return models.ApprovalDecision{}, pkgerrors.New(pkgerrors.CodeValidation, "usage record id is required")
	}
	if reviewerID == uuid.Nil {
		return models.ApprovalDecision{}, pkgerrors.New(pkgerrors.CodeValidation, "reviewer id is required")
	}
	if !outcome.IsDecision() {
		return models.ApprovalDecision{}, pkgerrors.New(pkgerrors.CodeValidation, "outcome must be approved or rejected")
	}

	started := time.Now()
	var decision models.ApprovalDecision
	var err error
	switch outcome {
	case enums.ApprovalOutcomeApproved:
		decision, err = s.approve(ctx, usageRecordID, reviewerID)
	default:
		decision, err = s.reject(ctx, usageRecordID, reviewerID)
	}
	s.observe(outcome, started, err)
	return decision, err
}

func (s *service) GetDecision(ctx context.Context, usageRecordID uuid.UUID) (models.ApprovalDecision, error) {
	if usageRecordID == uuid.Nil {
		return models.ApprovalDecision{}, pkgerrors.New(pkgerrors.CodeValidation, "usage record id is required")
	}
	return s.usage.GetDecision(ctx, usageRecordID)
}

// approve runs the whole deduction in one transaction. A CAS conflict on the
// holding retries the entire transaction against a fresh snapshot, bounded by
// the configured retry budget.
func (s *service) approve(ctx context.Context, usageRecordID, reviewerID uuid.UUID) (models.ApprovalDecision, error) {
	var decision models.ApprovalDecision
	backoff := retry.WithMaxRetries(s.maxRetries, retry.NewConstant(s.retryBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		txErr := s.db.WithTx(ctx, func(tx *gorm.DB) error {
			usageRepo := s.usage.WithTx(tx)
			stockRepo := s.stock.WithTx(tx)

			record, err := usageRepo.GetByID(ctx, usageRecordID)
			if err != nil {
				return err
			}
			if record.Status.IsTerminal() {
				return alreadyDecided(record)
			}

			item, err := s.catalog.GetItem(ctx, record.ItemID)
			if err != nil {
				return err
			}

			holding, found, err := stockRepo.Get(ctx, record.TechnicianID, record.ItemID)
			if err != nil {
				return err
			}

			result, err := stock.Allocate(holding, item, record.RequestedAmount)
			if err != nil {
				return err
			}

			// A zero holding never satisfies a positive amount, so a
			// successful allocation implies the row exists.
			if !found {
				return pkgerrors.New(pkgerrors.CodeInvariantViolation, "allocation succeeded against a missing holding")
			}
			if err := stockRepo.CompareAndSwap(ctx, result.Holding, holding.Version); err != nil {
				return err
			}

			if err := usageRepo.UpdateStatus(ctx, record.ID, enums.UsageStatusPending, enums.UsageStatusApplied); err != nil {
				return err
			}

			now := time.Now().UTC()
			stored, err := usageRepo.GetDecision(ctx, record.ID)
			if err != nil {
				return err
			}
			stored.Outcome = enums.ApprovalOutcomeApproved
			stored.DecidedBy = &reviewerID
			stored.DecidedAt = &now
			if err := usageRepo.UpdateDecision(ctx, &stored); err != nil {
				return err
			}

			event := &models.StockEvent{
				TechnicianID:  record.TechnicianID,
				ItemID:        record.ItemID,
				UsageRecordID: &record.ID,
				Type:          enums.StockEventTypeDeducted,
				Amount:        record.RequestedAmount,
			}
			if err := event.SetBreakdown(result.Breakdown); err != nil {
				return err
			}
			if err := stockRepo.AppendEvent(ctx, event); err != nil {
				return err
			}

			if err := s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventUsageApplied,
				AggregateType: enums.AggregateUsageRecord,
				AggregateID:   record.ID,
				Actor:         &outbox.ActorRef{ActorID: reviewerID, Role: string(enums.RoleReviewer)},
				Data: payloads.UsageAppliedEvent{
					UsageRecordID: record.ID,
					ServiceID:     record.ServiceID,
					ItemID:        record.ItemID,
					TechnicianID:  record.TechnicianID,
					Amount:        record.RequestedAmount,
					Breakdown:     result.Breakdown,
					DecidedAt:     now,
				},
				Version: 1,
			}); err != nil {
				return err
			}

			decision = stored
			return nil
		})
		if pkgerrors.Is(txErr, pkgerrors.CodeConcurrency) {
			if s.metrics != nil {
				s.metrics.IncConflictRetry()
			}
			return retry.RetryableError(txErr)
		}
		return txErr
	})
	if err != nil {
		return models.ApprovalDecision{}, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithUsageRecordID(ctx, usageRecordID.String())
		logCtx = s.logg.WithReviewerID(logCtx, reviewerID.String())
		s.logg.Info(logCtx, "usage approved and stock deducted")
	}
	return decision, nil
}

// reject is the cheap branch: the record is voided and the decision closed
// without a single stock read.
func (s *service) reject(ctx context.Context, usageRecordID, reviewerID uuid.UUID) (models.ApprovalDecision, error) {
	var decision models.ApprovalDecision
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		usageRepo := s.usage.WithTx(tx)

		record, err := usageRepo.GetByID(ctx, usageRecordID)
		if err != nil {
			return err
		}
		if record.Status.IsTerminal() {
			return alreadyDecided(record)
		}

		if err := usageRepo.UpdateStatus(ctx, record.ID, enums.UsageStatusPending, enums.UsageStatusVoided); err != nil {
			return err
		}

		now := time.Now().UTC()
		stored, err := usageRepo.GetDecision(ctx, record.ID)
		if err != nil {
			return err
		}
		stored.Outcome = enums.ApprovalOutcomeRejected
		stored.DecidedBy = &reviewerID
		stored.DecidedAt = &now
		if err := usageRepo.UpdateDecision(ctx, &stored); err != nil {
			return err
		}

		if err := s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventUsageVoided,
			AggregateType: enums.AggregateUsageRecord,
			AggregateID:   record.ID,
			Actor:         &outbox.ActorRef{ActorID: reviewerID, Role: string(enums.RoleReviewer)},
			Data: payloads.UsageVoidedEvent{
				UsageRecordID: record.ID,
				ServiceID:     record.ServiceID,
				ItemID:        record.ItemID,
				TechnicianID:  record.TechnicianID,
				Amount:        record.RequestedAmount,
				DecidedAt:     now,
			},
			Version: 1,
		}); err != nil {
			return err
		}

		decision = stored
		return nil
	})
	if err != nil {
		return models.ApprovalDecision{}, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithUsageRecordID(ctx, usageRecordID.String())
		logCtx = s.logg.WithReviewerID(logCtx, reviewerID.String())
		s.logg.Info(logCtx, "usage rejected and voided")
	}
	return decision, nil
}

func (s *service) observe(outcome enums.ApprovalOutcome, started time.Time, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveDecision(string(outcome), time.Since(started))
	switch {
	case err == nil && outcome == enums.ApprovalOutcomeApproved:
		s.metrics.IncApplied()
	case err == nil && outcome == enums.ApprovalOutcomeRejected:
		s.metrics.IncVoided()
	case pkgerrors.Is(err, pkgerrors.CodeInsufficientStock):
		s.metrics.IncInsufficientStock()
	case pkgerrors.Is(err, pkgerrors.CodeAlreadyDecided):
		s.metrics.IncAlreadyDecided()
	}
}

func alreadyDecided(record models.UsageRecord) error {
	return pkgerrors.New(pkgerrors.CodeAlreadyDecided, "usage record already decided").
		WithDetails(map[string]any{
			"usage_record_id": record.ID.String(),
			"status":          string(record.Status),
		})
}
