package usage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/fieldstock/fieldstock-backend/pkg/db/models"
	"github.com/fieldstock/fieldstock-backend/pkg/enums"
	pkgerrors "github.com/fieldstock/fieldstock-backend/pkg/errors"
)

func setupUsageTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	usageRecords := `
CREATE TABLE IF NOT EXISTS usage_records (
  id TEXT PRIMARY KEY,
  service_id TEXT NOT NULL,
  item_id TEXT NOT NULL,
  technician_id TEXT NOT NULL,
  requested_amount TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  created_at DATETIME,
  updated_at DATETIME
);`
	approvalDecisions := `
CREATE TABLE IF NOT EXISTS approval_decisions (
  id TEXT PRIMARY KEY,
  usage_record_id TEXT NOT NULL UNIQUE,
  outcome TEXT NOT NULL DEFAULT 'pending',
  decided_by TEXT,
  decided_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(usageRecords).Error)
	require.NoError(t, db.Exec(approvalDecisions).Error)

	t.Cleanup(func() {
		db.Exec("DELETE FROM usage_records")
		db.Exec("DELETE FROM approval_decisions")
	})

	return db
}

func newPendingRecord(technicianID uuid.UUID) models.UsageRecord {
	return models.UsageRecord{
		ID:              uuid.New(),
		ServiceID:       uuid.New(),
		ItemID:          uuid.New(),
		TechnicianID:    technicianID,
		RequestedAmount: decimal.RequireFromString("37.5"),
		Status:          enums.UsageStatusPending,
	}
}

func TestRepositoryCreateAndGetByID(t *testing.T) {
	db := setupUsageTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	record := newPendingRecord(uuid.New())
	require.NoError(t, repo.Create(ctx, &record))

	loaded, err := repo.GetByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.ServiceID, loaded.ServiceID)
	assert.Equal(t, enums.UsageStatusPending, loaded.Status)
	assert.True(t, loaded.RequestedAmount.Equal(record.RequestedAmount))
}

func TestRepositoryGetByIDNotFound(t *testing.T) {
	db := setupUsageTestDB(t)
	repo := NewRepository(db)

	_, err := repo.GetByID(context.Background(), uuid.New())
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestRepositoryUpdateStatusIsOneWay(t *testing.T) {
	db := setupUsageTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	record := newPendingRecord(uuid.New())
	require.NoError(t, repo.Create(ctx, &record))

	require.NoError(t, repo.UpdateStatus(ctx, record.ID, enums.UsageStatusPending, enums.UsageStatusApplied))

	// A second transition out of pending must not rewrite the terminal row.
	err := repo.UpdateStatus(ctx, record.ID, enums.UsageStatusPending, enums.UsageStatusVoided)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeAlreadyDecided, typed.Code())

	loaded, err := repo.GetByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.UsageStatusApplied, loaded.Status)
}

func TestRepositoryDecisionLifecycle(t *testing.T) {
	db := setupUsageTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	record := newPendingRecord(uuid.New())
	require.NoError(t, repo.Create(ctx, &record))

	decision := models.ApprovalDecision{
		ID:            uuid.New(),
		UsageRecordID: record.ID,
		Outcome:       enums.ApprovalOutcomePending,
	}
	require.NoError(t, repo.CreateDecision(ctx, &decision))

	reviewer := uuid.New()
	now := time.Now().UTC()
	decision.Outcome = enums.ApprovalOutcomeApproved
	decision.DecidedBy = &reviewer
	decision.DecidedAt = &now
	require.NoError(t, repo.UpdateDecision(ctx, &decision))

	loaded, err := repo.GetDecision(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ApprovalOutcomeApproved, loaded.Outcome)
	require.NotNil(t, loaded.DecidedBy)
	assert.Equal(t, reviewer, *loaded.DecidedBy)

	// Re-deciding a settled decision must fail.
	decision.Outcome = enums.ApprovalOutcomeRejected
	err = repo.UpdateDecision(ctx, &decision)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeAlreadyDecided, typed.Code())
}

func TestRepositoryListPendingForService(t *testing.T) {
	db := setupUsageTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	serviceID := uuid.New()
	first := newPendingRecord(uuid.New())
	first.ServiceID = serviceID
	second := newPendingRecord(uuid.New())
	second.ServiceID = serviceID
	applied := newPendingRecord(uuid.New())
	applied.ServiceID = serviceID
	applied.Status = enums.UsageStatusApplied
	other := newPendingRecord(uuid.New())

	for _, record := range []*models.UsageRecord{&first, &second, &applied, &other} {
		require.NoError(t, repo.Create(ctx, record))
	}

	pending, err := repo.ListPendingForService(ctx, serviceID)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	for _, record := range pending {
		assert.Equal(t, serviceID, record.ServiceID)
		assert.Equal(t, enums.UsageStatusPending, record.Status)
	}
}
