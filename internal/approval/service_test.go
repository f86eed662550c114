package approval

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/fieldstock/fieldstock-backend/internal/stock"
	"github.com/fieldstock/fieldstock-backend/internal/usage"
	"github.com/fieldstock/fieldstock-backend/pkg/db/models"
	"github.com/fieldstock/fieldstock-backend/pkg/enums"
	pkgerrors "github.com/fieldstock/fieldstock-backend/pkg/errors"
	"github.com/fieldstock/fieldstock-backend/pkg/outbox"
	"github.com/fieldstock/fieldstock-backend/pkg/pagination"
)

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type fakeCatalog struct {
	items map[uuid.UUID]models.CatalogItem
}

func (f *fakeCatalog) GetItem(_ context.Context, id uuid.UUID) (models.CatalogItem, error) {
	item, ok := f.items[id]
	if !ok {
		return models.CatalogItem{}, pkgerrors.New(pkgerrors.CodeNotFound, "catalog item not found")
	}
	return item, nil
}

type fakeUsageRepo struct {
	records   map[uuid.UUID]models.UsageRecord
	decisions map[uuid.UUID]models.ApprovalDecision
}

func newFakeUsageRepo() *fakeUsageRepo {
	return &fakeUsageRepo{
		records:   make(map[uuid.UUID]models.UsageRecord),
		decisions: make(map[uuid.UUID]models.ApprovalDecision),
	}
}

func (f *fakeUsageRepo) WithTx(tx *gorm.DB) usage.Repository { return f }

func (f *fakeUsageRepo) Create(_ context.Context, record *models.UsageRecord) error {
	f.records[record.ID] = *record
	return nil
}

func (f *fakeUsageRepo) CreateDecision(_ context.Context, decision *models.ApprovalDecision) error {
	f.decisions[decision.UsageRecordID] = *decision
	return nil
}

func (f *fakeUsageRepo) GetByID(_ context.Context, id uuid.UUID) (models.UsageRecord, error) {
	record, ok := f.records[id]
	if !ok {
		return models.UsageRecord{}, pkgerrors.New(pkgerrors.CodeNotFound, "usage record not found")
	}
	return record, nil
}

func (f *fakeUsageRepo) GetDecision(_ context.Context, usageRecordID uuid.UUID) (models.ApprovalDecision, error) {
	decision, ok := f.decisions[usageRecordID]
	if !ok {
		return models.ApprovalDecision{}, pkgerrors.New(pkgerrors.CodeNotFound, "approval decision not found")
	}
	return decision, nil
}

func (f *fakeUsageRepo) ListByTechnician(_ context.Context, _ uuid.UUID, _ pagination.Params) ([]models.UsageRecord, string, error) {
	return nil, "", nil
}

func (f *fakeUsageRepo) ListPendingForService(_ context.Context, _ uuid.UUID) ([]models.UsageRecord, error) {
	return nil, nil
}

func (f *fakeUsageRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to enums.UsageStatus) error {
	record, ok := f.records[id]
	if !ok || record.Status != from {
		return pkgerrors.New(pkgerrors.CodeAlreadyDecided, "usage record already decided")
	}
	record.Status = to
	f.records[id] = record
	return nil
}

func (f *fakeUsageRepo) UpdateDecision(_ context.Context, decision *models.ApprovalDecision) error {
	stored, ok := f.decisions[decision.UsageRecordID]
	if !ok || stored.Outcome != enums.ApprovalOutcomePending {
		return pkgerrors.New(pkgerrors.CodeAlreadyDecided, "approval decision already recorded")
	}
	f.decisions[decision.UsageRecordID] = *decision
	return nil
}

type fakeStockRepo struct {
	holding    models.StockHolding
	found      bool
	getCalls   int
	swapCalls  int
	conflicts  int
	events     []models.StockEvent
	swappedTo  models.StockHolding
	swapped    bool
	swapExpect int64
}

func (f *fakeStockRepo) WithTx(tx *gorm.DB) stock.Repository { return f }

func (f *fakeStockRepo) Get(_ context.Context, technicianID, itemID uuid.UUID) (models.StockHolding, bool, error) {
	f.getCalls++
	if !f.found {
		return models.ZeroHolding(technicianID, itemID), false, nil
	}
	return f.holding, true, nil
}

func (f *fakeStockRepo) Create(_ context.Context, holding models.StockHolding) error {
	f.holding = holding
	f.found = true
	return nil
}

func (f *fakeStockRepo) CompareAndSwap(_ context.Context, next models.StockHolding, expectedVersion int64) error {
	f.swapCalls++
	if f.conflicts > 0 {
		f.conflicts--
		return pkgerrors.New(pkgerrors.CodeConcurrency, "stock holding version conflict")
	}
	f.swapped = true
	f.swappedTo = next
	f.swapExpect = expectedVersion
	next.Version = expectedVersion + 1
	f.holding = next
	return nil
}

func (f *fakeStockRepo) AppendEvent(_ context.Context, event *models.StockEvent) error {
	f.events = append(f.events, *event)
	return nil
}

func (f *fakeStockRepo) ListEvents(_ context.Context, _, _ uuid.UUID, _ int) ([]models.StockEvent, error) {
	return f.events, nil
}

type fakeOutbox struct {
	events []outbox.DomainEvent
}

func (f *fakeOutbox) EmitIfNotExists(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

type fixture struct {
	svc    Service
	usage  *fakeUsageRepo
	stock  *fakeStockRepo
	outbox *fakeOutbox
	record models.UsageRecord
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

// newFixture seeds a pending usage record of 50ml against a technician
// holding two sealed 100ml units plus an opened one with 30ml left.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	unit := enums.CapacityUnitMilliliter
	item := models.CatalogItem{
		ID:              uuid.New(),
		Name:            "flush solvent",
		Kind:            enums.ItemKindConsumable,
		CapacityPerUnit: decPtr("100"),
		CapacityUnit:    &unit,
		IsActive:        true,
	}
	technicianID := uuid.New()

	usageRepo := newFakeUsageRepo()
	record := models.UsageRecord{
		ID:              uuid.New(),
		ServiceID:       uuid.New(),
		TechnicianID:    technicianID,
		ItemID:          item.ID,
		RequestedAmount: dec("50"),
		Status:          enums.UsageStatusPending,
	}
	usageRepo.records[record.ID] = record
	usageRepo.decisions[record.ID] = models.ApprovalDecision{
		ID:            uuid.New(),
		UsageRecordID: record.ID,
		Outcome:       enums.ApprovalOutcomePending,
	}

	stockRepo := &fakeStockRepo{
		holding: models.StockHolding{
			TechnicianID:      technicianID,
			ItemID:            item.ID,
			WholeUnits:        2,
			IsOpened:          true,
			RemainingCapacity: decPtr("30"),
			Version:           4,
		},
		found: true,
	}
	ob := &fakeOutbox{}

	svc, err := NewService(ServiceParams{
		DB:           fakeTxRunner{},
		Usage:        usageRepo,
		Stock:        stockRepo,
		Catalog:      &fakeCatalog{items: map[uuid.UUID]models.CatalogItem{item.ID: item}},
		Outbox:       ob,
		RetryBackoff: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &fixture{svc: svc, usage: usageRepo, stock: stockRepo, outbox: ob, record: record}
}

func TestDecideApprovalAppliesExactlyOnce(t *testing.T) {
	f := newFixture(t)
	reviewerID := uuid.New()

	decision, err := f.svc.DecideApproval(context.Background(), f.record.ID, enums.ApprovalOutcomeApproved, reviewerID)
	if err != nil {
		t.Fatalf("DecideApproval: %v", err)
	}
	if decision.Outcome != enums.ApprovalOutcomeApproved {
		t.Fatalf("outcome = %s, want approved", decision.Outcome)
	}
	if decision.DecidedBy == nil || *decision.DecidedBy != reviewerID {
		t.Fatalf("decided_by = %v, want %s", decision.DecidedBy, reviewerID)
	}
	if decision.DecidedAt == nil {
		t.Fatal("decided_at not set")
	}

	record := f.usage.records[f.record.ID]
	if record.Status != enums.UsageStatusApplied {
		t.Fatalf("record status = %s, want applied", record.Status)
	}

	// 30ml from the opened container, then one sealed unit opened for the
	// remaining 20ml: one sealed unit left, 80ml in the new open container.
	if !f.stock.swapped {
		t.Fatal("holding was not swapped")
	}
	if f.stock.swapExpect != 4 {
		t.Fatalf("swap expected version %d, want 4", f.stock.swapExpect)
	}
	next := f.stock.swappedTo
	if next.WholeUnits != 1 {
		t.Fatalf("whole units = %d, want 1", next.WholeUnits)
	}
	if !next.IsOpened || next.RemainingCapacity == nil || !next.RemainingCapacity.Equal(dec("80")) {
		t.Fatalf("opened remainder = %v, want 80", next.RemainingCapacity)
	}

	if len(f.stock.events) != 1 {
		t.Fatalf("stock events = %d, want 1", len(f.stock.events))
	}
	event := f.stock.events[0]
	if event.Type != enums.StockEventTypeDeducted {
		t.Fatalf("event type = %s, want deducted", event.Type)
	}
	if event.UsageRecordID == nil || *event.UsageRecordID != f.record.ID {
		t.Fatalf("event usage record = %v, want %s", event.UsageRecordID, f.record.ID)
	}
	breakdown, err := event.GetBreakdown()
	if err != nil {
		t.Fatalf("GetBreakdown: %v", err)
	}
	if !breakdown.FromOpened.Equal(dec("30")) || !breakdown.OpenedNewUnit {
		t.Fatalf("unexpected breakdown: %+v", breakdown)
	}

	if len(f.outbox.events) != 1 {
		t.Fatalf("outbox events = %d, want 1", len(f.outbox.events))
	}
	if f.outbox.events[0].EventType != enums.EventUsageApplied {
		t.Fatalf("outbox event = %s, want %s", f.outbox.events[0].EventType, enums.EventUsageApplied)
	}
	if f.outbox.events[0].AggregateID != f.record.ID {
		t.Fatalf("outbox aggregate = %s, want %s", f.outbox.events[0].AggregateID, f.record.ID)
	}
}

func TestDecideApprovalRejectNeverTouchesStock(t *testing.T) {
	f := newFixture(t)
	reviewerID := uuid.New()

	decision, err := f.svc.DecideApproval(context.Background(), f.record.ID, enums.ApprovalOutcomeRejected, reviewerID)
	if err != nil {
		t.Fatalf("DecideApproval: %v", err)
	}
	if decision.Outcome != enums.ApprovalOutcomeRejected {
		t.Fatalf("outcome = %s, want rejected", decision.Outcome)
	}

	record := f.usage.records[f.record.ID]
	if record.Status != enums.UsageStatusVoided {
		t.Fatalf("record status = %s, want voided", record.Status)
	}
	if f.stock.getCalls != 0 || f.stock.swapCalls != 0 {
		t.Fatalf("stock touched on reject: gets=%d swaps=%d", f.stock.getCalls, f.stock.swapCalls)
	}
	if len(f.outbox.events) != 1 || f.outbox.events[0].EventType != enums.EventUsageVoided {
		t.Fatalf("expected one voided outbox event, got %+v", f.outbox.events)
	}
}

func TestDecideApprovalTerminalRecordIsRejected(t *testing.T) {
	for _, status := range []enums.UsageStatus{enums.UsageStatusApplied, enums.UsageStatusVoided} {
		t.Run(string(status), func(t *testing.T) {
			f := newFixture(t)
			record := f.usage.records[f.record.ID]
			record.Status = status
			f.usage.records[f.record.ID] = record

			_, err := f.svc.DecideApproval(context.Background(), f.record.ID, enums.ApprovalOutcomeApproved, uuid.New())
			if !pkgerrors.Is(err, pkgerrors.CodeAlreadyDecided) {
				t.Fatalf("err = %v, want ALREADY_DECIDED", err)
			}
			if f.stock.swapCalls != 0 {
				t.Fatal("stock swapped for a terminal record")
			}
		})
	}
}

func TestDecideApprovalInsufficientStockLeavesPending(t *testing.T) {
	f := newFixture(t)
	f.stock.holding.WholeUnits = 0
	f.stock.holding.IsOpened = true
	f.stock.holding.RemainingCapacity = decPtr("10")

	_, err := f.svc.DecideApproval(context.Background(), f.record.ID, enums.ApprovalOutcomeApproved, uuid.New())
	if !pkgerrors.Is(err, pkgerrors.CodeInsufficientStock) {
		t.Fatalf("err = %v, want INSUFFICIENT_STOCK", err)
	}

	record := f.usage.records[f.record.ID]
	if record.Status != enums.UsageStatusPending {
		t.Fatalf("record status = %s, want pending", record.Status)
	}
	decision := f.usage.decisions[f.record.ID]
	if decision.Outcome != enums.ApprovalOutcomePending {
		t.Fatalf("decision outcome = %s, want pending", decision.Outcome)
	}
	if f.stock.swapCalls != 0 {
		t.Fatal("holding swapped despite insufficient stock")
	}
	if len(f.outbox.events) != 0 {
		t.Fatalf("outbox events = %d, want 0", len(f.outbox.events))
	}
}

func TestDecideApprovalMissingHolding(t *testing.T) {
	f := newFixture(t)
	f.stock.found = false

	_, err := f.svc.DecideApproval(context.Background(), f.record.ID, enums.ApprovalOutcomeApproved, uuid.New())
	if !pkgerrors.Is(err, pkgerrors.CodeInsufficientStock) {
		t.Fatalf("err = %v, want INSUFFICIENT_STOCK", err)
	}
}

func TestDecideApprovalRetriesVersionConflict(t *testing.T) {
	f := newFixture(t)
	f.stock.conflicts = 2

	decision, err := f.svc.DecideApproval(context.Background(), f.record.ID, enums.ApprovalOutcomeApproved, uuid.New())
	if err != nil {
		t.Fatalf("DecideApproval: %v", err)
	}
	if decision.Outcome != enums.ApprovalOutcomeApproved {
		t.Fatalf("outcome = %s, want approved", decision.Outcome)
	}
	if f.stock.swapCalls != 3 {
		t.Fatalf("swap calls = %d, want 3", f.stock.swapCalls)
	}
	record := f.usage.records[f.record.ID]
	if record.Status != enums.UsageStatusApplied {
		t.Fatalf("record status = %s, want applied", record.Status)
	}
}

func TestDecideApprovalConflictRetriesExhaust(t *testing.T) {
	f := newFixture(t)
	f.stock.conflicts = 100

	_, err := f.svc.DecideApproval(context.Background(), f.record.ID, enums.ApprovalOutcomeApproved, uuid.New())
	if !pkgerrors.Is(err, pkgerrors.CodeConcurrency) {
		t.Fatalf("err = %v, want CONCURRENCY_CONFLICT", err)
	}
	// Initial attempt plus the configured retry budget.
	if f.stock.swapCalls != 6 {
		t.Fatalf("swap calls = %d, want 6", f.stock.swapCalls)
	}
	record := f.usage.records[f.record.ID]
	if record.Status != enums.UsageStatusPending {
		t.Fatalf("record status = %s, want pending", record.Status)
	}
}

func TestDecideApprovalValidation(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name     string
		recordID uuid.UUID
		outcome  enums.ApprovalOutcome
		reviewer uuid.UUID
	}{
		{"nil record id", uuid.Nil, enums.ApprovalOutcomeApproved, uuid.New()},
		{"nil reviewer", f.record.ID, enums.ApprovalOutcomeApproved, uuid.Nil},
		{"pending outcome", f.record.ID, enums.ApprovalOutcomePending, uuid.New()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.DecideApproval(context.Background(), tc.recordID, tc.outcome, tc.reviewer)
			if !pkgerrors.Is(err, pkgerrors.CodeValidation) {
				t.Fatalf("err = %v, want VALIDATION", err)
			}
		})
	}
}

// versionedStockRepo enforces the compare-and-swap contract the way the real
// table does: a swap only wins when the caller's expected version still
// matches the stored row. It can serve a configurable number of reads from a
// stale snapshot to interleave two decisions against the same holding.
type versionedStockRepo struct {
	holding   models.StockHolding
	stale     models.StockHolding
	staleGets int
	swapCalls int
	events    []models.StockEvent
}

func (f *versionedStockRepo) WithTx(tx *gorm.DB) stock.Repository { return f }

func (f *versionedStockRepo) Get(_ context.Context, _, _ uuid.UUID) (models.StockHolding, bool, error) {
	if f.staleGets > 0 {
		f.staleGets--
		return f.stale, true, nil
	}
	return f.holding, true, nil
}

func (f *versionedStockRepo) Create(_ context.Context, holding models.StockHolding) error {
	return pkgerrors.New(pkgerrors.CodeConcurrency, "holding was created concurrently")
}

func (f *versionedStockRepo) CompareAndSwap(_ context.Context, next models.StockHolding, expectedVersion int64) error {
	f.swapCalls++
	if expectedVersion != f.holding.Version {
		return pkgerrors.New(pkgerrors.CodeConcurrency, "stock holding version conflict")
	}
	next.Version = expectedVersion + 1
	f.holding = next
	return nil
}

func (f *versionedStockRepo) AppendEvent(_ context.Context, event *models.StockEvent) error {
	f.events = append(f.events, *event)
	return nil
}

func (f *versionedStockRepo) ListEvents(_ context.Context, _, _ uuid.UUID, _ int) ([]models.StockEvent, error) {
	return f.events, nil
}

// Two 60ml requests against a single opened 100ml unit. The second decision
// reads the holding before the first one commits, so its swap carries a stale
// version; the retry re-reads 40ml remaining and the allocation fails. The
// holding must end with exactly one deduction applied.
func TestDecideApprovalConcurrentDoubleSpend(t *testing.T) {
	unit := enums.CapacityUnitMilliliter
	item := models.CatalogItem{
		ID:              uuid.New(),
		Name:            "flush solvent",
		Kind:            enums.ItemKindConsumable,
		CapacityPerUnit: decPtr("100"),
		CapacityUnit:    &unit,
		IsActive:        true,
	}
	technicianID := uuid.New()

	usageRepo := newFakeUsageRepo()
	var records [2]models.UsageRecord
	for i := range records {
		records[i] = models.UsageRecord{
			ID:              uuid.New(),
			ServiceID:       uuid.New(),
			TechnicianID:    technicianID,
			ItemID:          item.ID,
			RequestedAmount: dec("60"),
			Status:          enums.UsageStatusPending,
		}
		usageRepo.records[records[i].ID] = records[i]
		usageRepo.decisions[records[i].ID] = models.ApprovalDecision{
			ID:            uuid.New(),
			UsageRecordID: records[i].ID,
			Outcome:       enums.ApprovalOutcomePending,
		}
	}

	opened := models.StockHolding{
		TechnicianID:      technicianID,
		ItemID:            item.ID,
		WholeUnits:        0,
		IsOpened:          true,
		RemainingCapacity: decPtr("100"),
		Version:           4,
	}
	stockRepo := &versionedStockRepo{holding: opened, stale: opened}
	ob := &fakeOutbox{}

	svc, err := NewService(ServiceParams{
		DB:           fakeTxRunner{},
		Usage:        usageRepo,
		Stock:        stockRepo,
		Catalog:      &fakeCatalog{items: map[uuid.UUID]models.CatalogItem{item.ID: item}},
		Outbox:       ob,
		RetryBackoff: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	reviewerID := uuid.New()
	if _, err := svc.DecideApproval(context.Background(), records[0].ID, enums.ApprovalOutcomeApproved, reviewerID); err != nil {
		t.Fatalf("first DecideApproval: %v", err)
	}
	if stockRepo.holding.Version != 5 || !stockRepo.holding.Remaining().Equal(dec("40")) {
		t.Fatalf("holding after first approval: %+v", stockRepo.holding)
	}

	// The second decision's first attempt sees the pre-commit snapshot.
	stockRepo.staleGets = 1
	swapsBefore := stockRepo.swapCalls

	_, err = svc.DecideApproval(context.Background(), records[1].ID, enums.ApprovalOutcomeApproved, reviewerID)
	if !pkgerrors.Is(err, pkgerrors.CodeInsufficientStock) {
		t.Fatalf("second DecideApproval: err = %v, want INSUFFICIENT_STOCK", err)
	}
	if stockRepo.swapCalls != swapsBefore+1 {
		t.Fatalf("swap calls = %d, want %d (one stale attempt, no swap after re-read)", stockRepo.swapCalls, swapsBefore+1)
	}

	// Exactly one deduction landed.
	if stockRepo.holding.Version != 5 || !stockRepo.holding.Remaining().Equal(dec("40")) {
		t.Fatalf("holding after failed approval: %+v", stockRepo.holding)
	}
	if len(stockRepo.events) != 1 || len(ob.events) != 1 {
		t.Fatalf("events = %d, outbox = %d, want 1 and 1", len(stockRepo.events), len(ob.events))
	}

	loser, err := usageRepo.GetByID(context.Background(), records[1].ID)
	if err != nil {
		t.Fatalf("reload losing record: %v", err)
	}
	if loser.Status != enums.UsageStatusPending {
		t.Fatalf("losing record status = %s, want pending", loser.Status)
	}
	decision, err := usageRepo.GetDecision(context.Background(), records[1].ID)
	if err != nil {
		t.Fatalf("reload losing decision: %v", err)
	}
	if decision.Outcome != enums.ApprovalOutcomePending {
		t.Fatalf("losing decision outcome = %s, want pending", decision.Outcome)
	}
}
