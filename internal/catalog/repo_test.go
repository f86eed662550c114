package catalog

import (
	"context"
	"testing"

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

func setupCatalogTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	items := `
CREATE TABLE IF NOT EXISTS catalog_items (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  brand TEXT NOT NULL,
  kind TEXT NOT NULL,
  capacity_per_unit TEXT,
  capacity_unit TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(items).Error)

	t.Cleanup(func() {
		db.Exec("DELETE FROM catalog_items")
	})

	return db
}

func newConsumableItem(capacityStr string) models.CatalogItem {
	capacity := decimal.RequireFromString(capacityStr)
	unit := enums.CapacityUnitMilliliter
	return models.CatalogItem{
		ID:              uuid.New(),
		Name:            "Fuser Oil",
		Brand:           "OEM",
		Kind:            enums.ItemKindConsumable,
		CapacityPerUnit: &capacity,
		CapacityUnit:    &unit,
		IsActive:        true,
	}
}

func TestRepositoryCreateAndGet(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	item := newConsumableItem("250")
	require.NoError(t, repo.Create(ctx, &item))

	loaded, err := repo.GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, loaded.IsConsumable())
	assert.True(t, loaded.Capacity().Equal(decimal.RequireFromString("250")))
	assert.Equal(t, item.Name, loaded.Name)
}

func TestRepositoryGetMissing(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)

	_, err := repo.GetByID(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}

func TestRepositoryListActiveOnly(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	active := newConsumableItem("100")
	retired := newConsumableItem("100")
	retired.Name = "Retired Cleaner"
	retired.IsActive = false
	require.NoError(t, repo.Create(ctx, &active))
	require.NoError(t, repo.Create(ctx, &retired))

	all, err := repo.List(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	activeOnly, err := repo.List(ctx, ListFilter{ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, activeOnly, 1)
	assert.Equal(t, active.ID, activeOnly[0].ID)
}

func TestRepositoryUpdate(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	item := newConsumableItem("250")
	require.NoError(t, repo.Create(ctx, &item))

	item.Name = "Fuser Oil XL"
	item.IsActive = false
	require.NoError(t, repo.Update(ctx, &item))

	loaded, err := repo.GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Fuser Oil XL", loaded.Name)
	assert.False(t, loaded.IsActive)

	missing := newConsumableItem("100")
	err = repo.Update(ctx, &missing)
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}
