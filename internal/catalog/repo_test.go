package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/mercadito-app/mercadito-backend/pkg/db/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupCatalogTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.Exec(`
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  price TEXT NOT NULL DEFAULT '0.00',
  barcode TEXT NOT NULL,
  stock INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`).Error)
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, name, price, barcode string, stock int) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, db.Create(&models.Product{
		ID:      id,
		Name:    name,
		Price:   price,
		Barcode: barcode,
		Stock:   stock,
	}).Error)
	return id
}

func TestFindByNameIsCaseInsensitive(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	seedProduct(t, db, "Leite Integral 1L", "6.79", "789222", 10)

	product, err := repo.FindByName(ctx, "LEITE integral 1l")
	require.NoError(t, err)
	assert.Equal(t, "Leite Integral 1L", product.Name)
	assert.Equal(t, "6.79", product.Price)
}

func TestListOrdersByName(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	seedProduct(t, db, "Leite", "6.79", "789222", 10)
	seedProduct(t, db, "Arroz", "21.90", "789111", 5)

	products, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "Arroz", products[0].Name)
	assert.Equal(t, "Leite", products[1].Name)
}

func TestDecrementStockFloorsAtZero(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	arrozID := seedProduct(t, db, "Arroz", "21.90", "789111", 5)
	leiteID := seedProduct(t, db, "Leite", "6.79", "789222", 2)

	err := repo.DecrementStock(ctx, []StockDecrement{
		{ProductName: "arroz", Quantity: 3},
		{ProductName: "Leite", Quantity: 9},
		{ProductName: "Inexistente", Quantity: 1},
		{ProductName: "Arroz", Quantity: 0},
	})
	require.NoError(t, err)

	arroz, err := repo.FindByID(ctx, arrozID)
	require.NoError(t, err)
	assert.Equal(t, 2, arroz.Stock)

	leite, err := repo.FindByID(ctx, leiteID)
	require.NoError(t, err)
	assert.Equal(t, 0, leite.Stock, "stock never goes negative")
}
