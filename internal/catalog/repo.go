package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/mercadito-app/mercadito-backend/pkg/db/models"
	"gorm.io/gorm"
)

// StockDecrement asks for one product's stock to be reduced during checkout
// finalization.
type StockDecrement struct {
	ProductName string
	Quantity    int
}

// Repository exposes persistence for the shared product catalog.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	List(ctx context.Context) ([]models.Product, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindByBarcode(ctx context.Context, barcode string) (*models.Product, error)
	FindByName(ctx context.Context, name string) (*models.Product, error)
	DecrementStock(ctx context.Context, decrements []StockDecrement) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a catalog repository backed by the provided DB handle.
func NewRepository(db *gorm.DB) Repository {
	if db == nil {
		return nil
	}
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) List(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).Order("name ASC").Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) FindByBarcode(ctx context.Context, barcode string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).Where("barcode = ?", barcode).First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) FindByName(ctx context.Context, name string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).Where("LOWER(name) = LOWER(?)", name).First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// DecrementStock reduces stock for each named product, flooring at zero so an
// oversold list can never drive stock negative.
func (r *repository) DecrementStock(ctx context.Context, decrements []StockDecrement) error {
	for _, dec := range decrements {
		if dec.Quantity <= 0 {
			continue
		}
		err := r.db.WithContext(ctx).
			Model(&models.Product{}).
			Where("LOWER(name) = LOWER(?)", dec.ProductName).
			Update("stock", gorm.Expr(
				"CASE WHEN stock > ? THEN stock - ? ELSE 0 END",
				dec.Quantity, dec.Quantity,
			)).Error
		if err != nil {
			return err
		}
	}
	return nil
}
