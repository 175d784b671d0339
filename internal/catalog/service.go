package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mercadito-app/mercadito-backend/pkg/db/models"
	pkgerrors "github.com/mercadito-app/mercadito-backend/pkg/errors"
	"gorm.io/gorm"
)

// Service exposes read access to the product catalog.
type Service interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
	GetByBarcode(ctx context.Context, barcode string) (*models.Product, error)
}

type service struct {
	repo Repository
}

// NewService builds the catalog service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListProducts(ctx context.Context) ([]models.Product, error) {
	return s.repo.List(ctx)
}

func (s *service) GetByBarcode(ctx context.Context, barcode string) (*models.Product, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "barcode is required")
	}
	product, err := s.repo.FindByBarcode(ctx, barcode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading product by barcode")
	}
	return product, nil
}
