package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mercadito-app/mercadito-backend/api/responses"
	"github.com/mercadito-app/mercadito-backend/internal/catalog"
	"github.com/mercadito-app/mercadito-backend/pkg/db/models"
	pkgerrors "github.com/mercadito-app/mercadito-backend/pkg/errors"
	"github.com/mercadito-app/mercadito-backend/pkg/logger"
)

type productResponse struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Price   string    `json:"price"`
	BarCode string    `json:"barCode"`
	Stock   int       `json:"stock"`
}

func toProductResponse(product *models.Product) productResponse {
	return productResponse{
		ID:      product.ID,
		Name:    product.Name,
		Price:   product.Price,
		BarCode: product.Barcode,
		Stock:   product.Stock,
	}
}

// ProductList returns the whole catalog, ordered by name.
func ProductList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		products, err := svc.ListProducts(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payload := make([]productResponse, 0, len(products))
		for i := range products {
			payload = append(payload, toProductResponse(&products[i]))
		}
		responses.WriteSuccess(w, payload)
	}
}

// ProductByBarcode resolves one catalog product from its barcode.
func ProductByBarcode(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		product, err := svc.GetByBarcode(r.Context(), chi.URLParam(r, "barcode"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toProductResponse(product))
	}
}
