package scan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mercadito-app/mercadito-backend/internal/catalog"
	"github.com/mercadito-app/mercadito-backend/internal/lists"
	"github.com/mercadito-app/mercadito-backend/pkg/db/models"
	pkgerrors "github.com/mercadito-app/mercadito-backend/pkg/errors"
	"github.com/mercadito-app/mercadito-backend/pkg/logger"
	"github.com/mercadito-app/mercadito-backend/pkg/metrics"
)

// Service resolves a scanned barcode into a picked list item.
type Service interface {
	Resolve(ctx context.Context, userID, listID uuid.UUID, barcode string) (*models.ListItem, error)
}

type service struct {
	catalog catalog.Service
	lists   lists.Service
	timeout time.Duration
	logger  *logger.Logger
	metrics *metrics.SyncMetrics
}

// NewService builds the scan resolver. The timeout bounds the whole
// barcode-to-picked-item pipeline; expired lookups are abandoned.
func NewService(catalogSvc catalog.Service, listSvc lists.Service, timeout time.Duration, logg *logger.Logger, syncMetrics *metrics.SyncMetrics) (Service, error) {
	if catalogSvc == nil {
		return nil, fmt.Errorf("catalog service required")
	}
	if listSvc == nil {
		return nil, fmt.Errorf("list service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &service{
		catalog: catalogSvc,
		lists:   listSvc,
		timeout: timeout,
		logger:  logg,
		metrics: syncMetrics,
	}, nil
}

// Resolve looks the barcode up in the catalog, finds the same-named item on
// the list, and marks it picked. Ownership is enforced before any lookup.
func (s *service) Resolve(ctx context.Context, userID, listID uuid.UUID, barcode string) (*models.ListItem, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ctx = s.logger.WithListID(ctx, listID.String())

	if _, _, err := s.lists.GetList(ctx, userID, listID); err != nil {
		return nil, s.mapTimeout(ctx, err)
	}

	product, err := s.catalog.GetByBarcode(ctx, barcode)
	if err != nil {
		return nil, s.mapTimeout(ctx, err)
	}

	item, err := s.lists.MarkPickedByName(ctx, listID, product.Name)
	if err != nil {
		return nil, s.mapTimeout(ctx, err)
	}

	s.metrics.IncScanResolved()
	s.logger.Info(s.logger.WithField(ctx, "barcode", barcode), "scan resolved")
	return item, nil
}

// mapTimeout converts a deadline expiry into the abandoned-scan error so
// callers can distinguish it from genuine lookup failures.
func (s *service) mapTimeout(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		s.metrics.IncScanTimeout()
		s.logger.Warn(ctx, "scan abandoned after timeout")
		return pkgerrors.New(pkgerrors.CodeDependency, "scan timed out")
	}
	return err
}
