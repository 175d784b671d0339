package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/mercadito-app/mercadito-backend/internal/catalog"
	"github.com/mercadito-app/mercadito-backend/internal/lists"
	"github.com/mercadito-app/mercadito-backend/pkg/db/models"
	"github.com/mercadito-app/mercadito-backend/pkg/enums"
	pkgerrors "github.com/mercadito-app/mercadito-backend/pkg/errors"
	"github.com/mercadito-app/mercadito-backend/pkg/logger"
	"github.com/mercadito-app/mercadito-backend/pkg/mercadopago"
	"github.com/mercadito-app/mercadito-backend/pkg/metrics"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// descriptionLimit caps the charge description sent to the provider.
const descriptionLimit = 50

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type paymentGateway interface {
	CreatePixPayment(ctx context.Context, params mercadopago.CreatePixParams) (*mercadopago.PixPayment, error)
	GetPaymentStatus(ctx context.Context, paymentID int64) (string, error)
}

// Service drives a list through the paying and finished states.
type Service interface {
	Begin(ctx context.Context, userID, listID uuid.UUID, payerEmail string) (*Session, error)
	PollStatus(ctx context.Context, userID, listID uuid.UUID) (*Session, error)
	Cancel(ctx context.Context, userID, listID uuid.UUID) error
}

type service struct {
	tx       txRunner
	listRepo lists.Repository
	catalog  catalog.Repository
	gateway  paymentGateway
	sessions *SessionStore
	notifier lists.Notifier
	logger   *logger.Logger
	metrics  *metrics.CheckoutMetrics
}

// NewService builds the checkout engine.
func NewService(
	tx txRunner,
	listRepo lists.Repository,
	catalogRepo catalog.Repository,
	gateway paymentGateway,
	sessions *SessionStore,
	notifier lists.Notifier,
	logg *logger.Logger,
	checkoutMetrics *metrics.CheckoutMetrics,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if listRepo == nil {
		return nil, fmt.Errorf("list repository required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if sessions == nil {
		sessions = NewSessionStore()
	}
	if notifier == nil {
		notifier = lists.NopNotifier{}
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		tx:       tx,
		listRepo: listRepo,
		catalog:  catalogRepo,
		gateway:  gateway,
		sessions: sessions,
		notifier: notifier,
		logger:   logg,
		metrics:  checkoutMetrics,
	}, nil
}

// ComputeTotal sums price times quantity over the picked items. Unparsable
// prices count as zero. Pure, and independent of item order.
func ComputeTotal(items []models.ListItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		if !item.Checked {
			continue
		}
		price, err := decimal.NewFromString(item.Price)
		if err != nil {
			price = decimal.Zero
		}
		total = total.Add(price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// BuildDescription concatenates picked item names behind the charge prefix,
// truncated to the provider's description limit.
func BuildDescription(items []models.ListItem) string {
	names := make([]string, 0, len(items))
	for _, item := range items {
		if item.Checked {
			names = append(names, item.Name)
		}
	}
	description := "Compra - " + strings.Join(names, ", ")
	// truncate on a rune boundary so accented names are never bisected
	if utf8.RuneCountInString(description) > descriptionLimit {
		runes := []rune(description)
		description = string(runes[:descriptionLimit])
	}
	return description
}

// Begin opens a PIX charge for the list's picked items and moves the list to
// paying. On provider failure the list stays in scanning and the provider's
// message is surfaced untouched.
func (s *service) Begin(ctx context.Context, userID, listID uuid.UUID, payerEmail string) (*Session, error) {
	if strings.TrimSpace(payerEmail) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payer email is required")
	}

	list, err := s.loadOwnedList(ctx, userID, listID)
	if err != nil {
		return nil, err
	}

	switch list.State {
	case enums.ListStateFinished:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "list is already paid; clear it to start over")
	case enums.ListStatePaying:
		// an open session is returned as-is so a double tap does not mint a
		// second charge. No session means a restart dropped it: fall
		// through and regenerate the charge for the same list.
		if session := s.sessions.Get(listID); session != nil {
			return session, nil
		}
	}

	items, err := s.listRepo.ItemsByList(ctx, listID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading list items")
	}

	total := ComputeTotal(items)
	if !total.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no picked items to pay for")
	}

	description := BuildDescription(items)
	amount, _ := total.Round(2).Float64()

	ctx = s.logger.WithListID(ctx, listID.String())
	payment, err := s.gateway.CreatePixPayment(ctx, mercadopago.CreatePixParams{
		Amount:         amount,
		Description:    description,
		PayerEmail:     payerEmail,
		IdempotencyKey: uuid.NewString(),
	})
	if err != nil {
		// list state untouched; the caller may retry
		return nil, err
	}

	if err := s.listRepo.UpdateListState(ctx, listID, enums.ListStatePaying); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marking list paying")
	}

	session := &Session{
		ListID:        listID,
		TransactionID: payment.ID,
		Amount:        total.Round(2).StringFixed(2),
		Description:   description,
		QRCode:        payment.QRCode,
		QRCodeBase64:  payment.QRCodeBase64,
		TicketURL:     payment.TicketURL,
		Status:        payment.Status,
		CreatedAt:     time.Now().UTC(),
	}
	s.sessions.Put(session)

	s.metrics.IncStarted()
	s.notifier.ListChanged(ctx, listID)
	s.logger.Info(ctx, "checkout started")
	return session, nil
}

// PollStatus asks the provider for the charge status. An approved answer
// finalizes the purchase exactly once; anything else leaves the list paying.
func (s *service) PollStatus(ctx context.Context, userID, listID uuid.UUID) (*Session, error) {
	if _, err := s.loadOwnedList(ctx, userID, listID); err != nil {
		return nil, err
	}

	session := s.sessions.Get(listID)
	if session == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "no checkout in progress")
	}

	ctx = s.logger.WithListID(ctx, listID.String())
	status, err := s.gateway.GetPaymentStatus(ctx, session.TransactionID)
	if err != nil {
		return nil, err
	}

	s.sessions.SetStatus(listID, status)
	session.Status = status

	if status != enums.PaymentStatusApproved.String() {
		return session, nil
	}

	if err := s.finalize(ctx, listID); err != nil {
		return nil, err
	}
	return session, nil
}

// Cancel returns a paying list to scanning and drops the session. Lists in
// any other state are left untouched.
func (s *service) Cancel(ctx context.Context, userID, listID uuid.UUID) error {
	list, err := s.loadOwnedList(ctx, userID, listID)
	if err != nil {
		return err
	}
	if list.State != enums.ListStatePaying {
		return nil
	}

	if err := s.listRepo.UpdateListState(ctx, listID, enums.ListStateScanning); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancelling checkout")
	}
	s.sessions.Clear(listID)

	s.metrics.IncOutcome("cancelled")
	s.notifier.ListChanged(ctx, listID)
	return nil
}

// finalize claims the finished transition and, only when this call wins the
// claim, decrements stock for the picked items in one transaction. A stock
// failure after the claim is logged and surfaced, but finished is never
// rolled back: the purchase stands and inventory is reconciled manually.
func (s *service) finalize(ctx context.Context, listID uuid.UUID) error {
	started := time.Now()

	won, err := s.listRepo.ClaimFinished(ctx, listID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "finishing list")
	}
	if !won {
		// another poll already finalized this purchase
		return nil
	}

	s.metrics.IncOutcome(enums.PaymentStatusApproved.String())
	s.notifier.ListChanged(ctx, listID)

	items, err := s.listRepo.ItemsByList(ctx, listID)
	if err != nil {
		s.logger.Error(ctx, "loading items for stock decrement", err)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "purchase complete, stock update failed")
	}

	decrements := make([]catalog.StockDecrement, 0, len(items))
	for _, item := range items {
		if item.Checked {
			decrements = append(decrements, catalog.StockDecrement{
				ProductName: item.Name,
				Quantity:    item.Quantity,
			})
		}
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.catalog.WithTx(tx).DecrementStock(ctx, decrements)
	})
	if err != nil {
		s.logger.Error(ctx, "stock decrement after approved payment", err)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "purchase complete, stock update failed")
	}

	s.metrics.ObserveFinalize(time.Since(started))
	s.logger.Info(ctx, "checkout finalized")
	return nil
}

func (s *service) loadOwnedList(ctx context.Context, userID, listID uuid.UUID) (*models.ShoppingList, error) {
	list, err := s.listRepo.FindListForUser(ctx, listID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "list not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading list")
	}
	return list, nil
}
