package checkout

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
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
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupCheckoutTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := []string{`
CREATE TABLE IF NOT EXISTS shopping_lists (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  name TEXT NOT NULL,
  state TEXT NOT NULL DEFAULT 'scanning',
  to_pick TEXT NOT NULL DEFAULT '[]',
  picked TEXT NOT NULL DEFAULT '[]',
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS list_items (
  id TEXT PRIMARY KEY,
  list_id TEXT NOT NULL,
  name TEXT NOT NULL,
  quantity INTEGER NOT NULL DEFAULT 1,
  checked INTEGER NOT NULL DEFAULT 0,
  price TEXT NOT NULL DEFAULT '0.00',
  bar_code TEXT NOT NULL DEFAULT '',
  created_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  price TEXT NOT NULL DEFAULT '0.00',
  barcode TEXT NOT NULL,
  stock INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`}

	for _, stmt := range schema {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

type checkoutTxRunner struct {
	db *gorm.DB
}

func (r checkoutTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type fakeGateway struct {
	mu         sync.Mutex
	createCall int
	createErr  error
	payment    mercadopago.PixPayment
	statusCall int
	statusErr  error
	status     string
	lastParams mercadopago.CreatePixParams
}

func (g *fakeGateway) CreatePixPayment(_ context.Context, params mercadopago.CreatePixParams) (*mercadopago.PixPayment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.createCall++
	g.lastParams = params
	if g.createErr != nil {
		return nil, g.createErr
	}
	payment := g.payment
	return &payment, nil
}

func (g *fakeGateway) GetPaymentStatus(_ context.Context, _ int64) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.statusCall++
	if g.statusErr != nil {
		return "", g.statusErr
	}
	return g.status, nil
}

type checkoutFixture struct {
	svc      Service
	gateway  *fakeGateway
	sessions *SessionStore
	listRepo lists.Repository
	catalog  catalog.Repository
	db       *gorm.DB
	userID   uuid.UUID
	listID   uuid.UUID
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()
	db := setupCheckoutTestDB(t)

	gateway := &fakeGateway{
		payment: mercadopago.PixPayment{
			ID:           4242,
			Status:       "pending",
			QRCode:       "00020126pix-code",
			QRCodeBase64: "aWF0",
			TicketURL:    "https://pay.example/4242",
		},
		status: "pending",
	}
	sessions := NewSessionStore()
	listRepo := lists.NewRepository(db)
	catalogRepo := catalog.NewRepository(db)
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard})

	svc, err := NewService(checkoutTxRunner{db: db}, listRepo, catalogRepo, gateway, sessions, lists.NopNotifier{}, logg, metrics.NewCheckoutMetrics(nil))
	require.NoError(t, err)

	f := &checkoutFixture{
		svc:      svc,
		gateway:  gateway,
		sessions: sessions,
		listRepo: listRepo,
		catalog:  catalogRepo,
		db:       db,
		userID:   uuid.New(),
		listID:   uuid.New(),
	}
	require.NoError(t, db.Create(&models.ShoppingList{
		ID:     f.listID,
		UserID: f.userID,
		Name:   "Compras",
		State:  enums.ListStateScanning,
	}).Error)
	return f
}

func (f *checkoutFixture) mustAddItem(t *testing.T, name, price string, quantity int, checked bool) {
	t.Helper()
	require.NoError(t, f.db.Create(&models.ListItem{
		ID:       uuid.New(),
		ListID:   f.listID,
		Name:     name,
		Quantity: quantity,
		Checked:  checked,
		Price:    price,
	}).Error)
}

func (f *checkoutFixture) mustSeedProduct(t *testing.T, name string, stock int) {
	t.Helper()
	require.NoError(t, f.db.Create(&models.Product{
		ID:      uuid.New(),
		Name:    name,
		Price:   "1.00",
		Barcode: uuid.NewString(),
		Stock:   stock,
	}).Error)
}

func (f *checkoutFixture) productStock(t *testing.T, name string) int {
	t.Helper()
	var product models.Product
	require.NoError(t, f.db.Where("name = ?", name).First(&product).Error)
	return product.Stock
}

func (f *checkoutFixture) listState(t *testing.T) enums.ListState {
	t.Helper()
	list, err := f.listRepo.FindListByID(context.Background(), f.listID)
	require.NoError(t, err)
	return list.State
}

func TestComputeTotalSumsPickedItemsOnly(t *testing.T) {
	items := []models.ListItem{
		{Name: "Arroz", Price: "21.90", Quantity: 2, Checked: true},
		{Name: "Leite", Price: "6.79", Quantity: 3, Checked: true},
		{Name: "Cafe", Price: "99.00", Quantity: 1, Checked: false},
		{Name: "Rabisco", Price: "not-a-price", Quantity: 5, Checked: true},
	}

	total := ComputeTotal(items)
	assert.Equal(t, "64.17", total.StringFixed(2))

	// order must not change the sum
	reversed := []models.ListItem{items[3], items[2], items[1], items[0]}
	assert.True(t, total.Equal(ComputeTotal(reversed)))
}

func TestBuildDescriptionTruncates(t *testing.T) {
	items := []models.ListItem{
		{Name: "Arroz", Checked: true},
		{Name: "Leite", Checked: true},
		{Name: "Cafe", Checked: false},
	}
	assert.Equal(t, "Compra - Arroz, Leite", BuildDescription(items))

	long := []models.ListItem{
		{Name: strings.Repeat("Abacaxi ", 12), Checked: true},
	}
	description := BuildDescription(long)
	assert.Len(t, description, 50)
	assert.True(t, strings.HasPrefix(description, "Compra - "))

	// an accented rune straddling the limit must survive whole
	accented := []models.ListItem{
		{Name: strings.Repeat("a", 40) + "ãs", Checked: true},
	}
	description = BuildDescription(accented)
	assert.True(t, utf8.ValidString(description))
	assert.Equal(t, 50, utf8.RuneCountInString(description))
	assert.True(t, strings.HasSuffix(description, "ã"))
}

func TestBeginOpensChargeAndMovesListToPaying(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	f.mustAddItem(t, "Arroz", "21.90", 2, true)
	f.mustAddItem(t, "Cafe", "15.00", 1, false)

	session, err := f.svc.Begin(ctx, f.userID, f.listID, "payer@example.com")
	require.NoError(t, err)

	assert.Equal(t, int64(4242), session.TransactionID)
	assert.Equal(t, "43.80", session.Amount)
	assert.Equal(t, "Compra - Arroz", session.Description)
	assert.Equal(t, "00020126pix-code", session.QRCode)
	assert.Equal(t, enums.ListStatePaying, f.listState(t))

	assert.Equal(t, 43.80, f.gateway.lastParams.Amount)
	assert.Equal(t, "payer@example.com", f.gateway.lastParams.PayerEmail)
	assert.NotEmpty(t, f.gateway.lastParams.IdempotencyKey)
}

func TestBeginGatewayFailureLeavesListScanning(t *testing.T) {
	f := newCheckoutFixture(t)
	f.mustAddItem(t, "Arroz", "21.90", 1, true)
	f.gateway.createErr = pkgerrors.New(pkgerrors.CodeGateway, "Invalid payer email")

	_, err := f.svc.Begin(context.Background(), f.userID, f.listID, "payer@example.com")
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeGateway, typed.Code())
	assert.Equal(t, "Invalid payer email", typed.Message())

	assert.Equal(t, enums.ListStateScanning, f.listState(t))
	assert.Nil(t, f.sessions.Get(f.listID))
}

func TestBeginWhilePayingReturnsOpenSession(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	f.mustAddItem(t, "Arroz", "21.90", 1, true)

	first, err := f.svc.Begin(ctx, f.userID, f.listID, "payer@example.com")
	require.NoError(t, err)

	second, err := f.svc.Begin(ctx, f.userID, f.listID, "payer@example.com")
	require.NoError(t, err)

	assert.Equal(t, first.TransactionID, second.TransactionID)
	assert.Equal(t, 1, f.gateway.createCall, "double tap must not mint a second charge")
}

func TestBeginRegeneratesChargeWhenSessionLost(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	f.mustAddItem(t, "Arroz", "21.90", 1, true)

	first, err := f.svc.Begin(ctx, f.userID, f.listID, "payer@example.com")
	require.NoError(t, err)

	// a restart loses the in-memory session while the list stays paying
	f.sessions.Clear(f.listID)

	second, err := f.svc.Begin(ctx, f.userID, f.listID, "payer@example.com")
	require.NoError(t, err)

	assert.Equal(t, first.TransactionID, second.TransactionID)
	assert.Equal(t, 2, f.gateway.createCall, "lost session must mint a fresh charge")
	assert.Equal(t, enums.ListStatePaying, f.listState(t))
	assert.NotNil(t, f.sessions.Get(f.listID))
}

func TestBeginOnFinishedListRejected(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	require.NoError(t, f.listRepo.UpdateListState(ctx, f.listID, enums.ListStateFinished))

	_, err := f.svc.Begin(ctx, f.userID, f.listID, "payer@example.com")
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestBeginWithoutPickedItemsRejected(t *testing.T) {
	f := newCheckoutFixture(t)
	f.mustAddItem(t, "Arroz", "21.90", 2, false)

	_, err := f.svc.Begin(context.Background(), f.userID, f.listID, "payer@example.com")
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestPollStatusPendingLeavesListPaying(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	f.mustAddItem(t, "Arroz", "21.90", 1, true)
	_, err := f.svc.Begin(ctx, f.userID, f.listID, "payer@example.com")
	require.NoError(t, err)

	session, err := f.svc.PollStatus(ctx, f.userID, f.listID)
	require.NoError(t, err)

	assert.Equal(t, "pending", session.Status)
	assert.Equal(t, enums.ListStatePaying, f.listState(t))
}

func TestPollStatusWithoutSessionRejected(t *testing.T) {
	f := newCheckoutFixture(t)

	_, err := f.svc.PollStatus(context.Background(), f.userID, f.listID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
	assert.Equal(t, "no checkout in progress", typed.Message())
}

func TestPollStatusApprovedFinalizesOnce(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	f.mustSeedProduct(t, "Arroz", 10)
	f.mustSeedProduct(t, "Leite", 5)
	f.mustAddItem(t, "Arroz", "21.90", 2, true)
	f.mustAddItem(t, "Leite", "6.79", 3, true)
	f.mustAddItem(t, "Cafe", "15.00", 1, false)

	_, err := f.svc.Begin(ctx, f.userID, f.listID, "payer@example.com")
	require.NoError(t, err)

	f.gateway.status = "approved"
	session, err := f.svc.PollStatus(ctx, f.userID, f.listID)
	require.NoError(t, err)

	assert.Equal(t, "approved", session.Status)
	assert.Equal(t, enums.ListStateFinished, f.listState(t))
	assert.Equal(t, 8, f.productStock(t, "Arroz"))
	assert.Equal(t, 2, f.productStock(t, "Leite"))

	// a second approved poll must not decrement again
	_, err = f.svc.PollStatus(ctx, f.userID, f.listID)
	require.NoError(t, err)
	assert.Equal(t, 8, f.productStock(t, "Arroz"))
	assert.Equal(t, 2, f.productStock(t, "Leite"))
	assert.Equal(t, enums.ListStateFinished, f.listState(t))
}

func TestFinalizeStockFloorsAtZero(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	f.mustSeedProduct(t, "Arroz", 1)
	f.mustAddItem(t, "Arroz", "21.90", 5, true)

	_, err := f.svc.Begin(ctx, f.userID, f.listID, "payer@example.com")
	require.NoError(t, err)

	f.gateway.status = "approved"
	_, err = f.svc.PollStatus(ctx, f.userID, f.listID)
	require.NoError(t, err)

	assert.Equal(t, 0, f.productStock(t, "Arroz"))
	assert.Equal(t, enums.ListStateFinished, f.listState(t))
}

func TestCancelReturnsPayingListToScanning(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	f.mustAddItem(t, "Arroz", "21.90", 1, true)
	_, err := f.svc.Begin(ctx, f.userID, f.listID, "payer@example.com")
	require.NoError(t, err)

	require.NoError(t, f.svc.Cancel(ctx, f.userID, f.listID))

	assert.Equal(t, enums.ListStateScanning, f.listState(t))
	assert.Nil(t, f.sessions.Get(f.listID))

	// cancelling again is harmless
	require.NoError(t, f.svc.Cancel(ctx, f.userID, f.listID))
}
