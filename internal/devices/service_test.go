package devices

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/mercadito-app/mercadito-backend/internal/lists"
	"github.com/mercadito-app/mercadito-backend/pkg/db/models"
	"github.com/mercadito-app/mercadito-backend/pkg/enums"
	pkgerrors "github.com/mercadito-app/mercadito-backend/pkg/errors"
	"github.com/mercadito-app/mercadito-backend/pkg/logger"
	"github.com/mercadito-app/mercadito-backend/pkg/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupDevicesTestDB(t *testing.T) *gorm.DB {
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
CREATE TABLE IF NOT EXISTS device_link (
  id INTEGER PRIMARY KEY,
  user_id TEXT,
  active_list_id TEXT,
  display_name TEXT,
  updated_at DATETIME
);`}

	for _, stmt := range schema {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func newDeviceService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard})
	svc, err := NewService(NewRepository(db), lists.NewRepository(db), logg)
	require.NoError(t, err)
	return svc
}

func seedDeviceList(t *testing.T, db *gorm.DB, userID uuid.UUID) *models.ShoppingList {
	t.Helper()
	list := &models.ShoppingList{
		ID:     uuid.New(),
		UserID: userID,
		Name:   "Compras",
		State:  enums.ListStatePaying,
		ToPick: []types.MirrorEntry{
			{BarCode: "789111", Name: "Arroz", Price: 21.9, Quantity: 1},
		},
		Picked: []types.MirrorEntry{
			{BarCode: "789222", Name: "Leite", Price: 6.79, Quantity: 2},
		},
	}
	require.NoError(t, db.Create(list).Error)
	return list
}

func TestStateWithoutLinkReturnsEmptyScanningDocument(t *testing.T) {
	svc := newDeviceService(t, setupDevicesTestDB(t))

	doc, err := svc.State(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "scanning", doc.State)
	assert.NotNil(t, doc.ToPick)
	assert.NotNil(t, doc.Picked)
	assert.Empty(t, doc.ToPick)
	assert.Empty(t, doc.Picked)
}

func TestStateServesActiveListMirror(t *testing.T) {
	db := setupDevicesTestDB(t)
	svc := newDeviceService(t, db)
	ctx := context.Background()

	userID := uuid.New()
	list := seedDeviceList(t, db, userID)

	require.NoError(t, svc.LinkUser(ctx, userID, "Maria"))
	require.NoError(t, svc.SetActiveList(ctx, userID, list.ID))

	doc, err := svc.State(ctx)
	require.NoError(t, err)

	assert.Equal(t, "paying", doc.State)
	require.Len(t, doc.ToPick, 1)
	require.Len(t, doc.Picked, 1)
	assert.Equal(t, "Arroz", doc.ToPick[0].Name)
	assert.Equal(t, "789222", doc.Picked[0].BarCode)
}

func TestLinkUserSwitchClearsActiveList(t *testing.T) {
	db := setupDevicesTestDB(t)
	svc := newDeviceService(t, db)
	ctx := context.Background()

	firstUser := uuid.New()
	list := seedDeviceList(t, db, firstUser)
	require.NoError(t, svc.LinkUser(ctx, firstUser, "Maria"))
	require.NoError(t, svc.SetActiveList(ctx, firstUser, list.ID))

	// a different user logging in must not inherit the previous user's list
	require.NoError(t, svc.LinkUser(ctx, uuid.New(), "Joao"))

	doc, err := svc.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, "scanning", doc.State)
	assert.Empty(t, doc.ToPick)
}

func TestLinkUserSameUserKeepsActiveList(t *testing.T) {
	db := setupDevicesTestDB(t)
	svc := newDeviceService(t, db)
	ctx := context.Background()

	userID := uuid.New()
	list := seedDeviceList(t, db, userID)
	require.NoError(t, svc.LinkUser(ctx, userID, "Maria"))
	require.NoError(t, svc.SetActiveList(ctx, userID, list.ID))

	require.NoError(t, svc.LinkUser(ctx, userID, "Maria"))

	doc, err := svc.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, "paying", doc.State)
}

func TestSetActiveListRejectsForeignList(t *testing.T) {
	db := setupDevicesTestDB(t)
	svc := newDeviceService(t, db)
	ctx := context.Background()

	owner := uuid.New()
	list := seedDeviceList(t, db, owner)

	err := svc.SetActiveList(ctx, uuid.New(), list.ID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestUnlinkDetachesDisplay(t *testing.T) {
	db := setupDevicesTestDB(t)
	svc := newDeviceService(t, db)
	ctx := context.Background()

	userID := uuid.New()
	list := seedDeviceList(t, db, userID)
	require.NoError(t, svc.LinkUser(ctx, userID, "Maria"))
	require.NoError(t, svc.SetActiveList(ctx, userID, list.ID))

	require.NoError(t, svc.Unlink(ctx))

	doc, err := svc.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, "scanning", doc.State)
	assert.Empty(t, doc.ToPick)
}
