package lists

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/mercadito-app/mercadito-backend/pkg/db/models"
	"github.com/mercadito-app/mercadito-backend/pkg/enums"
	"github.com/mercadito-app/mercadito-backend/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaimFinishedWinsExactlyOnce(t *testing.T) {
	db := setupListsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	list := &models.ShoppingList{
		ID:     uuid.New(),
		UserID: uuid.New(),
		Name:   "Lista",
		State:  enums.ListStatePaying,
		ToPick: []types.MirrorEntry{},
		Picked: []types.MirrorEntry{},
	}
	require.NoError(t, repo.CreateList(ctx, list))

	claimed, err := repo.ClaimFinished(ctx, list.ID)
	require.NoError(t, err)
	assert.True(t, claimed)

	// second claim loses: the list is already finished
	claimed, err = repo.ClaimFinished(ctx, list.ID)
	require.NoError(t, err)
	assert.False(t, claimed)

	reloaded, err := repo.FindListByID(ctx, list.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ListStateFinished, reloaded.State)
}

func TestSaveMirrorRoundTripsDocument(t *testing.T) {
	db := setupListsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	list := &models.ShoppingList{
		ID:     uuid.New(),
		UserID: uuid.New(),
		Name:   "Lista",
		State:  enums.ListStateScanning,
		ToPick: []types.MirrorEntry{},
		Picked: []types.MirrorEntry{},
	}
	require.NoError(t, repo.CreateList(ctx, list))

	doc := types.MirrorDocument{
		State: "paying",
		ToPick: []types.MirrorEntry{
			{BarCode: "789111", Name: "Arroz", Price: 21.9, Quantity: 1},
		},
		Picked: []types.MirrorEntry{
			{BarCode: "789222", Name: "Leite", Price: 6.79, Quantity: 2},
		},
	}
	require.NoError(t, repo.SaveMirror(ctx, list.ID, doc))

	reloaded, err := repo.FindListByID(ctx, list.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ListStatePaying, reloaded.State)
	assert.Equal(t, doc.ToPick, reloaded.ToPick)
	assert.Equal(t, doc.Picked, reloaded.Picked)
}
