package lists

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mercadito-app/mercadito-backend/pkg/db/models"
	"github.com/mercadito-app/mercadito-backend/pkg/enums"
	"github.com/mercadito-app/mercadito-backend/pkg/types"
	"gorm.io/gorm"
)

// Repository exposes persistence for shopping lists and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateList(ctx context.Context, list *models.ShoppingList) error
	FindListByID(ctx context.Context, id uuid.UUID) (*models.ShoppingList, error)
	FindListForUser(ctx context.Context, id, userID uuid.UUID) (*models.ShoppingList, error)
	ListsByUser(ctx context.Context, userID uuid.UUID) ([]models.ShoppingList, error)
	DeleteList(ctx context.Context, id uuid.UUID) error
	UpdateListState(ctx context.Context, id uuid.UUID, state enums.ListState) error
	// TouchList bumps the list's updated_at so item mutations surface on
	// the list row without waiting for the mirror write.
	TouchList(ctx context.Context, id uuid.UUID) error
	// ClaimFinished flips the list to finished only when it is not finished
	// yet, reporting whether this call won the transition.
	ClaimFinished(ctx context.Context, id uuid.UUID) (bool, error)
	SaveMirror(ctx context.Context, id uuid.UUID, doc types.MirrorDocument) error

	CreateItem(ctx context.Context, item *models.ListItem) error
	FindItemByID(ctx context.Context, listID, itemID uuid.UUID) (*models.ListItem, error)
	FindItemByName(ctx context.Context, listID uuid.UUID, name string) (*models.ListItem, error)
	ItemsByList(ctx context.Context, listID uuid.UUID) ([]models.ListItem, error)
	UpdateItem(ctx context.Context, item *models.ListItem) error
	DeleteItem(ctx context.Context, listID, itemID uuid.UUID) error
	DeleteAllItems(ctx context.Context, listID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a list repository backed by the provided DB handle.
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

func (r *repository) CreateList(ctx context.Context, list *models.ShoppingList) error {
	return r.db.WithContext(ctx).Create(list).Error
}

func (r *repository) FindListByID(ctx context.Context, id uuid.UUID) (*models.ShoppingList, error) {
	var list models.ShoppingList
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&list).Error
	if err != nil {
		return nil, err
	}
	return &list, nil
}

func (r *repository) FindListForUser(ctx context.Context, id, userID uuid.UUID) (*models.ShoppingList, error) {
	var list models.ShoppingList
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&list).Error
	if err != nil {
		return nil, err
	}
	return &list, nil
}

func (r *repository) ListsByUser(ctx context.Context, userID uuid.UUID) ([]models.ShoppingList, error) {
	var lists []models.ShoppingList
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&lists).Error
	if err != nil {
		return nil, err
	}
	return lists, nil
}

func (r *repository) DeleteList(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.ShoppingList{}).Error
}

func (r *repository) UpdateListState(ctx context.Context, id uuid.UUID, state enums.ListState) error {
	return r.db.WithContext(ctx).
		Model(&models.ShoppingList{}).
		Where("id = ?", id).
		Update("state", state).Error
}

func (r *repository) TouchList(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.ShoppingList{}).
		Where("id = ?", id).
		UpdateColumn("updated_at", time.Now().UTC()).Error
}

func (r *repository) ClaimFinished(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.ShoppingList{}).
		Where("id = ? AND state <> ?", id, enums.ListStateFinished).
		Update("state", enums.ListStateFinished)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) SaveMirror(ctx context.Context, id uuid.UUID, doc types.MirrorDocument) error {
	return r.db.WithContext(ctx).
		Model(&models.ShoppingList{}).
		Where("id = ?", id).
		Select("state", "to_pick", "picked").
		Updates(models.ShoppingList{
			State:  enums.ListState(doc.State),
			ToPick: mirrorColumn(doc.ToPick),
			Picked: mirrorColumn(doc.Picked),
		}).Error
}

func (r *repository) CreateItem(ctx context.Context, item *models.ListItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repository) FindItemByID(ctx context.Context, listID, itemID uuid.UUID) (*models.ListItem, error) {
	var item models.ListItem
	err := r.db.WithContext(ctx).
		Where("id = ? AND list_id = ?", itemID, listID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) FindItemByName(ctx context.Context, listID uuid.UUID, name string) (*models.ListItem, error) {
	var item models.ListItem
	err := r.db.WithContext(ctx).
		Where("list_id = ? AND LOWER(name) = LOWER(?)", listID, name).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) ItemsByList(ctx context.Context, listID uuid.UUID) ([]models.ListItem, error) {
	var items []models.ListItem
	err := r.db.WithContext(ctx).
		Where("list_id = ?", listID).
		Order("created_at ASC, id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) UpdateItem(ctx context.Context, item *models.ListItem) error {
	return r.db.WithContext(ctx).
		Model(&models.ListItem{}).
		Where("id = ? AND list_id = ?", item.ID, item.ListID).
		Updates(map[string]any{
			"quantity": item.Quantity,
			"checked":  item.Checked,
		}).Error
}

func (r *repository) DeleteItem(ctx context.Context, listID, itemID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ? AND list_id = ?", itemID, listID).
		Delete(&models.ListItem{}).Error
}

func (r *repository) DeleteAllItems(ctx context.Context, listID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("list_id = ?", listID).
		Delete(&models.ListItem{}).Error
}

// mirrorColumn normalizes nil slices so the stored projection is always a
// JSON array, never null.
func mirrorColumn(entries []types.MirrorEntry) []types.MirrorEntry {
	if entries == nil {
		return []types.MirrorEntry{}
	}
	return entries
}
