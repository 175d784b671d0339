package lists

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mercadito-app/mercadito-backend/internal/catalog"
	"github.com/mercadito-app/mercadito-backend/pkg/db/models"
	"github.com/mercadito-app/mercadito-backend/pkg/enums"
	pkgerrors "github.com/mercadito-app/mercadito-backend/pkg/errors"
	"github.com/mercadito-app/mercadito-backend/pkg/logger"
	"github.com/mercadito-app/mercadito-backend/pkg/metrics"
	"github.com/mercadito-app/mercadito-backend/pkg/types"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// sessionClearer drops any cached payment session when a list is cleared.
type sessionClearer interface {
	Clear(listID uuid.UUID)
}

// Service owns shopping lists, their items, and the device mirror projection.
//
// Item mutations follow the shop-and-pay cycle: once a list reaches the
// finished state they become no-ops until ClearAll resets the list.
type Service interface {
	CreateList(ctx context.Context, userID uuid.UUID, name string) (*models.ShoppingList, error)
	ListsForUser(ctx context.Context, userID uuid.UUID) ([]models.ShoppingList, error)
	GetList(ctx context.Context, userID, listID uuid.UUID) (*models.ShoppingList, []models.ListItem, error)
	DeleteList(ctx context.Context, userID, listID uuid.UUID) error

	AddItem(ctx context.Context, userID, listID uuid.UUID, name string, quantity int) (*models.ListItem, error)
	SetQuantity(ctx context.Context, userID, listID, itemID uuid.UUID, quantity int) (*models.ListItem, error)
	ToggleChecked(ctx context.Context, userID, listID, itemID uuid.UUID) (*models.ListItem, error)
	MarkPickedByName(ctx context.Context, listID uuid.UUID, name string) (*models.ListItem, error)
	RemoveItem(ctx context.Context, userID, listID, itemID uuid.UUID) error
	ClearAll(ctx context.Context, userID, listID uuid.UUID) error

	Items(ctx context.Context, listID uuid.UUID) ([]models.ListItem, error)
	RecomputeMirror(ctx context.Context, listID uuid.UUID) (types.MirrorDocument, error)
}

type service struct {
	tx       txRunner
	repo     Repository
	catalog  catalog.Repository
	notifier Notifier
	sessions sessionClearer
	logger   *logger.Logger
	metrics  *metrics.SyncMetrics
}

// NewService builds the list service.
func NewService(
	tx txRunner,
	repo Repository,
	catalogRepo catalog.Repository,
	notifier Notifier,
	sessions sessionClearer,
	logg *logger.Logger,
	syncMetrics *metrics.SyncMetrics,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("list repository required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		tx:       tx,
		repo:     repo,
		catalog:  catalogRepo,
		notifier: notifier,
		sessions: sessions,
		logger:   logg,
		metrics:  syncMetrics,
	}, nil
}

func (s *service) CreateList(ctx context.Context, userID uuid.UUID, name string) (*models.ShoppingList, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "list name is required")
	}
	list := &models.ShoppingList{
		ID:     uuid.New(),
		UserID: userID,
		Name:   name,
		State:  enums.ListStateScanning,
		ToPick: []types.MirrorEntry{},
		Picked: []types.MirrorEntry{},
	}
	if err := s.repo.CreateList(ctx, list); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating list")
	}
	return list, nil
}

func (s *service) ListsForUser(ctx context.Context, userID uuid.UUID) ([]models.ShoppingList, error) {
	lists, err := s.repo.ListsByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading lists")
	}
	return lists, nil
}

func (s *service) GetList(ctx context.Context, userID, listID uuid.UUID) (*models.ShoppingList, []models.ListItem, error) {
	list, err := s.loadOwnedList(ctx, userID, listID)
	if err != nil {
		return nil, nil, err
	}
	items, err := s.repo.ItemsByList(ctx, listID)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading list items")
	}
	return list, items, nil
}

func (s *service) DeleteList(ctx context.Context, userID, listID uuid.UUID) error {
	if _, err := s.loadOwnedList(ctx, userID, listID); err != nil {
		return err
	}
	if err := s.repo.DeleteList(ctx, listID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deleting list")
	}
	if s.sessions != nil {
		s.sessions.Clear(listID)
	}
	return nil
}

// AddItem creates an item with quantity 1, snapshotting price and barcode
// from the catalog product with the same name when one exists.
func (s *service) AddItem(ctx context.Context, userID, listID uuid.UUID, name string, quantity int) (*models.ListItem, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item name is required")
	}
	if quantity < 1 {
		quantity = 1
	}

	list, err := s.loadOwnedList(ctx, userID, listID)
	if err != nil {
		return nil, err
	}
	if list.State == enums.ListStateFinished {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "list is finished; clear it before adding items")
	}

	if _, err := s.repo.FindItemByName(ctx, listID, name); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "item already on the list")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking for duplicate item")
	}

	price, barCode := "0.00", ""
	if product, err := s.catalog.FindByName(ctx, name); err == nil {
		price = product.Price
		barCode = product.Barcode
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "looking up catalog product")
	}

	item := &models.ListItem{
		ID:       uuid.New(),
		ListID:   listID,
		Name:     name,
		Quantity: quantity,
		Checked:  false,
		Price:    price,
		BarCode:  barCode,
	}
	if err := s.repo.CreateItem(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating list item")
	}

	s.touchList(ctx, listID)
	s.notifier.ListChanged(ctx, listID)
	return item, nil
}

// SetQuantity updates an item's quantity. Quantities below one and finished
// lists leave the item untouched.
func (s *service) SetQuantity(ctx context.Context, userID, listID, itemID uuid.UUID, quantity int) (*models.ListItem, error) {
	list, err := s.loadOwnedList(ctx, userID, listID)
	if err != nil {
		return nil, err
	}
	item, err := s.loadItem(ctx, listID, itemID)
	if err != nil {
		return nil, err
	}
	if quantity < 1 || list.State == enums.ListStateFinished {
		return item, nil
	}

	item.Quantity = quantity
	if err := s.repo.UpdateItem(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating item quantity")
	}

	s.touchList(ctx, listID)
	s.notifier.ListChanged(ctx, listID)
	return item, nil
}

// ToggleChecked flips an item between to-pick and picked. No-op once the list
// is finished.
func (s *service) ToggleChecked(ctx context.Context, userID, listID, itemID uuid.UUID) (*models.ListItem, error) {
	list, err := s.loadOwnedList(ctx, userID, listID)
	if err != nil {
		return nil, err
	}
	item, err := s.loadItem(ctx, listID, itemID)
	if err != nil {
		return nil, err
	}
	if list.State == enums.ListStateFinished {
		return item, nil
	}

	item.Checked = !item.Checked
	if err := s.repo.UpdateItem(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "toggling item")
	}

	s.touchList(ctx, listID)
	s.notifier.ListChanged(ctx, listID)
	return item, nil
}

// MarkPickedByName checks the item matching the given name, used when a
// barcode scan resolves to a catalog product. Already-picked items and
// finished lists are left untouched.
func (s *service) MarkPickedByName(ctx context.Context, listID uuid.UUID, name string) (*models.ListItem, error) {
	list, err := s.repo.FindListByID(ctx, listID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "list not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading list")
	}

	item, err := s.repo.FindItemByName(ctx, listID, name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item is not on the list")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading item by name")
	}

	if list.State == enums.ListStateFinished || item.Checked {
		return item, nil
	}

	item.Checked = true
	if err := s.repo.UpdateItem(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marking item picked")
	}

	s.touchList(ctx, listID)
	s.notifier.ListChanged(ctx, listID)
	return item, nil
}

// RemoveItem deletes an item. No-op once the list is finished.
func (s *service) RemoveItem(ctx context.Context, userID, listID, itemID uuid.UUID) error {
	list, err := s.loadOwnedList(ctx, userID, listID)
	if err != nil {
		return err
	}
	if list.State == enums.ListStateFinished {
		return nil
	}
	if _, err := s.loadItem(ctx, listID, itemID); err != nil {
		return err
	}
	if err := s.repo.DeleteItem(ctx, listID, itemID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deleting item")
	}

	s.touchList(ctx, listID)
	s.notifier.ListChanged(ctx, listID)
	return nil
}

// ClearAll deletes every item in one transaction and resets the list to
// scanning. This is the only exit from the finished state. Empty lists that
// are not finished are left untouched.
func (s *service) ClearAll(ctx context.Context, userID, listID uuid.UUID) error {
	list, err := s.loadOwnedList(ctx, userID, listID)
	if err != nil {
		return err
	}

	items, err := s.repo.ItemsByList(ctx, listID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading list items")
	}
	if len(items) == 0 && list.State == enums.ListStateScanning {
		return nil
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.DeleteAllItems(ctx, listID); err != nil {
			return err
		}
		return repo.UpdateListState(ctx, listID, enums.ListStateScanning)
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clearing list")
	}

	if s.sessions != nil {
		s.sessions.Clear(listID)
	}
	s.notifier.ListChanged(ctx, listID)
	return nil
}

// touchList is best effort: the mutation itself already succeeded.
func (s *service) touchList(ctx context.Context, listID uuid.UUID) {
	if err := s.repo.TouchList(ctx, listID); err != nil {
		s.logger.Error(ctx, "bumping list updated_at", err)
	}
}

func (s *service) Items(ctx context.Context, listID uuid.UUID) ([]models.ListItem, error) {
	items, err := s.repo.ItemsByList(ctx, listID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading list items")
	}
	return items, nil
}

// RecomputeMirror rebuilds the device projection from the latest stored
// snapshot and writes it in one update. Safe to run repeatedly: the same
// snapshot always produces the same document.
func (s *service) RecomputeMirror(ctx context.Context, listID uuid.UUID) (types.MirrorDocument, error) {
	ctx = s.logger.WithListID(ctx, listID.String())

	list, err := s.repo.FindListByID(ctx, listID)
	if err != nil {
		s.metrics.IncMirrorSync("error")
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.MirrorDocument{}, pkgerrors.New(pkgerrors.CodeNotFound, "list not found")
		}
		return types.MirrorDocument{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading list")
	}

	items, err := s.repo.ItemsByList(ctx, listID)
	if err != nil {
		s.metrics.IncMirrorSync("error")
		return types.MirrorDocument{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading list items")
	}

	doc := BuildMirror(list.State, items)
	if err := s.repo.SaveMirror(ctx, listID, doc); err != nil {
		s.metrics.IncMirrorSync("error")
		return types.MirrorDocument{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "writing mirror")
	}

	s.metrics.IncMirrorSync("ok")
	s.logger.Info(ctx, "mirror recomputed")
	return doc, nil
}

func (s *service) loadOwnedList(ctx context.Context, userID, listID uuid.UUID) (*models.ShoppingList, error) {
	list, err := s.repo.FindListForUser(ctx, listID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "list not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading list")
	}
	return list, nil
}

func (s *service) loadItem(ctx context.Context, listID, itemID uuid.UUID) (*models.ListItem, error) {
	item, err := s.repo.FindItemByID(ctx, listID, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading item")
	}
	return item, nil
}
