package devices

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mercadito-app/mercadito-backend/internal/lists"
	"github.com/mercadito-app/mercadito-backend/pkg/db/models"
	"github.com/mercadito-app/mercadito-backend/pkg/enums"
	pkgerrors "github.com/mercadito-app/mercadito-backend/pkg/errors"
	"github.com/mercadito-app/mercadito-backend/pkg/logger"
	"github.com/mercadito-app/mercadito-backend/pkg/types"
	"gorm.io/gorm"
)

type listReader interface {
	FindListForUser(ctx context.Context, id, userID uuid.UUID) (*models.ShoppingList, error)
	FindListByID(ctx context.Context, id uuid.UUID) (*models.ShoppingList, error)
}

// Service manages which user and list the shelf display follows and serves
// the mirror document the device polls.
type Service interface {
	LinkUser(ctx context.Context, userID uuid.UUID, displayName string) error
	Unlink(ctx context.Context) error
	SetActiveList(ctx context.Context, userID, listID uuid.UUID) error
	State(ctx context.Context) (types.MirrorDocument, error)
}

type service struct {
	repo   Repository
	lists  listReader
	logger *logger.Logger
}

// NewService builds the device link service.
func NewService(repo Repository, listRepo lists.Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("device repository required")
	}
	if listRepo == nil {
		return nil, fmt.Errorf("list repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, lists: listRepo, logger: logg}, nil
}

// LinkUser points the display at the most recently logged-in user. The active
// list survives only when it belongs to the same user.
func (s *service) LinkUser(ctx context.Context, userID uuid.UUID, displayName string) error {
	link, err := s.loadLink(ctx)
	if err != nil {
		return err
	}

	if link.UserID == nil || *link.UserID != userID {
		link.ActiveListID = nil
	}
	link.UserID = &userID
	link.DisplayName = &displayName

	if err := s.repo.Save(ctx, link); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving device link")
	}
	s.logger.Info(s.logger.WithUserID(ctx, userID.String()), "device linked to user")
	return nil
}

// Unlink detaches the display from any user and list.
func (s *service) Unlink(ctx context.Context) error {
	link, err := s.loadLink(ctx)
	if err != nil {
		return err
	}
	link.UserID = nil
	link.ActiveListID = nil
	link.DisplayName = nil

	if err := s.repo.Save(ctx, link); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clearing device link")
	}
	s.logger.Info(ctx, "device unlinked")
	return nil
}

// SetActiveList chooses which of the linked user's lists the display renders.
func (s *service) SetActiveList(ctx context.Context, userID, listID uuid.UUID) error {
	if _, err := s.lists.FindListForUser(ctx, listID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "list not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading list")
	}

	link, err := s.loadLink(ctx)
	if err != nil {
		return err
	}
	link.UserID = &userID
	link.ActiveListID = &listID

	if err := s.repo.Save(ctx, link); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving device link")
	}
	return nil
}

// State returns the mirror document for the active list. A display with no
// linked user or list gets an empty scanning document so the firmware always
// has something to render.
func (s *service) State(ctx context.Context) (types.MirrorDocument, error) {
	empty := types.MirrorDocument{
		State:  enums.ListStateScanning.String(),
		ToPick: []types.MirrorEntry{},
		Picked: []types.MirrorEntry{},
	}

	link, err := s.loadLink(ctx)
	if err != nil {
		return empty, err
	}
	if link.UserID == nil || link.ActiveListID == nil {
		return empty, nil
	}

	list, err := s.lists.FindListByID(ctx, *link.ActiveListID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return empty, nil
		}
		return empty, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading active list")
	}

	return types.MirrorDocument{
		State:  list.State.String(),
		ToPick: list.ToPick,
		Picked: list.Picked,
	}, nil
}

func (s *service) loadLink(ctx context.Context) (*models.DeviceLink, error) {
	link, err := s.repo.Get(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &models.DeviceLink{}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading device link")
	}
	return link, nil
}
