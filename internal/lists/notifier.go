package lists

import (
	"context"

	"github.com/google/uuid"
	"github.com/mercadito-app/mercadito-backend/pkg/logger"
)

// Notifier announces that a list's contents changed so the mirror worker can
// recompute its device projection. Failures are logged, never propagated: a
// missed notification only delays the mirror until the next change.
type Notifier interface {
	ListChanged(ctx context.Context, listID uuid.UUID)
}

type listPublisher interface {
	PublishListChanged(ctx context.Context, listID string) error
}

type redisNotifier struct {
	publisher listPublisher
	logger    *logger.Logger
}

// NewRedisNotifier builds a Notifier backed by the redis pub/sub channel.
func NewRedisNotifier(publisher listPublisher, logg *logger.Logger) Notifier {
	return &redisNotifier{publisher: publisher, logger: logg}
}

func (n *redisNotifier) ListChanged(ctx context.Context, listID uuid.UUID) {
	if n.publisher == nil {
		return
	}
	if err := n.publisher.PublishListChanged(ctx, listID.String()); err != nil && n.logger != nil {
		n.logger.Error(n.logger.WithListID(ctx, listID.String()), "publishing list change", err)
	}
}

// NopNotifier drops notifications, used where mirror sync is synchronous.
type NopNotifier struct{}

func (NopNotifier) ListChanged(context.Context, uuid.UUID) {}
