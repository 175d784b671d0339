package lists

import (
	"context"

	"github.com/google/uuid"
	"github.com/mercadito-app/mercadito-backend/pkg/logger"
	redislib "github.com/redis/go-redis/v9"
)

type listSubscriber interface {
	SubscribeListChanged(ctx context.Context) (*redislib.PubSub, error)
}

// Watcher consumes list-change notifications and recomputes device mirrors.
// Each notification triggers a recompute from the latest stored snapshot, so
// dropped or reordered messages converge on the same final document.
type Watcher struct {
	subscriber listSubscriber
	service    Service
	logger     *logger.Logger
}

// NewWatcher builds a mirror watcher.
func NewWatcher(subscriber listSubscriber, svc Service, logg *logger.Logger) *Watcher {
	return &Watcher{subscriber: subscriber, service: svc, logger: logg}
}

// Run blocks consuming notifications until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	pubsub, err := w.subscriber.SubscribeListChanged(ctx)
	if err != nil {
		return err
	}
	defer pubsub.Close()

	w.logger.Info(ctx, "mirror watcher started")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			w.logger.Info(ctx, "mirror watcher stopped")
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			w.handle(ctx, msg.Payload)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, payload string) {
	listID, err := uuid.Parse(payload)
	if err != nil {
		w.logger.Warn(w.logger.WithField(ctx, "payload", payload), "ignoring malformed list change payload")
		return
	}
	if _, err := w.service.RecomputeMirror(ctx, listID); err != nil {
		w.logger.Error(w.logger.WithListID(ctx, listID.String()), "recomputing mirror", err)
	}
}
