// README: Best-effort Notifier; publish failures are logged and swallowed.
package notification

import (
	"context"
	"log/slog"
	"time"
)

// Notifier is what the order and transaction services see. Delivery is
// fire-and-forget: implementations must never let a failure propagate into
// the state change that triggered the notification.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

type Publisher interface {
	Publish(ctx context.Context, n Notification) error
}

type Service struct {
	publisher Publisher
	logger    *slog.Logger
}

func NewService(publisher Publisher, logger *slog.Logger) *Service {
	return &Service{publisher: publisher, logger: logger}
}

func (s *Service) Notify(ctx context.Context, n Notification) {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	if err := s.publisher.Publish(ctx, n); err != nil {
		s.logger.Warn("notification publish failed",
			"recipient_id", n.RecipientID,
			"entity_type", n.EntityType,
			"entity_id", n.EntityID,
			"error", err,
		)
	}
}
