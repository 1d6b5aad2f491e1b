package notification

import (
	"context"
	"time"

	"roomclean/internal/domain"
)

type Store interface {
	Create(ctx context.Context, n *domain.Notification) error
	ListFor(ctx context.Context, reader domain.Actor, unreadOnly bool, limit, offset int) ([]domain.Notification, error)
	CountUnread(ctx context.Context, reader domain.Actor) (int64, error)
	MarkRead(ctx context.Context, reader domain.Actor, id int64, now time.Time) error
	MarkAllRead(ctx context.Context, reader domain.Actor, now time.Time) (int64, error)
	PendingDelivery(ctx context.Context, now time.Time, maxAttempts, limit int) ([]domain.Notification, error)
	MarkDelivered(ctx context.Context, id int64, now time.Time) error
	MarkAttemptFailed(ctx context.Context, id int64, next time.Time, deliveredVia []string) error
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Deliverer pushes a stored notification somewhere outside the database.
type Deliverer interface {
	Name() string
	Deliver(ctx context.Context, n domain.Notification) error
}
