package order

import (
	"context"

	"roomclean/internal/domain"
	"roomclean/internal/repository"
)

// Store persists the order and its payment as one unit.
type Store interface {
	Create(ctx context.Context, o *domain.Order, p *domain.Payment, notify repository.Notify) error
	LoadOrder(ctx context.Context, id int64) (*domain.Order, error)
	LoadPayment(ctx context.Context, orderID int64) (*domain.Payment, error)
	SaveOrderAndPayment(ctx context.Context, o *domain.Order, p *domain.Payment, notify repository.Notify) error
	Delete(ctx context.Context, orderID int64) error
	List(ctx context.Context, f repository.OrderFilter) ([]*domain.Order, int64, error)
	PaymentsByOrder(ctx context.Context, orderIDs []int64) (map[int64]*domain.Payment, error)
}

// Catalog resolves the package an order is placed for.
type Catalog interface {
	Get(ctx context.Context, id int64) (*domain.CleaningPackage, error)
}

// Emitter composes the notification a write commits with and, once the write
// has committed, hands the stored row to delivery. Emit errors are only logged.
type Emitter interface {
	Compose(to domain.Recipient, kind domain.NotificationKind, title, message string, relatedOrderID *int64) (*domain.Notification, error)
	Emit(ctx context.Context, n *domain.Notification) error
}
