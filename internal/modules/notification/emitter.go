package notification

import (
	"context"
	"errors"
	"fmt"

	"roomclean/internal/domain"
	"roomclean/internal/pkg/clock"
)

// Emitter builds notifications for a writer to commit alongside its own rows,
// then hands committed rows to the dispatcher.
type Emitter struct {
	clock clock.Clock
	wake  func()
}

func NewEmitter(clk clock.Clock) *Emitter {
	return &Emitter{clock: clk}
}

// OnStored registers fn to run for each committed notification, typically
// Dispatcher.Wake.
func (e *Emitter) OnStored(fn func()) *Emitter {
	e.wake = fn
	return e
}

// Compose returns an unsaved notification stamped with the current time.
func (e *Emitter) Compose(to domain.Recipient, kind domain.NotificationKind, title, message string, relatedOrderID *int64) (*domain.Notification, error) {
	if to.IsPool() && to.Role != domain.RoleAdmin {
		return nil, fmt.Errorf("notification %s: only the admin pool may be addressed without a user id", kind)
	}
	return &domain.Notification{
		RecipientID:    to.UserID,
		RecipientRole:  to.Role,
		Kind:           kind,
		Title:          title,
		Message:        message,
		RelatedOrderID: relatedOrderID,
		CreatedAt:      e.clock.Now(),
	}, nil
}

// Emit signals that n has been committed. It refuses rows that were never stored.
func (e *Emitter) Emit(_ context.Context, n *domain.Notification) error {
	if n == nil || n.ID == 0 {
		return errors.New("notification: emit before store")
	}
	if e.wake != nil {
		e.wake()
	}
	return nil
}
