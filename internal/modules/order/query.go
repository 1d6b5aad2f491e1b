package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"roomclean/internal/domain"
	"roomclean/internal/modules/timegate"
	"roomclean/internal/repository"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// OrderView is an order as shown to clients. The payment flags and the
// after-photo hints are derived from the clock at read time.
type OrderView struct {
	*domain.Order
	Payment             *domain.Payment `json:"payment"`
	PaymentExpiring     bool            `json:"payment_expiring"`
	PaymentExpired      bool            `json:"payment_expired"`
	AfterPhotoOpensAt   time.Time       `json:"after_photo_opens_at"`
	CanUploadAfterPhoto bool            `json:"can_upload_after_photo"`
	TotalPrice          string          `json:"total_price"`
}

func NewOrderView(o *domain.Order, p *domain.Payment, now time.Time) OrderView {
	v := OrderView{
		Order:             o,
		Payment:           p,
		AfterPhotoOpensAt: timegate.AfterPhotoOpensAt(o),
		TotalPrice:        o.TotalPrice().StringFixed(2),
	}
	if p != nil {
		v.PaymentExpiring = timegate.IsTransferExpiring(o, p, now)
		v.PaymentExpired = timegate.IsTransferExpired(o, p, now)
		v.CanUploadAfterPhoto = timegate.CanUploadAfterPhoto(o, p, now)
	}
	return v
}

type ListQuery struct {
	Status domain.OrderStatus
	Limit  int
	Offset int
}

func (q ListQuery) normalized() ListQuery {
	if q.Limit <= 0 {
		q.Limit = defaultPageSize
	}
	if q.Limit > maxPageSize {
		q.Limit = maxPageSize
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return q
}

// GetOrder returns one order. Customers only see their own.
func (s *Service) GetOrder(ctx context.Context, actor domain.Actor, orderID int64) (*OrderView, error) {
	o, err := s.loadOrder(ctx, orderID, "get")
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() {
		if !actor.IsCustomer() || o.CustomerID != actor.ID {
			return nil, &Error{Kind: ErrNotFound, Action: "get", OrderID: orderID}
		}
	}

	p, err := s.store.LoadPayment(ctx, orderID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("load payment for order %d: %w", orderID, err)
	}
	v := NewOrderView(o, p, s.clock.Now())
	return &v, nil
}

// ListOrders returns the actor's orders, or all orders for admins.
func (s *Service) ListOrders(ctx context.Context, actor domain.Actor, q ListQuery) ([]OrderView, int64, error) {
	q = q.normalized()
	if q.Status != "" && !q.Status.Valid() {
		return nil, 0, invalid("list", fmt.Sprintf("unknown status %q", q.Status))
	}

	filter := repository.OrderFilter{Status: q.Status, Limit: q.Limit, Offset: q.Offset}
	switch {
	case actor.IsAdmin():
	case actor.IsCustomer():
		id := actor.ID
		filter.CustomerID = &id
	default:
		return nil, 0, reject(ErrForbidden, "list", nil, "customer or admin only")
	}

	orders, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	payments, err := s.store.PaymentsByOrder(ctx, ids)
	if err != nil {
		return nil, 0, err
	}

	now := s.clock.Now()
	views := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, NewOrderView(o, payments[o.ID], now))
	}
	return views, total, nil
}
