package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"roomclean/internal/domain"
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

type OrderFilter struct {
	CustomerID *int64
	Status     domain.OrderStatus
	Limit      int
	Offset     int
}

// Notify builds the notification a write commits with. It runs inside the
// transaction once the order id is known; a nil result queues nothing.
type Notify func(orderID int64) (*domain.Notification, error)

func queueNotification(tx *gorm.DB, orderID int64, notify Notify) error {
	if notify == nil {
		return nil
	}
	n, err := notify(orderID)
	if err != nil {
		return err
	}
	if n == nil {
		return nil
	}
	return insertNotification(tx, n)
}

// Create inserts a new order together with its payment and its notification.
// All three commit or none do.
func (r *OrderRepository) Create(ctx context.Context, o *domain.Order, p *domain.Payment, notify Notify) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		om := toOrderModel(o)
		om.Version = 1
		if err := tx.Create(&om).Error; err != nil {
			return fmt.Errorf("insert order: %w", mapError(err))
		}

		p.OrderID = om.ID
		pm := toPaymentModel(p)
		if err := tx.Create(&pm).Error; err != nil {
			return fmt.Errorf("insert payment: %w", mapError(err))
		}
		if err := queueNotification(tx, om.ID, notify); err != nil {
			return err
		}

		o.ID = om.ID
		o.Version = om.Version
		p.ID = pm.ID
		return nil
	})
}

func (r *OrderRepository) LoadOrder(ctx context.Context, id int64) (*domain.Order, error) {
	var m orderModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, mapError(err)
	}
	return toDomainOrder(m), nil
}

func (r *OrderRepository) LoadPayment(ctx context.Context, orderID int64) (*domain.Payment, error) {
	var m paymentModel
	if err := r.db.WithContext(ctx).First(&m, "order_id = ?", orderID).Error; err != nil {
		return nil, mapError(err)
	}
	return toDomainPayment(m), nil
}

// SaveOrderAndPayment writes both rows and the transition's notification in one
// transaction. The order row is only updated if its version still matches
// o.Version; on success o.Version is bumped. A nil payment leaves the payment
// row untouched.
func (r *OrderRepository) SaveOrderAndPayment(ctx context.Context, o *domain.Order, p *domain.Payment, notify Notify) error {
	expected := o.Version
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		om := toOrderModel(o)
		om.Version = expected + 1

		res := tx.Model(&om).
			Where("version = ?", expected).
			Select("*").
			Omit("id", "created_at").
			Updates(&om)
		if res.Error != nil {
			return fmt.Errorf("update order %d: %w", o.ID, mapError(res.Error))
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&orderModel{}).Where("id = ?", o.ID).Count(&count).Error; err != nil {
				return fmt.Errorf("check order %d: %w", o.ID, err)
			}
			if count == 0 {
				return ErrNotFound
			}
			return ErrVersionConflict
		}

		if p == nil {
			return queueNotification(tx, o.ID, notify)
		}
		pm := toPaymentModel(p)
		res = tx.Model(&pm).
			Where("order_id = ?", o.ID).
			Select("*").
			Omit("id", "order_id", "created_at").
			Updates(&pm)
		if res.Error != nil {
			return fmt.Errorf("update payment for order %d: %w", o.ID, mapError(res.Error))
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return queueNotification(tx, o.ID, notify)
	})
	if err != nil {
		return err
	}
	o.Version = expected + 1
	return nil
}

// Delete removes the order and its payment permanently.
func (r *OrderRepository) Delete(ctx context.Context, orderID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", orderID).Delete(&paymentModel{}).Error; err != nil {
			return fmt.Errorf("delete payment for order %d: %w", orderID, err)
		}
		res := tx.Where("id = ?", orderID).Delete(&orderModel{})
		if res.Error != nil {
			return fmt.Errorf("delete order %d: %w", orderID, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// List returns orders newest first plus the total matching the filter.
func (r *OrderRepository) List(ctx context.Context, f OrderFilter) ([]*domain.Order, int64, error) {
	base := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&orderModel{})
		if f.CustomerID != nil {
			q = q.Where("customer_id = ?", *f.CustomerID)
		}
		if f.Status != "" {
			q = q.Where("status = ?", string(f.Status))
		}
		return q
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = -1
	}

	var rows []orderModel
	if err := base().Order("created_at DESC, id DESC").Limit(limit).Offset(f.Offset).Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}

	out := make([]*domain.Order, 0, len(rows))
	for _, m := range rows {
		out = append(out, toDomainOrder(m))
	}
	return out, total, nil
}

// PaymentsByOrder loads the payments of the given orders keyed by order id.
func (r *OrderRepository) PaymentsByOrder(ctx context.Context, orderIDs []int64) (map[int64]*domain.Payment, error) {
	out := make(map[int64]*domain.Payment, len(orderIDs))
	if len(orderIDs) == 0 {
		return out, nil
	}
	var rows []paymentModel
	if err := r.db.WithContext(ctx).Where("order_id IN ?", orderIDs).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	for _, m := range rows {
		out[m.OrderID] = toDomainPayment(m)
	}
	return out, nil
}

// IsNotFound reports whether err means the row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
