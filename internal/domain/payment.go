package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "CASH"
	PaymentTransfer PaymentMethod = "TRANSFER"
	PaymentCard     PaymentMethod = "CARD"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentTransfer, PaymentCard:
		return true
	}
	return false
}

// IsOnline reports whether the gateway, not an admin, settles this method.
func (m PaymentMethod) IsOnline() bool {
	return m == PaymentTransfer || m == PaymentCard
}

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentPaid    PaymentStatus = "PAID"
	PaymentFailed  PaymentStatus = "FAILED"
)

type Payment struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"order_id"`
	Method    PaymentMethod   `json:"method"`
	Status    PaymentStatus   `json:"status"`
	Amount    decimal.Decimal `json:"amount"`
	PaidAt    *time.Time      `json:"paid_at,omitempty"`
	FailedAt  *time.Time      `json:"failed_at,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
