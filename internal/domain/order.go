package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPendingConfirmation OrderStatus = "PENDING_CONFIRMATION"
	OrderInProgress          OrderStatus = "IN_PROGRESS"
	OrderCompleted           OrderStatus = "COMPLETED"
	OrderCancelled           OrderStatus = "CANCELLED"
)

// IsTerminal reports whether no further status change is possible.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderCompleted || s == OrderCancelled
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPendingConfirmation, OrderInProgress, OrderCompleted, OrderCancelled:
		return true
	}
	return false
}

// TipDecision separates "customer skipped the tip" from "customer has not decided yet".
type TipDecision string

const (
	TipUndecided TipDecision = "UNDECIDED"
	TipGiven     TipDecision = "TIPPED"
	TipSkipped   TipDecision = "SKIPPED"
)

type ExtraService struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

type Rating struct {
	Score   int       `json:"score" validate:"required,gte=1,lte=5"`
	Comment string    `json:"comment,omitempty"`
	RatedAt time.Time `json:"rated_at"`
}

type Order struct {
	ID              int64            `json:"id"`
	CustomerID      int64            `json:"customer_id"`
	AssignedStaffID *int64           `json:"assigned_staff_id,omitempty"`
	PackageID       int64            `json:"package_id"`
	BasePrice       decimal.Decimal  `json:"base_price"`
	ExtraPrice      decimal.Decimal  `json:"extra_price"`
	ExtraServices   []ExtraService   `json:"extra_services"`
	Status          OrderStatus      `json:"status"`
	Address         string           `json:"address,omitempty"`
	Notes           string           `json:"notes,omitempty"`
	ScheduledAt     time.Time        `json:"scheduled_at"`
	BeforePhoto     string           `json:"before_photo"`
	AfterPhoto      *string          `json:"after_photo,omitempty"`
	AfterPhotoAt    *time.Time       `json:"after_photo_at,omitempty"`
	Rating          *Rating          `json:"rating,omitempty"`
	TipAmount       *decimal.Decimal `json:"tip_amount,omitempty"`
	TipDecision     TipDecision      `json:"tip_decision"`
	ConfirmedAt     *time.Time       `json:"confirmed_at,omitempty"`
	CompletedAt     *time.Time       `json:"completed_at,omitempty"`
	CancelledAt     *time.Time       `json:"cancelled_at,omitempty"`
	CancelReason    string           `json:"cancel_reason,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`

	// Version is bumped on every save and checked by the store.
	Version int64 `json:"-"`
}

func (o *Order) TotalPrice() decimal.Decimal {
	return o.BasePrice.Add(o.ExtraPrice)
}

// Clone returns a deep copy so a transition can work on a draft and discard it on failure.
func (o *Order) Clone() *Order {
	c := *o
	if o.ExtraServices != nil {
		c.ExtraServices = append([]ExtraService(nil), o.ExtraServices...)
	}
	c.AssignedStaffID = cloneInt64(o.AssignedStaffID)
	c.AfterPhoto = cloneString(o.AfterPhoto)
	c.AfterPhotoAt = cloneTime(o.AfterPhotoAt)
	c.ConfirmedAt = cloneTime(o.ConfirmedAt)
	c.CompletedAt = cloneTime(o.CompletedAt)
	c.CancelledAt = cloneTime(o.CancelledAt)
	if o.Rating != nil {
		r := *o.Rating
		c.Rating = &r
	}
	if o.TipAmount != nil {
		t := *o.TipAmount
		c.TipAmount = &t
	}
	return &c
}

func cloneInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	x := *v
	return &x
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	x := *v
	return &x
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	x := *v
	return &x
}
