package order

import (
	"time"

	"github.com/shopspring/decimal"
)

type CreateOrderRequest struct {
	PackageID     int64     `json:"package_id" binding:"required,gt=0"`
	Extras        []string  `json:"extras" binding:"omitempty,max=20,dive,max=100"`
	ScheduledAt   time.Time `json:"scheduled_at" binding:"required"`
	BeforePhoto   string    `json:"before_photo" binding:"required,max=2048"`
	Address       string    `json:"address" binding:"max=500"`
	Notes         string    `json:"notes" binding:"max=1000"`
	PaymentMethod string    `json:"payment_method" binding:"required,oneof=CASH TRANSFER CARD"`
}

type ConfirmRequest struct {
	StaffID int64 `json:"staff_id" binding:"required,gt=0"`
}

type AfterPhotoRequest struct {
	AfterPhoto string `json:"after_photo" binding:"required,max=2048"`
}

type CancelRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

type RatingRequest struct {
	Score   int    `json:"score" binding:"required"`
	Comment string `json:"comment" binding:"max=1000"`
}

type TipRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"money_positive"`
}

type ListRequest struct {
	Status string `form:"status" binding:"omitempty,oneof=PENDING_CONFIRMATION IN_PROGRESS COMPLETED CANCELLED"`
	Limit  int    `form:"limit" binding:"omitempty,gte=1,lte=100"`
	Offset int    `form:"offset" binding:"omitempty,gte=0"`
}
