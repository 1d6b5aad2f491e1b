package repository

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"roomclean/internal/domain"
)

// Models lists every table for AutoMigrate.
func Models() []any {
	return []any{
		&packageModel{},
		&extraOptionModel{},
		&orderModel{},
		&paymentModel{},
		&notificationModel{},
	}
}

type orderModel struct {
	ID              int64                 `gorm:"column:id;primaryKey"`
	CustomerID      int64                 `gorm:"column:customer_id;index"`
	AssignedStaffID *int64                `gorm:"column:assigned_staff_id"`
	PackageID       int64                 `gorm:"column:package_id"`
	BasePrice       decimal.Decimal       `gorm:"column:base_price;type:numeric(12,2)"`
	ExtraPrice      decimal.Decimal       `gorm:"column:extra_price;type:numeric(12,2)"`
	ExtraServices   []domain.ExtraService `gorm:"column:extra_services;serializer:json"`
	Status          string                `gorm:"column:status;index"`
	Address         string                `gorm:"column:address"`
	Notes           string                `gorm:"column:notes"`
	ScheduledAt     time.Time             `gorm:"column:scheduled_at"`
	BeforePhoto     string                `gorm:"column:before_photo"`
	AfterPhoto      *string               `gorm:"column:after_photo"`
	AfterPhotoAt    *time.Time            `gorm:"column:after_photo_at"`
	RatingScore     *int                  `gorm:"column:rating_score"`
	RatingComment   string                `gorm:"column:rating_comment"`
	RatedAt         *time.Time            `gorm:"column:rated_at"`
	TipAmount       decimal.NullDecimal   `gorm:"column:tip_amount;type:numeric(12,2)"`
	TipDecision     string                `gorm:"column:tip_decision"`
	ConfirmedAt     *time.Time            `gorm:"column:confirmed_at"`
	CompletedAt     *time.Time            `gorm:"column:completed_at"`
	CancelledAt     *time.Time            `gorm:"column:cancelled_at"`
	CancelReason    string                `gorm:"column:cancel_reason"`
	Version         int64                 `gorm:"column:version;not null;default:1"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime:false"`
	UpdatedAt       time.Time             `gorm:"column:updated_at;autoUpdateTime:false"`
}

func (orderModel) TableName() string { return "orders" }

func toDomainOrder(m orderModel) *domain.Order {
	o := &domain.Order{
		ID:              m.ID,
		CustomerID:      m.CustomerID,
		AssignedStaffID: m.AssignedStaffID,
		PackageID:       m.PackageID,
		BasePrice:       m.BasePrice,
		ExtraPrice:      m.ExtraPrice,
		ExtraServices:   m.ExtraServices,
		Status:          domain.OrderStatus(m.Status),
		Address:         m.Address,
		Notes:           m.Notes,
		ScheduledAt:     m.ScheduledAt.UTC(),
		BeforePhoto:     m.BeforePhoto,
		AfterPhoto:      m.AfterPhoto,
		AfterPhotoAt:    utcPtr(m.AfterPhotoAt),
		TipDecision:     domain.TipDecision(m.TipDecision),
		ConfirmedAt:     utcPtr(m.ConfirmedAt),
		CompletedAt:     utcPtr(m.CompletedAt),
		CancelledAt:     utcPtr(m.CancelledAt),
		CancelReason:    m.CancelReason,
		CreatedAt:       m.CreatedAt.UTC(),
		UpdatedAt:       m.UpdatedAt.UTC(),
		Version:         m.Version,
	}
	if m.TipAmount.Valid {
		tip := m.TipAmount.Decimal
		o.TipAmount = &tip
	}
	if o.TipDecision == "" {
		o.TipDecision = domain.TipUndecided
	}
	if m.RatingScore != nil {
		r := &domain.Rating{Score: *m.RatingScore, Comment: m.RatingComment}
		if m.RatedAt != nil {
			r.RatedAt = m.RatedAt.UTC()
		}
		o.Rating = r
	}
	return o
}

func toOrderModel(o *domain.Order) orderModel {
	m := orderModel{
		ID:              o.ID,
		CustomerID:      o.CustomerID,
		AssignedStaffID: o.AssignedStaffID,
		PackageID:       o.PackageID,
		BasePrice:       o.BasePrice,
		ExtraPrice:      o.ExtraPrice,
		ExtraServices:   o.ExtraServices,
		Status:          string(o.Status),
		Address:         o.Address,
		Notes:           o.Notes,
		ScheduledAt:     o.ScheduledAt,
		BeforePhoto:     o.BeforePhoto,
		AfterPhoto:      o.AfterPhoto,
		AfterPhotoAt:    o.AfterPhotoAt,
		TipDecision:     string(o.TipDecision),
		ConfirmedAt:     o.ConfirmedAt,
		CompletedAt:     o.CompletedAt,
		CancelledAt:     o.CancelledAt,
		CancelReason:    o.CancelReason,
		Version:         o.Version,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
	if m.ExtraServices == nil {
		m.ExtraServices = []domain.ExtraService{}
	}
	if o.TipAmount != nil {
		m.TipAmount = decimal.NewNullDecimal(*o.TipAmount)
	}
	if o.Rating != nil {
		score := o.Rating.Score
		ratedAt := o.Rating.RatedAt
		m.RatingScore = &score
		m.RatingComment = o.Rating.Comment
		m.RatedAt = &ratedAt
	}
	return m
}

type paymentModel struct {
	ID        int64           `gorm:"column:id;primaryKey"`
	OrderID   int64           `gorm:"column:order_id;uniqueIndex"`
	Method    string          `gorm:"column:method"`
	Status    string          `gorm:"column:status"`
	Amount    decimal.Decimal `gorm:"column:amount;type:numeric(12,2)"`
	PaidAt    *time.Time      `gorm:"column:paid_at"`
	FailedAt  *time.Time      `gorm:"column:failed_at"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime:false"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime:false"`
}

func (paymentModel) TableName() string { return "payments" }

func toDomainPayment(m paymentModel) *domain.Payment {
	return &domain.Payment{
		ID:        m.ID,
		OrderID:   m.OrderID,
		Method:    domain.PaymentMethod(m.Method),
		Status:    domain.PaymentStatus(m.Status),
		Amount:    m.Amount,
		PaidAt:    utcPtr(m.PaidAt),
		FailedAt:  utcPtr(m.FailedAt),
		CreatedAt: m.CreatedAt.UTC(),
		UpdatedAt: m.UpdatedAt.UTC(),
	}
}

func toPaymentModel(p *domain.Payment) paymentModel {
	return paymentModel{
		ID:        p.ID,
		OrderID:   p.OrderID,
		Method:    string(p.Method),
		Status:    string(p.Status),
		Amount:    p.Amount,
		PaidAt:    p.PaidAt,
		FailedAt:  p.FailedAt,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

type packageModel struct {
	ID          int64           `gorm:"column:id;primaryKey"`
	Name        string          `gorm:"column:name;uniqueIndex"`
	Description string          `gorm:"column:description"`
	BasePrice   decimal.Decimal `gorm:"column:base_price;type:numeric(12,2)"`
	Active      bool            `gorm:"column:active"`
	CreatedAt   time.Time       `gorm:"column:created_at"`
}

func (packageModel) TableName() string { return "cleaning_packages" }

type extraOptionModel struct {
	ID        int64           `gorm:"column:id;primaryKey"`
	PackageID int64           `gorm:"column:package_id;index"`
	Name      string          `gorm:"column:name"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(12,2)"`
	Active    bool            `gorm:"column:active"`
}

func (extraOptionModel) TableName() string { return "extra_options" }

type notificationModel struct {
	ID             int64      `gorm:"column:id;primaryKey"`
	RecipientID    int64      `gorm:"column:recipient_id;index:idx_notifications_recipient"`
	RecipientRole  string     `gorm:"column:recipient_role;index:idx_notifications_recipient"`
	Kind           string     `gorm:"column:kind"`
	Title          string     `gorm:"column:title"`
	Message        string     `gorm:"column:message"`
	RelatedOrderID *int64     `gorm:"column:related_order_id"`
	IsRead         bool       `gorm:"column:is_read"`
	ReadAt         *time.Time `gorm:"column:read_at"`
	DeliveredAt    *time.Time `gorm:"column:delivered_at;index"`
	Attempts       int        `gorm:"column:attempts"`
	DeliveredVia   string     `gorm:"column:delivered_via"`
	NextAttemptAt  *time.Time `gorm:"column:next_attempt_at"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime:false"`
}

func (notificationModel) TableName() string { return "notifications" }

func toDomainNotification(m notificationModel) domain.Notification {
	return domain.Notification{
		ID:             m.ID,
		RecipientID:    m.RecipientID,
		RecipientRole:  domain.UserRole(m.RecipientRole),
		Kind:           domain.NotificationKind(m.Kind),
		Title:          m.Title,
		Message:        m.Message,
		RelatedOrderID: m.RelatedOrderID,
		IsRead:         m.IsRead,
		ReadAt:         utcPtr(m.ReadAt),
		DeliveredAt:    utcPtr(m.DeliveredAt),
		Attempts:       m.Attempts,
		DeliveredVia:   splitNames(m.DeliveredVia),
		NextAttemptAt:  utcPtr(m.NextAttemptAt),
		CreatedAt:      m.CreatedAt.UTC(),
	}
}

// splitNames reads a comma-separated list of deliverer names.
func splitNames(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
