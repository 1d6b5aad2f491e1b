package domain

import "time"

type NotificationKind string

const (
	NotifOrderCreated       NotificationKind = "order_created"
	NotifOrderConfirmed     NotificationKind = "order_confirmed"
	NotifAfterPhotoUploaded NotificationKind = "after_photo_uploaded"
	NotifOrderCompleted     NotificationKind = "order_completed"
	NotifOrderCancelled     NotificationKind = "order_cancelled"
	NotifOrderRated         NotificationKind = "order_rated"
	NotifTipReceived        NotificationKind = "tip_received"
	NotifTipSkipped         NotificationKind = "tip_skipped"
	NotifPaymentPaid        NotificationKind = "payment_paid"
	NotifPaymentFailed      NotificationKind = "payment_failed"
	NotifPaymentSwitched    NotificationKind = "payment_switched_to_cash"
)

// Recipient addresses one user, or the whole admin pool when UserID is zero and Role is admin.
type Recipient struct {
	UserID int64    `json:"user_id"`
	Role   UserRole `json:"role"`
}

func AdminPool() Recipient { return Recipient{Role: RoleAdmin} }

func (r Recipient) IsPool() bool { return r.UserID == 0 }

type Notification struct {
	ID             int64            `json:"id"`
	RecipientID    int64            `json:"recipient_id"`
	RecipientRole  UserRole         `json:"recipient_role"`
	Kind           NotificationKind `json:"kind"`
	Title          string           `json:"title"`
	Message        string           `json:"message"`
	RelatedOrderID *int64           `json:"related_order_id,omitempty"`
	IsRead         bool             `json:"is_read"`
	ReadAt         *time.Time       `json:"read_at,omitempty"`
	DeliveredAt    *time.Time       `json:"delivered_at,omitempty"`
	Attempts       int              `json:"-"`
	DeliveredVia   []string         `json:"-"`
	NextAttemptAt  *time.Time       `json:"-"`
	CreatedAt      time.Time        `json:"created_at"`
}
