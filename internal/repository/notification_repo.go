package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"roomclean/internal/domain"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	return insertNotification(r.db.WithContext(ctx), n)
}

// insertNotification writes n with db, which may be an open transaction.
func insertNotification(db *gorm.DB, n *domain.Notification) error {
	m := notificationModel{
		RecipientID:    n.RecipientID,
		RecipientRole:  string(n.RecipientRole),
		Kind:           string(n.Kind),
		Title:          n.Title,
		Message:        n.Message,
		RelatedOrderID: n.RelatedOrderID,
		CreatedAt:      n.CreatedAt,
	}
	if err := db.Create(&m).Error; err != nil {
		return fmt.Errorf("insert notification: %w", mapError(err))
	}
	n.ID = m.ID
	return nil
}

// visibleTo scopes a query to what reader may see: their own rows, and for
// admins the shared admin pool as well.
func visibleTo(q *gorm.DB, reader domain.Actor) *gorm.DB {
	if reader.IsAdmin() {
		return q.Where("recipient_id = ? OR (recipient_id = 0 AND recipient_role = ?)", reader.ID, string(domain.RoleAdmin))
	}
	return q.Where("recipient_id = ?", reader.ID)
}

func (r *NotificationRepository) ListFor(ctx context.Context, reader domain.Actor, unreadOnly bool, limit, offset int) ([]domain.Notification, error) {
	q := visibleTo(r.db.WithContext(ctx).Model(&notificationModel{}), reader)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	if limit <= 0 {
		limit = -1
	}

	var rows []notificationModel
	if err := q.Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	out := make([]domain.Notification, 0, len(rows))
	for _, m := range rows {
		out = append(out, toDomainNotification(m))
	}
	return out, nil
}

func (r *NotificationRepository) CountUnread(ctx context.Context, reader domain.Actor) (int64, error) {
	var n int64
	err := visibleTo(r.db.WithContext(ctx).Model(&notificationModel{}), reader).
		Where("is_read = ?", false).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return n, nil
}

// MarkRead marks one visible notification read. Already-read rows are left as is.
func (r *NotificationRepository) MarkRead(ctx context.Context, reader domain.Actor, id int64, now time.Time) error {
	var m notificationModel
	err := visibleTo(r.db.WithContext(ctx).Model(&notificationModel{}), reader).
		Where("id = ?", id).
		First(&m).Error
	if err != nil {
		return mapError(err)
	}
	if m.IsRead {
		return nil
	}
	return r.db.WithContext(ctx).Model(&notificationModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"is_read": true, "read_at": now}).Error
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, reader domain.Actor, now time.Time) (int64, error) {
	res := visibleTo(r.db.WithContext(ctx).Model(&notificationModel{}), reader).
		Where("is_read = ?", false).
		Updates(map[string]interface{}{"is_read": true, "read_at": now})
	if res.Error != nil {
		return 0, fmt.Errorf("mark all read: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// PendingDelivery returns undelivered rows that are due and below maxAttempts, oldest first.
func (r *NotificationRepository) PendingDelivery(ctx context.Context, now time.Time, maxAttempts, limit int) ([]domain.Notification, error) {
	var rows []notificationModel
	err := r.db.WithContext(ctx).
		Where("delivered_at IS NULL AND attempts < ?", maxAttempts).
		Where("next_attempt_at IS NULL OR next_attempt_at <= ?", now).
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list pending notifications: %w", err)
	}

	out := make([]domain.Notification, 0, len(rows))
	for _, m := range rows {
		out = append(out, toDomainNotification(m))
	}
	return out, nil
}

func (r *NotificationRepository) MarkDelivered(ctx context.Context, id int64, now time.Time) error {
	return r.db.WithContext(ctx).Model(&notificationModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"delivered_at":    now,
			"attempts":        gorm.Expr("attempts + 1"),
			"next_attempt_at": nil,
		}).Error
}

// MarkAttemptFailed records a failed delivery and schedules the next try.
// deliveredVia names the deliverers that have already succeeded for the row.
func (r *NotificationRepository) MarkAttemptFailed(ctx context.Context, id int64, next time.Time, deliveredVia []string) error {
	return r.db.WithContext(ctx).Model(&notificationModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"attempts":        gorm.Expr("attempts + 1"),
			"next_attempt_at": next,
			"delivered_via":   strings.Join(deliveredVia, ","),
		}).Error
}

// DeleteReadBefore removes read, delivered notifications created before cutoff.
func (r *NotificationRepository) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("is_read = ? AND delivered_at IS NOT NULL AND created_at < ?", true, cutoff).
		Delete(&notificationModel{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete old notifications: %w", res.Error)
	}
	return res.RowsAffected, nil
}
