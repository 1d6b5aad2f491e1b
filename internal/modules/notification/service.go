package notification

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"roomclean/internal/domain"
	"roomclean/internal/pkg/clock"
	"roomclean/internal/repository"
)

var ErrNotFound = errors.New("notification not found")

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Service is the recipient-facing inbox.
type Service struct {
	store Store
	clock clock.Clock
	log   *zap.Logger
}

func NewService(store Store, clk clock.Clock, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, clock: clk, log: log}
}

type Inbox struct {
	Notifications []domain.Notification `json:"notifications"`
	UnreadCount   int64                 `json:"unread_count"`
	Limit         int                   `json:"limit"`
	Offset        int                   `json:"offset"`
}

func (s *Service) List(ctx context.Context, reader domain.Actor, unreadOnly bool, limit, offset int) (*Inbox, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}

	items, err := s.store.ListFor(ctx, reader, unreadOnly, limit, offset)
	if err != nil {
		return nil, err
	}
	unread, err := s.store.CountUnread(ctx, reader)
	if err != nil {
		return nil, err
	}
	return &Inbox{Notifications: items, UnreadCount: unread, Limit: limit, Offset: offset}, nil
}

func (s *Service) UnreadCount(ctx context.Context, reader domain.Actor) (int64, error) {
	return s.store.CountUnread(ctx, reader)
}

func (s *Service) MarkRead(ctx context.Context, reader domain.Actor, id int64) error {
	err := s.store.MarkRead(ctx, reader, id, s.clock.Now())
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *Service) MarkAllRead(ctx context.Context, reader domain.Actor) (int64, error) {
	return s.store.MarkAllRead(ctx, reader, s.clock.Now())
}

// Cleanup deletes read notifications older than retention.
func (s *Service) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	deleted, err := s.store.DeleteReadBefore(ctx, s.clock.Now().Add(-retention))
	if err != nil {
		return 0, err
	}
	s.log.Info("notification cleanup completed", zap.Int64("deleted", deleted))
	return deleted, nil
}

// ScheduleCleanup runs Cleanup every interval until ctx is done.
func (s *Service) ScheduleCleanup(ctx context.Context, interval, retention time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Cleanup(ctx, retention); err != nil && !errors.Is(err, context.Canceled) {
				s.log.Warn("notification cleanup failed", zap.Error(err))
			}
		}
	}
}
