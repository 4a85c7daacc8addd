package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/quillhub/moderation-api/internal/models"
	appErrors "github.com/quillhub/moderation-api/pkg/errors"
)

type notificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, userID string) error
}

// NotificationService persists in-app notifications and fans them out to the
// push channel. The database row is the durable record; the Redis publish is
// best-effort and its failure never fails the notification.
type NotificationService struct {
	store   notificationStore
	redis   *redis.Client
	channel string
	logger  *zap.Logger
}

func NewNotificationService(store notificationStore, redisClient *redis.Client, channel string, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if channel == "" {
		channel = "notifications"
	}
	return &NotificationService{store: store, redis: redisClient, channel: channel, logger: logger}
}

// Notify writes the notification row and publishes it to the push channel.
// Satisfies the dispatcher's Notifier port.
func (s *NotificationService) Notify(ctx context.Context, userID, title, body string, metadata map[string]string) error {
	n := &models.Notification{
		UserID: userID,
		Title:  title,
		Body:   body,
	}
	if len(metadata) > 0 {
		raw, err := json.Marshal(metadata)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode notification metadata")
		}
		n.Metadata = raw
	}
	if err := s.store.Create(ctx, n); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist notification")
	}
	s.publish(ctx, n)
	return nil
}

// List returns the user's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	notifications, err := s.store.ListByUser(ctx, userID, unreadOnly, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	return notifications, nil
}

// MarkRead flags one of the user's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	if err := s.store.MarkRead(ctx, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
	}
	return nil
}

func (s *NotificationService) publish(ctx context.Context, n *models.Notification) {
	if s.redis == nil {
		return
	}
	payload, err := json.Marshal(n)
	if err != nil {
		s.logger.Warn("failed to encode notification for publish", zap.Error(err))
		return
	}
	if err := s.redis.Publish(ctx, s.channel, payload).Err(); err != nil {
		s.logger.Warn("failed to publish notification",
			zap.String("notification_id", n.ID),
			zap.Error(err))
	}
}
