package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/SemenBogdanov/dpms-system/internal/domain"
	"github.com/SemenBogdanov/dpms-system/internal/store"
)

// NotificationService is the read side of the inbox.
type NotificationService struct {
	notifications store.NotificationStore
	logger        *slog.Logger
}

// NewNotificationService creates a new NotificationService.
// It returns an error if any of the required dependencies are nil.
func NewNotificationService(notifications store.NotificationStore, log *slog.Logger) (*NotificationService, error) {
	if notifications == nil {
		return nil, domain.NewValidationError("notifications", "cannot be nil", domain.ErrValidation)
	}
	if log == nil {
		log = slog.Default()
	}
	return &NotificationService{
		notifications: notifications,
		logger:        log.With(slog.String("component", "notification_service")),
	}, nil
}

// List returns the actor's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, actor Actor, unreadOnly bool, limit int) ([]*domain.Notification, error) {
	return s.notifications.ListByUser(ctx, actor.ID, unreadOnly, limit)
}

// CountUnread returns the actor's unread count.
func (s *NotificationService) CountUnread(ctx context.Context, actor Actor) (int, error) {
	return s.notifications.CountUnread(ctx, actor.ID)
}

// MarkRead acknowledges one of the actor's notifications.
func (s *NotificationService) MarkRead(ctx context.Context, actor Actor, id uuid.UUID) error {
	return s.notifications.MarkRead(ctx, id, actor.ID)
}

// MarkAllRead acknowledges the actor's whole inbox and returns how many
// notifications were affected.
func (s *NotificationService) MarkAllRead(ctx context.Context, actor Actor) (int, error) {
	return s.notifications.MarkAllRead(ctx, actor.ID)
}
