package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/SemenBogdanov/dpms-system/internal/domain"
	"github.com/SemenBogdanov/dpms-system/internal/platform/logger"
	"github.com/SemenBogdanov/dpms-system/internal/store"
)

// Notifier is the fire-and-forget notification sink. Delivery is
// best-effort: a failed send is logged and never surfaced to the lifecycle
// operation that emitted it.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, notifType, title, message, link string)
}

// StoreNotifier writes notifications into the user's inbox table.
type StoreNotifier struct {
	notifications store.NotificationStore
	logger        *slog.Logger
}

// NewStoreNotifier creates a store-backed notification sink.
// If logger is nil, a default logger will be used.
func NewStoreNotifier(notifications store.NotificationStore, log *slog.Logger) *StoreNotifier {
	if notifications == nil {
		panic("notifications store cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &StoreNotifier{
		notifications: notifications,
		logger:        log.With(slog.String("component", "notifier")),
	}
}

var _ Notifier = (*StoreNotifier)(nil)

// Notify implements Notifier. Errors are logged and swallowed.
func (n *StoreNotifier) Notify(ctx context.Context, userID uuid.UUID, notifType, title, message, link string) {
	log := logger.FromContextOrDefault(ctx, n.logger)

	notif, err := domain.NewNotification(userID, notifType, title, message, link)
	if err != nil {
		log.Warn("dropping invalid notification",
			slog.String("error", err.Error()),
			slog.String("type", notifType))
		return
	}
	if err := n.notifications.Create(ctx, notif); err != nil {
		log.Warn("failed to deliver notification",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()),
			slog.String("type", notifType))
	}
}
