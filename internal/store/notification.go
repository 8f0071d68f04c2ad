package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/SemenBogdanov/dpms-system/internal/domain"
)

// NotificationStore defines the interface for the notification inbox.
type NotificationStore interface {
	// Create saves a new notification.
	Create(ctx context.Context, n *domain.Notification) error

	// ListByUser returns a user's notifications, newest first.
	// unreadOnly limits the result to unread ones.
	ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]*domain.Notification, error)

	// CountUnread returns the user's unread notification count.
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)

	// MarkRead marks one of the user's notifications as read.
	MarkRead(ctx context.Context, id, userID uuid.UUID) error

	// MarkAllRead marks all of the user's notifications as read and
	// returns how many were affected.
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int, error)

	// ExistsWithLinkSince reports whether any notification with the given
	// deep link was created at or after the given time. The stale-queue
	// sweep uses this as its once-per-24h rate limit instead of a
	// dedicated last-notified column.
	ExistsWithLinkSince(ctx context.Context, link string, since time.Time) (bool, error)

	// WithTx returns a store instance bound to the given transaction.
	WithTx(tx *sql.Tx) NotificationStore
}
