package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEmptyNotificationID   = errors.New("notification ID cannot be empty")
	ErrEmptyNotificationType = errors.New("notification type cannot be empty")
)

// Notification types emitted by the lifecycle and batch operations.
const (
	NotifTaskAssigned     = "task_assigned"
	NotifTaskAccepted     = "task_accepted"
	NotifTaskRejected     = "task_rejected"
	NotifTaskOverdue      = "task_overdue"
	NotifQueueStale       = "queue_stale"
	NotifOrphanedBugfix   = "orphaned_bugfix"
	NotifQualityAlert     = "quality_alert"
	NotifFocusAutoPaused  = "focus_auto_paused"
	NotifRollover         = "rollover"
	NotifLeagueChange     = "league_change"
	NotifPurchasePending  = "purchase_pending"
	NotifPurchaseApproved = "purchase_approved"
)

// Notification is a best-effort, store-backed message to a user. Delivery
// failures are logged, never surfaced to the operation that emitted them.
type Notification struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Link      string    `json:"link"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// NewNotification creates an unread notification.
// Returns an error if validation fails.
func NewNotification(userID uuid.UUID, notifType, title, message, link string) (*Notification, error) {
	n := &Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      notifType,
		Title:     title,
		Message:   message,
		Link:      link,
		CreatedAt: time.Now().UTC(),
	}

	if err := n.Validate(); err != nil {
		return nil, err
	}
	return n, nil
}

// Validate checks if the Notification has valid data.
func (n *Notification) Validate() error {
	if n.ID == uuid.Nil {
		return ErrEmptyNotificationID
	}
	if n.UserID == uuid.Nil {
		return ErrEmptyUserID
	}
	if n.Type == "" {
		return ErrEmptyNotificationType
	}
	return nil
}
