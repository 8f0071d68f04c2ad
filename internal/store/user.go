package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/SemenBogdanov/dpms-system/internal/domain"
)

// UserStore defines the interface for user data persistence.
type UserStore interface {
	// Create saves a new user to the store.
	// Returns ErrEmailExists if the email is already in use.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique ID.
	// Returns ErrUserNotFound if the user does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetByEmail retrieves a user by their email address.
	// Returns ErrUserNotFound if the user does not exist.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// GetForUpdate retrieves a user by ID taking a row-level exclusive lock
	// (SELECT ... FOR UPDATE). Must run inside a transaction.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// Update persists changes to an existing user.
	// Returns ErrUserNotFound if the user does not exist.
	Update(ctx context.Context, user *domain.User) error

	// ListActive returns all active users.
	ListActive(ctx context.Context) ([]*domain.User, error)

	// ListManagers returns all active teamleads and admins, the audience
	// for escalation notifications.
	ListManagers(ctx context.Context) ([]*domain.User, error)

	// WithTx returns a store instance bound to the given transaction.
	WithTx(tx *sql.Tx) UserStore
}
