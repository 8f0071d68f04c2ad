package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/SemenBogdanov/dpms-system/internal/domain"
)

// TaskFilter narrows ListTasks results. Nil fields are ignored.
type TaskFilter struct {
	Status     *domain.TaskStatus
	AssigneeID *uuid.UUID
	Type       *domain.TaskType
}

// TaskStore defines the interface for task data persistence.
type TaskStore interface {
	// Create saves a new task to the store.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by its unique ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// GetForUpdate retrieves a task by ID taking a row-level exclusive lock
	// (SELECT ... FOR UPDATE). This is the serialization point for every
	// state-mutating transition; concurrent pulls of the same task resolve
	// here. Must run inside a transaction.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// Update persists changes to an existing task.
	// Returns ErrTaskNotFound if the task does not exist.
	Update(ctx context.Context, task *domain.Task) error

	// List returns tasks matching the filter, newest first.
	List(ctx context.Context, filter TaskFilter) ([]*domain.Task, error)

	// ListInQueue returns all in_queue tasks ordered by priority descending
	// then creation time ascending (the queue's stable display order).
	ListInQueue(ctx context.Context) ([]*domain.Task, error)

	// CountInProgress returns how many tasks a user currently holds
	// in_progress (the WIP check input).
	CountInProgress(ctx context.Context, userID uuid.UUID) (int, error)

	// GetFocused returns the user's currently focused task, or nil when no
	// task of theirs has an active focus stopwatch.
	GetFocused(ctx context.Context, userID uuid.UUID) (*domain.Task, error)

	// ListFocusedBefore returns tasks whose focus started before the cutoff
	// (the auto-pause sweep input).
	ListFocusedBefore(ctx context.Context, cutoff time.Time) ([]*domain.Task, error)

	// ListOverdueCandidates returns in_progress/review tasks past their due
	// date that are not yet flagged overdue.
	ListOverdueCandidates(ctx context.Context, now time.Time) ([]*domain.Task, error)

	// ListQueuedBefore returns in_queue tasks created before the cutoff
	// (the stale-queue sweep input).
	ListQueuedBefore(ctx context.Context, cutoff time.Time) ([]*domain.Task, error)

	// CountCompletedBetween returns how many of the user's tasks were
	// validated done within [start, end).
	CountCompletedBetween(ctx context.Context, userID uuid.UUID, start, end time.Time) (int, error)

	// ListCompletedBetween returns every task validated done within
	// [start, end), ordered by validation time.
	ListCompletedBetween(ctx context.Context, start, end time.Time) ([]*domain.Task, error)

	// WithTx returns a store instance bound to the given transaction.
	WithTx(tx *sql.Tx) TaskStore
}
