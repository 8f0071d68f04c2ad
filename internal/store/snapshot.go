package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/SemenBogdanov/dpms-system/internal/domain"
)

// SnapshotStore defines the interface for closed-period snapshots.
// Snapshots are insert-only; the rollover job is the sole writer.
type SnapshotStore interface {
	// Create saves a new period snapshot.
	Create(ctx context.Context, s *domain.PeriodSnapshot) error

	// ExistsForPeriod reports whether any snapshot exists for the period,
	// which is how a duplicate rollover is rejected.
	ExistsForPeriod(ctx context.Context, period string) (bool, error)

	// ListByUser returns a user's snapshots, most recent period first.
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.PeriodSnapshot, error)

	// ListByPeriod returns all snapshots of one closed period.
	ListByPeriod(ctx context.Context, period string) ([]*domain.PeriodSnapshot, error)

	// WithTx returns a store instance bound to the given transaction.
	WithTx(tx *sql.Tx) SnapshotStore
}
