package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/SemenBogdanov/dpms-system/internal/domain"
)

// CorrectionStore defines the interface for the time-correction audit log.
// Rows are insert-only.
type CorrectionStore interface {
	// Create saves a new time correction audit row.
	Create(ctx context.Context, c *domain.TimeCorrection) error

	// ListByTask returns a task's corrections, oldest first.
	ListByTask(ctx context.Context, taskID uuid.UUID) ([]*domain.TimeCorrection, error)

	// WithTx returns a store instance bound to the given transaction.
	WithTx(tx *sql.Tx) CorrectionStore
}
