package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/SemenBogdanov/dpms-system/internal/domain"
	"github.com/SemenBogdanov/dpms-system/internal/platform/logger"
	"github.com/SemenBogdanov/dpms-system/internal/store"
)

// CorrectionStore implements the store.CorrectionStore interface using
// PostgreSQL. Rows are insert-only.
type CorrectionStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewCorrectionStore creates a new PostgreSQL implementation of
// store.CorrectionStore. If logger is nil, a default logger will be used.
func NewCorrectionStore(db store.DBTX, log *slog.Logger) *CorrectionStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &CorrectionStore{
		db:     db,
		logger: log.With(slog.String("component", "correction_store")),
	}
}

// Ensure CorrectionStore implements store.CorrectionStore interface
var _ store.CorrectionStore = (*CorrectionStore)(nil)

// Create implements store.CorrectionStore.Create.
func (s *CorrectionStore) Create(ctx context.Context, c *domain.TimeCorrection) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := c.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO time_corrections (id, task_id, corrector_id, old_seconds, new_seconds, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		c.ID, c.TaskID, c.CorrectorID, c.OldSeconds, c.NewSeconds, c.Reason, c.CreatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: referenced task or user does not exist", store.ErrInvalidEntity)
		}
		log.Error("failed to create time correction",
			slog.String("error", err.Error()),
			slog.String("task_id", c.TaskID.String()))
		return err
	}

	log.Info("time correction recorded",
		slog.String("task_id", c.TaskID.String()),
		slog.Int64("old_seconds", c.OldSeconds),
		slog.Int64("new_seconds", c.NewSeconds))
	return nil
}

// ListByTask implements store.CorrectionStore.ListByTask.
func (s *CorrectionStore) ListByTask(ctx context.Context, taskID uuid.UUID) ([]*domain.TimeCorrection, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, task_id, corrector_id, old_seconds, new_seconds, reason, created_at
		FROM time_corrections
		WHERE task_id = $1
		ORDER BY created_at ASC`, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to query time corrections: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var corrections []*domain.TimeCorrection
	for rows.Next() {
		var c domain.TimeCorrection
		if err := rows.Scan(&c.ID, &c.TaskID, &c.CorrectorID, &c.OldSeconds, &c.NewSeconds, &c.Reason, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan time correction row: %w", err)
		}
		corrections = append(corrections, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating time correction rows: %w", err)
	}
	return corrections, nil
}

// WithTx implements store.CorrectionStore.WithTx.
func (s *CorrectionStore) WithTx(tx *sql.Tx) store.CorrectionStore {
	return &CorrectionStore{db: tx, logger: s.logger}
}
