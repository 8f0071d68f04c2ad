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

// SnapshotStore implements the store.SnapshotStore interface using PostgreSQL.
// Snapshot rows are insert-only.
type SnapshotStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewSnapshotStore creates a new PostgreSQL implementation of store.SnapshotStore.
// If logger is nil, a default logger will be used.
func NewSnapshotStore(db store.DBTX, log *slog.Logger) *SnapshotStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &SnapshotStore{
		db:     db,
		logger: log.With(slog.String("component", "snapshot_store")),
	}
}

// Ensure SnapshotStore implements store.SnapshotStore interface
var _ store.SnapshotStore = (*SnapshotStore)(nil)

const snapshotColumns = `id, user_id, period, monthly_target, earned_main,
	earned_karma, tasks_completed, league, created_at`

// Create implements store.SnapshotStore.Create.
func (s *SnapshotStore) Create(ctx context.Context, snap *domain.PeriodSnapshot) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := snap.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO period_snapshots (` + snapshotColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(ctx, query,
		snap.ID, snap.UserID, snap.Period, snap.MonthlyTarget,
		snap.EarnedMain, snap.EarnedKarma, snap.TasksCompleted,
		snap.League, snap.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: snapshot for user and period already exists", store.ErrDuplicate)
		}
		log.Error("failed to create period snapshot",
			slog.String("error", err.Error()),
			slog.String("user_id", snap.UserID.String()),
			slog.String("period", snap.Period))
		return err
	}

	log.Info("period snapshot created",
		slog.String("user_id", snap.UserID.String()),
		slog.String("period", snap.Period))
	return nil
}

// ExistsForPeriod implements store.SnapshotStore.ExistsForPeriod.
func (s *SnapshotStore) ExistsForPeriod(ctx context.Context, period string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM period_snapshots WHERE period = $1)`, period,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check period existence: %w", err)
	}
	return exists, nil
}

func (s *SnapshotStore) listByQuery(ctx context.Context, query string, args ...any) ([]*domain.PeriodSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var snaps []*domain.PeriodSnapshot
	for rows.Next() {
		var snap domain.PeriodSnapshot
		err := rows.Scan(
			&snap.ID, &snap.UserID, &snap.Period, &snap.MonthlyTarget,
			&snap.EarnedMain, &snap.EarnedKarma, &snap.TasksCompleted,
			&snap.League, &snap.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		snaps = append(snaps, &snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshot rows: %w", err)
	}
	return snaps, nil
}

// ListByUser implements store.SnapshotStore.ListByUser.
func (s *SnapshotStore) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.PeriodSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + ` FROM period_snapshots
		WHERE user_id = $1
		ORDER BY period DESC
	`
	args := []any{userID}
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	return s.listByQuery(ctx, query, args...)
}

// ListByPeriod implements store.SnapshotStore.ListByPeriod.
func (s *SnapshotStore) ListByPeriod(ctx context.Context, period string) ([]*domain.PeriodSnapshot, error) {
	return s.listByQuery(ctx, `
		SELECT `+snapshotColumns+` FROM period_snapshots
		WHERE period = $1
		ORDER BY user_id`, period)
}

// WithTx implements store.SnapshotStore.WithTx.
func (s *SnapshotStore) WithTx(tx *sql.Tx) store.SnapshotStore {
	return &SnapshotStore{db: tx, logger: s.logger}
}
