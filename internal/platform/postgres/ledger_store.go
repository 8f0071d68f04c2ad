package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/SemenBogdanov/dpms-system/internal/domain"
	"github.com/SemenBogdanov/dpms-system/internal/platform/logger"
	"github.com/SemenBogdanov/dpms-system/internal/store"
)

// LedgerStore implements the store.LedgerStore interface using PostgreSQL.
// The q_transactions table is append-only; this type exposes no update or
// delete path.
type LedgerStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewLedgerStore creates a new PostgreSQL implementation of store.LedgerStore.
// If logger is nil, a default logger will be used.
func NewLedgerStore(db store.DBTX, log *slog.Logger) *LedgerStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &LedgerStore{
		db:     db,
		logger: log.With(slog.String("component", "ledger_store")),
	}
}

// Ensure LedgerStore implements store.LedgerStore interface
var _ store.LedgerStore = (*LedgerStore)(nil)

// Insert implements store.LedgerStore.Insert.
func (s *LedgerStore) Insert(ctx context.Context, tx *domain.QTransaction) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := tx.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO q_transactions (id, user_id, amount, wallet, reason, task_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		tx.ID, tx.UserID, tx.Amount, tx.Wallet, tx.Reason,
		uuidOrNil(tx.TaskID), tx.CreatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: referenced user or task does not exist", store.ErrInvalidEntity)
		}
		log.Error("failed to insert ledger transaction",
			slog.String("error", err.Error()),
			slog.String("user_id", tx.UserID.String()))
		return err
	}

	log.Info("ledger transaction recorded",
		slog.String("user_id", tx.UserID.String()),
		slog.String("wallet", string(tx.Wallet)),
		slog.String("amount", tx.Amount.String()),
		slog.String("reason", tx.Reason))
	return nil
}

// ListByUser implements store.LedgerStore.ListByUser.
func (s *LedgerStore) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.QTransaction, error) {
	query := `
		SELECT id, user_id, amount, wallet, reason, task_id, created_at
		FROM q_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	args := []any{userID}
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var txs []*domain.QTransaction
	for rows.Next() {
		var (
			t      domain.QTransaction
			taskID uuid.NullUUID
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &t.Wallet, &t.Reason, &taskID, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		t.TaskID = uuidPtr(taskID)
		txs = append(txs, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}
	return txs, nil
}

// SumByWallet implements store.LedgerStore.SumByWallet.
func (s *LedgerStore) SumByWallet(ctx context.Context, userID uuid.UUID, wallet domain.Wallet) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(sum(amount), 0)
		FROM q_transactions
		WHERE user_id = $1 AND wallet = $2`,
		userID, wallet,
	).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum transactions: %w", err)
	}
	return sum, nil
}

// WithTx implements store.LedgerStore.WithTx.
func (s *LedgerStore) WithTx(tx *sql.Tx) store.LedgerStore {
	return &LedgerStore{db: tx, logger: s.logger}
}
