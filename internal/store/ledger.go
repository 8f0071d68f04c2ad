package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/SemenBogdanov/dpms-system/internal/domain"
)

// LedgerStore defines the interface for the append-only Q transaction log.
// Rows are insert-only; there is deliberately no update or delete.
type LedgerStore interface {
	// Insert appends a transaction row to the ledger.
	Insert(ctx context.Context, tx *domain.QTransaction) error

	// ListByUser returns a user's transactions, newest first.
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.QTransaction, error)

	// SumByWallet returns the running sum of a user's transactions for one
	// wallet. The reconciliation invariant requires this to equal the
	// cached balance on the user row at all times.
	SumByWallet(ctx context.Context, userID uuid.UUID, wallet domain.Wallet) (decimal.Decimal, error)

	// WithTx returns a store instance bound to the given transaction.
	WithTx(tx *sql.Tx) LedgerStore
}
