package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrEmptyTransactionID = errors.New("transaction ID cannot be empty")
	ErrEmptyReason        = errors.New("transaction reason cannot be empty")
	ErrZeroAmount         = errors.New("transaction amount cannot be zero")
)

// Wallet designates which balance a transaction affects.
type Wallet string

const (
	WalletMain  Wallet = "main"
	WalletKarma Wallet = "karma"
)

// Valid reports whether w is one of the known wallets.
func (w Wallet) Valid() bool {
	return w == WalletMain || w == WalletKarma
}

// QTransaction is an append-only ledger row. Positive amounts are credits,
// negative amounts are debits. Rows are never updated or deleted once
// written; the wallet fields on User are a cache of the per-wallet running
// sums.
type QTransaction struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
	Wallet    Wallet          `json:"wallet"`
	Reason    string          `json:"reason"`
	TaskID    *uuid.UUID      `json:"task_id"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewQTransaction creates a ledger row. Returns an error if validation fails.
func NewQTransaction(userID uuid.UUID, amount decimal.Decimal, wallet Wallet, reason string, taskID *uuid.UUID) (*QTransaction, error) {
	tx := &QTransaction{
		ID:        uuid.New(),
		UserID:    userID,
		Amount:    amount,
		Wallet:    wallet,
		Reason:    reason,
		TaskID:    taskID,
		CreatedAt: time.Now().UTC(),
	}

	if err := tx.Validate(); err != nil {
		return nil, err
	}
	return tx, nil
}

// Validate checks if the QTransaction has valid data.
func (t *QTransaction) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTransactionID
	}
	if t.UserID == uuid.Nil {
		return ErrEmptyUserID
	}
	if !t.Wallet.Valid() {
		return ErrInvalidWallet
	}
	if t.Reason == "" {
		return ErrEmptyReason
	}
	if t.Amount.IsZero() {
		return ErrZeroAmount
	}
	return nil
}
