package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/SemenBogdanov/dpms-system/internal/domain"
	"github.com/SemenBogdanov/dpms-system/internal/domain/policy"
	"github.com/SemenBogdanov/dpms-system/internal/platform/logger"
	"github.com/SemenBogdanov/dpms-system/internal/store"
)

// WalletService owns every mutation of the two wallet balances. Balances
// change only through it, always together with a matching ledger row, so
// the cached balance stays equal to the per-wallet transaction sum.
type WalletService struct {
	db     *sql.DB
	users  store.UserStore
	ledger store.LedgerStore
	logger *slog.Logger
}

// NewWalletService creates a new WalletService.
// It returns an error if any of the required dependencies are nil.
func NewWalletService(db *sql.DB, users store.UserStore, ledger store.LedgerStore, log *slog.Logger) (*WalletService, error) {
	if db == nil {
		return nil, domain.NewValidationError("db", "cannot be nil", domain.ErrValidation)
	}
	if users == nil {
		return nil, domain.NewValidationError("users", "cannot be nil", domain.ErrValidation)
	}
	if ledger == nil {
		return nil, domain.NewValidationError("ledger", "cannot be nil", domain.ErrValidation)
	}
	if log == nil {
		log = slog.Default()
	}
	return &WalletService{
		db:     db,
		users:  users,
		ledger: ledger,
		logger: log.With(slog.String("component", "wallet_service")),
	}, nil
}

// creditWithSplit applies the main/karma split to an already-locked user
// row using tx-bound stores. A zero amount is a no-op with no ledger rows.
// Callers own the enclosing transaction.
func creditWithSplit(ctx context.Context, users store.UserStore, ledger store.LedgerStore, user *domain.User, amount decimal.Decimal, reason string, taskID *uuid.UUID) error {
	amount = policy.RoundQ(amount)
	if amount.IsZero() {
		return nil
	}
	if amount.IsNegative() {
		return fmt.Errorf("%w: credit amount must be positive", domain.ErrNegativeAmount)
	}

	split := policy.SplitCredit(user.WalletMain, user.MonthlyTarget, amount)

	if split.ToMain.IsPositive() {
		tx, err := domain.NewQTransaction(user.ID, split.ToMain, domain.WalletMain, reason, taskID)
		if err != nil {
			return err
		}
		if err := ledger.Insert(ctx, tx); err != nil {
			return fmt.Errorf("failed to record main credit: %w", err)
		}
		user.WalletMain = policy.RoundQ(user.WalletMain.Add(split.ToMain))
	}
	if split.ToKarma.IsPositive() {
		tx, err := domain.NewQTransaction(user.ID, split.ToKarma, domain.WalletKarma, reason, taskID)
		if err != nil {
			return err
		}
		if err := ledger.Insert(ctx, tx); err != nil {
			return fmt.Errorf("failed to record karma credit: %w", err)
		}
		user.WalletKarma = policy.RoundQ(user.WalletKarma.Add(split.ToKarma))
	}

	return users.Update(ctx, user)
}

// creditKarmaOnly credits the full amount to karma, bypassing the split.
// Used for guaranteed-bugfix compensation, which is unplanned rework and
// must not count toward the monthly plan.
func creditKarmaOnly(ctx context.Context, users store.UserStore, ledger store.LedgerStore, user *domain.User, amount decimal.Decimal, reason string, taskID *uuid.UUID) error {
	amount = policy.RoundQ(amount)
	if amount.IsZero() {
		return nil
	}
	if amount.IsNegative() {
		return fmt.Errorf("%w: credit amount must be positive", domain.ErrNegativeAmount)
	}

	tx, err := domain.NewQTransaction(user.ID, amount, domain.WalletKarma, reason, taskID)
	if err != nil {
		return err
	}
	if err := ledger.Insert(ctx, tx); err != nil {
		return fmt.Errorf("failed to record karma credit: %w", err)
	}
	user.WalletKarma = policy.RoundQ(user.WalletKarma.Add(amount))
	return users.Update(ctx, user)
}

// debitWallet records a negative ledger row and decrements the cached
// balance. Amount must be positive; the sign is applied here.
func debitWallet(ctx context.Context, users store.UserStore, ledger store.LedgerStore, user *domain.User, wallet domain.Wallet, amount decimal.Decimal, reason string, taskID *uuid.UUID) error {
	amount = policy.RoundQ(amount)
	if amount.IsZero() {
		return nil
	}
	if amount.IsNegative() {
		return fmt.Errorf("%w: debit amount must be positive", domain.ErrNegativeAmount)
	}

	tx, err := domain.NewQTransaction(user.ID, amount.Neg(), wallet, reason, taskID)
	if err != nil {
		return err
	}
	if err := ledger.Insert(ctx, tx); err != nil {
		return fmt.Errorf("failed to record debit: %w", err)
	}
	switch wallet {
	case domain.WalletMain:
		user.WalletMain = policy.RoundQ(user.WalletMain.Sub(amount))
	case domain.WalletKarma:
		user.WalletKarma = policy.RoundQ(user.WalletKarma.Sub(amount))
	}
	return users.Update(ctx, user)
}

// Credit applies a split credit to a user inside its own transaction,
// locking the user row first.
func (s *WalletService) Credit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, reason string, taskID *uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		users := s.users.WithTx(tx)
		ledger := s.ledger.WithTx(tx)

		user, err := users.GetForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		return creditWithSplit(ctx, users, ledger, user, amount, reason, taskID)
	})
	if err != nil {
		log.Error("wallet credit failed",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return err
	}
	return nil
}

// Balances returns a user's cached wallet balances.
func (s *WalletService) Balances(ctx context.Context, userID uuid.UUID) (main, karma decimal.Decimal, err error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return user.WalletMain, user.WalletKarma, nil
}

// History returns a user's ledger rows, newest first.
func (s *WalletService) History(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.QTransaction, error) {
	return s.ledger.ListByUser(ctx, userID, limit)
}

// ReconciliationReport describes one wallet whose cached balance has
// drifted from its ledger sum.
type ReconciliationReport struct {
	UserID uuid.UUID
	Wallet domain.Wallet
	Cached decimal.Decimal
	Ledger decimal.Decimal
}

// Reconcile verifies the cached-balance-equals-ledger-sum invariant for
// every active user and returns the mismatches. An empty result means the
// books are consistent.
func (s *WalletService) Reconcile(ctx context.Context) ([]ReconciliationReport, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	users, err := s.users.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	var drift []ReconciliationReport
	for _, user := range users {
		for _, check := range []struct {
			wallet domain.Wallet
			cached decimal.Decimal
		}{
			{domain.WalletMain, user.WalletMain},
			{domain.WalletKarma, user.WalletKarma},
		} {
			sum, err := s.ledger.SumByWallet(ctx, user.ID, check.wallet)
			if err != nil {
				return nil, err
			}
			if !sum.Equal(check.cached) {
				drift = append(drift, ReconciliationReport{
					UserID: user.ID,
					Wallet: check.wallet,
					Cached: check.cached,
					Ledger: sum,
				})
				log.Warn("wallet balance drift detected",
					slog.String("user_id", user.ID.String()),
					slog.String("wallet", string(check.wallet)),
					slog.String("cached", check.cached.String()),
					slog.String("ledger_sum", sum.String()))
			}
		}
	}
	return drift, nil
}
