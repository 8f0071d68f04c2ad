package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/SemenBogdanov/dpms-system/internal/domain"
	"github.com/SemenBogdanov/dpms-system/internal/domain/policy"
	"github.com/SemenBogdanov/dpms-system/internal/platform/logger"
	"github.com/SemenBogdanov/dpms-system/internal/store"
)

// RolloverService closes calendar months and evaluates league changes from
// the snapshot history. Rollover is admin-only and rejects duplicates: a
// period can be closed once, never silently re-closed.
type RolloverService struct {
	db        *sql.DB
	users     store.UserStore
	tasks     store.TaskStore
	ledger    store.LedgerStore
	snapshots store.SnapshotStore
	notifier  Notifier
	logger    *slog.Logger
	now       func() time.Time
}

// NewRolloverService creates a new RolloverService.
// It returns an error if any of the required dependencies are nil.
func NewRolloverService(
	db *sql.DB,
	users store.UserStore,
	tasks store.TaskStore,
	ledger store.LedgerStore,
	snapshots store.SnapshotStore,
	notifier Notifier,
	log *slog.Logger,
) (*RolloverService, error) {
	if db == nil {
		return nil, domain.NewValidationError("db", "cannot be nil", domain.ErrValidation)
	}
	if users == nil {
		return nil, domain.NewValidationError("users", "cannot be nil", domain.ErrValidation)
	}
	if tasks == nil {
		return nil, domain.NewValidationError("tasks", "cannot be nil", domain.ErrValidation)
	}
	if ledger == nil {
		return nil, domain.NewValidationError("ledger", "cannot be nil", domain.ErrValidation)
	}
	if snapshots == nil {
		return nil, domain.NewValidationError("snapshots", "cannot be nil", domain.ErrValidation)
	}
	if notifier == nil {
		return nil, domain.NewValidationError("notifier", "cannot be nil", domain.ErrValidation)
	}
	if log == nil {
		log = slog.Default()
	}
	return &RolloverService{
		db:        db,
		users:     users,
		tasks:     tasks,
		ledger:    ledger,
		snapshots: snapshots,
		notifier:  notifier,
		logger:    log.With(slog.String("component", "rollover_service")),
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// WithClock overrides the service clock. Intended for tests.
func (s *RolloverService) WithClock(now func() time.Time) *RolloverService {
	s.now = now
	return s
}

// periodBounds returns the [start, end) interval of a YYYY-MM period.
func periodBounds(period string) (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01", period)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %v", domain.ErrInvalidPeriod, err)
	}
	return start, start.AddDate(0, 1, 0), nil
}

// Close closes one calendar month: snapshots every active user, zeroes
// main wallets with explicit debits, burns half of each karma balance, and
// notifies everyone. The whole run is one transaction; a failure for any
// user rolls the period close back entirely.
func (s *RolloverService) Close(ctx context.Context, actor Actor, period string) error {
	if actor.Role != domain.RoleAdmin {
		return ErrNotAdmin
	}
	log := logger.FromContextOrDefault(ctx, s.logger)

	start, end, err := periodBounds(period)
	if err != nil {
		return err
	}

	var closedUsers []uuid.UUID
	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		users := s.users.WithTx(tx)
		tasks := s.tasks.WithTx(tx)
		ledger := s.ledger.WithTx(tx)
		snapshots := s.snapshots.WithTx(tx)

		exists, err := snapshots.ExistsForPeriod(ctx, period)
		if err != nil {
			return err
		}
		if exists {
			return ErrPeriodAlreadyClosed
		}

		active, err := users.ListActive(ctx)
		if err != nil {
			return err
		}

		for _, u := range active {
			user, err := users.GetForUpdate(ctx, u.ID)
			if err != nil {
				return err
			}

			completed, err := tasks.CountCompletedBetween(ctx, user.ID, start, end)
			if err != nil {
				return err
			}

			snap, err := domain.NewPeriodSnapshot(
				user.ID, period, user.MonthlyTarget,
				user.WalletMain, user.WalletKarma, completed, user.League,
			)
			if err != nil {
				return err
			}
			if err := snapshots.Create(ctx, snap); err != nil {
				return err
			}

			if user.WalletMain.IsPositive() {
				if err := debitWallet(ctx, users, ledger, user, domain.WalletMain,
					user.WalletMain, "Period close: main wallet reset "+period, nil); err != nil {
					return err
				}
			}
			burn := policy.KarmaBurn(user.WalletKarma)
			if burn.IsPositive() {
				if err := debitWallet(ctx, users, ledger, user, domain.WalletKarma,
					burn, "Period close: karma decay "+period, nil); err != nil {
					return err
				}
			}

			closedUsers = append(closedUsers, user.ID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, userID := range closedUsers {
		s.notifier.Notify(ctx, userID, domain.NotifRollover,
			"Period closed",
			fmt.Sprintf("The period %s was closed. Main wallet reset, half of karma carried over.", period),
			"/wallet")
	}

	log.Info("period closed",
		slog.String("period", period),
		slog.Int("users", len(closedUsers)))
	return nil
}

// currentPercent computes a user's live plan-completion percentage for the
// month in progress.
func currentPercent(user *domain.User) float64 {
	if user.MonthlyTarget <= 0 {
		return 100
	}
	return user.WalletMain.InexactFloat64() / float64(user.MonthlyTarget) * 100
}

// Evaluate returns the league-change evaluation for one user without
// applying it.
func (s *RolloverService) Evaluate(ctx context.Context, userID uuid.UUID) (*policy.LeagueEvaluation, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	closed, err := s.snapshots.ListByUser(ctx, userID, 3)
	if err != nil {
		return nil, err
	}
	ev := policy.EvaluateLeague(user.League, closed, currentPercent(user))
	return &ev, nil
}

// ApplyLeagueChanges evaluates every active user and applies the eligible
// promotions and demotions, notifying each affected user. Admin only.
// Returns the applied evaluations.
func (s *RolloverService) ApplyLeagueChanges(ctx context.Context, actor Actor) ([]policy.LeagueEvaluation, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, ErrNotAdmin
	}
	log := logger.FromContextOrDefault(ctx, s.logger)

	type change struct {
		userID uuid.UUID
		ev     policy.LeagueEvaluation
	}
	var applied []change

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		users := s.users.WithTx(tx)
		snapshots := s.snapshots.WithTx(tx)

		active, err := users.ListActive(ctx)
		if err != nil {
			return err
		}
		for _, u := range active {
			user, err := users.GetForUpdate(ctx, u.ID)
			if err != nil {
				return err
			}
			closed, err := snapshots.ListByUser(ctx, user.ID, 3)
			if err != nil {
				return err
			}
			ev := policy.EvaluateLeague(user.League, closed, currentPercent(user))
			if !ev.Eligible {
				continue
			}
			user.League = ev.SuggestedLeague
			if err := users.Update(ctx, user); err != nil {
				return err
			}
			applied = append(applied, change{userID: user.ID, ev: ev})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	evals := make([]policy.LeagueEvaluation, 0, len(applied))
	for _, c := range applied {
		evals = append(evals, c.ev)
		s.notifier.Notify(ctx, c.userID, domain.NotifLeagueChange,
			"League changed",
			fmt.Sprintf("Your league changed from %s to %s: %s.",
				c.ev.CurrentLeague, c.ev.SuggestedLeague, c.ev.Reason),
			"/profile")
		log.Info("league change applied",
			slog.String("user_id", c.userID.String()),
			slog.String("from", string(c.ev.CurrentLeague)),
			slog.String("to", string(c.ev.SuggestedLeague)))
	}
	return evals, nil
}

// History returns the snapshots of one closed period.
func (s *RolloverService) History(ctx context.Context, period string) ([]*domain.PeriodSnapshot, error) {
	return s.snapshots.ListByPeriod(ctx, period)
}

// UserHistory returns a user's own snapshots, most recent first.
func (s *RolloverService) UserHistory(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.PeriodSnapshot, error) {
	return s.snapshots.ListByUser(ctx, userID, limit)
}
