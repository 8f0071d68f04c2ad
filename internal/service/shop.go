package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/SemenBogdanov/dpms-system/internal/domain"
	"github.com/SemenBogdanov/dpms-system/internal/platform/logger"
	"github.com/SemenBogdanov/dpms-system/internal/store"
)

// ShopService sells perks for karma. A purchase debits karma immediately;
// items marked requires_approval stay pending until a manager confirms,
// but the karma is spent either way (cancellation does not exist).
type ShopService struct {
	db       *sql.DB
	users    store.UserStore
	shop     store.ShopStore
	ledger   store.LedgerStore
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewShopService creates a new ShopService.
// It returns an error if any of the required dependencies are nil.
func NewShopService(
	db *sql.DB,
	users store.UserStore,
	shop store.ShopStore,
	ledger store.LedgerStore,
	notifier Notifier,
	log *slog.Logger,
) (*ShopService, error) {
	if db == nil {
		return nil, domain.NewValidationError("db", "cannot be nil", domain.ErrValidation)
	}
	if users == nil {
		return nil, domain.NewValidationError("users", "cannot be nil", domain.ErrValidation)
	}
	if shop == nil {
		return nil, domain.NewValidationError("shop", "cannot be nil", domain.ErrValidation)
	}
	if ledger == nil {
		return nil, domain.NewValidationError("ledger", "cannot be nil", domain.ErrValidation)
	}
	if notifier == nil {
		return nil, domain.NewValidationError("notifier", "cannot be nil", domain.ErrValidation)
	}
	if log == nil {
		log = slog.Default()
	}
	return &ShopService{
		db:       db,
		users:    users,
		shop:     shop,
		ledger:   ledger,
		notifier: notifier,
		logger:   log.With(slog.String("component", "shop_service")),
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// WithClock overrides the service clock. Intended for tests.
func (s *ShopService) WithClock(now func() time.Time) *ShopService {
	s.now = now
	return s
}

// ListItems returns the purchasable items, cheapest first.
func (s *ShopService) ListItems(ctx context.Context) ([]*domain.ShopItem, error) {
	return s.shop.ListActiveItems(ctx)
}

// Purchase redeems an item for the actor. The karma debit, the monthly
// cap check and the purchase row all happen under the user's row lock.
func (s *ShopService) Purchase(ctx context.Context, actor Actor, itemID uuid.UUID) (*domain.Purchase, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	now := s.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	var (
		purchase *domain.Purchase
		item     *domain.ShopItem
	)
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		users := s.users.WithTx(tx)
		shop := s.shop.WithTx(tx)
		ledger := s.ledger.WithTx(tx)

		var err error
		item, err = shop.GetItem(ctx, itemID)
		if err != nil {
			return err
		}
		if !item.IsActive {
			return ErrItemInactive
		}

		user, err := users.GetForUpdate(ctx, actor.ID)
		if err != nil {
			return err
		}
		if user.WalletKarma.LessThan(item.CostQ) {
			return ErrInsufficientKarma
		}

		if item.MaxPerMonth > 0 {
			count, err := shop.CountPurchasesSince(ctx, user.ID, item.ID, monthStart)
			if err != nil {
				return err
			}
			if count >= item.MaxPerMonth {
				return ErrPurchaseLimitReached
			}
		}

		status := domain.PurchaseApproved
		if item.RequiresApproval {
			status = domain.PurchasePending
		}
		purchase, err = domain.NewPurchase(user.ID, item.ID, item.CostQ, status)
		if err != nil {
			return err
		}
		if err := shop.CreatePurchase(ctx, purchase); err != nil {
			return err
		}

		return debitWallet(ctx, users, ledger, user, domain.WalletKarma,
			item.CostQ, fmt.Sprintf("Shop purchase: %s", item.Name), nil)
	})
	if err != nil {
		return nil, err
	}

	if purchase.Status == domain.PurchasePending {
		s.notifyManagers(ctx, domain.NotifPurchasePending,
			"Purchase awaiting approval",
			fmt.Sprintf("A purchase of %q needs approval.", item.Name),
			"/shop/purchases/"+purchase.ID.String())
	}

	log.Info("purchase created",
		slog.String("purchase_id", purchase.ID.String()),
		slog.String("user_id", actor.ID.String()),
		slog.String("status", string(purchase.Status)))
	return purchase, nil
}

// Approve confirms a pending purchase. Manager only; the karma was already
// spent at purchase time, approval only acknowledges fulfilment.
func (s *ShopService) Approve(ctx context.Context, actor Actor, purchaseID uuid.UUID) (*domain.Purchase, error) {
	if !actor.Role.IsManager() {
		return nil, ErrNotManager
	}
	now := s.now()

	var purchase *domain.Purchase
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		shop := s.shop.WithTx(tx)

		var err error
		purchase, err = shop.GetPurchase(ctx, purchaseID)
		if err != nil {
			return err
		}
		if purchase.Status != domain.PurchasePending {
			return ErrPurchaseNotPending
		}
		purchase.Status = domain.PurchaseApproved
		purchase.ApprovedBy = &actor.ID
		purchase.ApprovedAt = &now
		return shop.UpdatePurchase(ctx, purchase)
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, purchase.UserID, domain.NotifPurchaseApproved,
		"Purchase approved",
		"Your purchase was approved.",
		"/shop/purchases/"+purchase.ID.String())
	return purchase, nil
}

// History returns the actor's purchases, newest first.
func (s *ShopService) History(ctx context.Context, actor Actor) ([]*domain.Purchase, error) {
	return s.shop.ListPurchasesByUser(ctx, actor.ID)
}

func (s *ShopService) notifyManagers(ctx context.Context, notifType, title, message, link string) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	managers, err := s.users.ListManagers(ctx)
	if err != nil {
		log.Warn("failed to list managers for notification",
			slog.String("error", err.Error()),
			slog.String("type", notifType))
		return
	}
	for _, m := range managers {
		s.notifier.Notify(ctx, m.ID, notifType, title, message, link)
	}
}
