package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SemenBogdanov/dpms-system/internal/domain"
)

type shopFixture struct {
	svc           *ShopService
	users         *fakeUserStore
	shop          *fakeShopStore
	ledger        *fakeLedgerStore
	notifications *fakeNotificationStore
	now           time.Time
}

func newShopFixture(t *testing.T) *shopFixture {
	t.Helper()
	f := &shopFixture{
		users:         newFakeUserStore(),
		shop:          newFakeShopStore(),
		ledger:        newFakeLedgerStore(),
		notifications: newFakeNotificationStore(),
		now:           time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC),
	}
	notifier := NewStoreNotifier(f.notifications, slog.Default())
	svc, err := NewShopService(newTestDB(t), f.users, f.shop, f.ledger, notifier, slog.Default())
	require.NoError(t, err)
	f.svc = svc.WithClock(fixedClock(f.now))
	return f
}

func (f *shopFixture) item(cost string, maxPerMonth int, requiresApproval bool) *domain.ShopItem {
	item := &domain.ShopItem{
		ID:               uuid.New(),
		Name:             "Day off",
		CostQ:            decimal.RequireFromString(cost),
		Category:         "time",
		IsActive:         true,
		MaxPerMonth:      maxPerMonth,
		RequiresApproval: requiresApproval,
		CreatedAt:        f.now.Add(-30 * 24 * time.Hour),
	}
	f.shop.putItem(item)
	return item
}

func TestShopService_Purchase(t *testing.T) {
	ctx := context.Background()

	t.Run("purchase debits karma and auto-approves", func(t *testing.T) {
		f := newShopFixture(t)
		executor := testUser(t, f.users, domain.RoleExecutor, domain.LeagueB, 160)
		executor.WalletKarma = decimal.RequireFromString("20.0")
		f.users.put(executor)
		item := f.item("8.0", 0, false)

		purchase, err := f.svc.Purchase(ctx, actorFor(executor), item.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.PurchaseApproved, purchase.Status)
		assert.True(t, purchase.CostQ.Equal(item.CostQ))

		stored := f.users.get(executor.ID)
		assert.True(t, stored.WalletKarma.Equal(decimal.RequireFromString("12.0")), stored.WalletKarma.String())

		rows := f.ledger.userRows(executor.ID)
		require.Len(t, rows, 1)
		assert.Equal(t, domain.WalletKarma, rows[0].Wallet)
		assert.True(t, rows[0].Amount.Equal(decimal.RequireFromString("-8.0")))

		assert.Empty(t, f.notifications.byType(domain.NotifPurchasePending))
	})

	t.Run("insufficient karma", func(t *testing.T) {
		f := newShopFixture(t)
		executor := testUser(t, f.users, domain.RoleExecutor, domain.LeagueB, 160)
		executor.WalletKarma = decimal.RequireFromString("5.0")
		f.users.put(executor)
		item := f.item("8.0", 0, false)

		_, err := f.svc.Purchase(ctx, actorFor(executor), item.ID)
		assert.ErrorIs(t, err, ErrInsufficientKarma)
		assert.Empty(t, f.ledger.userRows(executor.ID))
	})

	t.Run("monthly cap", func(t *testing.T) {
		f := newShopFixture(t)
		executor := testUser(t, f.users, domain.RoleExecutor, domain.LeagueB, 160)
		executor.WalletKarma = decimal.RequireFromString("50.0")
		f.users.put(executor)
		item := f.item("8.0", 1, false)

		_, err := f.svc.Purchase(ctx, actorFor(executor), item.ID)
		require.NoError(t, err)

		_, err = f.svc.Purchase(ctx, actorFor(executor), item.ID)
		assert.ErrorIs(t, err, ErrPurchaseLimitReached)
	})

	t.Run("approval-gated item stays pending and pings managers", func(t *testing.T) {
		f := newShopFixture(t)
		lead := testUser(t, f.users, domain.RoleTeamlead, domain.LeagueA, 160)
		executor := testUser(t, f.users, domain.RoleExecutor, domain.LeagueB, 160)
		executor.WalletKarma = decimal.RequireFromString("20.0")
		f.users.put(executor)
		item := f.item("8.0", 0, true)

		purchase, err := f.svc.Purchase(ctx, actorFor(executor), item.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.PurchasePending, purchase.Status)

		// karma is spent even while the purchase awaits approval
		assert.True(t, f.users.get(executor.ID).WalletKarma.Equal(decimal.RequireFromString("12.0")))

		notifs := f.notifications.byType(domain.NotifPurchasePending)
		require.Len(t, notifs, 1)
		assert.Equal(t, lead.ID, notifs[0].UserID)
	})

	t.Run("inactive item", func(t *testing.T) {
		f := newShopFixture(t)
		executor := testUser(t, f.users, domain.RoleExecutor, domain.LeagueB, 160)
		executor.WalletKarma = decimal.RequireFromString("20.0")
		f.users.put(executor)
		item := f.item("8.0", 0, false)
		item.IsActive = false
		f.shop.putItem(item)

		_, err := f.svc.Purchase(ctx, actorFor(executor), item.ID)
		assert.ErrorIs(t, err, ErrItemInactive)
	})
}

func TestShopService_Approve(t *testing.T) {
	ctx := context.Background()

	pendingPurchase := func(t *testing.T, f *shopFixture, executor *domain.User) *domain.Purchase {
		t.Helper()
		executor.WalletKarma = decimal.RequireFromString("20.0")
		f.users.put(executor)
		item := f.item("8.0", 0, true)
		purchase, err := f.svc.Purchase(ctx, actorFor(executor), item.ID)
		require.NoError(t, err)
		return purchase
	}

	t.Run("manager approves a pending purchase", func(t *testing.T) {
		f := newShopFixture(t)
		lead := testUser(t, f.users, domain.RoleTeamlead, domain.LeagueA, 160)
		executor := testUser(t, f.users, domain.RoleExecutor, domain.LeagueB, 160)
		purchase := pendingPurchase(t, f, executor)

		approved, err := f.svc.Approve(ctx, actorFor(lead), purchase.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.PurchaseApproved, approved.Status)
		require.NotNil(t, approved.ApprovedBy)
		assert.Equal(t, lead.ID, *approved.ApprovedBy)
		require.NotNil(t, approved.ApprovedAt)

		notifs := f.notifications.byType(domain.NotifPurchaseApproved)
		require.Len(t, notifs, 1)
		assert.Equal(t, executor.ID, notifs[0].UserID)
	})

	t.Run("approving twice fails", func(t *testing.T) {
		f := newShopFixture(t)
		lead := testUser(t, f.users, domain.RoleTeamlead, domain.LeagueA, 160)
		executor := testUser(t, f.users, domain.RoleExecutor, domain.LeagueB, 160)
		purchase := pendingPurchase(t, f, executor)

		_, err := f.svc.Approve(ctx, actorFor(lead), purchase.ID)
		require.NoError(t, err)
		_, err = f.svc.Approve(ctx, actorFor(lead), purchase.ID)
		assert.ErrorIs(t, err, ErrPurchaseNotPending)
	})

	t.Run("executors may not approve", func(t *testing.T) {
		f := newShopFixture(t)
		executor := testUser(t, f.users, domain.RoleExecutor, domain.LeagueB, 160)
		purchase := pendingPurchase(t, f, executor)

		_, err := f.svc.Approve(ctx, actorFor(executor), purchase.ID)
		assert.ErrorIs(t, err, ErrNotManager)
	})
}
