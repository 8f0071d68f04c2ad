package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SemenBogdanov/dpms-system/internal/domain"
)

type rolloverFixture struct {
	svc           *RolloverService
	users         *fakeUserStore
	tasks         *fakeTaskStore
	ledger        *fakeLedgerStore
	snapshots     *fakeSnapshotStore
	notifications *fakeNotificationStore
	now           time.Time
}

func newRolloverFixture(t *testing.T) *rolloverFixture {
	t.Helper()
	f := &rolloverFixture{
		users:         newFakeUserStore(),
		tasks:         newFakeTaskStore(),
		ledger:        newFakeLedgerStore(),
		snapshots:     newFakeSnapshotStore(),
		notifications: newFakeNotificationStore(),
		now:           time.Date(2025, 7, 1, 3, 0, 0, 0, time.UTC),
	}
	notifier := NewStoreNotifier(f.notifications, slog.Default())
	svc, err := NewRolloverService(newTestDB(t), f.users, f.tasks, f.ledger, f.snapshots, notifier, slog.Default())
	require.NoError(t, err)
	f.svc = svc.WithClock(fixedClock(f.now))
	return f
}

func (f *rolloverFixture) snapshotFor(t *testing.T, user *domain.User, period string, target int, earnedMain string) {
	t.Helper()
	snap, err := domain.NewPeriodSnapshot(
		user.ID, period, target,
		decimal.RequireFromString(earnedMain), decimal.Zero, 12, user.League,
	)
	require.NoError(t, err)
	require.NoError(t, f.snapshots.Create(context.Background(), snap))
}

func TestRolloverService_Close(t *testing.T) {
	ctx := context.Background()

	t.Run("close resets main and burns half of karma", func(t *testing.T) {
		f := newRolloverFixture(t)
		admin := testUser(t, f.users, domain.RoleAdmin, domain.LeagueA, 0)
		executor := testUser(t, f.users, domain.RoleExecutor, domain.LeagueB, 40)
		executor.WalletMain = decimal.RequireFromString("37.5")
		executor.WalletKarma = decimal.RequireFromString("12.0")
		f.users.put(executor)

		// two tasks validated inside June, one after the boundary
		for _, validated := range []time.Time{
			time.Date(2025, 6, 5, 10, 0, 0, 0, time.UTC),
			time.Date(2025, 6, 28, 16, 0, 0, 0, time.UTC),
			time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		} {
			task := testQueuedTask(t, f.tasks, executor.ID, "5.0", domain.LeagueC, domain.PriorityMedium, validated.Add(-72*time.Hour))
			task.Status = domain.TaskStatusDone
			task.AssigneeID = &executor.ID
			v := validated
			task.ValidatedAt = &v
			f.tasks.put(task)
		}

		require.NoError(t, f.svc.Close(ctx, actorFor(admin), "2025-06"))

		stored := f.users.get(executor.ID)
		assert.True(t, stored.WalletMain.IsZero(), stored.WalletMain.String())
		assert.True(t, stored.WalletKarma.Equal(decimal.RequireFromString("6.0")), stored.WalletKarma.String())

		rows := f.ledger.userRows(executor.ID)
		require.Len(t, rows, 2)
		assert.Equal(t, domain.WalletMain, rows[0].Wallet)
		assert.True(t, rows[0].Amount.Equal(decimal.RequireFromString("-37.5")))
		assert.Equal(t, domain.WalletKarma, rows[1].Wallet)
		assert.True(t, rows[1].Amount.Equal(decimal.RequireFromString("-6.0")))

		snaps, err := f.snapshots.ListByPeriod(ctx, "2025-06")
		require.NoError(t, err)
		var executorSnap *domain.PeriodSnapshot
		for _, s := range snaps {
			if s.UserID == executor.ID {
				executorSnap = s
			}
		}
		require.NotNil(t, executorSnap)
		assert.True(t, executorSnap.EarnedMain.Equal(decimal.RequireFromString("37.5")))
		assert.True(t, executorSnap.EarnedKarma.Equal(decimal.RequireFromString("12.0")))
		assert.Equal(t, 2, executorSnap.TasksCompleted)
		assert.Equal(t, 40, executorSnap.MonthlyTarget)
		assert.Equal(t, domain.LeagueB, executorSnap.League)

		notifs := f.notifications.byType(domain.NotifRollover)
		assert.Len(t, notifs, 2) // admin and executor are both active
	})

	t.Run("closing the same period twice is rejected", func(t *testing.T) {
		f := newRolloverFixture(t)
		admin := testUser(t, f.users, domain.RoleAdmin, domain.LeagueA, 0)

		require.NoError(t, f.svc.Close(ctx, actorFor(admin), "2025-06"))
		err := f.svc.Close(ctx, actorFor(admin), "2025-06")
		assert.ErrorIs(t, err, ErrPeriodAlreadyClosed)
	})

	t.Run("only admins may close", func(t *testing.T) {
		f := newRolloverFixture(t)
		lead := testUser(t, f.users, domain.RoleTeamlead, domain.LeagueA, 160)

		err := f.svc.Close(ctx, actorFor(lead), "2025-06")
		assert.ErrorIs(t, err, ErrNotAdmin)
	})

	t.Run("malformed period", func(t *testing.T) {
		f := newRolloverFixture(t)
		admin := testUser(t, f.users, domain.RoleAdmin, domain.LeagueA, 0)

		err := f.svc.Close(ctx, actorFor(admin), "June 2025")
		assert.ErrorIs(t, err, domain.ErrInvalidPeriod)
	})
}

func TestRolloverService_Evaluate(t *testing.T) {
	ctx := context.Background()
	f := newRolloverFixture(t)

	executor := testUser(t, f.users, domain.RoleExecutor, domain.LeagueC, 40)
	executor.WalletMain = decimal.RequireFromString("38.0") // 95% live
	f.users.put(executor)
	f.snapshotFor(t, executor, "2025-05", 40, "38.0")
	f.snapshotFor(t, executor, "2025-06", 40, "37.0")

	ev, err := f.svc.Evaluate(ctx, executor.ID)
	require.NoError(t, err)
	assert.True(t, ev.Eligible)
	assert.Equal(t, domain.LeagueC, ev.CurrentLeague)
	assert.Equal(t, domain.LeagueB, ev.SuggestedLeague)
}

func TestRolloverService_ApplyLeagueChanges(t *testing.T) {
	ctx := context.Background()
	f := newRolloverFixture(t)
	admin := testUser(t, f.users, domain.RoleAdmin, domain.LeagueA, 0)

	promotable := testUser(t, f.users, domain.RoleExecutor, domain.LeagueC, 40)
	promotable.WalletMain = decimal.RequireFromString("38.0")
	f.users.put(promotable)
	f.snapshotFor(t, promotable, "2025-05", 40, "38.0")
	f.snapshotFor(t, promotable, "2025-06", 40, "37.0")

	steady := testUser(t, f.users, domain.RoleExecutor, domain.LeagueB, 40)
	steady.WalletMain = decimal.RequireFromString("30.0")
	f.users.put(steady)
	f.snapshotFor(t, steady, "2025-05", 40, "30.0")
	f.snapshotFor(t, steady, "2025-06", 40, "32.0")

	t.Run("admin only", func(t *testing.T) {
		_, err := f.svc.ApplyLeagueChanges(ctx, actorFor(promotable))
		assert.ErrorIs(t, err, ErrNotAdmin)
	})

	t.Run("eligible changes are applied and announced", func(t *testing.T) {
		evals, err := f.svc.ApplyLeagueChanges(ctx, actorFor(admin))
		require.NoError(t, err)
		require.Len(t, evals, 1)
		assert.Equal(t, domain.LeagueB, evals[0].SuggestedLeague)

		assert.Equal(t, domain.LeagueB, f.users.get(promotable.ID).League)
		assert.Equal(t, domain.LeagueB, f.users.get(steady.ID).League)

		notifs := f.notifications.byType(domain.NotifLeagueChange)
		require.Len(t, notifs, 1)
		assert.Equal(t, promotable.ID, notifs[0].UserID)
	})
}
