package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SemenBogdanov/dpms-system/internal/domain"
)

type focusFixture struct {
	svc           *FocusService
	users         *fakeUserStore
	tasks         *fakeTaskStore
	corrections   *fakeCorrectionStore
	notifications *fakeNotificationStore
	now           time.Time
}

func newFocusFixture(t *testing.T) *focusFixture {
	t.Helper()
	f := &focusFixture{
		users:         newFakeUserStore(),
		tasks:         newFakeTaskStore(),
		corrections:   newFakeCorrectionStore(),
		notifications: newFakeNotificationStore(),
		now:           time.Date(2025, 6, 10, 14, 0, 0, 0, time.UTC),
	}
	notifier := NewStoreNotifier(f.notifications, slog.Default())
	svc, err := NewFocusService(newTestDB(t), f.tasks, f.corrections, notifier, slog.Default())
	require.NoError(t, err)
	f.svc = svc.WithClock(fixedClock(f.now))
	return f
}

func (f *focusFixture) inProgressTask(t *testing.T, assignee *domain.User) *domain.Task {
	t.Helper()
	task := testQueuedTask(t, f.tasks, assignee.ID, "5.0", domain.LeagueC, domain.PriorityMedium, f.now.Add(-48*time.Hour))
	task.Status = domain.TaskStatusInProgress
	task.AssigneeID = &assignee.ID
	f.tasks.put(task)
	return task
}

func TestFocusService_Start(t *testing.T) {
	ctx := context.Background()

	t.Run("starting focus pauses the previous session", func(t *testing.T) {
		f := newFocusFixture(t)
		executor := testUser(t, f.users, domain.RoleExecutor, domain.LeagueB, 160)
		first := f.inProgressTask(t, executor)
		second := f.inProgressTask(t, executor)

		started := f.now.Add(-45 * time.Minute)
		first.FocusStartedAt = &started
		f.tasks.put(first)

		focused, err := f.svc.Start(ctx, actorFor(executor), second.ID)
		require.NoError(t, err)
		require.NotNil(t, focused.FocusStartedAt)
		assert.Equal(t, f.now, *focused.FocusStartedAt)

		prev := f.tasks.get(first.ID)
		assert.Nil(t, prev.FocusStartedAt)
		assert.Equal(t, int64(2700), prev.ActiveSeconds)
	})

	t.Run("starting an already focused task is a no-op", func(t *testing.T) {
		f := newFocusFixture(t)
		executor := testUser(t, f.users, domain.RoleExecutor, domain.LeagueB, 160)
		task := f.inProgressTask(t, executor)
		started := f.now.Add(-10 * time.Minute)
		task.FocusStartedAt = &started
		f.tasks.put(task)

		focused, err := f.svc.Start(ctx, actorFor(executor), task.ID)
		require.NoError(t, err)
		assert.Equal(t, started, *focused.FocusStartedAt)
		assert.Zero(t, focused.ActiveSeconds)
	})

	t.Run("only in_progress tasks can be focused", func(t *testing.T) {
		f := newFocusFixture(t)
		executor := testUser(t, f.users, domain.RoleExecutor, domain.LeagueB, 160)
		task := testQueuedTask(t, f.tasks, executor.ID, "5.0", domain.LeagueC, domain.PriorityMedium, f.now.Add(-48*time.Hour))

		_, err := f.svc.Start(ctx, actorFor(executor), task.ID)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("only the assignee may focus", func(t *testing.T) {
		f := newFocusFixture(t)
		executor := testUser(t, f.users, domain.RoleExecutor, domain.LeagueB, 160)
		other := testUser(t, f.users, domain.RoleExecutor, domain.LeagueB, 160)
		task := f.inProgressTask(t, executor)

		_, err := f.svc.Start(ctx, actorFor(other), task.ID)
		assert.ErrorIs(t, err, ErrNotAssignee)
	})
}

func TestFocusService_Pause(t *testing.T) {
	ctx := context.Background()

	t.Run("pause folds elapsed time", func(t *testing.T) {
		f := newFocusFixture(t)
		executor := testUser(t, f.users, domain.RoleExecutor, domain.LeagueB, 160)
		task := f.inProgressTask(t, executor)
		task.ActiveSeconds = 600
		started := f.now.Add(-20 * time.Minute)
		task.FocusStartedAt = &started
		f.tasks.put(task)

		paused, err := f.svc.Pause(ctx, actorFor(executor), task.ID)
		require.NoError(t, err)
		assert.Nil(t, paused.FocusStartedAt)
		assert.Equal(t, int64(1800), paused.ActiveSeconds)
	})

	t.Run("pausing an unfocused task is an error", func(t *testing.T) {
		f := newFocusFixture(t)
		executor := testUser(t, f.users, domain.RoleExecutor, domain.LeagueB, 160)
		task := f.inProgressTask(t, executor)

		_, err := f.svc.Pause(ctx, actorFor(executor), task.ID)
		assert.ErrorIs(t, err, ErrNotFocused)
	})
}

func TestFocusService_AutoPauseSweep(t *testing.T) {
	ctx := context.Background()
	f := newFocusFixture(t)
	executor := testUser(t, f.users, domain.RoleExecutor, domain.LeagueB, 160)

	stale := f.inProgressTask(t, executor)
	staleStart := f.now.Add(-6 * time.Hour)
	stale.FocusStartedAt = &staleStart
	f.tasks.put(stale)

	fresh := f.inProgressTask(t, executor)
	freshStart := f.now.Add(-time.Hour)
	fresh.FocusStartedAt = &freshStart
	f.tasks.put(fresh)

	count, err := f.svc.AutoPauseSweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// six hours of wall time count as the four-hour cap
	stored := f.tasks.get(stale.ID)
	assert.Nil(t, stored.FocusStartedAt)
	assert.Equal(t, int64(4*3600), stored.ActiveSeconds)

	untouched := f.tasks.get(fresh.ID)
	assert.NotNil(t, untouched.FocusStartedAt)

	notifs := f.notifications.byType(domain.NotifFocusAutoPaused)
	require.Len(t, notifs, 1)
	assert.Equal(t, executor.ID, notifs[0].UserID)

	t.Run("second sweep finds nothing", func(t *testing.T) {
		count, err := f.svc.AutoPauseSweep(ctx)
		require.NoError(t, err)
		assert.Zero(t, count)
	})
}

func TestFocusService_CorrectActiveTime(t *testing.T) {
	ctx := context.Background()

	t.Run("correction writes an audit row", func(t *testing.T) {
		f := newFocusFixture(t)
		executor := testUser(t, f.users, domain.RoleExecutor, domain.LeagueB, 160)
		task := f.inProgressTask(t, executor)
		task.ActiveSeconds = 7200
		f.tasks.put(task)

		corrected, err := f.svc.CorrectActiveTime(ctx, actorFor(executor), task.ID, 5400, "forgot to pause over lunch")
		require.NoError(t, err)
		assert.Equal(t, int64(5400), corrected.ActiveSeconds)

		rows, err := f.svc.Corrections(ctx, task.ID)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, int64(7200), rows[0].OldSeconds)
		assert.Equal(t, int64(5400), rows[0].NewSeconds)
		assert.Equal(t, executor.ID, rows[0].CorrectorID)
	})

	t.Run("mid-focus correction restarts the stopwatch", func(t *testing.T) {
		f := newFocusFixture(t)
		executor := testUser(t, f.users, domain.RoleExecutor, domain.LeagueB, 160)
		task := f.inProgressTask(t, executor)
		started := f.now.Add(-time.Hour)
		task.FocusStartedAt = &started
		f.tasks.put(task)

		corrected, err := f.svc.CorrectActiveTime(ctx, actorFor(executor), task.ID, 100, "double-counted setup")
		require.NoError(t, err)
		require.NotNil(t, corrected.FocusStartedAt)
		assert.Equal(t, f.now, *corrected.FocusStartedAt)
		assert.Equal(t, int64(100), corrected.ActiveSeconds)
	})

	t.Run("managers may correct other people's tasks", func(t *testing.T) {
		f := newFocusFixture(t)
		executor := testUser(t, f.users, domain.RoleExecutor, domain.LeagueB, 160)
		lead := testUser(t, f.users, domain.RoleTeamlead, domain.LeagueA, 160)
		task := f.inProgressTask(t, executor)

		_, err := f.svc.CorrectActiveTime(ctx, actorFor(lead), task.ID, 300, "reported offline work")
		require.NoError(t, err)
	})

	t.Run("strangers may not", func(t *testing.T) {
		f := newFocusFixture(t)
		executor := testUser(t, f.users, domain.RoleExecutor, domain.LeagueB, 160)
		other := testUser(t, f.users, domain.RoleExecutor, domain.LeagueB, 160)
		task := f.inProgressTask(t, executor)

		_, err := f.svc.CorrectActiveTime(ctx, actorFor(other), task.ID, 300, "nope")
		assert.ErrorIs(t, err, ErrNotAssignee)
	})
}
