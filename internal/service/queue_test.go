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

type queueFixture struct {
	svc   *QueueService
	users *fakeUserStore
	tasks *fakeTaskStore
	now   time.Time
}

func newQueueFixture(t *testing.T) *queueFixture {
	t.Helper()
	f := &queueFixture{
		users: newFakeUserStore(),
		tasks: newFakeTaskStore(),
		now:   time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC),
	}
	svc, err := NewQueueService(f.tasks, f.users, slog.Default())
	require.NoError(t, err)
	f.svc = svc.WithClock(fixedClock(f.now))
	return f
}

func TestQueueService_View(t *testing.T) {
	ctx := context.Background()

	t.Run("ordering and annotations", func(t *testing.T) {
		f := newQueueFixture(t)
		executor := testUser(t, f.users, domain.RoleExecutor, domain.LeagueB, 160)

		low := testQueuedTask(t, f.tasks, executor.ID, "5.0", domain.LeagueC, domain.PriorityLow, f.now.Add(-80*time.Hour))
		highOld := testQueuedTask(t, f.tasks, executor.ID, "5.0", domain.LeagueC, domain.PriorityHigh, f.now.Add(-30*time.Hour))
		highNew := testQueuedTask(t, f.tasks, executor.ID, "5.0", domain.LeagueC, domain.PriorityHigh, f.now.Add(-2*time.Hour))
		gated := testQueuedTask(t, f.tasks, executor.ID, "5.0", domain.LeagueA, domain.PriorityCritical, f.now.Add(-10*time.Hour))

		entries, err := f.svc.View(ctx, actorFor(executor))
		require.NoError(t, err)
		require.Len(t, entries, 4)

		// priority descending, oldest first within a tier
		assert.Equal(t, gated.ID, entries[0].Task.ID)
		assert.Equal(t, highOld.ID, entries[1].Task.ID)
		assert.Equal(t, highNew.ID, entries[2].Task.ID)
		assert.Equal(t, low.ID, entries[3].Task.ID)

		assert.True(t, entries[0].Locked)
		assert.Equal(t, "requires league A", entries[0].LockReason)
		assert.False(t, entries[0].CanPull)
		assert.False(t, entries[0].Recommended)

		// recommendation falls back to the best tier the actor can pull
		assert.True(t, entries[1].CanPull)
		assert.True(t, entries[1].Recommended)
		assert.True(t, entries[2].Recommended)
		assert.True(t, entries[3].CanPull)
		assert.False(t, entries[3].Recommended)

		assert.InDelta(t, 30.0, entries[1].HoursInQueue, 0.001)
		assert.False(t, entries[0].CanAssign) // executors never force-assign
	})

	t.Run("WIP limit locks everything pullable", func(t *testing.T) {
		f := newQueueFixture(t)
		executor := testUser(t, f.users, domain.RoleExecutor, domain.LeagueB, 160)
		for i := 0; i < executor.WIPLimit; i++ {
			held := testQueuedTask(t, f.tasks, executor.ID, "5.0", domain.LeagueC, domain.PriorityMedium, f.now.Add(-48*time.Hour))
			held.Status = domain.TaskStatusInProgress
			held.AssigneeID = &executor.ID
			f.tasks.put(held)
		}
		testQueuedTask(t, f.tasks, executor.ID, "5.0", domain.LeagueC, domain.PriorityMedium, f.now.Add(-48*time.Hour))

		entries, err := f.svc.View(ctx, actorFor(executor))
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.False(t, entries[0].CanPull)
		assert.Equal(t, "work-in-progress limit reached", entries[0].LockReason)
		assert.False(t, entries[0].Recommended)
	})

	t.Run("managers see assignability on aged tasks", func(t *testing.T) {
		f := newQueueFixture(t)
		lead := testUser(t, f.users, domain.RoleTeamlead, domain.LeagueA, 160)

		aged := testQueuedTask(t, f.tasks, lead.ID, "5.0", domain.LeagueC, domain.PriorityMedium, f.now.Add(-25*time.Hour))
		fresh := testQueuedTask(t, f.tasks, lead.ID, "5.0", domain.LeagueC, domain.PriorityMedium, f.now.Add(-2*time.Hour))

		entries, err := f.svc.View(ctx, actorFor(lead))
		require.NoError(t, err)
		require.Len(t, entries, 2)

		byID := map[string]QueueEntry{}
		for _, e := range entries {
			byID[e.Task.ID.String()] = e
		}
		assert.True(t, byID[aged.ID.String()].CanAssign)
		assert.False(t, byID[fresh.ID.String()].CanAssign)
	})
}
