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

// foldFocus stops a task's focus stopwatch, folding the elapsed time into
// active_seconds and clearing the timestamp. Elapsed time is clamped at
// zero from below and, when limit > 0, at limit from above. A task with no
// active focus is left untouched.
func foldFocus(task *domain.Task, now time.Time, limit time.Duration) {
	if task.FocusStartedAt == nil {
		return
	}
	elapsed := now.Sub(*task.FocusStartedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	if limit > 0 && elapsed > limit {
		elapsed = limit
	}
	task.ActiveSeconds += int64(elapsed.Seconds())
	task.FocusStartedAt = nil
}

// FocusService is the per-task stopwatch. Its one invariant: a user has at
// most one task with an active focus at any instant. Starting focus on a
// second task pauses the first implicitly instead of erroring.
type FocusService struct {
	db          *sql.DB
	tasks       store.TaskStore
	corrections store.CorrectionStore
	notifier    Notifier
	logger      *slog.Logger
	now         func() time.Time
}

// NewFocusService creates a new FocusService.
// It returns an error if any of the required dependencies are nil.
func NewFocusService(
	db *sql.DB,
	tasks store.TaskStore,
	corrections store.CorrectionStore,
	notifier Notifier,
	log *slog.Logger,
) (*FocusService, error) {
	if db == nil {
		return nil, domain.NewValidationError("db", "cannot be nil", domain.ErrValidation)
	}
	if tasks == nil {
		return nil, domain.NewValidationError("tasks", "cannot be nil", domain.ErrValidation)
	}
	if corrections == nil {
		return nil, domain.NewValidationError("corrections", "cannot be nil", domain.ErrValidation)
	}
	if notifier == nil {
		return nil, domain.NewValidationError("notifier", "cannot be nil", domain.ErrValidation)
	}
	if log == nil {
		log = slog.Default()
	}
	return &FocusService{
		db:          db,
		tasks:       tasks,
		corrections: corrections,
		notifier:    notifier,
		logger:      log.With(slog.String("component", "focus_service")),
		now:         func() time.Time { return time.Now().UTC() },
	}, nil
}

// WithClock overrides the service clock. Intended for tests.
func (s *FocusService) WithClock(now func() time.Time) *FocusService {
	s.now = now
	return s
}

// Start begins focus on a task the actor holds in_progress. Any other
// focused task of the same user is paused first.
func (s *FocusService) Start(ctx context.Context, actor Actor, taskID uuid.UUID) (*domain.Task, error) {
	now := s.now()

	var task *domain.Task
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		tasks := s.tasks.WithTx(tx)

		var err error
		task, err = tasks.GetForUpdate(ctx, taskID)
		if err != nil {
			return err
		}
		if task.Status != domain.TaskStatusInProgress {
			return ErrInvalidTransition
		}
		if task.AssigneeID == nil || *task.AssigneeID != actor.ID {
			return ErrNotAssignee
		}
		if task.InFocus() {
			return nil
		}

		focused, err := tasks.GetFocused(ctx, actor.ID)
		if err != nil {
			return err
		}
		if focused != nil && focused.ID != task.ID {
			foldFocus(focused, now, 0)
			if err := tasks.Update(ctx, focused); err != nil {
				return err
			}
		}

		task.FocusStartedAt = &now
		if task.StartedAt == nil {
			task.StartedAt = &now
		}
		return tasks.Update(ctx, task)
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// Pause stops the stopwatch on a focused task. Pausing a task that is not
// focused is an error; pausing someone else's task is forbidden.
func (s *FocusService) Pause(ctx context.Context, actor Actor, taskID uuid.UUID) (*domain.Task, error) {
	now := s.now()

	var task *domain.Task
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		tasks := s.tasks.WithTx(tx)

		var err error
		task, err = tasks.GetForUpdate(ctx, taskID)
		if err != nil {
			return err
		}
		if task.AssigneeID == nil || *task.AssigneeID != actor.ID {
			return ErrNotAssignee
		}
		if !task.InFocus() {
			return ErrNotFocused
		}
		foldFocus(task, now, 0)
		return tasks.Update(ctx, task)
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// AutoPauseSweep force-pauses every focus session running longer than the
// limit, clamping the counted time to the limit, and notifies the
// assignee. It is idempotent and safe to invoke on any dashboard read.
// Returns how many tasks were paused.
func (s *FocusService) AutoPauseSweep(ctx context.Context) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	now := s.now()
	cutoff := now.Add(-policy.FocusAutoPauseAfter)

	var paused []*domain.Task
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		tasks := s.tasks.WithTx(tx)

		stale, err := tasks.ListFocusedBefore(ctx, cutoff)
		if err != nil {
			return err
		}
		for _, task := range stale {
			foldFocus(task, now, policy.FocusAutoPauseAfter)
			if err := tasks.Update(ctx, task); err != nil {
				return err
			}
			paused = append(paused, task)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, task := range paused {
		if task.AssigneeID == nil {
			continue
		}
		s.notifier.Notify(ctx, *task.AssigneeID, domain.NotifFocusAutoPaused,
			"Focus auto-paused",
			fmt.Sprintf("Focus on %q ran over %d hours and was paused automatically.",
				task.Title, int(policy.FocusAutoPauseAfter.Hours())),
			"/tasks/"+task.ID.String())
	}

	if len(paused) > 0 {
		log.Info("auto-paused stale focus sessions", slog.Int("count", len(paused)))
	}
	return len(paused), nil
}

// CorrectActiveTime overwrites a task's accumulated active seconds with an
// audit row. Allowed for the assignee and for managers; a reason is
// mandatory. A task corrected mid-focus keeps focusing, with its stopwatch
// restarted so already-counted time is not counted twice.
func (s *FocusService) CorrectActiveTime(ctx context.Context, actor Actor, taskID uuid.UUID, newSeconds int64, reason string) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	now := s.now()

	var task *domain.Task
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		tasks := s.tasks.WithTx(tx)
		corrections := s.corrections.WithTx(tx)

		var err error
		task, err = tasks.GetForUpdate(ctx, taskID)
		if err != nil {
			return err
		}
		isAssignee := task.AssigneeID != nil && *task.AssigneeID == actor.ID
		if !isAssignee && !actor.Role.IsManager() {
			return ErrNotAssignee
		}

		correction, err := domain.NewTimeCorrection(task.ID, actor.ID, task.ActiveSeconds, newSeconds, reason)
		if err != nil {
			return err
		}
		if err := corrections.Create(ctx, correction); err != nil {
			return err
		}

		task.ActiveSeconds = newSeconds
		if task.InFocus() {
			task.FocusStartedAt = &now
		}
		return tasks.Update(ctx, task)
	})
	if err != nil {
		return nil, err
	}

	log.Info("active time corrected",
		slog.String("task_id", task.ID.String()),
		slog.Int64("new_seconds", newSeconds),
		slog.String("corrector_id", actor.ID.String()))
	return task, nil
}

// Corrections returns a task's correction audit trail, oldest first.
func (s *FocusService) Corrections(ctx context.Context, taskID uuid.UUID) ([]*domain.TimeCorrection, error) {
	return s.corrections.ListByTask(ctx, taskID)
}
