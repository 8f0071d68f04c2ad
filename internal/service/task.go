package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/SemenBogdanov/dpms-system/internal/domain"
	"github.com/SemenBogdanov/dpms-system/internal/domain/policy"
	"github.com/SemenBogdanov/dpms-system/internal/platform/logger"
	"github.com/SemenBogdanov/dpms-system/internal/store"
)

// TaskService is the task lifecycle state machine. Every state-mutating
// transition runs in one transaction with a row lock on the task, so a
// race between two pulls of the same task resolves to exactly one winner;
// the loser sees the post-mutation status and gets a clean rejection.
// Ledger credits happen inside the same transaction as the transition that
// earns them.
type TaskService struct {
	db       *sql.DB
	tasks    store.TaskStore
	users    store.UserStore
	ledger   store.LedgerStore
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewTaskService creates a new TaskService.
// It returns an error if any of the required dependencies are nil.
func NewTaskService(
	db *sql.DB,
	tasks store.TaskStore,
	users store.UserStore,
	ledger store.LedgerStore,
	notifier Notifier,
	log *slog.Logger,
) (*TaskService, error) {
	if db == nil {
		return nil, domain.NewValidationError("db", "cannot be nil", domain.ErrValidation)
	}
	if tasks == nil {
		return nil, domain.NewValidationError("tasks", "cannot be nil", domain.ErrValidation)
	}
	if users == nil {
		return nil, domain.NewValidationError("users", "cannot be nil", domain.ErrValidation)
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
	return &TaskService{
		db:       db,
		tasks:    tasks,
		users:    users,
		ledger:   ledger,
		notifier: notifier,
		logger:   log.With(slog.String("component", "task_service")),
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// WithClock overrides the service clock. Intended for tests.
func (s *TaskService) WithClock(now func() time.Time) *TaskService {
	s.now = now
	return s
}

// CreateTaskInput carries the fields of a new, not-yet-estimated task.
type CreateTaskInput struct {
	Title       string
	Description string
	Type        domain.TaskType
	Complexity  domain.Complexity
	Priority    domain.TaskPriority
	MinLeague   domain.League
	Tags        []string
	IsProactive bool
}

// Create registers a new task in status new. Manager only.
func (s *TaskService) Create(ctx context.Context, actor Actor, in CreateTaskInput) (*domain.Task, error) {
	if !actor.Role.IsManager() {
		return nil, ErrNotManager
	}

	task, err := domain.NewTask(
		in.Title, in.Description, in.Type, in.Complexity,
		decimal.Zero, in.Priority, domain.TaskStatusNew, in.MinLeague, actor.ID,
	)
	if err != nil {
		return nil, err
	}
	task.Tags = in.Tags
	task.IsProactive = in.IsProactive

	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// ApplyEstimate attaches a calculator breakdown to a task and moves it to
// estimated. The breakdown is a frozen snapshot: later catalog edits never
// change it. Manager only; allowed from new or estimated (re-estimation
// before queueing is fine).
func (s *TaskService) ApplyEstimate(ctx context.Context, actor Actor, taskID uuid.UUID, breakdown *domain.EstimateBreakdown) (*domain.Task, error) {
	if !actor.Role.IsManager() {
		return nil, ErrNotManager
	}
	if breakdown == nil || len(breakdown.Lines) == 0 {
		return nil, ErrEmptyEstimate
	}

	var task *domain.Task
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		tasks := s.tasks.WithTx(tx)

		var err error
		task, err = tasks.GetForUpdate(ctx, taskID)
		if err != nil {
			return err
		}
		if task.Status != domain.TaskStatusNew && task.Status != domain.TaskStatusEstimated {
			return ErrInvalidTransition
		}

		raw, err := breakdown.Marshal()
		if err != nil {
			return fmt.Errorf("failed to encode estimate: %w", err)
		}
		task.EstimationDetail = raw
		task.EstimatedQ = policy.RoundQ(breakdown.TotalQ)
		task.MinLeague = breakdown.MinLeague
		task.EstimatorID = actor.ID
		task.Status = domain.TaskStatusEstimated
		return tasks.Update(ctx, task)
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// Enqueue publishes an estimated task to the shared queue. Manager only.
func (s *TaskService) Enqueue(ctx context.Context, actor Actor, taskID uuid.UUID) (*domain.Task, error) {
	if !actor.Role.IsManager() {
		return nil, ErrNotManager
	}

	var task *domain.Task
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		tasks := s.tasks.WithTx(tx)

		var err error
		task, err = tasks.GetForUpdate(ctx, taskID)
		if err != nil {
			return err
		}
		if task.Status != domain.TaskStatusEstimated {
			return ErrInvalidTransition
		}
		task.Status = domain.TaskStatusInQueue
		return tasks.Update(ctx, task)
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// startWork moves a locked in_queue task into in_progress for the given
// locked user, computing SLA and due date on first start. Shared by Pull
// and Assign; the tx-bound stores and both row locks are the caller's.
func (s *TaskService) startWork(ctx context.Context, tasks store.TaskStore, task *domain.Task, user *domain.User, now time.Time) error {
	if !user.IsActive {
		return ErrUserInactive
	}
	if !policy.CanAccess(user.League, task.MinLeague) {
		return ErrLeagueTooLow
	}
	wip, err := tasks.CountInProgress(ctx, user.ID)
	if err != nil {
		return err
	}
	if wip >= user.WIPLimit {
		return ErrWIPLimitReached
	}

	task.AssigneeID = &user.ID
	task.Status = domain.TaskStatusInProgress
	task.StartedAt = &now
	if task.DueDate == nil && task.EstimatedQ.IsPositive() {
		hours := policy.SLAHours(task.EstimatedQ, user.League)
		task.SLAHours = &hours
		due := policy.DueDate(now, hours)
		task.DueDate = &due
	}
	return nil
}

// Pull is the self-service path: the actor takes an in_queue task for
// themselves. The previously focused task, if any, is paused implicitly
// and focus moves to the pulled one.
func (s *TaskService) Pull(ctx context.Context, actor Actor, taskID uuid.UUID) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	now := s.now()

	var task *domain.Task
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		tasks := s.tasks.WithTx(tx)
		users := s.users.WithTx(tx)

		var err error
		task, err = tasks.GetForUpdate(ctx, taskID)
		if err != nil {
			return err
		}
		if task.Status != domain.TaskStatusInQueue {
			return ErrTaskAlreadyTaken
		}

		user, err := users.GetForUpdate(ctx, actor.ID)
		if err != nil {
			return err
		}

		if err := s.startWork(ctx, tasks, task, user, now); err != nil {
			return err
		}

		focused, err := tasks.GetFocused(ctx, user.ID)
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

		return tasks.Update(ctx, task)
	})
	if err != nil {
		return nil, err
	}

	log.Info("task pulled",
		slog.String("task_id", task.ID.String()),
		slog.String("user_id", actor.ID.String()))
	return task, nil
}

// Assign is the manager path: force-assign an in_queue task to an
// executor. All Pull constraints apply to the executor, plus a minimum
// queue age so fresh tasks stay available for self-service.
func (s *TaskService) Assign(ctx context.Context, actor Actor, taskID, executorID uuid.UUID) (*domain.Task, error) {
	if !actor.Role.IsManager() {
		return nil, ErrNotManager
	}
	log := logger.FromContextOrDefault(ctx, s.logger)
	now := s.now()

	var task *domain.Task
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		tasks := s.tasks.WithTx(tx)
		users := s.users.WithTx(tx)

		var err error
		task, err = tasks.GetForUpdate(ctx, taskID)
		if err != nil {
			return err
		}
		if task.Status != domain.TaskStatusInQueue {
			return ErrTaskAlreadyTaken
		}
		if now.Sub(task.CreatedAt) <= policy.QueueAssignMinAge {
			return ErrQueueAgeTooLow
		}

		executor, err := users.GetForUpdate(ctx, executorID)
		if err != nil {
			return err
		}

		if err := s.startWork(ctx, tasks, task, executor, now); err != nil {
			return err
		}
		task.AssignedByID = &actor.ID

		return tasks.Update(ctx, task)
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, executorID, domain.NotifTaskAssigned,
		"Task assigned",
		fmt.Sprintf("You were assigned the task %q.", task.Title),
		"/tasks/"+task.ID.String())

	log.Info("task assigned",
		slog.String("task_id", task.ID.String()),
		slog.String("executor_id", executorID.String()),
		slog.String("assigned_by", actor.ID.String()))
	return task, nil
}

// Submit sends the assignee's finished work to review.
func (s *TaskService) Submit(ctx context.Context, actor Actor, taskID uuid.UUID, resultURL string) (*domain.Task, error) {
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

		foldFocus(task, now, 0)
		task.Status = domain.TaskStatusReview
		task.CompletedAt = &now
		if resultURL != "" {
			task.ResultURL = resultURL
		}
		return tasks.Update(ctx, task)
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// Validate closes the review: approve moves the task to done and pays out
// its estimate, reject cycles it back to in_progress. The validator must
// be a manager and must not be the assignee.
func (s *TaskService) Validate(ctx context.Context, actor Actor, taskID uuid.UUID, approved bool, comment string) (*domain.Task, error) {
	if !actor.Role.IsManager() {
		return nil, ErrNotManager
	}
	if !approved && strings.TrimSpace(comment) == "" {
		return nil, ErrRejectionCommentRequired
	}
	log := logger.FromContextOrDefault(ctx, s.logger)
	now := s.now()

	var (
		task         *domain.Task
		assigneeID   uuid.UUID
		creditAmount decimal.Decimal
		alertCrossed bool
	)
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		tasks := s.tasks.WithTx(tx)
		users := s.users.WithTx(tx)
		ledger := s.ledger.WithTx(tx)

		var err error
		task, err = tasks.GetForUpdate(ctx, taskID)
		if err != nil {
			return err
		}
		if task.Status != domain.TaskStatusReview {
			return ErrInvalidTransition
		}
		if task.AssigneeID == nil {
			return ErrInvalidTransition
		}
		if *task.AssigneeID == actor.ID {
			return ErrSelfValidation
		}
		assigneeID = *task.AssigneeID

		assignee, err := users.GetForUpdate(ctx, assigneeID)
		if err != nil {
			return err
		}

		if !approved {
			task.Status = domain.TaskStatusInProgress
			task.ValidatorID = nil
			task.ValidatedAt = nil
			task.CompletedAt = nil
			task.RejectionComment = comment
			task.RejectionCount++
			foldFocus(task, now, 0)

			assignee.QualityScore, alertCrossed = policy.ApplyQualityPenalty(assignee.QualityScore)
			if err := users.Update(ctx, assignee); err != nil {
				return err
			}
			return tasks.Update(ctx, task)
		}

		task.Status = domain.TaskStatusDone
		task.ValidatorID = &actor.ID
		task.ValidatedAt = &now
		task.RejectionComment = ""

		assignee.QualityScore = policy.ApplyQualityBonus(assignee.QualityScore)
		if err := users.Update(ctx, assignee); err != nil {
			return err
		}

		creditAmount = task.EstimatedQ
		if creditAmount.IsPositive() {
			reason := fmt.Sprintf("Task accepted: %s", task.Title)
			if task.Type == domain.TaskTypeBugfix && task.ParentTaskID != nil {
				// Guaranteed fixes are unplanned rework; they never fill
				// the monthly plan.
				if err := creditKarmaOnly(ctx, users, ledger, assignee, creditAmount, reason, &task.ID); err != nil {
					return err
				}
			} else {
				if err := creditWithSplit(ctx, users, ledger, assignee, creditAmount, reason, &task.ID); err != nil {
					return err
				}
			}
		}
		return tasks.Update(ctx, task)
	})
	if err != nil {
		return nil, err
	}

	if approved {
		s.notifier.Notify(ctx, assigneeID, domain.NotifTaskAccepted,
			"Task accepted",
			fmt.Sprintf("%q was accepted. %s Q credited.", task.Title, creditAmount.StringFixed(1)),
			"/tasks/"+task.ID.String())
	} else {
		s.notifier.Notify(ctx, assigneeID, domain.NotifTaskRejected,
			"Task returned for rework",
			fmt.Sprintf("%q was rejected: %s", task.Title, comment),
			"/tasks/"+task.ID.String())
		if alertCrossed {
			s.notifyManagers(ctx, domain.NotifQualityAlert,
				"Quality alert",
				fmt.Sprintf("Quality score of the assignee of %q dropped below %.0f.", task.Title, policy.QualityAlertThreshold),
				"/users/"+assigneeID.String())
		}
	}

	log.Info("task validated",
		slog.String("task_id", task.ID.String()),
		slog.Bool("approved", approved),
		slog.String("validator_id", actor.ID.String()))
	return task, nil
}

// CreateBugfix opens a guarantee task against a completed parent. If the
// original author is still active they fix their own defect immediately
// and for free; otherwise the fix is queued at half the parent's price and
// managers are asked to route it.
func (s *TaskService) CreateBugfix(ctx context.Context, reporter Actor, parentID uuid.UUID, title, description string) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	now := s.now()

	parent, err := s.tasks.GetByID(ctx, parentID)
	if err != nil {
		return nil, err
	}
	if parent.Status != domain.TaskStatusDone {
		return nil, ErrParentTaskNotDone
	}

	var author *domain.User
	if parent.AssigneeID != nil {
		author, err = s.users.GetByID(ctx, *parent.AssigneeID)
		if err != nil && !store.IsNotFoundError(err) {
			return nil, err
		}
	}

	orphaned := author == nil || !author.IsActive

	estimatedQ := decimal.Zero
	status := domain.TaskStatusInProgress
	if orphaned {
		status = domain.TaskStatusInQueue
		estimatedQ = policy.RoundQ(parent.EstimatedQ.Mul(decimal.NewFromFloat(0.5)))
	}

	task, err := domain.NewTask(
		title, description, domain.TaskTypeBugfix, parent.Complexity,
		estimatedQ, domain.PriorityCritical, status, parent.MinLeague, reporter.ID,
	)
	if err != nil {
		return nil, err
	}
	task.ParentTaskID = &parent.ID

	if !orphaned {
		task.AssigneeID = &author.ID
		task.StartedAt = &now
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, err
	}

	if orphaned {
		s.notifyManagers(ctx, domain.NotifOrphanedBugfix,
			"Orphaned guarantee task",
			fmt.Sprintf("A bugfix for %q needs manual routing: its author is unavailable.", parent.Title),
			"/tasks/"+task.ID.String())
	} else {
		s.notifier.Notify(ctx, author.ID, domain.NotifTaskAssigned,
			"Guarantee fix assigned",
			fmt.Sprintf("A defect was reported against %q. The fix is on you.", parent.Title),
			"/tasks/"+task.ID.String())
	}

	log.Info("bugfix created",
		slog.String("task_id", task.ID.String()),
		slog.String("parent_id", parent.ID.String()),
		slog.Bool("orphaned", orphaned))
	return task, nil
}

// Cancel is the terminal escape valve for work that will not be done.
// Manager only; done and cancelled tasks cannot be cancelled.
func (s *TaskService) Cancel(ctx context.Context, actor Actor, taskID uuid.UUID) (*domain.Task, error) {
	if !actor.Role.IsManager() {
		return nil, ErrNotManager
	}
	now := s.now()

	var task *domain.Task
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		tasks := s.tasks.WithTx(tx)

		var err error
		task, err = tasks.GetForUpdate(ctx, taskID)
		if err != nil {
			return err
		}
		if task.Status == domain.TaskStatusDone || task.Status == domain.TaskStatusCancelled {
			return ErrInvalidTransition
		}
		foldFocus(task, now, 0)
		task.Status = domain.TaskStatusCancelled
		return tasks.Update(ctx, task)
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// SetDueDate overrides a task's deadline. Manager only; terminal tasks keep
// their dates. Moving the deadline into the future clears the overdue flag.
func (s *TaskService) SetDueDate(ctx context.Context, actor Actor, taskID uuid.UUID, due time.Time) (*domain.Task, error) {
	if !actor.Role.IsManager() {
		return nil, ErrNotManager
	}
	now := s.now()

	var task *domain.Task
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		tasks := s.tasks.WithTx(tx)

		var err error
		task, err = tasks.GetForUpdate(ctx, taskID)
		if err != nil {
			return err
		}
		if task.Status == domain.TaskStatusDone || task.Status == domain.TaskStatusCancelled {
			return ErrInvalidTransition
		}
		task.DueDate = &due
		if due.After(now) {
			task.IsOverdue = false
		}
		return tasks.Update(ctx, task)
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// PeriodExportRow is one completed task in a period report.
type PeriodExportRow struct {
	TaskID        uuid.UUID       `json:"task_id"`
	Title         string          `json:"title"`
	Type          domain.TaskType `json:"type"`
	EstimatedQ    decimal.Decimal `json:"estimated_q"`
	AssigneeID    uuid.UUID       `json:"assignee_id"`
	AssigneeName  string          `json:"assignee_name"`
	ActiveSeconds int64           `json:"active_seconds"`
	ValidatedAt   time.Time       `json:"validated_at"`
}

// ExportPeriod returns every task validated done within a YYYY-MM period,
// one row per task, for manager reporting.
func (s *TaskService) ExportPeriod(ctx context.Context, actor Actor, period string) ([]PeriodExportRow, error) {
	if !actor.Role.IsManager() {
		return nil, ErrNotManager
	}
	start, end, err := periodBounds(period)
	if err != nil {
		return nil, err
	}

	tasks, err := s.tasks.ListCompletedBetween(ctx, start, end)
	if err != nil {
		return nil, err
	}

	names := make(map[uuid.UUID]string)
	rows := make([]PeriodExportRow, 0, len(tasks))
	for _, t := range tasks {
		if t.AssigneeID == nil || t.ValidatedAt == nil {
			continue
		}
		name, ok := names[*t.AssigneeID]
		if !ok {
			u, err := s.users.GetByID(ctx, *t.AssigneeID)
			if err != nil {
				return nil, err
			}
			name = u.FullName
			names[*t.AssigneeID] = name
		}
		rows = append(rows, PeriodExportRow{
			TaskID:        t.ID,
			Title:         t.Title,
			Type:          t.Type,
			EstimatedQ:    t.EstimatedQ,
			AssigneeID:    *t.AssigneeID,
			AssigneeName:  name,
			ActiveSeconds: t.ActiveSeconds,
			ValidatedAt:   *t.ValidatedAt,
		})
	}
	return rows, nil
}

// Get returns one task.
func (s *TaskService) Get(ctx context.Context, taskID uuid.UUID) (*domain.Task, error) {
	return s.tasks.GetByID(ctx, taskID)
}

// List returns tasks matching the filter.
func (s *TaskService) List(ctx context.Context, filter store.TaskFilter) ([]*domain.Task, error) {
	return s.tasks.List(ctx, filter)
}

func (s *TaskService) notifyManagers(ctx context.Context, notifType, title, message, link string) {
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
