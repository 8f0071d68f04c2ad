package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/SemenBogdanov/dpms-system/internal/domain"
	"github.com/SemenBogdanov/dpms-system/internal/domain/policy"
	"github.com/SemenBogdanov/dpms-system/internal/platform/logger"
	"github.com/SemenBogdanov/dpms-system/internal/store"
)

// MaintenanceService holds the opportunistic sweeps: overdue flagging and
// stale-queue escalation. Both are idempotent functions of the injected
// clock plus store state, callable from a scheduler or lazily before a
// dashboard read.
type MaintenanceService struct {
	db            *sql.DB
	tasks         store.TaskStore
	users         store.UserStore
	notifications store.NotificationStore
	notifier      Notifier
	logger        *slog.Logger
	now           func() time.Time
}

// NewMaintenanceService creates a new MaintenanceService.
// It returns an error if any of the required dependencies are nil.
func NewMaintenanceService(
	db *sql.DB,
	tasks store.TaskStore,
	users store.UserStore,
	notifications store.NotificationStore,
	notifier Notifier,
	log *slog.Logger,
) (*MaintenanceService, error) {
	if db == nil {
		return nil, domain.NewValidationError("db", "cannot be nil", domain.ErrValidation)
	}
	if tasks == nil {
		return nil, domain.NewValidationError("tasks", "cannot be nil", domain.ErrValidation)
	}
	if users == nil {
		return nil, domain.NewValidationError("users", "cannot be nil", domain.ErrValidation)
	}
	if notifications == nil {
		return nil, domain.NewValidationError("notifications", "cannot be nil", domain.ErrValidation)
	}
	if notifier == nil {
		return nil, domain.NewValidationError("notifier", "cannot be nil", domain.ErrValidation)
	}
	if log == nil {
		log = slog.Default()
	}
	return &MaintenanceService{
		db:            db,
		tasks:         tasks,
		users:         users,
		notifications: notifications,
		notifier:      notifier,
		logger:        log.With(slog.String("component", "maintenance_service")),
		now:           func() time.Time { return time.Now().UTC() },
	}, nil
}

// WithClock overrides the service clock. Intended for tests.
func (s *MaintenanceService) WithClock(now func() time.Time) *MaintenanceService {
	s.now = now
	return s
}

// SweepOverdue flags in_progress and review tasks past their due date and
// escalates each one to the managers, once per task. Returns how many
// tasks were newly flagged.
func (s *MaintenanceService) SweepOverdue(ctx context.Context) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	now := s.now()

	var flagged []*domain.Task
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		tasks := s.tasks.WithTx(tx)

		candidates, err := tasks.ListOverdueCandidates(ctx, now)
		if err != nil {
			return err
		}
		for _, task := range candidates {
			task.IsOverdue = true
			if err := tasks.Update(ctx, task); err != nil {
				return err
			}
			flagged = append(flagged, task)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if len(flagged) > 0 {
		managers, err := s.users.ListManagers(ctx)
		if err != nil {
			log.Warn("failed to list managers for overdue escalation",
				slog.String("error", err.Error()))
		} else {
			for _, task := range flagged {
				assignee := "unassigned"
				if task.AssigneeID != nil {
					if u, err := s.users.GetByID(ctx, *task.AssigneeID); err == nil {
						assignee = u.FullName
					}
				}
				for _, m := range managers {
					s.notifier.Notify(ctx, m.ID, domain.NotifTaskOverdue,
						"Task overdue",
						fmt.Sprintf("%q (assignee: %s) is past its due date.", task.Title, assignee),
						"/tasks/"+task.ID.String())
				}
			}
		}
		log.Info("flagged overdue tasks", slog.Int("count", len(flagged)))
	}
	return len(flagged), nil
}

// SweepStaleQueue escalates in_queue tasks older than the staleness window
// to the managers. Escalation is rate-limited per task by checking for a
// prior notification carrying the same deep link within the interval, so
// no extra bookkeeping column is needed. Returns how many tasks were
// escalated this sweep.
func (s *MaintenanceService) SweepStaleQueue(ctx context.Context) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	now := s.now()

	stale, err := s.tasks.ListQueuedBefore(ctx, now.Add(-policy.QueueStaleAfter))
	if err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}

	managers, err := s.users.ListManagers(ctx)
	if err != nil {
		return 0, err
	}

	escalated := 0
	for _, task := range stale {
		link := "/tasks/" + task.ID.String()
		recent, err := s.notifications.ExistsWithLinkSince(ctx, link, now.Add(-policy.QueueStaleNotifyInterval))
		if err != nil {
			return escalated, err
		}
		if recent {
			continue
		}
		for _, m := range managers {
			s.notifier.Notify(ctx, m.ID, domain.NotifQueueStale,
				"Stale task in queue",
				fmt.Sprintf("%q has been waiting in the queue for over %d hours.",
					task.Title, int(policy.QueueStaleAfter.Hours())),
				link)
		}
		escalated++
	}

	if escalated > 0 {
		log.Info("escalated stale queue tasks", slog.Int("count", escalated))
	}
	return escalated, nil
}
