package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/SemenBogdanov/dpms-system/internal/domain"
	"github.com/SemenBogdanov/dpms-system/internal/domain/policy"
	"github.com/SemenBogdanov/dpms-system/internal/store"
)

// QueueEntry is one task of the queue view, annotated for the requesting
// actor. The annotations are computed per request; nothing is cached.
type QueueEntry struct {
	Task         *domain.Task         `json:"task"`
	CanPull      bool                 `json:"can_pull"`
	Locked       bool                 `json:"locked"`
	LockReason   string               `json:"lock_reason,omitempty"`
	HoursInQueue float64              `json:"hours_in_queue"`
	IsStale      bool                 `json:"is_stale"`
	CanAssign    bool                 `json:"can_assign"`
	Recommended  bool                 `json:"recommended"`
	Deadline     *policy.DeadlineZone `json:"deadline_zone,omitempty"`
}

// QueueService builds the read-only queue projection. It takes no locks:
// the view may trail the write path slightly, which is fine because every
// mutation re-checks its own preconditions under a row lock.
type QueueService struct {
	tasks  store.TaskStore
	users  store.UserStore
	logger *slog.Logger
	now    func() time.Time
}

// NewQueueService creates a new QueueService.
// It returns an error if any of the required dependencies are nil.
func NewQueueService(tasks store.TaskStore, users store.UserStore, log *slog.Logger) (*QueueService, error) {
	if tasks == nil {
		return nil, domain.NewValidationError("tasks", "cannot be nil", domain.ErrValidation)
	}
	if users == nil {
		return nil, domain.NewValidationError("users", "cannot be nil", domain.ErrValidation)
	}
	if log == nil {
		log = slog.Default()
	}
	return &QueueService{
		tasks:  tasks,
		users:  users,
		logger: log.With(slog.String("component", "queue_service")),
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// WithClock overrides the service clock. Intended for tests.
func (s *QueueService) WithClock(now func() time.Time) *QueueService {
	s.now = now
	return s
}

// View returns every in_queue task annotated for the actor, in the queue's
// stable order (priority descending, oldest first within a tier).
//
// Recommended marks the pullable, unlocked tasks of the highest priority
// tier actually available to this actor, not the global maximum.
func (s *QueueService) View(ctx context.Context, actor Actor) ([]QueueEntry, error) {
	now := s.now()

	user, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	wip, err := s.tasks.CountInProgress(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	underWIP := wip < user.WIPLimit

	queued, err := s.tasks.ListInQueue(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]QueueEntry, 0, len(queued))
	bestRank := -1
	for _, task := range queued {
		age := now.Sub(task.CreatedAt)
		entry := QueueEntry{
			Task:         task,
			HoursInQueue: age.Hours(),
			IsStale:      age > policy.QueueStaleAfter,
			CanAssign:    actor.Role.IsManager() && age > policy.QueueAssignMinAge,
			Deadline:     policy.Deadline(now, task.DueDate, task.StartedAt),
		}

		if !policy.CanAccess(user.League, task.MinLeague) {
			entry.Locked = true
			entry.LockReason = "requires league " + string(task.MinLeague)
		} else if !underWIP {
			entry.LockReason = "work-in-progress limit reached"
		} else {
			entry.CanPull = true
			if rank := task.Priority.Rank(); rank > bestRank {
				bestRank = rank
			}
		}
		entries = append(entries, entry)
	}

	if bestRank >= 0 {
		for i := range entries {
			if entries[i].CanPull && entries[i].Task.Priority.Rank() == bestRank {
				entries[i].Recommended = true
			}
		}
	}
	return entries, nil
}
