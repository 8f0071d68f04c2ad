package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/SemenBogdanov/dpms-system/internal/domain"
	"github.com/SemenBogdanov/dpms-system/internal/platform/logger"
	"github.com/SemenBogdanov/dpms-system/internal/store"
)

// TaskStore implements the store.TaskStore interface using PostgreSQL.
type TaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewTaskStore creates a new PostgreSQL implementation of store.TaskStore.
// If logger is nil, a default logger will be used.
func NewTaskStore(db store.DBTX, log *slog.Logger) *TaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &TaskStore{
		db:     db,
		logger: log.With(slog.String("component", "task_store")),
	}
}

// Ensure TaskStore implements store.TaskStore interface
var _ store.TaskStore = (*TaskStore)(nil)

const taskColumns = `id, title, description, task_type, complexity, estimated_q,
	priority, status, min_league, assignee_id, estimator_id, validator_id,
	assigned_by_id, estimation_detail, tags, result_url, rejection_comment,
	rejection_count, is_proactive, due_date, sla_hours, is_overdue,
	parent_task_id, started_at, completed_at, validated_at, focus_started_at,
	active_seconds, created_at, updated_at`

// Create implements store.TaskStore.Create.
func (s *TaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	tags, err := json.Marshal(task.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}

	query := `
		INSERT INTO tasks (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27,
			$28, $29, $30)
	`
	_, err = s.db.ExecContext(ctx, query,
		task.ID, task.Title, task.Description, task.Type, task.Complexity,
		task.EstimatedQ, task.Priority, task.Status, task.MinLeague,
		uuidOrNil(task.AssigneeID), task.EstimatorID, uuidOrNil(task.ValidatorID),
		uuidOrNil(task.AssignedByID), nullableJSON(task.EstimationDetail), tags,
		task.ResultURL, task.RejectionComment, task.RejectionCount,
		task.IsProactive, task.DueDate, task.SLAHours, task.IsOverdue,
		uuidOrNil(task.ParentTaskID), task.StartedAt, task.CompletedAt,
		task.ValidatedAt, task.FocusStartedAt, task.ActiveSeconds,
		task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: referenced user does not exist", store.ErrInvalidEntity)
		}
		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	log.Info("task created",
		slog.String("task_id", task.ID.String()),
		slog.String("status", string(task.Status)),
		slog.String("type", string(task.Type)))
	return nil
}

func scanTask(scanner interface{ Scan(...any) error }) (*domain.Task, error) {
	var (
		t          domain.Task
		assignee   uuid.NullUUID
		validator  uuid.NullUUID
		assignedBy uuid.NullUUID
		parent     uuid.NullUUID
		detail     []byte
		tags       []byte
		resultURL  sql.NullString
		rejComment sql.NullString
		dueDate    sql.NullTime
		slaHours   sql.NullInt64
		startedAt  sql.NullTime
		completed  sql.NullTime
		validated  sql.NullTime
		focusStart sql.NullTime
	)
	err := scanner.Scan(
		&t.ID, &t.Title, &t.Description, &t.Type, &t.Complexity, &t.EstimatedQ,
		&t.Priority, &t.Status, &t.MinLeague, &assignee, &t.EstimatorID,
		&validator, &assignedBy, &detail, &tags, &resultURL, &rejComment,
		&t.RejectionCount, &t.IsProactive, &dueDate, &slaHours, &t.IsOverdue,
		&parent, &startedAt, &completed, &validated, &focusStart,
		&t.ActiveSeconds, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.AssigneeID = uuidPtr(assignee)
	t.ValidatorID = uuidPtr(validator)
	t.AssignedByID = uuidPtr(assignedBy)
	t.ParentTaskID = uuidPtr(parent)
	t.EstimationDetail = detail
	t.ResultURL = resultURL.String
	t.RejectionComment = rejComment.String
	t.DueDate = timePtr(dueDate)
	t.StartedAt = timePtr(startedAt)
	t.CompletedAt = timePtr(completed)
	t.ValidatedAt = timePtr(validated)
	t.FocusStartedAt = timePtr(focusStart)
	if slaHours.Valid {
		h := int(slaHours.Int64)
		t.SLAHours = &h
	}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &t.Tags); err != nil {
			return nil, fmt.Errorf("failed to decode tags: %w", err)
		}
	}
	return &t, nil
}

func (s *TaskStore) getByQuery(ctx context.Context, query string, args ...any) (*domain.Task, error) {
	task, err := scanTask(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		return nil, err
	}
	return task, nil
}

// GetByID implements store.TaskStore.GetByID.
func (s *TaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	return s.getByQuery(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
}

// GetForUpdate implements store.TaskStore.GetForUpdate.
// It takes a row-level exclusive lock; must run inside a transaction.
func (s *TaskStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	return s.getByQuery(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1 FOR UPDATE`, id)
}

// Update implements store.TaskStore.Update.
func (s *TaskStore) Update(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	tags, err := json.Marshal(task.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}

	query := `
		UPDATE tasks
		SET title = $2, description = $3, task_type = $4, complexity = $5,
			estimated_q = $6, priority = $7, status = $8, min_league = $9,
			assignee_id = $10, validator_id = $11, assigned_by_id = $12,
			estimation_detail = $13, tags = $14, result_url = $15,
			rejection_comment = $16, rejection_count = $17, is_proactive = $18,
			due_date = $19, sla_hours = $20, is_overdue = $21,
			started_at = $22, completed_at = $23, validated_at = $24,
			focus_started_at = $25, active_seconds = $26, updated_at = now()
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query,
		task.ID, task.Title, task.Description, task.Type, task.Complexity,
		task.EstimatedQ, task.Priority, task.Status, task.MinLeague,
		uuidOrNil(task.AssigneeID), uuidOrNil(task.ValidatorID),
		uuidOrNil(task.AssignedByID), nullableJSON(task.EstimationDetail), tags,
		task.ResultURL, task.RejectionComment, task.RejectionCount,
		task.IsProactive, task.DueDate, task.SLAHours, task.IsOverdue,
		task.StartedAt, task.CompletedAt, task.ValidatedAt,
		task.FocusStartedAt, task.ActiveSeconds,
	)
	if err != nil {
		log.Error("failed to update task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return store.ErrTaskNotFound
	}
	return nil
}

func (s *TaskStore) listByQuery(ctx context.Context, query string, args ...any) ([]*domain.Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []*domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task rows: %w", err)
	}
	return tasks, nil
}

// List implements store.TaskStore.List.
func (s *TaskStore) List(ctx context.Context, filter store.TaskFilter) ([]*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE 1=1`
	var args []any
	if filter.Status != nil {
		args = append(args, *filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		query += fmt.Sprintf(" AND assignee_id = $%d", len(args))
	}
	if filter.Type != nil {
		args = append(args, *filter.Type)
		query += fmt.Sprintf(" AND task_type = $%d", len(args))
	}
	query += ` ORDER BY created_at DESC`
	return s.listByQuery(ctx, query, args...)
}

// ListInQueue implements store.TaskStore.ListInQueue.
// The ordering (priority DESC, created_at ASC) is the queue's stable
// display order and must not change.
func (s *TaskStore) ListInQueue(ctx context.Context) ([]*domain.Task, error) {
	return s.listByQuery(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE status = 'in_queue'
		ORDER BY
			CASE priority
				WHEN 'critical' THEN 3
				WHEN 'high' THEN 2
				WHEN 'medium' THEN 1
				ELSE 0
			END DESC,
			created_at ASC`)
}

// CountInProgress implements store.TaskStore.CountInProgress.
func (s *TaskStore) CountInProgress(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT count(*) FROM tasks
		WHERE assignee_id = $1 AND status = 'in_progress'`, userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count in-progress tasks: %w", err)
	}
	return count, nil
}

// GetFocused implements store.TaskStore.GetFocused.
func (s *TaskStore) GetFocused(ctx context.Context, userID uuid.UUID) (*domain.Task, error) {
	task, err := s.getByQuery(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE assignee_id = $1 AND focus_started_at IS NOT NULL
		LIMIT 1`, userID)
	if errors.Is(err, store.ErrTaskNotFound) {
		return nil, nil
	}
	return task, err
}

// ListFocusedBefore implements store.TaskStore.ListFocusedBefore.
func (s *TaskStore) ListFocusedBefore(ctx context.Context, cutoff time.Time) ([]*domain.Task, error) {
	return s.listByQuery(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE focus_started_at IS NOT NULL AND focus_started_at < $1`, cutoff)
}

// ListOverdueCandidates implements store.TaskStore.ListOverdueCandidates.
func (s *TaskStore) ListOverdueCandidates(ctx context.Context, now time.Time) ([]*domain.Task, error) {
	return s.listByQuery(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE status IN ('in_progress', 'review')
			AND due_date IS NOT NULL AND due_date < $1
			AND NOT is_overdue`, now)
}

// ListQueuedBefore implements store.TaskStore.ListQueuedBefore.
func (s *TaskStore) ListQueuedBefore(ctx context.Context, cutoff time.Time) ([]*domain.Task, error) {
	return s.listByQuery(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE status = 'in_queue' AND created_at < $1`, cutoff)
}

// CountCompletedBetween implements store.TaskStore.CountCompletedBetween.
func (s *TaskStore) CountCompletedBetween(ctx context.Context, userID uuid.UUID, start, end time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT count(*) FROM tasks
		WHERE assignee_id = $1 AND status = 'done'
			AND validated_at IS NOT NULL
			AND validated_at >= $2 AND validated_at < $3`,
		userID, start, end,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count completed tasks: %w", err)
	}
	return count, nil
}

// ListCompletedBetween implements store.TaskStore.ListCompletedBetween.
func (s *TaskStore) ListCompletedBetween(ctx context.Context, start, end time.Time) ([]*domain.Task, error) {
	return s.listByQuery(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE status = 'done' AND validated_at IS NOT NULL
			AND validated_at >= $1 AND validated_at < $2
		ORDER BY validated_at`, start, end)
}

// WithTx implements store.TaskStore.WithTx.
func (s *TaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &TaskStore{db: tx, logger: s.logger}
}

// Scan helpers shared by the stores.

func uuidOrNil(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return *id
}

func uuidPtr(v uuid.NullUUID) *uuid.UUID {
	if !v.Valid {
		return nil
	}
	id := v.UUID
	return &id
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
