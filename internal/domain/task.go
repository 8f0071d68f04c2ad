package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Task-specific validation errors
var (
	ErrEmptyTaskID      = errors.New("task ID cannot be empty")
	ErrEmptyTaskTitle   = errors.New("task title cannot be empty")
	ErrEmptyEstimatorID = errors.New("task estimator ID cannot be empty")
	ErrNegativeEstimate = errors.New("estimated Q cannot be negative")
)

// TaskStatus is the closed set of lifecycle states.
type TaskStatus string

const (
	TaskStatusNew        TaskStatus = "new"
	TaskStatusEstimated  TaskStatus = "estimated"
	TaskStatusInQueue    TaskStatus = "in_queue"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusReview     TaskStatus = "review"
	TaskStatusDone       TaskStatus = "done"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusNew, TaskStatusEstimated, TaskStatusInQueue,
		TaskStatusInProgress, TaskStatusReview, TaskStatusDone, TaskStatusCancelled:
		return true
	}
	return false
}

// TaskType mirrors the catalog category, plus bugfix for guarantee work.
type TaskType string

const (
	TaskTypeWidget    TaskType = "widget"
	TaskTypeETL       TaskType = "etl"
	TaskTypeAPI       TaskType = "api"
	TaskTypeDocs      TaskType = "docs"
	TaskTypeProactive TaskType = "proactive"
	TaskTypeBugfix    TaskType = "bugfix"
)

// Valid reports whether t is one of the known task types.
func (t TaskType) Valid() bool {
	switch t {
	case TaskTypeWidget, TaskTypeETL, TaskTypeAPI, TaskTypeDocs,
		TaskTypeProactive, TaskTypeBugfix:
		return true
	}
	return false
}

// TaskPriority is the closed set of priorities, ordered low < medium < high < critical.
type TaskPriority string

const (
	PriorityLow      TaskPriority = "low"
	PriorityMedium   TaskPriority = "medium"
	PriorityHigh     TaskPriority = "high"
	PriorityCritical TaskPriority = "critical"
)

// Valid reports whether p is one of the known priorities.
func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Rank returns the priority's position for ordering (low=0 .. critical=3).
func (p TaskPriority) Rank() int {
	switch p {
	case PriorityCritical:
		return 3
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	default:
		return 0
	}
}

// Complexity is the catalog complexity tier.
type Complexity string

const (
	ComplexityS  Complexity = "S"
	ComplexityM  Complexity = "M"
	ComplexityL  Complexity = "L"
	ComplexityXL Complexity = "XL"
)

// Valid reports whether c is one of the known tiers.
func (c Complexity) Valid() bool {
	switch c {
	case ComplexityS, ComplexityM, ComplexityL, ComplexityXL:
		return true
	}
	return false
}

// Task is the central mutable entity of the work queue.
//
// Cross-references (assignee, estimator, validator, parent task) are plain
// ID fields resolved through the store; the store is the single source of
// truth for relationships.
type Task struct {
	ID               uuid.UUID       `json:"id"`
	Title            string          `json:"title"`
	Description      string          `json:"description"`
	Type             TaskType        `json:"task_type"`
	Complexity       Complexity      `json:"complexity"`
	EstimatedQ       decimal.Decimal `json:"estimated_q"`
	Priority         TaskPriority    `json:"priority"`
	Status           TaskStatus      `json:"status"`
	MinLeague        League          `json:"min_league"`
	AssigneeID       *uuid.UUID      `json:"assignee_id"`
	EstimatorID      uuid.UUID       `json:"estimator_id"`
	ValidatorID      *uuid.UUID      `json:"validator_id"`
	AssignedByID     *uuid.UUID      `json:"assigned_by_id"` // set only on manager force-assign
	EstimationDetail json.RawMessage `json:"estimation_detail"`
	Tags             []string        `json:"tags"`
	ResultURL        string          `json:"result_url"`
	RejectionComment string          `json:"rejection_comment"`
	RejectionCount   int             `json:"rejection_count"`
	IsProactive      bool            `json:"is_proactive"`
	DueDate          *time.Time      `json:"due_date"`
	SLAHours         *int            `json:"sla_hours"`
	IsOverdue        bool            `json:"is_overdue"`
	ParentTaskID     *uuid.UUID      `json:"parent_task_id"` // bugfix lineage only
	StartedAt        *time.Time      `json:"started_at"`
	CompletedAt      *time.Time      `json:"completed_at"`
	ValidatedAt      *time.Time      `json:"validated_at"`
	FocusStartedAt   *time.Time      `json:"focus_started_at"`
	ActiveSeconds    int64           `json:"active_seconds"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// NewTask creates a task in the given initial status.
// Returns an error if validation fails.
func NewTask(
	title, description string,
	taskType TaskType,
	complexity Complexity,
	estimatedQ decimal.Decimal,
	priority TaskPriority,
	status TaskStatus,
	minLeague League,
	estimatorID uuid.UUID,
) (*Task, error) {
	now := time.Now().UTC()
	task := &Task{
		ID:          uuid.New(),
		Title:       title,
		Description: description,
		Type:        taskType,
		Complexity:  complexity,
		EstimatedQ:  estimatedQ,
		Priority:    priority,
		Status:      status,
		MinLeague:   minLeague,
		EstimatorID: estimatorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}
	return task, nil
}

// Validate checks if the Task has valid data.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTaskID
	}
	if strings.TrimSpace(t.Title) == "" {
		return ErrEmptyTaskTitle
	}
	if !t.Type.Valid() {
		return ErrInvalidTaskType
	}
	if !t.Complexity.Valid() {
		return ErrInvalidComplexity
	}
	if !t.Status.Valid() {
		return ErrInvalidTaskStatus
	}
	if !t.Priority.Valid() {
		return ErrInvalidPriority
	}
	if !t.MinLeague.Valid() {
		return ErrInvalidLeague
	}
	if t.EstimatorID == uuid.Nil {
		return ErrEmptyEstimatorID
	}
	if t.EstimatedQ.IsNegative() {
		return ErrNegativeEstimate
	}
	return nil
}

// InFocus reports whether the task currently has an active focus stopwatch.
func (t *Task) InFocus() bool {
	return t.FocusStartedAt != nil
}
