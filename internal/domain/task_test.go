package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestNewTask(t *testing.T) {
	estimatorID := uuid.New()

	task, err := NewTask("Build consent widget", "per brief", TaskTypeWidget, ComplexityM,
		decimal.NewFromInt(5), PriorityHigh, TaskStatusNew, LeagueC, estimatorID)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if task.ID == uuid.Nil {
		t.Error("Expected non-nil UUID, got nil UUID")
	}
	if task.Status != TaskStatusNew {
		t.Errorf("Expected status %s, got %s", TaskStatusNew, task.Status)
	}
	if task.EstimatorID != estimatorID {
		t.Errorf("Expected estimator %s, got %s", estimatorID, task.EstimatorID)
	}
	if task.RejectionCount != 0 {
		t.Errorf("Expected zero rejections, got %d", task.RejectionCount)
	}
	if task.CreatedAt.IsZero() {
		t.Error("Expected non-zero CreatedAt time")
	}

	// Empty title
	_, err = NewTask("", "", TaskTypeWidget, ComplexityM,
		decimal.NewFromInt(5), PriorityHigh, TaskStatusNew, LeagueC, estimatorID)
	if err != ErrEmptyTaskTitle {
		t.Errorf("Expected error %v, got %v", ErrEmptyTaskTitle, err)
	}

	// Negative estimate
	_, err = NewTask("x", "", TaskTypeWidget, ComplexityM,
		decimal.NewFromInt(-1), PriorityHigh, TaskStatusNew, LeagueC, estimatorID)
	if err != ErrNegativeEstimate {
		t.Errorf("Expected error %v, got %v", ErrNegativeEstimate, err)
	}

	// Unknown type
	_, err = NewTask("x", "", TaskType("chore"), ComplexityM,
		decimal.NewFromInt(5), PriorityHigh, TaskStatusNew, LeagueC, estimatorID)
	if err != ErrInvalidTaskType {
		t.Errorf("Expected error %v, got %v", ErrInvalidTaskType, err)
	}

	// Missing estimator
	_, err = NewTask("x", "", TaskTypeWidget, ComplexityM,
		decimal.NewFromInt(5), PriorityHigh, TaskStatusNew, LeagueC, uuid.Nil)
	if err != ErrEmptyEstimatorID {
		t.Errorf("Expected error %v, got %v", ErrEmptyEstimatorID, err)
	}
}

func TestTaskInFocus(t *testing.T) {
	task := Task{}
	if task.InFocus() {
		t.Error("Expected a fresh task to not be in focus")
	}
	now := time.Now().UTC()
	task.FocusStartedAt = &now
	if !task.InFocus() {
		t.Error("Expected task with a running stopwatch to be in focus")
	}
}

func TestTaskPriorityRank(t *testing.T) {
	ordered := []TaskPriority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}
	for i, p := range ordered {
		if p.Rank() != i {
			t.Errorf("Expected rank %d for %s, got %d", i, p, p.Rank())
		}
	}
}

func TestTaskStatusValid(t *testing.T) {
	for _, s := range []TaskStatus{TaskStatusNew, TaskStatusEstimated, TaskStatusInQueue,
		TaskStatusInProgress, TaskStatusReview, TaskStatusDone, TaskStatusCancelled} {
		if !s.Valid() {
			t.Errorf("Expected %s to be valid", s)
		}
	}
	if TaskStatus("archived").Valid() {
		t.Error("Expected unknown status to be invalid")
	}
}
