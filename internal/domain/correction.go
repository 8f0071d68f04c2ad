package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEmptyCorrectionID     = errors.New("time correction ID cannot be empty")
	ErrEmptyCorrectionReason = errors.New("time correction reason is required")
	ErrNegativeSeconds       = errors.New("active seconds cannot be negative")
)

// TimeCorrection is an append-only audit row recording a manual overwrite
// of a task's accumulated active-work seconds.
type TimeCorrection struct {
	ID          uuid.UUID `json:"id"`
	TaskID      uuid.UUID `json:"task_id"`
	CorrectorID uuid.UUID `json:"corrector_id"`
	OldSeconds  int64     `json:"old_seconds"`
	NewSeconds  int64     `json:"new_seconds"`
	Reason      string    `json:"reason"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewTimeCorrection creates an audit row for a time correction.
// Returns an error if validation fails.
func NewTimeCorrection(taskID, correctorID uuid.UUID, oldSeconds, newSeconds int64, reason string) (*TimeCorrection, error) {
	c := &TimeCorrection{
		ID:          uuid.New(),
		TaskID:      taskID,
		CorrectorID: correctorID,
		OldSeconds:  oldSeconds,
		NewSeconds:  newSeconds,
		Reason:      reason,
		CreatedAt:   time.Now().UTC(),
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks if the TimeCorrection has valid data.
func (c *TimeCorrection) Validate() error {
	if c.ID == uuid.Nil {
		return ErrEmptyCorrectionID
	}
	if c.TaskID == uuid.Nil {
		return ErrEmptyTaskID
	}
	if c.CorrectorID == uuid.Nil {
		return ErrEmptyUserID
	}
	if c.Reason == "" {
		return ErrEmptyCorrectionReason
	}
	if c.NewSeconds < 0 {
		return ErrNegativeSeconds
	}
	return nil
}
