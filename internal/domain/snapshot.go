package domain

import (
	"errors"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrEmptySnapshotID = errors.New("snapshot ID cannot be empty")
	ErrInvalidPeriod   = errors.New("period must be formatted YYYY-MM")
)

var periodPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// PeriodSnapshot is an immutable per-user record of a closed calendar month.
// It is created only by the rollover job and is the historical basis for
// league promotion and demotion.
type PeriodSnapshot struct {
	ID             uuid.UUID       `json:"id"`
	UserID         uuid.UUID       `json:"user_id"`
	Period         string          `json:"period"` // YYYY-MM
	MonthlyTarget  int             `json:"monthly_target"`
	EarnedMain     decimal.Decimal `json:"earned_main"`
	EarnedKarma    decimal.Decimal `json:"earned_karma"`
	TasksCompleted int             `json:"tasks_completed"`
	League         League          `json:"league"`
	CreatedAt      time.Time       `json:"created_at"`
}

// NewPeriodSnapshot creates a snapshot row for a closed period.
// Returns an error if validation fails.
func NewPeriodSnapshot(userID uuid.UUID, period string, target int, earnedMain, earnedKarma decimal.Decimal, tasksCompleted int, league League) (*PeriodSnapshot, error) {
	s := &PeriodSnapshot{
		ID:             uuid.New(),
		UserID:         userID,
		Period:         period,
		MonthlyTarget:  target,
		EarnedMain:     earnedMain,
		EarnedKarma:    earnedKarma,
		TasksCompleted: tasksCompleted,
		League:         league,
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks if the PeriodSnapshot has valid data.
func (s *PeriodSnapshot) Validate() error {
	if s.ID == uuid.Nil {
		return ErrEmptySnapshotID
	}
	if s.UserID == uuid.Nil {
		return ErrEmptyUserID
	}
	if !periodPattern.MatchString(s.Period) {
		return ErrInvalidPeriod
	}
	if !s.League.Valid() {
		return ErrInvalidLeague
	}
	return nil
}

// TargetPercent returns the plan-completion percentage for the period,
// rounded to one decimal. Users without a target count as 100%.
func (s *PeriodSnapshot) TargetPercent() float64 {
	if s.MonthlyTarget <= 0 {
		return 100
	}
	pct := s.EarnedMain.InexactFloat64() / float64(s.MonthlyTarget) * 100
	return float64(int(pct*10+0.5)) / 10
}
