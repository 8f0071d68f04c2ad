package policy

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/SemenBogdanov/dpms-system/internal/domain"
)

// Quality-score policy constants. Hard policy, not configuration: changing
// them is a deliberate product decision.
const (
	QualityRejectPenalty  = 5.0
	QualityAcceptBonus    = 1.0
	QualityAlertThreshold = 50.0
	QualityMin            = 0.0
	QualityMax            = 100.0
)

// WorkingDayHours converts SLA hours into calendar days for due dates.
const WorkingDayHours = 8

// LeagueOrder returns the league's position: C=0, B=1, A=2.
func LeagueOrder(l domain.League) int {
	switch l {
	case domain.LeagueA:
		return 2
	case domain.LeagueB:
		return 1
	default:
		return 0
	}
}

// CanAccess reports whether a user of the given league may see, pull or be
// assigned a task gated at minLeague.
func CanAccess(userLeague, minLeague domain.League) bool {
	return LeagueOrder(userLeague) >= LeagueOrder(minLeague)
}

// SLAMultiplier returns the league's hours-per-Q factor: lower leagues get
// more time for the same priced work.
func SLAMultiplier(l domain.League) float64 {
	switch l {
	case domain.LeagueA:
		return 1.5
	case domain.LeagueB:
		return 2.0
	default:
		return 3.0
	}
}

// SLAHours computes the SLA window for a task of the given estimate pulled
// by a user of the given league: floor(estimated_q * multiplier).
func SLAHours(estimatedQ decimal.Decimal, league domain.League) int {
	return int(math.Floor(estimatedQ.InexactFloat64() * SLAMultiplier(league)))
}

// DueDate converts SLA hours into a calendar due date assuming an 8-hour
// working day: full days for each 8h block, the remainder as hours.
func DueDate(now time.Time, slaHours int) time.Time {
	days := slaHours / WorkingDayHours
	hours := slaHours % WorkingDayHours
	return now.AddDate(0, 0, days).Add(time.Duration(hours) * time.Hour)
}

// DeadlineZone is the urgency signal for a task with a due date.
type DeadlineZone string

const (
	ZoneGreen  DeadlineZone = "green"
	ZoneYellow DeadlineZone = "yellow"
	ZoneRed    DeadlineZone = "red"
)

// Deadline returns the zone for the given clock, due date and start time.
// Nil is returned when the task has no due date. Red means overdue; yellow
// means half or less of the original window remains.
func Deadline(now time.Time, dueDate, startedAt *time.Time) *DeadlineZone {
	if dueDate == nil {
		return nil
	}
	zone := ZoneGreen
	switch {
	case now.After(*dueDate):
		zone = ZoneRed
	case startedAt != nil:
		total := dueDate.Sub(*startedAt)
		if total > 0 && float64(dueDate.Sub(now))/float64(total) <= 0.5 {
			zone = ZoneYellow
		}
	}
	return &zone
}

// ApplyQualityPenalty lowers a quality score for a rejection, flooring at
// QualityMin. The second result reports whether the score crossed below
// the alert threshold with this penalty.
func ApplyQualityPenalty(score float64) (newScore float64, crossedAlert bool) {
	newScore = score - QualityRejectPenalty
	if newScore < QualityMin {
		newScore = QualityMin
	}
	crossedAlert = score >= QualityAlertThreshold && newScore < QualityAlertThreshold
	return newScore, crossedAlert
}

// ApplyQualityBonus raises a quality score for an acceptance, capping at
// QualityMax.
func ApplyQualityBonus(score float64) float64 {
	score += QualityAcceptBonus
	if score > QualityMax {
		score = QualityMax
	}
	return score
}
