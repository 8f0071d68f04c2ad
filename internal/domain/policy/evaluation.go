package policy

import (
	"github.com/SemenBogdanov/dpms-system/internal/domain"
)

// Promotion and demotion thresholds, in percent of monthly target.
const (
	PromoteCToBPercent  = 90.0
	PromoteBToAPercent  = 95.0
	PromoteCToBMinTasks = 10
	PromoteBToAMinTasks = 15
	DemoteAToBPercent   = 60.0
	DemoteBToCPercent   = 50.0
)

// LeagueEvaluation is the outcome of evaluating a user for a league change.
type LeagueEvaluation struct {
	CurrentLeague   domain.League
	SuggestedLeague domain.League
	Eligible        bool
	Reason          string
}

// EvaluateLeague decides whether a user qualifies for a league change.
//
// closed holds the user's PeriodSnapshots for closed months, most recent
// first. currentPercent is the live plan-completion percentage of the month
// in progress; promotions count it as the third consecutive period on top
// of the two most recent closed ones. Demotions look only at closed periods.
func EvaluateLeague(current domain.League, closed []*domain.PeriodSnapshot, currentPercent float64) LeagueEvaluation {
	ev := LeagueEvaluation{
		CurrentLeague:   current,
		SuggestedLeague: current,
		Reason:          "no change",
	}
	if len(closed) == 0 {
		ev.Reason = "no closed periods yet"
		return ev
	}

	lastTasks := closed[0].TasksCompleted

	// Demotions take precedence: a league that is not being held should not
	// be promoted past.
	if current == domain.LeagueA && len(closed) >= 2 &&
		closed[0].TargetPercent() < DemoteAToBPercent &&
		closed[1].TargetPercent() < DemoteAToBPercent {
		ev.SuggestedLeague = domain.LeagueB
		ev.Eligible = true
		ev.Reason = "below 60% of target for 2 consecutive closed periods"
		return ev
	}
	if current == domain.LeagueB && len(closed) >= 2 &&
		closed[0].TargetPercent() < DemoteBToCPercent &&
		closed[1].TargetPercent() < DemoteBToCPercent {
		ev.SuggestedLeague = domain.LeagueC
		ev.Eligible = true
		ev.Reason = "below 50% of target for 2 consecutive closed periods"
		return ev
	}

	if current == domain.LeagueC && len(closed) >= 2 &&
		closed[0].TargetPercent() >= PromoteCToBPercent &&
		closed[1].TargetPercent() >= PromoteCToBPercent &&
		currentPercent >= PromoteCToBPercent &&
		lastTasks >= PromoteCToBMinTasks {
		ev.SuggestedLeague = domain.LeagueB
		ev.Eligible = true
		ev.Reason = "90% of target for 3 consecutive periods, 10+ tasks in the last closed period"
		return ev
	}
	if current == domain.LeagueB && len(closed) >= 2 &&
		closed[0].TargetPercent() >= PromoteBToAPercent &&
		closed[1].TargetPercent() >= PromoteBToAPercent &&
		currentPercent >= PromoteBToAPercent &&
		lastTasks >= PromoteBToAMinTasks {
		ev.SuggestedLeague = domain.LeagueA
		ev.Eligible = true
		ev.Reason = "95% of target for 3 consecutive periods, 15+ tasks in the last closed period"
		return ev
	}

	return ev
}
