// Package policy holds the pure incentive rules of the system: the
// main/karma wallet split, league ordering and SLA multipliers,
// working-day due-date math, deadline urgency zones, quality-score
// constants, and the league promotion/demotion evaluation.
//
// Everything here is a pure function of its inputs (including "now",
// which callers inject), so the rules are testable without a store or a
// clock.
package policy
