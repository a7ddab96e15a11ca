// Package gamification holds the pure reward rules: streak transitions,
// milestone bonuses, and the badge catalog. Nothing in this package touches
// storage; the application layer feeds it state and persists the outcome.
package gamification

import (
	"time"

	"github.com/brimiq/LearnQuest-Backend/internal/domain/stats"
	"github.com/brimiq/LearnQuest-Backend/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// STREAK TRACKER
// ══════════════════════════════════════════════════════════════════════════════

// StreakOutcome labels the transition a qualifying activity caused.
type StreakOutcome string

const (
	// StreakStarted - first qualifying activity ever, or first after a break.
	StreakStarted StreakOutcome = "started"

	// StreakExtended - activity on the calendar day after the last one.
	StreakExtended StreakOutcome = "extended"

	// StreakUnchanged - another activity on a day already counted.
	StreakUnchanged StreakOutcome = "unchanged"

	// StreakReset - a gap of two or more days; the streak restarts at 1.
	StreakReset StreakOutcome = "reset"
)

// StreakResult is the evaluated transition for one qualifying activity.
type StreakResult struct {
	Outcome    StreakOutcome
	Days       int
	BrokenFrom int // previous streak length when Outcome is StreakReset
	DaysMissed int // whole days with no activity when Outcome is StreakReset
}

// StreakTracker decides streak transitions on calendar-day boundaries in a
// fixed location. Two activities at 23:59 and 00:01 local time fall on
// different days and extend the streak; the wall-clock gap is irrelevant.
type StreakTracker struct {
	loc *time.Location
}

// NewStreakTracker creates a tracker evaluating days in loc.
func NewStreakTracker(loc *time.Location) *StreakTracker {
	if loc == nil {
		loc = timeutil.DefaultLocation
	}
	return &StreakTracker{loc: loc}
}

// Evaluate computes the transition a qualifying activity at now causes for
// the given stats. Pure: the caller applies the result.
func (t *StreakTracker) Evaluate(s *stats.UserStats, now time.Time) StreakResult {
	if s.LastActiveAt == nil || s.StreakDays == 0 {
		return StreakResult{Outcome: StreakStarted, Days: 1}
	}

	delta := timeutil.DaysBetween(*s.LastActiveAt, now, t.loc)
	switch {
	case delta <= 0:
		// Same day, or clock skew putting now before the last activity.
		// Either way the day is already counted.
		return StreakResult{Outcome: StreakUnchanged, Days: s.StreakDays}
	case delta == 1:
		return StreakResult{Outcome: StreakExtended, Days: s.StreakDays + 1}
	default:
		return StreakResult{Outcome: StreakReset, Days: 1, BrokenFrom: s.StreakDays, DaysMissed: delta - 1}
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// STREAK STATUS (read-only view)
// ══════════════════════════════════════════════════════════════════════════════

// StreakState describes a streak as observed, without mutating anything.
type StreakState string

const (
	// StreakStateNone - the user has never had qualifying activity.
	StreakStateNone StreakState = "no_streak"

	// StreakStateActiveToday - qualifying activity already counted today.
	StreakStateActiveToday StreakState = "active_today"

	// StreakStateAtRisk - last activity was yesterday; today is still open.
	StreakStateAtRisk StreakState = "at_risk"

	// StreakStateBroken - two or more days have passed; the next activity
	// will restart at 1.
	StreakStateBroken StreakState = "broken"
)

// Status reports the observed state of a streak at now. Read-only: a broken
// streak is not reset here, only described.
func (t *StreakTracker) Status(s *stats.UserStats, now time.Time) StreakState {
	if s.LastActiveAt == nil || s.StreakDays == 0 {
		return StreakStateNone
	}
	delta := timeutil.DaysBetween(*s.LastActiveAt, now, t.loc)
	switch {
	case delta <= 0:
		return StreakStateActiveToday
	case delta == 1:
		return StreakStateAtRisk
	default:
		return StreakStateBroken
	}
}
