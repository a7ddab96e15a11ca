// Package timeutil provides calendar-day utilities for the gamification
// engine. Streak continuation and leaderboard windows are defined in whole
// calendar days relative to a configured timezone, not rolling 24h windows,
// so every day-boundary computation in the codebase goes through this
// package. No external dependencies - uses only standard library.
package timeutil

import "time"

// DefaultLocation is the day-boundary timezone used when none is configured.
var DefaultLocation = time.UTC

// StartOfDay returns midnight of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}

// EndOfDay returns the last nanosecond of t's calendar day in loc.
func EndOfDay(t time.Time, loc *time.Location) time.Time {
	return StartOfDay(t, loc).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// StartOfWeek returns Monday 00:00:00 of t's week in loc.
func StartOfWeek(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	weekday := int(lt.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}
	return StartOfDay(lt.AddDate(0, 0, -(weekday-1)), loc)
}

// StartOfMonth returns the first day of t's month at 00:00:00 in loc.
func StartOfMonth(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), 1, 0, 0, 0, 0, loc)
}

// DaysBetween returns the number of calendar-day boundaries crossed between
// a and b in loc. Same calendar day yields 0, consecutive days yield 1,
// regardless of the clock time within each day. The result is negative when
// b is on an earlier day than a.
func DaysBetween(a, b time.Time, loc *time.Location) int {
	da := StartOfDay(a, loc)
	db := StartOfDay(b, loc)

	// Dividing the wall-clock difference by 24h breaks on DST transitions,
	// so walk whole dates instead.
	days := 0
	for da.Before(db) {
		da = da.AddDate(0, 0, 1)
		days++
	}
	for db.Before(da) {
		da = da.AddDate(0, 0, -1)
		days--
	}
	return days
}

// IsSameDay reports whether a and b fall on the same calendar day in loc.
func IsSameDay(a, b time.Time, loc *time.Location) bool {
	la, lb := a.In(loc), b.In(loc)
	return la.Year() == lb.Year() && la.YearDay() == lb.YearDay()
}

// IsNextDay reports whether b falls on the calendar day immediately after a.
func IsNextDay(a, b time.Time, loc *time.Location) bool {
	return IsSameDay(a.In(loc).AddDate(0, 0, 1), b, loc)
}

// TrailingWindowStart returns the lower bound of a trailing window of n
// calendar days ending at now: the start of the day (n-1) days before now's
// day. TrailingWindowStart(now, 1, loc) is the start of today.
func TrailingWindowStart(now time.Time, n int, loc *time.Location) time.Time {
	if n < 1 {
		n = 1
	}
	return StartOfDay(now.In(loc).AddDate(0, 0, -(n-1)), loc)
}

// FormatDate formats t as YYYY-MM-DD in loc.
func FormatDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}
