// Package leaderboard defines period-scoped rankings over XP and the
// interfaces its storage and cache implementations satisfy.
package leaderboard

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/brimiq/LearnQuest-Backend/internal/domain/shared"
	"github.com/brimiq/LearnQuest-Backend/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// PERIODS
// ══════════════════════════════════════════════════════════════════════════════

// Period scopes a ranking to a trailing window of calendar days.
type Period string

const (
	// PeriodDaily - XP earned since the start of today.
	PeriodDaily Period = "daily"

	// PeriodWeekly - XP earned in the trailing 7 calendar days.
	PeriodWeekly Period = "weekly"

	// PeriodMonthly - XP earned in the trailing 30 calendar days.
	PeriodMonthly Period = "monthly"

	// PeriodAllTime - lifetime XP from the stats rows.
	PeriodAllTime Period = "all_time"
)

// AllPeriods lists every period in refresh order.
func AllPeriods() []Period {
	return []Period{PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodAllTime}
}

// ParsePeriod validates a period string from the outside world.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodAllTime:
		return Period(s), nil
	default:
		return "", fmt.Errorf("period %q: %w", s, shared.ErrInvalidPeriod)
	}
}

// String returns the string representation.
func (p Period) String() string {
	return string(p)
}

// WindowStart returns the inclusive lower bound of the period's window at
// now, evaluated on calendar-day boundaries in loc. PeriodAllTime has no
// window; the second return is false.
func (p Period) WindowStart(now time.Time, loc *time.Location) (time.Time, bool) {
	switch p {
	case PeriodDaily:
		return timeutil.TrailingWindowStart(now, 1, loc), true
	case PeriodWeekly:
		return timeutil.TrailingWindowStart(now, 7, loc), true
	case PeriodMonthly:
		return timeutil.TrailingWindowStart(now, 30, loc), true
	default:
		return time.Time{}, false
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// RANK ENTRIES
// ══════════════════════════════════════════════════════════════════════════════

// RankEntry is one row of a ranking.
type RankEntry struct {
	// Rank - 1-based dense position. 0 on entries for unranked users.
	Rank int

	// UserID - the ranked user.
	UserID string

	// XP - XP within the period's window (lifetime XP for all-time).
	XP int

	// Points - the user's current points balance, carried for display.
	Points int
}

// SortEntries orders entries by XP descending, breaking ties by UserID
// ascending, then assigns 1-based ranks. Equal XP still yields distinct
// ranks; the tie-break keeps the order total and reproducible.
func SortEntries(entries []RankEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].XP != entries[j].XP {
			return entries[i].XP > entries[j].XP
		}
		return entries[i].UserID < entries[j].UserID
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// RANK-OF VIEW
// ══════════════════════════════════════════════════════════════════════════════

// RankView is a user's position with up to two neighbors on each side. For
// an unranked user Entry.Rank is 0, Ranked is false, and Neighbors holds the
// tail of the board.
type RankView struct {
	Entry     RankEntry
	Ranked    bool
	Neighbors []RankEntry
	Total     int
}

// ══════════════════════════════════════════════════════════════════════════════
// STORAGE INTERFACES
// ══════════════════════════════════════════════════════════════════════════════

// Snapshot is a fully ranked board for one period plus its build time, which
// bounds how stale a cached read may be.
type Snapshot struct {
	Period    Period
	Entries   []RankEntry
	BuiltAt   time.Time
	WindowLow time.Time // zero for all-time
}

// Cache stores ranked snapshots for fast reads. Implementations return
// shared.ErrLeaderboardCacheMiss when no snapshot exists for a period.
type Cache interface {
	// Put replaces the snapshot for snap.Period.
	Put(ctx context.Context, snap Snapshot) error

	// Top returns the highest-ranked limit entries plus the total entry
	// count and the snapshot build time.
	Top(ctx context.Context, period Period, limit int) ([]RankEntry, int, time.Time, error)

	// Around returns the user's entry with up to radius neighbors on each
	// side. found is false when the user is not in the snapshot.
	Around(ctx context.Context, period Period, userID string, radius int) (view RankView, found bool, err error)
}
