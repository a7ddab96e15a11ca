// Package stats contains the per-user gamification counters that every other
// part of the engine reads and writes: lifetime XP, points, the daily streak,
// and the last-activity timestamp that drives streak continuation.
package stats

import (
	"errors"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// XP represents experience points earned by a user.
type XP int

// IsValid checks that XP is non-negative.
func (x XP) IsValid() bool {
	return x >= 0
}

// Add adds amount and returns the result, floored at zero.
func (x XP) Add(amount int) XP {
	result := XP(int(x) + amount)
	if result < 0 {
		return 0
	}
	return result
}

// Int returns the underlying int value.
func (x XP) Int() int {
	return int(x)
}

// Points represents the secondary reward currency, accrued alongside XP.
type Points int

// IsValid checks that the value is non-negative.
func (p Points) IsValid() bool {
	return p >= 0
}

// Add adds amount and returns the result, floored at zero.
func (p Points) Add(amount int) Points {
	result := Points(int(p) + amount)
	if result < 0 {
		return 0
	}
	return result
}

// Int returns the underlying int value.
func (p Points) Int() int {
	return int(p)
}

// ══════════════════════════════════════════════════════════════════════════════
// AWARD REASONS
// ══════════════════════════════════════════════════════════════════════════════

// Reason identifies the kind of activity behind an XP award. The set is
// closed: unknown reasons are rejected before any state is touched.
type Reason string

const (
	// ReasonResourceComplete - the user finished a learning resource.
	ReasonResourceComplete Reason = "resource_complete"

	// ReasonModuleComplete - the user finished a whole module.
	ReasonModuleComplete Reason = "module_complete"

	// ReasonCommentPost - the user posted a comment.
	ReasonCommentPost Reason = "comment_post"

	// ReasonQuizPass - the user passed a quiz.
	ReasonQuizPass Reason = "quiz_pass"

	// ReasonStreakBonus7 - one-time bonus for a 7-day streak.
	ReasonStreakBonus7 Reason = "streak_bonus_7"

	// ReasonStreakBonus30 - one-time bonus for a 30-day streak.
	ReasonStreakBonus30 Reason = "streak_bonus_30"

	// ReasonStreakBonus100 - one-time bonus for a 100-day streak.
	ReasonStreakBonus100 Reason = "streak_bonus_100"
)

// IsValid checks that the reason belongs to the closed set.
func (r Reason) IsValid() bool {
	switch r {
	case ReasonResourceComplete, ReasonModuleComplete, ReasonCommentPost,
		ReasonQuizPass, ReasonStreakBonus7, ReasonStreakBonus30, ReasonStreakBonus100:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (r Reason) String() string {
	return string(r)
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: USER STATS
// ══════════════════════════════════════════════════════════════════════════════

// UserStats holds the gamification counters for one user. One row per user,
// created at account creation with all counters zero, deleted only when the
// account is deleted.
type UserStats struct {
	// UserID - opaque unique identifier of the owning user.
	UserID string

	// XP - lifetime experience points. Never decreases through awards.
	XP XP

	// Points - secondary currency, incremented alongside XP per reason policy.
	Points Points

	// StreakDays - consecutive qualifying calendar days. 0 means the streak
	// is broken and not yet re-established today.
	StreakDays int

	// LastActiveAt - timestamp of the last event that counted toward streak
	// continuation. Nil until the first qualifying activity.
	LastActiveAt *time.Time

	// Version - optimistic-concurrency token. Incremented on every write;
	// compare-and-swap matches on (UserID, Version).
	Version int64

	// CreatedAt - when the row was created.
	CreatedAt time.Time

	// UpdatedAt - last modification time.
	UpdatedAt time.Time
}

// Domain validation errors.
var (
	ErrEmptyUserID   = errors.New("stats: user id is required")
	ErrNegativeXP    = errors.New("stats: xp cannot be negative")
	ErrInvalidStreak = errors.New("stats: streak days cannot be negative")
)

// NewUserStats creates a zeroed stats row for a freshly registered user.
func NewUserStats(userID string, now time.Time) (*UserStats, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}
	return &UserStats{
		UserID:    userID,
		XP:        0,
		Points:    0,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Validate checks entity invariants.
func (s *UserStats) Validate() error {
	if s.UserID == "" {
		return ErrEmptyUserID
	}
	if !s.XP.IsValid() {
		return ErrNegativeXP
	}
	if s.StreakDays < 0 {
		return ErrInvalidStreak
	}
	return nil
}

// Clone returns a deep copy. The reward ledger mutates a copy so a failed
// compare-and-swap never leaves half-updated state visible to the caller.
func (s *UserStats) Clone() *UserStats {
	c := *s
	if s.LastActiveAt != nil {
		t := *s.LastActiveAt
		c.LastActiveAt = &t
	}
	return &c
}

// Apply adds an XP and points delta and advances the bookkeeping fields.
func (s *UserStats) Apply(xpDelta, pointsDelta int, now time.Time) {
	s.XP = s.XP.Add(xpDelta)
	s.Points = s.Points.Add(pointsDelta)
	s.UpdatedAt = now
}

// TouchActivity records now as the latest streak-qualifying activity.
// LastActiveAt only moves forward: a backdated event must not rewind it,
// or the next same-day event would re-cross the day boundary and extend
// the streak twice.
func (s *UserStats) TouchActivity(now time.Time) {
	if s.LastActiveAt == nil || now.After(*s.LastActiveAt) {
		t := now
		s.LastActiveAt = &t
	}
	s.UpdatedAt = now
}

// ══════════════════════════════════════════════════════════════════════════════
// XP EVENTS
// ══════════════════════════════════════════════════════════════════════════════

// XPEvent is the time-indexed record of one award. The leaderboard uses these
// for period-scoped aggregation; the unique idempotency key makes retried
// awards detectable.
type XPEvent struct {
	// ID - unique event identifier (UUID).
	ID string

	// UserID - the user who earned the XP.
	UserID string

	// Amount - XP granted, including any milestone bonus.
	Amount int

	// Reason - why the XP was granted.
	Reason Reason

	// IdempotencyKey - caller-supplied deduplication token, empty if the
	// caller did not provide one.
	IdempotencyKey string

	// OccurredAt - when the award happened.
	OccurredAt time.Time
}
