package query

import (
	"context"
	"fmt"
	"time"

	"github.com/brimiq/LearnQuest-Backend/internal/domain/gamification"
	"github.com/brimiq/LearnQuest-Backend/internal/domain/shared"
	"github.com/brimiq/LearnQuest-Backend/internal/domain/stats"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET STREAK STATUS QUERY
// Observes a streak without touching it. A streak that would reset on the
// next activity is reported broken here but only actually resets when the
// user does something.
// ══════════════════════════════════════════════════════════════════════════════

// GetStreakStatusQuery contains the streak status request.
type GetStreakStatusQuery struct {
	UserID string
}

// Validate checks the query parameters.
func (q *GetStreakStatusQuery) Validate() error {
	if q.UserID == "" {
		return fmt.Errorf("user_id is required: %w", shared.ErrEmptyValue)
	}
	return nil
}

// GetStreakStatusResult describes the observed streak.
type GetStreakStatusResult struct {
	// UserID - the user asked about.
	UserID string `json:"user_id"`

	// State - no_streak, active_today, at_risk or broken.
	State string `json:"state"`

	// StreakDays - the stored streak length. For a broken streak this is
	// the length that will be lost on the next activity.
	StreakDays int `json:"streak_days"`

	// LastActiveAt - the last qualifying activity, if any.
	LastActiveAt *time.Time `json:"last_active_at,omitempty"`

	// NextMilestone - the next unreached milestone day count, 0 when past
	// all milestones.
	NextMilestone int `json:"next_milestone"`
}

// GetStreakStatusHandler handles GetStreakStatusQuery.
type GetStreakStatusHandler struct {
	statsStore stats.Store
	tracker    *gamification.StreakTracker
	milestones []gamification.Milestone
	now        func() time.Time
}

// NewGetStreakStatusHandler creates a new GetStreakStatusHandler.
func NewGetStreakStatusHandler(
	statsStore stats.Store,
	tracker *gamification.StreakTracker,
	milestones []gamification.Milestone,
) *GetStreakStatusHandler {
	if len(milestones) == 0 {
		milestones = gamification.DefaultMilestones()
	}
	return &GetStreakStatusHandler{
		statsStore: statsStore,
		tracker:    tracker,
		milestones: milestones,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the handler's time source. Used by tests.
func (h *GetStreakStatusHandler) WithClock(now func() time.Time) *GetStreakStatusHandler {
	h.now = now
	return h
}

// Handle executes the streak status query.
func (h *GetStreakStatusHandler) Handle(ctx context.Context, query GetStreakStatusQuery) (*GetStreakStatusResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	userStats, err := h.statsStore.Load(ctx, query.UserID)
	if err != nil {
		return nil, fmt.Errorf("streak_status: %w", err)
	}

	state := h.tracker.Status(userStats, h.now())

	next := 0
	for _, m := range h.milestones {
		if userStats.StreakDays < m.Days {
			next = m.Days
			break
		}
	}

	return &GetStreakStatusResult{
		UserID:        query.UserID,
		State:         string(state),
		StreakDays:    userStats.StreakDays,
		LastActiveAt:  userStats.LastActiveAt,
		NextMilestone: next,
	}, nil
}
