package query

import (
	"context"
	"fmt"
	"time"

	"github.com/brimiq/LearnQuest-Backend/internal/domain/leaderboard"
	"github.com/brimiq/LearnQuest-Backend/internal/domain/shared"
	"github.com/brimiq/LearnQuest-Backend/internal/domain/stats"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET PERIOD STATS QUERY
// One user's totals plus their XP inside each trailing window, straight from
// the event log. This is the profile page payload.
// ══════════════════════════════════════════════════════════════════════════════

// GetPeriodStatsQuery contains the period stats request.
type GetPeriodStatsQuery struct {
	UserID string
}

// Validate checks the query parameters.
func (q *GetPeriodStatsQuery) Validate() error {
	if q.UserID == "" {
		return fmt.Errorf("user_id is required: %w", shared.ErrEmptyValue)
	}
	return nil
}

// GetPeriodStatsResult contains lifetime and windowed totals.
type GetPeriodStatsResult struct {
	UserID       string     `json:"user_id"`
	XPTotal      int        `json:"xp_total"`
	PointsTotal  int        `json:"points_total"`
	StreakDays   int        `json:"streak_days"`
	XPToday      int        `json:"xp_today"`
	XPThisWeek   int        `json:"xp_this_week"`
	XPThisMonth  int        `json:"xp_this_month"`
	LastActiveAt *time.Time `json:"last_active_at,omitempty"`
}

// GetPeriodStatsHandler handles GetPeriodStatsQuery.
type GetPeriodStatsHandler struct {
	statsStore   stats.Store
	historyStore stats.HistoryStore
	loc          *time.Location
	now          func() time.Time
}

// NewGetPeriodStatsHandler creates a new GetPeriodStatsHandler.
func NewGetPeriodStatsHandler(statsStore stats.Store, historyStore stats.HistoryStore, loc *time.Location) *GetPeriodStatsHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &GetPeriodStatsHandler{
		statsStore:   statsStore,
		historyStore: historyStore,
		loc:          loc,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the handler's time source. Used by tests.
func (h *GetPeriodStatsHandler) WithClock(now func() time.Time) *GetPeriodStatsHandler {
	h.now = now
	return h
}

// Handle executes the period stats query.
func (h *GetPeriodStatsHandler) Handle(ctx context.Context, query GetPeriodStatsQuery) (*GetPeriodStatsResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	userStats, err := h.statsStore.Load(ctx, query.UserID)
	if err != nil {
		return nil, fmt.Errorf("period_stats: %w", err)
	}

	now := h.now()
	result := &GetPeriodStatsResult{
		UserID:       query.UserID,
		XPTotal:      userStats.XP.Int(),
		PointsTotal:  userStats.Points.Int(),
		StreakDays:   userStats.StreakDays,
		LastActiveAt: userStats.LastActiveAt,
	}

	windows := []struct {
		period leaderboard.Period
		out    *int
	}{
		{leaderboard.PeriodDaily, &result.XPToday},
		{leaderboard.PeriodWeekly, &result.XPThisWeek},
		{leaderboard.PeriodMonthly, &result.XPThisMonth},
	}
	for _, w := range windows {
		since, _ := w.period.WindowStart(now, h.loc)
		sum, err := h.historyStore.SumSince(ctx, query.UserID, since)
		if err != nil {
			return nil, fmt.Errorf("period_stats: %s window: %w", w.period, err)
		}
		*w.out = sum
	}
	return result, nil
}
