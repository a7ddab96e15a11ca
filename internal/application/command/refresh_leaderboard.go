package command

import (
	"context"
	"fmt"
	"time"

	"github.com/brimiq/LearnQuest-Backend/internal/domain/leaderboard"
	"github.com/brimiq/LearnQuest-Backend/internal/domain/shared"
	"github.com/brimiq/LearnQuest-Backend/internal/domain/stats"
	"github.com/brimiq/LearnQuest-Backend/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// REFRESH LEADERBOARD COMMAND
// Rebuilds the ranked snapshot for one or all periods and replaces the cached
// copy. The scheduler runs this on an interval; reads never rank on the fly.
// ══════════════════════════════════════════════════════════════════════════════

// RefreshLeaderboardCommand selects which periods to rebuild.
type RefreshLeaderboardCommand struct {
	// Periods to rebuild. Empty means all periods.
	Periods []leaderboard.Period
}

// RefreshLeaderboardResult reports entry counts per rebuilt period.
type RefreshLeaderboardResult struct {
	EntryCounts map[leaderboard.Period]int
	RefreshedAt time.Time
}

// RefreshLeaderboardHandler handles the RefreshLeaderboardCommand.
type RefreshLeaderboardHandler struct {
	statsStore     stats.Store
	historyStore   stats.HistoryStore
	cache          leaderboard.Cache
	eventPublisher shared.EventPublisher
	log            *logger.Logger
	loc            *time.Location
	now            func() time.Time
}

// NewRefreshLeaderboardHandler creates a new RefreshLeaderboardHandler.
func NewRefreshLeaderboardHandler(
	statsStore stats.Store,
	historyStore stats.HistoryStore,
	cache leaderboard.Cache,
	eventPublisher shared.EventPublisher,
	log *logger.Logger,
	loc *time.Location,
) *RefreshLeaderboardHandler {
	if log == nil {
		log = logger.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &RefreshLeaderboardHandler{
		statsStore:     statsStore,
		historyStore:   historyStore,
		cache:          cache,
		eventPublisher: eventPublisher,
		log:            log,
		loc:            loc,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the handler's time source. Used by tests.
func (h *RefreshLeaderboardHandler) WithClock(now func() time.Time) *RefreshLeaderboardHandler {
	h.now = now
	return h
}

// Refresh rebuilds the given periods. This is the shape the read side wants
// for on-demand rebuilds after a cache miss.
func (h *RefreshLeaderboardHandler) Refresh(ctx context.Context, periods ...leaderboard.Period) error {
	_, err := h.Handle(ctx, RefreshLeaderboardCommand{Periods: periods})
	return err
}

// Handle rebuilds the selected snapshots. A failure on one period does not
// stop the others; the first error is returned after the pass completes.
func (h *RefreshLeaderboardHandler) Handle(ctx context.Context, cmd RefreshLeaderboardCommand) (*RefreshLeaderboardResult, error) {
	periods := cmd.Periods
	if len(periods) == 0 {
		periods = leaderboard.AllPeriods()
	}

	now := h.now()
	allStats, err := h.statsStore.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("refresh_leaderboard: list stats: %w", err)
	}

	result := &RefreshLeaderboardResult{
		EntryCounts: make(map[leaderboard.Period]int, len(periods)),
		RefreshedAt: now,
	}

	var firstErr error
	for _, period := range periods {
		snap, err := h.buildSnapshot(ctx, period, allStats, now)
		if err != nil {
			h.log.Error("leaderboard rebuild failed", logger.Period(period.String()), logger.Err(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if err := h.cache.Put(ctx, snap); err != nil {
			h.log.Error("leaderboard cache write failed", logger.Period(period.String()), logger.Err(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		result.EntryCounts[period] = len(snap.Entries)
		if err := h.eventPublisher.Publish(ctx, shared.NewLeaderboardRefreshedEvent(period.String(), len(snap.Entries))); err != nil {
			h.log.Warn("event publish failed", logger.Period(period.String()), logger.Err(err))
		}
	}

	return result, firstErr
}

// buildSnapshot ranks every user for one period. Windowed periods score by
// event totals inside the window; users without events stay out of the
// board. All-time scores by lifetime XP from the stats rows.
func (h *RefreshLeaderboardHandler) buildSnapshot(
	ctx context.Context,
	period leaderboard.Period,
	allStats []*stats.UserStats,
	now time.Time,
) (leaderboard.Snapshot, error) {
	snap := leaderboard.Snapshot{Period: period, BuiltAt: now}

	windowStart, windowed := period.WindowStart(now, h.loc)
	if !windowed {
		for _, s := range allStats {
			if s.XP.Int() == 0 {
				continue
			}
			snap.Entries = append(snap.Entries, leaderboard.RankEntry{
				UserID: s.UserID,
				XP:     s.XP.Int(),
				Points: s.Points.Int(),
			})
		}
		leaderboard.SortEntries(snap.Entries)
		return snap, nil
	}

	totals, err := h.historyStore.TotalsSince(ctx, windowStart)
	if err != nil {
		return snap, fmt.Errorf("window totals: %w", err)
	}

	pointsByUser := make(map[string]int, len(allStats))
	for _, s := range allStats {
		pointsByUser[s.UserID] = s.Points.Int()
	}

	snap.WindowLow = windowStart
	for userID, xp := range totals {
		if xp == 0 {
			continue
		}
		snap.Entries = append(snap.Entries, leaderboard.RankEntry{
			UserID: userID,
			XP:     xp,
			Points: pointsByUser[userID],
		})
	}
	leaderboard.SortEntries(snap.Entries)
	return snap, nil
}
