package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/brimiq/LearnQuest-Backend/internal/domain/leaderboard"
	"github.com/brimiq/LearnQuest-Backend/internal/domain/shared"
	"github.com/brimiq/LearnQuest-Backend/internal/domain/stats"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET USER RANK QUERY
// One user's position in a period with up to two neighbors above and below.
// Users with no XP in the window come back unranked with the board's tail as
// context, so the response shape stays the same.
// ══════════════════════════════════════════════════════════════════════════════

// neighborRadius is how many entries to include on each side of the user.
const neighborRadius = 2

// GetUserRankQuery contains the rank request parameters.
type GetUserRankQuery struct {
	UserID string
	Period string
}

// Validate checks the query parameters.
func (q *GetUserRankQuery) Validate() error {
	if q.UserID == "" {
		return fmt.Errorf("user_id is required: %w", shared.ErrEmptyValue)
	}
	if _, err := leaderboard.ParsePeriod(q.Period); err != nil {
		return err
	}
	return nil
}

// GetUserRankResult contains the user's position and surroundings.
type GetUserRankResult struct {
	// Period - the period this rank covers.
	Period string `json:"period"`

	// UserID - the user asked about.
	UserID string `json:"user_id"`

	// Ranked - false when the user has no XP in the window.
	Ranked bool `json:"ranked"`

	// Rank - 1-based position, 0 when unranked.
	Rank int `json:"rank"`

	// XP - XP inside the window, 0 when unranked.
	XP int `json:"xp"`

	// Points - current points balance.
	Points int `json:"points"`

	// Neighbors - up to two entries on each side of the user; for an
	// unranked user, the bottom of the board.
	Neighbors []RankEntryDTO `json:"neighbors"`

	// TotalRanked - number of ranked users in the period.
	TotalRanked int `json:"total_ranked"`
}

// GetUserRankHandler handles GetUserRankQuery.
type GetUserRankHandler struct {
	cache      leaderboard.Cache
	statsStore stats.Store
	refresher  Refresher
}

// NewGetUserRankHandler creates a new GetUserRankHandler.
func NewGetUserRankHandler(cache leaderboard.Cache, statsStore stats.Store, refresher Refresher) *GetUserRankHandler {
	return &GetUserRankHandler{cache: cache, statsStore: statsStore, refresher: refresher}
}

// Handle executes the rank query.
func (h *GetUserRankHandler) Handle(ctx context.Context, query GetUserRankQuery) (*GetUserRankResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	period, _ := leaderboard.ParsePeriod(query.Period)

	// The user must exist even if unranked in the window.
	userStats, err := h.statsStore.Load(ctx, query.UserID)
	if err != nil {
		return nil, fmt.Errorf("rank %s: %w", query.UserID, err)
	}

	view, found, err := h.cache.Around(ctx, period, query.UserID, neighborRadius)
	if errors.Is(err, shared.ErrLeaderboardCacheMiss) && h.refresher != nil {
		if rerr := h.refresher.Refresh(ctx, period); rerr == nil {
			view, found, err = h.cache.Around(ctx, period, query.UserID, neighborRadius)
		}
	}
	if err != nil {
		if errors.Is(err, shared.ErrLeaderboardCacheMiss) {
			return nil, fmt.Errorf("rank %s: %w", period, unavailableErr(period))
		}
		return nil, fmt.Errorf("rank %s: %w", period, err)
	}

	result := &GetUserRankResult{
		Period:      period.String(),
		UserID:      query.UserID,
		Points:      userStats.Points.Int(),
		TotalRanked: view.Total,
		Neighbors:   make([]RankEntryDTO, 0, len(view.Neighbors)),
	}

	if found {
		result.Ranked = true
		result.Rank = view.Entry.Rank
		result.XP = view.Entry.XP
	}
	for _, e := range view.Neighbors {
		result.Neighbors = append(result.Neighbors, RankEntryDTO{
			Rank:   e.Rank,
			UserID: e.UserID,
			XP:     e.XP,
			Points: e.Points,
		})
	}
	return result, nil
}
