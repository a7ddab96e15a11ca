// Package query contains read operations (CQRS - Queries).
// Queries never modify state - they only read and return data.
// Each query is a self-contained use case with its own request/response types.
package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/brimiq/LearnQuest-Backend/internal/domain/leaderboard"
	"github.com/brimiq/LearnQuest-Backend/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LEADERBOARD QUERY
// Serves the top-N ranking for a period from the cached snapshot. A missing
// snapshot triggers one synchronous rebuild; if that also fails the period
// is reported unavailable rather than served stale or empty.
// ══════════════════════════════════════════════════════════════════════════════

// Refresher rebuilds snapshots on demand. Satisfied by the refresh handler.
type Refresher interface {
	Refresh(ctx context.Context, periods ...leaderboard.Period) error
}

// GetLeaderboardQuery contains the leaderboard request parameters.
type GetLeaderboardQuery struct {
	// Period - daily, weekly, monthly or all_time.
	Period string

	// Limit - number of entries (default 20, max 100).
	Limit int
}

// Validate checks and normalizes the query parameters.
func (q *GetLeaderboardQuery) Validate() error {
	if _, err := leaderboard.ParsePeriod(q.Period); err != nil {
		return err
	}
	if q.Limit < 0 {
		return fmt.Errorf("limit cannot be negative: %w", shared.ErrNegativeValue)
	}
	if q.Limit == 0 {
		q.Limit = 20
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	return nil
}

// RankEntryDTO is one leaderboard row for transport.
type RankEntryDTO struct {
	// Rank - 1-based position.
	Rank int `json:"rank"`

	// UserID - the ranked user.
	UserID string `json:"user_id"`

	// XP - XP inside the period window.
	XP int `json:"xp"`

	// Points - current points balance.
	Points int `json:"points"`
}

// GetLeaderboardResult contains the leaderboard page.
type GetLeaderboardResult struct {
	// Period - the period this board covers.
	Period string `json:"period"`

	// Entries - the top entries in rank order.
	Entries []RankEntryDTO `json:"entries"`

	// TotalCount - number of ranked users in the period.
	TotalCount int `json:"total_count"`

	// GeneratedAt - when the underlying snapshot was built.
	GeneratedAt time.Time `json:"generated_at"`
}

// GetLeaderboardHandler handles GetLeaderboardQuery.
type GetLeaderboardHandler struct {
	cache     leaderboard.Cache
	refresher Refresher
}

// NewGetLeaderboardHandler creates a new GetLeaderboardHandler.
func NewGetLeaderboardHandler(cache leaderboard.Cache, refresher Refresher) *GetLeaderboardHandler {
	return &GetLeaderboardHandler{cache: cache, refresher: refresher}
}

// unavailableErr picks the error for a snapshot that could not be served.
// Windowed periods fail because they need the XP history; the all-time board
// is built from the stats rows alone, so its failure is just a missing
// snapshot.
func unavailableErr(period leaderboard.Period) error {
	if period == leaderboard.PeriodAllTime {
		return shared.ErrBoardUnavailable
	}
	return shared.ErrHistoryUnavailable
}

// Handle executes the leaderboard query.
func (h *GetLeaderboardHandler) Handle(ctx context.Context, query GetLeaderboardQuery) (*GetLeaderboardResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	period, _ := leaderboard.ParsePeriod(query.Period)

	entries, total, builtAt, err := h.cache.Top(ctx, period, query.Limit)
	if errors.Is(err, shared.ErrLeaderboardCacheMiss) && h.refresher != nil {
		if rerr := h.refresher.Refresh(ctx, period); rerr == nil {
			entries, total, builtAt, err = h.cache.Top(ctx, period, query.Limit)
		}
	}
	if err != nil {
		if errors.Is(err, shared.ErrLeaderboardCacheMiss) {
			return nil, fmt.Errorf("leaderboard %s: %w", period, unavailableErr(period))
		}
		return nil, fmt.Errorf("leaderboard %s: %w", period, err)
	}

	result := &GetLeaderboardResult{
		Period:      period.String(),
		Entries:     make([]RankEntryDTO, 0, len(entries)),
		TotalCount:  total,
		GeneratedAt: builtAt,
	}
	for _, e := range entries {
		result.Entries = append(result.Entries, RankEntryDTO{
			Rank:   e.Rank,
			UserID: e.UserID,
			XP:     e.XP,
			Points: e.Points,
		})
	}
	return result, nil
}
