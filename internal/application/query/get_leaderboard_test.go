package query

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brimiq/LearnQuest-Backend/internal/domain/leaderboard"
	"github.com/brimiq/LearnQuest-Backend/internal/domain/shared"
)

func weeklySnapshot(builtAt time.Time, entries ...leaderboard.RankEntry) leaderboard.Snapshot {
	return leaderboard.Snapshot{
		Period:  leaderboard.PeriodWeekly,
		Entries: entries,
		BuiltAt: builtAt,
	}
}

func TestGetLeaderboard_ServesCachedSnapshot(t *testing.T) {
	builtAt := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	cache := newFakeCache()
	require.NoError(t, cache.Put(context.Background(), weeklySnapshot(builtAt,
		leaderboard.RankEntry{Rank: 1, UserID: "alice", XP: 500, Points: 500},
		leaderboard.RankEntry{Rank: 2, UserID: "bob", XP: 500, Points: 480},
		leaderboard.RankEntry{Rank: 3, UserID: "carol", XP: 120, Points: 120},
	)))
	handler := NewGetLeaderboardHandler(cache, nil)

	result, err := handler.Handle(context.Background(), GetLeaderboardQuery{Period: "weekly"})
	require.NoError(t, err)

	assert.Equal(t, "weekly", result.Period)
	assert.Equal(t, 3, result.TotalCount)
	assert.Equal(t, builtAt, result.GeneratedAt)
	require.Len(t, result.Entries, 3)
	assert.Equal(t, RankEntryDTO{Rank: 1, UserID: "alice", XP: 500, Points: 500}, result.Entries[0])
	assert.Equal(t, RankEntryDTO{Rank: 2, UserID: "bob", XP: 500, Points: 480}, result.Entries[1])
}

func TestGetLeaderboard_LimitTruncatesButTotalStays(t *testing.T) {
	builtAt := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	entries := make([]leaderboard.RankEntry, 0, 30)
	for i := 0; i < 30; i++ {
		entries = append(entries, leaderboard.RankEntry{
			Rank:   i + 1,
			UserID: fmt.Sprintf("user-%02d", i),
			XP:     1000 - i,
		})
	}
	cache := newFakeCache()
	require.NoError(t, cache.Put(context.Background(), weeklySnapshot(builtAt, entries...)))
	handler := NewGetLeaderboardHandler(cache, nil)

	result, err := handler.Handle(context.Background(), GetLeaderboardQuery{Period: "weekly", Limit: 5})
	require.NoError(t, err)

	assert.Len(t, result.Entries, 5)
	assert.Equal(t, 30, result.TotalCount)
	assert.Equal(t, "user-00", result.Entries[0].UserID)
}

func TestGetLeaderboard_Validation(t *testing.T) {
	cache := newFakeCache()
	handler := NewGetLeaderboardHandler(cache, nil)

	tests := []struct {
		name    string
		query   GetLeaderboardQuery
		wantErr error
	}{
		{"unknown period", GetLeaderboardQuery{Period: "yearly"}, shared.ErrInvalidPeriod},
		{"empty period", GetLeaderboardQuery{Period: ""}, shared.ErrInvalidPeriod},
		{"negative limit", GetLeaderboardQuery{Period: "daily", Limit: -1}, shared.ErrNegativeValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := handler.Handle(context.Background(), tt.query)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestGetLeaderboard_LimitDefaultAndCap(t *testing.T) {
	q := GetLeaderboardQuery{Period: "daily"}
	require.NoError(t, q.Validate())
	assert.Equal(t, 20, q.Limit)

	q = GetLeaderboardQuery{Period: "daily", Limit: 500}
	require.NoError(t, q.Validate())
	assert.Equal(t, 100, q.Limit)
}

func TestGetLeaderboard_CacheMissTriggersOneRefresh(t *testing.T) {
	builtAt := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	cache := newFakeCache()
	snap := weeklySnapshot(builtAt, leaderboard.RankEntry{Rank: 1, UserID: "alice", XP: 40})
	refresher := &fakeRefresher{cache: cache, snapshot: &snap}
	handler := NewGetLeaderboardHandler(cache, refresher)

	result, err := handler.Handle(context.Background(), GetLeaderboardQuery{Period: "weekly"})
	require.NoError(t, err)

	assert.Equal(t, 1, refresher.calls)
	assert.Equal(t, 2, cache.topCalls)
	require.Len(t, result.Entries, 1)
	assert.Equal(t, "alice", result.Entries[0].UserID)
}

func TestGetLeaderboard_PersistentMissIsUnavailable(t *testing.T) {
	cache := newFakeCache()
	refresher := &fakeRefresher{cache: cache} // refresh succeeds but fills nothing
	handler := NewGetLeaderboardHandler(cache, refresher)

	_, err := handler.Handle(context.Background(), GetLeaderboardQuery{Period: "monthly"})
	assert.ErrorIs(t, err, shared.ErrHistoryUnavailable)
	assert.Equal(t, 1, refresher.calls)
}

func TestGetLeaderboard_AllTimeMissDoesNotBlameHistory(t *testing.T) {
	// The all-time board is built from the stats rows alone; a persistent
	// miss there is a missing snapshot, not an absent history source.
	cache := newFakeCache()
	refresher := &fakeRefresher{cache: cache}
	handler := NewGetLeaderboardHandler(cache, refresher)

	_, err := handler.Handle(context.Background(), GetLeaderboardQuery{Period: "all_time"})
	assert.ErrorIs(t, err, shared.ErrBoardUnavailable)
	assert.NotErrorIs(t, err, shared.ErrHistoryUnavailable)
	assert.ErrorIs(t, err, shared.ErrServiceUnavailable, "still maps to 503")
}

func TestGetLeaderboard_RefreshFailureIsUnavailable(t *testing.T) {
	cache := newFakeCache()
	refresher := &fakeRefresher{cache: cache, err: fmt.Errorf("rebuild down")}
	handler := NewGetLeaderboardHandler(cache, refresher)

	_, err := handler.Handle(context.Background(), GetLeaderboardQuery{Period: "daily"})
	assert.ErrorIs(t, err, shared.ErrHistoryUnavailable)
}
