package query

import (
	"context"
	"time"

	"github.com/brimiq/LearnQuest-Backend/internal/domain/gamification"
	"github.com/brimiq/LearnQuest-Backend/internal/domain/leaderboard"
	"github.com/brimiq/LearnQuest-Backend/internal/domain/shared"
	"github.com/brimiq/LearnQuest-Backend/internal/domain/stats"
)

// Minimal in-memory doubles for the read-side tests.

type fakeStatsStore struct {
	rows map[string]*stats.UserStats
}

func newFakeStatsStore() *fakeStatsStore {
	return &fakeStatsStore{rows: make(map[string]*stats.UserStats)}
}

func (f *fakeStatsStore) Load(ctx context.Context, userID string) (*stats.UserStats, error) {
	row, ok := f.rows[userID]
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	return row.Clone(), nil
}

func (f *fakeStatsStore) Create(ctx context.Context, s *stats.UserStats) error {
	f.rows[s.UserID] = s.Clone()
	return nil
}

func (f *fakeStatsStore) CompareAndSwap(ctx context.Context, s *stats.UserStats) error {
	f.rows[s.UserID] = s.Clone()
	return nil
}

func (f *fakeStatsStore) List(ctx context.Context) ([]*stats.UserStats, error) {
	out := make([]*stats.UserStats, 0, len(f.rows))
	for _, row := range f.rows {
		out = append(out, row.Clone())
	}
	return out, nil
}

func (f *fakeStatsStore) Delete(ctx context.Context, userID string) error {
	delete(f.rows, userID)
	return nil
}

type fakeHistoryStore struct {
	sums map[string]int
}

func (f *fakeHistoryStore) Record(ctx context.Context, e stats.XPEvent) error { return nil }

func (f *fakeHistoryStore) FindByKey(ctx context.Context, userID, key string) (*stats.XPEvent, error) {
	return nil, shared.ErrNotFound
}

func (f *fakeHistoryStore) SumSince(ctx context.Context, userID string, since time.Time) (int, error) {
	return f.sums[userID+"@"+since.Format("2006-01-02")], nil
}

func (f *fakeHistoryStore) TotalsSince(ctx context.Context, since time.Time) (map[string]int, error) {
	return nil, nil
}

func (f *fakeHistoryStore) EventsForUser(ctx context.Context, userID string, limit int) ([]stats.XPEvent, error) {
	return nil, nil
}

type fakeBadgeStore struct {
	awards []gamification.BadgeAward
}

func (f *fakeBadgeStore) HasAward(ctx context.Context, userID, badgeID string) (bool, error) {
	for _, a := range f.awards {
		if a.UserID == userID && a.BadgeID == badgeID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeBadgeStore) Create(ctx context.Context, award gamification.BadgeAward) error {
	f.awards = append(f.awards, award)
	return nil
}

func (f *fakeBadgeStore) ListForUser(ctx context.Context, userID string) ([]gamification.BadgeAward, error) {
	var out []gamification.BadgeAward
	for _, a := range f.awards {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

// fakeCache serves canned snapshots and counts misses. fillOnRefresh lets a
// test install the snapshot only after a refresh ran, mimicking the rebuild
// path.
type fakeCache struct {
	snapshots map[leaderboard.Period]leaderboard.Snapshot
	topCalls  int
}

func newFakeCache() *fakeCache {
	return &fakeCache{snapshots: make(map[leaderboard.Period]leaderboard.Snapshot)}
}

func (f *fakeCache) Put(ctx context.Context, snap leaderboard.Snapshot) error {
	f.snapshots[snap.Period] = snap
	return nil
}

func (f *fakeCache) Top(ctx context.Context, period leaderboard.Period, limit int) ([]leaderboard.RankEntry, int, time.Time, error) {
	f.topCalls++
	snap, ok := f.snapshots[period]
	if !ok {
		return nil, 0, time.Time{}, shared.ErrLeaderboardCacheMiss
	}
	entries := snap.Entries
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return entries, len(snap.Entries), snap.BuiltAt, nil
}

func (f *fakeCache) Around(ctx context.Context, period leaderboard.Period, userID string, radius int) (leaderboard.RankView, bool, error) {
	snap, ok := f.snapshots[period]
	if !ok {
		return leaderboard.RankView{}, false, shared.ErrLeaderboardCacheMiss
	}
	for i, e := range snap.Entries {
		if e.UserID == userID {
			lo, hi := i-radius, i+radius
			if lo < 0 {
				lo = 0
			}
			if hi >= len(snap.Entries) {
				hi = len(snap.Entries) - 1
			}
			var neighbors []leaderboard.RankEntry
			for j := lo; j <= hi; j++ {
				if j != i {
					neighbors = append(neighbors, snap.Entries[j])
				}
			}
			return leaderboard.RankView{Entry: e, Ranked: true, Neighbors: neighbors, Total: len(snap.Entries)}, true, nil
		}
	}
	tail := snap.Entries
	if len(tail) > radius*2 {
		tail = tail[len(tail)-radius*2:]
	}
	return leaderboard.RankView{Neighbors: tail, Total: len(snap.Entries)}, false, nil
}

// fakeRefresher installs a snapshot into the cache when asked, or fails.
type fakeRefresher struct {
	cache    *fakeCache
	snapshot *leaderboard.Snapshot
	err      error
	calls    int
}

func (f *fakeRefresher) Refresh(ctx context.Context, periods ...leaderboard.Period) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	if f.snapshot != nil {
		_ = f.cache.Put(ctx, *f.snapshot)
	}
	return nil
}
