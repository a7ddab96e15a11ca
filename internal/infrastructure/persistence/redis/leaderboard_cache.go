package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/brimiq/LearnQuest-Backend/internal/domain/leaderboard"
	"github.com/brimiq/LearnQuest-Backend/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD CACHE
// ══════════════════════════════════════════════════════════════════════════════

// Key patterns for leaderboard cache.
const (
	// keyRank is the sorted set holding userID scored by precomputed rank.
	keyRank = "leaderboard:rank:"

	// keyInfo is the hash holding userID -> entry JSON.
	keyInfo = "leaderboard:info:"

	// keyMeta is the snapshot metadata key.
	keyMeta = "leaderboard:meta:"
)

// TTLSnapshot bounds how long a snapshot survives without a refresh. A
// stalled scheduler surfaces as a cache miss rather than a frozen board.
const TTLSnapshot = 10 * time.Minute

// snapshotMeta is the per-period metadata blob.
type snapshotMeta struct {
	BuiltAt   time.Time `json:"built_at"`
	Total     int       `json:"total"`
	WindowLow time.Time `json:"window_low,omitempty"`
}

// LeaderboardCache implements leaderboard.Cache on Redis sorted sets.
//
// Layout per period:
//   - Sorted set "leaderboard:rank:{period}" maps userID -> rank. Scores are
//     the ranks assigned at build time, not raw XP, so the XP-desc and
//     userID-asc tie-break survives the round trip exactly.
//   - Hash "leaderboard:info:{period}" maps userID -> entry JSON.
//   - String "leaderboard:meta:{period}" holds build time and entry count.
//
// Rank lookups are O(log N); range reads are O(log N + M).
type LeaderboardCache struct {
	cache *Cache
	ttl   time.Duration
}

// NewLeaderboardCache creates a LeaderboardCache.
func NewLeaderboardCache(cache *Cache) *LeaderboardCache {
	return &LeaderboardCache{cache: cache, ttl: TTLSnapshot}
}

// WithTTL overrides the snapshot TTL.
func (l *LeaderboardCache) WithTTL(ttl time.Duration) *LeaderboardCache {
	if ttl > 0 {
		l.ttl = ttl
	}
	return l
}

// ─────────────────────────────────────────────────────────────────────────────
// Write path
// ─────────────────────────────────────────────────────────────────────────────

// Put replaces the snapshot for snap.Period. The delete and rebuild run in
// one pipeline so readers never see a half-written board.
func (l *LeaderboardCache) Put(ctx context.Context, snap leaderboard.Snapshot) error {
	period := snap.Period.String()
	rankKey := keyRank + period
	infoKey := keyInfo + period
	metaKey := keyMeta + period

	metaData, err := json.Marshal(snapshotMeta{
		BuiltAt:   snap.BuiltAt,
		Total:     len(snap.Entries),
		WindowLow: snap.WindowLow,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal meta: %w", err)
	}

	pipe := l.cache.Client().TxPipeline()
	pipe.Del(ctx, rankKey, infoKey)

	if len(snap.Entries) > 0 {
		members := make([]redis.Z, 0, len(snap.Entries))
		info := make(map[string]interface{}, len(snap.Entries))
		for _, e := range snap.Entries {
			data, err := json.Marshal(e)
			if err != nil {
				return fmt.Errorf("failed to marshal entry: %w", err)
			}
			members = append(members, redis.Z{Score: float64(e.Rank), Member: e.UserID})
			info[e.UserID] = data
		}
		pipe.ZAdd(ctx, rankKey, members...)
		pipe.HSet(ctx, infoKey, info)
		pipe.Expire(ctx, rankKey, l.ttl)
		pipe.Expire(ctx, infoKey, l.ttl)
	}

	pipe.Set(ctx, metaKey, metaData, l.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Read path
// ─────────────────────────────────────────────────────────────────────────────

// Top returns the highest-ranked limit entries.
func (l *LeaderboardCache) Top(ctx context.Context, period leaderboard.Period, limit int) ([]leaderboard.RankEntry, int, time.Time, error) {
	meta, err := l.loadMeta(ctx, period)
	if err != nil {
		return nil, 0, time.Time{}, err
	}
	if meta.Total == 0 {
		return nil, 0, meta.BuiltAt, nil
	}

	ids, err := l.cache.Client().ZRange(ctx, keyRank+period.String(), 0, int64(limit)-1).Result()
	if err != nil {
		return nil, 0, time.Time{}, fmt.Errorf("failed to read ranking: %w", err)
	}

	entries, err := l.loadEntries(ctx, period, ids)
	if err != nil {
		return nil, 0, time.Time{}, err
	}
	return entries, meta.Total, meta.BuiltAt, nil
}

// Around returns the user's entry with up to radius neighbors on each side.
func (l *LeaderboardCache) Around(ctx context.Context, period leaderboard.Period, userID string, radius int) (leaderboard.RankView, bool, error) {
	var view leaderboard.RankView

	meta, err := l.loadMeta(ctx, period)
	if err != nil {
		return view, false, err
	}
	view.Total = meta.Total

	client := l.cache.Client()
	rankKey := keyRank + period.String()

	pos, err := client.ZRank(ctx, rankKey, userID).Result()
	if errors.Is(err, redis.Nil) {
		// Unranked: return the board's tail as context.
		low := int64(meta.Total) - int64(radius)*2
		if low < 0 {
			low = 0
		}
		ids, rerr := client.ZRange(ctx, rankKey, low, -1).Result()
		if rerr != nil {
			return view, false, fmt.Errorf("failed to read ranking: %w", rerr)
		}
		view.Neighbors, err = l.loadEntries(ctx, period, ids)
		if err != nil {
			return view, false, err
		}
		return view, false, nil
	}
	if err != nil {
		return view, false, fmt.Errorf("failed to look up rank: %w", err)
	}

	low := pos - int64(radius)
	if low < 0 {
		low = 0
	}
	high := pos + int64(radius)

	ids, err := client.ZRange(ctx, rankKey, low, high).Result()
	if err != nil {
		return view, false, fmt.Errorf("failed to read ranking: %w", err)
	}
	entries, err := l.loadEntries(ctx, period, ids)
	if err != nil {
		return view, false, err
	}

	for _, e := range entries {
		if e.UserID == userID {
			view.Entry = e
			continue
		}
		view.Neighbors = append(view.Neighbors, e)
	}
	return view, true, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func (l *LeaderboardCache) loadMeta(ctx context.Context, period leaderboard.Period) (snapshotMeta, error) {
	var meta snapshotMeta

	data, err := l.cache.Client().Get(ctx, keyMeta+period.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return meta, fmt.Errorf("snapshot %s: %w", period, shared.ErrLeaderboardCacheMiss)
	}
	if err != nil {
		return meta, fmt.Errorf("failed to read meta: %w", err)
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return meta, fmt.Errorf("failed to decode meta: %w", err)
	}
	return meta, nil
}

func (l *LeaderboardCache) loadEntries(ctx context.Context, period leaderboard.Period, ids []string) ([]leaderboard.RankEntry, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	raw, err := l.cache.Client().HMGet(ctx, keyInfo+period.String(), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read entries: %w", err)
	}

	entries := make([]leaderboard.RankEntry, 0, len(raw))
	for i, v := range raw {
		s, ok := v.(string)
		if !ok {
			// Info hash out of sync with the rank set. Treat as a miss so
			// the caller triggers a rebuild.
			return nil, fmt.Errorf("entry %s missing: %w", ids[i], shared.ErrLeaderboardCacheMiss)
		}
		var e leaderboard.RankEntry
		if err := json.Unmarshal([]byte(s), &e); err != nil {
			return nil, fmt.Errorf("failed to decode entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
