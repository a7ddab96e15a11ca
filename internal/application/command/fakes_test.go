package command

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/brimiq/LearnQuest-Backend/internal/domain/account"
	"github.com/brimiq/LearnQuest-Backend/internal/domain/gamification"
	"github.com/brimiq/LearnQuest-Backend/internal/domain/leaderboard"
	"github.com/brimiq/LearnQuest-Backend/internal/domain/shared"
	"github.com/brimiq/LearnQuest-Backend/internal/domain/stats"
	"github.com/brimiq/LearnQuest-Backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{Output: io.Discard, Level: logger.LevelError})
}

// In-memory doubles for the handler tests. They mimic the persistence
// contracts, including version conflicts and idempotency key uniqueness.

// ─────────────────────────────────────────────────────────────────────────────
// Stats store
// ─────────────────────────────────────────────────────────────────────────────

type memStatsStore struct {
	mu   sync.Mutex
	rows map[string]*stats.UserStats

	// forceConflicts makes the next N CompareAndSwap calls fail with a
	// version conflict.
	forceConflicts int
	casCalls       int
}

func newMemStatsStore() *memStatsStore {
	return &memStatsStore{rows: make(map[string]*stats.UserStats)}
}

func (m *memStatsStore) seed(s *stats.UserStats) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[s.UserID] = s.Clone()
}

func (m *memStatsStore) Load(ctx context.Context, userID string) (*stats.UserStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[userID]
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	return row.Clone(), nil
}

func (m *memStatsStore) Create(ctx context.Context, s *stats.UserStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[s.UserID]; ok {
		return shared.ErrAlreadyExists
	}
	m.rows[s.UserID] = s.Clone()
	return nil
}

func (m *memStatsStore) CompareAndSwap(ctx context.Context, s *stats.UserStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.casCalls++
	if m.forceConflicts > 0 {
		m.forceConflicts--
		return shared.ErrVersionConflict
	}
	current, ok := m.rows[s.UserID]
	if !ok || current.Version != s.Version {
		return shared.ErrVersionConflict
	}
	s.Version++
	m.rows[s.UserID] = s.Clone()
	return nil
}

func (m *memStatsStore) List(ctx context.Context) ([]*stats.UserStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*stats.UserStats, 0, len(m.rows))
	for _, row := range m.rows {
		out = append(out, row.Clone())
	}
	return out, nil
}

func (m *memStatsStore) Delete(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, userID)
	return nil
}

func (m *memStatsStore) snapshot() map[string]*stats.UserStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := make(map[string]*stats.UserStats, len(m.rows))
	for id, row := range m.rows {
		snap[id] = row.Clone()
	}
	return snap
}

func (m *memStatsStore) restore(snap map[string]*stats.UserStats) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = snap
}

// ─────────────────────────────────────────────────────────────────────────────
// History store
// ─────────────────────────────────────────────────────────────────────────────

type memHistoryStore struct {
	mu     sync.Mutex
	events []stats.XPEvent

	recordErr error
}

func newMemHistoryStore() *memHistoryStore {
	return &memHistoryStore{}
}

func (m *memHistoryStore) Record(ctx context.Context, e stats.XPEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.recordErr != nil {
		return m.recordErr
	}
	if e.IdempotencyKey != "" {
		for _, got := range m.events {
			if got.UserID == e.UserID && got.IdempotencyKey == e.IdempotencyKey {
				return shared.ErrDuplicateEvent
			}
		}
	}
	m.events = append(m.events, e)
	return nil
}

func (m *memHistoryStore) snapshot() []stats.XPEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]stats.XPEvent(nil), m.events...)
}

func (m *memHistoryStore) restore(snap []stats.XPEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = snap
}

func (m *memHistoryStore) FindByKey(ctx context.Context, userID, idempotencyKey string) (*stats.XPEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e.UserID == userID && e.IdempotencyKey == idempotencyKey {
			found := e
			return &found, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memHistoryStore) SumSince(ctx context.Context, userID string, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, e := range m.events {
		if e.UserID == userID && !e.OccurredAt.Before(since) {
			total += e.Amount
		}
	}
	return total, nil
}

func (m *memHistoryStore) TotalsSince(ctx context.Context, since time.Time) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	totals := make(map[string]int)
	for _, e := range m.events {
		if !e.OccurredAt.Before(since) {
			totals[e.UserID] += e.Amount
		}
	}
	return totals, nil
}

func (m *memHistoryStore) EventsForUser(ctx context.Context, userID string, limit int) ([]stats.XPEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []stats.XPEvent
	for i := len(m.events) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if m.events[i].UserID == userID {
			out = append(out, m.events[i])
		}
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Transaction runner
// ─────────────────────────────────────────────────────────────────────────────

// memTxRunner gives the two stores all-or-nothing semantics: on error the
// pre-call state is restored, mirroring a database rollback.
type memTxRunner struct {
	stats   *memStatsStore
	history *memHistoryStore
}

func (m *memTxRunner) InTx(ctx context.Context, fn func(stats.Store, stats.HistoryStore) error) error {
	statsSnap := m.stats.snapshot()
	historySnap := m.history.snapshot()
	if err := fn(m.stats, m.history); err != nil {
		m.stats.restore(statsSnap)
		m.history.restore(historySnap)
		return err
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Badge award store
// ─────────────────────────────────────────────────────────────────────────────

type memBadgeStore struct {
	mu     sync.Mutex
	awards map[string]gamification.BadgeAward

	hasAwardErr error
	createErr   error
}

func newMemBadgeStore() *memBadgeStore {
	return &memBadgeStore{awards: make(map[string]gamification.BadgeAward)}
}

func badgeKey(userID, badgeID string) string { return userID + "/" + badgeID }

func (m *memBadgeStore) HasAward(ctx context.Context, userID, badgeID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hasAwardErr != nil {
		return false, m.hasAwardErr
	}
	_, ok := m.awards[badgeKey(userID, badgeID)]
	return ok, nil
}

func (m *memBadgeStore) Create(ctx context.Context, award gamification.BadgeAward) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	key := badgeKey(award.UserID, award.BadgeID)
	if _, ok := m.awards[key]; !ok {
		m.awards[key] = award
	}
	return nil
}

func (m *memBadgeStore) ListForUser(ctx context.Context, userID string) ([]gamification.BadgeAward, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []gamification.BadgeAward
	for _, a := range m.awards {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Event publisher
// ─────────────────────────────────────────────────────────────────────────────

type capturePublisher struct {
	mu     sync.Mutex
	events []shared.Event
}

func (p *capturePublisher) Publish(ctx context.Context, events ...shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *capturePublisher) byType(t shared.EventType) []shared.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []shared.Event
	for _, e := range p.events {
		if e.EventType() == t {
			out = append(out, e)
		}
	}
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// Leaderboard cache
// ─────────────────────────────────────────────────────────────────────────────

type memLeaderboardCache struct {
	mu        sync.Mutex
	snapshots map[leaderboard.Period]leaderboard.Snapshot

	putErr error
}

func newMemLeaderboardCache() *memLeaderboardCache {
	return &memLeaderboardCache{snapshots: make(map[leaderboard.Period]leaderboard.Snapshot)}
}

func (m *memLeaderboardCache) Put(ctx context.Context, snap leaderboard.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.snapshots[snap.Period] = snap
	return nil
}

func (m *memLeaderboardCache) Top(ctx context.Context, period leaderboard.Period, limit int) ([]leaderboard.RankEntry, int, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.snapshots[period]
	if !ok {
		return nil, 0, time.Time{}, shared.ErrLeaderboardCacheMiss
	}
	entries := snap.Entries
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return entries, len(snap.Entries), snap.BuiltAt, nil
}

func (m *memLeaderboardCache) Around(ctx context.Context, period leaderboard.Period, userID string, radius int) (leaderboard.RankView, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.snapshots[period]
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
			return leaderboard.RankView{
				Entry:     e,
				Ranked:    true,
				Neighbors: neighbors,
				Total:     len(snap.Entries),
			}, true, nil
		}
	}
	tail := snap.Entries
	if len(tail) > radius*2 {
		tail = tail[len(tail)-radius*2:]
	}
	return leaderboard.RankView{Neighbors: tail, Total: len(snap.Entries)}, false, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Account repository
// ─────────────────────────────────────────────────────────────────────────────

type memAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]*account.Account

	createErr error
}

func newMemAccountRepo() *memAccountRepo {
	return &memAccountRepo{accounts: make(map[string]*account.Account)}
}

func (m *memAccountRepo) Create(ctx context.Context, a *account.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	for _, got := range m.accounts {
		if got.Username == a.Username || got.Email == a.Email {
			return shared.ErrAccountExists
		}
	}
	copied := *a
	m.accounts[a.ID] = &copied
	return nil
}

func (m *memAccountRepo) GetByID(ctx context.Context, id string) (*account.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, shared.ErrAccountNotFound
	}
	copied := *a
	return &copied, nil
}

func (m *memAccountRepo) GetByEmail(ctx context.Context, email string) (*account.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.Email == email {
			copied := *a
			return &copied, nil
		}
	}
	return nil, shared.ErrAccountNotFound
}

func (m *memAccountRepo) Exists(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.accounts[id]
	return ok, nil
}

var errStoreDown = errors.New("store down")
