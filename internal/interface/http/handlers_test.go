package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brimiq/LearnQuest-Backend/internal/application/command"
	"github.com/brimiq/LearnQuest-Backend/internal/domain/gamification"
	"github.com/brimiq/LearnQuest-Backend/internal/domain/shared"
	"github.com/brimiq/LearnQuest-Backend/internal/domain/stats"
	"github.com/brimiq/LearnQuest-Backend/pkg/logger"
)

// Minimal in-memory stores backing a real award handler, so the activities
// endpoint is exercised end to end through the router.

type stubStatsStore struct {
	rows map[string]*stats.UserStats
}

func (s *stubStatsStore) Load(ctx context.Context, userID string) (*stats.UserStats, error) {
	row, ok := s.rows[userID]
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	return row.Clone(), nil
}

func (s *stubStatsStore) Create(ctx context.Context, row *stats.UserStats) error {
	s.rows[row.UserID] = row.Clone()
	return nil
}

func (s *stubStatsStore) CompareAndSwap(ctx context.Context, row *stats.UserStats) error {
	current, ok := s.rows[row.UserID]
	if !ok || current.Version != row.Version {
		return shared.ErrVersionConflict
	}
	row.Version++
	s.rows[row.UserID] = row.Clone()
	return nil
}

func (s *stubStatsStore) List(ctx context.Context) ([]*stats.UserStats, error) { return nil, nil }

func (s *stubStatsStore) Delete(ctx context.Context, userID string) error {
	delete(s.rows, userID)
	return nil
}

type stubHistoryStore struct {
	events []stats.XPEvent
}

func (s *stubHistoryStore) Record(ctx context.Context, e stats.XPEvent) error {
	if e.IdempotencyKey != "" {
		for _, got := range s.events {
			if got.UserID == e.UserID && got.IdempotencyKey == e.IdempotencyKey {
				return shared.ErrDuplicateEvent
			}
		}
	}
	s.events = append(s.events, e)
	return nil
}

func (s *stubHistoryStore) FindByKey(ctx context.Context, userID, key string) (*stats.XPEvent, error) {
	for _, e := range s.events {
		if e.UserID == userID && e.IdempotencyKey == key {
			found := e
			return &found, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (s *stubHistoryStore) SumSince(ctx context.Context, userID string, since time.Time) (int, error) {
	return 0, nil
}

func (s *stubHistoryStore) TotalsSince(ctx context.Context, since time.Time) (map[string]int, error) {
	return nil, nil
}

func (s *stubHistoryStore) EventsForUser(ctx context.Context, userID string, limit int) ([]stats.XPEvent, error) {
	return nil, nil
}

type stubTxRunner struct {
	stats   stats.Store
	history stats.HistoryStore
}

func (s *stubTxRunner) InTx(ctx context.Context, fn func(stats.Store, stats.HistoryStore) error) error {
	return fn(s.stats, s.history)
}

type stubBadgeStore struct{}

func (stubBadgeStore) HasAward(ctx context.Context, userID, badgeID string) (bool, error) {
	return false, nil
}
func (stubBadgeStore) Create(ctx context.Context, award gamification.BadgeAward) error { return nil }
func (stubBadgeStore) ListForUser(ctx context.Context, userID string) ([]gamification.BadgeAward, error) {
	return nil, nil
}

type stubPublisher struct{}

func (stubPublisher) Publish(ctx context.Context, events ...shared.Event) error { return nil }

func newActivityServer(t *testing.T, store *stubStatsStore) *Server {
	t.Helper()

	history := &stubHistoryStore{}
	log := logger.New(logger.Options{Output: io.Discard, Level: logger.LevelError})

	awardHandler := command.NewAwardXPHandler(
		store, history,
		&stubTxRunner{stats: store, history: history},
		stubBadgeStore{},
		gamification.DefaultCatalog(),
		gamification.NewStreakTracker(time.UTC),
		stubPublisher{}, log,
		command.DefaultAwardXPHandlerConfig(),
	)

	cfg := DefaultConfig()
	cfg.RateLimitPerMinute = 0

	return NewServer(cfg, Dependencies{
		AwardXPHandler: awardHandler,
		Logger:         log,
	})
}

func postActivity(t *testing.T, srv *Server, userID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/"+userID+"/activities",
		bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, req)
	return rec
}

func TestRecordActivity_AwardsXP(t *testing.T) {
	store := &stubStatsStore{rows: map[string]*stats.UserStats{}}
	row, err := stats.NewUserStats("user-1", time.Now().UTC())
	require.NoError(t, err)
	store.rows["user-1"] = row

	srv := newActivityServer(t, store)
	rec := postActivity(t, srv, "user-1", `{"type":"quiz_pass"}`)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Success bool                   `json:"success"`
		Data    map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, float64(25), resp.Data["XPAwarded"])
	assert.Equal(t, float64(1), resp.Data["StreakDays"])

	// The stored counters moved.
	updated, err := store.Load(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 25, updated.XP.Int())
}

func TestRecordActivity_UnknownReasonIsRejected(t *testing.T) {
	store := &stubStatsStore{rows: map[string]*stats.UserStats{}}
	row, err := stats.NewUserStats("user-1", time.Now().UTC())
	require.NoError(t, err)
	store.rows["user-1"] = row

	srv := newActivityServer(t, store)
	rec := postActivity(t, srv, "user-1", `{"type":"login"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecordActivity_UnknownUser(t *testing.T) {
	store := &stubStatsStore{rows: map[string]*stats.UserStats{}}
	srv := newActivityServer(t, store)

	rec := postActivity(t, srv, "ghost", `{"type":"quiz_pass"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecordActivity_ReplayedKeyIsAcknowledged(t *testing.T) {
	store := &stubStatsStore{rows: map[string]*stats.UserStats{}}
	row, err := stats.NewUserStats("user-1", time.Now().UTC())
	require.NoError(t, err)
	store.rows["user-1"] = row

	srv := newActivityServer(t, store)

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/users/user-1/activities",
			bytes.NewBufferString(`{"type":"resource_complete"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Idempotency-Key", "delivery-1")
		rec := httptest.NewRecorder()
		srv.httpServer.Handler.ServeHTTP(rec, req)
		return rec
	}

	first := send()
	assert.Equal(t, http.StatusCreated, first.Code)

	second := send()
	assert.Equal(t, http.StatusOK, second.Code, "a replay acknowledges without a new award")

	updated, err := store.Load(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 10, updated.XP.Int(), "counters moved once")
}
