package stats

import (
	"context"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// ══════════════════════════════════════════════════════════════════════════════

// Store persists per-user stats rows with optimistic concurrency control.
type Store interface {
	// Load fetches the stats row for a user.
	// Returns shared.ErrUserNotFound if no row exists.
	Load(ctx context.Context, userID string) (*UserStats, error)

	// Create inserts a zeroed stats row for a new user.
	// Returns shared.ErrAlreadyExists if the user already has one.
	Create(ctx context.Context, s *UserStats) error

	// CompareAndSwap writes the row, matching on (UserID, Version) and
	// incrementing Version on success. Returns shared.ErrVersionConflict
	// when another writer got there first.
	CompareAndSwap(ctx context.Context, s *UserStats) error

	// List returns every stats row. The leaderboard builder joins these
	// with windowed XP totals.
	List(ctx context.Context) ([]*UserStats, error)

	// Delete removes the stats row for a user.
	Delete(ctx context.Context, userID string) error
}

// TxRunner executes fn against transactional views of the two stats stores.
// Implementations commit when fn returns nil and roll back otherwise, so the
// counters row and the event record land or fail together.
type TxRunner interface {
	InTx(ctx context.Context, fn func(Store, HistoryStore) error) error
}

// HistoryStore persists the append-only XP event log.
type HistoryStore interface {
	// Record appends one event. Returns shared.ErrDuplicateEvent when an
	// event with the same idempotency key is already recorded.
	Record(ctx context.Context, e XPEvent) error

	// FindByKey returns the event recorded under an idempotency key, or
	// shared.ErrNotFound when the key is unused.
	FindByKey(ctx context.Context, userID, idempotencyKey string) (*XPEvent, error)

	// SumSince returns the total XP one user earned at or after since.
	SumSince(ctx context.Context, userID string, since time.Time) (int, error)

	// TotalsSince returns per-user XP totals for all events at or after
	// since. Users with no events in the window are absent from the map.
	TotalsSince(ctx context.Context, since time.Time) (map[string]int, error)

	// EventsForUser lists a user's recent events, newest first.
	EventsForUser(ctx context.Context, userID string, limit int) ([]XPEvent, error)
}
