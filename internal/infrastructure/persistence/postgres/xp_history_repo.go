package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/brimiq/LearnQuest-Backend/internal/domain/shared"
	"github.com/brimiq/LearnQuest-Backend/internal/domain/stats"
)

// ══════════════════════════════════════════════════════════════════════════════
// XP HISTORY REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// XPHistoryRepository implements stats.HistoryStore for PostgreSQL. The
// partial unique index on (user_id, idempotency_key) enforces replay
// detection at the database, not just in the handler.
type XPHistoryRepository struct {
	db Querier
}

// NewXPHistoryRepository creates a new XPHistoryRepository.
func NewXPHistoryRepository(db Querier) *XPHistoryRepository {
	return &XPHistoryRepository{db: db}
}

// Record appends one event.
func (r *XPHistoryRepository) Record(ctx context.Context, e stats.XPEvent) error {
	query := `
		INSERT INTO xp_events (id, user_id, amount, reason, idempotency_key, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	var key interface{}
	if e.IdempotencyKey != "" {
		key = e.IdempotencyKey
	}

	_, err := r.db.Exec(ctx, query, e.ID, e.UserID, e.Amount, e.Reason.String(), key, e.OccurredAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("xp event %s: %w", e.IdempotencyKey, shared.ErrDuplicateEvent)
		}
		return fmt.Errorf("failed to record xp event: %w", err)
	}
	return nil
}

// FindByKey returns the event recorded under an idempotency key.
func (r *XPHistoryRepository) FindByKey(ctx context.Context, userID, idempotencyKey string) (*stats.XPEvent, error) {
	query := `
		SELECT id, user_id, amount, reason, COALESCE(idempotency_key, ''), occurred_at
		FROM xp_events
		WHERE user_id = $1 AND idempotency_key = $2
	`

	var e stats.XPEvent
	var reason string
	err := r.db.QueryRow(ctx, query, userID, idempotencyKey).Scan(
		&e.ID, &e.UserID, &e.Amount, &reason, &e.IdempotencyKey, &e.OccurredAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, fmt.Errorf("xp event %s: %w", idempotencyKey, shared.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to look up xp event: %w", err)
	}
	e.Reason = stats.Reason(reason)
	return &e, nil
}

// SumSince returns the total XP one user earned at or after since.
func (r *XPHistoryRepository) SumSince(ctx context.Context, userID string, since time.Time) (int, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM xp_events
		WHERE user_id = $1 AND occurred_at >= $2
	`

	var sum int
	if err := r.db.QueryRow(ctx, query, userID, since).Scan(&sum); err != nil {
		return 0, fmt.Errorf("failed to sum xp events: %w", err)
	}
	return sum, nil
}

// TotalsSince returns per-user XP totals for events at or after since.
func (r *XPHistoryRepository) TotalsSince(ctx context.Context, since time.Time) (map[string]int, error) {
	query := `
		SELECT user_id, SUM(amount)
		FROM xp_events
		WHERE occurred_at >= $1
		GROUP BY user_id
	`

	rows, err := r.db.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to total xp events: %w", err)
	}
	defer rows.Close()

	totals := make(map[string]int)
	for rows.Next() {
		var userID string
		var sum int
		if err := rows.Scan(&userID, &sum); err != nil {
			return nil, fmt.Errorf("failed to scan xp total: %w", err)
		}
		totals[userID] = sum
	}
	return totals, rows.Err()
}

// EventsForUser lists a user's recent events, newest first.
func (r *XPHistoryRepository) EventsForUser(ctx context.Context, userID string, limit int) ([]stats.XPEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, user_id, amount, reason, COALESCE(idempotency_key, ''), occurred_at
		FROM xp_events
		WHERE user_id = $1
		ORDER BY occurred_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list xp events: %w", err)
	}
	defer rows.Close()

	var events []stats.XPEvent
	for rows.Next() {
		var e stats.XPEvent
		var reason string
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount, &reason, &e.IdempotencyKey, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan xp event: %w", err)
		}
		e.Reason = stats.Reason(reason)
		events = append(events, e)
	}
	return events, rows.Err()
}
