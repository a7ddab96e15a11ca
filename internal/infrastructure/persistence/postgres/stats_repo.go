package postgres

import (
	"context"
	"fmt"

	"github.com/brimiq/LearnQuest-Backend/internal/domain/shared"
	"github.com/brimiq/LearnQuest-Backend/internal/domain/stats"
)

// ══════════════════════════════════════════════════════════════════════════════
// USER STATS REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// StatsRepository implements stats.Store for PostgreSQL. Writes go through a
// version-matched UPDATE; zero affected rows means another writer won.
type StatsRepository struct {
	db Querier
}

// NewStatsRepository creates a new StatsRepository. It accepts any Querier,
// so it runs equally over a Connection, a transaction, or a mock.
func NewStatsRepository(db Querier) *StatsRepository {
	return &StatsRepository{db: db}
}

// Load fetches the stats row for a user.
func (r *StatsRepository) Load(ctx context.Context, userID string) (*stats.UserStats, error) {
	query := `
		SELECT user_id, xp, points, streak_days, last_active_at, version, created_at, updated_at
		FROM user_stats
		WHERE user_id = $1
	`

	var s stats.UserStats
	var xp, points int64
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&s.UserID,
		&xp,
		&points,
		&s.StreakDays,
		&s.LastActiveAt,
		&s.Version,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, fmt.Errorf("stats for %s: %w", userID, shared.ErrUserNotFound)
		}
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}

	s.XP = stats.XP(xp)
	s.Points = stats.Points(points)
	return &s, nil
}

// Create inserts a zeroed stats row for a new user.
func (r *StatsRepository) Create(ctx context.Context, s *stats.UserStats) error {
	query := `
		INSERT INTO user_stats (user_id, xp, points, streak_days, last_active_at, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Exec(ctx, query,
		s.UserID,
		s.XP.Int(),
		s.Points.Int(),
		s.StreakDays,
		s.LastActiveAt,
		s.Version,
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("stats for %s: %w", s.UserID, shared.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create stats: %w", err)
	}
	return nil
}

// CompareAndSwap writes the row if its stored version still matches
// s.Version, and bumps the version. The caller's copy is advanced on
// success so a follow-up write sees the new version.
func (r *StatsRepository) CompareAndSwap(ctx context.Context, s *stats.UserStats) error {
	query := `
		UPDATE user_stats
		SET xp = $1, points = $2, streak_days = $3, last_active_at = $4,
			version = version + 1, updated_at = $5
		WHERE user_id = $6 AND version = $7
	`

	tag, err := r.db.Exec(ctx, query,
		s.XP.Int(),
		s.Points.Int(),
		s.StreakDays,
		s.LastActiveAt,
		s.UpdatedAt,
		s.UserID,
		s.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update stats: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("stats for %s at version %d: %w", s.UserID, s.Version, shared.ErrVersionConflict)
	}

	s.Version++
	return nil
}

// List returns every stats row.
func (r *StatsRepository) List(ctx context.Context) ([]*stats.UserStats, error) {
	query := `
		SELECT user_id, xp, points, streak_days, last_active_at, version, created_at, updated_at
		FROM user_stats
		ORDER BY user_id
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list stats: %w", err)
	}
	defer rows.Close()

	var result []*stats.UserStats
	for rows.Next() {
		var s stats.UserStats
		var xp, points int64
		if err := rows.Scan(
			&s.UserID,
			&xp,
			&points,
			&s.StreakDays,
			&s.LastActiveAt,
			&s.Version,
			&s.CreatedAt,
			&s.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan stats row: %w", err)
		}
		s.XP = stats.XP(xp)
		s.Points = stats.Points(points)
		result = append(result, &s)
	}
	return result, rows.Err()
}

// Delete removes the stats row for a user.
func (r *StatsRepository) Delete(ctx context.Context, userID string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM user_stats WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to delete stats: %w", err)
	}
	return nil
}
