package postgres

import (
	"context"
	"fmt"

	"github.com/brimiq/LearnQuest-Backend/internal/domain/gamification"
)

// ══════════════════════════════════════════════════════════════════════════════
// BADGE AWARD REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// BadgeAwardRepository implements gamification.BadgeAwardStore for PostgreSQL.
type BadgeAwardRepository struct {
	db Querier
}

// NewBadgeAwardRepository creates a new BadgeAwardRepository.
func NewBadgeAwardRepository(db Querier) *BadgeAwardRepository {
	return &BadgeAwardRepository{db: db}
}

// HasAward reports whether the user already holds the badge.
func (r *BadgeAwardRepository) HasAward(ctx context.Context, userID, badgeID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM badge_awards WHERE user_id = $1 AND badge_id = $2)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, userID, badgeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check badge award: %w", err)
	}
	return exists, nil
}

// Create records an award. ON CONFLICT DO NOTHING makes concurrent unlocks
// of the same badge converge to one row without an error.
func (r *BadgeAwardRepository) Create(ctx context.Context, award gamification.BadgeAward) error {
	query := `
		INSERT INTO badge_awards (user_id, badge_id, awarded_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, badge_id) DO NOTHING
	`

	if _, err := r.db.Exec(ctx, query, award.UserID, award.BadgeID, award.AwardedAt); err != nil {
		return fmt.Errorf("failed to create badge award: %w", err)
	}
	return nil
}

// ListForUser returns the user's awards ordered by AwardedAt ascending.
func (r *BadgeAwardRepository) ListForUser(ctx context.Context, userID string) ([]gamification.BadgeAward, error) {
	query := `
		SELECT user_id, badge_id, awarded_at
		FROM badge_awards
		WHERE user_id = $1
		ORDER BY awarded_at ASC, badge_id ASC
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list badge awards: %w", err)
	}
	defer rows.Close()

	var awards []gamification.BadgeAward
	for rows.Next() {
		var a gamification.BadgeAward
		if err := rows.Scan(&a.UserID, &a.BadgeID, &a.AwardedAt); err != nil {
			return nil, fmt.Errorf("failed to scan badge award: %w", err)
		}
		awards = append(awards, a)
	}
	return awards, rows.Err()
}
