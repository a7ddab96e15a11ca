package query

import (
	"context"
	"fmt"
	"time"

	"github.com/brimiq/LearnQuest-Backend/internal/domain/gamification"
	"github.com/brimiq/LearnQuest-Backend/internal/domain/shared"
	"github.com/brimiq/LearnQuest-Backend/internal/domain/stats"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET BADGES QUERY
// The full catalog annotated with which badges the user holds and when each
// was earned.
// ══════════════════════════════════════════════════════════════════════════════

// GetBadgesQuery contains the badge listing request.
type GetBadgesQuery struct {
	UserID string
}

// Validate checks the query parameters.
func (q *GetBadgesQuery) Validate() error {
	if q.UserID == "" {
		return fmt.Errorf("user_id is required: %w", shared.ErrEmptyValue)
	}
	return nil
}

// BadgeDTO is one catalog badge with the user's ownership state.
type BadgeDTO struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Unlocked    bool       `json:"unlocked"`
	AwardedAt   *time.Time `json:"awarded_at,omitempty"`
}

// GetBadgesResult contains the annotated catalog.
type GetBadgesResult struct {
	UserID        string     `json:"user_id"`
	Badges        []BadgeDTO `json:"badges"`
	UnlockedCount int        `json:"unlocked_count"`
}

// GetBadgesHandler handles GetBadgesQuery.
type GetBadgesHandler struct {
	statsStore stats.Store
	badgeStore gamification.BadgeAwardStore
	catalog    *gamification.Catalog
}

// NewGetBadgesHandler creates a new GetBadgesHandler.
func NewGetBadgesHandler(
	statsStore stats.Store,
	badgeStore gamification.BadgeAwardStore,
	catalog *gamification.Catalog,
) *GetBadgesHandler {
	return &GetBadgesHandler{statsStore: statsStore, badgeStore: badgeStore, catalog: catalog}
}

// Handle executes the badge listing query.
func (h *GetBadgesHandler) Handle(ctx context.Context, query GetBadgesQuery) (*GetBadgesResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	if _, err := h.statsStore.Load(ctx, query.UserID); err != nil {
		return nil, fmt.Errorf("badges: %w", err)
	}

	awards, err := h.badgeStore.ListForUser(ctx, query.UserID)
	if err != nil {
		return nil, fmt.Errorf("badges: %w", err)
	}
	awardedAt := make(map[string]time.Time, len(awards))
	for _, a := range awards {
		awardedAt[a.BadgeID] = a.AwardedAt
	}

	result := &GetBadgesResult{UserID: query.UserID}
	for _, entry := range h.catalog.All() {
		dto := BadgeDTO{
			ID:          entry.Badge.ID,
			Name:        entry.Badge.Name,
			Description: entry.Badge.Description,
		}
		if at, ok := awardedAt[entry.Badge.ID]; ok {
			dto.Unlocked = true
			t := at
			dto.AwardedAt = &t
			result.UnlockedCount++
		}
		result.Badges = append(result.Badges, dto)
	}
	return result, nil
}
