package gamification

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/brimiq/LearnQuest-Backend/internal/domain/shared"
	"github.com/brimiq/LearnQuest-Backend/internal/domain/stats"
)

// ══════════════════════════════════════════════════════════════════════════════
// BADGES
// ══════════════════════════════════════════════════════════════════════════════

// Badge is a named achievement a user unlocks once.
type Badge struct {
	// ID - stable machine identifier, e.g. "streak_7".
	ID string

	// Name - human-readable title.
	Name string

	// Description - what the user did to earn it.
	Description string
}

// Predicate decides whether a user's current stats satisfy a badge's
// unlock condition. Implementations must be pure over their inputs.
type Predicate interface {
	// Satisfied reports whether the badge condition holds for s.
	Satisfied(s *stats.UserStats) bool
}

// PredicateFunc adapts a plain function to the Predicate interface.
type PredicateFunc func(s *stats.UserStats) bool

// Satisfied implements Predicate.
func (f PredicateFunc) Satisfied(s *stats.UserStats) bool {
	return f(s)
}

// ══════════════════════════════════════════════════════════════════════════════
// BADGE CATALOG
// ══════════════════════════════════════════════════════════════════════════════

// CatalogEntry pairs a badge with its unlock predicate.
type CatalogEntry struct {
	Badge     Badge
	Predicate Predicate
}

// Catalog is the registry of all known badges. New badge kinds are added by
// registering an entry; the award path never needs to change.
type Catalog struct {
	mu      sync.RWMutex
	entries map[string]CatalogEntry
	order   []string
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{entries: make(map[string]CatalogEntry)}
}

// Register adds a badge and its predicate. Registering a duplicate ID
// returns shared.ErrAlreadyExists.
func (c *Catalog) Register(badge Badge, pred Predicate) error {
	if badge.ID == "" {
		return fmt.Errorf("badge id is required: %w", shared.ErrEmptyValue)
	}
	if pred == nil {
		return fmt.Errorf("badge %s has no predicate: %w", badge.ID, shared.ErrInvalidInput)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[badge.ID]; ok {
		return fmt.Errorf("badge %s: %w", badge.ID, shared.ErrAlreadyExists)
	}
	c.entries[badge.ID] = CatalogEntry{Badge: badge, Predicate: pred}
	c.order = append(c.order, badge.ID)
	return nil
}

// Get returns one badge by ID, or shared.ErrBadgeNotFound.
func (c *Catalog) Get(id string) (Badge, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[id]
	if !ok {
		return Badge{}, fmt.Errorf("badge %s: %w", id, shared.ErrBadgeNotFound)
	}
	return entry.Badge, nil
}

// All returns every registered entry in registration order.
func (c *Catalog) All() []CatalogEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]CatalogEntry, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.entries[id])
	}
	return out
}

// Evaluate runs every predicate against s and returns the badges whose
// conditions hold, sorted by ID for deterministic output. It does not check
// whether the user already holds them.
func (c *Catalog) Evaluate(s *stats.UserStats) []Badge {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var satisfied []Badge
	for _, entry := range c.entries {
		if entry.Predicate.Satisfied(s) {
			satisfied = append(satisfied, entry.Badge)
		}
	}
	sort.Slice(satisfied, func(i, j int) bool {
		return satisfied[i].ID < satisfied[j].ID
	})
	return satisfied
}

// DefaultCatalog builds the standard badge set: streak milestones plus
// lifetime-XP thresholds.
func DefaultCatalog() *Catalog {
	c := NewCatalog()

	streakBadge := func(id, name, desc string, days int) {
		_ = c.Register(
			Badge{ID: id, Name: name, Description: desc},
			PredicateFunc(func(s *stats.UserStats) bool { return s.StreakDays >= days }),
		)
	}
	xpBadge := func(id, name, desc string, xp int) {
		_ = c.Register(
			Badge{ID: id, Name: name, Description: desc},
			PredicateFunc(func(s *stats.UserStats) bool { return s.XP.Int() >= xp }),
		)
	}

	streakBadge("streak_7", "Week Warrior", "Kept a 7-day learning streak", 7)
	streakBadge("streak_30", "Monthly Master", "Kept a 30-day learning streak", 30)
	streakBadge("streak_100", "Centurion", "Kept a 100-day learning streak", 100)
	xpBadge("xp_100", "Getting Started", "Earned 100 XP", 100)
	xpBadge("xp_1000", "Dedicated Learner", "Earned 1000 XP", 1000)
	xpBadge("xp_10000", "Knowledge Seeker", "Earned 10000 XP", 10000)

	return c
}

// ══════════════════════════════════════════════════════════════════════════════
// BADGE AWARDS
// ══════════════════════════════════════════════════════════════════════════════

// BadgeAward records that a user holds a badge. At most one per
// (UserID, BadgeID).
type BadgeAward struct {
	UserID    string
	BadgeID   string
	AwardedAt time.Time
}

// BadgeAwardStore persists badge ownership.
type BadgeAwardStore interface {
	// HasAward reports whether the user already holds the badge.
	HasAward(ctx context.Context, userID, badgeID string) (bool, error)

	// Create records an award. Creating a duplicate is a silent no-op so
	// concurrent unlocks of the same badge converge to one row.
	Create(ctx context.Context, award BadgeAward) error

	// ListForUser returns the user's awards ordered by AwardedAt ascending.
	ListForUser(ctx context.Context, userID string) ([]BadgeAward, error)
}
