// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/brimiq/LearnQuest-Backend/internal/domain/gamification"
	"github.com/brimiq/LearnQuest-Backend/internal/domain/shared"
	"github.com/brimiq/LearnQuest-Backend/internal/domain/stats"
	"github.com/brimiq/LearnQuest-Backend/pkg/logger"
	"github.com/brimiq/LearnQuest-Backend/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// AWARD XP COMMAND
// The single write path of the reward engine. Every qualifying activity goes
// through here: streak evaluation, base XP, milestone bonuses, points, badge
// unlocking, and the append-only event record.
// ══════════════════════════════════════════════════════════════════════════════

// AwardXPCommand contains the data to award XP for one activity.
type AwardXPCommand struct {
	// UserID is the user who performed the activity.
	UserID string

	// Reason is why XP is being awarded. Must be in the closed reason set.
	Reason stats.Reason

	// IdempotencyKey deduplicates retried deliveries. Optional; when empty
	// every call is treated as a distinct activity.
	IdempotencyKey string

	// OccurredAt is when the activity happened (defaults to now if zero).
	OccurredAt time.Time
}

// Validate validates the command.
func (c AwardXPCommand) Validate() error {
	if c.UserID == "" {
		return fmt.Errorf("award_xp: user_id is required: %w", shared.ErrEmptyValue)
	}
	if !c.Reason.IsValid() {
		return fmt.Errorf("award_xp: reason %q: %w", c.Reason, shared.ErrUnknownReason)
	}
	return nil
}

// AwardXPResult contains the outcome of one award.
type AwardXPResult struct {
	// UserID is the user the award applied to.
	UserID string

	// Reason is the reason that was awarded.
	Reason stats.Reason

	// XPAwarded is the XP granted by this call, milestone bonuses included.
	XPAwarded int

	// XPTotal is the user's lifetime XP after the award.
	XPTotal int

	// PointsAwarded is the points granted by this call.
	PointsAwarded int

	// PointsTotal is the user's points balance after the award.
	PointsTotal int

	// StreakDays is the streak length after the award.
	StreakDays int

	// StreakOutcome labels the streak transition this award caused.
	StreakOutcome gamification.StreakOutcome

	// MilestonesReached lists streak milestones crossed by this award.
	MilestonesReached []int

	// BadgesUnlocked lists badges newly awarded by this call.
	BadgesUnlocked []gamification.Badge

	// BadgeErrors holds per-badge evaluation failures. Badge failures never
	// roll back the XP award; callers see them here instead.
	BadgeErrors []string

	// Deduplicated is true when the idempotency key was already processed
	// and no state changed.
	Deduplicated bool

	// AwardedAt is when the award was applied.
	AwardedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// AwardXPHandler handles the AwardXPCommand.
type AwardXPHandler struct {
	statsStore     stats.Store
	historyStore   stats.HistoryStore
	tx             stats.TxRunner
	badgeStore     gamification.BadgeAwardStore
	catalog        *gamification.Catalog
	tracker        *gamification.StreakTracker
	eventPublisher shared.EventPublisher
	log            *logger.Logger

	// Configuration
	baseAmounts   map[stats.Reason]int
	pointsAmounts map[stats.Reason]int
	qualifying    map[stats.Reason]bool
	milestones    []gamification.Milestone
	casRetrier    *retry.Retrier
	now           func() time.Time
}

// AwardXPHandlerConfig contains configuration for the handler.
type AwardXPHandlerConfig struct {
	// BaseAmounts maps each reason to its base XP grant.
	BaseAmounts map[stats.Reason]int

	// PointsAmounts maps each reason to its points grant.
	PointsAmounts map[stats.Reason]int

	// QualifyingReasons are the reasons that count toward the streak.
	QualifyingReasons []stats.Reason

	// Milestones are the streak thresholds paying one-time bonuses.
	Milestones []gamification.Milestone

	// MaxCASAttempts bounds the optimistic-concurrency retry loop.
	MaxCASAttempts int
}

// DefaultAwardXPHandlerConfig returns the standard reward policy.
func DefaultAwardXPHandlerConfig() AwardXPHandlerConfig {
	return AwardXPHandlerConfig{
		BaseAmounts: map[stats.Reason]int{
			stats.ReasonResourceComplete: 10,
			stats.ReasonModuleComplete:   50,
			stats.ReasonCommentPost:      5,
			stats.ReasonQuizPass:         25,
		},
		PointsAmounts: map[stats.Reason]int{
			stats.ReasonResourceComplete: 10,
			stats.ReasonModuleComplete:   50,
			stats.ReasonCommentPost:      5,
			stats.ReasonQuizPass:         25,
		},
		QualifyingReasons: []stats.Reason{
			stats.ReasonResourceComplete,
			stats.ReasonModuleComplete,
			stats.ReasonQuizPass,
		},
		Milestones:     gamification.DefaultMilestones(),
		MaxCASAttempts: 3,
	}
}

// NewAwardXPHandler creates a new AwardXPHandler.
func NewAwardXPHandler(
	statsStore stats.Store,
	historyStore stats.HistoryStore,
	tx stats.TxRunner,
	badgeStore gamification.BadgeAwardStore,
	catalog *gamification.Catalog,
	tracker *gamification.StreakTracker,
	eventPublisher shared.EventPublisher,
	log *logger.Logger,
	config AwardXPHandlerConfig,
) *AwardXPHandler {
	if len(config.BaseAmounts) == 0 {
		config = DefaultAwardXPHandlerConfig()
	}
	if config.MaxCASAttempts <= 0 {
		config.MaxCASAttempts = 3
	}
	if log == nil {
		log = logger.Default()
	}

	qualifying := make(map[stats.Reason]bool, len(config.QualifyingReasons))
	for _, r := range config.QualifyingReasons {
		qualifying[r] = true
	}

	return &AwardXPHandler{
		statsStore:     statsStore,
		historyStore:   historyStore,
		tx:             tx,
		badgeStore:     badgeStore,
		catalog:        catalog,
		tracker:        tracker,
		eventPublisher: eventPublisher,
		log:            log,
		baseAmounts:    config.BaseAmounts,
		pointsAmounts:  config.PointsAmounts,
		qualifying:     qualifying,
		milestones:     config.Milestones,
		casRetrier:     retry.CASRetrier(config.MaxCASAttempts),
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the handler's time source. Used by tests.
func (h *AwardXPHandler) WithClock(now func() time.Time) *AwardXPHandler {
	h.now = now
	return h
}

// Handle executes the award. The stats write is serialized per user through
// compare-and-swap with a bounded retry; idempotency keys are checked before
// any counter moves and enforced again by the unique event record. The
// counters update and the event record commit in one transaction, so a
// retried delivery never finds XP applied without its dedup record.
func (h *AwardXPHandler) Handle(ctx context.Context, cmd AwardXPCommand) (*AwardXPResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	occurredAt := cmd.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = h.now()
	}

	// The user must exist before anything else happens.
	if _, err := h.statsStore.Load(ctx, cmd.UserID); err != nil {
		return nil, fmt.Errorf("award_xp: %w", err)
	}

	// A replayed key is a no-op. Retried deliveries carry the same key, so
	// the lookup short-circuits them before any counter moves.
	if cmd.IdempotencyKey != "" {
		if _, err := h.historyStore.FindByKey(ctx, cmd.UserID, cmd.IdempotencyKey); err == nil {
			return h.deduplicatedResult(ctx, cmd)
		} else if !errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("award_xp: idempotency lookup: %w", err)
		}
	}

	applied, err := h.applyWithRetry(ctx, cmd, occurredAt)
	if err != nil {
		if errors.Is(err, shared.ErrDuplicateEvent) {
			// Another delivery with the same key won the race after the
			// FindByKey check; its award already landed.
			return h.deduplicatedResult(ctx, cmd)
		}
		return nil, err
	}

	milestoneDays := make([]int, 0, len(applied.milestones))
	for _, m := range applied.milestones {
		milestoneDays = append(milestoneDays, m.Days)
	}

	result := &AwardXPResult{
		UserID:            cmd.UserID,
		Reason:            cmd.Reason,
		XPAwarded:         applied.xpDelta,
		XPTotal:           applied.stats.XP.Int(),
		PointsAwarded:     applied.pointsDelta,
		PointsTotal:       applied.stats.Points.Int(),
		StreakDays:        applied.stats.StreakDays,
		StreakOutcome:     applied.streak.Outcome,
		MilestonesReached: milestoneDays,
		AwardedAt:         occurredAt,
	}

	// Badge evaluation is best-effort. A failing predicate or store call is
	// reported on the result, never rolled back into the award.
	result.BadgesUnlocked, result.BadgeErrors = h.unlockBadges(ctx, applied.stats, occurredAt)

	h.publishEvents(ctx, cmd, applied, result)

	h.log.Info("xp awarded",
		logger.UserID(cmd.UserID),
		logger.Reason(cmd.Reason.String()),
		logger.XPAmount(applied.xpDelta),
		logger.StreakDays(applied.stats.StreakDays))

	return result, nil
}

// appliedAward is the outcome of the CAS loop.
type appliedAward struct {
	stats       *stats.UserStats
	streak      gamification.StreakResult
	xpDelta     int
	pointsDelta int
	milestones  []gamification.Milestone
}

// applyWithRetry runs load-compute-swap until the write lands or the attempt
// budget is exhausted. Each attempt commits the counters row and the event
// record inside one transaction.
func (h *AwardXPHandler) applyWithRetry(ctx context.Context, cmd AwardXPCommand, occurredAt time.Time) (*appliedAward, error) {
	var applied *appliedAward
	err := h.casRetrier.Do(ctx, func(ctx context.Context) error {
		current, err := h.statsStore.Load(ctx, cmd.UserID)
		if err != nil {
			return retry.Permanent(err)
		}

		next := current.Clone()
		streak := gamification.StreakResult{Outcome: gamification.StreakUnchanged, Days: next.StreakDays}
		xpDelta := h.baseAmounts[cmd.Reason]
		pointsDelta := h.pointsAmounts[cmd.Reason]
		var crossed []gamification.Milestone

		if h.qualifying[cmd.Reason] {
			streak = h.tracker.Evaluate(next, occurredAt)
			prevDays := next.StreakDays
			next.StreakDays = streak.Days
			next.TouchActivity(occurredAt)

			if streak.Outcome == gamification.StreakExtended || streak.Outcome == gamification.StreakStarted {
				crossed = gamification.CrossedMilestones(h.milestones, prevDays, streak.Days)
				for _, m := range crossed {
					xpDelta += m.Bonus
				}
			}
		}

		next.Apply(xpDelta, pointsDelta, occurredAt)

		event := stats.XPEvent{
			ID:             uuid.New().String(),
			UserID:         cmd.UserID,
			Amount:         xpDelta,
			Reason:         cmd.Reason,
			IdempotencyKey: cmd.IdempotencyKey,
			OccurredAt:     occurredAt,
		}

		err = h.tx.InTx(ctx, func(store stats.Store, history stats.HistoryStore) error {
			if err := store.CompareAndSwap(ctx, next); err != nil {
				return err
			}
			return history.Record(ctx, event)
		})
		if err != nil {
			if errors.Is(err, shared.ErrVersionConflict) {
				return retry.Retryable(err)
			}
			return retry.Permanent(err)
		}

		applied = &appliedAward{
			stats:       next,
			streak:      streak,
			xpDelta:     xpDelta,
			pointsDelta: pointsDelta,
			milestones:  crossed,
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, shared.ErrVersionConflict) {
			return nil, fmt.Errorf("award_xp: %w", shared.ErrConflictExceeded)
		}
		return nil, fmt.Errorf("award_xp: %w", err)
	}
	return applied, nil
}

// unlockBadges evaluates the catalog against the post-award stats and
// persists newly satisfied badges.
func (h *AwardXPHandler) unlockBadges(ctx context.Context, s *stats.UserStats, now time.Time) ([]gamification.Badge, []string) {
	var unlocked []gamification.Badge
	var badgeErrs []string

	for _, badge := range h.catalog.Evaluate(s) {
		held, err := h.badgeStore.HasAward(ctx, s.UserID, badge.ID)
		if err != nil {
			badgeErrs = append(badgeErrs, fmt.Sprintf("%s: %v", badge.ID, err))
			continue
		}
		if held {
			continue
		}
		award := gamification.BadgeAward{UserID: s.UserID, BadgeID: badge.ID, AwardedAt: now}
		if err := h.badgeStore.Create(ctx, award); err != nil {
			badgeErrs = append(badgeErrs, fmt.Sprintf("%s: %v", badge.ID, err))
			continue
		}
		unlocked = append(unlocked, badge)
	}

	for _, msg := range badgeErrs {
		h.log.Warn("badge evaluation failed", logger.UserID(s.UserID), logger.String("detail", msg))
	}
	return unlocked, badgeErrs
}

// publishEvents emits the domain events this award generated. Publishing is
// best-effort; a deaf bus never fails an award.
func (h *AwardXPHandler) publishEvents(
	ctx context.Context,
	cmd AwardXPCommand,
	applied *appliedAward,
	result *AwardXPResult,
) {
	bonus := applied.xpDelta - h.baseAmounts[cmd.Reason]
	events := []shared.Event{
		shared.NewXPAwardedEvent(
			cmd.UserID, cmd.Reason.String(),
			applied.xpDelta, applied.stats.XP.Int(), applied.stats.Points.Int(),
			bonus, applied.stats.StreakDays,
		),
	}

	switch applied.streak.Outcome {
	case gamification.StreakExtended, gamification.StreakStarted:
		events = append(events, shared.NewStreakExtendedEvent(cmd.UserID, applied.streak.Days, applied.streak.Days-1))
	case gamification.StreakReset:
		events = append(events,
			shared.NewStreakBrokenEvent(cmd.UserID, applied.streak.BrokenFrom, applied.streak.DaysMissed),
			shared.NewStreakExtendedEvent(cmd.UserID, applied.streak.Days, 0),
		)
	}

	for _, m := range applied.milestones {
		events = append(events, shared.NewMilestoneReachedEvent(cmd.UserID, m.Days, m.Bonus))
	}
	for _, badge := range result.BadgesUnlocked {
		events = append(events, shared.NewBadgeUnlockedEvent(cmd.UserID, badge.ID, badge.Name))
	}

	if err := h.eventPublisher.Publish(ctx, events...); err != nil {
		h.log.Warn("event publish failed", logger.UserID(cmd.UserID), logger.Err(err))
	}
}

// deduplicatedResult reports the user's current totals for a replayed key.
func (h *AwardXPHandler) deduplicatedResult(ctx context.Context, cmd AwardXPCommand) (*AwardXPResult, error) {
	current, err := h.statsStore.Load(ctx, cmd.UserID)
	if err != nil {
		return nil, fmt.Errorf("award_xp: %w", err)
	}
	return &AwardXPResult{
		UserID:        cmd.UserID,
		Reason:        cmd.Reason,
		XPTotal:       current.XP.Int(),
		PointsTotal:   current.Points.Int(),
		StreakDays:    current.StreakDays,
		StreakOutcome: gamification.StreakUnchanged,
		Deduplicated:  true,
	}, nil
}
