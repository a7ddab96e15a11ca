// Package shared contains common domain types, errors, and events that are
// used across all domain packages.
package shared

import (
	"context"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Each event represents something significant that
// happened in the gamification engine and is consumed by outer layers for
// notifications ("+10 XP", "new badge").
const (
	// Account events
	EventAccountRegistered EventType = "account.registered"

	// Reward events
	EventXPAwarded        EventType = "reward.xp_awarded"
	EventStreakExtended   EventType = "reward.streak_extended"
	EventStreakBroken     EventType = "reward.streak_broken"
	EventMilestoneReached EventType = "reward.milestone_reached"
	EventBadgeUnlocked    EventType = "reward.badge_unlocked"

	// Leaderboard events
	EventLeaderboardRefreshed EventType = "leaderboard.refreshed"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// EventHandler processes a published event.
type EventHandler func(ctx context.Context, event Event) error

// EventPublisher publishes domain events to interested subscribers.
type EventPublisher interface {
	Publish(ctx context.Context, events ...Event) error
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	AggregateId string    `json:"aggregate_id"`
}

// EventType implements Event.
func (e BaseEvent) EventType() EventType { return e.Type }

// OccurredAt implements Event.
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }

// AggregateID implements Event.
func (e BaseEvent) AggregateID() string { return e.AggregateId }

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		AggregateId: aggregateID,
	}
}

// XPAwardedEvent is emitted after a successful XP award.
type XPAwardedEvent struct {
	BaseEvent
	Reason  string `json:"reason"`
	Amount  int    `json:"amount"`
	NewXP   int    `json:"new_xp"`
	Points  int    `json:"points"`
	Bonus   int    `json:"bonus"`
	StreakD int    `json:"streak_days"`
}

// Payload implements Event.
func (e XPAwardedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":     e.AggregateId,
		"reason":      e.Reason,
		"amount":      e.Amount,
		"new_xp":      e.NewXP,
		"points":      e.Points,
		"bonus":       e.Bonus,
		"streak_days": e.StreakD,
	}
}

// NewXPAwardedEvent creates a new XPAwardedEvent.
func NewXPAwardedEvent(userID, reason string, amount, newXP, points, bonus, streakDays int) XPAwardedEvent {
	return XPAwardedEvent{
		BaseEvent: NewBaseEvent(EventXPAwarded, userID),
		Reason:    reason,
		Amount:    amount,
		NewXP:     newXP,
		Points:    points,
		Bonus:     bonus,
		StreakD:   streakDays,
	}
}

// StreakExtendedEvent is emitted when a streak grows or restarts.
type StreakExtendedEvent struct {
	BaseEvent
	StreakDays int `json:"streak_days"`
	Previous   int `json:"previous"`
}

// Payload implements Event.
func (e StreakExtendedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":     e.AggregateId,
		"streak_days": e.StreakDays,
		"previous":    e.Previous,
	}
}

// NewStreakExtendedEvent creates a new StreakExtendedEvent.
func NewStreakExtendedEvent(userID string, streakDays, previous int) StreakExtendedEvent {
	return StreakExtendedEvent{
		BaseEvent:  NewBaseEvent(EventStreakExtended, userID),
		StreakDays: streakDays,
		Previous:   previous,
	}
}

// StreakBrokenEvent is emitted when a streak resets after missed days.
type StreakBrokenEvent struct {
	BaseEvent
	PreviousStreak int `json:"previous_streak"`
	DaysMissed     int `json:"days_missed"`
}

// Payload implements Event.
func (e StreakBrokenEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":         e.AggregateId,
		"previous_streak": e.PreviousStreak,
		"days_missed":     e.DaysMissed,
	}
}

// NewStreakBrokenEvent creates a new StreakBrokenEvent.
func NewStreakBrokenEvent(userID string, previousStreak, daysMissed int) StreakBrokenEvent {
	return StreakBrokenEvent{
		BaseEvent:      NewBaseEvent(EventStreakBroken, userID),
		PreviousStreak: previousStreak,
		DaysMissed:     daysMissed,
	}
}

// MilestoneReachedEvent is emitted when a streak crosses 7/30/100 days.
type MilestoneReachedEvent struct {
	BaseEvent
	MilestoneDays int `json:"milestone_days"`
	BonusXP       int `json:"bonus_xp"`
}

// Payload implements Event.
func (e MilestoneReachedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":        e.AggregateId,
		"milestone_days": e.MilestoneDays,
		"bonus_xp":       e.BonusXP,
	}
}

// NewMilestoneReachedEvent creates a new MilestoneReachedEvent.
func NewMilestoneReachedEvent(userID string, milestoneDays, bonusXP int) MilestoneReachedEvent {
	return MilestoneReachedEvent{
		BaseEvent:     NewBaseEvent(EventMilestoneReached, userID),
		MilestoneDays: milestoneDays,
		BonusXP:       bonusXP,
	}
}

// BadgeUnlockedEvent is emitted when a badge is awarded for the first time.
type BadgeUnlockedEvent struct {
	BaseEvent
	BadgeID   string `json:"badge_id"`
	BadgeName string `json:"badge_name"`
}

// Payload implements Event.
func (e BadgeUnlockedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":    e.AggregateId,
		"badge_id":   e.BadgeID,
		"badge_name": e.BadgeName,
	}
}

// NewBadgeUnlockedEvent creates a new BadgeUnlockedEvent.
func NewBadgeUnlockedEvent(userID, badgeID, badgeName string) BadgeUnlockedEvent {
	return BadgeUnlockedEvent{
		BaseEvent: NewBaseEvent(EventBadgeUnlocked, userID),
		BadgeID:   badgeID,
		BadgeName: badgeName,
	}
}

// AccountRegisteredEvent is emitted when a new account is created.
type AccountRegisteredEvent struct {
	BaseEvent
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Payload implements Event.
func (e AccountRegisteredEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":  e.AggregateId,
		"username": e.Username,
		"email":    e.Email,
	}
}

// NewAccountRegisteredEvent creates a new AccountRegisteredEvent.
func NewAccountRegisteredEvent(userID, username, email string) AccountRegisteredEvent {
	return AccountRegisteredEvent{
		BaseEvent: NewBaseEvent(EventAccountRegistered, userID),
		Username:  username,
		Email:     email,
	}
}

// LeaderboardRefreshedEvent is emitted after a cache refresh pass.
type LeaderboardRefreshedEvent struct {
	BaseEvent
	Period  string `json:"period"`
	Entries int    `json:"entries"`
}

// Payload implements Event.
func (e LeaderboardRefreshedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"period":  e.Period,
		"entries": e.Entries,
	}
}

// NewLeaderboardRefreshedEvent creates a new LeaderboardRefreshedEvent.
func NewLeaderboardRefreshedEvent(period string, entries int) LeaderboardRefreshedEvent {
	return LeaderboardRefreshedEvent{
		BaseEvent: NewBaseEvent(EventLeaderboardRefreshed, "leaderboard:"+period),
		Period:    period,
		Entries:   entries,
	}
}
