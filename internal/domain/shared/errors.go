// Package shared contains common domain types, errors, and events that are
// used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")

	// Validation errors
	ErrValidation    = errors.New("validation error")
	ErrInvalidID     = errors.New("invalid ID")
	ErrInvalidInput  = errors.New("invalid input")
	ErrEmptyValue    = errors.New("value cannot be empty")
	ErrNegativeValue = errors.New("value cannot be negative")

	// State errors
	ErrInvalidState     = errors.New("invalid state")
	ErrAlreadyProcessed = errors.New("already processed")

	// Concurrency errors
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// Persistence / availability errors
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "stats", "gamification", "leaderboard"
	Op      string // Operation that failed, e.g., "Award", "Rank"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{Domain: domain, Op: op, Kind: kind, Message: message}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{Domain: domain, Op: op, Kind: kind, Message: message, Err: err}
}

// Stats domain errors
var (
	ErrUserNotFound    = NewDomainError("stats", "Load", ErrNotFound, "user stats not found")
	ErrVersionConflict = NewDomainError("stats", "CompareAndSwap", ErrConcurrentModification, "stats row changed concurrently")
	ErrDuplicateEvent  = NewDomainError("stats", "Record", ErrAlreadyProcessed, "xp event already recorded for idempotency key")
)

// Gamification domain errors
var (
	ErrUnknownReason    = NewDomainError("gamification", "Validate", ErrInvalidInput, "unknown award reason")
	ErrBadgeNotFound    = NewDomainError("gamification", "FindBadge", ErrNotFound, "badge not found")
	ErrBadgeEvaluation  = NewDomainError("gamification", "EvaluateBadges", ErrInvalidState, "badge evaluation failed")
	ErrConflictExceeded = NewDomainError("gamification", "Award", ErrConcurrentModification, "concurrent update conflict not resolved within retry budget")
)

// Leaderboard domain errors
var (
	ErrInvalidPeriod        = NewDomainError("leaderboard", "Validate", ErrInvalidInput, "invalid leaderboard period")
	ErrHistoryUnavailable   = NewDomainError("leaderboard", "Rank", ErrServiceUnavailable, "windowed leaderboard requires an XP history source")
	ErrBoardUnavailable     = NewDomainError("leaderboard", "Rank", ErrServiceUnavailable, "leaderboard snapshot missing and could not be rebuilt")
	ErrLeaderboardEmpty     = NewDomainError("leaderboard", "Rank", ErrNotFound, "leaderboard has no entries")
	ErrRankEntryNotFound    = NewDomainError("leaderboard", "RankOf", ErrNotFound, "no rank entry for user")
	ErrLeaderboardCacheMiss = NewDomainError("leaderboard", "Cache", ErrNotFound, "leaderboard not cached")
)

// Account domain errors
var (
	ErrAccountNotFound = NewDomainError("account", "Find", ErrNotFound, "account not found")
	ErrAccountExists   = NewDomainError("account", "Create", ErrAlreadyExists, "username or email already registered")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue)
}

// IsRetryable checks if the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrConcurrentModification)
}
