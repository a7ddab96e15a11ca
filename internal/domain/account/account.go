// Package account holds the minimal user account the reward engine hangs
// stats off of.
package account

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACCOUNT ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// Account is a registered user.
type Account struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Domain validation errors.
var (
	ErrEmptyUsername = errors.New("account: username is required")
	ErrEmptyEmail    = errors.New("account: email is required")
	ErrInvalidEmail  = errors.New("account: email is malformed")
	ErrWeakPassword  = errors.New("account: password must be at least 8 characters")
)

// NewAccount creates an account with a fresh UUID. passwordHash must already
// be hashed; raw passwords never reach the entity.
func NewAccount(username, email, passwordHash string, now time.Time) (*Account, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(strings.ToLower(email))

	if username == "" {
		return nil, ErrEmptyUsername
	}
	if email == "" {
		return nil, ErrEmptyEmail
	}
	if !strings.Contains(email, "@") || strings.HasPrefix(email, "@") || strings.HasSuffix(email, "@") {
		return nil, ErrInvalidEmail
	}

	return &Account{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// Repository persists accounts.
type Repository interface {
	// Create inserts a new account. Returns shared.ErrAccountExists when
	// the username or email is taken.
	Create(ctx context.Context, a *Account) error

	// GetByID fetches by ID. Returns shared.ErrAccountNotFound if absent.
	GetByID(ctx context.Context, id string) (*Account, error)

	// GetByEmail fetches by normalized email.
	GetByEmail(ctx context.Context, email string) (*Account, error)

	// Exists reports whether an account with the given ID exists.
	Exists(ctx context.Context, id string) (bool, error)
}
