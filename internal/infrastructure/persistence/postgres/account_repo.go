package postgres

import (
	"context"
	"fmt"

	"github.com/brimiq/LearnQuest-Backend/internal/domain/account"
	"github.com/brimiq/LearnQuest-Backend/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACCOUNT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// AccountRepository implements account.Repository for PostgreSQL.
type AccountRepository struct {
	db Querier
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(db Querier) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create inserts a new account.
func (r *AccountRepository) Create(ctx context.Context, a *account.Account) error {
	query := `
		INSERT INTO accounts (id, username, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.Exec(ctx, query, a.ID, a.Username, a.Email, a.PasswordHash, a.CreatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("account %s: %w", a.Username, shared.ErrAccountExists)
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// GetByID fetches an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*account.Account, error) {
	query := `
		SELECT id, username, email, password_hash, created_at
		FROM accounts
		WHERE id = $1
	`
	return r.scanAccount(ctx, query, id)
}

// GetByEmail fetches an account by normalized email.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*account.Account, error) {
	query := `
		SELECT id, username, email, password_hash, created_at
		FROM accounts
		WHERE email = $1
	`
	return r.scanAccount(ctx, query, email)
}

// Exists reports whether an account with the given ID exists.
func (r *AccountRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check account: %w", err)
	}
	return exists, nil
}

func (r *AccountRepository) scanAccount(ctx context.Context, query string, arg interface{}) (*account.Account, error) {
	var a account.Account
	err := r.db.QueryRow(ctx, query, arg).Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &a.CreatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, fmt.Errorf("account: %w", shared.ErrAccountNotFound)
		}
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	return &a, nil
}
