package command

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/brimiq/LearnQuest-Backend/internal/domain/account"
	"github.com/brimiq/LearnQuest-Backend/internal/domain/shared"
	"github.com/brimiq/LearnQuest-Backend/internal/domain/stats"
	"github.com/brimiq/LearnQuest-Backend/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// REGISTER ACCOUNT COMMAND
// Creates the account row and its zeroed stats row in one step, so every
// account the engine ever sees has counters to award against.
// ══════════════════════════════════════════════════════════════════════════════

// RegisterAccountCommand contains the data to register a user.
type RegisterAccountCommand struct {
	Username string
	Email    string
	Password string
}

// Validate validates the command.
func (c RegisterAccountCommand) Validate() error {
	if c.Username == "" {
		return account.ErrEmptyUsername
	}
	if c.Email == "" {
		return account.ErrEmptyEmail
	}
	if len(c.Password) < 8 {
		return account.ErrWeakPassword
	}
	return nil
}

// RegisterAccountResult contains the result of registration.
type RegisterAccountResult struct {
	UserID       string
	Username     string
	Email        string
	RegisteredAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// RegisterAccountHandler handles the RegisterAccountCommand.
type RegisterAccountHandler struct {
	accounts       account.Repository
	statsStore     stats.Store
	eventPublisher shared.EventPublisher
	log            *logger.Logger
	now            func() time.Time
}

// NewRegisterAccountHandler creates a new RegisterAccountHandler.
func NewRegisterAccountHandler(
	accounts account.Repository,
	statsStore stats.Store,
	eventPublisher shared.EventPublisher,
	log *logger.Logger,
) *RegisterAccountHandler {
	if log == nil {
		log = logger.Default()
	}
	return &RegisterAccountHandler{
		accounts:       accounts,
		statsStore:     statsStore,
		eventPublisher: eventPublisher,
		log:            log,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// Handle registers the account and seeds its stats row.
func (h *RegisterAccountHandler) Handle(ctx context.Context, cmd RegisterAccountCommand) (*RegisterAccountResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("register_account: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("register_account: hash password: %w", err)
	}

	now := h.now()
	acc, err := account.NewAccount(cmd.Username, cmd.Email, string(hash), now)
	if err != nil {
		return nil, fmt.Errorf("register_account: %w", err)
	}

	if err := h.accounts.Create(ctx, acc); err != nil {
		return nil, fmt.Errorf("register_account: %w", err)
	}

	userStats, err := stats.NewUserStats(acc.ID, now)
	if err != nil {
		return nil, fmt.Errorf("register_account: %w", err)
	}
	if err := h.statsStore.Create(ctx, userStats); err != nil {
		return nil, fmt.Errorf("register_account: seed stats: %w", err)
	}

	if err := h.eventPublisher.Publish(ctx, shared.NewAccountRegisteredEvent(acc.ID, acc.Username, acc.Email)); err != nil {
		h.log.Warn("event publish failed", logger.UserID(acc.ID), logger.Err(err))
	}

	h.log.Info("account registered", logger.UserID(acc.ID))

	return &RegisterAccountResult{
		UserID:       acc.ID,
		Username:     acc.Username,
		Email:        acc.Email,
		RegisteredAt: now,
	}, nil
}
