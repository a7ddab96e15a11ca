package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/brimiq/LearnQuest-Backend/internal/domain/account"
	"github.com/brimiq/LearnQuest-Backend/internal/domain/shared"
)

func TestRegisterAccount(t *testing.T) {
	accounts := newMemAccountRepo()
	statsStore := newMemStatsStore()
	publisher := &capturePublisher{}
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

	handler := NewRegisterAccountHandler(accounts, statsStore, publisher, testLogger())
	handler.now = func() time.Time { return now }

	result, err := handler.Handle(context.Background(), RegisterAccountCommand{
		Username: "learner",
		Email:    "Learner@Example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, result.UserID)
	assert.Equal(t, "learner", result.Username)
	assert.Equal(t, "learner@example.com", result.Email)
	assert.Equal(t, now, result.RegisteredAt)

	// The password is stored hashed, never in the clear.
	acc, err := accounts.GetByID(context.Background(), result.UserID)
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", acc.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte("correct horse")))

	// A zeroed stats row exists from the moment the account does.
	row, err := statsStore.Load(context.Background(), result.UserID)
	require.NoError(t, err)
	assert.Equal(t, 0, row.XP.Int())
	assert.Equal(t, 0, row.StreakDays)
	assert.Nil(t, row.LastActiveAt)

	assert.Len(t, publisher.byType(shared.EventAccountRegistered), 1)
}

func TestRegisterAccount_Validation(t *testing.T) {
	handler := NewRegisterAccountHandler(newMemAccountRepo(), newMemStatsStore(), &capturePublisher{}, testLogger())

	tests := []struct {
		name    string
		cmd     RegisterAccountCommand
		wantErr error
	}{
		{"missing username", RegisterAccountCommand{Email: "a@b.com", Password: "long enough"}, account.ErrEmptyUsername},
		{"missing email", RegisterAccountCommand{Username: "u", Password: "long enough"}, account.ErrEmptyEmail},
		{"short password", RegisterAccountCommand{Username: "u", Email: "a@b.com", Password: "short"}, account.ErrWeakPassword},
		{"malformed email", RegisterAccountCommand{Username: "u", Email: "nope", Password: "long enough"}, account.ErrInvalidEmail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := handler.Handle(context.Background(), tt.cmd)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRegisterAccount_DuplicateRejected(t *testing.T) {
	accounts := newMemAccountRepo()
	handler := NewRegisterAccountHandler(accounts, newMemStatsStore(), &capturePublisher{}, testLogger())

	cmd := RegisterAccountCommand{Username: "learner", Email: "a@b.com", Password: "long enough"}

	_, err := handler.Handle(context.Background(), cmd)
	require.NoError(t, err)

	_, err = handler.Handle(context.Background(), cmd)
	assert.ErrorIs(t, err, shared.ErrAccountExists)
}
