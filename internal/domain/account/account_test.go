package account

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAccount(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

	a, err := NewAccount("  learner ", "Learner@Example.COM", "hash", now)
	require.NoError(t, err)

	assert.Equal(t, "learner", a.Username, "username trimmed")
	assert.Equal(t, "learner@example.com", a.Email, "email normalized")
	assert.Equal(t, "hash", a.PasswordHash)
	assert.Equal(t, now, a.CreatedAt)

	_, err = uuid.Parse(a.ID)
	assert.NoError(t, err, "ID is a UUID")
}

func TestNewAccount_Validation(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		username string
		email    string
		wantErr  error
	}{
		{"empty username", "", "a@b.com", ErrEmptyUsername},
		{"whitespace username", "   ", "a@b.com", ErrEmptyUsername},
		{"empty email", "user", "", ErrEmptyEmail},
		{"no at sign", "user", "not-an-email", ErrInvalidEmail},
		{"leading at sign", "user", "@example.com", ErrInvalidEmail},
		{"trailing at sign", "user", "user@", ErrInvalidEmail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAccount(tt.username, tt.email, "hash", now)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNewAccount_UniqueIDs(t *testing.T) {
	now := time.Now()
	a, err := NewAccount("one", "one@example.com", "h", now)
	require.NoError(t, err)
	b, err := NewAccount("two", "two@example.com", "h", now)
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
}
