package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestXP_Add(t *testing.T) {
	assert.Equal(t, XP(15), XP(5).Add(10))
	assert.Equal(t, XP(0), XP(5).Add(-10), "floored at zero")
	assert.Equal(t, XP(5), XP(5).Add(0))
}

func TestReason_IsValid(t *testing.T) {
	valid := []Reason{
		ReasonResourceComplete, ReasonModuleComplete, ReasonCommentPost,
		ReasonQuizPass, ReasonStreakBonus7, ReasonStreakBonus30, ReasonStreakBonus100,
	}
	for _, r := range valid {
		assert.True(t, r.IsValid(), r.String())
	}

	assert.False(t, Reason("").IsValid())
	assert.False(t, Reason("login").IsValid())
	assert.False(t, Reason("RESOURCE_COMPLETE").IsValid())
}

func TestNewUserStats(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

	s, err := NewUserStats("user-1", now)
	require.NoError(t, err)
	assert.Equal(t, "user-1", s.UserID)
	assert.Equal(t, 0, s.XP.Int())
	assert.Equal(t, 0, s.Points.Int())
	assert.Equal(t, 0, s.StreakDays)
	assert.Nil(t, s.LastActiveAt)
	assert.Equal(t, now, s.CreatedAt)

	_, err = NewUserStats("", now)
	assert.ErrorIs(t, err, ErrEmptyUserID)
}

func TestUserStats_Validate(t *testing.T) {
	now := time.Now()
	s, err := NewUserStats("user-1", now)
	require.NoError(t, err)
	assert.NoError(t, s.Validate())

	s.XP = -1
	assert.ErrorIs(t, s.Validate(), ErrNegativeXP)

	s.XP = 0
	s.StreakDays = -1
	assert.ErrorIs(t, s.Validate(), ErrInvalidStreak)
}

func TestUserStats_Clone(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	s, err := NewUserStats("user-1", now)
	require.NoError(t, err)
	s.TouchActivity(now)
	s.XP = 100

	c := s.Clone()
	c.XP = 200
	*c.LastActiveAt = now.AddDate(0, 0, 1)

	assert.Equal(t, XP(100), s.XP, "original XP untouched")
	assert.Equal(t, now, *s.LastActiveAt, "original timestamp untouched")
}

func TestUserStats_Apply(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	later := now.Add(time.Hour)

	s, err := NewUserStats("user-1", now)
	require.NoError(t, err)

	s.Apply(60, 10, later)
	assert.Equal(t, 60, s.XP.Int())
	assert.Equal(t, 10, s.Points.Int())
	assert.Equal(t, later, s.UpdatedAt)

	// Negative deltas floor at zero instead of going negative.
	s.Apply(-100, -100, later)
	assert.Equal(t, 0, s.XP.Int())
	assert.Equal(t, 0, s.Points.Int())
}

func TestUserStats_TouchActivity(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	s, err := NewUserStats("user-1", now)
	require.NoError(t, err)

	touch := now.Add(2 * time.Hour)
	s.TouchActivity(touch)

	require.NotNil(t, s.LastActiveAt)
	assert.Equal(t, touch, *s.LastActiveAt)
	assert.Equal(t, touch, s.UpdatedAt)
}

func TestUserStats_TouchActivityNeverRewinds(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	s, err := NewUserStats("user-1", now)
	require.NoError(t, err)
	s.TouchActivity(now)

	// A backdated activity leaves the high-water mark where it is.
	yesterday := now.AddDate(0, 0, -1)
	s.TouchActivity(yesterday)
	assert.Equal(t, now, *s.LastActiveAt, "backdated touch must not rewind")

	// A later one still advances it.
	later := now.Add(3 * time.Hour)
	s.TouchActivity(later)
	assert.Equal(t, later, *s.LastActiveAt)
}
