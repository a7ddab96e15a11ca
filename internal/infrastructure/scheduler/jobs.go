package scheduler

import (
	"context"

	"github.com/brimiq/LearnQuest-Backend/internal/application/command"
)

// LeaderboardRefreshJob rebuilds every period's cached snapshot.
type LeaderboardRefreshJob struct {
	handler *command.RefreshLeaderboardHandler
}

// NewLeaderboardRefreshJob creates the job.
func NewLeaderboardRefreshJob(handler *command.RefreshLeaderboardHandler) *LeaderboardRefreshJob {
	return &LeaderboardRefreshJob{handler: handler}
}

// Name implements Job.
func (j *LeaderboardRefreshJob) Name() string { return "leaderboard_refresh" }

// Run implements Job.
func (j *LeaderboardRefreshJob) Run(ctx context.Context) error {
	_, err := j.handler.Handle(ctx, command.RefreshLeaderboardCommand{})
	return err
}
