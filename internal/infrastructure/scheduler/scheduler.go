// Package scheduler runs the periodic background jobs: leaderboard snapshot
// refreshes on a fixed interval.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/brimiq/LearnQuest-Backend/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// JOB INTERFACE
// ══════════════════════════════════════════════════════════════════════════════

// Job defines the interface that all scheduled jobs must implement.
type Job interface {
	// Name returns the unique name of the job.
	Name() string

	// Run executes the job.
	// The context is cancelled when the scheduler is stopping.
	Run(ctx context.Context) error
}

// JobFunc adapts a function to the Job interface.
type JobFunc struct {
	JobName string
	Fn      func(ctx context.Context) error
}

// Name implements Job.
func (j JobFunc) Name() string { return j.JobName }

// Run implements Job.
func (j JobFunc) Run(ctx context.Context) error { return j.Fn(ctx) }

// ══════════════════════════════════════════════════════════════════════════════
// INTERVAL SCHEDULER
// ══════════════════════════════════════════════════════════════════════════════

// intervalJob pairs a job with its tick interval.
type intervalJob struct {
	job      Job
	interval time.Duration
}

// Scheduler runs registered jobs on fixed intervals. Each job gets its own
// goroutine and ticker; a job that overruns its interval simply delays its
// own next tick, never the other jobs.
type Scheduler struct {
	mu      sync.Mutex
	jobs    []intervalJob
	log     *logger.Logger
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewScheduler creates a Scheduler.
func NewScheduler(log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.Default()
	}
	return &Scheduler{log: log.With(logger.Component("scheduler"))}
}

// Every registers a job to run on the given interval. Registration after
// Start is ignored.
func (s *Scheduler) Every(interval time.Duration, job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running || interval <= 0 || job == nil {
		return
	}
	s.jobs = append(s.jobs, intervalJob{job: job, interval: interval})
}

// Start launches all registered jobs. Each runs once immediately, then on
// its interval until Stop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	ctx, s.cancel = context.WithCancel(ctx)
	jobs := s.jobs
	s.mu.Unlock()

	for _, ij := range jobs {
		s.wg.Add(1)
		go s.runLoop(ctx, ij)
	}
}

// Stop cancels all jobs and waits for in-flight runs to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Scheduler) runLoop(ctx context.Context, ij intervalJob) {
	defer s.wg.Done()

	s.runOnce(ctx, ij.job)

	ticker := time.NewTicker(ij.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx, ij.job)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, job Job) {
	start := time.Now()
	if err := job.Run(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.log.Error("job failed",
			logger.String("job", job.Name()),
			logger.Latency(time.Since(start)),
			logger.Err(err))
		return
	}
	s.log.Debug("job completed",
		logger.String("job", job.Name()),
		logger.Latency(time.Since(start)))
}
