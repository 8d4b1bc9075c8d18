// Package scheduler decides when batches run: once for development, or on a
// cron schedule for service mode.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/JakeFAU/lighthouse-auditor/internal/logging"
)

// Job runs one batch. It must return when ctx is cancelled.
type Job func(ctx context.Context)

// RunOnce executes job a single time and returns when it finishes.
func RunOnce(ctx context.Context, job Job) {
	job(ctx)
}

// Scheduler fires a Job on a standard five-field cron spec. A tick that
// arrives while the previous run is still going is skipped.
type Scheduler struct {
	spec       string
	schedule   cron.Schedule
	runOnStart bool
	logger     *zap.Logger
}

// Option customises a Scheduler.
type Option func(*Scheduler)

// WithRunOnStart fires the job immediately when Run starts, in addition to
// the schedule.
func WithRunOnStart(enabled bool) Option {
	return func(s *Scheduler) { s.runOnStart = enabled }
}

// New parses spec and returns a Scheduler.
func New(spec string, logger *zap.Logger, opts ...Option) (*Scheduler, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse cron spec %q: %w", spec, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scheduler{spec: spec, schedule: schedule, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run blocks until ctx is cancelled, firing job on schedule. On return any
// in-flight run has finished.
func (s *Scheduler) Run(ctx context.Context, job Job) error {
	cronLogger := logging.NewCronLogger(s.logger)
	c := cron.New(
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)
	id := c.Schedule(s.schedule, cron.FuncJob(func() { job(ctx) }))

	c.Start()
	s.logger.Info("scheduler started",
		zap.String("cron", s.spec),
		zap.Time("next_run", c.Entry(id).Next),
	)
	var initial sync.WaitGroup
	if s.runOnStart {
		// Goes through the wrapped job so it counts against SkipIfStillRunning.
		wrapped := c.Entry(id).WrappedJob
		initial.Add(1)
		go func() {
			defer initial.Done()
			wrapped.Run()
		}()
	}

	<-ctx.Done()
	s.logger.Info("scheduler stopping, waiting for the running batch")
	<-c.Stop().Done()
	initial.Wait()
	return nil
}
