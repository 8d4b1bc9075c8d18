// Package dispatcher expands configured URLs into audit tasks and drives one
// batch through the worker sequentially.
package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/lighthouse-auditor/internal/audit"
	"github.com/JakeFAU/lighthouse-auditor/internal/clock/system"
	"github.com/JakeFAU/lighthouse-auditor/internal/metrics"
	"github.com/JakeFAU/lighthouse-auditor/internal/worker"
)

// Processor runs a single task to completion.
type Processor interface {
	Process(ctx context.Context, task audit.Task, batch worker.Batch) audit.Outcome
}

// Dispatcher runs batches over a fixed URL list and profile set.
type Dispatcher struct {
	worker   Processor
	urls     []string
	profiles []audit.DeviceProfile
	clock    audit.Clock
	ids      audit.IDGenerator
	logger   *zap.Logger

	mu   sync.RWMutex
	last *audit.BatchSummary
}

// New creates a Dispatcher. An empty profiles list means desktop then mobile.
func New(
	w Processor,
	urls []string,
	profiles []audit.DeviceProfile,
	clock audit.Clock,
	ids audit.IDGenerator,
	logger *zap.Logger,
) *Dispatcher {
	if len(profiles) == 0 {
		profiles = audit.DefaultProfiles()
	}
	if clock == nil {
		clock = system.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		worker:   w,
		urls:     append([]string(nil), urls...),
		profiles: append([]audit.DeviceProfile(nil), profiles...),
		clock:    clock,
		ids:      ids,
		logger:   logger,
	}
}

// Tasks expands urls in order, each under every profile in order.
func Tasks(urls []string, profiles []audit.DeviceProfile, startedAt time.Time) []audit.Task {
	tasks := make([]audit.Task, 0, len(urls)*len(profiles))
	for _, u := range urls {
		for _, p := range profiles {
			tasks = append(tasks, audit.Task{URL: u, Profile: p, StartedAt: startedAt})
		}
	}
	return tasks
}

// RunBatch processes every task one after another. A failing or panicking
// task is recorded and the batch moves on; cancelling ctx stops the batch
// before the next task starts.
func (d *Dispatcher) RunBatch(ctx context.Context) audit.BatchSummary {
	started := d.clock.Now()
	summary := audit.BatchSummary{RunID: d.runID(), Started: started}
	batch := worker.Batch{RunID: summary.RunID, Day: system.Day(started)}
	logger := d.logger.With(zap.String("run_id", summary.RunID))

	tasks := Tasks(d.urls, d.profiles, started)
	logger.Info("batch started", zap.Int("urls", len(d.urls)), zap.Int("tasks", len(tasks)))

	for _, task := range tasks {
		if err := ctx.Err(); err != nil {
			logger.Warn("batch cancelled", zap.Int("remaining", len(tasks)-summary.Tasks), zap.Error(err))
			break
		}
		task.StartedAt = d.clock.Now()
		out := d.process(ctx, task, batch, logger)
		summary.Tasks++
		if out.Succeeded() {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
		summary.Outcomes = append(summary.Outcomes, out)
	}

	summary.Finished = d.clock.Now()
	metrics.ObserveBatch(summary.Succeeded, summary.Failed, summary.Finished)
	logger.Info("batch finished",
		zap.Int("tasks", summary.Tasks),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Duration("duration", summary.Finished.Sub(summary.Started)),
	)

	d.mu.Lock()
	d.last = &summary
	d.mu.Unlock()
	return summary
}

// Last returns the most recently finished batch summary.
func (d *Dispatcher) Last() (audit.BatchSummary, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.last == nil {
		return audit.BatchSummary{}, false
	}
	return *d.last, true
}

func (d *Dispatcher) process(ctx context.Context, task audit.Task, batch worker.Batch, logger *zap.Logger) (out audit.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = audit.Outcome{Task: task, Stage: audit.StagePanic, Err: fmt.Errorf("panic: %v", r)}
			logger.Error("task panicked",
				zap.String("url", task.URL),
				zap.String("device", task.Profile.Name),
				zap.Any("panic", r),
			)
		}
	}()
	return d.worker.Process(ctx, task, batch)
}

func (d *Dispatcher) runID() string {
	if d.ids == nil {
		return ""
	}
	id, err := d.ids.NewID()
	if err != nil {
		d.logger.Warn("run id generation failed", zap.Error(err))
		return ""
	}
	return id
}
