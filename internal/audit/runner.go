package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const defaultRunTimeout = 3 * time.Minute

// Runner invokes an Engine for one task and validates what comes back.
type Runner struct {
	engine  Engine
	timeout time.Duration
	logger  *zap.Logger
}

// NewRunner wraps engine with a per-run timeout.
func NewRunner(engine Engine, timeout time.Duration, logger *zap.Logger) *Runner {
	if timeout <= 0 {
		timeout = defaultRunTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{engine: engine, timeout: timeout, logger: logger}
}

// Run audits task.URL under task.Profile. Any failure is an *EngineError.
func (r *Runner) Run(ctx context.Context, task Task, names Artifacts) (Report, error) {
	if r.engine == nil {
		return Report{}, &EngineError{URL: task.URL, Device: task.Profile.Name, Err: errors.New("no engine configured")}
	}
	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	report, err := r.engine.Audit(runCtx, EngineRequest{
		URL:        task.URL,
		Profile:    task.Profile,
		OutputBase: names.OutputBase,
		HTMLPath:   names.HTMLPath,
		JSONPath:   names.JSONPath,
	})
	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			err = fmt.Errorf("timed out after %s: %w", r.timeout, err)
		}
		return Report{}, &EngineError{URL: task.URL, Device: task.Profile.Name, Err: err}
	}
	if err := validate(report); err != nil {
		return Report{}, &EngineError{URL: task.URL, Device: task.Profile.Name, Err: err}
	}
	r.logger.Debug("audit finished",
		zap.String("url", task.URL),
		zap.String("device", task.Profile.Name),
		zap.String("final_url", report.FinalURL),
		zap.Duration("duration", time.Since(start)),
	)
	return report, nil
}

func validate(report Report) error {
	if report.Categories == nil {
		return errors.New("report is missing categories")
	}
	if report.FinalURL == "" {
		return errors.New("report is missing a final url")
	}
	return nil
}
