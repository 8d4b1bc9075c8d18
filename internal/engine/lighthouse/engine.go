// Package lighthouse runs the lighthouse CLI as a subprocess and turns its
// JSON output into audit reports.
package lighthouse

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/lighthouse-auditor/internal/audit"
)

const (
	defaultBinary = "lighthouse"
	stderrTail    = 2048
)

// DefaultChromeFlags are passed to the Chrome that lighthouse launches.
var DefaultChromeFlags = []string{
	"--headless=new",
	"--no-sandbox",
	"--disable-gpu",
	"--disable-dev-shm-usage",
}

// Config controls how the lighthouse binary is invoked.
type Config struct {
	Binary      string
	ChromePath  string
	ChromeFlags []string
	Categories  []string
	// Port attaches lighthouse to an already running Chrome instead of
	// letting it launch one.
	Port      int
	ExtraArgs []string
}

// Engine implements audit.Engine on top of the lighthouse CLI.
type Engine struct {
	cfg    Config
	logger *zap.Logger
}

// New creates a CLI engine.
func New(cfg Config, logger *zap.Logger) *Engine {
	if cfg.Binary == "" {
		cfg.Binary = defaultBinary
	}
	if len(cfg.ChromeFlags) == 0 {
		cfg.ChromeFlags = DefaultChromeFlags
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{cfg: cfg, logger: logger}
}

// WithPort returns a copy of the engine attached to the Chrome on port.
func (e *Engine) WithPort(port int) *Engine {
	cfg := e.cfg
	cfg.Port = port
	return &Engine{cfg: cfg, logger: e.logger}
}

// Audit runs lighthouse once. On cancellation lighthouse gets SIGINT so it can
// stop the Chrome it launched. Whatever remains in its process group is killed
// after it exits or WaitDelay passes.
func (e *Engine) Audit(ctx context.Context, req audit.EngineRequest) (audit.Report, error) {
	if err := ctx.Err(); err != nil {
		return audit.Report{}, fmt.Errorf("context canceled: %w", err)
	}
	args := e.Args(req)

	// #nosec G204 -- binary and args come from operator configuration.
	cmd := exec.CommandContext(ctx, e.cfg.Binary, args...)
	configureProcess(cmd)
	cmd.Cancel = func() error { return interruptProcessGroup(cmd) }
	cmd.WaitDelay = 5 * time.Second
	if e.cfg.ChromePath != "" {
		cmd.Env = append(os.Environ(), "CHROME_PATH="+e.cfg.ChromePath)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	e.logger.Debug("starting lighthouse",
		zap.String("url", req.URL),
		zap.String("device", req.Profile.Name),
		zap.Strings("args", args),
	)
	runErr := cmd.Run()
	if err := killProcessGroup(cmd); err != nil {
		e.logger.Warn("kill lighthouse process group", zap.String("url", req.URL), zap.Error(err))
	}
	if runErr != nil {
		return audit.Report{}, fmt.Errorf("run lighthouse: %w: %s", runErr, tail(stderr.String()))
	}

	data, err := os.ReadFile(req.JSONPath)
	if err != nil {
		return audit.Report{}, fmt.Errorf("read json report: %w", err)
	}
	report, err := ParseReport(data)
	if err != nil {
		return audit.Report{}, fmt.Errorf("parse json report: %w", err)
	}
	html, err := os.ReadFile(req.HTMLPath)
	if err != nil {
		return audit.Report{}, fmt.Errorf("read html report: %w", err)
	}
	report.HTML = html
	return report, nil
}

// Args renders the command line for req.
func (e *Engine) Args(req audit.EngineRequest) []string {
	p := req.Profile
	args := []string{
		req.URL,
		"--output=json",
		"--output=html",
		"--output-path=" + req.OutputBase,
		"--quiet",
	}
	if p.Preset != "" {
		args = append(args, "--preset="+p.Preset)
	}
	if p.FormFactor != "" {
		args = append(args, "--form-factor="+p.FormFactor)
	}
	if p.EmulationDisabled {
		args = append(args, "--screenEmulation.disabled")
	} else {
		args = append(args,
			"--screenEmulation.mobile="+strconv.FormatBool(p.Mobile),
			"--screenEmulation.width="+strconv.Itoa(p.Width),
			"--screenEmulation.height="+strconv.Itoa(p.Height),
			"--screenEmulation.deviceScaleFactor="+strconv.FormatFloat(p.DeviceScaleFactor, 'f', -1, 64),
		)
	}
	if p.Throttling != "" {
		args = append(args, "--throttling-method="+p.Throttling)
	}
	if len(e.cfg.Categories) > 0 {
		args = append(args, "--only-categories="+strings.Join(e.cfg.Categories, ","))
	}
	if e.cfg.Port > 0 {
		args = append(args, "--port="+strconv.Itoa(e.cfg.Port))
	} else {
		args = append(args, "--chrome-flags="+strings.Join(e.cfg.ChromeFlags, " "))
	}
	return append(args, e.cfg.ExtraArgs...)
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > stderrTail {
		return "..." + s[len(s)-stderrTail:]
	}
	return s
}
