// Package headless runs lighthouse against a Chrome instance owned by
// chromedp. Each audit gets its own browser on a free debugging port, and the
// browser is torn down when the audit returns.
package headless

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/JakeFAU/lighthouse-auditor/internal/audit"
	"github.com/JakeFAU/lighthouse-auditor/internal/engine/lighthouse"
)

const defaultStartupTimeout = 30 * time.Second

// Config controls the browser launched for each audit.
type Config struct {
	ChromePath     string
	StartupTimeout time.Duration
}

// Engine implements audit.Engine by attaching the lighthouse CLI to a
// chromedp-managed browser.
type Engine struct {
	cfg    Config
	cli    *lighthouse.Engine
	logger *zap.Logger
}

// New creates an attached engine around a CLI engine.
func New(cfg Config, cli *lighthouse.Engine, logger *zap.Logger) (*Engine, error) {
	if cli == nil {
		return nil, fmt.Errorf("lighthouse engine is required")
	}
	if cfg.StartupTimeout <= 0 {
		cfg.StartupTimeout = defaultStartupTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{cfg: cfg, cli: cli, logger: logger}, nil
}

// Audit starts a browser, runs lighthouse against it and always shuts the
// browser down before returning.
func (e *Engine) Audit(ctx context.Context, req audit.EngineRequest) (audit.Report, error) {
	port, err := freePort()
	if err != nil {
		return audit.Report{}, err
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, e.allocatorOptions(port, req.Profile)...)
	defer allocCancel()
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	product, userAgent, err := e.start(browserCtx, browserCancel)
	if err != nil {
		return audit.Report{}, fmt.Errorf("start chrome on port %d: %w", port, err)
	}
	e.logger.Debug("chrome ready",
		zap.Int("port", port),
		zap.String("product", product),
		zap.String("user_agent", userAgent),
		zap.String("url", req.URL),
	)

	report, err := e.cli.WithPort(port).Audit(ctx, req)
	if err != nil {
		return audit.Report{}, err
	}
	return report, nil
}

// start launches the browser and waits for it to answer. The first chromedp.Run
// binds the browser's lifetime to its context, so it runs on browserCtx and the
// startup budget is enforced by cancelling that context instead.
func (e *Engine) start(browserCtx context.Context, cancel context.CancelFunc) (string, string, error) {
	type version struct {
		product, userAgent string
		err                error
	}
	done := make(chan version, 1)
	go func() {
		var v version
		v.err = chromedp.Run(browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			_, v.product, _, v.userAgent, _, err = browser.GetVersion().Do(ctx)
			return err
		}))
		done <- v
	}()

	timer := time.NewTimer(e.cfg.StartupTimeout)
	defer timer.Stop()
	select {
	case v := <-done:
		return v.product, v.userAgent, v.err
	case <-timer.C:
		cancel()
		<-done
		return "", "", fmt.Errorf("chrome did not start within %s", e.cfg.StartupTimeout)
	}
}

func (e *Engine) allocatorOptions(port int, profile audit.DeviceProfile) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("remote-debugging-port", strconv.Itoa(port)),
	)
	if profile.Width > 0 && profile.Height > 0 {
		opts = append(opts, chromedp.WindowSize(profile.Width, profile.Height))
	}
	if e.cfg.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(e.cfg.ChromePath))
	}
	return opts
}

// freePort asks the kernel for an unused loopback port.
func freePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("find free port: %w", err)
	}
	defer l.Close() //nolint:errcheck // listener only probed for its port
	addr, ok := l.Addr().(*net.TCPAddr)
	if !ok {
		return 0, fmt.Errorf("unexpected listener address %T", l.Addr())
	}
	return addr.Port, nil
}
