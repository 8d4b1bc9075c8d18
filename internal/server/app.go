// Package server wires configuration into a runnable auditor application.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/lighthouse-auditor/internal/api"
	"github.com/JakeFAU/lighthouse-auditor/internal/audit"
	"github.com/JakeFAU/lighthouse-auditor/internal/clock/system"
	"github.com/JakeFAU/lighthouse-auditor/internal/config"
	"github.com/JakeFAU/lighthouse-auditor/internal/dispatcher"
	"github.com/JakeFAU/lighthouse-auditor/internal/engine/headless"
	"github.com/JakeFAU/lighthouse-auditor/internal/engine/lighthouse"
	"github.com/JakeFAU/lighthouse-auditor/internal/hash/sha256"
	"github.com/JakeFAU/lighthouse-auditor/internal/id/uuid"
	"github.com/JakeFAU/lighthouse-auditor/internal/policy/ratelimit"
	memorypublisher "github.com/JakeFAU/lighthouse-auditor/internal/publisher/memory"
	gcppublisher "github.com/JakeFAU/lighthouse-auditor/internal/publisher/pubsub"
	"github.com/JakeFAU/lighthouse-auditor/internal/scheduler"
	gcsstorage "github.com/JakeFAU/lighthouse-auditor/internal/storage/gcs"
	localstorage "github.com/JakeFAU/lighthouse-auditor/internal/storage/local"
	memorystorage "github.com/JakeFAU/lighthouse-auditor/internal/storage/memory"
	pgstore "github.com/JakeFAU/lighthouse-auditor/internal/storage/postgres"
	sheetsstore "github.com/JakeFAU/lighthouse-auditor/internal/storage/sheets"
	"github.com/JakeFAU/lighthouse-auditor/internal/worker"
)

// App contains the application's dependencies.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	dispatch  *dispatcher.Dispatcher
	apiServer *api.Server
	closers   []namedCloser
}

type namedCloser struct {
	name  string
	close func() error
}

// Build creates the application's dependencies. Remote clients are opened
// here, so credential and connectivity problems surface before the first batch.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	app := &App{cfg: cfg, logger: logger}
	app.logger.Info("building application dependencies",
		zap.Int("urls", len(cfg.Audit.URLs)),
		zap.String("engine", cfg.Audit.Engine),
		zap.String("tabular_backend", cfg.Tabular.Backend),
		zap.String("storage_backend", cfg.Storage.Backend),
	)

	table, err := setupTabular(ctx, app)
	if err != nil {
		app.closeAll()
		return nil, err
	}
	blobs, err := setupStorage(ctx, app)
	if err != nil {
		app.closeAll()
		return nil, err
	}
	publisher, err := setupPublisher(ctx, app)
	if err != nil {
		app.closeAll()
		return nil, err
	}
	engine, err := setupEngine(app)
	if err != nil {
		app.closeAll()
		return nil, err
	}

	runner := audit.NewRunner(engine, cfg.AuditTimeout(), logger.Named("runner"))
	workerCfg := worker.Config{
		WorkDir:     cfg.Audit.WorkDir,
		BlobPrefix:  cfg.Storage.Prefix,
		ArchiveJSON: cfg.Storage.ArchiveJSON,
		Topic:       cfg.PubSub.TopicName,
	}
	app.logger.Info("worker config",
		zap.String("work_dir", workerCfg.WorkDir),
		zap.String("blob_prefix", workerCfg.BlobPrefix),
		zap.Bool("archive_json", workerCfg.ArchiveJSON),
		zap.String("topic", workerCfg.Topic),
		zap.Duration("audit_timeout", cfg.AuditTimeout()),
	)
	w := worker.New(runner, sha256.New(), table, blobs, publisher, workerCfg, logger.Named("worker"))
	if interval := cfg.HostInterval(); interval > 0 {
		w.WithThrottle(ratelimit.New(ratelimit.Config{Interval: interval}))
		app.logger.Info("per-host audit spacing enabled", zap.Duration("interval", interval))
	}
	app.dispatch = dispatcher.New(w, cfg.Audit.URLs, audit.DefaultProfiles(), system.New(), uuid.New(), logger.Named("dispatcher"))
	app.apiServer = api.NewServer(app.dispatch, logger.Named("api"))
	return app, nil
}

// Dispatcher exposes the batch driver.
func (a *App) Dispatcher() *dispatcher.Dispatcher {
	return a.dispatch
}

// RunOnce runs a single batch and returns its summary.
func (a *App) RunOnce(ctx context.Context) audit.BatchSummary {
	var summary audit.BatchSummary
	scheduler.RunOnce(ctx, func(ctx context.Context) {
		summary = a.dispatch.RunBatch(ctx)
	})
	return summary
}

// Serve runs batches on the configured schedule and, when a port is set,
// the ops HTTP server. It blocks until ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	sched, err := scheduler.New(a.cfg.Schedule.Cron, a.logger.Named("scheduler"),
		scheduler.WithRunOnStart(a.cfg.Schedule.RunOnStart))
	if err != nil {
		return fmt.Errorf("scheduler init failed: %w", err)
	}

	ctx, stop := context.WithCancel(ctx)
	defer stop()

	var srv *http.Server
	if a.cfg.Server.Port > 0 {
		srv = &http.Server{
			Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
			Handler:           a.apiServer.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("http server error", zap.Error(err))
				stop()
			}
		}()
	}

	err = sched.Run(ctx, func(ctx context.Context) { a.dispatch.RunBatch(ctx) })
	a.logger.Info("shutdown initiated")

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
			a.logger.Error("server shutdown error", zap.Error(shutdownErr))
		}
	}
	if err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	return nil
}

// Close releases remote clients in reverse order of creation.
func (a *App) Close() {
	a.closeAll()
	a.logger.Info("shutdown complete")
}

func (a *App) closeAll() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.close(); err != nil {
			a.logger.Warn("close failed", zap.String("component", c.name), zap.Error(err))
		}
	}
	a.closers = nil
}

func (a *App) onClose(name string, fn func() error) {
	a.closers = append(a.closers, namedCloser{name: name, close: fn})
}

func setupTabular(ctx context.Context, app *App) (audit.TabularStore, error) {
	cfg := app.cfg
	switch cfg.Tabular.Backend {
	case config.BackendSheets:
		store, err := sheetsstore.Open(ctx, sheetsstore.Config{
			SpreadsheetID:   cfg.Sheets.SpreadsheetID,
			Range:           cfg.Sheets.Range,
			CredentialsFile: cfg.Sheets.CredentialsFile,
		})
		if err != nil {
			return nil, fmt.Errorf("sheets store init failed: %w", err)
		}
		if cfg.Sheets.EnsureHeader {
			if err := store.EnsureHeader(ctx, audit.Header()); err != nil {
				app.logger.Warn("sheet header check failed", zap.Error(err))
			}
		}
		app.logger.Info("using sheets tabular backend",
			zap.String("spreadsheet_id", cfg.Sheets.SpreadsheetID),
			zap.String("range", cfg.Sheets.Range),
		)
		return store, nil
	case config.BackendPostgres:
		store, err := pgstore.NewResultStore(ctx, pgstore.ResultStoreConfig{
			DSN:      cfg.DB.DSN,
			Table:    cfg.DB.Table,
			MaxConns: cfg.DB.MaxConns,
		})
		if err != nil {
			return nil, fmt.Errorf("result store init failed: %w", err)
		}
		app.onClose("postgres", func() error {
			store.Close()
			return nil
		})
		app.logger.Info("using postgres tabular backend", zap.String("table", cfg.DB.Table))
		return store, nil
	default:
		app.logger.Warn("using in-memory tabular backend, rows are lost on exit")
		return memorystorage.NewTable(), nil
	}
}

func setupStorage(ctx context.Context, app *App) (audit.BlobStore, error) {
	cfg := app.cfg.Storage
	switch cfg.Backend {
	case config.BackendGCS:
		store, err := gcsstorage.Open(ctx, gcsstorage.Config{
			Bucket:          cfg.GCSBucket,
			CredentialsFile: cfg.CredentialsFile,
		})
		if err != nil {
			return nil, fmt.Errorf("gcs blob store init failed: %w", err)
		}
		app.onClose("gcs", store.Close)
		app.logger.Info("using GCS storage backend", zap.String("bucket", cfg.GCSBucket))
		return store, nil
	case config.BackendLocal:
		store, err := localstorage.New(localstorage.Config{BaseDir: cfg.LocalDir})
		if err != nil {
			return nil, fmt.Errorf("local blob store init failed: %w", err)
		}
		app.logger.Info("using local storage backend", zap.String("path", cfg.LocalDir))
		return store, nil
	default:
		app.logger.Warn("using in-memory storage backend, reports are lost on exit")
		return memorystorage.NewBlobStore(), nil
	}
}

func setupPublisher(ctx context.Context, app *App) (audit.Publisher, error) {
	cfg := app.cfg.PubSub
	if cfg.TopicName == "" {
		app.logger.Debug("no Pub/Sub topic configured, completion notifications disabled")
		return nil, nil
	}
	if cfg.ProjectID == "" {
		app.logger.Warn("Pub/Sub project missing, using in-memory publisher")
		return memorypublisher.New(), nil
	}
	pub, err := gcppublisher.Open(ctx, gcppublisher.Config{
		ProjectID:       cfg.ProjectID,
		TopicName:       cfg.TopicName,
		CredentialsFile: cfg.CredentialsFile,
	})
	if err != nil {
		return nil, fmt.Errorf("pubsub publisher init failed: %w", err)
	}
	app.onClose("pubsub", pub.Close)
	app.logger.Info("Pub/Sub publisher initialized",
		zap.String("project", cfg.ProjectID),
		zap.String("topic", cfg.TopicName),
	)
	return pub, nil
}

func setupEngine(app *App) (audit.Engine, error) {
	cfg := app.cfg.Audit
	cli := lighthouse.New(lighthouse.Config{
		Binary:      cfg.LighthousePath,
		ChromePath:  cfg.ChromePath,
		ChromeFlags: cfg.ChromeFlags,
		Categories:  cfg.Categories,
	}, app.logger.Named("lighthouse"))
	if cfg.Engine != config.EngineHeadless {
		app.logger.Info("using lighthouse cli engine", zap.String("binary", cfg.LighthousePath))
		return cli, nil
	}
	engine, err := headless.New(headless.Config{
		ChromePath:     cfg.ChromePath,
		StartupTimeout: app.cfg.ChromeStartupTimeout(),
	}, cli, app.logger.Named("headless"))
	if err != nil {
		return nil, fmt.Errorf("headless engine init failed: %w", err)
	}
	app.logger.Info("using chromedp-managed engine", zap.String("binary", cfg.LighthousePath))
	return engine, nil
}
