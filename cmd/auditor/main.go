package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/lighthouse-auditor/internal/config"
	"github.com/JakeFAU/lighthouse-auditor/internal/logging"
	"github.com/JakeFAU/lighthouse-auditor/internal/server"
)

type options struct {
	configPath string
	dev        bool
}

// newRootCmd creates the auditor command.
func newRootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "auditor",
		Short: "Run scheduled lighthouse audits and publish the scores.",
		Long: `auditor audits a configured list of pages with lighthouse under desktop and
mobile profiles, appends one score row per audit to a spreadsheet or database
table, and archives each HTML report to object storage.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	cmd.Flags().BoolVar(&opts.dev, "dev", false, "run a single batch and exit")
	return cmd
}

func run(ctx context.Context, opts options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config failed: %w", err)
	}
	logger, err := logging.New(logging.Options{
		Development: cfg.Logging.Development,
		Level:       cfg.Logging.Level,
	})
	if err != nil {
		return fmt.Errorf("logger init failed: %w", err)
	}
	defer func() {
		_ = logger.Sync() //nolint:errcheck // stderr sync fails on some terminals
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := server.Build(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("app init failed: %w", err)
	}
	defer app.Close()

	if opts.dev {
		logger.Info("development mode, running a single batch")
		app.RunOnce(ctx)
		return nil
	}
	return app.Serve(ctx)
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "auditor: %v\n", err)
		os.Exit(1)
	}
}
