package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"velocity-hq/loadgate/pkg/cli"
	"velocity-hq/loadgate/pkg/config"
	"velocity-hq/loadgate/pkg/limits/stats"
	"velocity-hq/loadgate/pkg/server"
	"velocity-hq/loadgate/pkg/telemetry/health"
	"velocity-hq/loadgate/pkg/telemetry/metrics"
	"velocity-hq/loadgate/pkg/telemetry/tracing"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the loadgate HTTP server",
	Long: `Start the loadgate HTTP server with the specified configuration.

The server accepts load attempts on POST /api/loads and reports remaining
limits on GET /api/customers/{customerID}/usage. Health, readiness, version
and Prometheus endpoints are served next to the API.

Examples:
  # Start with defaults (in-memory ledger on :8080)
  loadgate run

  # Start with a config file and a dotenv file
  loadgate run --config /etc/loadgate/config.yaml --env-file .env

  # Override listen address
  loadgate run --listen 0.0.0.0:9090

  # Validate config without starting server
  loadgate run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, logger, err := bootstrap(func(c *config.Config) {
		if runFlags.listenAddress != "" {
			c.Server.ListenAddress = runFlags.listenAddress
		}
		if runFlags.logLevel != "" {
			c.Telemetry.Logging.Level = runFlags.logLevel
		}
	})
	if err != nil {
		return err
	}

	if runFlags.dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration valid")
		return nil
	}

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	// Tracing first: the evaluator picks up the global tracer provider.
	tracer, err := tracing.New(&cfg.Telemetry.Tracing, Version)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("tracer shutdown failed", "error", err)
		}
	}()

	store, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer store.Close()

	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)

	evaluator, err := newEvaluator(cfg, store, collector.Registerer(), logger)
	if err != nil {
		return err
	}

	checker := health.New(store, cfg.Storage.Backend, cfg.Telemetry.Health.CheckTimeout)

	if cfg.Stats.Enabled {
		reporter := stats.NewReporter(store, cfg.Stats.Schedule, collector.Registerer())
		if err := reporter.Start(ctx); err != nil {
			return cli.NewCommandError("run", err)
		}
		defer reporter.Stop()
	}

	srv, err := server.New(server.Config{
		Server:    cfg.Server,
		Health:    cfg.Telemetry.Health,
		Metrics:   cfg.Telemetry.Metrics,
		Evaluator: evaluator,
		Collector: collector,
		Checker:   checker,
		Tracer:    tracer,
		Version: health.VersionInfo{
			Version:   Version,
			Commit:    GitCommit,
			Backend:   cfg.Storage.Backend,
			BuildTime: BuildDate,
		},
		Logger: logger,
	})
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	logger.Info("starting loadgate",
		"version", Version,
		"address", cfg.Server.ListenAddress,
		"backend", cfg.Storage.Backend,
		"aggregation", cfg.Limits.Aggregation,
		"tracing", tracer.Enabled(),
	)

	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}

	logger.Info("loadgate stopped")
	return nil
}
