package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"velocity-hq/loadgate/pkg/cli"
	"velocity-hq/loadgate/pkg/config"
	"velocity-hq/loadgate/pkg/telemetry/logging"
)

var (
	// Global flags
	cfgFile string
	envFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "loadgate",
	Short: "loadgate - velocity limits for customer account loads",
	Long: `loadgate decides whether a customer may load funds into their account.

Each attempt is checked against three limits before it is recorded:
  - a maximum amount per calendar day
  - a maximum amount per Monday-start week
  - a maximum number of attempts per day

Attempts are served over HTTP (loadgate run) or read from NDJSON files
(loadgate process). The ledger lives in memory, SQLite or Redis.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return cli.ExitCode(err)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults apply when empty)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file loaded before the config")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// bootstrap loads the configuration, applies command overrides, and installs
// the process logger.
func bootstrap(overrides ...func(*config.Config)) (*config.Config, *slog.Logger, error) {
	if err := config.LoadEnvFile(envFile); err != nil {
		return nil, nil, cli.NewConfigError("env-file", err.Error())
	}

	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, nil, cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	for _, override := range overrides {
		override(cfg)
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	logger, err := logging.New(logging.FromConfig(cfg.Telemetry.Logging))
	if err != nil {
		return nil, nil, cli.NewConfigError("telemetry.logging", err.Error())
	}
	slog.SetDefault(logger)

	return cfg, logger, nil
}
