package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration utilities",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and print the effective limits",
	Long: `Load the configuration the same way "loadgate run" does (defaults, YAML
file, environment overrides), validate it, and print the limits that would
be enforced.

Examples:
  loadgate config validate --config /etc/loadgate/config.yaml
  LOADGATE_LIMITS_DAILY_COUNT=5 loadgate config validate`,
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configValidateCmd)
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, _, err := bootstrap()
	if err != nil {
		return err
	}

	lim, err := cfg.Limits.ToLimits()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "✓ Configuration valid")

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "  daily amount\t%s\n", lim.DailyAmount.StringFixed(2))
	fmt.Fprintf(tw, "  weekly amount\t%s\n", lim.WeeklyAmount.StringFixed(2))
	fmt.Fprintf(tw, "  daily count\t%d\n", lim.DailyCount)
	fmt.Fprintf(tw, "  aggregation\t%s\n", lim.Aggregation)
	fmt.Fprintf(tw, "  ledger\t%s\n", cfg.Storage.Backend)
	fmt.Fprintf(tw, "  listen\t%s\n", cfg.Server.ListenAddress)
	return tw.Flush()
}
