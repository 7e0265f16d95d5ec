package main

import (
	"time"

	"github.com/spf13/cobra"

	"velocity-hq/loadgate/pkg/cli"
	"velocity-hq/loadgate/pkg/ingest"
	"velocity-hq/loadgate/pkg/limits/storage"
)

var ledgerFlags struct {
	customer string
	at       string
	from     string
	to       string
	format   string
}

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect the load ledger",
	Long: `Inspect recorded load attempts and remaining limits for a customer.

Both subcommands read the ledger configured under storage. The in-memory
backend starts empty, so they are mostly useful with sqlite or redis.`,
}

var ledgerUsageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show a customer's limit consumption",
	Long: `Show how much of each limit a customer has used at an instant.

Examples:
  # Usage right now
  loadgate ledger usage --customer 528

  # Usage as seen by a request at a given time, as JSON
  loadgate ledger usage --customer 528 --at 2000-01-04T09:00:00-05:00 --format json`,
	RunE: runLedgerUsage,
}

var ledgerHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List a customer's recorded attempts",
	Long: `List a customer's recorded attempts between two instants, oldest first.

Examples:
  # The last seven days
  loadgate ledger history --customer 528

  # An explicit range
  loadgate ledger history --customer 528 --from 2000-01-01T00:00:00Z --to 2000-01-08T00:00:00Z`,
	RunE: runLedgerHistory,
}

func init() {
	rootCmd.AddCommand(ledgerCmd)
	ledgerCmd.AddCommand(ledgerUsageCmd, ledgerHistoryCmd)

	ledgerCmd.PersistentFlags().StringVar(&ledgerFlags.customer, "customer", "", "customer ID (required)")
	ledgerCmd.PersistentFlags().StringVar(&ledgerFlags.format, "format", "text", "output format: text, json")
	_ = ledgerCmd.MarkPersistentFlagRequired("customer")

	ledgerUsageCmd.Flags().StringVar(&ledgerFlags.at, "at", "", "RFC 3339 instant (default now)")
	ledgerHistoryCmd.Flags().StringVar(&ledgerFlags.from, "from", "", "RFC 3339 start (default seven days before --to)")
	ledgerHistoryCmd.Flags().StringVar(&ledgerFlags.to, "to", "", "RFC 3339 end (default now)")
}

func runLedgerUsage(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(ledgerFlags.format)
	if err != nil {
		return err
	}
	at, err := parseInstant(ledgerFlags.at, time.Now().UTC())
	if err != nil {
		return cli.NewConfigError("at", err.Error())
	}

	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	store, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer store.Close()

	evaluator, err := newEvaluator(cfg, store, nil, logger)
	if err != nil {
		return err
	}

	usage, err := evaluator.Usage(ctx, ledgerFlags.customer, at)
	if err != nil {
		return cli.NewCommandError("ledger usage", err)
	}

	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), cli.UsageReport{Usage: usage})
}

func runLedgerHistory(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(ledgerFlags.format)
	if err != nil {
		return err
	}
	to, err := parseInstant(ledgerFlags.to, time.Now().UTC())
	if err != nil {
		return cli.NewConfigError("to", err.Error())
	}
	from, err := parseInstant(ledgerFlags.from, to.AddDate(0, 0, -7))
	if err != nil {
		return cli.NewConfigError("from", err.Error())
	}
	if from.After(to) {
		return cli.NewConfigError("from", "must not be after --to")
	}

	cfg, _, err := bootstrap()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	store, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer store.Close()

	attempts, err := store.List(ctx, storage.WindowQuery{
		CustomerID: ledgerFlags.customer,
		Start:      from,
		End:        to,
	})
	if err != nil {
		return cli.NewCommandError("ledger history", err)
	}

	report := cli.HistoryReport{
		CustomerID: ledgerFlags.customer,
		From:       from,
		To:         to,
		Attempts:   attempts,
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), report)
}

// parseInstant parses an RFC 3339 flag value, returning def when empty.
func parseInstant(value string, def time.Time) (time.Time, error) {
	if value == "" {
		return def, nil
	}
	return ingest.ParseTime(value)
}
