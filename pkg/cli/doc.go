/*
Package cli provides helpers shared by the loadgate commands.

Output Formatting:

Commands print results as text tables or indented JSON:

	format, err := cli.ParseFormat(flagValue)
	formatter := cli.NewFormatter(format)
	if err := formatter.FormatTo(os.Stdout, cli.UsageReport{Usage: usage}); err != nil {
		return err
	}

Errors and Exit Codes:

ExitCode maps configuration problems to 2 and ledger failures to 3 so
scripts can tell them apart from other failures.

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()
*/
package cli
