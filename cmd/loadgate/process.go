package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"velocity-hq/loadgate/pkg/cli"
	"velocity-hq/loadgate/pkg/ingest"
)

var processFlags struct {
	input  string
	output string
}

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Evaluate a file of load attempts",
	Long: `Evaluate newline-delimited JSON load attempts in file order.

Each input line is {"id", "customer_id", "load_amount", "time"}. One line
{"id", "customer_id", "accepted"} is written per accepted or rejected attempt;
duplicates and malformed lines produce no output. A ledger failure stops the
run. "-" reads stdin or writes stdout.

Examples:
  # Evaluate a file against a fresh in-memory ledger
  loadgate process --input input.txt --output output.txt

  # Stream through a persistent SQLite ledger
  cat input.txt | LOADGATE_STORAGE_BACKEND=sqlite loadgate process`,
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().StringVarP(&processFlags.input, "input", "i", "", `input file, "-" for stdin (default from batch.input_path)`)
	processCmd.Flags().StringVarP(&processFlags.output, "output", "o", "", `output file, "-" for stdout (default from batch.output_path)`)
}

func runProcess(cmd *cobra.Command, args []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}

	inputPath := processFlags.input
	if inputPath == "" {
		inputPath = cfg.Batch.InputPath
	}
	outputPath := processFlags.output
	if outputPath == "" {
		outputPath = cfg.Batch.OutputPath
	}

	in, err := openInput(inputPath, cmd.InOrStdin())
	if err != nil {
		return cli.NewCommandError("process", err)
	}
	defer in.Close()

	out, err := createOutput(outputPath, cmd.OutOrStdout())
	if err != nil {
		return cli.NewCommandError("process", err)
	}

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	store, err := openStore(ctx, cfg.Storage)
	if err != nil {
		out.Close()
		return err
	}
	defer store.Close()

	evaluator, err := newEvaluator(cfg, store, nil, logger)
	if err != nil {
		out.Close()
		return err
	}

	summary, procErr := ingest.NewProcessor(evaluator, logger).Process(ctx, in, out)
	if err := out.Close(); err != nil && procErr == nil {
		procErr = fmt.Errorf("failed to write output: %w", err)
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "processed %d lines: %d accepted, %d rejected, %d duplicates, %d skipped\n",
		summary.Lines, summary.Accepted, summary.Rejected, summary.Duplicates, summary.Skipped)

	if procErr != nil {
		return cli.NewCommandError("process", procErr)
	}
	return nil
}

func openInput(path string, stdin io.Reader) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	return f, nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func createOutput(path string, stdout io.Writer) (io.WriteCloser, error) {
	if path == "-" {
		return nopWriteCloser{stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output: %w", err)
	}
	return f, nil
}
