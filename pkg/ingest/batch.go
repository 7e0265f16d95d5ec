package ingest

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"velocity-hq/loadgate/pkg/limits"
)

// maxLineBytes bounds a single NDJSON line.
const maxLineBytes = 1 << 20

// Evaluator is the subset of *limits.Evaluator the processor needs.
type Evaluator interface {
	Evaluate(ctx context.Context, req *limits.Request) (*limits.Result, error)
}

// Summary counts what a batch run did.
type Summary struct {
	Lines      int `json:"lines"`
	Accepted   int `json:"accepted"`
	Rejected   int `json:"rejected"`
	Duplicates int `json:"duplicates"`
	Skipped    int `json:"skipped"`
}

// Processor evaluates NDJSON batches line by line, in input order.
//
// Decisions depend on earlier lines, so evaluation is strictly sequential.
// Lines that fail to parse or validate are logged and skipped. A ledger
// failure stops the run: later decisions would be computed against history
// missing the failed write.
type Processor struct {
	evaluator Evaluator
	logger    *slog.Logger
}

// NewProcessor creates a batch processor. A nil logger uses slog.Default().
func NewProcessor(evaluator Evaluator, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		evaluator: evaluator,
		logger:    logger.With("component", "ingest.processor"),
	}
}

// Process reads requests from r and writes one response line per accepted
// or rejected request to w.
func (p *Processor) Process(ctx context.Context, r io.Reader, w io.Writer) (Summary, error) {
	var summary Summary

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	out := bufio.NewWriter(w)
	enc := json.NewEncoder(out)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if err := ctx.Err(); err != nil {
			_ = out.Flush()
			return summary, fmt.Errorf("batch interrupted at line %d: %w", lineNo, err)
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		summary.Lines++

		req, err := DecodeRequest(line)
		if err == nil {
			var result *limits.Result
			result, err = p.evaluator.Evaluate(ctx, req)
			if err == nil {
				if err := p.record(enc, result, &summary); err != nil {
					_ = out.Flush()
					return summary, fmt.Errorf("failed to write response for line %d: %w", lineNo, err)
				}
				continue
			}
		}

		if IsInvalid(err) {
			summary.Skipped++
			p.logger.WarnContext(ctx, "skipping invalid line", "line", lineNo, "error", err)
			continue
		}

		_ = out.Flush()
		return summary, fmt.Errorf("line %d: %w", lineNo, err)
	}

	if err := scanner.Err(); err != nil {
		_ = out.Flush()
		return summary, fmt.Errorf("failed to read input after line %d: %w", lineNo, err)
	}
	if err := out.Flush(); err != nil {
		return summary, fmt.Errorf("failed to flush output: %w", err)
	}

	p.logger.InfoContext(ctx, "batch processed",
		"lines", summary.Lines,
		"accepted", summary.Accepted,
		"rejected", summary.Rejected,
		"duplicates", summary.Duplicates,
		"skipped", summary.Skipped,
	)
	return summary, nil
}

func (p *Processor) record(enc *json.Encoder, result *limits.Result, summary *Summary) error {
	switch result.Decision {
	case limits.DecisionDuplicate:
		summary.Duplicates++
		return nil
	case limits.DecisionAccepted:
		summary.Accepted++
	default:
		summary.Rejected++
	}
	return enc.Encode(NewResponse(result))
}
