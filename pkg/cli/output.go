package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"velocity-hq/loadgate/pkg/limits"
	"velocity-hq/loadgate/pkg/limits/storage"
)

// OutputFormat represents the output format for command results.
type OutputFormat string

const (
	// FormatText is a human-readable table (default).
	FormatText OutputFormat = "text"
	// FormatJSON is indented JSON output.
	FormatJSON OutputFormat = "json"
)

// ParseFormat validates a --format flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case FormatText, "":
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", NewConfigError("format", fmt.Sprintf("unknown output format %q (valid: text, json)", s))
	}
}

// Formatter formats command output.
type Formatter interface {
	FormatTo(w io.Writer, data any) error
}

// TextWriter is implemented by results with a custom text rendering.
type TextWriter interface {
	WriteText(w io.Writer) error
}

// TextFormatter formats output as plain text.
type TextFormatter struct{}

// FormatTo writes data as text, using WriteText when data implements it.
func (f *TextFormatter) FormatTo(w io.Writer, data any) error {
	if tw, ok := data.(TextWriter); ok {
		return tw.WriteText(w)
	}
	_, err := fmt.Fprintf(w, "%v\n", data)
	return err
}

// JSONFormatter formats output as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatTo writes data to writer in JSON format.
func (f *JSONFormatter) FormatTo(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	if f.Indent {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

// NewFormatter creates a new formatter for the specified format.
func NewFormatter(format OutputFormat) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	default:
		return &TextFormatter{}
	}
}

// UsageReport renders a customer's limit consumption.
type UsageReport struct {
	*limits.Usage
}

// WriteText renders the usage as a table.
func (r UsageReport) WriteText(w io.Writer) error {
	fmt.Fprintf(w, "customer:    %s\n", r.CustomerID)
	fmt.Fprintf(w, "at:          %s\n", r.At.Format(time.RFC3339))
	fmt.Fprintf(w, "aggregation: %s\n\n", r.Aggregation)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LIMIT\tUSED\tMAX\tREMAINING\tRESETS")
	fmt.Fprintf(tw, "daily count\t%d\t%d\t%d\t%s\n",
		r.DailyCount.Used, r.DailyCount.Limit, r.DailyCount.Remaining, r.DailyCount.Reset().Format(time.RFC3339))
	fmt.Fprintf(tw, "daily amount\t%s\t%s\t%s\t%s\n",
		r.DailyAmount.Used.StringFixed(2), r.DailyAmount.Limit.StringFixed(2),
		r.DailyAmount.Remaining.StringFixed(2), r.DailyAmount.Reset().Format(time.RFC3339))
	fmt.Fprintf(tw, "weekly amount\t%s\t%s\t%s\t%s\n",
		r.WeeklyAmount.Used.StringFixed(2), r.WeeklyAmount.Limit.StringFixed(2),
		r.WeeklyAmount.Remaining.StringFixed(2), r.WeeklyAmount.Reset().Format(time.RFC3339))
	return tw.Flush()
}

// HistoryReport renders a customer's recorded attempts.
type HistoryReport struct {
	CustomerID string                 `json:"customer_id"`
	From       time.Time              `json:"from"`
	To         time.Time              `json:"to"`
	Attempts   []*storage.LoadAttempt `json:"attempts"`
}

// WriteText renders the attempts as a table.
func (r HistoryReport) WriteText(w io.Writer) error {
	if len(r.Attempts) == 0 {
		_, err := fmt.Fprintf(w, "no attempts for customer %s between %s and %s\n",
			r.CustomerID, r.From.Format(time.RFC3339), r.To.Format(time.RFC3339))
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LOAD ID\tTIME\tAMOUNT\tDECISION")
	for _, a := range r.Attempts {
		decision := "rejected"
		if a.Accepted {
			decision = "accepted"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", a.LoadID, a.OccurredAt.Format(time.RFC3339), a.Amount.StringFixed(2), decision)
	}
	return tw.Flush()
}
