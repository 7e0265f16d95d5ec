package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"velocity-hq/loadgate/pkg/limits"
	"velocity-hq/loadgate/pkg/limits/storage"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{"json", FormatJSON, false},
		{"csv", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTextFormatter(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := NewFormatter(FormatText).FormatTo(buf, "test message"); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}
	if buf.String() != "test message\n" {
		t.Errorf("FormatTo() = %q", buf.String())
	}
}

func TestJSONFormatter(t *testing.T) {
	buf := &bytes.Buffer{}
	data := map[string]int{"value": 42}
	if err := NewFormatter(FormatJSON).FormatTo(buf, data); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}

	var decoded map[string]int
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if decoded["value"] != 42 {
		t.Errorf("decoded = %v", decoded)
	}
	if !strings.Contains(buf.String(), "\n  \"value\"") {
		t.Errorf("expected indented output, got %q", buf.String())
	}
}

func testUsage() *limits.Usage {
	at := time.Date(2000, 1, 5, 12, 0, 0, 0, time.UTC)
	daily := limits.DailyWindow(at)
	weekly := limits.WeeklyWindow(at)
	return &limits.Usage{
		CustomerID:  "528",
		At:          at,
		Aggregation: limits.AggregateAllAttempts,
		DailyCount:  limits.CountUsage{Window: daily, Limit: 3, Used: 1, Remaining: 2},
		DailyAmount: limits.AmountUsage{
			Window:    daily,
			Limit:     decimal.RequireFromString("5000"),
			Used:      decimal.RequireFromString("3318.47"),
			Remaining: decimal.RequireFromString("1681.53"),
		},
		WeeklyAmount: limits.AmountUsage{
			Window:    weekly,
			Limit:     decimal.RequireFromString("20000"),
			Used:      decimal.RequireFromString("3318.47"),
			Remaining: decimal.RequireFromString("16681.53"),
		},
	}
}

func TestUsageReport_Text(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := NewFormatter(FormatText).FormatTo(buf, UsageReport{testUsage()}); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"customer:    528",
		"daily amount",
		"3318.47",
		"1681.53",
		"5000.00",
		"2000-01-06T00:00:00Z",
		"2000-01-10T00:00:00Z",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestUsageReport_JSON(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := NewFormatter(FormatJSON).FormatTo(buf, UsageReport{testUsage()}); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if decoded["customer_id"] != "528" {
		t.Errorf("customer_id = %v", decoded["customer_id"])
	}
	if _, ok := decoded["weekly_amount"]; !ok {
		t.Error("expected weekly_amount in JSON output")
	}
}

func TestHistoryReport_Text(t *testing.T) {
	from := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	empty := &bytes.Buffer{}
	if err := (HistoryReport{CustomerID: "1", From: from, To: to}).WriteText(empty); err != nil {
		t.Fatalf("WriteText() error = %v", err)
	}
	if !strings.Contains(empty.String(), "no attempts for customer 1") {
		t.Errorf("unexpected empty output %q", empty.String())
	}

	report := HistoryReport{
		CustomerID: "1",
		From:       from,
		To:         to,
		Attempts: []*storage.LoadAttempt{
			{LoadID: "10", CustomerID: "1", Amount: decimal.RequireFromString("100"), OccurredAt: from.Add(time.Hour), Accepted: true},
			{LoadID: "11", CustomerID: "1", Amount: decimal.RequireFromString("6000.5"), OccurredAt: from.Add(2 * time.Hour)},
		},
	}
	buf := &bytes.Buffer{}
	if err := report.WriteText(buf); err != nil {
		t.Fatalf("WriteText() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and 2 rows, got %d lines:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[1], "accepted") || !strings.Contains(lines[2], "6000.50") || !strings.Contains(lines[2], "rejected") {
		t.Errorf("unexpected rows:\n%s", buf.String())
	}
}
