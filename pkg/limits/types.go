package limits

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Request is one load attempt submitted for evaluation.
type Request struct {
	// ID is the caller-supplied load identifier, unique per customer.
	ID string

	// CustomerID identifies the account being loaded.
	CustomerID string

	// Amount is the exact amount to load.
	Amount decimal.Decimal

	// Time is when the load was requested. Its location decides the
	// calendar day and week the load counts against.
	Time time.Time
}

// Ledgers store instants as Unix nanoseconds. An instant is accepted only if
// every window it can fall in (a week, widened by the largest zone offset)
// stays inside that range.
var (
	earliestInstant = time.Unix(0, math.MinInt64).Add(8 * 24 * time.Hour)
	latestInstant   = time.Unix(0, math.MaxInt64).Add(-8 * 24 * time.Hour)
)

func checkInstant(field string, t time.Time) error {
	if t.IsZero() {
		return &ValidationError{Field: field, Message: "cannot be zero"}
	}
	if t.Before(earliestInstant) || t.After(latestInstant) {
		return &ValidationError{Field: field, Message: fmt.Sprintf("must be between %s and %s",
			earliestInstant.UTC().Format(time.RFC3339), latestInstant.UTC().Format(time.RFC3339))}
	}
	return nil
}

// Validate checks the request fields in order and reports the first
// violation as a *ValidationError.
func (r *Request) Validate() error {
	switch {
	case r == nil:
		return &ValidationError{Field: "request", Message: "cannot be nil"}
	case r.ID == "":
		return &ValidationError{Field: "id", Message: "cannot be empty"}
	case r.CustomerID == "":
		return &ValidationError{Field: "customer_id", Message: "cannot be empty"}
	case !r.Amount.IsPositive():
		return &ValidationError{Field: "load_amount", Message: fmt.Sprintf("must be positive, got %s", r.Amount)}
	}
	return checkInstant("time", r.Time)
}

// Decision is the outcome of an evaluation.
type Decision string

const (
	// DecisionAccepted means the load fits every limit and was recorded as accepted.
	DecisionAccepted Decision = "accepted"

	// DecisionRejected means a limit would be exceeded; the attempt was recorded as rejected.
	DecisionRejected Decision = "rejected"

	// DecisionDuplicate means (ID, CustomerID) was already seen; nothing was recorded.
	DecisionDuplicate Decision = "duplicate"
)

// Reason names the limit that rejected a load.
type Reason string

const (
	// ReasonNone is used for accepted and duplicate decisions.
	ReasonNone Reason = ""

	// ReasonDailyCount means the customer already reached the daily attempt count.
	ReasonDailyCount Reason = "daily_count"

	// ReasonDailyAmount means the load would exceed the daily amount.
	ReasonDailyAmount Reason = "daily_amount"

	// ReasonWeeklyAmount means the load would exceed the weekly amount.
	ReasonWeeklyAmount Reason = "weekly_amount"
)

// Result is returned by Evaluator.Evaluate for every non-error outcome.
type Result struct {
	ID         string
	CustomerID string
	Decision   Decision
	Reason     Reason
}

// Accepted reports whether the load was accepted.
func (r *Result) Accepted() bool {
	return r.Decision == DecisionAccepted
}

// AggregationPolicy selects which stored attempts count toward the windows.
type AggregationPolicy string

const (
	// AggregateAllAttempts counts every stored attempt, rejected ones included.
	AggregateAllAttempts AggregationPolicy = "all_attempts"

	// AggregateAcceptedOnly counts only attempts stored as accepted.
	AggregateAcceptedOnly AggregationPolicy = "accepted_only"
)

// Valid reports whether p is a known policy.
func (p AggregationPolicy) Valid() bool {
	return p == AggregateAllAttempts || p == AggregateAcceptedOnly
}

// Limits holds the velocity limits applied to every customer.
// Limits are fixed for the lifetime of an Evaluator.
type Limits struct {
	// DailyAmount is the maximum total loaded per calendar day (inclusive).
	DailyAmount decimal.Decimal

	// WeeklyAmount is the maximum total loaded per Monday-start week (inclusive).
	WeeklyAmount decimal.Decimal

	// DailyCount is the number of attempts allowed per calendar day.
	DailyCount int64

	// Aggregation selects which attempts count toward the windows.
	Aggregation AggregationPolicy
}

// DefaultLimits returns the standard limits: 5000.00 per day, 20000.00 per
// week and 3 attempts per day, counting every attempt.
func DefaultLimits() Limits {
	return Limits{
		DailyAmount:  decimal.RequireFromString("5000.00"),
		WeeklyAmount: decimal.RequireFromString("20000.00"),
		DailyCount:   3,
		Aggregation:  AggregateAllAttempts,
	}
}

// Validate checks that every limit is usable.
func (l Limits) Validate() error {
	if !l.DailyAmount.IsPositive() {
		return fmt.Errorf("%w: daily amount must be positive, got %s", ErrConfigInvalid, l.DailyAmount)
	}
	if !l.WeeklyAmount.IsPositive() {
		return fmt.Errorf("%w: weekly amount must be positive, got %s", ErrConfigInvalid, l.WeeklyAmount)
	}
	if l.DailyCount <= 0 {
		return fmt.Errorf("%w: daily count must be positive, got %d", ErrConfigInvalid, l.DailyCount)
	}
	if !l.Aggregation.Valid() {
		return fmt.Errorf("%w: unknown aggregation policy %q", ErrConfigInvalid, l.Aggregation)
	}
	return nil
}

// Usage is a read-only snapshot of a customer's consumption at an instant.
type Usage struct {
	// CustomerID is the customer the snapshot describes.
	CustomerID string `json:"customer_id"`

	// At is the instant the windows were derived from.
	At time.Time `json:"at"`

	// Aggregation is the policy used to compute the totals.
	Aggregation AggregationPolicy `json:"aggregation"`

	// DailyCount reports attempts in the current day.
	DailyCount CountUsage `json:"daily_count"`

	// DailyAmount reports the amount loaded in the current day.
	DailyAmount AmountUsage `json:"daily_amount"`

	// WeeklyAmount reports the amount loaded in the current week.
	WeeklyAmount AmountUsage `json:"weekly_amount"`
}

// CountUsage describes consumption of a count limit.
type CountUsage struct {
	Window    Window `json:"window"`
	Limit     int64  `json:"limit"`
	Used      int64  `json:"used"`
	Remaining int64  `json:"remaining"`
}

// AmountUsage describes consumption of an amount limit.
type AmountUsage struct {
	Window    Window          `json:"window"`
	Limit     decimal.Decimal `json:"limit"`
	Used      decimal.Decimal `json:"used"`
	Remaining decimal.Decimal `json:"remaining"`
}

// Reset returns when the window for this usage starts over.
func (u AmountUsage) Reset() time.Time {
	return u.Window.End.Add(time.Nanosecond)
}

// Reset returns when the window for this usage starts over.
func (u CountUsage) Reset() time.Time {
	return u.Window.End.Add(time.Nanosecond)
}
