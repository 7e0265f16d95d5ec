package storage

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Backend defines the ledger of load attempts the limit evaluator depends on.
// Implementations must be thread-safe and support concurrent access.
//
// All range queries are inclusive of both WindowQuery.Start and WindowQuery.End.
// Aggregates over an empty range return exact zero values, never an absent marker.
type Backend interface {
	// Exists reports whether an attempt with the given key has been recorded.
	Exists(ctx context.Context, loadID string, customerID string) (bool, error)

	// SumAmount returns the sum of attempt amounts matching the query.
	SumAmount(ctx context.Context, q WindowQuery) (decimal.Decimal, error)

	// CountAttempts returns the number of attempts matching the query.
	CountAttempts(ctx context.Context, q WindowQuery) (int64, error)

	// Append records a new attempt. It returns ErrDuplicateKey if an attempt
	// with the same (LoadID, CustomerID) already exists; the existing row is
	// never overwritten.
	Append(ctx context.Context, attempt *LoadAttempt) error

	// Get returns the attempt with the given key, or ErrNotFound.
	Get(ctx context.Context, loadID string, customerID string) (*LoadAttempt, error)

	// List returns the attempts matching the query ordered by OccurredAt.
	List(ctx context.Context, q WindowQuery) ([]*LoadAttempt, error)

	// Totals aggregates every customer's attempts in [start, end].
	Totals(ctx context.Context, start, end time.Time) (Totals, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the backend.
	// The backend should not be used after calling Close.
	Close() error
}

// Transactional is implemented by backends that can run a sequence of
// operations as one atomic unit. The Backend handed to fn is only valid for
// the duration of the call. If fn returns an error the unit is rolled back.
type Transactional interface {
	WithinTx(ctx context.Context, fn func(tx Backend) error) error
}

// LoadAttempt is one recorded load attempt. Once written it is immutable.
type LoadAttempt struct {
	// LoadID is the caller-supplied identifier, unique per customer.
	LoadID string `json:"load_id"`

	// CustomerID identifies the account the load was made against.
	CustomerID string `json:"customer_id"`

	// Amount is the exact load amount.
	Amount decimal.Decimal `json:"amount"`

	// OccurredAt is the request timestamp with its original offset.
	OccurredAt time.Time `json:"occurred_at"`

	// Accepted is the decision recorded at processing time.
	Accepted bool `json:"accepted"`

	// RecordedAt is when the attempt was written to the ledger.
	RecordedAt time.Time `json:"recorded_at"`
}

// WindowQuery selects a customer's attempts within an inclusive time range.
type WindowQuery struct {
	CustomerID string
	Start      time.Time
	End        time.Time

	// AcceptedOnly restricts the query to attempts recorded as accepted.
	AcceptedOnly bool
}

// Matches reports whether the attempt falls within the query.
func (q WindowQuery) Matches(a *LoadAttempt) bool {
	if a.CustomerID != q.CustomerID {
		return false
	}
	if q.AcceptedOnly && !a.Accepted {
		return false
	}
	return !a.OccurredAt.Before(q.Start) && !a.OccurredAt.After(q.End)
}

// Totals is a ledger-wide aggregate over a time range.
type Totals struct {
	// Attempts is the number of attempts, accepted or not.
	Attempts int64

	// Accepted is the number of accepted attempts.
	Accepted int64

	// AcceptedAmount is the sum of accepted attempt amounts.
	AcceptedAmount decimal.Decimal

	// Customers is the number of distinct customers with at least one attempt.
	Customers int64
}

var (
	// ErrDuplicateKey is returned by Append when (LoadID, CustomerID) already exists.
	ErrDuplicateKey = errors.New("load attempt already recorded")

	// ErrNotFound is returned by Get when no attempt matches the key.
	ErrNotFound = errors.New("load attempt not found")
)

// validateAttempt checks the fields every backend requires before writing.
func validateAttempt(a *LoadAttempt) error {
	if a == nil {
		return errors.New("attempt cannot be nil")
	}
	if a.LoadID == "" {
		return errors.New("load id cannot be empty")
	}
	if a.CustomerID == "" {
		return errors.New("customer id cannot be empty")
	}
	if a.OccurredAt.IsZero() {
		return errors.New("occurred at cannot be zero")
	}
	return nil
}
