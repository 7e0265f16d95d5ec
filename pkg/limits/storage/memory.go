package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// MemoryBackend implements Backend using in-memory storage.
// It is the reference implementation of the ledger contract and the default
// backend. All data is lost when the process exits.
//
// MemoryBackend is thread-safe and supports concurrent access using sync.RWMutex.
type MemoryBackend struct {
	// attempts maps the composite key to the recorded attempt.
	attempts map[attemptKey]*LoadAttempt

	// byCustomer indexes attempts per customer in insertion order.
	byCustomer map[string][]*LoadAttempt

	// mu protects both maps.
	mu sync.RWMutex

	// now is the clock used for RecordedAt.
	now func() time.Time
}

type attemptKey struct {
	loadID     string
	customerID string
}

// NewMemoryBackend creates a new, empty in-memory ledger.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		attempts:   make(map[attemptKey]*LoadAttempt),
		byCustomer: make(map[string][]*LoadAttempt),
		now:        time.Now,
	}
}

// Exists reports whether an attempt with the given key has been recorded.
func (m *MemoryBackend) Exists(ctx context.Context, loadID string, customerID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.attempts[attemptKey{loadID: loadID, customerID: customerID}]
	return ok, nil
}

// SumAmount returns the sum of attempt amounts matching the query.
func (m *MemoryBackend) SumAmount(ctx context.Context, q WindowQuery) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	sum := decimal.Zero
	for _, a := range m.byCustomer[q.CustomerID] {
		if q.Matches(a) {
			sum = sum.Add(a.Amount)
		}
	}
	return sum, nil
}

// CountAttempts returns the number of attempts matching the query.
func (m *MemoryBackend) CountAttempts(ctx context.Context, q WindowQuery) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var count int64
	for _, a := range m.byCustomer[q.CustomerID] {
		if q.Matches(a) {
			count++
		}
	}
	return count, nil
}

// Append records a new attempt.
func (m *MemoryBackend) Append(ctx context.Context, attempt *LoadAttempt) error {
	if err := validateAttempt(attempt); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	key := attemptKey{loadID: attempt.LoadID, customerID: attempt.CustomerID}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.attempts[key]; exists {
		return ErrDuplicateKey
	}

	// Store a private copy so callers cannot mutate the ledger.
	stored := *attempt
	if stored.RecordedAt.IsZero() {
		stored.RecordedAt = m.now()
	}

	m.attempts[key] = &stored
	m.byCustomer[attempt.CustomerID] = append(m.byCustomer[attempt.CustomerID], &stored)

	return nil
}

// Get returns the attempt with the given key.
func (m *MemoryBackend) Get(ctx context.Context, loadID string, customerID string) (*LoadAttempt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.attempts[attemptKey{loadID: loadID, customerID: customerID}]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

// List returns the attempts matching the query ordered by OccurredAt.
func (m *MemoryBackend) List(ctx context.Context, q WindowQuery) ([]*LoadAttempt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	var out []*LoadAttempt
	for _, a := range m.byCustomer[q.CustomerID] {
		if q.Matches(a) {
			cp := *a
			out = append(out, &cp)
		}
	}
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OccurredAt.Before(out[j].OccurredAt)
	})
	return out, nil
}

// Totals aggregates every customer's attempts in [start, end].
func (m *MemoryBackend) Totals(ctx context.Context, start, end time.Time) (Totals, error) {
	if err := ctx.Err(); err != nil {
		return Totals{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	totals := Totals{AcceptedAmount: decimal.Zero}
	for _, attempts := range m.byCustomer {
		seen := false
		for _, a := range attempts {
			if a.OccurredAt.Before(start) || a.OccurredAt.After(end) {
				continue
			}
			seen = true
			totals.Attempts++
			if a.Accepted {
				totals.Accepted++
				totals.AcceptedAmount = totals.AcceptedAmount.Add(a.Amount)
			}
		}
		if seen {
			totals.Customers++
		}
	}
	return totals, nil
}

// Ping always succeeds for the in-memory ledger.
func (m *MemoryBackend) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close releases any resources held by the backend.
func (m *MemoryBackend) Close() error {
	return nil
}

// Size returns the number of recorded attempts.
// This is useful for monitoring and testing.
func (m *MemoryBackend) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.attempts)
}
