package health

import (
	"context"
	"errors"
	"time"

	"velocity-hq/loadgate/pkg/limits"
)

// Ledger is the one dependency readiness depends on.
type Ledger interface {
	Ping(ctx context.Context) error
}

// LedgerStatus reports the last readiness ping.
type LedgerStatus struct {
	Backend   string        `json:"backend"`
	Reachable bool          `json:"reachable"`
	Error     string        `json:"error,omitempty"`
	Latency   time.Duration `json:"latency_ns"`
}

// Status is the body of the liveness and readiness endpoints.
type Status struct {
	// Status is "ok" (liveness), "ready" or "unavailable" (readiness).
	Status    string        `json:"status"`
	Ledger    *LedgerStatus `json:"ledger,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// Checker answers liveness and readiness for a loadgate process.
type Checker struct {
	ledger  Ledger
	backend string
	timeout time.Duration
	now     func() time.Time
}

// New creates a checker that pings ledger, the backend named by backend
// (memory, sqlite, redis). A zero timeout means 5 seconds.
func New(ledger Ledger, backend string, timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Checker{
		ledger:  ledger,
		backend: backend,
		timeout: timeout,
		now:     time.Now,
	}
}

// Live never touches the ledger.
func (c *Checker) Live() Status {
	return Status{Status: "ok", Timestamp: c.now()}
}

// Ready pings the ledger within the timeout. A failed or late ping is
// returned as a *limits.PersistenceError.
func (c *Checker) Ready(ctx context.Context) (Status, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := c.now()
	err := c.ping(ctx)
	ledger := &LedgerStatus{
		Backend:   c.backend,
		Reachable: err == nil,
		Latency:   c.now().Sub(start),
	}

	status := Status{Status: "ready", Ledger: ledger, Timestamp: c.now()}
	if err != nil {
		var pe *limits.PersistenceError
		if !errors.As(err, &pe) {
			err = &limits.PersistenceError{Op: "ping", Err: err}
		}
		ledger.Error = err.Error()
		status.Status = "unavailable"
	}
	return status, err
}

// ping honours the deadline even when the backend ignores ctx.
func (c *Checker) ping(ctx context.Context) error {
	done := make(chan error, 1)
	go func() { done <- c.ledger.Ping(ctx) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
