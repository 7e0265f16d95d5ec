package limits

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"velocity-hq/loadgate/pkg/limits/storage"
)

// DefaultStoreTimeout bounds lock wait plus every ledger call of one evaluation.
const DefaultStoreTimeout = 5 * time.Second

const tracerName = "velocity-hq/loadgate/pkg/limits"

// Evaluator decides whether load requests fit the velocity limits and
// records every decided attempt in the ledger.
//
// Calls for the same customer are serialized from the duplicate check
// through the append, so concurrent loads never observe stale aggregates.
// Calls for different customers run in parallel.
//
// # Example
//
//	evaluator, err := limits.NewEvaluator(limits.Config{
//	    Limits: limits.DefaultLimits(),
//	    Store:  storage.NewMemoryBackend(),
//	})
//
//	result, err := evaluator.Evaluate(ctx, &limits.Request{
//	    ID:         "15887",
//	    CustomerID: "528",
//	    Amount:     decimal.RequireFromString("3318.47"),
//	    Time:       ts,
//	})
type Evaluator struct {
	limits       Limits
	store        storage.Backend
	storeTimeout time.Duration
	locks        *keyLocks

	metrics *Metrics
	logger  *slog.Logger
	tracer  trace.Tracer
}

// Config contains configuration for the evaluator.
type Config struct {
	// Limits are the velocity limits to enforce.
	Limits Limits

	// Store is the ledger. Required.
	Store storage.Backend

	// StoreTimeout bounds each evaluation. Default: 5 seconds.
	StoreTimeout time.Duration

	// Metrics records decisions. Optional.
	Metrics *Metrics

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Tracer defaults to the global OpenTelemetry tracer provider.
	Tracer trace.Tracer
}

// NewEvaluator creates an evaluator. Limits are validated once here and
// never change afterwards.
func NewEvaluator(cfg Config) (*Evaluator, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("%w: store is required", ErrConfigInvalid)
	}
	if cfg.Limits.Aggregation == "" {
		cfg.Limits.Aggregation = AggregateAllAttempts
	}
	if err := cfg.Limits.Validate(); err != nil {
		return nil, err
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = DefaultStoreTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer(tracerName)
	}

	return &Evaluator{
		limits:       cfg.Limits,
		store:        cfg.Store,
		storeTimeout: cfg.StoreTimeout,
		locks:        newKeyLocks(),
		metrics:      cfg.Metrics,
		logger:       cfg.Logger.With("component", "limits.evaluator"),
		tracer:       cfg.Tracer,
	}, nil
}

// Limits returns the limits the evaluator enforces.
func (e *Evaluator) Limits() Limits {
	return e.limits
}

// Evaluate decides a load request and records the attempt.
//
// Validation failures return a *ValidationError and touch nothing. A
// request whose (ID, CustomerID) was already recorded yields
// DecisionDuplicate without reading or writing aggregates. Any ledger
// failure returns a *PersistenceError and no result.
func (e *Evaluator) Evaluate(ctx context.Context, req *Request) (*Result, error) {
	start := time.Now()
	defer func() {
		e.metrics.ObserveDuration(time.Since(start))
	}()

	ctx, span := e.tracer.Start(ctx, "limits.Evaluate")
	defer span.End()

	if err := req.Validate(); err != nil {
		e.metrics.RecordError("validation")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.DebugContext(ctx, "load request failed validation", "error", err)
		return nil, err
	}

	span.SetAttributes(
		attribute.String("load.id", req.ID),
		attribute.String("customer.id", req.CustomerID),
	)

	ctx, cancel := context.WithTimeout(ctx, e.storeTimeout)
	defer cancel()

	release, err := e.locks.Acquire(ctx, req.CustomerID)
	if err != nil {
		return nil, e.fail(ctx, span, req, &PersistenceError{Op: "lock", Err: err})
	}
	defer release()

	var result *Result
	decide := func(store storage.Backend) error {
		r, err := e.decide(ctx, store, req)
		if err != nil {
			return err
		}
		result = r
		return nil
	}

	if tx, ok := e.store.(storage.Transactional); ok {
		err = tx.WithinTx(ctx, decide)
	} else {
		err = decide(e.store)
	}
	if err != nil {
		var pe *PersistenceError
		if !errors.As(err, &pe) {
			pe = &PersistenceError{Op: "tx", Err: err}
		}
		return nil, e.fail(ctx, span, req, pe)
	}

	span.SetAttributes(attribute.String("load.decision", string(result.Decision)))
	e.metrics.RecordDecision(result, req.Amount)

	if result.Decision == DecisionDuplicate {
		e.logger.DebugContext(ctx, "duplicate load ignored",
			"load_id", req.ID,
			"customer_id", req.CustomerID,
		)
	} else {
		e.logger.InfoContext(ctx, "load evaluated",
			"load_id", req.ID,
			"customer_id", req.CustomerID,
			"amount", req.Amount.String(),
			"decision", string(result.Decision),
			"reason", string(result.Reason),
		)
	}

	return result, nil
}

// decide runs the duplicate check, the limit checks and the append against store.
func (e *Evaluator) decide(ctx context.Context, store storage.Backend, req *Request) (*Result, error) {
	result := &Result{ID: req.ID, CustomerID: req.CustomerID}

	exists, err := store.Exists(ctx, req.ID, req.CustomerID)
	if err != nil {
		return nil, &PersistenceError{Op: "exists", Err: err}
	}
	if exists {
		result.Decision = DecisionDuplicate
		return result, nil
	}

	reason, err := e.check(ctx, store, req)
	if err != nil {
		return nil, err
	}

	attempt := &storage.LoadAttempt{
		LoadID:     req.ID,
		CustomerID: req.CustomerID,
		Amount:     req.Amount,
		OccurredAt: req.Time,
		Accepted:   reason == ReasonNone,
	}
	if err := store.Append(ctx, attempt); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			result.Decision = DecisionDuplicate
			return result, nil
		}
		return nil, &PersistenceError{Op: "append", Err: err}
	}

	if reason == ReasonNone {
		result.Decision = DecisionAccepted
	} else {
		result.Decision = DecisionRejected
		result.Reason = reason
	}
	return result, nil
}

// check applies the limits in order and returns the first violation.
func (e *Evaluator) check(ctx context.Context, store storage.Backend, req *Request) (Reason, error) {
	daily := e.query(req.CustomerID, DailyWindow(req.Time))

	count, err := store.CountAttempts(ctx, daily)
	if err != nil {
		return ReasonNone, &PersistenceError{Op: "count", Err: err}
	}
	if count >= e.limits.DailyCount {
		return ReasonDailyCount, nil
	}

	dailySum, err := store.SumAmount(ctx, daily)
	if err != nil {
		return ReasonNone, &PersistenceError{Op: "sum", Err: err}
	}
	if dailySum.Add(req.Amount).GreaterThan(e.limits.DailyAmount) {
		return ReasonDailyAmount, nil
	}

	weeklySum, err := store.SumAmount(ctx, e.query(req.CustomerID, WeeklyWindow(req.Time)))
	if err != nil {
		return ReasonNone, &PersistenceError{Op: "sum", Err: err}
	}
	if weeklySum.Add(req.Amount).GreaterThan(e.limits.WeeklyAmount) {
		return ReasonWeeklyAmount, nil
	}

	return ReasonNone, nil
}

// Usage returns the customer's consumption for the day and week containing at.
// It reads the ledger without locking or writing.
func (e *Evaluator) Usage(ctx context.Context, customerID string, at time.Time) (*Usage, error) {
	if customerID == "" {
		return nil, &ValidationError{Field: "customer_id", Message: "cannot be empty"}
	}
	if err := checkInstant("at", at); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.storeTimeout)
	defer cancel()

	dailyWindow := DailyWindow(at)
	weeklyWindow := WeeklyWindow(at)
	daily := e.query(customerID, dailyWindow)

	count, err := e.store.CountAttempts(ctx, daily)
	if err != nil {
		return nil, &PersistenceError{Op: "count", Err: err}
	}
	dailySum, err := e.store.SumAmount(ctx, daily)
	if err != nil {
		return nil, &PersistenceError{Op: "sum", Err: err}
	}
	weeklySum, err := e.store.SumAmount(ctx, e.query(customerID, weeklyWindow))
	if err != nil {
		return nil, &PersistenceError{Op: "sum", Err: err}
	}

	return &Usage{
		CustomerID:  customerID,
		At:          at,
		Aggregation: e.limits.Aggregation,
		DailyCount: CountUsage{
			Window:    dailyWindow,
			Limit:     e.limits.DailyCount,
			Used:      count,
			Remaining: max(e.limits.DailyCount-count, 0),
		},
		DailyAmount:  amountUsage(dailyWindow, e.limits.DailyAmount, dailySum),
		WeeklyAmount: amountUsage(weeklyWindow, e.limits.WeeklyAmount, weeklySum),
	}, nil
}

func (e *Evaluator) query(customerID string, w Window) storage.WindowQuery {
	return storage.WindowQuery{
		CustomerID:   customerID,
		Start:        w.Start,
		End:          w.End,
		AcceptedOnly: e.limits.Aggregation == AggregateAcceptedOnly,
	}
}

func (e *Evaluator) fail(ctx context.Context, span trace.Span, req *Request, err *PersistenceError) error {
	e.metrics.RecordError("store")
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	e.logger.ErrorContext(ctx, "load evaluation failed",
		"load_id", req.ID,
		"customer_id", req.CustomerID,
		"op", err.Op,
		"error", err.Err,
	)
	return err
}

func amountUsage(w Window, limit, used decimal.Decimal) AmountUsage {
	remaining := limit.Sub(used)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	return AmountUsage{Window: w, Limit: limit, Used: used, Remaining: remaining}
}
