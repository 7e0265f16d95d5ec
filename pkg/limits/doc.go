// Package limits provides velocity-limit admission for customer loads.
//
// # Overview
//
// Each load request names a load id, a customer, an amount and a timestamp.
// The Evaluator accepts the load only if, together with the customer's
// history, it stays within three limits:
//
//   - Daily count: fewer than DailyCount attempts already recorded today
//   - Daily amount: today's total plus the load is at most DailyAmount
//   - Weekly amount: this week's total plus the load is at most WeeklyAmount
//
// Checks run in that order and stop at the first violation, which becomes
// the rejection Reason. Days and weeks are calendar aligned in the request
// timestamp's own offset; weeks start on Monday.
//
// Every decided attempt, accepted or rejected, is appended to the ledger
// (see the storage sub-package). A repeated (load id, customer id) pair is
// reported as DecisionDuplicate and leaves the ledger untouched.
//
// # Architecture
//
//   - storage: ledger backends (memory, SQLite, Redis)
//   - stats: scheduled ledger-wide gauges
//
// # Usage
//
//	evaluator, err := limits.NewEvaluator(limits.Config{
//	    Limits:  limits.DefaultLimits(),
//	    Store:   backend,
//	    Metrics: limits.NewMetrics(prometheus.DefaultRegisterer),
//	})
//
//	result, err := evaluator.Evaluate(ctx, req)
//	switch {
//	case errors.Is(err, limits.ErrInvalidRequest):
//	    // bad input, nothing recorded
//	case errors.Is(err, limits.ErrStoreUnavailable):
//	    // retry later
//	}
//
// # Thread Safety
//
// Evaluator is safe for concurrent use. Evaluations for the same customer
// are serialized by a per-customer lock that is bounded by the store
// timeout; different customers proceed in parallel.
package limits
