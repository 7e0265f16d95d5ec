// Package storage provides the append-only ledger of load attempts.
//
// # Overview
//
// Every valid, non-duplicate load attempt is written once with its decision
// and never modified or deleted. The limit evaluator reads windowed
// aggregates (sum of amounts, count of attempts) for one customer and checks
// whether a (load id, customer id) pair has been seen before.
//
// Three implementations are provided:
//
//   - Memory: in-process maps (default, no persistence)
//   - SQLite: file-based persistence with WAL and transactional evaluation
//   - Redis: shared persistence on a standalone Redis server
//
// # Usage
//
//	backend := storage.NewMemoryBackend()
//
//	err := backend.Append(ctx, &storage.LoadAttempt{
//	    LoadID:     "15887",
//	    CustomerID: "528",
//	    Amount:     decimal.RequireFromString("3318.47"),
//	    OccurredAt: ts,
//	    Accepted:   true,
//	})
//
//	sum, err := backend.SumAmount(ctx, storage.WindowQuery{
//	    CustomerID: "528",
//	    Start:      dayStart,
//	    End:        dayEnd,
//	})
//
// # Thread Safety
//
// All storage backends are thread-safe and support concurrent access
// from multiple goroutines. Append is atomic with respect to the duplicate
// key: two concurrent appends of the same key never both succeed.
package storage
