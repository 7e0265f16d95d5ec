// Package server exposes the load evaluator over HTTP.
//
// # Endpoints
//
//   - POST /api/loads: evaluate one load. The body is the same JSON object
//     the batch processor reads; the response is {"id","customer_id","accepted"}.
//     Duplicates answer 204 with no body.
//   - GET /api/customers/{customerID}/usage?at=RFC3339: current consumption
//     of the daily and weekly limits.
//   - Health, readiness, version and metrics endpoints at their configured
//     paths.
//
// # Middleware
//
// Requests pass through recovery, logging, request ID and tracing before
// reaching the mux. API routes are additionally wrapped with the optional
// per-client rate limiter and the HTTP metrics.
//
// # Errors
//
// Errors use a single JSON shape:
//
//	{"error": {"message": "invalid load_amount: ...", "type": "invalid_request_error", "field": "load_amount"}}
//
// Ledger failures answer 503 with Retry-After so clients retry the same
// load id; the ledger's duplicate detection makes the retry safe.
package server
