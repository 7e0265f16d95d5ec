// Package health serves loadgate's liveness, readiness and version endpoints.
//
// Liveness answers 200 as long as the process can serve HTTP. Readiness pings
// the configured ledger backend and answers 503 with Retry-After when the
// ping fails or exceeds telemetry.health.check_timeout:
//
//	{"status":"unavailable","ledger":{"backend":"redis","reachable":false,
//	 "error":"ledger ping failed: dial tcp 127.0.0.1:6379: connect: connection refused",
//	 "latency_ns":412000},"timestamp":"2000-01-01T00:00:00Z"}
package health
