// Package telemetry groups the service's observability packages.
//
//   - logging: slog-based structured logging with request context fields
//   - metrics: Prometheus registry, HTTP metrics and the scrape handler
//   - tracing: OpenTelemetry tracer provider, sampling and propagation
//   - health: liveness, readiness and version endpoints
package telemetry
