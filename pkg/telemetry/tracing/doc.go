// Package tracing wires OpenTelemetry tracing for the service.
//
// When enabled, spans are exported over OTLP gRPC and the W3C Trace
// Context and Baggage propagators are installed globally. The load
// evaluator's spans join the server span started by Middleware, which
// continues any trace carried in the incoming traceparent header.
//
// Three sampling strategies are supported, each wrapped in ParentBased:
//   - always: sample every trace
//   - never: sample nothing
//   - ratio: sample by trace ID with sample_ratio
//
// # Usage
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, version)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	handler = tracer.Middleware(handler)
package tracing
