// Package logging builds the service's structured logger on log/slog.
//
// Records are written as JSON or text. When a record is logged with a
// context, the request ID and customer ID stored by WithRequestID and
// WithCustomerID are attached automatically:
//
//	logger, err := logging.New(logging.Config{Level: "info", Format: "json"})
//	ctx := logging.WithRequestID(ctx, "req-123")
//	logger.InfoContext(ctx, "load evaluated", "decision", "accepted")
package logging
