package logging

import (
	"context"
	"log/slog"
)

// Context keys for common log fields.
type contextKey string

const (
	// RequestIDKey is the context key for request IDs.
	RequestIDKey contextKey = "request_id"

	// CustomerKey is the context key for customer identifiers.
	CustomerKey contextKey = "customer_id"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithCustomerID adds a customer identifier to the context.
func WithCustomerID(ctx context.Context, customerID string) context.Context {
	return context.WithValue(ctx, CustomerKey, customerID)
}

// GetCustomerID retrieves the customer identifier from the context.
func GetCustomerID(ctx context.Context) string {
	if customerID, ok := ctx.Value(CustomerKey).(string); ok {
		return customerID
	}
	return ""
}

func contextAttrs(ctx context.Context) []slog.Attr {
	var attrs []slog.Attr
	if v := GetRequestID(ctx); v != "" {
		attrs = append(attrs, slog.String(string(RequestIDKey), v))
	}
	if v := GetCustomerID(ctx); v != "" {
		attrs = append(attrs, slog.String(string(CustomerKey), v))
	}
	return attrs
}
