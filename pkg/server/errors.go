package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"velocity-hq/loadgate/pkg/limits"
)

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains detailed error information.
type ErrorDetail struct {
	// Message is a human-readable error message.
	Message string `json:"message"`

	// Type categorizes the error.
	Type string `json:"type"`

	// Field names the offending request field, if any.
	Field string `json:"field,omitempty"`
}

// Error types.
const (
	ErrorTypeInvalidRequest     = "invalid_request_error"
	ErrorTypeRequestTooLarge    = "request_too_large"
	ErrorTypeRateLimitExceeded  = "rate_limit_exceeded"
	ErrorTypeServiceUnavailable = "service_unavailable"
	ErrorTypeServerError        = "server_error"
)

// HTTPStatusCode returns the HTTP status code for the error type.
func (e *ErrorDetail) HTTPStatusCode() int {
	switch e.Type {
	case ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case ErrorTypeRequestTooLarge:
		return http.StatusRequestEntityTooLarge
	case ErrorTypeRateLimitExceeded:
		return http.StatusTooManyRequests
	case ErrorTypeServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorFor maps an evaluator error to its response.
func errorFor(err error) ErrorDetail {
	var ve *limits.ValidationError
	var pe *limits.ParseError
	switch {
	case errors.As(err, &ve):
		return ErrorDetail{Message: err.Error(), Type: ErrorTypeInvalidRequest, Field: ve.Field}
	case errors.As(err, &pe):
		return ErrorDetail{Message: err.Error(), Type: ErrorTypeInvalidRequest, Field: pe.Field}
	case errors.Is(err, limits.ErrStoreUnavailable):
		return ErrorDetail{Message: "ledger temporarily unavailable, retry later", Type: ErrorTypeServiceUnavailable}
	default:
		return ErrorDetail{Message: "An internal error occurred. Please try again later.", Type: ErrorTypeServerError}
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, detail ErrorDetail) {
	status := detail.HTTPStatusCode()
	if status == http.StatusServiceUnavailable || status == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", "1")
	}
	writeJSON(w, status, ErrorResponse{Error: detail})
}
