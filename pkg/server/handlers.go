package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"velocity-hq/loadgate/pkg/ingest"
	"velocity-hq/loadgate/pkg/limits"
	"velocity-hq/loadgate/pkg/telemetry/logging"
)

// Evaluator is the part of limits.Evaluator the API serves.
type Evaluator interface {
	Evaluate(ctx context.Context, req *limits.Request) (*limits.Result, error)
	Usage(ctx context.Context, customerID string, at time.Time) (*limits.Usage, error)
}

// handleLoad serves POST /api/loads.
//
// 200 with the decision, 204 for a duplicate, 400 for malformed or invalid
// input, 413 for an oversized body, 503 when the ledger is unavailable.
func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, ErrorDetail{Message: "request body too large", Type: ErrorTypeRequestTooLarge})
			return
		}
		writeError(w, ErrorDetail{Message: "failed to read request body", Type: ErrorTypeInvalidRequest})
		return
	}

	var wire ingest.LoadRequest
	if err := json.Unmarshal(body, &wire); err != nil {
		writeError(w, errorFor(&limits.ParseError{Field: "body", Err: err}))
		return
	}
	req, err := wire.ToRequest()
	if err != nil {
		writeError(w, errorFor(err))
		return
	}

	ctx := logging.WithCustomerID(r.Context(), req.CustomerID)
	result, err := s.evaluator.Evaluate(ctx, req)
	if err != nil {
		writeError(w, errorFor(err))
		return
	}

	if result.Decision == limits.DecisionDuplicate {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, ingest.NewResponse(result))
}

// handleUsage serves GET /api/customers/{customerID}/usage?at=RFC3339.
// at defaults to the current time in UTC.
func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	customerID := r.PathValue("customerID")

	at := s.now().UTC()
	if v := r.URL.Query().Get("at"); v != "" {
		parsed, err := ingest.ParseTime(v)
		if err != nil {
			writeError(w, errorFor(err))
			return
		}
		at = parsed
	}

	ctx := logging.WithCustomerID(r.Context(), customerID)
	usage, err := s.evaluator.Usage(ctx, customerID, at)
	if err != nil {
		writeError(w, errorFor(err))
		return
	}
	writeJSON(w, http.StatusOK, usage)
}
