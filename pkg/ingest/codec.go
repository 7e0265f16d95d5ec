package ingest

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"velocity-hq/loadgate/pkg/limits"
)

// LoadRequest is the inbound wire unit.
type LoadRequest struct {
	ID         string `json:"id"`
	CustomerID string `json:"customer_id"`
	LoadAmount string `json:"load_amount"`
	Time       string `json:"time"`
}

// LoadResponse is the outbound wire unit. Field order is part of the format.
type LoadResponse struct {
	ID         string `json:"id"`
	CustomerID string `json:"customer_id"`
	Accepted   bool   `json:"accepted"`
}

// NewResponse builds the wire response for a decided result.
func NewResponse(r *limits.Result) LoadResponse {
	return LoadResponse{
		ID:         r.ID,
		CustomerID: r.CustomerID,
		Accepted:   r.Accepted(),
	}
}

// ParseAmount parses a display amount such as "$3318.47" exactly.
// An empty amount is reported as a *limits.ValidationError.
func ParseAmount(s string) (decimal.Decimal, error) {
	v := strings.TrimSpace(s)
	v = strings.TrimPrefix(v, "$")
	if v == "" {
		return decimal.Zero, &limits.ValidationError{Field: "load_amount", Message: "cannot be empty"}
	}

	amount, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, &limits.ParseError{Field: "load_amount", Value: s, Err: err}
	}
	return amount, nil
}

// ParseTime parses an RFC 3339 timestamp and keeps its offset.
func ParseTime(s string) (time.Time, error) {
	v := strings.TrimSpace(s)
	if v == "" {
		return time.Time{}, &limits.ValidationError{Field: "time", Message: "cannot be empty"}
	}

	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, &limits.ParseError{Field: "time", Value: s, Err: err}
	}
	return t, nil
}

// ToRequest converts the wire unit into an evaluator request.
func (w *LoadRequest) ToRequest() (*limits.Request, error) {
	amount, err := ParseAmount(w.LoadAmount)
	if err != nil {
		return nil, err
	}
	at, err := ParseTime(w.Time)
	if err != nil {
		return nil, err
	}
	return &limits.Request{
		ID:         w.ID,
		CustomerID: w.CustomerID,
		Amount:     amount,
		Time:       at,
	}, nil
}

// DecodeRequest parses one JSON document into an evaluator request.
func DecodeRequest(data []byte) (*limits.Request, error) {
	var wire LoadRequest
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, &limits.ParseError{Field: "line", Err: err}
	}
	return wire.ToRequest()
}

// IsInvalid reports whether err is an input problem rather than a ledger failure.
func IsInvalid(err error) bool {
	return errors.Is(err, limits.ErrInvalidRequest)
}
