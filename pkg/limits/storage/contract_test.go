package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

// runBackendContract exercises the behaviour every Backend must share.
func runBackendContract(t *testing.T, newBackend func(t *testing.T) Backend) {
	t.Helper()

	eastern := time.FixedZone("EST", -5*3600)
	day := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	dayEnd := day.AddDate(0, 0, 1).Add(-time.Nanosecond)

	t.Run("append and get", func(t *testing.T) {
		backend := newBackend(t)
		ctx := context.Background()

		occurred := time.Date(2000, 1, 1, 14, 0, 0, 0, eastern)
		err := backend.Append(ctx, attempt("15887", "528", "3318.47", occurred, true))
		if err != nil {
			t.Fatalf("Append failed: %v", err)
		}

		got, err := backend.Get(ctx, "15887", "528")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !got.Amount.Equal(decimal.RequireFromString("3318.47")) {
			t.Errorf("Expected amount 3318.47, got %s", got.Amount)
		}
		if !got.OccurredAt.Equal(occurred) {
			t.Errorf("Expected occurred_at %v, got %v", occurred, got.OccurredAt)
		}
		if _, offset := got.OccurredAt.Zone(); offset != -5*3600 {
			t.Errorf("Expected offset -18000, got %d", offset)
		}
		if !got.Accepted {
			t.Error("Expected accepted attempt")
		}
		if got.RecordedAt.IsZero() {
			t.Error("Expected RecordedAt to be set")
		}
	})

	t.Run("get missing returns ErrNotFound", func(t *testing.T) {
		backend := newBackend(t)
		_, err := backend.Get(context.Background(), "nope", "528")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("duplicate key is rejected and not overwritten", func(t *testing.T) {
		backend := newBackend(t)
		ctx := context.Background()

		at := day.Add(time.Hour)
		if err := backend.Append(ctx, attempt("1", "c", "10", at, true)); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
		err := backend.Append(ctx, attempt("1", "c", "99", at, false))
		if !errors.Is(err, ErrDuplicateKey) {
			t.Fatalf("Expected ErrDuplicateKey, got %v", err)
		}

		got, err := backend.Get(ctx, "1", "c")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !got.Amount.Equal(decimal.NewFromInt(10)) || !got.Accepted {
			t.Errorf("Original attempt was modified: %+v", got)
		}
	})

	t.Run("same load id for different customers", func(t *testing.T) {
		backend := newBackend(t)
		ctx := context.Background()

		at := day.Add(time.Hour)
		if err := backend.Append(ctx, attempt("1", "a", "10", at, true)); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
		if err := backend.Append(ctx, attempt("1", "b", "10", at, true)); err != nil {
			t.Fatalf("Append for second customer failed: %v", err)
		}

		for _, customer := range []string{"a", "b"} {
			ok, err := backend.Exists(ctx, "1", customer)
			if err != nil {
				t.Fatalf("Exists failed: %v", err)
			}
			if !ok {
				t.Errorf("Expected attempt for customer %s", customer)
			}
		}
		ok, _ := backend.Exists(ctx, "1", "z")
		if ok {
			t.Error("Expected no attempt for customer z")
		}
	})

	t.Run("aggregates over empty range are zero", func(t *testing.T) {
		backend := newBackend(t)
		ctx := context.Background()
		q := WindowQuery{CustomerID: "nobody", Start: day, End: dayEnd}

		sum, err := backend.SumAmount(ctx, q)
		if err != nil {
			t.Fatalf("SumAmount failed: %v", err)
		}
		if !sum.IsZero() {
			t.Errorf("Expected zero sum, got %s", sum)
		}

		count, err := backend.CountAttempts(ctx, q)
		if err != nil {
			t.Fatalf("CountAttempts failed: %v", err)
		}
		if count != 0 {
			t.Errorf("Expected zero count, got %d", count)
		}
	})

	t.Run("window bounds are inclusive", func(t *testing.T) {
		backend := newBackend(t)
		ctx := context.Background()

		mustAppend(t, backend, attempt("before", "c", "1", day.Add(-time.Nanosecond), true))
		mustAppend(t, backend, attempt("start", "c", "10", day, true))
		mustAppend(t, backend, attempt("end", "c", "100", dayEnd, false))
		mustAppend(t, backend, attempt("after", "c", "1000", dayEnd.Add(time.Nanosecond), true))

		q := WindowQuery{CustomerID: "c", Start: day, End: dayEnd}
		sum, err := backend.SumAmount(ctx, q)
		if err != nil {
			t.Fatalf("SumAmount failed: %v", err)
		}
		if !sum.Equal(decimal.NewFromInt(110)) {
			t.Errorf("Expected sum 110, got %s", sum)
		}

		count, err := backend.CountAttempts(ctx, q)
		if err != nil {
			t.Fatalf("CountAttempts failed: %v", err)
		}
		if count != 2 {
			t.Errorf("Expected count 2, got %d", count)
		}

		q.AcceptedOnly = true
		sum, _ = backend.SumAmount(ctx, q)
		if !sum.Equal(decimal.NewFromInt(10)) {
			t.Errorf("Expected accepted-only sum 10, got %s", sum)
		}
		count, _ = backend.CountAttempts(ctx, q)
		if count != 1 {
			t.Errorf("Expected accepted-only count 1, got %d", count)
		}
	})

	t.Run("offsets compare by instant", func(t *testing.T) {
		backend := newBackend(t)
		ctx := context.Background()

		// 2000-01-01T20:00:00-05:00 is 2000-01-02T01:00:00Z.
		mustAppend(t, backend, attempt("1", "c", "5", time.Date(2000, 1, 1, 20, 0, 0, 0, eastern), true))

		sum, err := backend.SumAmount(ctx, WindowQuery{CustomerID: "c", Start: day, End: dayEnd})
		if err != nil {
			t.Fatalf("SumAmount failed: %v", err)
		}
		if !sum.IsZero() {
			t.Errorf("Expected zero sum in UTC day, got %s", sum)
		}

		localStart := time.Date(2000, 1, 1, 0, 0, 0, 0, eastern)
		sum, _ = backend.SumAmount(ctx, WindowQuery{
			CustomerID: "c",
			Start:      localStart,
			End:        localStart.AddDate(0, 0, 1).Add(-time.Nanosecond),
		})
		if !sum.Equal(decimal.NewFromInt(5)) {
			t.Errorf("Expected sum 5 in local day, got %s", sum)
		}
	})

	t.Run("sums are exact", func(t *testing.T) {
		backend := newBackend(t)
		for i := 0; i < 10; i++ {
			mustAppend(t, backend, attempt(fmt.Sprintf("%d", i), "c", "0.10", day.Add(time.Duration(i)*time.Minute), true))
		}
		sum, err := backend.SumAmount(context.Background(), WindowQuery{CustomerID: "c", Start: day, End: dayEnd})
		if err != nil {
			t.Fatalf("SumAmount failed: %v", err)
		}
		if !sum.Equal(decimal.NewFromInt(1)) {
			t.Errorf("Expected exact sum 1, got %s", sum)
		}
	})

	t.Run("list is ordered by occurrence", func(t *testing.T) {
		backend := newBackend(t)
		mustAppend(t, backend, attempt("late", "c", "1", day.Add(3*time.Hour), true))
		mustAppend(t, backend, attempt("early", "c", "1", day.Add(time.Hour), false))
		mustAppend(t, backend, attempt("mid", "c", "1", day.Add(2*time.Hour), true))

		list, err := backend.List(context.Background(), WindowQuery{CustomerID: "c", Start: day, End: dayEnd})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		want := []string{"early", "mid", "late"}
		if len(list) != len(want) {
			t.Fatalf("Expected %d attempts, got %d", len(want), len(list))
		}
		for i, id := range want {
			if list[i].LoadID != id {
				t.Errorf("Position %d: expected %s, got %s", i, id, list[i].LoadID)
			}
		}
	})

	t.Run("totals span customers", func(t *testing.T) {
		backend := newBackend(t)
		mustAppend(t, backend, attempt("1", "a", "100", day.Add(time.Hour), true))
		mustAppend(t, backend, attempt("2", "a", "50", day.Add(2*time.Hour), false))
		mustAppend(t, backend, attempt("1", "b", "25.50", day.Add(3*time.Hour), true))
		mustAppend(t, backend, attempt("9", "c", "1", day.AddDate(0, 0, 2), true))

		totals, err := backend.Totals(context.Background(), day, dayEnd)
		if err != nil {
			t.Fatalf("Totals failed: %v", err)
		}
		if totals.Attempts != 3 {
			t.Errorf("Expected 3 attempts, got %d", totals.Attempts)
		}
		if totals.Accepted != 2 {
			t.Errorf("Expected 2 accepted, got %d", totals.Accepted)
		}
		if !totals.AcceptedAmount.Equal(decimal.RequireFromString("125.50")) {
			t.Errorf("Expected accepted amount 125.50, got %s", totals.AcceptedAmount)
		}
		if totals.Customers != 2 {
			t.Errorf("Expected 2 customers, got %d", totals.Customers)
		}
	})

	t.Run("invalid attempts are refused", func(t *testing.T) {
		backend := newBackend(t)
		tests := []struct {
			name    string
			attempt *LoadAttempt
		}{
			{"nil attempt", nil},
			{"empty load id", attempt("", "c", "1", day, true)},
			{"empty customer id", attempt("1", "", "1", day, true)},
			{"zero time", attempt("1", "c", "1", time.Time{}, true)},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if err := backend.Append(context.Background(), tt.attempt); err == nil {
					t.Error("Expected error, got nil")
				}
			})
		}
	})

	t.Run("concurrent duplicate appends", func(t *testing.T) {
		backend := newBackend(t)
		ctx := context.Background()

		const workers = 10
		var wg sync.WaitGroup
		var succeeded, duplicates atomic.Int64
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := backend.Append(ctx, attempt("same", "c", "1", day, true))
				switch {
				case err == nil:
					succeeded.Add(1)
				case errors.Is(err, ErrDuplicateKey):
					duplicates.Add(1)
				default:
					t.Errorf("Unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()

		if succeeded.Load() != 1 {
			t.Errorf("Expected exactly 1 successful append, got %d", succeeded.Load())
		}
		if duplicates.Load() != workers-1 {
			t.Errorf("Expected %d duplicates, got %d", workers-1, duplicates.Load())
		}
	})

	t.Run("ping", func(t *testing.T) {
		backend := newBackend(t)
		if err := backend.Ping(context.Background()); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})
}

func attempt(loadID, customerID, amount string, at time.Time, accepted bool) *LoadAttempt {
	return &LoadAttempt{
		LoadID:     loadID,
		CustomerID: customerID,
		Amount:     decimal.RequireFromString(amount),
		OccurredAt: at,
		Accepted:   accepted,
	}
}

func mustAppend(t *testing.T, backend Backend, a *LoadAttempt) {
	t.Helper()
	if err := backend.Append(context.Background(), a); err != nil {
		t.Fatalf("Append %s/%s failed: %v", a.LoadID, a.CustomerID, err)
	}
}
