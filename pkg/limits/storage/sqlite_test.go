package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestSQLiteBackend_Contract(t *testing.T) {
	runBackendContract(t, func(t *testing.T) Backend {
		backend, cleanup := newTestSQLiteBackend(t)
		t.Cleanup(cleanup)
		return backend
	})
}

// TestSQLiteBackend_Persistence tests that data persists across backend restarts.
func TestSQLiteBackend_Persistence(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "persistence.db")
	ctx := context.Background()
	at := time.Date(2000, 1, 1, 9, 30, 0, 0, time.FixedZone("", 2*3600))

	backend1, err := NewSQLiteBackend(dbPath)
	if err != nil {
		t.Fatalf("Failed to create backend: %v", err)
	}
	mustAppend(t, backend1, attempt("42", "c", "1234.56", at, true))
	if err := backend1.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	backend2, err := NewSQLiteBackend(dbPath)
	if err != nil {
		t.Fatalf("Failed to reopen backend: %v", err)
	}
	defer backend2.Close()

	loaded, err := backend2.Get(ctx, "42", "c")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !loaded.Amount.Equal(decimal.RequireFromString("1234.56")) {
		t.Errorf("Expected amount 1234.56, got %s", loaded.Amount)
	}
	if !loaded.OccurredAt.Equal(at) {
		t.Errorf("Expected %v, got %v", at, loaded.OccurredAt)
	}

	err = backend2.Append(ctx, attempt("42", "c", "1", at, false))
	if !errors.Is(err, ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey after reopen, got %v", err)
	}
}

func TestSQLiteBackend_WithinTx(t *testing.T) {
	backend, cleanup := newTestSQLiteBackend(t)
	defer cleanup()

	ctx := context.Background()
	day := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	q := WindowQuery{CustomerID: "c", Start: day, End: day.AddDate(0, 0, 1).Add(-time.Nanosecond)}

	t.Run("commit", func(t *testing.T) {
		err := backend.WithinTx(ctx, func(tx Backend) error {
			exists, err := tx.Exists(ctx, "1", "c")
			if err != nil {
				return err
			}
			if exists {
				t.Error("Expected no attempt before append")
			}
			return tx.Append(ctx, attempt("1", "c", "10", day.Add(time.Hour), true))
		})
		if err != nil {
			t.Fatalf("WithinTx failed: %v", err)
		}

		sum, err := backend.SumAmount(ctx, q)
		if err != nil {
			t.Fatalf("SumAmount failed: %v", err)
		}
		if !sum.Equal(decimal.NewFromInt(10)) {
			t.Errorf("Expected committed sum 10, got %s", sum)
		}
	})

	t.Run("rollback", func(t *testing.T) {
		boom := errors.New("boom")
		err := backend.WithinTx(ctx, func(tx Backend) error {
			if err := tx.Append(ctx, attempt("2", "c", "20", day.Add(2*time.Hour), true)); err != nil {
				return err
			}
			sum, err := tx.SumAmount(ctx, q)
			if err != nil {
				return err
			}
			if !sum.Equal(decimal.NewFromInt(30)) {
				t.Errorf("Expected in-transaction sum 30, got %s", sum)
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("Expected boom, got %v", err)
		}

		if _, err := backend.Get(ctx, "2", "c"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected rolled back attempt to be absent, got %v", err)
		}
	})
}

func TestSQLiteBackend_EmptyPath(t *testing.T) {
	_, err := NewSQLiteBackend("")
	if err == nil {
		t.Error("Expected error for empty path")
	}
}

func TestSQLiteBackend_CustomConfig(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "custom.db")

	backend, err := NewSQLiteBackendWithConfig(SQLiteBackendConfig{
		DBPath:           dbPath,
		SnapshotInterval: 10 * time.Millisecond,
		BusyTimeout:      time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to create backend: %v", err)
	}
	defer backend.Close()

	mustAppend(t, backend, attempt("1", "c", "1", time.Now(), true))

	// Let at least one checkpoint run.
	time.Sleep(30 * time.Millisecond)

	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("Expected database file to exist: %v", err)
	}
}

func TestSQLiteBackend_Close(t *testing.T) {
	backend, _ := newTestSQLiteBackend(t)

	if err := backend.Close(); err != nil {
		t.Errorf("First close failed: %v", err)
	}
	if err := backend.Close(); err != nil {
		t.Errorf("Second close failed: %v", err)
	}
}

// newTestSQLiteBackend creates a new SQLite backend for testing with a temporary database.
func newTestSQLiteBackend(t *testing.T) (*SQLiteBackend, func()) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")

	backend, err := NewSQLiteBackendWithConfig(SQLiteBackendConfig{
		DBPath:           dbPath,
		SnapshotInterval: 1 * time.Hour, // Disable checkpointing for most tests
		BusyTimeout:      5 * time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to create SQLite backend: %v", err)
	}

	cleanup := func() {
		backend.Close()
		os.Remove(dbPath)
		os.Remove(dbPath + "-shm")
		os.Remove(dbPath + "-wal")
	}

	return backend, cleanup
}
