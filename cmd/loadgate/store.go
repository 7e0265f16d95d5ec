package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"velocity-hq/loadgate/pkg/cli"
	"velocity-hq/loadgate/pkg/config"
	"velocity-hq/loadgate/pkg/limits"
	"velocity-hq/loadgate/pkg/limits/storage"
)

// openStore opens the ledger backend named by the configuration.
// Connection failures are reported as ledger failures.
func openStore(ctx context.Context, cfg config.StorageConfig) (storage.Backend, error) {
	var (
		store storage.Backend
		err   error
	)

	switch cfg.Backend {
	case "memory", "":
		return storage.NewMemoryBackend(), nil
	case "sqlite":
		if dir := filepath.Dir(cfg.SQLite.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, &limits.PersistenceError{Op: "open", Err: err}
			}
		}
		store, err = storage.NewSQLiteBackendWithConfig(storage.SQLiteBackendConfig{
			DBPath:           cfg.SQLite.Path,
			SnapshotInterval: cfg.SQLite.SnapshotInterval,
			BusyTimeout:      cfg.SQLite.BusyTimeout,
		})
	case "redis":
		store, err = storage.NewRedisBackendWithConfig(ctx, storage.RedisBackendConfig{
			Address:     cfg.Redis.Address,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			Prefix:      cfg.Redis.Prefix,
			DialTimeout: cfg.Redis.DialTimeout,
		})
	default:
		return nil, cli.NewConfigError("storage.backend", fmt.Sprintf("unsupported ledger backend %q", cfg.Backend))
	}

	if err != nil {
		return nil, &limits.PersistenceError{Op: "open", Err: err}
	}
	return store, nil
}

// newEvaluator builds the limit evaluator over store. A nil reg skips metrics.
func newEvaluator(cfg *config.Config, store storage.Backend, reg prometheus.Registerer, logger *slog.Logger) (*limits.Evaluator, error) {
	lim, err := cfg.Limits.ToLimits()
	if err != nil {
		return nil, err
	}

	var m *limits.Metrics
	if reg != nil {
		m = limits.NewMetrics(reg)
	}

	return limits.NewEvaluator(limits.Config{
		Limits:       lim,
		Store:        store,
		StoreTimeout: cfg.Limits.StoreTimeout,
		Metrics:      m,
		Logger:       logger,
	})
}
