package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"velocity-hq/loadgate/pkg/cli"
	"velocity-hq/loadgate/pkg/config"
	"velocity-hq/loadgate/pkg/limits"
	"velocity-hq/loadgate/pkg/limits/storage"
)

const sampleInput = `{"id":"15887","customer_id":"528","load_amount":"$3318.47","time":"2000-01-01T00:00:00Z"}
{"id":"30081","customer_id":"154","load_amount":"$1413.18","time":"2000-01-01T01:01:22Z"}
{"id":"15887","customer_id":"528","load_amount":"$10.00","time":"2000-01-01T02:00:00Z"}
{"id":"99","customer_id":"528","load_amount":"$1681.54","time":"2000-01-01T03:00:00Z"}
{"id":"100","customer_id":
`

// execute runs the root command with args and resets global flag state afterwards.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("LOADGATE_TELEMETRY_LOGGING_LEVEL", "error")

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
		cfgFile, envFile, verbose = "", "", false
		processFlags.input, processFlags.output = "", ""
		ledgerFlags.customer, ledgerFlags.at, ledgerFlags.from, ledgerFlags.to = "", "", "", ""
		ledgerFlags.format = "text"
		runFlags.listenAddress, runFlags.logLevel, runFlags.dryRun = "", "", false
	})

	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestProcessCommand(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "input.txt", sampleInput)
	output := filepath.Join(dir, "output.txt")

	_, stderr, err := execute(t, "process", "--input", input, "--output", output)
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}

	got, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	want := `{"id":"15887","customer_id":"528","accepted":true}
{"id":"30081","customer_id":"154","accepted":true}
{"id":"99","customer_id":"528","accepted":false}
`
	if string(got) != want {
		t.Errorf("output =\n%s\nwant\n%s", got, want)
	}
	if !strings.Contains(stderr, "2 accepted, 1 rejected, 1 duplicates, 1 skipped") {
		t.Errorf("unexpected summary: %q", stderr)
	}
}

func TestProcessThenHistory_SQLite(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "loadgate.yaml", `
storage:
  backend: sqlite
  sqlite:
    path: `+filepath.Join(dir, "data", "ledger.db")+`
stats:
  enabled: false
`)
	input := writeFile(t, dir, "input.txt", sampleInput)

	if _, _, err := execute(t, "process", "-c", cfgPath, "--input", input, "--output", filepath.Join(dir, "out.txt")); err != nil {
		t.Fatalf("process failed: %v", err)
	}

	stdout, _, err := execute(t, "ledger", "history", "-c", cfgPath,
		"--customer", "528",
		"--from", "2000-01-01T00:00:00Z",
		"--to", "2000-01-01T23:59:59Z",
		"--format", "json")
	if err != nil {
		t.Fatalf("ledger history failed: %v", err)
	}

	var report cli.HistoryReport
	if err := json.Unmarshal([]byte(stdout), &report); err != nil {
		t.Fatalf("history is not JSON: %v\n%s", err, stdout)
	}
	if len(report.Attempts) != 2 {
		t.Fatalf("attempts = %d, want 2", len(report.Attempts))
	}
	if report.Attempts[0].LoadID != "15887" || !report.Attempts[0].Accepted {
		t.Errorf("first attempt = %+v", report.Attempts[0])
	}
	if report.Attempts[1].LoadID != "99" || report.Attempts[1].Accepted {
		t.Errorf("second attempt = %+v", report.Attempts[1])
	}

	stdout, _, err = execute(t, "ledger", "usage", "-c", cfgPath, "--customer", "528", "--at", "2000-01-01T12:00:00Z")
	if err != nil {
		t.Fatalf("ledger usage failed: %v", err)
	}
	if !strings.Contains(stdout, "daily count") || !strings.Contains(stdout, "customer:    528") {
		t.Errorf("unexpected usage output:\n%s", stdout)
	}
}

func TestLedgerHistory_BadRange(t *testing.T) {
	_, _, err := execute(t, "ledger", "history", "--customer", "1",
		"--from", "2000-01-02T00:00:00Z", "--to", "2000-01-01T00:00:00Z")
	if cli.ExitCode(err) != cli.ExitConfig {
		t.Errorf("exit code = %d, want %d (err %v)", cli.ExitCode(err), cli.ExitConfig, err)
	}
}

func TestConfigValidateCommand(t *testing.T) {
	t.Setenv("LOADGATE_LIMITS_DAILY_COUNT", "5")

	stdout, _, err := execute(t, "config", "validate")
	if err != nil {
		t.Fatalf("config validate failed: %v", err)
	}
	for _, want := range []string{"Configuration valid", "5000.00", "20000.00", "daily count", "5"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("output missing %q:\n%s", want, stdout)
		}
	}
}

func TestConfigValidateCommand_Invalid(t *testing.T) {
	t.Setenv("LOADGATE_LIMITS_DAILY_COUNT", "-1")

	_, _, err := execute(t, "config", "validate")
	if err == nil {
		t.Fatal("expected validation error")
	}
	if code := cli.ExitCode(err); code != cli.ExitConfig {
		t.Errorf("exit code = %d, want %d", code, cli.ExitConfig)
	}
}

func TestRunDryRun(t *testing.T) {
	stdout, _, err := execute(t, "run", "--dry-run", "--listen", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("run --dry-run failed: %v", err)
	}
	if !strings.Contains(stdout, "Configuration valid") {
		t.Errorf("unexpected output %q", stdout)
	}
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		store, err := openStore(ctx, config.StorageConfig{Backend: "memory"})
		if err != nil {
			t.Fatalf("openStore failed: %v", err)
		}
		defer store.Close()
		if _, ok := store.(*storage.MemoryBackend); !ok {
			t.Errorf("got %T, want *storage.MemoryBackend", store)
		}
	})

	t.Run("sqlite creates parent directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "ledger.db")
		store, err := openStore(ctx, config.StorageConfig{
			Backend: "sqlite",
			SQLite:  config.SQLiteConfig{Path: path},
		})
		if err != nil {
			t.Fatalf("openStore failed: %v", err)
		}
		defer store.Close()
		if err := store.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := openStore(ctx, config.StorageConfig{Backend: "etcd"})
		if cli.ExitCode(err) != cli.ExitConfig {
			t.Errorf("exit code = %d, want %d", cli.ExitCode(err), cli.ExitConfig)
		}
	})

	t.Run("unreachable redis", func(t *testing.T) {
		_, err := openStore(ctx, config.StorageConfig{
			Backend: "redis",
			Redis:   config.RedisConfig{Address: "127.0.0.1:1", DialTimeout: 200 * time.Millisecond},
		})
		if !errors.Is(err, limits.ErrStoreUnavailable) {
			t.Errorf("expected ErrStoreUnavailable, got %v", err)
		}
		if cli.ExitCode(err) != cli.ExitStoreFailure {
			t.Errorf("exit code = %d, want %d", cli.ExitCode(err), cli.ExitStoreFailure)
		}
	})
}
