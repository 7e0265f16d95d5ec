package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "LOADGATE_"

// LoadEnvFile loads KEY=VALUE pairs from a dotenv file into the process
// environment. Variables already set in the environment are kept. An empty
// path is a no-op.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %q: %w", path, err)
	}
	return nil
}

// LoadConfig loads configuration from a YAML file at the specified path.
// Fields absent from the file keep their defaults. An empty path returns
// the defaults. The result is validated.
func LoadConfig(path string) (*Config, error) {
	cfg, err := load(path)
	if err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention LOADGATE_SECTION_FIELD (e.g., LOADGATE_SERVER_LISTEN_ADDRESS).
// Environment variables always take precedence over file-based configuration.
//
// The loading sequence is:
// 1. Start from defaults
// 2. Overlay YAML from file
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := load(path)
	if err != nil {
		return nil, err
	}

	if errs := applyEnvOverrides(cfg); len(errs) > 0 {
		return nil, fmt.Errorf("invalid environment overrides: %w", ValidationError{Errors: errs})
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(cfg)
	return cfg, nil
}

// envReader applies typed overrides and collects parse failures.
type envReader struct {
	errs []FieldError
}

func (r *envReader) lookup(name string) (string, bool) {
	val, ok := os.LookupEnv(EnvPrefix + name)
	return val, ok && val != ""
}

func (r *envReader) fail(name, val string, err error) {
	r.errs = append(r.errs, FieldError{
		Field:   EnvPrefix + name,
		Message: fmt.Sprintf("cannot parse %q: %v", val, errors.Unwrap(err)),
	})
}

func (r *envReader) str(name string, dst *string) {
	if val, ok := r.lookup(name); ok {
		*dst = val
	}
}

func (r *envReader) dur(name string, dst *time.Duration) {
	if val, ok := r.lookup(name); ok {
		d, err := time.ParseDuration(val)
		if err != nil {
			r.errs = append(r.errs, FieldError{Field: EnvPrefix + name, Message: err.Error()})
			return
		}
		*dst = d
	}
}

func (r *envReader) num(name string, dst *int) {
	if val, ok := r.lookup(name); ok {
		i, err := strconv.Atoi(val)
		if err != nil {
			r.fail(name, val, err)
			return
		}
		*dst = i
	}
}

func (r *envReader) i64(name string, dst *int64) {
	if val, ok := r.lookup(name); ok {
		i, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			r.fail(name, val, err)
			return
		}
		*dst = i
	}
}

func (r *envReader) flt(name string, dst *float64) {
	if val, ok := r.lookup(name); ok {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			r.fail(name, val, err)
			return
		}
		*dst = f
	}
}

func (r *envReader) flag(name string, dst *bool) {
	if val, ok := r.lookup(name); ok {
		b, err := strconv.ParseBool(val)
		if err != nil {
			r.fail(name, val, err)
			return
		}
		*dst = b
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables use the format LOADGATE_SECTION_FIELD.
func applyEnvOverrides(cfg *Config) []FieldError {
	r := &envReader{}

	// Server overrides
	r.str("SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	r.dur("SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	r.dur("SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	r.dur("SERVER_IDLE_TIMEOUT", &cfg.Server.IdleTimeout)
	r.dur("SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	r.num("SERVER_MAX_HEADER_BYTES", &cfg.Server.MaxHeaderBytes)
	r.i64("SERVER_MAX_BODY_BYTES", &cfg.Server.MaxBodyBytes)
	r.flag("SERVER_RATE_LIMIT_ENABLED", &cfg.Server.RateLimit.Enabled)
	r.flt("SERVER_RATE_LIMIT_REQUESTS_PER_SECOND", &cfg.Server.RateLimit.RequestsPerSecond)
	r.num("SERVER_RATE_LIMIT_BURST", &cfg.Server.RateLimit.Burst)

	// Limits overrides
	r.str("LIMITS_DAILY_AMOUNT", &cfg.Limits.DailyAmount)
	r.str("LIMITS_WEEKLY_AMOUNT", &cfg.Limits.WeeklyAmount)
	r.i64("LIMITS_DAILY_COUNT", &cfg.Limits.DailyCount)
	r.str("LIMITS_AGGREGATION", &cfg.Limits.Aggregation)
	r.dur("LIMITS_STORE_TIMEOUT", &cfg.Limits.StoreTimeout)

	// Storage overrides
	r.str("STORAGE_BACKEND", &cfg.Storage.Backend)
	r.str("STORAGE_SQLITE_PATH", &cfg.Storage.SQLite.Path)
	r.dur("STORAGE_SQLITE_BUSY_TIMEOUT", &cfg.Storage.SQLite.BusyTimeout)
	r.dur("STORAGE_SQLITE_SNAPSHOT_INTERVAL", &cfg.Storage.SQLite.SnapshotInterval)
	r.str("STORAGE_REDIS_ADDRESS", &cfg.Storage.Redis.Address)
	r.str("STORAGE_REDIS_PASSWORD", &cfg.Storage.Redis.Password)
	r.num("STORAGE_REDIS_DB", &cfg.Storage.Redis.DB)
	r.str("STORAGE_REDIS_PREFIX", &cfg.Storage.Redis.Prefix)
	r.dur("STORAGE_REDIS_DIAL_TIMEOUT", &cfg.Storage.Redis.DialTimeout)

	// Batch overrides
	r.str("BATCH_INPUT_PATH", &cfg.Batch.InputPath)
	r.str("BATCH_OUTPUT_PATH", &cfg.Batch.OutputPath)

	// Stats overrides
	r.flag("STATS_ENABLED", &cfg.Stats.Enabled)
	r.str("STATS_SCHEDULE", &cfg.Stats.Schedule)

	// Telemetry overrides
	r.str("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	r.str("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	r.flag("TELEMETRY_LOGGING_ADD_SOURCE", &cfg.Telemetry.Logging.AddSource)
	r.flag("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	r.str("TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	r.flag("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	r.str("TELEMETRY_TRACING_SAMPLER", &cfg.Telemetry.Tracing.Sampler)
	r.flt("TELEMETRY_TRACING_SAMPLE_RATIO", &cfg.Telemetry.Tracing.SampleRatio)
	r.str("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	r.str("TELEMETRY_TRACING_SERVICE_NAME", &cfg.Telemetry.Tracing.ServiceName)
	r.flag("TELEMETRY_TRACING_INSECURE", &cfg.Telemetry.Tracing.Insecure)
	r.dur("TELEMETRY_TRACING_TIMEOUT", &cfg.Telemetry.Tracing.Timeout)
	r.flag("TELEMETRY_HEALTH_ENABLED", &cfg.Telemetry.Health.Enabled)
	r.dur("TELEMETRY_HEALTH_CHECK_TIMEOUT", &cfg.Telemetry.Health.CheckTimeout)

	return r.errs
}
