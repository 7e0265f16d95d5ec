package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"

	"velocity-hq/loadgate/pkg/limits"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "limits.daily_amount").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateLimits(&cfg.Limits)...)
	errs = append(errs, validateStorage(&cfg.Storage)...)
	errs = append(errs, validateStats(&cfg.Stats)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// validateServer validates server configuration.
func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: "listen address is required",
		})
	}

	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.read_timeout", Message: "read timeout must be positive"})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.write_timeout", Message: "write timeout must be positive"})
	}
	if cfg.IdleTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.idle_timeout", Message: "idle timeout must be positive"})
	}
	if cfg.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.shutdown_timeout", Message: "shutdown timeout must be positive"})
	}
	if cfg.MaxHeaderBytes < 0 {
		errs = append(errs, FieldError{Field: "server.max_header_bytes", Message: "max header bytes must be non-negative"})
	}
	if cfg.MaxBodyBytes <= 0 {
		errs = append(errs, FieldError{Field: "server.max_body_bytes", Message: "max body bytes must be positive"})
	}

	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.RequestsPerSecond <= 0 {
			errs = append(errs, FieldError{
				Field:   "server.rate_limit.requests_per_second",
				Message: "requests per second must be positive when rate limiting is enabled",
			})
		}
		if cfg.RateLimit.Burst <= 0 {
			errs = append(errs, FieldError{
				Field:   "server.rate_limit.burst",
				Message: "burst must be positive when rate limiting is enabled",
			})
		}
	}

	return errs
}

// validateLimits validates the velocity limits.
func validateLimits(cfg *LimitsConfig) []FieldError {
	var errs []FieldError

	daily, err := parseAmount(cfg.DailyAmount)
	if err != nil {
		errs = append(errs, FieldError{Field: "limits.daily_amount", Message: err.Error()})
	}
	weekly, err := parseAmount(cfg.WeeklyAmount)
	if err != nil {
		errs = append(errs, FieldError{Field: "limits.weekly_amount", Message: err.Error()})
	}
	if daily.IsPositive() && weekly.IsPositive() && weekly.LessThan(daily) {
		errs = append(errs, FieldError{
			Field:   "limits.weekly_amount",
			Message: fmt.Sprintf("weekly amount %s is below daily amount %s", weekly, daily),
		})
	}

	if cfg.DailyCount <= 0 {
		errs = append(errs, FieldError{
			Field:   "limits.daily_count",
			Message: "daily count must be positive",
		})
	}

	if !limits.AggregationPolicy(cfg.Aggregation).Valid() {
		errs = append(errs, FieldError{
			Field:   "limits.aggregation",
			Message: fmt.Sprintf("invalid aggregation %q: must be 'all_attempts' or 'accepted_only'", cfg.Aggregation),
		})
	}

	if cfg.StoreTimeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "limits.store_timeout",
			Message: "store timeout must be positive",
		})
	}

	return errs
}

// validateStorage validates ledger backend configuration.
func validateStorage(cfg *StorageConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "memory":
	case "sqlite":
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{Field: "storage.sqlite.path", Message: "path is required for the sqlite backend"})
		}
		if cfg.SQLite.BusyTimeout < 0 {
			errs = append(errs, FieldError{Field: "storage.sqlite.busy_timeout", Message: "busy timeout must be positive"})
		}
		if cfg.SQLite.SnapshotInterval < 0 {
			errs = append(errs, FieldError{Field: "storage.sqlite.snapshot_interval", Message: "snapshot interval must be positive"})
		}
	case "redis":
		if cfg.Redis.Address == "" {
			errs = append(errs, FieldError{Field: "storage.redis.address", Message: "address is required for the redis backend"})
		}
		if cfg.Redis.DB < 0 {
			errs = append(errs, FieldError{Field: "storage.redis.db", Message: "db must be non-negative"})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "storage.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'memory', 'sqlite', or 'redis'", cfg.Backend),
		})
	}

	return errs
}

// validateStats validates the stats reporter schedule.
func validateStats(cfg *StatsConfig) []FieldError {
	if !cfg.Enabled {
		return nil
	}
	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		return []FieldError{{
			Field:   "stats.schedule",
			Message: fmt.Sprintf("invalid schedule %q: %v", cfg.Schedule, err),
		}}
	}
	return nil
}

// validateTelemetry validates telemetry configuration.
func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.Logging.Format] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json' or 'text'", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "metrics path must start with /",
		})
	}

	if cfg.Tracing.Enabled {
		if cfg.Tracing.Endpoint == "" {
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.endpoint",
				Message: "tracing endpoint is required when tracing is enabled",
			})
		}
		validSamplers := map[string]bool{"always": true, "never": true, "ratio": true}
		if !validSamplers[cfg.Tracing.Sampler] {
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.sampler",
				Message: fmt.Sprintf("invalid sampler %q: must be 'always', 'never', or 'ratio'", cfg.Tracing.Sampler),
			})
		}
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1.0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: "sample ratio must be between 0.0 and 1.0",
		})
	}

	if cfg.Health.Enabled {
		paths := []struct{ field, path string }{
			{"telemetry.health.liveness_path", cfg.Health.LivenessPath},
			{"telemetry.health.readiness_path", cfg.Health.ReadinessPath},
			{"telemetry.health.version_path", cfg.Health.VersionPath},
		}
		for _, p := range paths {
			if !strings.HasPrefix(p.path, "/") {
				errs = append(errs, FieldError{Field: p.field, Message: "path must start with /"})
			}
		}
		if cfg.Health.CheckTimeout <= 0 {
			errs = append(errs, FieldError{
				Field:   "telemetry.health.check_timeout",
				Message: "check timeout must be positive",
			})
		}
	}

	return errs
}

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("amount must be positive, got %s", d)
	}
	return d, nil
}

// ToLimits converts the configured limits for the evaluator.
func (c *LimitsConfig) ToLimits() (limits.Limits, error) {
	if errs := validateLimits(c); len(errs) > 0 {
		return limits.Limits{}, ValidationError{Errors: errs}
	}
	daily, _ := parseAmount(c.DailyAmount)
	weekly, _ := parseAmount(c.WeeklyAmount)
	return limits.Limits{
		DailyAmount:  daily,
		WeeklyAmount: weekly,
		DailyCount:   c.DailyCount,
		Aggregation:  limits.AggregationPolicy(c.Aggregation),
	}, nil
}
