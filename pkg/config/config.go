package config

import (
	"time"
)

// Config is the root configuration structure for loadgate.
// It contains all configuration sections for the service.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `yaml:"server"`

	// Limits contains the velocity limits and how they are evaluated.
	Limits LimitsConfig `yaml:"limits"`

	// Storage selects and configures the ledger backend.
	Storage StorageConfig `yaml:"storage"`

	// Batch contains defaults for the file processor.
	Batch BatchConfig `yaml:"batch"`

	// Stats configures the scheduled ledger gauges.
	Stats StatsConfig `yaml:"stats"`

	// Telemetry contains configuration for observability including logging,
	// metrics, tracing and health checks.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address the server binds to.
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 10s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the response.
	// Default: 10s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next request.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes controls the maximum number of bytes in request headers.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// MaxBodyBytes limits the size of a load request body.
	// Default: 65536 (64KB)
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// RateLimit throttles requests per client address.
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig configures per-client request throttling.
type RateLimitConfig struct {
	// Enabled turns throttling on.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// RequestsPerSecond is the sustained rate per client.
	// Default: 50
	RequestsPerSecond float64 `yaml:"requests_per_second"`

	// Burst is the number of requests allowed at once.
	// Default: 100
	Burst int `yaml:"burst"`
}

// LimitsConfig contains the velocity limits.
// Amounts are decimal strings so they are never rounded through floating point.
type LimitsConfig struct {
	// DailyAmount is the maximum total per calendar day.
	// Default: "5000.00"
	DailyAmount string `yaml:"daily_amount"`

	// WeeklyAmount is the maximum total per Monday-start week.
	// Default: "20000.00"
	WeeklyAmount string `yaml:"weekly_amount"`

	// DailyCount is the number of attempts allowed per calendar day.
	// Default: 3
	DailyCount int64 `yaml:"daily_count"`

	// Aggregation selects which recorded attempts count toward the windows.
	// Options: "all_attempts", "accepted_only"
	// Default: "all_attempts"
	Aggregation string `yaml:"aggregation"`

	// StoreTimeout bounds one evaluation, lock wait included.
	// Default: 5s
	StoreTimeout time.Duration `yaml:"store_timeout"`
}

// StorageConfig selects the ledger backend.
type StorageConfig struct {
	// Backend is the ledger implementation.
	// Options: "memory", "sqlite", "redis"
	// Default: "memory"
	Backend string `yaml:"backend"`

	// SQLite configures the SQLite backend.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Redis configures the Redis backend.
	Redis RedisConfig `yaml:"redis"`
}

// SQLiteConfig contains SQLite-specific configuration.
type SQLiteConfig struct {
	// Path is the database file path.
	// Default: "data/ledger.db"
	Path string `yaml:"path"`

	// BusyTimeout is how long to wait for a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`

	// SnapshotInterval is how often the WAL is checkpointed.
	// Default: 5m
	SnapshotInterval time.Duration `yaml:"snapshot_interval"`
}

// RedisConfig contains Redis-specific configuration.
type RedisConfig struct {
	// Address is the host:port of the Redis server.
	// Default: "localhost:6379"
	Address string `yaml:"address"`

	// Password is the optional AUTH password.
	Password string `yaml:"password"`

	// DB is the logical database number.
	// Default: 0
	DB int `yaml:"db"`

	// Prefix namespaces every key.
	// Default: "loadgate:ledger"
	Prefix string `yaml:"prefix"`

	// DialTimeout bounds connection setup.
	// Default: 5s
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// BatchConfig contains defaults for `loadgate process`.
type BatchConfig struct {
	// InputPath is read when --input is not given. "-" means stdin.
	// Default: "-"
	InputPath string `yaml:"input_path"`

	// OutputPath is written when --output is not given. "-" means stdout.
	// Default: "-"
	OutputPath string `yaml:"output_path"`
}

// StatsConfig configures the ledger stats reporter.
type StatsConfig struct {
	// Enabled runs the reporter with the HTTP server.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Schedule is a cron expression or descriptor.
	// Default: "@every 1m"
	Schedule string `yaml:"schedule"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`

	// Health contains health check configuration.
	Health HealthConfig `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether the Prometheus endpoint is served.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Only used when Sampler is "ratio".
	// Default: 0.1 (10%)
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Example: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// ServiceName is the service name in traces.
	// Default: "loadgate"
	ServiceName string `yaml:"service_name"`

	// Insecure disables TLS for the OTLP connection.
	// Default: true
	Insecure bool `yaml:"insecure"`

	// Timeout is the timeout for OTLP exports.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// HealthConfig contains health check endpoint configuration.
type HealthConfig struct {
	// Enabled controls whether health check endpoints are enabled.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// LivenessPath is the path for the liveness check endpoint.
	// Default: "/health"
	LivenessPath string `yaml:"liveness_path"`

	// ReadinessPath is the path for the readiness check endpoint.
	// Default: "/ready"
	ReadinessPath string `yaml:"readiness_path"`

	// VersionPath is the path for the version information endpoint.
	// Default: "/version"
	VersionPath string `yaml:"version_path"`

	// CheckTimeout is the timeout for individual component health checks.
	// Default: 5s
	CheckTimeout time.Duration `yaml:"check_timeout"`
}
