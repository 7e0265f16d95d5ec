package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 10 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB
	DefaultMaxBodyBytes    = 65536   // 64KB
	DefaultRateLimitRPS    = 50.0
	DefaultRateLimitBurst  = 100

	// Limits defaults
	DefaultDailyAmount  = "5000.00"
	DefaultWeeklyAmount = "20000.00"
	DefaultDailyCount   = 3
	DefaultAggregation  = "all_attempts"
	DefaultStoreTimeout = 5 * time.Second

	// Storage defaults
	DefaultStorageBackend         = "memory"
	DefaultSQLitePath             = "data/ledger.db"
	DefaultSQLiteBusyTimeout      = 5 * time.Second
	DefaultSQLiteSnapshotInterval = 5 * time.Minute
	DefaultRedisAddress           = "localhost:6379"
	DefaultRedisPrefix            = "loadgate:ledger"
	DefaultRedisDialTimeout       = 5 * time.Second

	// Batch defaults
	DefaultBatchPath = "-"

	// Stats defaults
	DefaultStatsEnabled  = true
	DefaultStatsSchedule = "@every 1m"

	// Telemetry defaults
	DefaultLogLevel            = "info"
	DefaultLogFormat           = "json"
	DefaultMetricsEnabled      = true
	DefaultMetricsPath         = "/metrics"
	DefaultTracingSampler      = "ratio"
	DefaultTracingSamplingRate = 0.1
	DefaultTracingServiceName  = "loadgate"
	DefaultTracingInsecure     = true
	DefaultTracingTimeout      = 10 * time.Second
	DefaultHealthEnabled       = true
	DefaultLivenessPath        = "/health"
	DefaultReadinessPath       = "/ready"
	DefaultVersionPath         = "/version"
	DefaultHealthCheckTimeout  = 5 * time.Second
)

// Default returns a configuration with every field at its default value,
// including the boolean switches that default to true.
func Default() *Config {
	cfg := &Config{
		Stats: StatsConfig{Enabled: DefaultStatsEnabled},
		Telemetry: TelemetryConfig{
			Metrics: MetricsConfig{Enabled: DefaultMetricsEnabled},
			Tracing: TracingConfig{Insecure: DefaultTracingInsecure},
			Health:  HealthConfig{Enabled: DefaultHealthEnabled},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills every zero-valued field with its default.
// Boolean switches are left untouched; Default sets those.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.Server.RateLimit.RequestsPerSecond == 0 {
		cfg.Server.RateLimit.RequestsPerSecond = DefaultRateLimitRPS
	}
	if cfg.Server.RateLimit.Burst == 0 {
		cfg.Server.RateLimit.Burst = DefaultRateLimitBurst
	}

	// Limits defaults
	if cfg.Limits.DailyAmount == "" {
		cfg.Limits.DailyAmount = DefaultDailyAmount
	}
	if cfg.Limits.WeeklyAmount == "" {
		cfg.Limits.WeeklyAmount = DefaultWeeklyAmount
	}
	if cfg.Limits.DailyCount == 0 {
		cfg.Limits.DailyCount = DefaultDailyCount
	}
	if cfg.Limits.Aggregation == "" {
		cfg.Limits.Aggregation = DefaultAggregation
	}
	if cfg.Limits.StoreTimeout == 0 {
		cfg.Limits.StoreTimeout = DefaultStoreTimeout
	}

	// Storage defaults
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = DefaultStorageBackend
	}
	if cfg.Storage.SQLite.Path == "" {
		cfg.Storage.SQLite.Path = DefaultSQLitePath
	}
	if cfg.Storage.SQLite.BusyTimeout == 0 {
		cfg.Storage.SQLite.BusyTimeout = DefaultSQLiteBusyTimeout
	}
	if cfg.Storage.SQLite.SnapshotInterval == 0 {
		cfg.Storage.SQLite.SnapshotInterval = DefaultSQLiteSnapshotInterval
	}
	if cfg.Storage.Redis.Address == "" {
		cfg.Storage.Redis.Address = DefaultRedisAddress
	}
	if cfg.Storage.Redis.Prefix == "" {
		cfg.Storage.Redis.Prefix = DefaultRedisPrefix
	}
	if cfg.Storage.Redis.DialTimeout == 0 {
		cfg.Storage.Redis.DialTimeout = DefaultRedisDialTimeout
	}

	// Batch defaults
	if cfg.Batch.InputPath == "" {
		cfg.Batch.InputPath = DefaultBatchPath
	}
	if cfg.Batch.OutputPath == "" {
		cfg.Batch.OutputPath = DefaultBatchPath
	}

	// Stats defaults
	if cfg.Stats.Schedule == "" {
		cfg.Stats.Schedule = DefaultStatsSchedule
	}

	// Telemetry defaults
	applyTelemetryDefaults(&cfg.Telemetry)
}

func applyTelemetryDefaults(t *TelemetryConfig) {
	if t.Logging.Level == "" {
		t.Logging.Level = DefaultLogLevel
	}
	if t.Logging.Format == "" {
		t.Logging.Format = DefaultLogFormat
	}
	if t.Metrics.Path == "" {
		t.Metrics.Path = DefaultMetricsPath
	}
	if t.Tracing.Sampler == "" {
		t.Tracing.Sampler = DefaultTracingSampler
	}
	if t.Tracing.SampleRatio == 0 {
		t.Tracing.SampleRatio = DefaultTracingSamplingRate
	}
	if t.Tracing.ServiceName == "" {
		t.Tracing.ServiceName = DefaultTracingServiceName
	}
	if t.Tracing.Timeout == 0 {
		t.Tracing.Timeout = DefaultTracingTimeout
	}
	if t.Health.LivenessPath == "" {
		t.Health.LivenessPath = DefaultLivenessPath
	}
	if t.Health.ReadinessPath == "" {
		t.Health.ReadinessPath = DefaultReadinessPath
	}
	if t.Health.VersionPath == "" {
		t.Health.VersionPath = DefaultVersionPath
	}
	if t.Health.CheckTimeout == 0 {
		t.Health.CheckTimeout = DefaultHealthCheckTimeout
	}
}
