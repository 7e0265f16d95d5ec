// Package config provides configuration management for loadgate.
//
// This package handles loading and validating configuration from YAML files
// with environment variable overrides. It provides a type-safe configuration
// system with comprehensive validation and sensible defaults.
//
// # Configuration Loading
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("loadgate.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("loadgate.yaml")
//
// An empty path yields the defaults. A dotenv file can be loaded into the
// environment first with LoadEnvFile; variables already set win.
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention LOADGATE_SECTION_FIELD:
//
//   - LOADGATE_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - LOADGATE_LIMITS_DAILY_AMOUNT overrides limits.daily_amount
//   - LOADGATE_STORAGE_BACKEND overrides storage.backend
//
// # Configuration Precedence
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// Configuration is passed explicitly to the components that need it; there
// is no package-level instance.
package config
