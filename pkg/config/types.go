// Package config provides configuration management for file-agent.
//
// Configuration is loaded from multiple sources with the following
// precedence:
//  1. Environment variables (FILE_AGENT_* prefix)
//  2. Configuration file
//  3. Default values
//
// Example usage:
//
//	cfg, err := config.NewLoader("").Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("roots: %v\n", cfg.Roots)
package config

import "time"

// Config represents the complete agent configuration.
//
// Invariants:
// - Roots must have at least one entry
// - Scan.BatchSize must be > 0
// - Scan.Concurrency must be > 0
// - Monitor.DebounceWindow must be > 0
// - Monitor.PollInterval must be > 0.
type Config struct {
	// Directory trees to scan and monitor.
	Roots []Root `yaml:"roots"`

	// Allowed file extensions; empty means every file.
	Extensions []string `yaml:"extensions"`

	// Bulk scan settings.
	Scan ScanConfig `yaml:"scan"`

	// Live change monitor settings.
	Monitor MonitorConfig `yaml:"monitor"`

	// Registration sink settings.
	Registry RegistryConfig `yaml:"registry"`

	// Rescan is an optional cron expression for periodic
	// reconciliation scans (e.g. "@hourly"). Empty disables them.
	Rescan string `yaml:"rescan"`

	// Logging settings.
	Logging LoggingConfig `yaml:"logging"`
}

// Root is one monitored directory tree.
type Root struct {
	Path      string `yaml:"path"`
	Recursive bool   `yaml:"recursive"`
}

// ScanConfig contains bulk scan settings.
type ScanConfig struct {
	// Files dispatched per batch.
	BatchSize int `yaml:"batch_size"`

	// Maximum concurrent directory listings.
	Concurrency int `yaml:"concurrency"`

	// Scales the pacing delay between directory listings.
	PacingMultiplier int `yaml:"pacing_multiplier"`
}

// MonitorConfig contains live monitor settings.
type MonitorConfig struct {
	// Minimum time between settle actions for one path.
	DebounceWindow time.Duration `yaml:"debounce_window"`

	// Delay between availability-poll attempts.
	PollInterval time.Duration `yaml:"poll_interval"`

	// Cap on availability-poll attempts; 0 retries forever.
	PollMaxAttempts int `yaml:"poll_max_attempts"`
}

// RegistryConfig contains registration sink settings.
type RegistryConfig struct {
	// Inventory endpoint URL; empty means ledger-only operation.
	Endpoint string `yaml:"endpoint"`

	// Per-request timeout.
	Timeout time.Duration `yaml:"timeout"`

	// Publish attempts per record.
	MaxRetries int `yaml:"max_retries"`

	// Base delay between publish attempts.
	RetryDelay time.Duration `yaml:"retry_delay"`

	// Publish calls per second; 0 disables the limit.
	RateLimit float64 `yaml:"rate_limit"`

	// Local record database path.
	LedgerPath string `yaml:"ledger_path"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Output string `yaml:"output"`
	Format string `yaml:"format"`
}
