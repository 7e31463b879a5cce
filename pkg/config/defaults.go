package config

import (
	"os"
	"path/filepath"
	"time"
)

// Default returns the default configuration.
//
// Roots is left empty: the agent has no sensible default tree to
// watch, so at least one root must come from the file, the
// environment, or flags.
func Default() *Config {
	return &Config{
		Scan: ScanConfig{
			BatchSize:        50,
			Concurrency:      4,
			PacingMultiplier: 1,
		},
		Monitor: MonitorConfig{
			DebounceWindow: 2 * time.Second,
			PollInterval:   time.Second,
		},
		Registry: RegistryConfig{
			Timeout:    10 * time.Second,
			MaxRetries: 3,
			RetryDelay: 500 * time.Millisecond,
			LedgerPath: defaultLedgerPath(),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: "stderr",
			Format: "text",
		},
	}
}

// defaultLedgerPath returns ~/.config/file-agent/ledger.db, falling
// back to the working directory when the home directory is unknown.
func defaultLedgerPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./ledger.db"
	}
	return filepath.Join(homeDir, ".config", "file-agent", "ledger.db")
}

// defaultConfigPaths returns the search order for the config file.
func defaultConfigPaths() []string {
	paths := []string{"./file-agent.yaml"}
	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(homeDir, ".config", "file-agent", "config.yaml"))
	}
	return paths
}
