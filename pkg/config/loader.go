package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader provides methods for loading configuration.
type Loader interface {
	// Load merges defaults, the config file (if any) and environment
	// variables, then validates the result.
	Load() (*Config, error)

	// LoadFromFile loads configuration from a specific file on top of
	// the defaults.
	LoadFromFile(path string) (*Config, error)
}

// loader implements the Loader interface.
type loader struct {
	configPath string
}

// NewLoader creates a configuration loader.
//
// If configPath is empty, the loader searches:
//  1. ./file-agent.yaml
//  2. ~/.config/file-agent/config.yaml
func NewLoader(configPath string) Loader {
	return &loader{configPath: configPath}
}

// Load implements Loader.Load.
func (l *loader) Load() (*Config, error) {
	cfg := Default()

	configPath := l.configPath
	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath != "" {
		if err := mergeFile(cfg, configPath); err != nil {
			// An explicitly named file must load; a discovered one may
			// be absent.
			if l.configPath != "" || !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
			}
		}
	}

	applyEnv(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile implements Loader.LoadFromFile.
func (l *loader) LoadFromFile(path string) (*Config, error) {
	cfg := Default()
	if err := mergeFile(cfg, path); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration invariants.
func Validate(cfg *Config) error {
	if len(cfg.Roots) == 0 {
		return ErrNoRoots
	}
	if cfg.Scan.BatchSize < 1 {
		return ErrInvalidBatchSize
	}
	if cfg.Scan.Concurrency < 1 {
		return ErrInvalidConcurrency
	}
	if cfg.Monitor.DebounceWindow <= 0 {
		return ErrInvalidDebounceWindow
	}
	if cfg.Monitor.PollInterval <= 0 {
		return ErrInvalidPollInterval
	}
	return nil
}

// mergeFile unmarshals a YAML file over cfg.
func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path) // #nosec G304: config path comes from the user
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("invalid YAML: %w", err)
	}
	return nil
}

// findConfigFile returns the first existing default config path.
func findConfigFile() string {
	for _, path := range defaultConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// applyEnv overrides scalar settings from FILE_AGENT_* variables.
func applyEnv(cfg *Config) {
	if v := os.Getenv("FILE_AGENT_ROOT"); v != "" {
		cfg.Roots = []Root{{Path: v, Recursive: true}}
	}
	if v := os.Getenv("FILE_AGENT_EXTENSIONS"); v != "" {
		cfg.Extensions = splitList(v)
	}
	if v := os.Getenv("FILE_AGENT_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Scan.BatchSize = n
		}
	}
	if v := os.Getenv("FILE_AGENT_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Scan.Concurrency = n
		}
	}
	if v := os.Getenv("FILE_AGENT_DEBOUNCE_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Monitor.DebounceWindow = d
		}
	}
	if v := os.Getenv("FILE_AGENT_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Monitor.PollInterval = d
		}
	}
	if v := os.Getenv("FILE_AGENT_ENDPOINT"); v != "" {
		cfg.Registry.Endpoint = v
	}
	if v := os.Getenv("FILE_AGENT_LEDGER_PATH"); v != "" {
		cfg.Registry.LedgerPath = v
	}
	if v := os.Getenv("FILE_AGENT_RESCAN"); v != "" {
		cfg.Rescan = v
	}
	if v := os.Getenv("FILE_AGENT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// splitList splits a comma-separated list, trimming whitespace.
func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
