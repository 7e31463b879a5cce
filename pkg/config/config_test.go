package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 50, cfg.Scan.BatchSize)
	assert.Equal(t, 4, cfg.Scan.Concurrency)
	assert.Equal(t, 2*time.Second, cfg.Monitor.DebounceWindow)
	assert.Equal(t, time.Second, cfg.Monitor.PollInterval)
	assert.Zero(t, cfg.Monitor.PollMaxAttempts, "default should retry forever")
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.NotEmpty(t, cfg.Registry.LedgerPath)

	// Defaults alone are not runnable: a root is required.
	assert.ErrorIs(t, Validate(cfg), ErrNoRoots)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
roots:
  - path: /var/data
    recursive: true
  - path: /var/drop
extensions: [".log", ".csv"]
scan:
  batch_size: 25
  concurrency: 8
monitor:
  debounce_window: 5s
  poll_max_attempts: 10
registry:
  endpoint: http://inventory.local/files
  rate_limit: 20
rescan: "@hourly"
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)

	require.Len(t, cfg.Roots, 2)
	assert.Equal(t, "/var/data", cfg.Roots[0].Path)
	assert.True(t, cfg.Roots[0].Recursive)
	assert.False(t, cfg.Roots[1].Recursive)
	assert.Equal(t, []string{".log", ".csv"}, cfg.Extensions)
	assert.Equal(t, 25, cfg.Scan.BatchSize)
	assert.Equal(t, 8, cfg.Scan.Concurrency)
	assert.Equal(t, 5*time.Second, cfg.Monitor.DebounceWindow)
	assert.Equal(t, 10, cfg.Monitor.PollMaxAttempts)
	assert.Equal(t, "http://inventory.local/files", cfg.Registry.Endpoint)
	assert.Equal(t, 20.0, cfg.Registry.RateLimit)
	assert.Equal(t, "@hourly", cfg.Rescan)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Values absent from the file keep their defaults.
	assert.Equal(t, time.Second, cfg.Monitor.PollInterval)
	assert.Equal(t, 3, cfg.Registry.MaxRetries)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := NewLoader(filepath.Join(t.TempDir(), "nope.yaml")).Load()
	assert.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("roots: [not: closed"), 0600))

	_, err := NewLoader(path).Load()
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
roots:
  - path: /from/file
scan:
  batch_size: 25
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	t.Setenv("FILE_AGENT_ROOT", "/from/env")
	t.Setenv("FILE_AGENT_BATCH_SIZE", "99")
	t.Setenv("FILE_AGENT_EXTENSIONS", ".log, .csv")
	t.Setenv("FILE_AGENT_DEBOUNCE_WINDOW", "3s")
	t.Setenv("FILE_AGENT_LOG_LEVEL", "debug")

	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)

	require.Len(t, cfg.Roots, 1)
	assert.Equal(t, "/from/env", cfg.Roots[0].Path)
	assert.Equal(t, 99, cfg.Scan.BatchSize)
	assert.Equal(t, []string{".log", ".csv"}, cfg.Extensions)
	assert.Equal(t, 3*time.Second, cfg.Monitor.DebounceWindow)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := Default()
		cfg.Roots = []Root{{Path: "/var/data", Recursive: true}}
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"valid", func(*Config) {}, nil},
		{"no roots", func(c *Config) { c.Roots = nil }, ErrNoRoots},
		{"zero batch size", func(c *Config) { c.Scan.BatchSize = 0 }, ErrInvalidBatchSize},
		{"zero concurrency", func(c *Config) { c.Scan.Concurrency = 0 }, ErrInvalidConcurrency},
		{"zero debounce", func(c *Config) { c.Monitor.DebounceWindow = 0 }, ErrInvalidDebounceWindow},
		{"zero poll interval", func(c *Config) { c.Monitor.PollInterval = 0 }, ErrInvalidPollInterval},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}
