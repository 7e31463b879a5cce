package config

import "errors"

// Common errors returned by the config package.
var (
	// ErrNoRoots is returned when no root directories are configured.
	ErrNoRoots = errors.New("at least one root directory is required")

	// ErrInvalidBatchSize is returned for a batch size below 1.
	ErrInvalidBatchSize = errors.New("scan batch size must be positive")

	// ErrInvalidConcurrency is returned for a concurrency below 1.
	ErrInvalidConcurrency = errors.New("scan concurrency must be positive")

	// ErrInvalidDebounceWindow is returned for a non-positive window.
	ErrInvalidDebounceWindow = errors.New("debounce window must be positive")

	// ErrInvalidPollInterval is returned for a non-positive interval.
	ErrInvalidPollInterval = errors.New("poll interval must be positive")
)
