package scanner

import "errors"

// Common errors returned by the scanner package.
var (
	// ErrInvalidBatchSize is returned when Consume is called with a
	// batch size below 1.
	ErrInvalidBatchSize = errors.New("batch size must be at least 1")
)
