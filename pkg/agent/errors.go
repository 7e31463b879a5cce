package agent

import "errors"

// Common errors returned by the agent.
var (
	// ErrNoRoots is returned by Run when no roots are configured.
	ErrNoRoots = errors.New("no roots configured")

	// ErrScanInFlight is returned by RunOnce while a previous bulk
	// pass is still running.
	ErrScanInFlight = errors.New("bulk scan already in flight")
)
