package monitor

import "errors"

// Common errors returned by the monitor.
var (
	// ErrMonitorClosed is returned when using a closed monitor.
	ErrMonitorClosed = errors.New("monitor is closed")

	// ErrAlreadyMonitoring is returned when Start is called twice.
	ErrAlreadyMonitoring = errors.New("monitor already started")

	// ErrNotMonitoring is returned when Stop is called while stopped.
	ErrNotMonitoring = errors.New("monitor not started")

	// ErrNoRoot is returned when Start is called without a root path.
	ErrNoRoot = errors.New("no root path configured")

	// ErrFileVanished is returned by the availability poll when the
	// file disappears mid-poll, marking the pending event as stale.
	ErrFileVanished = errors.New("file vanished during availability poll")

	// ErrPollExhausted is returned when the availability poll gives up
	// after the configured maximum number of attempts.
	ErrPollExhausted = errors.New("availability poll attempts exhausted")
)
