package registry

import "errors"

// Common errors returned by the registry package.
var (
	// ErrEndpointStatus is returned when the endpoint answers a
	// publish with a non-2xx status.
	ErrEndpointStatus = errors.New("endpoint rejected record")

	// ErrStoreClosed is returned when using a closed store.
	ErrStoreClosed = errors.New("store is closed")
)
