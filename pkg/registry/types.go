// Package registry implements the registration sink: it hashes
// discovered files, records them in a local ledger, and posts their
// metadata to a remote inventory endpoint.
//
// The registrar is wired into both discovery paths: as the batch
// handler for the bulk scan and as the listener for settled change
// events. The ledger makes registration idempotent, so a file reported
// by both paths is only posted once per content version.
package registry

import (
	"context"
	"time"
)

// FileRecord is the registered metadata for one file.
type FileRecord struct {
	// Path is the absolute path to the file.
	Path string `json:"path"`

	// SHA256 is the hex-encoded content digest. Empty for deletions.
	SHA256 string `json:"sha256,omitempty"`

	// Size is the file size in bytes.
	Size int64 `json:"size"`

	// ModTime is the file's last modification time.
	ModTime time.Time `json:"mod_time"`

	// RegisteredAt is when this record was produced.
	RegisteredAt time.Time `json:"registered_at"`

	// Deleted marks a deregistration notice.
	Deleted bool `json:"deleted,omitempty"`
}

// Store persists file records locally across agent restarts.
type Store interface {
	// Get returns the record for path, or nil if none is stored.
	Get(path string) (*FileRecord, error)

	// Put stores the record under its path.
	Put(record *FileRecord) error

	// Delete removes the record for path. Deleting a missing record
	// is not an error.
	Delete(path string) error

	// Close releases the underlying database.
	Close() error
}

// Transport delivers records to the remote endpoint.
type Transport interface {
	// Publish sends one record, retrying transient failures per the
	// transport's policy.
	Publish(ctx context.Context, record *FileRecord) error
}

// Registrar registers and deregisters files.
type Registrar interface {
	// Register hashes the file at path and publishes its record.
	// A file whose stored hash matches current content is skipped.
	Register(ctx context.Context, path string) error

	// Deregister publishes a deletion notice for path and drops its
	// stored record.
	Deregister(ctx context.Context, path string) error

	// HandleBatch registers every path in a scanned batch. Individual
	// failures are logged and the remaining paths still processed;
	// the first error is returned.
	HandleBatch(ctx context.Context, paths []string) error
}

// Config contains registrar configuration.
type Config struct {
	// Endpoint is the inventory URL records are posted to. Empty
	// means ledger-only operation: records are stored locally and
	// nothing is published.
	Endpoint string

	// Timeout bounds one HTTP request. Default: 10s.
	Timeout time.Duration

	// MaxRetries is the number of attempts per record. Default: 3.
	MaxRetries int

	// RetryDelay is the base delay between attempts, doubled each
	// retry. Default: 500ms.
	RetryDelay time.Duration

	// RateLimit caps publish calls per second. Zero disables the
	// limit.
	RateLimit float64
}
