package registry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/0xrjw/file-agent/pkg/logger"
)

// registrar implements the Registrar interface.
type registrar struct {
	store     Store
	transport Transport // nil in ledger-only mode
	logger    logger.Logger
}

// NewRegistrar creates a Registrar over the given store and transport.
//
// Parameters:
//   - store: Local record store
//   - transport: Remote publisher; nil disables publishing
//   - log: Logger instance
//
// Returns a configured Registrar.
func NewRegistrar(store Store, transport Transport, log logger.Logger) Registrar {
	return &registrar{
		store:     store,
		transport: transport,
		logger:    log,
	}
}

// Register implements Registrar.Register.
func (r *registrar) Register(ctx context.Context, path string) error {
	record, err := r.describe(path)
	if err != nil {
		return err
	}

	existing, err := r.store.Get(path)
	if err != nil {
		return err
	}
	if existing != nil && existing.SHA256 == record.SHA256 {
		r.logger.Debug("file unchanged, skipping registration", "path", path)
		return nil
	}

	if r.transport != nil {
		if pubErr := r.transport.Publish(ctx, record); pubErr != nil {
			return pubErr
		}
	}

	if putErr := r.store.Put(record); putErr != nil {
		return putErr
	}

	r.logger.Info("file registered",
		"path", path,
		"sha256", record.SHA256,
		"size", record.Size)
	return nil
}

// Deregister implements Registrar.Deregister.
func (r *registrar) Deregister(ctx context.Context, path string) error {
	if r.transport != nil {
		notice := &FileRecord{
			Path:         path,
			RegisteredAt: time.Now(),
			Deleted:      true,
		}
		if pubErr := r.transport.Publish(ctx, notice); pubErr != nil {
			return pubErr
		}
	}

	if err := r.store.Delete(path); err != nil {
		return err
	}

	r.logger.Info("file deregistered", "path", path)
	return nil
}

// HandleBatch implements Registrar.HandleBatch.
func (r *registrar) HandleBatch(ctx context.Context, paths []string) error {
	var firstErr error
	for _, path := range paths {
		if err := r.Register(ctx, path); err != nil {
			r.logger.Error("failed to register file", "path", path, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// describe stats and hashes the file at path into a fresh record.
func (r *registrar) describe(path string) (*FileRecord, error) {
	f, err := os.Open(path) // #nosec G304: path comes from the scanned tree
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close() // nolint:errcheck

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, fmt.Errorf("failed to hash %s: %w", path, err)
	}

	return &FileRecord{
		Path:         path,
		SHA256:       hex.EncodeToString(h.Sum(nil)),
		Size:         info.Size(),
		ModTime:      info.ModTime(),
		RegisteredAt: time.Now(),
	}, nil
}
