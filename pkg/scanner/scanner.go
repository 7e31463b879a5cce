package scanner

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/0xrjw/file-agent/pkg/logger"
	"github.com/0xrjw/file-agent/pkg/queue"
)

// scanner implements the Scanner interface.
type scanner struct {
	config Config
	logger logger.Logger
	pacing time.Duration
}

// New creates a Scanner.
//
// Parameters:
//   - cfg: Scanner configuration; Limiter is required
//   - log: Logger instance
//
// Returns a configured Scanner.
func New(cfg Config, log logger.Logger) Scanner {
	multiplier := cfg.PacingMultiplier
	if multiplier == 0 {
		multiplier = 1
	}

	var pacing time.Duration
	if multiplier > 0 {
		pacing = directoryPacingUnit * time.Duration(cfg.Limiter.Capacity()*multiplier)
	}

	return &scanner{
		config: cfg,
		logger: log,
		pacing: pacing,
	}
}

// Scan implements Scanner.Scan.
func (s *scanner) Scan(ctx context.Context, root string, recursive bool, q *queue.Queue) error {
	if err := s.config.Limiter.Acquire(ctx); err != nil {
		return err
	}

	// The permit covers only the listing of this directory, not the
	// subtree beneath it, so it must be released before recursing.
	released := false
	release := func() {
		if !released {
			released = true
			s.config.Limiter.Release()
		}
	}
	defer release()

	entries, err := os.ReadDir(root)
	if err != nil {
		release()
		if os.IsPermission(err) {
			s.logger.Error("access denied, skipping directory", "path", root)
			return nil
		}
		s.logger.Error("failed to list directory", "path", root, "error", err)
		return nil
	}

	var subdirs []string
	for _, entry := range entries {
		if entry.IsDir() {
			subdirs = append(subdirs, entry.Name())
			continue
		}
		path := filepath.Join(root, entry.Name())
		if !s.config.Extensions.Allows(path) {
			continue
		}
		if err := q.Enqueue(path); err != nil {
			return err
		}
		if err := sleepContext(ctx, enqueuePause); err != nil {
			return err
		}
	}

	release()

	if err := sleepContext(ctx, s.pacing); err != nil {
		return err
	}

	if !recursive || len(subdirs) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range subdirs {
		sub := filepath.Join(root, name)
		g.Go(func() error {
			return s.Scan(gctx, sub, true, q)
		})
	}
	return g.Wait()
}
