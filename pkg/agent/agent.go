// Package agent orchestrates the discovery pipeline: one bulk scan
// over the configured roots at startup, live change monitoring from
// then on, and optional cron-scheduled reconciliation rescans. Both
// paths feed the same registration sink.
package agent

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/0xrjw/file-agent/pkg/logger"
	"github.com/0xrjw/file-agent/pkg/monitor"
	"github.com/0xrjw/file-agent/pkg/queue"
	"github.com/0xrjw/file-agent/pkg/scanner"
)

// Root is one directory tree the agent covers.
type Root struct {
	Path      string
	Recursive bool
}

// Sink receives discovered and changed files. *registry.Registrar
// satisfies it.
type Sink interface {
	HandleBatch(ctx context.Context, paths []string) error
	Register(ctx context.Context, path string) error
	Deregister(ctx context.Context, path string) error
}

// Config contains agent configuration.
type Config struct {
	// Roots to scan and monitor. The live monitor covers the first
	// root; every root is covered by the bulk scan.
	Roots []Root

	// BatchSize for the bulk scan consumer.
	BatchSize int

	// Rescan is an optional cron expression for periodic
	// reconciliation scans. Empty disables them.
	Rescan string
}

// Agent ties the scanner, monitor and sink together.
type Agent struct {
	config   Config
	scanner  scanner.Scanner
	consumer scanner.Consumer
	monitor  monitor.Monitor
	sink     Sink
	logger   logger.Logger

	scanning atomic.Bool
}

// New creates an Agent.
func New(cfg Config, s scanner.Scanner, c scanner.Consumer, m monitor.Monitor, sink Sink, log logger.Logger) *Agent {
	return &Agent{
		config:   cfg,
		scanner:  s,
		consumer: c,
		monitor:  m,
		sink:     sink,
		logger:   log,
	}
}

// Run starts live monitoring, performs the bulk pass, and blocks until
// the context is cancelled.
//
// The monitor is armed before the bulk scan starts so a file created
// mid-scan is caught by at least one path; the sink's ledger makes the
// overlap idempotent. A bulk scan failure is logged, not fatal: live
// monitoring continues and a scheduled rescan can reconcile.
func (a *Agent) Run(ctx context.Context) error {
	if len(a.config.Roots) == 0 {
		return ErrNoRoots
	}

	a.monitor.AddListener(newSinkListener(ctx, a.sink, a.logger))
	if err := a.monitor.Start(ctx); err != nil {
		return fmt.Errorf("failed to start monitor: %w", err)
	}
	defer func() {
		if stopErr := a.monitor.Stop(); stopErr != nil && stopErr != monitor.ErrNotMonitoring {
			a.logger.Error("failed to stop monitor", "error", stopErr)
		}
	}()

	if err := a.RunOnce(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		a.logger.Error("bulk scan failed, monitoring continues", "error", err)
	}

	var sched *cron.Cron
	if a.config.Rescan != "" {
		sched = cron.New()
		_, err := sched.AddFunc(a.config.Rescan, func() {
			if err := a.RunOnce(ctx); err != nil && err != ErrScanInFlight {
				a.logger.Error("scheduled rescan failed", "error", err)
			}
		})
		if err != nil {
			return fmt.Errorf("invalid rescan schedule %q: %w", a.config.Rescan, err)
		}
		sched.Start()
		a.logger.Info("reconciliation rescans scheduled", "spec", a.config.Rescan)
		defer sched.Stop()
	}

	<-ctx.Done()
	return ctx.Err()
}

// RunOnce performs one bulk pass over every configured root, feeding
// discovered files to the sink in batches.
//
// Returns ErrScanInFlight when a pass is already running.
func (a *Agent) RunOnce(ctx context.Context) error {
	if !a.scanning.CompareAndSwap(false, true) {
		return ErrScanInFlight
	}
	defer a.scanning.Store(false)

	a.logger.Info("bulk scan starting", "roots", len(a.config.Roots))

	q := queue.New()

	g, gctx := errgroup.WithContext(ctx)
	for _, root := range a.config.Roots {
		root := root
		g.Go(func() error {
			return a.scanner.Scan(gctx, root.Path, root.Recursive, q)
		})
	}
	go func() {
		if err := g.Wait(); err != nil {
			a.logger.Error("scan producer failed", "error", err)
		}
		q.Close()
	}()

	if err := a.consumer.Consume(ctx, q, a.sink.HandleBatch, a.config.BatchSize); err != nil {
		return fmt.Errorf("bulk scan failed: %w", err)
	}

	a.logger.Info("bulk scan complete")
	return nil
}
