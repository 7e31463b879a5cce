package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/0xrjw/file-agent/pkg/agent"
	"github.com/0xrjw/file-agent/pkg/config"
	"github.com/0xrjw/file-agent/pkg/filter"
	"github.com/0xrjw/file-agent/pkg/limiter"
	"github.com/0xrjw/file-agent/pkg/logger"
	"github.com/0xrjw/file-agent/pkg/monitor"
	"github.com/0xrjw/file-agent/pkg/registry"
	"github.com/0xrjw/file-agent/pkg/scanner"
)

// runAgentCommand wires the pipeline and runs it. With scanOnly set,
// a single bulk pass is performed instead of continuous monitoring.
func runAgentCommand(configPath string, scanOnly bool) error {
	cfg, err := config.NewLoader(configPath).Load()
	if err != nil {
		return err
	}

	log := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Output: cfg.Logging.Output,
		Format: cfg.Logging.Format,
	})

	printBanner(cfg, scanOnly)

	// Registration sink: local ledger plus, if configured, the remote
	// inventory endpoint.
	store, err := registry.NewStore(cfg.Registry.LedgerPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			log.Error("failed to close ledger store", "error", closeErr)
		}
	}()

	var transport registry.Transport
	if cfg.Registry.Endpoint != "" {
		transport = registry.NewTransport(registry.Config{
			Endpoint:   cfg.Registry.Endpoint,
			Timeout:    cfg.Registry.Timeout,
			MaxRetries: cfg.Registry.MaxRetries,
			RetryDelay: cfg.Registry.RetryDelay,
			RateLimit:  cfg.Registry.RateLimit,
		}, log)
	} else {
		log.Warn("no endpoint configured, running ledger-only")
	}
	registrar := registry.NewRegistrar(store, transport, log)

	// Discovery pipeline.
	exts := filter.NewSet(cfg.Extensions)
	lim := limiter.New(cfg.Scan.Concurrency)
	scan := scanner.New(scanner.Config{
		Limiter:          lim,
		Extensions:       exts,
		PacingMultiplier: cfg.Scan.PacingMultiplier,
	}, log)
	consume := scanner.NewConsumer(log)

	src, err := monitor.NewFsnotifySource(log)
	if err != nil {
		return err
	}
	mon := monitor.New(monitor.Config{
		Root:            cfg.Roots[0].Path,
		Recursive:       cfg.Roots[0].Recursive,
		Extensions:      exts,
		DebounceWindow:  cfg.Monitor.DebounceWindow,
		PollInterval:    cfg.Monitor.PollInterval,
		PollMaxAttempts: cfg.Monitor.PollMaxAttempts,
	}, src, log)
	defer func() {
		if closeErr := mon.Close(); closeErr != nil {
			log.Error("failed to close monitor", "error", closeErr)
		}
	}()

	roots := make([]agent.Root, 0, len(cfg.Roots))
	for _, r := range cfg.Roots {
		roots = append(roots, agent.Root{Path: r.Path, Recursive: r.Recursive})
	}

	a := agent.New(agent.Config{
		Roots:     roots,
		BatchSize: cfg.Scan.BatchSize,
		Rescan:    cfg.Rescan,
	}, scan, consume, mon, registrar, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if scanOnly {
		return a.RunOnce(ctx)
	}

	if err := a.Run(ctx); err != nil && err != context.Canceled {
		return err
	}
	log.Info("shut down")
	return nil
}

// printBanner writes a short startup summary, but only when stdout is
// an interactive terminal.
func printBanner(cfg *config.Config, scanOnly bool) {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return
	}

	mode := "scan + monitor"
	if scanOnly {
		mode = "single scan"
	}

	fmt.Printf("file-agent %s (%s)\n", version, mode)
	for _, r := range cfg.Roots {
		recursion := ""
		if r.Recursive {
			recursion = " (recursive)"
		}
		fmt.Printf("  root: %s%s\n", r.Path, recursion)
	}
	if len(cfg.Extensions) > 0 {
		fmt.Printf("  extensions: %v\n", cfg.Extensions)
	}
	if cfg.Registry.Endpoint != "" {
		fmt.Printf("  endpoint: %s\n", cfg.Registry.Endpoint)
	}
	fmt.Println()
}
