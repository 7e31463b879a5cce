package monitor

import (
	"context"
	"fmt"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/0xrjw/file-agent/pkg/filter"
	"github.com/0xrjw/file-agent/pkg/logger"
)

// monitor implements the Monitor interface.
type monitor struct {
	config Config
	source Source
	logger logger.Logger

	mu         sync.RWMutex
	monitoring bool
	closed     bool
	stopChan   chan struct{}
	root       string
	exts       *filter.Set

	ledger *Ledger

	listenerMu sync.RWMutex
	listeners  []Listener
}

// New creates a Monitor over the given source.
//
// Parameters:
//   - cfg: Monitor configuration
//   - src: Raw notification source (see NewFsnotifySource)
//   - log: Logger instance
//
// Returns a configured Monitor in the Stopped state.
func New(cfg Config, src Source, log logger.Logger) Monitor {
	if cfg.DebounceWindow == 0 {
		cfg.DebounceWindow = 2 * time.Second
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = time.Second
	}

	return &monitor{
		config: cfg,
		source: src,
		logger: log,
		root:   cfg.Root,
		exts:   cfg.Extensions,
		ledger: NewLedger(cfg.DebounceWindow),
	}
}

// Start implements Monitor.Start.
func (m *monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrMonitorClosed
	}
	if m.monitoring {
		m.mu.Unlock()
		return ErrAlreadyMonitoring
	}
	root := m.root
	if root == "" {
		m.mu.Unlock()
		return ErrNoRoot
	}
	m.monitoring = true
	m.stopChan = make(chan struct{})
	stopChan := m.stopChan
	m.mu.Unlock()

	if err := m.source.Watch(root, m.config.Recursive); err != nil {
		m.mu.Lock()
		m.monitoring = false
		m.mu.Unlock()
		return fmt.Errorf("failed to watch %s: %w", root, err)
	}

	m.logger.Info("monitoring started",
		"root", root,
		"recursive", m.config.Recursive,
		"debounce_window", m.config.DebounceWindow)

	go m.loop(ctx, stopChan)
	return nil
}

// Stop implements Monitor.Stop.
func (m *monitor) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrMonitorClosed
	}
	if !m.monitoring {
		return ErrNotMonitoring
	}

	close(m.stopChan)
	m.monitoring = false

	if err := m.source.Unwatch(); err != nil {
		m.logger.Error("failed to unsubscribe source", "error", err)
	}

	// The ledger's lifetime is bound to the monitoring session.
	m.ledger.Clear()

	m.logger.Info("monitoring stopped")
	return nil
}

// Close implements Monitor.Close.
func (m *monitor) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	if m.monitoring {
		close(m.stopChan)
		m.monitoring = false
		m.ledger.Clear()
	}
	m.closed = true
	m.mu.Unlock()

	if err := m.source.Close(); err != nil {
		return fmt.Errorf("failed to close source: %w", err)
	}

	m.logger.Info("monitor closed")
	return nil
}

// AddListener implements Monitor.AddListener.
func (m *monitor) AddListener(l Listener) {
	m.listenerMu.Lock()
	defer m.listenerMu.Unlock()
	m.listeners = append(m.listeners, l)
}

// RemoveListener implements Monitor.RemoveListener.
func (m *monitor) RemoveListener(l Listener) {
	m.listenerMu.Lock()
	defer m.listenerMu.Unlock()

	for i, registered := range m.listeners {
		if registered == l {
			m.listeners = append(m.listeners[:i], m.listeners[i+1:]...)
			return
		}
	}
}

// SetRoot implements Monitor.SetRoot.
func (m *monitor) SetRoot(root string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.root = root
}

// SetExtensions implements Monitor.SetExtensions.
func (m *monitor) SetExtensions(exts *filter.Set) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exts = exts
}

// loop consumes raw notifications until stopped.
func (m *monitor) loop(ctx context.Context, stopChan chan struct{}) {
	// Entries untouched for many windows are dead weight in the
	// per-path lock map; prune them periodically.
	evict := time.NewTicker(time.Minute)
	defer evict.Stop()

	for {
		select {
		case <-evict.C:
			if n := m.ledger.Evict(10 * m.config.DebounceWindow); n > 0 {
				m.logger.Debug("evicted stale ledger entries", "count", n)
			}

		case <-ctx.Done():
			m.logger.Info("monitoring loop exited", "reason", "context cancelled")
			return

		case <-stopChan:
			m.logger.Info("monitoring loop exited", "reason", "stopped")
			return

		case n, ok := <-m.source.Notifications():
			if !ok {
				m.logger.Warn("notification channel closed")
				return
			}
			// Distinct paths settle in parallel; the ledger's
			// per-path lock serializes same-path notifications.
			go m.handleNotification(ctx, n)

		case err, ok := <-m.source.Errors():
			if !ok {
				m.logger.Warn("source error channel closed")
				return
			}
			m.logger.Error("watch facility error", "error", err)
		}
	}
}

// handleNotification filters, debounces and settles one notification.
func (m *monitor) handleNotification(ctx context.Context, n Notification) {
	path := n.Path
	if path == "" {
		// A rename whose destination the facility could not name; the
		// old path is all there is to report.
		path = n.OldPath
	}

	m.mu.RLock()
	exts := m.exts
	m.mu.RUnlock()

	if !exts.Allows(path) {
		return
	}

	ran, err := m.ledger.Settle(path, func() error {
		if m.requiresAvailability(n) {
			if pollErr := m.waitAvailable(ctx, n.Path); pollErr != nil {
				return pollErr
			}
		}
		m.dispatch(n)
		return nil
	})

	switch {
	case err != nil:
		m.logger.Error("settle failed, event dropped",
			"path", path,
			"type", n.Type.String(),
			"error", err)
	case !ran:
		m.logger.Debug("notification debounced",
			"path", path,
			"type", n.Type.String())
	}
}

// requiresAvailability reports whether the notification implies the
// file should currently exist and therefore must pass the
// availability poll. Deletions are expected to be gone, and a rename
// without a known destination has no path expected to exist.
func (m *monitor) requiresAvailability(n Notification) bool {
	switch n.Type {
	case Created, Changed:
		return true
	case Renamed:
		return n.Path != ""
	default:
		return false
	}
}

// waitAvailable polls until the file at path is readable and no
// cooperating writer still holds it.
//
// A missing file is a hard failure rather than a retry: the path
// disappearing mid-poll means the notification is stale. With
// PollMaxAttempts at zero, the poll retries forever.
func (m *monitor) waitAvailable(ctx context.Context, path string) error {
	attempts := 0
	for {
		err := probeAvailable(path)
		if err == nil {
			return nil
		}
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrFileVanished, path)
		}

		attempts++
		if m.config.PollMaxAttempts > 0 && attempts >= m.config.PollMaxAttempts {
			return fmt.Errorf("%w: %s after %d attempts", ErrPollExhausted, path, attempts)
		}

		m.logger.Debug("file not yet available, retrying",
			"path", path,
			"attempt", attempts,
			"error", err)

		t := time.NewTimer(m.config.PollInterval)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		}
	}
}

// probeAvailable opens the file for reading and takes a non-blocking
// exclusive lock on it. A held lock means a cooperating writer is
// still working on the file; a filesystem without flock support
// degrades to the plain readability check.
func probeAvailable(path string) error {
	f, err := os.Open(path) // #nosec G304: path comes from the watched tree
	if err != nil {
		return err
	}
	defer f.Close() // nolint:errcheck

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		if err == syscall.EWOULDBLOCK {
			return fmt.Errorf("file held by another process: %s", path)
		}
		return nil
	}
	_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN) // nolint:errcheck
	return nil
}

// dispatch invokes every registered listener for a settled event.
func (m *monitor) dispatch(n Notification) {
	m.listenerMu.RLock()
	listeners := make([]Listener, len(m.listeners))
	copy(listeners, m.listeners)
	m.listenerMu.RUnlock()

	for _, l := range listeners {
		switch n.Type {
		case Created:
			l.OnCreated(n.Path)
		case Changed:
			l.OnChanged(n.Path)
		case Deleted:
			l.OnDeleted(n.Path)
		case Renamed:
			l.OnRenamed(n.OldPath, n.Path)
		}
	}
}
