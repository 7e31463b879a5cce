package monitor

import (
	"sync"
	"time"
)

// Ledger collapses per-path notification storms.
//
// Each path gets one exclusive lock, created on first use, so
// concurrent notifications for the same path are fully serialized
// while distinct paths proceed in parallel. A settle timestamp is
// recorded only after the settle action completes, which makes the
// debounce window measure time since the previous settle finished,
// not since it started: a slow settle cannot be re-triggered the
// instant it returns, while a fast repeat arrival is suppressed.
type Ledger struct {
	window time.Duration

	mu      sync.Mutex
	entries map[string]*pathEntry
	settled map[string]time.Time
}

// pathEntry is the exclusive lock for one path. refs counts settles
// holding or waiting on the lock, guarded by the Ledger mutex, so
// eviction can tell an idle entry from one with a settle in flight.
type pathEntry struct {
	lock sync.Mutex
	refs int
}

// NewLedger creates a Ledger with the given debounce window.
func NewLedger(window time.Duration) *Ledger {
	return &Ledger{
		window:  window,
		entries: make(map[string]*pathEntry),
		settled: make(map[string]time.Time),
	}
}

// Settle runs action for path unless a previous settle finished less
// than the debounce window ago.
//
// Returns whether the action ran and, if it ran, its error. A failed
// action does not update the settle timestamp, so the next
// notification for the path is not suppressed by the failure.
func (l *Ledger) Settle(path string, action func() error) (bool, error) {
	entry := l.acquire(path)
	entry.lock.Lock()
	defer func() {
		entry.lock.Unlock()
		l.release(entry)
	}()

	l.mu.Lock()
	last, seen := l.settled[path]
	l.mu.Unlock()

	if seen && time.Since(last) < l.window {
		return false, nil
	}

	if err := action(); err != nil {
		return true, err
	}

	l.mu.Lock()
	l.settled[path] = time.Now()
	l.mu.Unlock()
	return true, nil
}

// acquire returns the entry for path, creating it on first use, with
// its reference count raised. Only the map access needs the global
// critical section.
func (l *Ledger) acquire(path string) *pathEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[path]
	if !ok {
		entry = &pathEntry{}
		l.entries[path] = entry
	}
	entry.refs++
	return entry
}

// release drops one reference from a settle that has finished.
func (l *Ledger) release(entry *pathEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.refs--
}

// Clear drops all locks and settle timestamps.
func (l *Ledger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = make(map[string]*pathEntry)
	l.settled = make(map[string]time.Time)
}

// Evict removes entries whose last settle is older than age, bounding
// ledger growth for long-lived monitors over high-churn trees.
//
// A path with a settle in flight or waiting is left alone even when
// its last timestamp is stale: evicting it would hand the next
// notification a fresh lock and break per-path serialization.
func (l *Ledger) Evict(age time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-age)
	evicted := 0
	for path, last := range l.settled {
		if !last.Before(cutoff) {
			continue
		}
		if entry, ok := l.entries[path]; ok && entry.refs > 0 {
			continue
		}
		delete(l.settled, path)
		delete(l.entries, path)
		evicted++
	}
	return evicted
}

// Len returns the number of paths with a recorded settle timestamp.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.settled)
}
