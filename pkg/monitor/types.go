// Package monitor provides live change monitoring for a directory
// tree.
//
// It wraps raw filesystem notifications with per-path debouncing and a
// read-availability gate, so a file is only reported downstream once
// its notification storm has settled and no writer still holds it
// open.
//
// Example usage:
//
//	src, err := monitor.NewFsnotifySource(logger.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	m := monitor.New(monitor.Config{
//	    Root:       "/var/data",
//	    Recursive:  true,
//	    Extensions: filter.NewSet([]string{".log"}),
//	}, src, logger.Default())
//	defer m.Close()
//
//	m.AddListener(myListener)
//	if err := m.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
package monitor

import (
	"context"
	"time"

	"github.com/0xrjw/file-agent/pkg/filter"
)

// EventType describes a settled file change.
type EventType uint32

// Settled event types.
const (
	Created EventType = 1 << iota // File created
	Changed                       // File contents modified
	Deleted                       // File removed
	Renamed                       // File moved
)

// String returns a human-readable event type name.
func (t EventType) String() string {
	switch t {
	case Created:
		return "CREATED"
	case Changed:
		return "CHANGED"
	case Deleted:
		return "DELETED"
	case Renamed:
		return "RENAMED"
	default:
		return "UNKNOWN"
	}
}

// Notification is a raw, unsettled change notice from a Source.
//
// Path is the affected path (the new path, for renames). OldPath is
// only set for renames, and Path may be empty for a rename when the
// facility cannot name the destination.
type Notification struct {
	Type    EventType
	Path    string
	OldPath string
}

// Source delivers raw filesystem notifications for a watched root.
//
// The monitor treats a Source as a black box: it calls Watch once on
// Start, consumes the two channels, and calls Close when the facility
// is released.
type Source interface {
	// Watch subscribes to notifications for root, recursively if
	// requested. Called once per monitoring session.
	Watch(root string, recursive bool) error

	// Notifications returns the raw notification channel.
	Notifications() <-chan Notification

	// Errors returns the channel for facility-level errors.
	Errors() <-chan error

	// Unwatch drops the current subscription without releasing the
	// underlying facility, so Watch may be called again.
	Unwatch() error

	// Close releases the underlying facility.
	Close() error
}

// Listener receives settled change events.
//
// Listener methods are invoked after debouncing and, for events
// implying the file exists, after the availability poll has succeeded.
// Calls for the same path are serialized; calls for different paths
// may be concurrent.
type Listener interface {
	OnCreated(path string)
	OnChanged(path string)
	OnDeleted(path string)
	OnRenamed(oldPath, newPath string)
}

// Monitor watches a root directory and raises settled change events.
type Monitor interface {
	// Start begins monitoring, subscribing the source to the
	// configured root. The context bounds every in-flight settle
	// cycle: cancelling it aborts pending availability polls.
	Start(ctx context.Context) error

	// Stop unsubscribes from further notifications. In-flight settle
	// cycles complete independently. The debounce ledger is cleared.
	Stop() error

	// Close stops monitoring if needed and releases the source.
	Close() error

	// AddListener registers a listener for settled events.
	AddListener(l Listener)

	// RemoveListener removes a previously registered listener.
	RemoveListener(l Listener)

	// SetRoot changes the monitored root. Only meaningful before
	// Start; afterwards it takes effect on the next Start.
	SetRoot(root string)

	// SetExtensions changes the extension filter. Takes effect on the
	// next notification.
	SetExtensions(exts *filter.Set)
}

// Config contains monitor configuration.
type Config struct {
	// Root is the directory to monitor.
	Root string

	// Recursive monitors the whole subtree under Root.
	Recursive bool

	// Extensions filters notifications before debouncing. A nil or
	// empty set accepts every file.
	Extensions *filter.Set

	// DebounceWindow is the minimum time between two settle actions
	// for the same path. Default: 2s.
	DebounceWindow time.Duration

	// PollInterval is the delay between availability-poll attempts.
	// Default: 1s.
	PollInterval time.Duration

	// PollMaxAttempts caps availability-poll attempts. Zero means
	// retry forever: a file held by another process indefinitely will
	// never surface an event, which is the documented default.
	PollMaxAttempts int
}
