package monitor

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/0xrjw/file-agent/pkg/logger"
)

// fsnotifySource implements Source on top of fsnotify.
//
// fsnotify reports a rename as an event on the old path only, so
// renames surface here with OldPath set and Path empty; the new path,
// when it lands inside the watched tree, arrives as its own Created
// notification.
type fsnotifySource struct {
	fsw    *fsnotify.Watcher
	logger logger.Logger

	notifications chan Notification
	errors        chan error

	mu        sync.Mutex
	recursive bool
	watched   []string
	dirs      map[string]struct{}
}

// NewFsnotifySource creates a Source backed by fsnotify.
func NewFsnotifySource(log logger.Logger) (Source, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	s := &fsnotifySource{
		fsw:           fsw,
		logger:        log,
		notifications: make(chan Notification, 100),
		errors:        make(chan error, 10),
		dirs:          make(map[string]struct{}),
	}

	go s.forward()
	return s, nil
}

// Watch implements Source.Watch.
func (s *fsnotifySource) Watch(root string, recursive bool) error {
	if _, err := os.Stat(root); err != nil {
		return fmt.Errorf("failed to stat watch root: %w", err)
	}

	s.mu.Lock()
	s.recursive = recursive
	s.mu.Unlock()

	if err := s.add(root); err != nil {
		return err
	}
	if !recursive {
		return nil
	}

	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			s.logger.Warn("error walking watch tree", "path", path, "error", err)
			return nil
		}
		if !info.IsDir() || path == root {
			return nil
		}
		if addErr := s.add(path); addErr != nil {
			s.logger.Warn("failed to watch subdirectory", "path", path, "error", addErr)
		}
		return nil
	})
}

// Unwatch implements Source.Unwatch.
func (s *fsnotifySource) Unwatch() error {
	s.mu.Lock()
	watched := s.watched
	s.watched = nil
	s.dirs = make(map[string]struct{})
	s.mu.Unlock()

	for _, path := range watched {
		if err := s.fsw.Remove(path); err != nil {
			s.logger.Debug("failed to remove watch", "path", path, "error", err)
		}
	}
	return nil
}

// Notifications implements Source.Notifications.
func (s *fsnotifySource) Notifications() <-chan Notification {
	return s.notifications
}

// Errors implements Source.Errors.
func (s *fsnotifySource) Errors() <-chan error {
	return s.errors
}

// Close implements Source.Close.
func (s *fsnotifySource) Close() error {
	if err := s.fsw.Close(); err != nil {
		return fmt.Errorf("failed to close fsnotify watcher: %w", err)
	}
	return nil
}

// add registers one directory with fsnotify and records it so Unwatch
// can undo the subscription.
func (s *fsnotifySource) add(path string) error {
	if err := s.fsw.Add(path); err != nil {
		return fmt.Errorf("failed to add watch path: %w", err)
	}

	s.mu.Lock()
	s.watched = append(s.watched, path)
	s.dirs[path] = struct{}{}
	s.mu.Unlock()

	s.logger.Debug("watching directory", "path", path)
	return nil
}

// forward converts fsnotify events into Notifications until the
// underlying watcher is closed.
func (s *fsnotifySource) forward() {
	defer close(s.notifications)
	defer close(s.errors)

	for {
		select {
		case event, ok := <-s.fsw.Events:
			if !ok {
				return
			}
			s.handle(event)

		case err, ok := <-s.fsw.Errors:
			if !ok {
				return
			}
			select {
			case s.errors <- err:
			default:
				s.logger.Warn("error channel full, dropping error")
			}
		}
	}
}

// handle maps one fsnotify event onto the Notification model.
// Directory events are never forwarded: notifications describe files.
func (s *fsnotifySource) handle(event fsnotify.Event) {
	if event.Op&fsnotify.Create == fsnotify.Create {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			s.mu.Lock()
			recursive := s.recursive
			s.dirs[event.Name] = struct{}{}
			s.mu.Unlock()

			// Inside a recursive watch the new directory joins the
			// subscription so its future contents are seen.
			if recursive {
				if addErr := s.add(event.Name); addErr != nil {
					s.logger.Warn("failed to watch new subdirectory",
						"path", event.Name,
						"error", addErr)
				}
			}
			return
		}
	}

	// A removed or renamed path cannot be stat'd; known directories
	// are recognized from the bookkeeping instead.
	if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		s.mu.Lock()
		_, isDir := s.dirs[event.Name]
		if isDir {
			delete(s.dirs, event.Name)
		}
		s.mu.Unlock()
		if isDir {
			return
		}
	}

	var n Notification
	switch {
	case event.Op&fsnotify.Create == fsnotify.Create:
		n = Notification{Type: Created, Path: event.Name}
	case event.Op&fsnotify.Write == fsnotify.Write:
		n = Notification{Type: Changed, Path: event.Name}
	case event.Op&fsnotify.Remove == fsnotify.Remove:
		n = Notification{Type: Deleted, Path: event.Name}
	case event.Op&fsnotify.Rename == fsnotify.Rename:
		n = Notification{Type: Renamed, OldPath: event.Name}
	default:
		// Chmod and other noise.
		return
	}

	select {
	case s.notifications <- n:
	default:
		s.logger.Warn("notification channel full, dropping notification",
			"path", event.Name)
	}
}
