package agent

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/0xrjw/file-agent/pkg/filter"
	"github.com/0xrjw/file-agent/pkg/limiter"
	"github.com/0xrjw/file-agent/pkg/logger"
	"github.com/0xrjw/file-agent/pkg/monitor"
	"github.com/0xrjw/file-agent/pkg/scanner"
)

// countingSink records every register/deregister call per path.
type countingSink struct {
	mu           sync.Mutex
	registered   map[string]int
	deregistered map[string]int
}

func newCountingSink() *countingSink {
	return &countingSink{
		registered:   make(map[string]int),
		deregistered: make(map[string]int),
	}
}

func (s *countingSink) Register(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registered[path]++
	return nil
}

func (s *countingSink) Deregister(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deregistered[path]++
	return nil
}

func (s *countingSink) HandleBatch(ctx context.Context, paths []string) error {
	for _, p := range paths {
		if err := s.Register(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func (s *countingSink) registrations(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registered[path]
}

func (s *countingSink) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.registered {
		n += c
	}
	return n
}

func newTestAgent(t *testing.T, dir string, sink Sink, rescan string) *Agent {
	t.Helper()

	exts := filter.NewSet([]string{".log"})
	lim := limiter.New(2)
	s := scanner.New(scanner.Config{Limiter: lim, Extensions: exts}, logger.Noop())
	c := scanner.NewConsumer(logger.Noop())

	src, err := monitor.NewFsnotifySource(logger.Noop())
	if err != nil {
		t.Fatalf("NewFsnotifySource() error = %v", err)
	}
	m := monitor.New(monitor.Config{
		Root:           dir,
		Recursive:      true,
		Extensions:     exts,
		DebounceWindow: 100 * time.Millisecond,
		PollInterval:   20 * time.Millisecond,
	}, src, logger.Noop())
	t.Cleanup(func() { _ = m.Close() }) // nolint:errcheck

	return New(Config{
		Roots:     []Root{{Path: dir, Recursive: true}},
		BatchSize: 10,
		Rescan:    rescan,
	}, s, c, m, sink, logger.Noop())
}

func TestRunOnceRegistersExistingFiles(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		filepath.Join(dir, "a.log"),
		filepath.Join(dir, "b.log"),
		filepath.Join(dir, "sub", "c.log"),
	}
	if err := os.MkdirAll(filepath.Join(dir, "sub"), 0700); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	for _, p := range paths {
		if err := os.WriteFile(p, []byte("x"), 0600); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "skip.txt"), []byte("x"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	sink := newCountingSink()
	a := newTestAgent(t, dir, sink, "")

	if err := a.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}

	for _, p := range paths {
		if got := sink.registrations(p); got != 1 {
			t.Errorf("file %s registered %d times, want 1", p, got)
		}
	}
	if sink.total() != len(paths) {
		t.Errorf("registered %d files total, want %d", sink.total(), len(paths))
	}
}

func TestRunOnceRejectsOverlap(t *testing.T) {
	sink := newCountingSink()
	a := newTestAgent(t, t.TempDir(), sink, "")

	a.scanning.Store(true)
	if err := a.RunOnce(context.Background()); err != ErrScanInFlight {
		t.Errorf("RunOnce() error = %v, want ErrScanInFlight", err)
	}
}

// A file present before startup must be reported exactly once, by the
// bulk scan; a file created afterwards arrives via the monitor.
func TestRunRoundTrip(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "existing.log")
	if err := os.WriteFile(existing, []byte("x"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	sink := newCountingSink()
	a := newTestAgent(t, dir, sink, "")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- a.Run(ctx)
	}()

	// Wait for the bulk pass to pick up the pre-existing file.
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) && sink.registrations(existing) == 0 {
		time.Sleep(10 * time.Millisecond)
	}
	if got := sink.registrations(existing); got != 1 {
		t.Fatalf("pre-existing file registered %d times, want 1", got)
	}

	// A file dropped in while running arrives via the monitor.
	created := filepath.Join(dir, "created.log")
	if err := os.WriteFile(created, []byte("y"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	deadline = time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) && sink.registrations(created) == 0 {
		time.Sleep(10 * time.Millisecond)
	}
	if got := sink.registrations(created); got == 0 {
		t.Error("file created after start never registered")
	}

	// The untouched pre-existing file must not be reported again.
	time.Sleep(200 * time.Millisecond)
	if got := sink.registrations(existing); got != 1 {
		t.Errorf("pre-existing file registered %d times after monitoring, want 1", got)
	}

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancellation")
	}
}

func TestRunInvalidRescanSpec(t *testing.T) {
	sink := newCountingSink()
	a := newTestAgent(t, t.TempDir(), sink, "not a cron spec")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := a.Run(ctx); err == nil || err == context.DeadlineExceeded {
		t.Errorf("Run() error = %v, want invalid schedule error", err)
	}
}

func TestRunNoRoots(t *testing.T) {
	a := New(Config{}, nil, nil, nil, nil, logger.Noop())
	if err := a.Run(context.Background()); err != ErrNoRoots {
		t.Errorf("Run() error = %v, want ErrNoRoots", err)
	}
}
