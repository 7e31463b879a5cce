package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/0xrjw/file-agent/pkg/filter"
	"github.com/0xrjw/file-agent/pkg/limiter"
	"github.com/0xrjw/file-agent/pkg/logger"
	"github.com/0xrjw/file-agent/pkg/queue"
)

// buildTree creates a directory tree for scan tests and returns the
// created file paths keyed by extension.
func buildTree(t *testing.T) (string, []string, []string) {
	t.Helper()
	root := t.TempDir()

	layout := []string{
		"a.log",
		"b.txt",
		"sub1/c.log",
		"sub1/d.csv",
		"sub1/nested/e.log",
		"sub2/f.LOG",
		"sub2/g.md",
	}

	var logFiles, allFiles []string
	for _, rel := range layout {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			t.Fatalf("MkdirAll: %v", err)
		}
		if err := os.WriteFile(path, []byte("x"), 0600); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
		allFiles = append(allFiles, path)
		if ext := filepath.Ext(rel); ext == ".log" || ext == ".LOG" {
			logFiles = append(logFiles, path)
		}
	}
	return root, logFiles, allFiles
}

// drain collects every queued path until the queue is closed.
func drain(t *testing.T, q *queue.Queue) []string {
	t.Helper()
	var paths []string
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		path, err := q.Dequeue(ctx)
		if err == queue.ErrClosed {
			return paths
		}
		if err != nil {
			t.Fatalf("Dequeue() error = %v", err)
		}
		paths = append(paths, path)
	}
}

func runScan(t *testing.T, s Scanner, root string, recursive bool) []string {
	t.Helper()
	q := queue.New()
	go func() {
		defer q.Close()
		if err := s.Scan(context.Background(), root, recursive, q); err != nil {
			t.Errorf("Scan() error = %v", err)
		}
	}()
	return drain(t, q)
}

func TestScanRecursiveWithFilter(t *testing.T) {
	root, logFiles, _ := buildTree(t)

	s := New(Config{
		Limiter:    limiter.New(2),
		Extensions: filter.NewSet([]string{".log"}),
	}, logger.Noop())

	got := runScan(t, s, root, true)

	sort.Strings(got)
	sort.Strings(logFiles)
	if len(got) != len(logFiles) {
		t.Fatalf("scanned %d files, want %d: %v", len(got), len(logFiles), got)
	}
	for i := range got {
		if got[i] != logFiles[i] {
			t.Errorf("file %d = %s, want %s", i, got[i], logFiles[i])
		}
	}
}

func TestScanEmptyFilterAllowsAll(t *testing.T) {
	root, _, allFiles := buildTree(t)

	s := New(Config{
		Limiter:    limiter.New(2),
		Extensions: filter.NewSet(nil),
	}, logger.Noop())

	got := runScan(t, s, root, true)
	if len(got) != len(allFiles) {
		t.Errorf("scanned %d files, want %d", len(got), len(allFiles))
	}
}

func TestScanNonRecursive(t *testing.T) {
	root, _, _ := buildTree(t)

	s := New(Config{
		Limiter:    limiter.New(2),
		Extensions: filter.NewSet([]string{".log"}),
	}, logger.Noop())

	got := runScan(t, s, root, false)

	want := []string{filepath.Join(root, "a.log")}
	if len(got) != 1 || got[0] != want[0] {
		t.Errorf("non-recursive scan = %v, want %v", got, want)
	}
}

func TestScanEmptyDirectory(t *testing.T) {
	root := t.TempDir()

	s := New(Config{
		Limiter:    limiter.New(2),
		Extensions: filter.NewSet(nil),
	}, logger.Noop())

	got := runScan(t, s, root, true)
	if len(got) != 0 {
		t.Errorf("scan of empty directory enqueued %d paths, want 0", len(got))
	}
}

func TestScanNoDuplicates(t *testing.T) {
	root := t.TempDir()
	// Wide tree with many sibling directories scanned concurrently.
	for d := 0; d < 10; d++ {
		dir := filepath.Join(root, fmt.Sprintf("dir%d", d))
		if err := os.MkdirAll(dir, 0700); err != nil {
			t.Fatalf("MkdirAll: %v", err)
		}
		for f := 0; f < 10; f++ {
			path := filepath.Join(dir, fmt.Sprintf("f%d.log", f))
			if err := os.WriteFile(path, []byte("x"), 0600); err != nil {
				t.Fatalf("WriteFile: %v", err)
			}
		}
	}

	s := New(Config{
		Limiter:    limiter.New(4),
		Extensions: filter.NewSet([]string{".log"}),
	}, logger.Noop())

	got := runScan(t, s, root, true)

	seen := make(map[string]int)
	for _, path := range got {
		seen[path]++
	}
	if len(seen) != 100 {
		t.Errorf("scanned %d distinct files, want 100", len(seen))
	}
	for path, count := range seen {
		if count != 1 {
			t.Errorf("path %s enqueued %d times, want 1", path, count)
		}
	}
}

func TestScanRespectsLimiterCapacity(t *testing.T) {
	root := t.TempDir()
	for d := 0; d < 16; d++ {
		dir := filepath.Join(root, fmt.Sprintf("dir%d", d))
		if err := os.MkdirAll(dir, 0700); err != nil {
			t.Fatalf("MkdirAll: %v", err)
		}
		for f := 0; f < 20; f++ {
			path := filepath.Join(dir, fmt.Sprintf("f%d.log", f))
			if err := os.WriteFile(path, []byte("x"), 0600); err != nil {
				t.Fatalf("WriteFile: %v", err)
			}
		}
	}

	const capacity = 3
	lim := limiter.New(capacity)
	s := New(Config{
		Limiter:    lim,
		Extensions: filter.NewSet(nil),
	}, logger.Noop())

	var stop int32
	var maxSeen int32
	go func() {
		for atomic.LoadInt32(&stop) == 0 {
			n := int32(lim.InUse())
			for {
				prev := atomic.LoadInt32(&maxSeen)
				if n <= prev || atomic.CompareAndSwapInt32(&maxSeen, prev, n) {
					break
				}
			}
			runtime.Gosched()
		}
	}()

	runScan(t, s, root, true)
	atomic.StoreInt32(&stop, 1)

	if got := atomic.LoadInt32(&maxSeen); got > capacity {
		t.Errorf("observed %d concurrent listings, want <= %d", got, capacity)
	}
}

func TestScanSkipsUnreadableDirectory(t *testing.T) {
	if runtime.GOOS == "windows" || os.Getuid() == 0 {
		t.Skip("permission bits not enforced in this environment")
	}

	root := t.TempDir()
	blocked := filepath.Join(root, "blocked")
	if err := os.MkdirAll(blocked, 0700); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(blocked, "hidden.log"), []byte("x"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "visible.log"), []byte("x"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.Chmod(blocked, 0000); err != nil {
		t.Fatalf("Chmod: %v", err)
	}
	defer os.Chmod(blocked, 0700) // nolint:errcheck

	lim := limiter.New(2)
	s := New(Config{
		Limiter:    lim,
		Extensions: filter.NewSet([]string{".log"}),
	}, logger.Noop())

	got := runScan(t, s, root, true)

	if len(got) != 1 || got[0] != filepath.Join(root, "visible.log") {
		t.Errorf("scan = %v, want only visible.log", got)
	}
	if lim.InUse() != 0 {
		t.Errorf("limiter left %d permits held after failed listing", lim.InUse())
	}
}

func TestScanCancelled(t *testing.T) {
	root, _, _ := buildTree(t)

	s := New(Config{
		Limiter:    limiter.New(1),
		Extensions: filter.NewSet(nil),
	}, logger.Noop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	q := queue.New()
	if err := s.Scan(ctx, root, true, q); err != context.Canceled {
		t.Errorf("Scan() with cancelled context error = %v, want context.Canceled", err)
	}
}
