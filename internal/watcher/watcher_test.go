package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/dshills/fileindex-mcp/internal/ignore"
	"github.com/dshills/fileindex-mcp/internal/indexer"
	"github.com/dshills/fileindex-mcp/internal/storage"
	"github.com/dshills/fileindex-mcp/pkg/types"
)

func canonicalTempDir(t *testing.T) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	return dir
}

func newTestWatcher(t *testing.T, root string, matcher *ignore.Matcher) *Watcher {
	t.Helper()
	w, err := NewWatcher(root, matcher, testInterval, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	go w.Start()
	return w
}

func waitForPath(t *testing.T, w *Watcher, path string) DebouncedEvent {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case batch, ok := <-w.Events():
			require.True(t, ok, "events channel closed")
			for _, e := range batch {
				if e.Path == path {
					return e
				}
			}
		case <-deadline:
			t.Fatalf("timed out waiting for event on %s", path)
			return DebouncedEvent{}
		}
	}
}

func TestWatcher_ReportsNewFile(t *testing.T) {
	root := canonicalTempDir(t)
	w := newTestWatcher(t, root, nil)

	path := filepath.Join(root, "new.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello\n"), 0o644))

	event := waitForPath(t, w, path)
	assert.Contains(t, []EventOp{OpCreate, OpWrite}, event.Op)
}

func TestWatcher_WatchesNewDirectories(t *testing.T) {
	root := canonicalTempDir(t)
	w := newTestWatcher(t, root, nil)

	sub := filepath.Join(root, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))
	waitForPath(t, w, sub)

	path := filepath.Join(sub, "inner.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	waitForPath(t, w, path)
}

func TestWatcher_SkipsExcludedPaths(t *testing.T) {
	root := canonicalTempDir(t)
	matcher, err := ignore.NewMatcher(ignore.Options{RootDir: root, Patterns: []string{"*.log"}})
	require.NoError(t, err)
	w := newTestWatcher(t, root, matcher)

	require.NoError(t, os.WriteFile(filepath.Join(root, "debug.log"), []byte("x"), 0o644))
	kept := filepath.Join(root, "kept.txt")
	require.NoError(t, os.WriteFile(kept, []byte("x"), 0o644))

	deadline := time.After(3 * time.Second)
	for seen := false; !seen; {
		select {
		case batch := <-w.Events():
			for _, e := range batch {
				assert.NotEqual(t, "debug.log", filepath.Base(e.Path))
				if e.Path == kept {
					seen = true
				}
			}
		case <-deadline:
			t.Fatal("timed out waiting for kept.txt")
		}
	}
}

// stubIndexer fails with a busy error the first time it sees each path
type stubIndexer struct {
	mu    sync.Mutex
	calls map[string]int
	done  chan string
}

func (s *stubIndexer) IndexPath(_ context.Context, _, path string, _ *indexer.Options) (*indexer.Statistics, error) {
	s.mu.Lock()
	s.calls[path]++
	n := s.calls[path]
	s.mu.Unlock()

	if n == 1 {
		return nil, types.ErrIndexingInProgress
	}
	s.done <- path
	return &indexer.Statistics{HardFiles: 1}, nil
}

func TestRefresh_RequeuesWhileBusy(t *testing.T) {
	root := canonicalTempDir(t)
	w := newTestWatcher(t, root, nil)
	stub := &stubIndexer{calls: make(map[string]int), done: make(chan string, 4)}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- Refresh(ctx, w, stub, &indexer.Options{}, zaptest.NewLogger(t)) }()

	path := filepath.Join(root, "busy.txt")
	w.Requeue(DebouncedEvent{Path: path, Op: OpCreate})

	select {
	case got := <-stub.done:
		assert.Equal(t, path, got)
	case <-time.After(3 * time.Second):
		t.Fatal("event was not retried")
	}

	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)
}

func TestRefresh_IgnoresRemovals(t *testing.T) {
	root := canonicalTempDir(t)
	w := newTestWatcher(t, root, nil)
	stub := &stubIndexer{calls: make(map[string]int), done: make(chan string, 4)}

	err := refreshOne(context.Background(), w, stub, nil, zaptest.NewLogger(t),
		DebouncedEvent{Path: filepath.Join(root, "gone.txt"), Op: OpRemove})
	require.NoError(t, err)
	assert.Empty(t, stub.calls)
}

func TestRefresh_IndexesChanges(t *testing.T) {
	root := canonicalTempDir(t)
	store, err := storage.NewSQLiteStorage(storage.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	idx := indexer.New(store, zaptest.NewLogger(t))
	w := newTestWatcher(t, root, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = Refresh(ctx, w, idx, &indexer.Options{}, zaptest.NewLogger(t)) }()

	target := filepath.Join(root, "data.txt")
	require.NoError(t, os.WriteFile(target, []byte("one\ntwo\n"), 0o644))
	link := filepath.Join(root, "alias.txt")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("Cannot create symlink: %v", err)
	}

	require.Eventually(t, func() bool {
		hard, err := store.GetHardFile(context.Background(), target)
		if err != nil || hard.NumberOfLines != 2 {
			return false
		}
		soft, err := store.GetSoftFile(context.Background(), link)
		return err == nil && soft.HardPath == target
	}, 5*time.Second, 50*time.Millisecond)
}
