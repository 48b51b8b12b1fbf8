package watcher

import (
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/dshills/fileindex-mcp/internal/ignore"
	"github.com/dshills/fileindex-mcp/internal/logging"
)

// DefaultInterval is the quiet period before a batch of events is emitted
const DefaultInterval = 200 * time.Millisecond

// Watcher provides recursive file system watching with debouncing.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	debouncer *Debouncer
	matcher   *ignore.Matcher
	rootDir   string
	logger    *zap.Logger
}

// NewWatcher creates a recursive watcher on rootDir, registering every
// directory the matcher does not exclude. Symbolic links to directories are
// not descended into.
func NewWatcher(rootDir string, matcher *ignore.Matcher, interval time.Duration, logger *zap.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if interval <= 0 {
		interval = DefaultInterval
	}

	w := &Watcher{
		fsWatcher: fsWatcher,
		debouncer: NewDebouncer(interval),
		matcher:   matcher,
		rootDir:   rootDir,
		logger:    logging.OrNop(logger),
	}

	if err := w.addTree(rootDir); err != nil {
		_ = fsWatcher.Close()
		return nil, err
	}

	return w, nil
}

// addTree watches dir and every non-excluded directory below it
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Skip entries that can't be read
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.rootDir && w.matcher.Match(path, true) {
			return filepath.SkipDir
		}
		if watchErr := w.fsWatcher.Add(path); watchErr != nil {
			w.logger.Warn("failed to watch directory", zap.String("path", path), zap.Error(watchErr))
		}
		return nil
	})
}

// RootDir returns the watched root.
func (w *Watcher) RootDir() string {
	return w.rootDir
}

// Events returns the channel that receives debounced file system events.
func (w *Watcher) Events() <-chan []DebouncedEvent {
	return w.debouncer.Output()
}

// Requeue puts an event back into the debounce window.
func (w *Watcher) Requeue(event DebouncedEvent) {
	w.debouncer.Add(event.Path, event.Op)
}

// Start begins listening for file system events. Call this in a goroutine.
// It runs until the watcher is closed.
func (w *Watcher) Start() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

// handleEvent converts a single fsnotify event into a debounced event
func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name

	// A new directory is watched, and also reported so files created before
	// the watch was added get indexed
	if event.Has(fsnotify.Create) {
		info, err := os.Lstat(path)
		if err == nil && info.IsDir() {
			if w.matcher.Match(path, true) {
				return
			}
			if err := w.addTree(path); err != nil {
				w.logger.Warn("failed to watch new directory", zap.String("path", path), zap.Error(err))
			}
		}
	}

	if !w.matcher.IsIgnoreFile(path) && w.matcher.Match(path, false) {
		return
	}

	var op EventOp
	switch {
	case event.Has(fsnotify.Create):
		op = OpCreate
	case event.Has(fsnotify.Write):
		op = OpWrite
	case event.Has(fsnotify.Remove):
		op = OpRemove
	case event.Has(fsnotify.Rename):
		op = OpRename
	default:
		return
	}

	w.debouncer.Add(path, op)
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	err := w.fsWatcher.Close()
	w.debouncer.Stop()
	return err
}
