package watcher

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/dshills/fileindex-mcp/internal/indexer"
	"github.com/dshills/fileindex-mcp/internal/logging"
	"github.com/dshills/fileindex-mcp/pkg/types"
)

// PathIndexer re-indexes a single path under a root
type PathIndexer interface {
	IndexPath(ctx context.Context, root, path string, opts *indexer.Options) (*indexer.Statistics, error)
}

// Refresh applies debounced events to the index until ctx is done or the
// watcher is closed. Removed paths keep their rows, as in any incremental
// run. Events that arrive during another run are requeued.
func Refresh(ctx context.Context, w *Watcher, idx PathIndexer, opts *indexer.Options, logger *zap.Logger) error {
	logger = logging.OrNop(logger)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case batch, ok := <-w.Events():
			if !ok {
				return nil
			}
			for _, event := range batch {
				if err := refreshOne(ctx, w, idx, opts, logger, event); err != nil {
					return err
				}
			}
		}
	}
}

func refreshOne(ctx context.Context, w *Watcher, idx PathIndexer, opts *indexer.Options, logger *zap.Logger, event DebouncedEvent) error {
	if opts != nil && opts.Matcher.IsIgnoreFile(event.Path) {
		opts.Matcher.Reload()
		logger.Info("reloaded ignore rules", zap.String("path", event.Path))
		return nil
	}

	if event.Op == OpRemove {
		logger.Debug("path removed, keeping stale rows", zap.String("path", event.Path))
		return nil
	}

	stats, err := idx.IndexPath(ctx, w.RootDir(), event.Path, opts)
	switch {
	case errors.Is(err, types.ErrIndexingInProgress):
		w.Requeue(event)
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, types.ErrStoreIO), errors.Is(err, types.ErrConstraintViolation):
		logger.Error("refresh failed", zap.String("path", event.Path), zap.Error(err))
		return err
	case err != nil:
		logger.Warn("refresh skipped", zap.String("path", event.Path), zap.Error(err))
		return nil
	}

	for _, f := range stats.Failures {
		logger.Warn("entry failed", zap.String("path", f.Path), zap.Error(f.Err))
	}
	logger.Debug("refreshed",
		zap.String("path", event.Path),
		zap.String("op", event.Op.String()),
		zap.Int("hard_files", stats.HardFiles),
		zap.Int("soft_files", stats.SoftFiles))
	return nil
}
