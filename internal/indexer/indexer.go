package indexer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/fileindex-mcp/internal/classifier"
	"github.com/dshills/fileindex-mcp/internal/ignore"
	"github.com/dshills/fileindex-mcp/internal/logging"
	"github.com/dshills/fileindex-mcp/internal/metrics"
	"github.com/dshills/fileindex-mcp/internal/storage"
	"github.com/dshills/fileindex-mcp/internal/symlink"
	"github.com/dshills/fileindex-mcp/pkg/types"
)

const (
	// DefaultBatchSize is the number of rows committed per transaction
	DefaultBatchSize = 100

	// knownCacheSize bounds the cache of hard paths known to be stored
	knownCacheSize = 4096
)

// Indexer walks a directory tree and writes hard and soft file rows: walk ->
// classify -> store hard files -> resolve links -> store soft files
type Indexer struct {
	storage    storage.Storage
	classifier *classifier.Classifier
	logger     *zap.Logger
	lock       IndexLock

	// Hard file paths committed to the store. Rows are only removed by a
	// wipe, which purges the cache.
	known *lru.Cache[string, struct{}]
}

// Options controls one indexing run
type Options struct {
	Wipe           bool            // Delete all rows before walking
	Workers        int             // Concurrent classifiers (default: runtime.NumCPU())
	BatchSize      int             // Rows per transaction (default: 100)
	FollowExternal bool            // Record links whose target lies outside the root
	SkipUnchanged  bool            // Incremental runs keep rows whose size and mod time match
	Matcher        *ignore.Matcher // Excluded paths are neither walked nor recorded
}

// Failure is a per-entry error that was recovered by skipping the entry
type Failure struct {
	Path string
	Err  error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Path, f.Err)
}

func (f Failure) Unwrap() error {
	return f.Err
}

// Statistics contains statistics about one indexing run
type Statistics struct {
	RunID     string // Empty for single-path refreshes
	Root      string // Canonical root
	HardFiles int    // Hard file rows written
	SoftFiles int    // Soft file rows written
	Unchanged int    // Hard files left as stored
	Skipped   int    // Entries skipped by policy (excluded, non-file targets, out of root)
	Failures  []Failure
	Duration  time.Duration
}

// New creates a new Indexer. A nil logger disables logging.
func New(store storage.Storage, logger *zap.Logger) *Indexer {
	known, _ := lru.New[string, struct{}](knownCacheSize)
	return &Indexer{
		storage:    store,
		classifier: classifier.New(),
		logger:     logging.OrNop(logger),
		known:      known,
	}
}

// run holds the state of one walk
type run struct {
	root  string
	opts  Options
	stats *Statistics
}

func (r *run) fail(path string, err error) {
	r.stats.Failures = append(r.stats.Failures, Failure{Path: path, Err: err})
	metrics.RecordFailure(errorKind(err))
}

// IndexTree indexes every entry under root. Per-entry errors are collected
// in the returned statistics; store errors and cancellation abort the run.
func (idx *Indexer) IndexTree(ctx context.Context, root string, opts *Options) (*Statistics, error) {
	if !idx.lock.TryAcquire() {
		return nil, types.ErrIndexingInProgress
	}
	defer idx.lock.Release()

	canonical, err := CanonicalRoot(root)
	if err != nil {
		return nil, err
	}

	r := newRun(canonical, opts)
	start := time.Now()

	record := &storage.IndexRun{RootPath: canonical, Wipe: r.opts.Wipe, StartedAt: start}
	if err := idx.storage.CreateRun(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to record run: %w", err)
	}
	r.stats.RunID = record.ID

	idx.logger.Info("index run started",
		zap.String("run_id", record.ID),
		zap.String("root", canonical),
		zap.Bool("wipe", r.opts.Wipe))

	err = idx.execute(ctx, r, canonical)
	r.stats.Duration = time.Since(start)
	metrics.RecordRun(r.opts.Wipe, err == nil, r.stats.Duration)

	record.HardFiles = r.stats.HardFiles
	record.SoftFiles = r.stats.SoftFiles
	record.Skipped = r.stats.Skipped + r.stats.Unchanged
	record.Failures = len(r.stats.Failures)
	if err != nil {
		// The run stays unfinished; committed rows remain valid
		idx.logger.Error("index run aborted", zap.String("run_id", record.ID), zap.Error(err))
		return r.stats, err
	}
	if err := idx.storage.FinishRun(ctx, record); err != nil {
		return r.stats, fmt.Errorf("failed to finish run: %w", err)
	}

	idx.logger.Info("index run finished",
		zap.String("run_id", record.ID),
		zap.Int("hard_files", r.stats.HardFiles),
		zap.Int("soft_files", r.stats.SoftFiles),
		zap.Int("unchanged", r.stats.Unchanged),
		zap.Int("skipped", r.stats.Skipped),
		zap.Int("failures", len(r.stats.Failures)),
		zap.Duration("duration", r.stats.Duration))

	return r.stats, nil
}

// IndexPath refreshes a single path under root without wiping. A directory
// is walked like a root. A path that no longer exists is left as stored.
func (idx *Indexer) IndexPath(ctx context.Context, root, path string, opts *Options) (*Statistics, error) {
	if !idx.lock.TryAcquire() {
		return nil, types.ErrIndexingInProgress
	}
	defer idx.lock.Release()

	canonical, err := CanonicalRoot(root)
	if err != nil {
		return nil, err
	}

	var o Options
	if opts != nil {
		o = *opts
	}
	o.Wipe = false
	r := newRun(canonical, &o)
	start := time.Now()

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	// Watch events carry paths below the root as given, not canonicalised
	absPath = rebase(root, canonical, absPath)
	if !symlink.Within(canonical, absPath) {
		return nil, fmt.Errorf("%s is outside %s", absPath, canonical)
	}

	if _, err := os.Lstat(absPath); errors.Is(err, fs.ErrNotExist) {
		r.stats.Duration = time.Since(start)
		return r.stats, nil
	}

	err = idx.execute(ctx, r, absPath)
	r.stats.Duration = time.Since(start)
	return r.stats, err
}

func newRun(root string, opts *Options) *run {
	var o Options
	if opts != nil {
		o = *opts
	}
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	return &run{
		root:  root,
		opts:  o,
		stats: &Statistics{Root: root, Failures: make([]Failure, 0)},
	}
}

// execute runs the phases. All hard file rows from the walk are committed
// before any soft file row is written.
func (idx *Indexer) execute(ctx context.Context, r *run, start string) error {
	if r.opts.Wipe {
		if err := idx.storage.Wipe(ctx); err != nil {
			return err
		}
		idx.known.Purge()
	}

	files, links, err := idx.discover(ctx, r, start)
	if err != nil {
		return err
	}

	hardFiles, err := idx.classifyFiles(ctx, r, files)
	if err != nil {
		return err
	}

	if err := idx.storeHardFiles(ctx, r, hardFiles); err != nil {
		return err
	}

	return idx.storeLinks(ctx, r, links)
}

// CanonicalRoot makes root absolute with every symbolic link resolved, and
// checks it is a directory
func CanonicalRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("%s %w", root, types.ErrInvalidRoot)
	}
	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("%s %w", root, types.ErrInvalidRoot)
	}
	info, err := os.Stat(canonical)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%s %w", root, types.ErrInvalidRoot)
	}
	return canonical, nil
}

// rebase maps path from under root to under canonical when root itself
// went through a symbolic link
func rebase(root, canonical, path string) string {
	absRoot, err := filepath.Abs(root)
	if err != nil || absRoot == canonical {
		return path
	}
	rel, err := filepath.Rel(absRoot, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return filepath.Join(canonical, rel)
}

// discover walks start without following symbolic links and splits the
// entries into regular files and links
func (idx *Indexer) discover(ctx context.Context, r *run, start string) ([]string, []string, error) {
	var files, links []string

	err := filepath.WalkDir(start, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			r.fail(path, fmt.Errorf("%w: %v", types.ErrUnreadableEntry, err))
			idx.logger.Warn("unreadable entry", zap.String("path", path), zap.Error(err))
			if d != nil && d.IsDir() && path != start {
				return filepath.SkipDir
			}
			return nil
		}

		kind := types.KindOf(d.Type())
		if path != r.root && r.opts.Matcher.Match(path, kind == types.KindDirectory) {
			r.stats.Skipped++
			metrics.RecordEntry(kind.String(), metrics.OutcomeSkipped)
			idx.logger.Debug("excluded", zap.String("path", path))
			if kind == types.KindDirectory {
				return filepath.SkipDir
			}
			return nil
		}

		switch kind {
		case types.KindDirectory:
			// Traversal only
		case types.KindRegularFile:
			files = append(files, path)
		case types.KindSymbolicLink:
			links = append(links, path)
		default:
			r.stats.Skipped++
			metrics.RecordEntry(kind.String(), metrics.OutcomeSkipped)
			idx.logger.Debug("skipping special file", zap.String("path", path))
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return files, links, nil
}

// classifyFiles classifies regular files concurrently. The result keeps
// walk order; nil marks a failed or unchanged file.
func (idx *Indexer) classifyFiles(ctx context.Context, r *run, files []string) ([]*storage.HardFile, error) {
	results := make([]*storage.HardFile, len(files))
	errs := make([]error, len(files))
	unchanged := make([]bool, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)

	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if r.opts.SkipUnchanged && !r.opts.Wipe {
				same, err := idx.isUnchanged(gctx, path)
				if err != nil {
					return err
				}
				if same {
					unchanged[i] = true
					return nil
				}
			}
			file, err := idx.classify(path)
			if err != nil {
				errs[i] = err
				return nil
			}
			results[i] = file
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, path := range files {
		switch {
		case unchanged[i]:
			r.stats.Unchanged++
			metrics.RecordEntry(types.KindRegularFile.String(), metrics.OutcomeSkipped)
		case errs[i] != nil:
			r.fail(path, errs[i])
			metrics.RecordEntry(types.KindRegularFile.String(), metrics.OutcomeFailed)
			idx.logger.Warn("failed to classify file", zap.String("path", path), zap.Error(errs[i]))
		}
	}
	return results, nil
}

// isUnchanged compares the file on disk with its stored row
func (idx *Indexer) isUnchanged(ctx context.Context, path string) (bool, error) {
	info, err := os.Lstat(path)
	if err != nil {
		// Let classification report it
		return false, nil
	}
	stored, err := idx.storage.GetHardFile(ctx, path)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return stored.Size == info.Size() && stored.ModTime.Equal(info.ModTime()), nil
}

// classify builds a fresh hard file row; processed is always false
func (idx *Indexer) classify(path string) (*storage.HardFile, error) {
	result, err := idx.classifier.Classify(path)
	if err != nil {
		return nil, err
	}
	metrics.RecordBytes(result.Size)
	return &storage.HardFile{
		Path:          path,
		Size:          result.Size,
		IsBinary:      result.IsBinary,
		NumberOfLines: result.NumberOfLines,
		ModTime:       result.ModTime,
	}, nil
}

// storeHardFiles writes hard file rows in batched transactions
func (idx *Indexer) storeHardFiles(ctx context.Context, r *run, files []*storage.HardFile) error {
	batch := make([]*storage.HardFile, 0, r.opts.BatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		start := time.Now()
		if err := idx.writeBatch(ctx, batch); err != nil {
			return err
		}
		metrics.RecordStoreBatch(time.Since(start))
		for _, f := range batch {
			idx.known.Add(f.Path, struct{}{})
			metrics.RecordEntry(types.KindRegularFile.String(), metrics.OutcomeIndexed)
		}
		r.stats.HardFiles += len(batch)
		batch = batch[:0]
		return nil
	}

	for _, f := range files {
		if f == nil {
			continue
		}
		batch = append(batch, f)
		if len(batch) >= r.opts.BatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}

// writeBatch upserts one batch within a transaction
func (idx *Indexer) writeBatch(ctx context.Context, files []*storage.HardFile) error {
	tx, err := idx.storage.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, f := range files {
		if err := tx.UpsertHardFile(ctx, f); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// linkBatch accumulates one transaction's worth of link writes
type linkBatch struct {
	tx      storage.Tx
	written []string // hard paths written in tx
	hard    int
	soft    int
}

// storeLinks resolves links and writes soft file rows in batched
// transactions, ensuring each target's hard file row exists first
func (idx *Indexer) storeLinks(ctx context.Context, r *run, links []string) error {
	for start := 0; start < len(links); start += r.opts.BatchSize {
		end := min(start+r.opts.BatchSize, len(links))
		if err := idx.storeLinkBatch(ctx, r, links[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (idx *Indexer) storeLinkBatch(ctx context.Context, r *run, links []string) error {
	tx, err := idx.storage.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	b := &linkBatch{tx: tx}
	for _, link := range links {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := idx.storeLink(ctx, r, b, link); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	for _, p := range b.written {
		idx.known.Add(p, struct{}{})
	}
	r.stats.HardFiles += b.hard
	r.stats.SoftFiles += b.soft
	return nil
}

// storeLink handles one symbolic link. Only store errors are returned.
func (idx *Indexer) storeLink(ctx context.Context, r *run, b *linkBatch, link string) error {
	kind := types.KindSymbolicLink.String()

	target, err := symlink.Resolve(link)
	if err != nil {
		r.fail(link, err)
		metrics.RecordEntry(kind, metrics.OutcomeFailed)
		idx.logger.Warn("failed to resolve link", zap.String("path", link), zap.Error(err))
		return nil
	}

	info, err := os.Lstat(target)
	if err != nil {
		err = fmt.Errorf("%w: %s: %v", types.ErrBrokenLink, link, err)
		r.fail(link, err)
		metrics.RecordEntry(kind, metrics.OutcomeFailed)
		idx.logger.Warn("link target vanished", zap.String("path", link), zap.Error(err))
		return nil
	}

	skip := func(reason string) error {
		r.stats.Skipped++
		metrics.RecordEntry(kind, metrics.OutcomeSkipped)
		idx.logger.Debug("skipping link",
			zap.String("path", link),
			zap.String("target", target),
			zap.String("reason", reason))
		return nil
	}

	targetKind := types.KindOf(info.Mode())
	switch {
	case targetKind == types.KindDirectory:
		return skip("directory target")
	case targetKind != types.KindRegularFile:
		return skip("non-regular target")
	}

	inRoot := symlink.Within(r.root, target)
	if !inRoot && !r.opts.FollowExternal {
		return skip("target outside root")
	}
	if inRoot && r.opts.Matcher.MatchPath(target) {
		return skip("target excluded")
	}

	if err := idx.ensureHardFile(ctx, r, b, target, false); err != nil {
		if isStoreError(err) {
			return err
		}
		r.fail(link, err)
		metrics.RecordEntry(kind, metrics.OutcomeFailed)
		idx.logger.Warn("failed to index link target",
			zap.String("path", link), zap.String("target", target), zap.Error(err))
		return nil
	}

	soft := &storage.SoftFile{Path: link, HardPath: target}
	err = b.tx.UpsertSoftFile(ctx, soft)
	if errors.Is(err, types.ErrConstraintViolation) {
		// The cache was wrong about the target; write it and retry once
		idx.logger.Warn("soft file target missing, writing it first",
			zap.String("path", link), zap.String("target", target))
		idx.known.Remove(target)
		if err := idx.ensureHardFile(ctx, r, b, target, true); err != nil {
			if isStoreError(err) {
				return err
			}
			r.fail(link, err)
			metrics.RecordEntry(kind, metrics.OutcomeFailed)
			return nil
		}
		err = b.tx.UpsertSoftFile(ctx, soft)
	}
	if err != nil {
		return err
	}

	b.soft++
	metrics.RecordEntry(kind, metrics.OutcomeIndexed)
	return nil
}

// ensureHardFile makes sure target has a hard file row visible in the
// batch transaction, classifying it when needed
func (idx *Indexer) ensureHardFile(ctx context.Context, r *run, b *linkBatch, target string, force bool) error {
	if !force {
		if _, ok := idx.known.Get(target); ok {
			return nil
		}
		exists, err := b.tx.HardFileExists(ctx, target)
		if err != nil {
			return err
		}
		if exists {
			idx.known.Add(target, struct{}{})
			return nil
		}
	}

	file, err := idx.classify(target)
	if err != nil {
		return err
	}
	if err := b.tx.UpsertHardFile(ctx, file); err != nil {
		return err
	}
	b.written = append(b.written, target)
	b.hard++
	metrics.RecordEntry(types.KindRegularFile.String(), metrics.OutcomeIndexed)
	idx.logger.Debug("indexed link target", zap.String("path", target))
	return nil
}

// isStoreError reports errors that abort the run
func isStoreError(err error) bool {
	return errors.Is(err, types.ErrStoreIO) ||
		errors.Is(err, types.ErrConstraintViolation) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// errorKind labels an error for metrics
func errorKind(err error) string {
	switch {
	case errors.Is(err, types.ErrLinkCycle):
		return "link_cycle"
	case errors.Is(err, types.ErrBrokenLink):
		return "broken_link"
	case errors.Is(err, types.ErrUnreadableEntry):
		return "unreadable_entry"
	case errors.Is(err, types.ErrConstraintViolation):
		return "constraint_violation"
	case errors.Is(err, types.ErrStoreIO):
		return "store_io"
	default:
		return "other"
	}
}

// Running reports whether a run is in progress
func (idx *Indexer) Running() bool {
	return idx.lock.Held()
}
