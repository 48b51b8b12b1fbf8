package main

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/fileindex-mcp/internal/config"
	"github.com/dshills/fileindex-mcp/internal/indexer"
	"github.com/dshills/fileindex-mcp/internal/mcp"
	"github.com/dshills/fileindex-mcp/internal/metrics"
	"github.com/dshills/fileindex-mcp/internal/storage"
	"github.com/dshills/fileindex-mcp/internal/watcher"
)

// indexFlags are the per-run overrides for index and watch
type indexFlags struct {
	exclude        []string
	gitignore      bool
	followExternal bool
}

func (f *indexFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.exclude, "exclude", nil, "Glob patterns to exclude (repeatable, comma-separated)")
	cmd.Flags().BoolVar(&f.gitignore, "gitignore", false, "Honor the root .gitignore")
	cmd.Flags().BoolVar(&f.followExternal, "follow-external", false, "Record links whose target lies outside the root")
}

// options applies the flags over cfg and builds the run options for root
func (f *indexFlags) options(cmd *cobra.Command, cfg *config.Config, root string, wipe bool) (*indexer.Options, error) {
	cfg.Exclude = append(cfg.Exclude, f.exclude...)
	if cmd.Flags().Changed("gitignore") {
		cfg.Gitignore = f.gitignore
	}
	if cmd.Flags().Changed("follow-external") {
		cfg.FollowExternal = f.followExternal
	}
	return indexer.NewOptions(cfg, root, wipe)
}

func newIndexCmd(flags *globalFlags) *cobra.Command {
	var (
		runFlags      indexFlags
		wipe          bool
		skipUnchanged bool
	)

	cmd := &cobra.Command{
		Use:   "index <root>",
		Short: "Index a directory tree",
		Long: `Index walks root and records its regular files and symbolic links.

With --wipe every existing row is deleted first. Without it the run is
incremental: rows for paths that no longer exist are left in place.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(flags)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			opts, err := runFlags.options(cmd, cfg, args[0], wipe)
			if err != nil {
				return err
			}
			opts.SkipUnchanged = skipUnchanged

			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			stats, err := indexer.New(store, logger).IndexTree(cmd.Context(), args[0], opts)
			if stats != nil {
				printStatistics(cmd, stats)
			}
			return err
		},
	}

	runFlags.register(cmd)
	cmd.Flags().BoolVar(&wipe, "wipe", false, "Delete all rows before indexing")
	cmd.Flags().BoolVar(&skipUnchanged, "skip-unchanged", false, "Keep rows whose size and modification time are unchanged")

	return cmd
}

func printStatistics(cmd *cobra.Command, stats *indexer.Statistics) {
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Indexed %s in %s\n", stats.Root, stats.Duration.Round(time.Millisecond))
	_, _ = fmt.Fprintf(out, "  hard files: %d\n", stats.HardFiles)
	_, _ = fmt.Fprintf(out, "  soft files: %d\n", stats.SoftFiles)
	_, _ = fmt.Fprintf(out, "  unchanged:  %d\n", stats.Unchanged)
	_, _ = fmt.Fprintf(out, "  skipped:    %d\n", stats.Skipped)
	_, _ = fmt.Fprintf(out, "  failures:   %d\n", len(stats.Failures))
	for _, f := range stats.Failures {
		_, _ = fmt.Fprintf(out, "    %s\n", f.Error())
	}
}

func newServeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the index over MCP on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup(flags)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			logger.Info("starting MCP server",
				zap.String("version", version),
				zap.String("build_mode", storage.BuildMode),
				zap.String("driver", storage.DriverName))

			srv, err := mcp.NewServer(cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to create MCP server: %w", err)
			}

			if cfg.MetricsAddr != "" {
				metricsSrv := startMetrics(cfg.MetricsAddr, logger)
				defer func() { _ = metricsSrv.Close() }()
			}

			ctx := cmd.Context()
			errChan := make(chan error, 1)
			go func() {
				errChan <- srv.Serve(ctx)
			}()

			select {
			case <-ctx.Done():
				logger.Info("shutting down")
				return nil
			case err := <-errChan:
				return err
			}
		},
	}
}

// startMetrics serves the Prometheus handler until the returned server is closed
func startMetrics(addr string, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("metrics endpoint listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics endpoint failed", zap.Error(err))
		}
	}()

	return srv
}

func newWatchCmd(flags *globalFlags) *cobra.Command {
	var (
		runFlags indexFlags
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch <root>",
		Short: "Index a directory tree and keep it current",
		Long: `Watch runs an incremental index of root, then re-indexes paths as they
are created, written or renamed. Removed paths keep their rows.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(flags)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			opts, err := runFlags.options(cmd, cfg, args[0], false)
			if err != nil {
				return err
			}

			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			idx := indexer.New(store, logger)
			stats, err := idx.IndexTree(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}
			printStatistics(cmd, stats)

			w, err := watcher.NewWatcher(stats.Root, opts.Matcher, interval, logger)
			if err != nil {
				return fmt.Errorf("failed to start watcher: %w", err)
			}
			defer func() { _ = w.Close() }()
			go w.Start()

			logger.Info("watching", zap.String("root", stats.Root))
			err = watcher.Refresh(cmd.Context(), w, idx, opts, logger)
			if errors.Is(err, cmd.Context().Err()) {
				return nil
			}
			return err
		},
	}

	runFlags.register(cmd)
	cmd.Flags().DurationVar(&interval, "interval", watcher.DefaultInterval, "Quiet period before a batch of changes is indexed")

	return cmd
}

func newQueryCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query indexed files by SQL LIKE pattern",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "hard <pattern>",
		Short: "List hard files whose path matches pattern",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(flags, func(store storage.Storage) error {
				files, err := store.QueryHardFiles(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, f := range files {
					_, _ = fmt.Fprintf(out, "%s\t%d\tbinary=%t\tlines=%d\tprocessed=%t\n",
						f.Path, f.Size, f.IsBinary, f.NumberOfLines, f.Processed)
				}
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "soft <pattern>",
		Short: "List soft files whose path matches pattern",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(flags, func(store storage.Storage) error {
				files, err := store.QuerySoftFiles(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, f := range files {
					_, _ = fmt.Fprintf(out, "%s -> %s\n", f.Path, f.HardPath)
				}
				return nil
			})
		},
	})

	return cmd
}

func newMarkCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "mark <path>",
		Short: "Mark a hard file as processed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			return withStore(flags, func(store storage.Storage) error {
				err := store.MarkProcessed(cmd.Context(), path)
				if errors.Is(err, storage.ErrNotFound) {
					return fmt.Errorf("%s is not indexed", path)
				}
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "marked %s\n", path)
				return nil
			})
		},
	}
}

// withStore opens the configured index for the duration of fn
func withStore(flags *globalFlags, fn func(storage.Storage) error) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	return fn(store)
}
