package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/fileindex-mcp/internal/config"
	"github.com/dshills/fileindex-mcp/internal/logging"
	"github.com/dshills/fileindex-mcp/internal/storage"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand and override the environment
type globalFlags struct {
	dbPath   string
	logLevel string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "fileindex",
		Short: "Index a directory tree of files and symbolic links into SQLite",
		Long: `fileindex walks a directory tree and records every regular file (size,
binary or text, line count, processed flag) and every symbolic link with the
file it resolves to. Downstream tools read the index or serve it over MCP.

Settings come from FILEINDEX_* variables or a .env file; flags win.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"fileindex {{.Version}}\nBuild Time: %s\nBuild Mode: %s\nSQLite Driver: %s\n",
		buildTime, storage.BuildMode, storage.DriverName))

	rootCmd.PersistentFlags().StringVar(&flags.dbPath, "db", "", "Index database path (default $FILEINDEX_DB_PATH or "+config.DefaultDBPath+")")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level: debug|info|warn|error")

	rootCmd.AddCommand(
		newIndexCmd(flags),
		newServeCmd(flags),
		newWatchCmd(flags),
		newQueryCmd(flags),
		newMarkCmd(flags),
	)

	return rootCmd
}

// loadConfig resolves the configuration and applies the global flags
func loadConfig(flags *globalFlags) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if flags.dbPath != "" {
		dbPath, err := config.ExpandHome(flags.dbPath)
		if err != nil {
			return nil, err
		}
		cfg.DBPath = dbPath
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	return cfg, nil
}

// setup loads the configuration and builds the logger. Logs go to stderr so
// stdout stays free for command output and the MCP protocol.
func setup(flags *globalFlags) (*config.Config, *zap.Logger, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, logger, nil
}

// openStore opens the index database named by the configuration
func openStore(cfg *config.Config) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open index %s: %w", cfg.DBPath, err)
	}
	return store, nil
}
