// Package config loads settings from the environment and an optional .env file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/dshills/fileindex-mcp/internal/logging"
)

const (
	// DefaultDBPath is the default index location, relative to the home directory
	DefaultDBPath = "~/.fileindex/index.db"

	// DefaultBatchSize is the default number of rows per transaction
	DefaultBatchSize = 100
)

// Config holds the resolved settings
type Config struct {
	DBPath         string
	Workers        int
	BatchSize      int
	FollowExternal bool
	Exclude        []string
	Gitignore      bool
	MetricsAddr    string // Empty disables the metrics endpoint
	Log            logging.Config
}

// Load reads .env (if present) and then the FILEINDEX_* variables.
// Variables already set in the environment win over .env.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from the current environment
func FromEnv() (*Config, error) {
	workers, err := intEnv("FILEINDEX_WORKERS", runtime.NumCPU())
	if err != nil {
		return nil, err
	}
	batchSize, err := intEnv("FILEINDEX_BATCH_SIZE", DefaultBatchSize)
	if err != nil {
		return nil, err
	}
	followExternal, err := boolEnv("FILEINDEX_FOLLOW_EXTERNAL", false)
	if err != nil {
		return nil, err
	}
	useGitignore, err := boolEnv("FILEINDEX_GITIGNORE", false)
	if err != nil {
		return nil, err
	}
	dbPath, err := ExpandHome(firstNonEmpty(env("FILEINDEX_DB_PATH"), DefaultDBPath))
	if err != nil {
		return nil, err
	}

	return &Config{
		DBPath:         dbPath,
		Workers:        workers,
		BatchSize:      batchSize,
		FollowExternal: followExternal,
		Exclude:        SplitList(env("FILEINDEX_EXCLUDE")),
		Gitignore:      useGitignore,
		MetricsAddr:    env("FILEINDEX_METRICS_ADDR"),
		Log: logging.Config{
			Level:      firstNonEmpty(env("FILEINDEX_LOG_LEVEL"), "info"),
			Format:     firstNonEmpty(env("FILEINDEX_LOG_FORMAT"), "json"),
			OutputPath: firstNonEmpty(env("FILEINDEX_LOG_FILE"), "stderr"),
		},
	}, nil
}

// ExpandHome replaces a leading ~ with the user's home directory
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// SplitList splits a comma-separated list, dropping empty items
func SplitList(raw string) []string {
	items := make([]string, 0)
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func intEnv(key string, fallback int) (int, error) {
	raw := env(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, raw)
	}
	return n, nil
}

func boolEnv(key string, fallback bool) (bool, error) {
	raw := env(key)
	if raw == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean, got %q", key, raw)
	}
	return b, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
