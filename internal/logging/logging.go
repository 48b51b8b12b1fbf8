// Package logging builds the zap logger used across the indexer.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds logging configuration.
type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json, console
	OutputPath string // stderr, stdout, or file path
}

// New builds a logger. Output defaults to stderr since stdout carries the
// MCP stdio transport.
func New(cfg Config) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var config zap.Config
	if cfg.Format == "console" {
		config = zap.NewDevelopmentConfig()
	} else {
		config = zap.NewProductionConfig()
	}

	config.Level = zap.NewAtomicLevelAt(level)
	output := cfg.OutputPath
	if output == "" {
		output = "stderr"
	}
	config.OutputPaths = []string{output}
	config.ErrorOutputPaths = []string{"stderr"}

	return config.Build(zap.AddStacktrace(zapcore.ErrorLevel))
}

// OrNop returns logger, or a no-op logger when it is nil.
func OrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
