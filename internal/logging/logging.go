// Package logging builds zap loggers for tidyup commands.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds logging configuration.
type Config struct {
	Level       string   // debug, info, warn, error
	Format      string   // json, console
	OutputPaths []string // stdout, stderr, or file paths
}

// New builds a logger. An unknown level falls back to info and an empty
// output list writes to stderr.
func New(cfg Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var config zap.Config
	if cfg.Format == "json" {
		config = zap.NewProductionConfig()
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		config = zap.NewDevelopmentConfig()
		config.Development = false
	}
	config.Level = zap.NewAtomicLevelAt(level)
	config.OutputPaths = []string{"stderr"}
	if len(cfg.OutputPaths) > 0 {
		config.OutputPaths = cfg.OutputPaths
	}
	config.ErrorOutputPaths = []string{"stderr"}

	return config.Build(zap.AddStacktrace(zapcore.ErrorLevel))
}

// FileName returns the per-invocation log file name for t.
func FileName(t time.Time) string {
	return "organizer_" + t.Format("20060102_150405") + ".log"
}

// ForCommand builds the logger used by one CLI invocation: a fresh file
// under logDir, plus stderr at debug level when debug is set.
func ForCommand(logDir, level, format string, debug bool, now time.Time) (*zap.Logger, string, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, "", fmt.Errorf("failed to create log directory: %w", err)
	}
	path := filepath.Join(logDir, FileName(now))

	outputs := []string{path}
	if debug {
		level = "debug"
		outputs = append(outputs, "stderr")
	}
	logger, err := New(Config{Level: level, Format: format, OutputPaths: outputs})
	if err != nil {
		return nil, "", err
	}
	return logger, path, nil
}
