package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config contains logging configuration.
type Config struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string
	// FilePath is the path to the log file. Empty means no file logging.
	FilePath string
	// MaxSizeMB is the maximum size in MB before rotation.
	MaxSizeMB int
	// MaxFiles is the maximum number of rotated files to keep.
	MaxFiles int
	// WriteToStderr also writes to stderr.
	WriteToStderr bool
}

// DefaultConfig logs warnings and errors to stderr only.
func DefaultConfig() Config {
	return Config{
		Level:         "warn",
		MaxSizeMB:     10,
		MaxFiles:      5,
		WriteToStderr: true,
	}
}

// DebugConfig returns configuration for --debug: debug level, file + stderr.
func DebugConfig() Config {
	cfg := DefaultConfig()
	cfg.Level = "debug"
	cfg.FilePath = DefaultLogPath()
	return cfg
}

// StdioSafeConfig returns configuration for MCP stdio serving: file only.
func StdioSafeConfig(level string) Config {
	cfg := DefaultConfig()
	cfg.Level = level
	cfg.FilePath = DefaultLogPath()
	cfg.WriteToStderr = false
	return cfg
}

// Setup builds a JSON slog logger from cfg and returns it with a cleanup
// function that flushes and closes the log file.
func Setup(cfg Config) (*slog.Logger, func(), error) {
	var writers []io.Writer
	cleanup := func() {}

	if cfg.FilePath != "" {
		writer, err := NewRotatingWriter(cfg.FilePath, cfg.MaxSizeMB, cfg.MaxFiles)
		if err != nil {
			return nil, nil, err
		}
		writers = append(writers, writer)
		cleanup = func() {
			_ = writer.Sync()
			_ = writer.Close()
		}
	}
	if cfg.WriteToStderr {
		writers = append(writers, os.Stderr)
	}

	var output io.Writer
	switch len(writers) {
	case 0:
		output = io.Discard
	case 1:
		output = writers[0]
	default:
		output = io.MultiWriter(writers...)
	}

	handler := slog.NewJSONHandler(output, &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	})

	return slog.New(handler), cleanup, nil
}

// SetupDefault installs a logger built from cfg as the slog default.
func SetupDefault(cfg Config) (func(), error) {
	logger, cleanup, err := Setup(cfg)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return cleanup, nil
}

// parseLevel converts string level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LevelFromString converts string level to slog.Level.
func LevelFromString(level string) slog.Level {
	return parseLevel(level)
}
