package config

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogLevelEnv names the environment variable holding the log level
const LogLevelEnv = "LOG_LEVEL"

// parseLogLevel converts a level name to slog.Level, defaulting to INFO
func parseLogLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// GetLogLevel returns the level from LOG_LEVEL
func GetLogLevel() slog.Level {
	return parseLogLevel(os.Getenv(LogLevelEnv))
}

func newLogger(w io.Writer, json bool, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if json {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// NewLogger creates the server logger. Stdio mode logs text to stderr so stdout
// stays free for MCP messages; HTTP mode logs JSON to stdout.
func NewLogger(isStdioMode bool) *slog.Logger {
	if isStdioMode {
		return newLogger(os.Stderr, false, GetLogLevel())
	}
	return newLogger(os.Stdout, true, GetLogLevel())
}

// NewTextLogger creates a text logger for CLI commands such as plan and fetch
func NewTextLogger(output io.Writer) *slog.Logger {
	return newLogger(output, false, GetLogLevel())
}

// NewTestLogger creates a text logger at the given level; an empty level falls back to LOG_LEVEL
func NewTestLogger(output io.Writer, level string) *slog.Logger {
	if level == "" {
		return NewTextLogger(output)
	}
	return newLogger(output, false, parseLogLevel(level))
}
