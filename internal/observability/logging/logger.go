package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewJSONLogger builds the process-wide structured logger writing to
// stdout. Level is a case-insensitive string from configuration.
func NewJSONLogger(level string) *slog.Logger {
	return NewJSONLoggerTo(os.Stdout, level)
}

// NewJSONLoggerTo writes to an explicit sink. The MCP entrypoint uses
// stderr because stdout carries the protocol stream.
func NewJSONLoggerTo(w io.Writer, level string) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
