package application

import (
	"io"
	"log/slog"
	"strings"
)

const serviceName = "task-manager"

// NewLogger builds the process-wide JSON logger and installs it as the slog
// default so library code logging through slog lands in the same stream.
func NewLogger(w io.Writer, level, build string) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: parseLevel(level)})).
		With(slog.String("service", serviceName), slog.String("build", build))
	slog.SetDefault(logger)
	return logger
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
