package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/pscheid92/webmon/internal/platform/correlation"
)

// Logger is the application-wide structured logger instance.
var Logger *slog.Logger

// InitLogger initializes the global logger with the specified level and format.
// level: "debug", "info", "warn", "error" (defaults to "info")
// format: "json" or "text" (defaults to "text")
// file: when non-empty, records are appended to this path instead of stdout.
// The returned close function releases the file, if any.
func InitLogger(level, format, file string) (func() error, error) {
	out := io.Writer(os.Stdout)
	closeFn := func() error { return nil }

	if file != "" {
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return closeFn, fmt.Errorf("open log file %s: %w", file, err)
		}
		out = f
		closeFn = f.Close
	}

	Logger = slog.New(NewHandler(out, level, format))
	slog.SetDefault(Logger)

	if file != "" {
		Logger.Info("Writing log to file", "path", file)
	}
	return closeFn, nil
}

// NewHandler builds the correlation-aware handler used by InitLogger.
func NewHandler(out io.Writer, level, format string) slog.Handler {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	return correlation.NewHandler(handler)
}

// ParseLevel maps a config string to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
