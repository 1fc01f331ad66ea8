package internal

import (
	"io"
	"log/slog"
)

// NewLogger builds the process-wide logger. Production emits JSON for log
// aggregation; everything else emits text for readability. Every record
// carries the service name and environment so mixed log streams stay
// attributable.
func NewLogger(w io.Writer, env, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(level)}

	var h slog.Handler
	if env == "prod" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}

	return slog.New(h).With(
		slog.String("service", "noir"),
		slog.String("env", env),
	)
}

// parseLogLevel maps the LOG_LEVEL config value onto a slog level. Unknown
// values fall back to info; Config has already warned about them.
func parseLogLevel(level string) slog.Level {
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
