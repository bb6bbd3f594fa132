package logger

import (
	"io"
	"log/slog"
	"strings"
)

// New builds the launcher's own slog logger writing to w.
func New(w io.Writer, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	return slog.New(NewColorTextHandler(w, opts, true))
}

// ParseLevel maps a bot-style loglevel string (DEBUG/INFO/WARNING/ERROR)
// onto slog levels. Unknown values default to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
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
