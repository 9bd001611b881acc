package logging

import (
	"io"
	"log/slog"
	"strings"
)

// ParseLevel maps a config string onto a slog level. Unknown values fall
// back to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// New returns a text logger on w with correlation IDs injected. The level is
// read from lv on every record, so changing lv takes effect immediately.
func New(w io.Writer, lv *slog.LevelVar) *slog.Logger {
	inner := slog.NewTextHandler(w, &slog.HandlerOptions{Level: lv})
	return slog.New(NewCorrelationHandler(inner))
}
