// Package logging configures the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// Init installs the default slog logger writing to w.
// format is "json" or "text"; unknown levels fall back to info.
func Init(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// ParseLevel maps a level name to a slog level.
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

// FromRequest returns a logger tagged with the chi request id, or a fresh
// UUIDv7 when the request carries none.
func FromRequest(r *http.Request) *slog.Logger {
	id := middleware.GetReqID(r.Context())
	if id == "" {
		id = uuid.Must(uuid.NewV7()).String()
	}
	return slog.With("request_id", id, "path", r.URL.Path)
}
