package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ashureev/socialdash/internal/logging"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// RequestLogger logs one line per request with status and duration.
// Health checks and static assets log at debug.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case r.URL.Path == "/health" || strings.HasPrefix(r.URL.Path, "/static/"):
			level = slog.LevelDebug
		}

		logging.FromRequest(r).Log(r.Context(), level, "HTTP request",
			"method", r.Method,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
		)
	})
}
