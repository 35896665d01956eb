package log

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// ContextKey type for context keys
type ContextKey string

const (
	// LoggerContextKey is the context key for the logger
	LoggerContextKey ContextKey = "logger"
)

// Middleware creates HTTP middleware that adds a logger to the request context.
// When chi's RequestID middleware ran first, the logger carries request_id.
func Middleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := logger
			if reqID := middleware.GetReqID(r.Context()); reqID != "" {
				l = l.With(FieldRequestID, reqID)
			}
			ctx := WithLogger(r.Context(), l)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, LoggerContextKey, logger)
}

// FromContext extracts a logger from the request context
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	logger := &Logger{
		Logger:    slog.Default(),
		component: "unknown",
	}
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		logger = logger.With(FieldRequestID, reqID)
	}
	return logger
}

// RequestLogger logs one line per completed request. The level follows the
// response status: warn for 4xx, error for 5xx.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		}

		logger := FromContext(r.Context())
		fields := NewFields().
			WithComponent(ComponentHTTP).
			WithHTTPRequest(r.Method, r.URL.Path, r.RemoteAddr, r.UserAgent()).
			WithHTTPResponse(status, time.Since(start).Milliseconds())
		logger.Logger.Log(r.Context(), level, "request", fields.ToSlice()...)
	})
}
