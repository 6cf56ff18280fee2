package shield

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"

	"github.com/tripsage/webcrawl/kit"
)

// TraceID tags each request with a trace ID and a per-request structured
// logger. A sane inbound X-Trace-ID is reused so crawl requests keep the
// caller's correlation ID across the travel planner's services; otherwise
// a fresh ID is generated. The ID lands in the context (kit.TraceIDKey),
// the X-Trace-ID response header, and the logger (LoggerKey). Health
// probes are tagged but not logged.
func TraceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get("X-Trace-ID")
		if !validTraceID(traceID) {
			id := make([]byte, 4)
			rand.Read(id)
			traceID = hex.EncodeToString(id)
		}

		ctx := kit.WithTraceID(r.Context(), traceID)
		w.Header().Set("X-Trace-ID", traceID)

		logger := slog.Default().With(
			"trace_id", traceID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)
		ctx = context.WithValue(ctx, LoggerKey, logger)
		if r.URL.Path != "/health" {
			logger.Info("request")
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// validTraceID accepts 8..64 chars of hex or dashes, enough for our own
// IDs and for W3C-style parent IDs without trusting arbitrary input.
func validTraceID(id string) bool {
	if len(id) < 8 || len(id) > 64 {
		return false
	}
	for _, c := range id {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		case c == '-':
		default:
			return false
		}
	}
	return true
}

// GetLogger retrieves the per-request logger from the context.
// Returns slog.Default() if no logger was set.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(LoggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
