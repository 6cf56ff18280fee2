// Package shield provides the HTTP middleware stack for the webcrawl
// API: security headers, request body limits, per-request trace IDs with
// structured loggers, HEAD handling, and SQLite-backed rate limiting.
//
// Usage:
//
//	r := chi.NewRouter()
//	stack, rl := shield.DefaultStack(db)
//	rl.StartReloader(done)
//	for _, mw := range stack {
//	    r.Use(mw)
//	}
package shield

import (
	"database/sql"
	"net/http"
)

type contextKey string

// LoggerKey is the context key for the per-request structured logger.
const LoggerKey contextKey = "shield_logger"

// DefaultStack returns the standard middleware stack for the API server,
// ordered: HeadToGet → SecurityHeaders → MaxBody → TraceID → RateLimiter.
// The returned RateLimiter handle lets callers start the rule reloader.
// Health checks bypass rate limiting.
func DefaultStack(db *sql.DB) ([]func(http.Handler) http.Handler, *RateLimiter) {
	rl := NewRateLimiter(db, "/health")
	return []func(http.Handler) http.Handler{
		HeadToGet,
		SecurityHeaders(DefaultHeaders()),
		MaxBody(1 << 20),
		TraceID,
		rl.Middleware,
	}, rl
}

// HeadToGet rewrites HEAD requests to GET before routing so handlers
// registered with r.Get() answer 200 instead of 405. net/http strips
// the body from HEAD responses on its own.
func HeadToGet(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			r.Method = http.MethodGet
		}
		next.ServeHTTP(w, r)
	})
}
