package shield

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitConfig defines the rate limit for a single endpoint.
type RateLimitConfig struct {
	MaxRequests   int
	WindowSeconds int
	Enabled       bool
}

// window tracks one client's request count against one endpoint rule.
type window struct {
	count   int
	resetAt time.Time
}

// RateLimiter enforces per-IP, per-endpoint limits from the rate_limits
// table. Rules are opt-in: endpoints without a row are unlimited. Rules
// reload periodically so limits can be tuned without a restart.
//
// Expected schema:
//
//	CREATE TABLE IF NOT EXISTS rate_limits (
//	    endpoint TEXT PRIMARY KEY,
//	    max_requests INTEGER NOT NULL DEFAULT 60,
//	    window_seconds INTEGER NOT NULL DEFAULT 60,
//	    enabled INTEGER NOT NULL DEFAULT 1
//	);
type RateLimiter struct {
	db      *sql.DB
	exclude []string // path prefixes that bypass limiting

	mu      sync.Mutex
	rules   map[string]RateLimitConfig
	windows map[string]*window
}

// NewRateLimiter creates a rate limiter over the rate_limits table in
// db and loads the rules once. Call StartReloader for periodic refresh
// and window GC.
func NewRateLimiter(db *sql.DB, excludePrefixes ...string) *RateLimiter {
	rl := &RateLimiter{
		db:      db,
		exclude: excludePrefixes,
		rules:   make(map[string]RateLimitConfig),
		windows: make(map[string]*window),
	}
	rl.reload()
	return rl
}

// StartReloader refreshes rules every 60s and drops expired windows
// every 5min until done is closed.
func (rl *RateLimiter) StartReloader(done <-chan struct{}) {
	reload := time.NewTicker(60 * time.Second)
	gc := time.NewTicker(5 * time.Minute)
	go func() {
		defer reload.Stop()
		defer gc.Stop()
		for {
			select {
			case <-done:
				return
			case <-reload.C:
				rl.reload()
			case <-gc.C:
				rl.gc()
			}
		}
	}()
}

func (rl *RateLimiter) reload() {
	rows, err := rl.db.Query(`SELECT endpoint, max_requests, window_seconds, enabled FROM rate_limits`)
	if err != nil {
		slog.Warn("ratelimit: failed to reload rules", "error", err)
		return
	}
	defer rows.Close()

	rules := make(map[string]RateLimitConfig)
	for rows.Next() {
		var endpoint string
		var cfg RateLimitConfig
		var enabled int
		if err := rows.Scan(&endpoint, &cfg.MaxRequests, &cfg.WindowSeconds, &enabled); err != nil {
			continue
		}
		cfg.Enabled = enabled == 1
		rules[endpoint] = cfg
	}

	rl.mu.Lock()
	rl.rules = rules
	rl.mu.Unlock()

	slog.Debug("ratelimit: rules reloaded", "count", len(rules))
}

func (rl *RateLimiter) gc() {
	now := time.Now()
	rl.mu.Lock()
	for key, w := range rl.windows {
		if now.After(w.resetAt) {
			delete(rl.windows, key)
		}
	}
	rl.mu.Unlock()
}

// allow counts one request for (ip, endpoint). When the request is over
// the limit it also reports how long until the window resets.
func (rl *RateLimiter) allow(ip, endpoint string, now time.Time) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cfg, ok := rl.rules[endpoint]
	if !ok || !cfg.Enabled {
		return true, 0
	}

	key := ip + ":" + endpoint
	w := rl.windows[key]
	if w == nil || now.After(w.resetAt) {
		rl.windows[key] = &window{
			count:   1,
			resetAt: now.Add(time.Duration(cfg.WindowSeconds) * time.Second),
		}
		return true, 0
	}

	w.count++
	if w.count <= cfg.MaxRequests {
		return true, 0
	}
	return false, w.resetAt.Sub(now)
}

// Middleware enforces rate limits. Blocked requests get a 429 JSON
// response; Retry-After reflects the remaining window time.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, prefix := range rl.exclude {
			if strings.HasPrefix(r.URL.Path, prefix) {
				next.ServeHTTP(w, r)
				return
			}
		}

		endpoint := r.Method + " " + r.URL.Path
		ip := ExtractIP(r)

		ok, retryIn := rl.allow(ip, endpoint, time.Now())
		if ok {
			next.ServeHTTP(w, r)
			return
		}

		slog.Warn("ratelimit: request blocked", "ip", ip, "endpoint", endpoint)

		seconds := int(retryIn / time.Second)
		if seconds < 1 {
			seconds = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{
			"error": "rate limit exceeded",
		})
	})
}

// ExtractIP returns the client IP from X-Forwarded-For or RemoteAddr.
func ExtractIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
