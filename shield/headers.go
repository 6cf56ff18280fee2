package shield

import "net/http"

// HeaderConfig defines the security headers applied to every response.
type HeaderConfig struct {
	CSP                 string
	XFrameOptions       string
	XContentTypeOptions string
	ReferrerPolicy      string
	PermissionsPolicy   string
}

// DefaultHeaders returns the header configuration for a JSON API: the
// service renders no HTML, so the CSP forbids everything and frames are
// denied outright.
func DefaultHeaders() HeaderConfig {
	return HeaderConfig{
		CSP:                 "default-src 'none'; frame-ancestors 'none'",
		XFrameOptions:       "DENY",
		XContentTypeOptions: "nosniff",
		ReferrerPolicy:      "strict-origin-when-cross-origin",
		PermissionsPolicy:   "camera=(), microphone=(), geolocation=()",
	}
}

// pairs flattens the configuration into name/value pairs, dropping
// empty fields.
func (cfg HeaderConfig) pairs() [][2]string {
	all := [][2]string{
		{"Content-Security-Policy", cfg.CSP},
		{"X-Frame-Options", cfg.XFrameOptions},
		{"X-Content-Type-Options", cfg.XContentTypeOptions},
		{"Referrer-Policy", cfg.ReferrerPolicy},
		{"Permissions-Policy", cfg.PermissionsPolicy},
	}
	out := all[:0]
	for _, p := range all {
		if p[1] != "" {
			out = append(out, p)
		}
	}
	return out
}

// SecurityHeaders returns middleware that sets the configured security
// headers on every response. The pairs are computed once at stack
// construction, not per request.
func SecurityHeaders(cfg HeaderConfig) func(http.Handler) http.Handler {
	headers := cfg.pairs()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for _, p := range headers {
				h.Set(p[0], p[1])
			}
			next.ServeHTTP(w, r)
		})
	}
}
