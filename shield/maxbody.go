package shield

import "net/http"

// MaxBody returns middleware that caps every request body at maxBytes.
// Reads past the limit fail the handler's decode with a 413 from
// MaxBytesReader instead of buffering an unbounded payload.
func MaxBody(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
