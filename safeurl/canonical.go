package safeurl

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Canonicalize normalizes a URL for cache-key and dedup comparison:
// lowercases scheme and host, removes the fragment, strips the trailing
// slash (except root), and sorts query params by key then value.
// It does NOT upgrade http to https (different servers, different resources).
func Canonicalize(raw string) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("%w: empty URL", ErrInvalid)
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("%w: scheme %q", ErrInvalid, parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("%w: missing host", ErrInvalid)
	}

	parsed.Scheme = scheme
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Fragment = ""
	parsed.Path = strings.TrimRight(parsed.Path, "/")

	// Sort query params by key for a stable form.
	if parsed.RawQuery != "" {
		params := parsed.Query()
		keys := make([]string, 0, len(params))
		for k := range params {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var buf strings.Builder
		for i, k := range keys {
			vals := params[k]
			sort.Strings(vals)
			for j, v := range vals {
				if i > 0 || j > 0 {
					buf.WriteByte('&')
				}
				buf.WriteString(url.QueryEscape(k))
				buf.WriteByte('=')
				buf.WriteString(url.QueryEscape(v))
			}
		}
		parsed.RawQuery = buf.String()
	}

	return parsed.String(), nil
}

// Host returns the lowercased hostname of a URL, without port or brackets.
func Host(raw string) (string, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	h := strings.ToLower(parsed.Hostname())
	if h == "" {
		return "", fmt.Errorf("%w: missing host", ErrInvalid)
	}
	return h, nil
}
