package normalize

import (
	"time"

	"github.com/araddon/dateparse"
)

// ISODate parses most common date layouts and returns YYYY-MM-DD, or ""
// when the input is empty or unparseable.
func ISODate(raw string) string {
	t, ok := parseWhen(raw)
	if !ok {
		return ""
	}
	return t.Format("2006-01-02")
}

// EventDateTime splits a raw timestamp into the event date and clock
// fields. The clock stays empty when the source carried a bare date.
func EventDateTime(raw string) (date, clock string) {
	t, ok := parseWhen(raw)
	if !ok {
		return "", ""
	}
	date = t.Format("2006-01-02")
	if t.Hour() != 0 || t.Minute() != 0 || t.Second() != 0 {
		clock = t.Format("15:04")
	}
	return date, clock
}

func parseWhen(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	t, err := dateparse.ParseAny(raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Timestamp is the normalization timestamp stamped on every result.
func Timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
