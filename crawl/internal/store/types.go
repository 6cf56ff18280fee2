package store

// CacheEntry is one cached operation result.
type CacheEntry struct {
	Key       string `json:"key"`
	Operation string `json:"operation"`
	Payload   string `json:"payload"` // normalized result JSON
	CreatedAt int64  `json:"created_at"`
	ExpiresAt int64  `json:"expires_at"`
}

// StatRow holds selection outcomes for one (domain, adapter, operation).
type StatRow struct {
	Domain    string `json:"domain"`
	Adapter   string `json:"adapter"`
	Operation string `json:"operation"`
	Successes int    `json:"successes"`
	Failures  int    `json:"failures"`
	UpdatedAt int64  `json:"updated_at"`
}

// Monitor is a registered price monitor.
type Monitor struct {
	ID            string   `json:"id"`
	URL           string   `json:"url"`
	CanonicalURL  string   `json:"canonical_url"`
	PriceSelector string   `json:"price_selector"`
	Frequency     string   `json:"frequency"`
	ThresholdPct  float64  `json:"threshold_pct"`
	Status        string   `json:"status"` // active | triggered | error
	InitialPrice  *float64 `json:"initial_price,omitempty"`
	CurrentPrice  *float64 `json:"current_price,omitempty"`
	Currency      string   `json:"currency"`
	LastCheckedAt *int64   `json:"last_checked_at,omitempty"`
	NextCheckAt   *int64   `json:"next_check_at,omitempty"`
	CreatedAt     int64    `json:"created_at"`
	UpdatedAt     int64    `json:"updated_at"`
}

// PricePoint is one observed price for a monitor.
type PricePoint struct {
	ID        string  `json:"id"`
	MonitorID string  `json:"monitor_id"`
	Price     float64 `json:"price"`
	Currency  string  `json:"currency"`
	ChangePct float64 `json:"change_pct"`
	CheckedAt int64   `json:"checked_at"`
}

// FetchLogEntry is one adapter attempt record.
type FetchLogEntry struct {
	ID           string `json:"id"`
	Operation    string `json:"operation"`
	Target       string `json:"target"` // URL or query
	Adapter      string `json:"adapter"`
	Status       string `json:"status"` // ok | error
	ErrorMessage string `json:"error_message"`
	DurationMs   int64  `json:"duration_ms"`
	FetchedAt    int64  `json:"fetched_at"`
}

// AdapterCounts aggregates fetch outcomes for one adapter.
type AdapterCounts struct {
	Adapter   string `json:"adapter"`
	Successes int    `json:"successes"`
	Failures  int    `json:"failures"`
}

// CrawlStats holds aggregate counters for the whole service.
type CrawlStats struct {
	CacheEntries int             `json:"cache_entries"`
	Monitors     int             `json:"monitors"`
	FetchLogs    int             `json:"fetch_logs"`
	Adapters     []AdapterCounts `json:"adapters"`
}
