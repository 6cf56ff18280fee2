package crawl

import "time"

// Config configures the crawl service.
type Config struct {
	// UserAgent identifies outbound requests from the bulk crawler.
	UserAgent string

	// BrowserRemoteURL is the WebSocket URL of an external Chrome.
	// Empty launches a local Chrome when one is installed.
	BrowserRemoteURL string

	// DisableBrowser keeps the browser adapter out of rotation even
	// when a Chrome binary is present.
	DisableBrowser bool

	// SearchAPIHost and SearchAPIKey configure the hosted search
	// adapter. Without a key the adapter is left out of rotation.
	SearchAPIHost string
	SearchAPIKey  string

	// DefaultCurrency is assumed when a price carries no currency marker.
	DefaultCurrency string

	// MaxTopicResults caps items per topic in destination searches.
	MaxTopicResults int

	// MaxBlogs caps how many blogs a blog crawl visits.
	MaxBlogs int

	// Per-attempt timeouts by operation. Each adapter attempt gets its
	// own budget; the caller's deadline still wins overall.
	ExtractTimeout time.Duration
	SearchTimeout  time.Duration
	PriceTimeout   time.Duration
	EventsTimeout  time.Duration
	BlogTimeout    time.Duration

	// Result cache TTLs by operation, scaled to content volatility:
	// hours for prices and events, days for destination overviews, a
	// week for blog insights.
	ExtractTTL     time.Duration
	DestinationTTL time.Duration
	PriceTTL       time.Duration
	EventsTTL      time.Duration
	BlogTTL        time.Duration

	// Price monitoring defaults.
	DefaultFrequency    string
	DefaultThresholdPct float64

	// Maintenance bounds applied by Prune.
	FetchLogRetention time.Duration
	MaxStatDomains    int
}

func (c *Config) defaults() {
	if c.UserAgent == "" {
		c.UserAgent = "tripsage-webcrawl/1.0"
	}
	if c.DefaultCurrency == "" {
		c.DefaultCurrency = "USD"
	}
	if c.MaxTopicResults <= 0 {
		c.MaxTopicResults = 5
	}
	if c.MaxBlogs <= 0 {
		c.MaxBlogs = 3
	}
	if c.ExtractTimeout <= 0 {
		c.ExtractTimeout = 30 * time.Second
	}
	if c.SearchTimeout <= 0 {
		c.SearchTimeout = 20 * time.Second
	}
	if c.PriceTimeout <= 0 {
		c.PriceTimeout = 45 * time.Second
	}
	if c.EventsTimeout <= 0 {
		c.EventsTimeout = 20 * time.Second
	}
	if c.BlogTimeout <= 0 {
		c.BlogTimeout = 60 * time.Second
	}
	if c.ExtractTTL <= 0 {
		c.ExtractTTL = 6 * time.Hour
	}
	if c.DestinationTTL <= 0 {
		c.DestinationTTL = 48 * time.Hour
	}
	if c.PriceTTL <= 0 {
		c.PriceTTL = time.Hour
	}
	if c.EventsTTL <= 0 {
		c.EventsTTL = 6 * time.Hour
	}
	if c.BlogTTL <= 0 {
		c.BlogTTL = 7 * 24 * time.Hour
	}
	if c.DefaultFrequency == "" {
		c.DefaultFrequency = "daily"
	}
	if c.DefaultThresholdPct <= 0 {
		c.DefaultThresholdPct = 5
	}
	if c.FetchLogRetention <= 0 {
		c.FetchLogRetention = 7 * 24 * time.Hour
	}
	if c.MaxStatDomains <= 0 {
		c.MaxStatDomains = 10000
	}
}

func defaultConfig() *Config {
	c := &Config{}
	c.defaults()
	return c
}

// checkIntervals maps monitor frequencies to their check interval.
var checkIntervals = map[string]time.Duration{
	"hourly": time.Hour,
	"daily":  24 * time.Hour,
	"weekly": 7 * 24 * time.Hour,
}
