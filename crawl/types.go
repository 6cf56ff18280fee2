package crawl

import (
	"github.com/tripsage/webcrawl/crawl/internal/normalize"
	"github.com/tripsage/webcrawl/crawl/internal/store"
)

// Operation names. They key the cache, the selection statistics, and
// the fetch log.
const (
	OpExtractContent    = "extract_content"
	OpSearchDestination = "search_destination"
	OpMonitorPrice      = "monitor_price"
	OpGetEvents         = "get_events"
	OpCrawlBlog         = "crawl_blog"
)

// Monitor lifecycle states.
const (
	MonitorActive    = "active"
	MonitorTriggered = "triggered"
	MonitorError     = "error"
)

// Canonical result shapes, defined next to their builders.
type (
	PageContent        = normalize.PageContent
	DestinationInfo    = normalize.DestinationInfo
	TopicResult        = normalize.TopicResult
	PriceMonitorResult = normalize.PriceMonitorResult
	PriceSnapshot      = normalize.PriceSnapshot
	PriceObservation   = normalize.PriceObservation
	EventList          = normalize.EventList
	Event              = normalize.Event
	DateRange          = normalize.DateRange
	BlogInsights       = normalize.BlogInsights
	BlogTopic          = normalize.BlogTopic
	BlogSource         = normalize.BlogSource
	Guidance           = normalize.Guidance
)

// CrawlStats aggregates service counters for the stats endpoints.
type CrawlStats = store.CrawlStats

// ExtractRequest asks for the content of one page.
type ExtractRequest struct {
	URL           string   `json:"url"`
	Selectors     []string `json:"selectors,omitempty"`
	IncludeImages bool     `json:"include_images,omitempty"`
	Format        string   `json:"format,omitempty"`
}

// SearchRequest asks for destination information across topics.
type SearchRequest struct {
	Destination string   `json:"destination"`
	Topics      []string `json:"topics,omitempty"`
	MaxResults  int      `json:"max_results,omitempty"`
}

// MonitorRequest registers or refreshes a price monitor.
type MonitorRequest struct {
	URL                   string  `json:"url"`
	PriceSelector         string  `json:"price_selector"`
	Frequency             string  `json:"frequency,omitempty"`
	NotificationThreshold float64 `json:"notification_threshold,omitempty"`
}

// EventsRequest asks for events at a destination within a date range.
type EventsRequest struct {
	Destination string   `json:"destination"`
	StartDate   string   `json:"start_date"`
	EndDate     string   `json:"end_date"`
	Categories  []string `json:"categories,omitempty"`
}

// BlogRequest asks for travel-blog insights about a destination.
// RecentOnly is a pointer so an explicit false survives decoding; nil
// means the default (true).
type BlogRequest struct {
	Destination string   `json:"destination"`
	Topics      []string `json:"topics,omitempty"`
	MaxBlogs    int      `json:"max_blogs,omitempty"`
	RecentOnly  *bool    `json:"recent_only,omitempty"`
}

// defaultSearchTopics fill a SearchRequest that names no topics.
var defaultSearchTopics = []string{"attractions", "restaurants", "hotels", "transport"}

// defaultBlogTopics fill a BlogRequest that names no topics.
var defaultBlogTopics = []string{"highlights", "food", "budget", "tips"}
