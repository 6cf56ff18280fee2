// Package normalize maps raw adapter output into the canonical result
// shapes. Every leaf item carries source, confidence, and metadata stamps;
// optional fields get explicit defaults so consumers can assume full shape
// presence. Confidence comes from a fixed per-adapter table, never from
// content quality.
package normalize

// Image is one image reference in normalized page content.
type Image struct {
	URL string `json:"url"`
	Alt string `json:"alt"`
}

// PageMeta is the metadata block of normalized page content.
type PageMeta struct {
	Author                 string `json:"author"`
	PublishDate            string `json:"publish_date"`
	LastModified           string `json:"last_modified"`
	SiteName               string `json:"site_name"`
	WordCount              int    `json:"word_count"`
	ExtractionMethod       string `json:"extraction_method"`
	SourceType             string `json:"source_type"`
	NormalizationTimestamp string `json:"normalization_timestamp"`
}

// ItemMeta is the metadata block stamped on every normalized leaf item.
type ItemMeta struct {
	ExtractionMethod       string `json:"extraction_method"`
	SourceType             string `json:"source_type"`
	NormalizationTimestamp string `json:"normalization_timestamp"`
	PublishedDate          string `json:"published_date"`
}

// PageContent is the normalized result of extract_page_content.
type PageContent struct {
	URL        string              `json:"url"`
	Title      string              `json:"title"`
	Content    string              `json:"content"`
	Format     string              `json:"format"`
	Summary    string              `json:"summary"`
	Images     []Image             `json:"images"`
	Selections map[string][]string `json:"selections"`
	Source     string              `json:"source"`
	Confidence float64             `json:"confidence"`
	Metadata   PageMeta            `json:"metadata"`
	Guidance   *Guidance           `json:"websearch_tool_guidance,omitempty"`
}

// TopicResult is one normalized finding for a destination topic.
type TopicResult struct {
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Summary    string   `json:"summary"`
	Source     string   `json:"source"`
	URL        string   `json:"url"`
	ImageURL   string   `json:"image_url"`
	Category   string   `json:"category"`
	Confidence float64  `json:"confidence"`
	Metadata   ItemMeta `json:"metadata"`
}

// DestinationInfo is the normalized result of search_destination_info.
type DestinationInfo struct {
	Destination string                   `json:"destination"`
	Topics      map[string][]TopicResult `json:"topics"`
	Sources     []string                 `json:"sources"`
	Guidance    *Guidance                `json:"websearch_tool_guidance,omitempty"`
}

// PriceSnapshot is one observed price with its timestamp.
type PriceSnapshot struct {
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	Timestamp string  `json:"timestamp"`
}

// PriceObservation is one history entry of a price monitor.
type PriceObservation struct {
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	ChangePct float64 `json:"change_pct"`
	Timestamp string  `json:"timestamp"`
}

// PriceMonitorResult is the normalized result of monitor_price_changes.
type PriceMonitorResult struct {
	URL          string             `json:"url"`
	MonitoringID string             `json:"monitoring_id"`
	Status       string             `json:"status"`
	InitialPrice PriceSnapshot      `json:"initial_price"`
	CurrentPrice PriceSnapshot      `json:"current_price"`
	History      []PriceObservation `json:"history"`
	NextCheck    string             `json:"next_check"`
	Source       string             `json:"source"`
	Confidence   float64            `json:"confidence"`
	Metadata     ItemMeta           `json:"metadata"`
	Guidance     *Guidance          `json:"websearch_tool_guidance,omitempty"`
}

// DateRange bounds an event search.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Event is one normalized event.
type Event struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Date        string   `json:"date"`
	Time        string   `json:"time"`
	Venue       string   `json:"venue"`
	Address     string   `json:"address"`
	URL         string   `json:"url"`
	PriceRange  string   `json:"price_range"`
	ImageURL    string   `json:"image_url"`
	Source      string   `json:"source"`
	Confidence  float64  `json:"confidence"`
	Metadata    ItemMeta `json:"metadata"`
}

// EventList is the normalized result of get_latest_events.
type EventList struct {
	Destination string         `json:"destination"`
	DateRange   DateRange      `json:"date_range"`
	Events      []Event        `json:"events"`
	EventCount  int            `json:"event_count"`
	Categories  map[string]int `json:"categories"`
	Sources     []string       `json:"sources"`
	Guidance    *Guidance      `json:"websearch_tool_guidance,omitempty"`
}

// BlogTopic is one normalized blog finding for a topic.
type BlogTopic struct {
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Summary    string   `json:"summary"`
	Sentiment  string   `json:"sentiment"`
	Source     string   `json:"source"`
	URL        string   `json:"url"`
	Confidence float64  `json:"confidence"`
	Metadata   ItemMeta `json:"metadata"`
}

// BlogSource identifies one crawled blog.
type BlogSource struct {
	Title      string   `json:"title"`
	URL        string   `json:"url"`
	Source     string   `json:"source"`
	Confidence float64  `json:"confidence"`
	Metadata   ItemMeta `json:"metadata"`
}

// BlogInsights is the normalized result of crawl_travel_blog.
type BlogInsights struct {
	Destination    string                 `json:"destination"`
	Topics         map[string][]BlogTopic `json:"topics"`
	Sources        []BlogSource           `json:"sources"`
	ExtractionDate string                 `json:"extraction_date"`
	Guidance       *Guidance              `json:"websearch_tool_guidance,omitempty"`
}

// Guidance tells the caller how to fall back to a general web-search tool
// after every source adapter failed. It rides on the operation payload
// under websearch_tool_guidance; the payload keeps its empty-shape
// defaults so consumers can parse either way.
type Guidance struct {
	SuggestedQueries []string `json:"suggested_queries"`
	AllowedDomains   []string `json:"allowed_domains"`
	BlockedDomains   []string `json:"blocked_domains"`
	ResponseSections []string `json:"response_sections"`
	Reason           string   `json:"reason"`
}
