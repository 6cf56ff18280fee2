package crawl

import (
	"fmt"
	"strings"

	"github.com/tripsage/webcrawl/crawl/internal/normalize"
	"github.com/tripsage/webcrawl/crawl/internal/selector"
	"github.com/tripsage/webcrawl/safeurl"
)

// responseSections names the top-level fields of each operation's
// result shape, so a fallback search can be asked to reconstruct them.
var responseSections = map[string][]string{
	OpExtractContent:    {"url", "title", "content", "summary", "images", "metadata"},
	OpSearchDestination: {"destination", "topics", "sources"},
	OpMonitorPrice:      {"url", "initial_price", "current_price", "monitoring_id", "status", "history", "next_check"},
	OpGetEvents:         {"destination", "date_range", "events", "event_count", "categories", "sources"},
	OpCrawlBlog:         {"destination", "topics", "sources", "extraction_date"},
}

// buildGuidance composes the websearch fallback payload for an
// exhausted operation: concrete queries to try, the domain allow/block
// lists from the routing rules, and the section template of the shape
// the caller expected.
func buildGuidance(op string, queries []string, attempts int) *Guidance {
	reason := fmt.Sprintf("no usable content from any source adapter for %s; answer from a general web search instead", op)
	if attempts > 0 {
		reason = fmt.Sprintf("all %d source adapters failed for %s; answer from a general web search instead", attempts, op)
	}
	return &normalize.Guidance{
		SuggestedQueries: queries,
		AllowedDomains:   selector.StaticDomains(),
		BlockedDomains:   selector.DynamicDomains(),
		ResponseSections: responseSections[op],
		Reason:           reason,
	}
}

func extractQueries(url string) []string {
	queries := []string{url}
	if host, err := safeurl.Host(url); err == nil && host != "" {
		queries = append(queries, "site:"+host)
	}
	return queries
}

func searchQueries(destination string, topics []string) []string {
	queries := make([]string, 0, len(topics)+1)
	for _, t := range topics {
		queries = append(queries, destination+" "+t)
	}
	return append(queries, destination+" travel guide")
}

func monitorQueries(url string) []string {
	queries := []string{}
	if host, err := safeurl.Host(url); err == nil && host != "" {
		queries = append(queries, host+" current price")
	}
	return append(queries, url)
}

func eventsQueries(destination, start, end string) []string {
	return []string{
		fmt.Sprintf("%s events %s to %s", destination, start, end),
		destination + " events calendar",
		"things to do in " + destination,
	}
}

func blogQueries(destination string, topics []string) []string {
	queries := []string{destination + " travel blog"}
	for _, t := range topics {
		queries = append(queries, fmt.Sprintf("%s travel blog %s", destination, t))
	}
	return append(queries, destination+" trip report")
}

// seedQuery is the query string given to search adapters for one
// destination topic.
func seedQuery(destination, topic string) string {
	return strings.TrimSpace(destination + " " + topic)
}
