package crawl

import (
	"sort"
	"strconv"
	"strings"

	"github.com/tripsage/webcrawl/crawl/internal/normalize"
	"github.com/tripsage/webcrawl/safeurl"
)

// cacheKey builds the deterministic key for an operation and its
// canonicalized parameters: "op|k=v|..." with keys sorted. Equal
// parameter sets produce equal keys regardless of input order or case.
func cacheKey(op string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(op)
	for _, k := range keys {
		b.WriteByte('|')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params[k])
	}
	return b.String()
}

// canon lower-cases and trims a scalar parameter.
func canon(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// canonList canonicalizes a list parameter: trimmed, lower-cased,
// empties dropped, sorted, comma-joined.
func canonList(vals []string) string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if v = canon(v); v != "" {
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return strings.Join(out, ",")
}

// canonURL canonicalizes a URL parameter, falling back to plain
// lower-casing when it will not parse.
func canonURL(raw string) string {
	c, err := safeurl.Canonicalize(raw)
	if err != nil {
		return canon(raw)
	}
	return c
}

func extractKey(req *ExtractRequest) string {
	return cacheKey(OpExtractContent, map[string]string{
		"url":       canonURL(req.URL),
		"selectors": canonList(req.Selectors),
		"images":    strconv.FormatBool(req.IncludeImages),
		"format":    normalize.NormalizeFormat(req.Format),
	})
}

func searchKey(req *SearchRequest, topics []string, maxResults int) string {
	return cacheKey(OpSearchDestination, map[string]string{
		"destination": canon(req.Destination),
		"topics":      canonList(topics),
		"max_results": strconv.Itoa(maxResults),
	})
}

func monitorKey(req *MonitorRequest, frequency string, threshold float64) string {
	return cacheKey(OpMonitorPrice, map[string]string{
		"url":       canonURL(req.URL),
		"selector":  strings.TrimSpace(req.PriceSelector),
		"frequency": frequency,
		"threshold": strconv.FormatFloat(threshold, 'f', -1, 64),
	})
}

func eventsKey(req *EventsRequest) string {
	return cacheKey(OpGetEvents, map[string]string{
		"destination": canon(req.Destination),
		"start":       req.StartDate,
		"end":         req.EndDate,
		"categories":  canonList(req.Categories),
	})
}

func blogKey(req *BlogRequest, topics []string, maxBlogs int, recentOnly bool) string {
	return cacheKey(OpCrawlBlog, map[string]string{
		"destination": canon(req.Destination),
		"topics":      canonList(topics),
		"max_blogs":   strconv.Itoa(maxBlogs),
		"recent_only": strconv.FormatBool(recentOnly),
	})
}
