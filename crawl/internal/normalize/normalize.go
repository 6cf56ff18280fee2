package normalize

import (
	"sort"
	"strings"

	"github.com/tripsage/webcrawl/crawl/internal/adapter"
	"github.com/tripsage/webcrawl/safeurl"
)

// Per-adapter confidence scores. Fixed by source kind, never derived
// from content quality: direct crawls beat rendered snapshots beat
// third-party search snippets.
const (
	ConfidenceBulk    = 0.85
	ConfidenceBrowser = 0.75
	ConfidenceHosted  = 0.65
	ConfidenceUnknown = 0.50
)

// Confidence returns the fixed confidence score for results produced by
// the given adapter kind.
func Confidence(kind adapter.Kind) float64 {
	switch kind {
	case adapter.KindBulk:
		return ConfidenceBulk
	case adapter.KindBrowser:
		return ConfidenceBrowser
	case adapter.KindHosted:
		return ConfidenceHosted
	default:
		return ConfidenceUnknown
	}
}

// extractionMethodSearch marks items built from search-API hits rather
// than fetched pages.
const extractionMethodSearch = "search_api"

func sourceType(kind adapter.Kind) string {
	if kind == "" {
		return "unknown"
	}
	return string(kind)
}

// hostOf reduces a URL to its registrable host for source fields,
// keeping the raw value when it will not parse.
func hostOf(raw string) string {
	h, err := safeurl.Host(raw)
	if err != nil || h == "" {
		return raw
	}
	return h
}

// isoOrRaw normalizes a date to YYYY-MM-DD, passing the trimmed raw
// value through when it will not parse. Full-shape fields keep whatever
// signal the source gave rather than dropping it.
func isoOrRaw(raw string) string {
	raw = strings.TrimSpace(raw)
	if iso := ISODate(raw); iso != "" {
		return iso
	}
	return raw
}

func itemMeta(method string, kind adapter.Kind, published string) ItemMeta {
	return ItemMeta{
		ExtractionMethod:       method,
		SourceType:             sourceType(kind),
		NormalizationTimestamp: Timestamp(),
		PublishedDate:          ISODate(published),
	}
}

// PageContentFrom normalizes a fetched page into the extract_page_content
// shape, rendering the body in the requested format.
func PageContentFrom(page *adapter.RawPage, kind adapter.Kind, f *Formatter, format string) *PageContent {
	images := make([]Image, 0, len(page.Images))
	for _, img := range page.Images {
		images = append(images, Image{URL: img.URL, Alt: img.Alt})
	}
	selections := make(map[string][]string, len(page.Selections))
	for sel, texts := range page.Selections {
		vals := make([]string, len(texts))
		copy(vals, texts)
		selections[sel] = vals
	}
	return &PageContent{
		URL:        page.URL,
		Title:      page.Title,
		Content:    f.Render(page, format),
		Format:     NormalizeFormat(format),
		Summary:    Summarize(page.Text),
		Images:     images,
		Selections: selections,
		Source:     hostOf(page.URL),
		Confidence: Confidence(kind),
		Metadata: PageMeta{
			Author:                 strings.TrimSpace(page.Meta.Author),
			PublishDate:            isoOrRaw(page.Meta.PublishDate),
			LastModified:           isoOrRaw(page.Meta.LastModified),
			SiteName:               strings.TrimSpace(page.Meta.SiteName),
			WordCount:              len(strings.Fields(page.Text)),
			ExtractionMethod:       page.Method,
			SourceType:             sourceType(kind),
			NormalizationTimestamp: Timestamp(),
		},
	}
}

// TopicResultsFrom normalizes one fetch result into topic items:
// search hits become snippet-backed items, fetched pages become
// content-backed ones. Duplicates collapse on (title, url) keeping the
// first occurrence; maxResults <= 0 means no cap.
func TopicResultsFrom(res *adapter.Result, kind adapter.Kind, maxResults int) []TopicResult {
	items := make([]TopicResult, 0, len(res.Hits)+len(res.Pages))
	for _, hit := range res.Hits {
		items = append(items, TopicResult{
			Title:      hit.Title,
			Content:    hit.Snippet,
			Summary:    Summarize(hit.Snippet),
			Source:     hostOf(hit.URL),
			URL:        hit.URL,
			Category:   Category(hit.Title, hit.Snippet),
			Confidence: Confidence(kind),
			Metadata:   itemMeta(extractionMethodSearch, kind, hit.Published),
		})
	}
	for _, page := range res.Pages {
		item := TopicResult{
			Title:      page.Title,
			Content:    page.Text,
			Summary:    Summarize(page.Text),
			Source:     hostOf(page.URL),
			URL:        page.URL,
			Category:   Category(page.Title, page.Text),
			Confidence: Confidence(kind),
			Metadata:   itemMeta(page.Method, kind, page.Meta.PublishDate),
		}
		if len(page.Images) > 0 {
			item.ImageURL = page.Images[0].URL
		}
		items = append(items, item)
	}
	items = DedupeTopicResults(items)
	if maxResults > 0 && len(items) > maxResults {
		items = items[:maxResults]
	}
	return items
}

// EventsFrom normalizes one fetch result into events. Venue and address
// stay empty unless a later enrichment fills them; generic crawling
// cannot attribute them reliably.
func EventsFrom(res *adapter.Result, kind adapter.Kind) []Event {
	events := make([]Event, 0, len(res.Hits)+len(res.Pages))
	for _, hit := range res.Hits {
		date, clock := EventDateTime(hit.Published)
		events = append(events, Event{
			Name:        hit.Title,
			Description: hit.Snippet,
			Category:    Category(hit.Title, hit.Snippet),
			Date:        date,
			Time:        clock,
			URL:         hit.URL,
			PriceRange:  PriceRange(hit.Snippet),
			Source:      hostOf(hit.URL),
			Confidence:  Confidence(kind),
			Metadata:    itemMeta(extractionMethodSearch, kind, hit.Published),
		})
	}
	for _, page := range res.Pages {
		date, clock := EventDateTime(page.Meta.PublishDate)
		ev := Event{
			Name:        page.Title,
			Description: Summarize(page.Text),
			Category:    Category(page.Title, page.Text),
			Date:        date,
			Time:        clock,
			URL:         page.URL,
			PriceRange:  PriceRange(page.Text),
			Source:      hostOf(page.URL),
			Confidence:  Confidence(kind),
			Metadata:    itemMeta(page.Method, kind, page.Meta.PublishDate),
		}
		if len(page.Images) > 0 {
			ev.ImageURL = page.Images[0].URL
		}
		events = append(events, ev)
	}
	return DedupeEvents(events)
}

// BlogTopicsFrom normalizes fetched blog pages into topic items with a
// sentiment label.
func BlogTopicsFrom(res *adapter.Result, kind adapter.Kind, maxResults int) []BlogTopic {
	items := make([]BlogTopic, 0, len(res.Pages)+len(res.Hits))
	for _, hit := range res.Hits {
		items = append(items, BlogTopic{
			Title:      hit.Title,
			Content:    hit.Snippet,
			Summary:    Summarize(hit.Snippet),
			Sentiment:  Sentiment(hit.Snippet),
			Source:     hostOf(hit.URL),
			URL:        hit.URL,
			Confidence: Confidence(kind),
			Metadata:   itemMeta(extractionMethodSearch, kind, hit.Published),
		})
	}
	for _, page := range res.Pages {
		items = append(items, BlogTopic{
			Title:      page.Title,
			Content:    page.Text,
			Summary:    Summarize(page.Text),
			Sentiment:  Sentiment(page.Text),
			Source:     hostOf(page.URL),
			URL:        page.URL,
			Confidence: Confidence(kind),
			Metadata:   itemMeta(page.Method, kind, page.Meta.PublishDate),
		})
	}
	items = dedupeBlogTopics(items)
	if maxResults > 0 && len(items) > maxResults {
		items = items[:maxResults]
	}
	return items
}

// BlogSourcesFrom lists the distinct blogs behind a fetch result.
func BlogSourcesFrom(res *adapter.Result, kind adapter.Kind) []BlogSource {
	seen := make(map[string]bool)
	sources := make([]BlogSource, 0, len(res.Pages))
	add := func(title, url, method, published string) {
		if url == "" || seen[url] {
			return
		}
		seen[url] = true
		sources = append(sources, BlogSource{
			Title:      title,
			URL:        url,
			Source:     hostOf(url),
			Confidence: Confidence(kind),
			Metadata:   itemMeta(method, kind, published),
		})
	}
	for _, page := range res.Pages {
		add(page.Title, page.URL, page.Method, page.Meta.PublishDate)
	}
	for _, hit := range res.Hits {
		add(hit.Title, hit.URL, extractionMethodSearch, hit.Published)
	}
	return sources
}

// DedupeTopicResults drops exact (title, url) duplicates, keeping the
// first occurrence so higher-priority sources win.
func DedupeTopicResults(items []TopicResult) []TopicResult {
	seen := make(map[string]bool, len(items))
	out := items[:0]
	for _, it := range items {
		key := it.Title + "\x00" + it.URL
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, it)
	}
	return out
}

// DedupeEvents drops exact (name, date, venue) duplicates, keeping the
// first occurrence.
func DedupeEvents(events []Event) []Event {
	seen := make(map[string]bool, len(events))
	out := events[:0]
	for _, ev := range events {
		key := ev.Name + "\x00" + ev.Date + "\x00" + ev.Venue
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, ev)
	}
	return out
}

func dedupeBlogTopics(items []BlogTopic) []BlogTopic {
	seen := make(map[string]bool, len(items))
	out := items[:0]
	for _, it := range items {
		key := it.Title + "\x00" + it.URL
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, it)
	}
	return out
}

// SortEvents orders events by date ascending with undated events last,
// preserving relative order within a date.
func SortEvents(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		di, dj := events[i].Date, events[j].Date
		if di == "" {
			return false
		}
		if dj == "" {
			return true
		}
		return di < dj
	})
}

// FilterEventsByDate keeps events dated inside [start, end] plus
// undated ones, which cannot be placed either way. Bounds are ISO
// dates, so plain string comparison orders them.
func FilterEventsByDate(events []Event, start, end string) []Event {
	out := events[:0]
	for _, ev := range events {
		if ev.Date != "" && (ev.Date < start || ev.Date > end) {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// FilterEventsByCategory keeps only events in the requested categories.
// An empty filter keeps everything.
func FilterEventsByCategory(events []Event, categories []string) []Event {
	if len(categories) == 0 {
		return events
	}
	want := make(map[string]bool, len(categories))
	for _, c := range categories {
		want[strings.ToLower(strings.TrimSpace(c))] = true
	}
	out := events[:0]
	for _, ev := range events {
		if want[ev.Category] {
			out = append(out, ev)
		}
	}
	return out
}

// CountCategories tallies events per category for the result shape.
func CountCategories(events []Event) map[string]int {
	counts := make(map[string]int)
	for _, ev := range events {
		counts[ev.Category]++
	}
	return counts
}

// SourceURLs collects the distinct page and hit URLs of a result in
// first-seen order, for the sources[] field of aggregate shapes.
func SourceURLs(res *adapter.Result) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(url string) {
		if url == "" || seen[url] {
			return
		}
		seen[url] = true
		out = append(out, url)
	}
	for _, hit := range res.Hits {
		add(hit.URL)
	}
	for _, page := range res.Pages {
		add(page.URL)
	}
	return out
}

// NewPageContent builds the empty-but-full page shape for the
// exhaustion path: collections present, nothing fetched.
func NewPageContent(url, format string) *PageContent {
	return &PageContent{
		URL:        url,
		Format:     NormalizeFormat(format),
		Images:     []Image{},
		Selections: map[string][]string{},
		Source:     hostOf(url),
		Metadata: PageMeta{
			SourceType:             "unknown",
			NormalizationTimestamp: Timestamp(),
		},
	}
}

// NewDestinationInfo builds the empty-but-full destination shape:
// every requested topic is present with an empty item list.
func NewDestinationInfo(destination string, topics []string) *DestinationInfo {
	tm := make(map[string][]TopicResult, len(topics))
	for _, t := range topics {
		tm[t] = []TopicResult{}
	}
	return &DestinationInfo{
		Destination: destination,
		Topics:      tm,
		Sources:     []string{},
	}
}

// NewEventList builds the empty-but-full event list shape.
func NewEventList(destination, start, end string) *EventList {
	return &EventList{
		Destination: destination,
		DateRange:   DateRange{Start: start, End: end},
		Events:      []Event{},
		EventCount:  0,
		Categories:  map[string]int{},
		Sources:     []string{},
	}
}

// NewBlogInsights builds the empty-but-full blog shape with every
// requested topic present.
func NewBlogInsights(destination string, topics []string) *BlogInsights {
	tm := make(map[string][]BlogTopic, len(topics))
	for _, t := range topics {
		tm[t] = []BlogTopic{}
	}
	return &BlogInsights{
		Destination:    destination,
		Topics:         tm,
		Sources:        []BlogSource{},
		ExtractionDate: Timestamp(),
	}
}
