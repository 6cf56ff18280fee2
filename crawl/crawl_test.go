package crawl

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tripsage/webcrawl/crawl/internal/adapter"
	"github.com/tripsage/webcrawl/crawl/internal/selector"
	"github.com/tripsage/webcrawl/dbopen"
	"github.com/tripsage/webcrawl/extract"
)

// testClock is a mutable clock for crossing TTL and schedule boundaries
// without sleeping.
type testClock struct{ now time.Time }

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time          { return c.now }
func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// fakeSource scripts one source adapter and records every task it saw.
// The fallback chain is strictly sequential, so no locking is needed.
type fakeSource struct {
	kind  adapter.Kind
	fetch func(ctx context.Context, task *adapter.Task) (*adapter.Result, error)
	calls int
	tasks []*adapter.Task
}

func (f *fakeSource) Kind() adapter.Kind { return f.kind }

func (f *fakeSource) Fetch(ctx context.Context, task *adapter.Task) (*adapter.Result, error) {
	f.calls++
	f.tasks = append(f.tasks, task)
	return f.fetch(ctx, task)
}

func failing(kind adapter.Kind) *fakeSource {
	return &fakeSource{kind: kind, fetch: func(context.Context, *adapter.Task) (*adapter.Result, error) {
		return nil, &adapter.FetchError{Adapter: kind, Reason: "connection refused", Retryable: true}
	}}
}

func servingPages(kind adapter.Kind, pages ...adapter.RawPage) *fakeSource {
	return &fakeSource{kind: kind, fetch: func(context.Context, *adapter.Task) (*adapter.Result, error) {
		return &adapter.Result{Pages: pages}, nil
	}}
}

func servingHits(kind adapter.Kind, hits ...adapter.SearchHit) *fakeSource {
	return &fakeSource{kind: kind, fetch: func(context.Context, *adapter.Task) (*adapter.Result, error) {
		return &adapter.Result{Hits: hits}, nil
	}}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestService builds a Service over an in-memory database with the
// fetch chain replaced by the given scripted adapters. A nil clock
// keeps the real one.
func newTestService(t *testing.T, clock *testClock, adapters ...adapter.SourceAdapter) *Service {
	t.Helper()
	opts := []ServiceOption{
		WithURLValidator(func(string) error { return nil }),
		WithAdapters(adapters...),
	}
	if clock != nil {
		opts = append(opts, WithClock(clock.Now))
	}
	svc, err := New(dbopen.OpenMemory(t), &Config{DisableBrowser: true}, discardLogger(), opts...)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	t.Cleanup(func() { svc.Close() })
	return svc
}

// --- extract_page_content ---

func TestExtractPageContent(t *testing.T) {
	// WHAT: A fetched page comes back normalized with the full shape.
	// WHY: Every consumer parses this shape; field mapping must hold.
	bulk := servingPages(adapter.KindBulk, adapter.RawPage{
		URL:    "https://travel.example.com/louvre",
		Title:  "Louvre Guide",
		Text:   "The Louvre is the largest art museum in Paris.",
		Method: extract.MethodReadability,
		Meta:   extract.Meta{Author: "A. Writer", PublishDate: "2026-02-14"},
	})
	svc := newTestService(t, nil, bulk)
	ctx := context.Background()

	out, err := svc.ExtractPageContent(ctx, &ExtractRequest{URL: "https://travel.example.com/louvre"})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if out.URL != "https://travel.example.com/louvre" {
		t.Errorf("url = %q", out.URL)
	}
	if out.Title != "Louvre Guide" {
		t.Errorf("title = %q", out.Title)
	}
	if out.Content != "The Louvre is the largest art museum in Paris." {
		t.Errorf("content = %q", out.Content)
	}
	if out.Format != "markdown" {
		t.Errorf("format = %q, want markdown default", out.Format)
	}
	if out.Confidence != 0.85 {
		t.Errorf("confidence = %v, want 0.85 for bulk", out.Confidence)
	}
	if out.Source != "travel.example.com" {
		t.Errorf("source = %q", out.Source)
	}
	if out.Metadata.SourceType != string(adapter.KindBulk) {
		t.Errorf("source_type = %q", out.Metadata.SourceType)
	}
	if out.Metadata.ExtractionMethod != extract.MethodReadability {
		t.Errorf("extraction_method = %q", out.Metadata.ExtractionMethod)
	}
	if out.Metadata.PublishDate != "2026-02-14" {
		t.Errorf("publish_date = %q", out.Metadata.PublishDate)
	}
	if out.Metadata.WordCount != 9 {
		t.Errorf("word_count = %d, want 9", out.Metadata.WordCount)
	}
	if out.Guidance != nil {
		t.Error("guidance set on a successful extract")
	}
}

func TestExtractPageContentCacheIdempotent(t *testing.T) {
	// WHAT: A repeated request is served from cache, byte-identical.
	// WHY: Equal inputs inside the TTL window must not refetch, and the
	// cached payload must marshal exactly as the original did.
	bulk := servingPages(adapter.KindBulk, adapter.RawPage{
		URL:   "https://travel.example.com/louvre",
		Title: "Louvre Guide",
		Text:  "The Louvre is the largest art museum in Paris.",
	})
	svc := newTestService(t, nil, bulk)
	ctx := context.Background()
	req := &ExtractRequest{URL: "https://travel.example.com/louvre"}

	first, err := svc.ExtractPageContent(ctx, req)
	if err != nil {
		t.Fatalf("first extract: %v", err)
	}
	second, err := svc.ExtractPageContent(ctx, req)
	if err != nil {
		t.Fatalf("second extract: %v", err)
	}
	if bulk.calls != 1 {
		t.Errorf("adapter calls = %d, want 1 (second call cached)", bulk.calls)
	}

	a, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("marshal first: %v", err)
	}
	b, err := json.Marshal(second)
	if err != nil {
		t.Fatalf("marshal second: %v", err)
	}
	if string(a) != string(b) {
		t.Errorf("cached response differs:\nfirst:  %s\nsecond: %s", a, b)
	}
}

func TestExtractPageContentFallsBack(t *testing.T) {
	// WHAT: When the first adapter fails the next one serves the result.
	// WHY: Sequential fallback is the core routing behavior.
	bulk := failing(adapter.KindBulk)
	browser := servingPages(adapter.KindBrowser, adapter.RawPage{
		URL:   "https://travel.example.com/louvre",
		Title: "Louvre Guide",
		Text:  "Rendered content.",
	})
	svc := newTestService(t, nil, bulk, browser)
	ctx := context.Background()

	out, err := svc.ExtractPageContent(ctx, &ExtractRequest{URL: "https://travel.example.com/louvre"})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if bulk.calls != 1 || browser.calls != 1 {
		t.Errorf("calls = bulk %d, browser %d, want 1 each", bulk.calls, browser.calls)
	}
	if out.Metadata.SourceType != string(adapter.KindBrowser) {
		t.Errorf("source_type = %q, want browser", out.Metadata.SourceType)
	}
	if out.Confidence != 0.75 {
		t.Errorf("confidence = %v, want 0.75 for browser", out.Confidence)
	}
	task := bulk.tasks[0]
	if task.Operation != OpExtractContent {
		t.Errorf("task operation = %q", task.Operation)
	}
	if task.Domain != "travel.example.com" {
		t.Errorf("task domain = %q", task.Domain)
	}
}

func TestExtractPageContentExhaustionGuidance(t *testing.T) {
	// WHAT: Total adapter failure returns guidance, not an error, and
	// the payload is never cached.
	// WHY: The caller falls back to a general web search; caching the
	// failure would mask recovery for a whole TTL window.
	bulk := failing(adapter.KindBulk)
	browser := failing(adapter.KindBrowser)
	svc := newTestService(t, nil, bulk, browser)
	ctx := context.Background()
	req := &ExtractRequest{URL: "https://travel.example.com/louvre"}

	out, err := svc.ExtractPageContent(ctx, req)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if out.Guidance == nil {
		t.Fatal("expected guidance after exhaustion")
	}
	if !strings.Contains(out.Guidance.Reason, "all 2 source adapters failed") {
		t.Errorf("reason = %q", out.Guidance.Reason)
	}
	wantQueries := map[string]bool{
		"https://travel.example.com/louvre": true,
		"site:travel.example.com":           true,
	}
	for _, q := range out.Guidance.SuggestedQueries {
		delete(wantQueries, q)
	}
	for q := range wantQueries {
		t.Errorf("missing suggested query %q", q)
	}
	if len(out.Guidance.ResponseSections) == 0 {
		t.Error("response sections empty")
	}
	if out.Content != "" {
		t.Errorf("content = %q, want empty", out.Content)
	}
	if out.Metadata.SourceType != "unknown" {
		t.Errorf("source_type = %q, want unknown", out.Metadata.SourceType)
	}

	if _, err := svc.ExtractPageContent(ctx, req); err != nil {
		t.Fatalf("second extract: %v", err)
	}
	if bulk.calls != 2 {
		t.Errorf("bulk calls = %d, want 2 (guidance must not be cached)", bulk.calls)
	}
}

// --- search_destination_info ---

func TestSearchDestinationInfoDefaults(t *testing.T) {
	// WHAT: An empty topic list searches the default topics, one fetch
	// per topic, with deduplicated sources.
	// WHY: Most callers pass only the destination.
	hosted := servingHits(adapter.KindHosted, adapter.SearchHit{
		Title:     "Tokyo temples guide",
		URL:       "https://guide.example.com/tokyo",
		Snippet:   "The best temple walks in Tokyo.",
		Score:     0.9,
		Published: "2026-01-15",
	})
	svc := newTestService(t, nil, hosted)
	ctx := context.Background()

	out, err := svc.SearchDestinationInfo(ctx, &SearchRequest{Destination: "Tokyo"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if out.Destination != "Tokyo" {
		t.Errorf("destination = %q", out.Destination)
	}
	if hosted.calls != 4 {
		t.Errorf("adapter calls = %d, want 4 (one per default topic)", hosted.calls)
	}
	for _, topic := range []string{"attractions", "restaurants", "hotels", "transport"} {
		items, ok := out.Topics[topic]
		if !ok {
			t.Errorf("topic %q missing", topic)
			continue
		}
		if len(items) != 1 {
			t.Errorf("topic %q: %d items, want 1", topic, len(items))
		}
	}
	if len(out.Sources) != 1 || out.Sources[0] != "https://guide.example.com/tokyo" {
		t.Errorf("sources = %v, want the one deduplicated URL", out.Sources)
	}

	item := out.Topics["attractions"][0]
	if item.Title != "Tokyo temples guide" {
		t.Errorf("item title = %q", item.Title)
	}
	if item.Category != "attraction" {
		t.Errorf("item category = %q", item.Category)
	}
	if item.Confidence != 0.65 {
		t.Errorf("item confidence = %v, want 0.65 for hosted", item.Confidence)
	}
	if item.Metadata.ExtractionMethod != "search_api" {
		t.Errorf("extraction_method = %q", item.Metadata.ExtractionMethod)
	}

	task := hosted.tasks[0]
	if task.Operation != OpSearchDestination {
		t.Errorf("task operation = %q", task.Operation)
	}
	if task.Query != "Tokyo attractions" {
		t.Errorf("task query = %q", task.Query)
	}
	if task.MaxResults != 5 {
		t.Errorf("task max results = %d, want default 5", task.MaxResults)
	}
	if len(task.Seeds) == 0 || task.Seeds[0] != "https://en.wikivoyage.org/wiki/Tokyo" {
		t.Errorf("task seeds = %v", task.Seeds)
	}
}

func TestSearchDestinationInfoPartialFailure(t *testing.T) {
	// WHAT: A topic whose fetches all fail stays present with an empty
	// list; the partial result carries no guidance and is cached.
	// WHY: One dead topic must not discard the others.
	hosted := &fakeSource{kind: adapter.KindHosted, fetch: func(_ context.Context, task *adapter.Task) (*adapter.Result, error) {
		if strings.Contains(task.Query, "restaurants") {
			return nil, &adapter.FetchError{Adapter: adapter.KindHosted, Reason: "upstream 502"}
		}
		return &adapter.Result{Hits: []adapter.SearchHit{{
			Title: "Old town walking route", URL: "https://guide.example.com/lisbon",
			Snippet: "A classic sightseeing loop.",
		}}}, nil
	}}
	bulk := failing(adapter.KindBulk)
	svc := newTestService(t, nil, hosted, bulk)
	ctx := context.Background()
	req := &SearchRequest{Destination: "Lisbon", Topics: []string{"attractions", "restaurants"}}

	out, err := svc.SearchDestinationInfo(ctx, req)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(out.Topics["attractions"]) != 1 {
		t.Errorf("attractions items = %d, want 1", len(out.Topics["attractions"]))
	}
	got, ok := out.Topics["restaurants"]
	if !ok || got == nil {
		t.Fatal("failed topic must stay present with an empty list")
	}
	if len(got) != 0 {
		t.Errorf("restaurants items = %d, want 0", len(got))
	}
	if out.Guidance != nil {
		t.Error("guidance set on a partial success")
	}

	hostedBefore, bulkBefore := hosted.calls, bulk.calls
	if _, err := svc.SearchDestinationInfo(ctx, req); err != nil {
		t.Fatalf("second search: %v", err)
	}
	if hosted.calls != hostedBefore || bulk.calls != bulkBefore {
		t.Error("partial success was not cached")
	}
}

func TestSearchDestinationInfoCacheKeyCanonical(t *testing.T) {
	// WHAT: Topic order and case do not affect the cache identity.
	// WHY: Equal parameter sets must map to one cache entry.
	hosted := servingHits(adapter.KindHosted, adapter.SearchHit{
		Title: "Market halls", URL: "https://guide.example.com/food", Snippet: "Where to eat.",
	})
	svc := newTestService(t, nil, hosted)
	ctx := context.Background()

	if _, err := svc.SearchDestinationInfo(ctx, &SearchRequest{
		Destination: "Lisbon", Topics: []string{"food", "culture"},
	}); err != nil {
		t.Fatalf("first search: %v", err)
	}
	before := hosted.calls

	out, err := svc.SearchDestinationInfo(ctx, &SearchRequest{
		Destination: "Lisbon", Topics: []string{"Culture", "food"},
	})
	if err != nil {
		t.Fatalf("second search: %v", err)
	}
	if hosted.calls != before {
		t.Errorf("adapter calls grew %d -> %d, want cache hit", before, hosted.calls)
	}
	if _, ok := out.Topics["food"]; !ok {
		t.Error("cached payload missing topic from first request")
	}
}

func TestSearchDestinationInfoExhaustionGuidance(t *testing.T) {
	// WHAT: When every topic fails the empty shape carries guidance
	// naming the destination.
	// WHY: Exhaustion degrades to advice, never to an error.
	hosted := failing(adapter.KindHosted)
	bulk := failing(adapter.KindBulk)
	svc := newTestService(t, nil, hosted, bulk)
	ctx := context.Background()

	out, err := svc.SearchDestinationInfo(ctx, &SearchRequest{Destination: "Lisbon", Topics: []string{"food"}})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if out.Guidance == nil {
		t.Fatal("expected guidance after exhaustion")
	}
	joined := strings.Join(out.Guidance.SuggestedQueries, "\n")
	if !strings.Contains(joined, "Lisbon food") || !strings.Contains(joined, "Lisbon travel guide") {
		t.Errorf("suggested queries = %v", out.Guidance.SuggestedQueries)
	}
	if len(out.Topics["food"]) != 0 {
		t.Errorf("topics not empty: %v", out.Topics)
	}
}

// --- get_latest_events ---

func TestGetLatestEvents(t *testing.T) {
	// WHAT: Events are date-filtered, sorted with undated entries last,
	// categorized and counted; sources list every consulted URL.
	// WHY: The date window and ordering are the contract of the shape.
	hosted := servingHits(adapter.KindHosted,
		adapter.SearchHit{
			Title: "Louvre Museum Night", URL: "https://events.example.com/louvre",
			Snippet: "Evening opening with guided tours. Tickets $30", Published: "2026-07-14T19:30:00Z",
		},
		adapter.SearchHit{
			Title: "Harbor Jazz Evening", URL: "https://events.example.com/jazz",
			Snippet: "Open-air concert with free entry.", Published: "2026-07-05",
		},
		adapter.SearchHit{
			Title: "Autumn Wine Fair", URL: "https://events.example.com/wine",
			Snippet: "Seasonal tastings.", Published: "2026-09-10",
		},
		adapter.SearchHit{
			Title: "Street Food Stalls", URL: "https://events.example.com/street",
			Snippet: "Nightly street food gathering.",
		},
	)
	svc := newTestService(t, nil, hosted)
	ctx := context.Background()

	out, err := svc.GetLatestEvents(ctx, &EventsRequest{
		Destination: "Paris", StartDate: "2026-07-01", EndDate: "2026-07-31",
	})
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if out.DateRange.Start != "2026-07-01" || out.DateRange.End != "2026-07-31" {
		t.Errorf("date range = %+v", out.DateRange)
	}
	if out.EventCount != 3 || len(out.Events) != 3 {
		t.Fatalf("event count = %d (%d events), want 3", out.EventCount, len(out.Events))
	}
	if out.Events[0].Name != "Harbor Jazz Evening" {
		t.Errorf("events[0] = %q, want earliest date first", out.Events[0].Name)
	}
	if out.Events[2].Name != "Street Food Stalls" || out.Events[2].Date != "" {
		t.Errorf("events[2] = %q (%q), want undated last", out.Events[2].Name, out.Events[2].Date)
	}

	louvre := out.Events[1]
	if louvre.Date != "2026-07-14" || louvre.Time != "19:30" {
		t.Errorf("louvre date/time = %q %q", louvre.Date, louvre.Time)
	}
	if louvre.Category != "attraction" {
		t.Errorf("louvre category = %q", louvre.Category)
	}
	if louvre.PriceRange != "$30" {
		t.Errorf("louvre price range = %q", louvre.PriceRange)
	}
	if out.Events[0].PriceRange != "Free" {
		t.Errorf("jazz price range = %q", out.Events[0].PriceRange)
	}

	want := map[string]int{"attraction": 1, "general": 1, "restaurant": 1}
	for cat, n := range want {
		if out.Categories[cat] != n {
			t.Errorf("categories[%s] = %d, want %d", cat, out.Categories[cat], n)
		}
	}
	if len(out.Sources) != 4 {
		t.Errorf("sources = %v, want all 4 consulted URLs", out.Sources)
	}
}

func TestGetLatestEventsCategoryFilter(t *testing.T) {
	// WHAT: A category filter keeps only matching events.
	// WHY: Filtering happens after normalization, on canonical labels.
	hosted := servingHits(adapter.KindHosted,
		adapter.SearchHit{
			Title: "Louvre Museum Night", URL: "https://events.example.com/louvre",
			Snippet: "Evening opening.", Published: "2026-07-14",
		},
		adapter.SearchHit{
			Title: "Street Food Stalls", URL: "https://events.example.com/street",
			Snippet: "Nightly street food gathering.", Published: "2026-07-20",
		},
	)
	svc := newTestService(t, nil, hosted)
	ctx := context.Background()

	out, err := svc.GetLatestEvents(ctx, &EventsRequest{
		Destination: "Paris", StartDate: "2026-07-01", EndDate: "2026-07-31",
		Categories: []string{"attraction"},
	})
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if out.EventCount != 1 || out.Events[0].Name != "Louvre Museum Night" {
		t.Errorf("filtered events = %+v", out.Events)
	}
}

func TestGetLatestEventsExhaustionGuidance(t *testing.T) {
	// WHAT: Total failure yields the empty shape plus guidance whose
	// first query names destination and range.
	// WHY: The caller needs ready-made queries for its web-search tool.
	hosted := failing(adapter.KindHosted)
	bulk := failing(adapter.KindBulk)
	svc := newTestService(t, nil, hosted, bulk)
	ctx := context.Background()
	req := &EventsRequest{Destination: "Paris", StartDate: "2026-07-01", EndDate: "2026-07-31"}

	out, err := svc.GetLatestEvents(ctx, req)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if out.Events == nil || len(out.Events) != 0 || out.EventCount != 0 {
		t.Errorf("events = %v (count %d), want empty", out.Events, out.EventCount)
	}
	if out.Guidance == nil {
		t.Fatal("expected guidance after exhaustion")
	}
	if out.Guidance.SuggestedQueries[0] != "Paris events 2026-07-01 to 2026-07-31" {
		t.Errorf("first query = %q", out.Guidance.SuggestedQueries[0])
	}

	before := hosted.calls
	if _, err := svc.GetLatestEvents(ctx, req); err != nil {
		t.Fatalf("second events: %v", err)
	}
	if hosted.calls == before {
		t.Error("exhausted result was cached")
	}
}

// --- monitor_price_changes ---

func monitoredPage(url, priceText string) adapter.RawPage {
	return adapter.RawPage{
		URL:        url,
		Title:      "Room rates",
		Text:       "Book now.",
		Selections: map[string][]string{".price": {priceText}},
	}
}

func TestMonitorPriceChangesCreates(t *testing.T) {
	// WHAT: A new monitor runs its first check: initial and current
	// price coincide, one history entry, next check per frequency.
	// WHY: The first observation seeds the baseline all change
	// percentages are computed from.
	clock := newTestClock()
	bulk := servingPages(adapter.KindBulk, monitoredPage("https://shop.example.net/room", "$1,299.99"))
	svc := newTestService(t, clock, bulk)
	ctx := context.Background()

	out, err := svc.MonitorPriceChanges(ctx, &MonitorRequest{
		URL: "https://shop.example.net/room", PriceSelector: ".price",
	})
	if err != nil {
		t.Fatalf("monitor: %v", err)
	}
	if !strings.HasPrefix(out.MonitoringID, "mon_") {
		t.Errorf("monitoring_id = %q", out.MonitoringID)
	}
	if out.Status != MonitorActive {
		t.Errorf("status = %q", out.Status)
	}
	if out.InitialPrice.Amount != 1299.99 || out.InitialPrice.Currency != "USD" {
		t.Errorf("initial price = %+v", out.InitialPrice)
	}
	if out.CurrentPrice.Amount != 1299.99 {
		t.Errorf("current price = %+v", out.CurrentPrice)
	}
	if len(out.History) != 1 {
		t.Fatalf("history = %d entries, want 1", len(out.History))
	}
	if out.History[0].ChangePct != 0 {
		t.Errorf("history change = %v, want 0", out.History[0].ChangePct)
	}
	if out.NextCheck != "2026-03-02T12:00:00Z" {
		t.Errorf("next_check = %q, want one day after the check", out.NextCheck)
	}
	if out.Source != "shop.example.net" {
		t.Errorf("source = %q", out.Source)
	}
	if out.Metadata.ExtractionMethod != extract.MethodSelectors {
		t.Errorf("extraction_method = %q", out.Metadata.ExtractionMethod)
	}
}

func TestMonitorPriceChangesReusesMonitor(t *testing.T) {
	// WHAT: The same URL and selector map to the same monitor across
	// calls, regardless of other parameters.
	// WHY: Monitor identity is the target, not the request.
	clock := newTestClock()
	bulk := servingPages(adapter.KindBulk, monitoredPage("https://shop.example.net/room", "$1,299.99"))
	svc := newTestService(t, clock, bulk)
	ctx := context.Background()

	first, err := svc.MonitorPriceChanges(ctx, &MonitorRequest{
		URL: "https://shop.example.net/room", PriceSelector: ".price",
	})
	if err != nil {
		t.Fatalf("first monitor: %v", err)
	}
	second, err := svc.MonitorPriceChanges(ctx, &MonitorRequest{
		URL: "https://shop.example.net/room", PriceSelector: ".price", Frequency: "weekly",
	})
	if err != nil {
		t.Fatalf("second monitor: %v", err)
	}
	if second.MonitoringID != first.MonitoringID {
		t.Errorf("monitor ids differ: %q vs %q", first.MonitoringID, second.MonitoringID)
	}
	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Monitors != 1 {
		t.Errorf("monitors = %d, want 1", stats.Monitors)
	}
	if len(second.History) != 2 {
		t.Errorf("history = %d entries, want 2 after the second check", len(second.History))
	}
}

func TestMonitorPriceChangesTriggers(t *testing.T) {
	// WHAT: A price drop past the threshold flips the monitor to
	// triggered, with the change recorded in history.
	// WHY: Threshold crossing is the one state transition callers poll for.
	clock := newTestClock()
	price := "$100"
	bulk := &fakeSource{kind: adapter.KindBulk, fetch: func(_ context.Context, task *adapter.Task) (*adapter.Result, error) {
		return &adapter.Result{Pages: []adapter.RawPage{monitoredPage(task.URL, price)}}, nil
	}}
	svc := newTestService(t, clock, bulk)
	ctx := context.Background()
	req := &MonitorRequest{URL: "https://shop.example.net/room", PriceSelector: ".price"}

	first, err := svc.MonitorPriceChanges(ctx, req)
	if err != nil {
		t.Fatalf("first monitor: %v", err)
	}
	if first.Status != MonitorActive {
		t.Fatalf("status = %q, want active", first.Status)
	}

	clock.Advance(2 * time.Hour) // past the price cache TTL
	price = "$89.50"
	second, err := svc.MonitorPriceChanges(ctx, req)
	if err != nil {
		t.Fatalf("second monitor: %v", err)
	}
	if second.Status != MonitorTriggered {
		t.Errorf("status = %q, want triggered", second.Status)
	}
	if second.InitialPrice.Amount != 100 {
		t.Errorf("initial price = %v, must not move", second.InitialPrice.Amount)
	}
	if second.CurrentPrice.Amount != 89.5 {
		t.Errorf("current price = %v", second.CurrentPrice.Amount)
	}
	if len(second.History) != 2 {
		t.Fatalf("history = %d entries, want 2", len(second.History))
	}
	if second.History[0].Amount != 89.5 {
		t.Errorf("latest history amount = %v", second.History[0].Amount)
	}
	if math.Abs(second.History[0].ChangePct-(-10.5)) > 1e-9 {
		t.Errorf("latest history change = %v, want -10.5", second.History[0].ChangePct)
	}
}

func TestMonitorPriceChangesNoPriceNotCached(t *testing.T) {
	// WHAT: A fetch that finds no price at the selector reports status
	// error and the result is not cached.
	// WHY: The page may fix itself; the error state must not stick for
	// a TTL window.
	clock := newTestClock()
	bulk := servingPages(adapter.KindBulk, adapter.RawPage{
		URL: "https://shop.example.net/room", Title: "Room rates", Text: "Sold out.",
	})
	svc := newTestService(t, clock, bulk)
	ctx := context.Background()
	req := &MonitorRequest{URL: "https://shop.example.net/room", PriceSelector: ".price"}

	out, err := svc.MonitorPriceChanges(ctx, req)
	if err != nil {
		t.Fatalf("monitor: %v", err)
	}
	if out.Status != MonitorError {
		t.Errorf("status = %q, want error", out.Status)
	}
	if len(out.History) != 0 {
		t.Errorf("history = %d entries, want 0", len(out.History))
	}

	if _, err := svc.MonitorPriceChanges(ctx, req); err != nil {
		t.Fatalf("second monitor: %v", err)
	}
	if bulk.calls != 2 {
		t.Errorf("adapter calls = %d, want 2 (error state must not be cached)", bulk.calls)
	}
}

func TestMonitorPriceChangesExhaustionGuidance(t *testing.T) {
	// WHAT: When no adapter reaches the page the monitor still exists
	// and the result carries guidance with the host query.
	// WHY: Registration must survive a dead first fetch.
	clock := newTestClock()
	bulk := failing(adapter.KindBulk)
	svc := newTestService(t, clock, bulk)
	ctx := context.Background()

	out, err := svc.MonitorPriceChanges(ctx, &MonitorRequest{
		URL: "https://shop.example.net/room", PriceSelector: ".price",
	})
	if err != nil {
		t.Fatalf("monitor: %v", err)
	}
	if out.Guidance == nil {
		t.Fatal("expected guidance after exhaustion")
	}
	if out.Guidance.SuggestedQueries[0] != "shop.example.net current price" {
		t.Errorf("first query = %q", out.Guidance.SuggestedQueries[0])
	}
	if !strings.HasPrefix(out.MonitoringID, "mon_") {
		t.Errorf("monitoring_id = %q, monitor should exist", out.MonitoringID)
	}

	got, err := svc.GetPriceMonitor(ctx, out.MonitoringID)
	if err != nil {
		t.Fatalf("get monitor: %v", err)
	}
	if got.Status != MonitorActive {
		t.Errorf("stored status = %q", got.Status)
	}
}

func TestGetPriceMonitorLifecycle(t *testing.T) {
	// WHAT: Get, list, and delete work on stored monitors; unknown IDs
	// return the sentinel error.
	// WHY: These admin operations back the HTTP and MCP surfaces.
	clock := newTestClock()
	bulk := servingPages(adapter.KindBulk, monitoredPage("https://shop.example.net/room", "$42"))
	svc := newTestService(t, clock, bulk)
	ctx := context.Background()

	created, err := svc.MonitorPriceChanges(ctx, &MonitorRequest{
		URL: "https://shop.example.net/room", PriceSelector: ".price",
	})
	if err != nil {
		t.Fatalf("monitor: %v", err)
	}

	got, err := svc.GetPriceMonitor(ctx, created.MonitoringID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.MonitoringID != created.MonitoringID {
		t.Errorf("id = %q", got.MonitoringID)
	}

	if _, err := svc.GetPriceMonitor(ctx, "mon_missing"); !errors.Is(err, ErrMonitorNotFound) {
		t.Errorf("get unknown: %v, want ErrMonitorNotFound", err)
	}

	list, err := svc.ListPriceMonitors(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("list = %d monitors, want 1", len(list))
	}

	if err := svc.DeletePriceMonitor(ctx, created.MonitoringID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.GetPriceMonitor(ctx, created.MonitoringID); !errors.Is(err, ErrMonitorNotFound) {
		t.Errorf("get after delete: %v, want ErrMonitorNotFound", err)
	}
	if err := svc.DeletePriceMonitor(ctx, created.MonitoringID); !errors.Is(err, ErrMonitorNotFound) {
		t.Errorf("double delete: %v, want ErrMonitorNotFound", err)
	}
}

func TestCheckDueMonitors(t *testing.T) {
	// WHAT: Only monitors past their next check time are re-fetched.
	// WHY: The background loop must respect per-monitor schedules.
	clock := newTestClock()
	bulk := &fakeSource{kind: adapter.KindBulk, fetch: func(_ context.Context, task *adapter.Task) (*adapter.Result, error) {
		return &adapter.Result{Pages: []adapter.RawPage{monitoredPage(task.URL, "$75")}}, nil
	}}
	svc := newTestService(t, clock, bulk)
	ctx := context.Background()

	for _, url := range []string{"https://shop.example.net/a", "https://shop.example.net/b"} {
		if _, err := svc.MonitorPriceChanges(ctx, &MonitorRequest{URL: url, PriceSelector: ".price"}); err != nil {
			t.Fatalf("monitor %s: %v", url, err)
		}
	}
	if bulk.calls != 2 {
		t.Fatalf("adapter calls = %d after setup, want 2", bulk.calls)
	}

	checked, err := svc.CheckDueMonitors(ctx)
	if err != nil {
		t.Fatalf("check due: %v", err)
	}
	if checked != 0 || bulk.calls != 2 {
		t.Errorf("checked = %d (calls %d), nothing should be due yet", checked, bulk.calls)
	}

	clock.Advance(25 * time.Hour)
	checked, err = svc.CheckDueMonitors(ctx)
	if err != nil {
		t.Fatalf("check due: %v", err)
	}
	if checked != 2 || bulk.calls != 4 {
		t.Errorf("checked = %d (calls %d), want both monitors checked", checked, bulk.calls)
	}

	checked, err = svc.CheckDueMonitors(ctx)
	if err != nil {
		t.Fatalf("check due: %v", err)
	}
	if checked != 0 {
		t.Errorf("checked = %d right after a pass, want 0", checked)
	}
}

// --- crawl_travel_blog ---

func TestCrawlTravelBlog(t *testing.T) {
	// WHAT: Blog pages become per-topic insights with sentiment labels;
	// recent_only drops posts older than a year but keeps undated ones.
	// WHY: The recency filter and sentiment are what distinguish this
	// operation from a plain search.
	clock := newTestClock()
	bulk := servingPages(adapter.KindBulk,
		adapter.RawPage{
			URL: "https://blog.example.com/old", Title: "Dusty Archive",
			Text: "It was okay overall.",
			Meta: extract.Meta{PublishDate: "2020-01-01"},
		},
		adapter.RawPage{
			URL: "https://blog.example.com/new", Title: "Amazing Week",
			Text: "Amazing food and a wonderful stay. Highly recommend.",
			Meta: extract.Meta{PublishDate: "2026-02-20"},
		},
		adapter.RawPage{
			URL: "https://blog.example.com/undated", Title: "Notes",
			Text: "Average transit, decent prices.",
		},
	)
	svc := newTestService(t, clock, bulk)
	ctx := context.Background()

	out, err := svc.CrawlTravelBlog(ctx, &BlogRequest{Destination: "Lisbon", Topics: []string{"food"}})
	if err != nil {
		t.Fatalf("blog: %v", err)
	}
	task := bulk.tasks[0]
	if !task.SameDomain || len(task.Seeds) == 0 || task.MaxPages != 3 {
		t.Errorf("blog task: same_domain %v, %d seeds, max_pages %d; want a confined seeded crawl capped at 3",
			task.SameDomain, len(task.Seeds), task.MaxPages)
	}
	items := out.Topics["food"]
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2 (old post dropped, undated kept)", len(items))
	}
	if items[0].Title != "Amazing Week" || items[0].Sentiment != "positive" {
		t.Errorf("items[0] = %q sentiment %q", items[0].Title, items[0].Sentiment)
	}
	if items[1].Title != "Notes" || items[1].Sentiment != "neutral" {
		t.Errorf("items[1] = %q sentiment %q", items[1].Title, items[1].Sentiment)
	}
	if len(out.Sources) != 3 {
		t.Errorf("sources = %d, want all 3 crawled blogs", len(out.Sources))
	}
	if out.ExtractionDate == "" {
		t.Error("extraction_date missing")
	}

	all := false
	out2, err := svc.CrawlTravelBlog(ctx, &BlogRequest{
		Destination: "Lisbon", Topics: []string{"food"}, RecentOnly: &all,
	})
	if err != nil {
		t.Fatalf("blog without filter: %v", err)
	}
	if len(out2.Topics["food"]) != 3 {
		t.Errorf("unfiltered items = %d, want 3", len(out2.Topics["food"]))
	}
}

func TestCrawlTravelBlogDefaultsTopics(t *testing.T) {
	// WHAT: An empty topic list crawls the default blog topics.
	// WHY: Parity with destination search defaults.
	bulk := servingPages(adapter.KindBulk, adapter.RawPage{
		URL: "https://blog.example.com/post", Title: "Trip Notes", Text: "Great days out.",
	})
	svc := newTestService(t, nil, bulk)
	ctx := context.Background()

	out, err := svc.CrawlTravelBlog(ctx, &BlogRequest{Destination: "Porto"})
	if err != nil {
		t.Fatalf("blog: %v", err)
	}
	if len(out.Topics) != 4 {
		t.Errorf("topics = %d, want the 4 defaults", len(out.Topics))
	}
	for _, topic := range []string{"highlights", "food", "budget", "tips"} {
		if _, ok := out.Topics[topic]; !ok {
			t.Errorf("topic %q missing", topic)
		}
	}
	if bulk.calls != 4 {
		t.Errorf("adapter calls = %d, want 4", bulk.calls)
	}
}

// --- selection ---

func TestSelectorPrefersProvenAdapter(t *testing.T) {
	// WHAT: After enough recorded failures the failing adapter sinks
	// below an untried one for that domain and operation.
	// WHY: Recorded outcomes re-rank the static default order.
	bulk := servingPages(adapter.KindBulk, adapter.RawPage{
		URL: "https://example.com/a", Title: "Bulk copy", Text: "From the crawler.",
	})
	browser := servingPages(adapter.KindBrowser, adapter.RawPage{
		URL: "https://example.com/a", Title: "Browser copy", Text: "From the browser.",
	})
	svc := newTestService(t, nil, bulk, browser)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := svc.store.RecordOutcome(ctx, "example.com", string(adapter.KindBulk), OpExtractContent, false); err != nil {
			t.Fatalf("record outcome: %v", err)
		}
	}

	out, err := svc.ExtractPageContent(ctx, &ExtractRequest{URL: "https://example.com/a"})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if browser.calls != 1 || bulk.calls != 0 {
		t.Errorf("calls = browser %d, bulk %d; browser should be tried first", browser.calls, bulk.calls)
	}
	if out.Metadata.SourceType != string(adapter.KindBrowser) {
		t.Errorf("source_type = %q", out.Metadata.SourceType)
	}
}

func TestWithStatsRoutesOutcomes(t *testing.T) {
	// WHAT: With an injected stats store, fetch outcomes land there and
	// the sqlite selector_stats table stays empty.
	// WHY: Ephemeral runs swap in selector.NewMemoryStats without losing
	// adapter re-ranking or writing throwaway rows.
	bulk := servingPages(adapter.KindBulk, adapter.RawPage{
		URL: "https://travel.example.com/guide", Title: "Guide", Text: "A short walking guide.",
	})
	mem := selector.NewMemoryStats(0)
	svc, err := New(dbopen.OpenMemory(t), &Config{DisableBrowser: true}, discardLogger(),
		WithURLValidator(func(string) error { return nil }),
		WithAdapters(bulk),
		WithStats(mem),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	t.Cleanup(func() { svc.Close() })
	ctx := context.Background()

	if _, err := svc.ExtractPageContent(ctx, &ExtractRequest{URL: "https://travel.example.com/guide"}); err != nil {
		t.Fatalf("extract: %v", err)
	}

	rate, samples, err := mem.SuccessRate(ctx, "travel.example.com", string(adapter.KindBulk), OpExtractContent)
	if err != nil {
		t.Fatalf("success rate: %v", err)
	}
	if rate != 1.0 || samples != 1 {
		t.Errorf("memory stats = rate %v, samples %d; want 1.0 and 1", rate, samples)
	}

	var rows int
	if err := svc.store.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM selector_stats`).Scan(&rows); err != nil {
		t.Fatalf("count selector_stats: %v", err)
	}
	if rows != 0 {
		t.Errorf("selector_stats rows = %d, want 0 with an injected store", rows)
	}
}

// --- maintenance ---

func TestStatsCounters(t *testing.T) {
	// WHAT: Stats reflect cache entries, monitors, and per-adapter
	// fetch outcomes.
	// WHY: The stats endpoints report these counters verbatim.
	clock := newTestClock()
	bulk := &fakeSource{kind: adapter.KindBulk, fetch: func(_ context.Context, task *adapter.Task) (*adapter.Result, error) {
		if task.Operation == OpMonitorPrice {
			return &adapter.Result{Pages: []adapter.RawPage{monitoredPage(task.URL, "$10")}}, nil
		}
		return &adapter.Result{Pages: []adapter.RawPage{{URL: task.URL, Title: "Page", Text: "Body."}}}, nil
	}}
	svc := newTestService(t, clock, bulk)
	ctx := context.Background()

	if _, err := svc.ExtractPageContent(ctx, &ExtractRequest{URL: "https://travel.example.com/a"}); err != nil {
		t.Fatalf("extract: %v", err)
	}
	if _, err := svc.MonitorPriceChanges(ctx, &MonitorRequest{
		URL: "https://shop.example.net/room", PriceSelector: ".price",
	}); err != nil {
		t.Fatalf("monitor: %v", err)
	}

	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.CacheEntries != 2 {
		t.Errorf("cache entries = %d, want 2", stats.CacheEntries)
	}
	if stats.Monitors != 1 {
		t.Errorf("monitors = %d, want 1", stats.Monitors)
	}
	if stats.FetchLogs != 2 {
		t.Errorf("fetch logs = %d, want 2", stats.FetchLogs)
	}
	if len(stats.Adapters) != 1 || stats.Adapters[0].Adapter != string(adapter.KindBulk) {
		t.Fatalf("adapters = %+v", stats.Adapters)
	}
	if stats.Adapters[0].Successes != 2 || stats.Adapters[0].Failures != 0 {
		t.Errorf("adapter counts = %+v", stats.Adapters[0])
	}
}

func TestPruneRemovesExpiredCache(t *testing.T) {
	// WHAT: Prune deletes cache entries past their TTL.
	// WHY: TTL expiry only hides entries from reads; the background
	// prune reclaims the rows.
	clock := newTestClock()
	bulk := servingPages(adapter.KindBulk, adapter.RawPage{
		URL: "https://travel.example.com/a", Title: "Page", Text: "Body.",
	})
	svc := newTestService(t, clock, bulk)
	ctx := context.Background()

	if _, err := svc.ExtractPageContent(ctx, &ExtractRequest{URL: "https://travel.example.com/a"}); err != nil {
		t.Fatalf("extract: %v", err)
	}
	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.CacheEntries != 1 {
		t.Fatalf("cache entries = %d before prune, want 1", stats.CacheEntries)
	}

	clock.Advance(7 * time.Hour) // past the extract TTL
	if err := svc.Prune(ctx); err != nil {
		t.Fatalf("prune: %v", err)
	}
	stats, err = svc.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.CacheEntries != 0 {
		t.Errorf("cache entries = %d after prune, want 0", stats.CacheEntries)
	}
}

// --- validation ---

func TestValidation(t *testing.T) {
	// WHAT: Malformed input produces a ValidationError naming the field,
	// before any fetch happens.
	// WHY: The structured error object is the only error shape callers see.
	bulk := failing(adapter.KindBulk)
	svc := newTestService(t, nil, bulk)
	ctx := context.Background()

	cases := []struct {
		name string
		call func() error
		want string
	}{
		{"extract empty url", func() error {
			_, err := svc.ExtractPageContent(ctx, &ExtractRequest{})
			return err
		}, "url is required"},
		{"extract bad format", func() error {
			_, err := svc.ExtractPageContent(ctx, &ExtractRequest{URL: "https://example.com", Format: "pdf"})
			return err
		}, "format must be one of"},
		{"search empty destination", func() error {
			_, err := svc.SearchDestinationInfo(ctx, &SearchRequest{})
			return err
		}, "destination is required"},
		{"search too many topics", func() error {
			topics := make([]string, 11)
			for i := range topics {
				topics[i] = "topic"
			}
			_, err := svc.SearchDestinationInfo(ctx, &SearchRequest{Destination: "Paris", Topics: topics})
			return err
		}, "at most 10"},
		{"search max results over cap", func() error {
			_, err := svc.SearchDestinationInfo(ctx, &SearchRequest{Destination: "Paris", MaxResults: 21})
			return err
		}, "max_results must be between"},
		{"events bad date", func() error {
			_, err := svc.GetLatestEvents(ctx, &EventsRequest{Destination: "Paris", StartDate: "July 4", EndDate: "2026-07-31"})
			return err
		}, "ISO date"},
		{"events inverted range", func() error {
			_, err := svc.GetLatestEvents(ctx, &EventsRequest{Destination: "Paris", StartDate: "2026-07-31", EndDate: "2026-07-01"})
			return err
		}, "end_date is before start_date"},
		{"events unknown category", func() error {
			_, err := svc.GetLatestEvents(ctx, &EventsRequest{
				Destination: "Paris", StartDate: "2026-07-01", EndDate: "2026-07-31",
				Categories: []string{"nightlife"},
			})
			return err
		}, "unknown category"},
		{"monitor missing selector", func() error {
			_, err := svc.MonitorPriceChanges(ctx, &MonitorRequest{URL: "https://example.com"})
			return err
		}, "price_selector is required"},
		{"monitor bad frequency", func() error {
			_, err := svc.MonitorPriceChanges(ctx, &MonitorRequest{
				URL: "https://example.com", PriceSelector: ".p", Frequency: "fortnightly",
			})
			return err
		}, "frequency must be one of"},
		{"monitor negative threshold", func() error {
			_, err := svc.MonitorPriceChanges(ctx, &MonitorRequest{
				URL: "https://example.com", PriceSelector: ".p", NotificationThreshold: -1,
			})
			return err
		}, "must not be negative"},
		{"blog max over cap", func() error {
			_, err := svc.CrawlTravelBlog(ctx, &BlogRequest{Destination: "Paris", MaxBlogs: 11})
			return err
		}, "max_blogs must be between"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.call()
			if err == nil {
				t.Fatal("expected a validation error")
			}
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("errors.Is(ErrInvalidInput) = false for %v", err)
			}
			ve, ok := AsValidation(err)
			if !ok {
				t.Fatalf("not a ValidationError: %v", err)
			}
			if !ve.IsError {
				t.Error("IsError = false")
			}
			if !strings.Contains(ve.Message, tc.want) {
				t.Errorf("message = %q, want substring %q", ve.Message, tc.want)
			}
		})
	}

	if bulk.calls != 0 {
		t.Errorf("adapter calls = %d, validation must run before any fetch", bulk.calls)
	}
}

func TestValidationErrorJSON(t *testing.T) {
	// WHAT: The validation error marshals to the structured object.
	// WHY: Transports serialize it verbatim for clients.
	raw, err := json.Marshal(invalidf("url is required"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"error":true,"message":"url is required"}`
	if string(raw) != want {
		t.Errorf("json = %s, want %s", raw, want)
	}
}
