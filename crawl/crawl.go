// Package crawl is the content-acquisition core of the travel
// assistant: five operations (page extraction, destination search,
// price monitoring, event lookup, blog insights) routed across three
// source adapters with fallback, normalized into canonical shapes, and
// cached with per-operation TTLs. Total source failure degrades to a
// structured websearch guidance payload instead of an error.
package crawl

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/tripsage/webcrawl/crawl/internal/adapter"
	"github.com/tripsage/webcrawl/crawl/internal/normalize"
	"github.com/tripsage/webcrawl/crawl/internal/pipeline"
	"github.com/tripsage/webcrawl/crawl/internal/selector"
	"github.com/tripsage/webcrawl/crawl/internal/store"
	"github.com/tripsage/webcrawl/extract"
	"github.com/tripsage/webcrawl/idgen"
	"github.com/tripsage/webcrawl/safeurl"
)

// Service ties selector, fallback runner, normalizer, and cache
// together behind the five public operations.
type Service struct {
	store        *store.Store
	selector     *selector.Selector
	runner       *pipeline.Runner
	formatter    *normalize.Formatter
	logger       *slog.Logger
	config       *Config
	newID        idgen.Generator
	monitorID    idgen.Generator
	urlValidator func(string) error
	now          func() time.Time
	adapters     []adapter.SourceAdapter
	stats        selector.StatsStore
	closers      []io.Closer
}

// New creates the crawl service on an open database. The schema is
// applied, the adapters the config allows are constructed, and the
// selector and fallback runner are wired over them. Callers own the
// database handle; Close releases adapter resources only.
func New(db *sql.DB, cfg *Config, logger *slog.Logger, opts ...ServiceOption) (*Service, error) {
	if cfg == nil {
		cfg = defaultConfig()
	}
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	if err := store.ApplySchema(db); err != nil {
		return nil, fmt.Errorf("crawl: apply schema: %w", err)
	}
	st := store.NewStore(db)
	svc := &Service{
		store:        st,
		formatter:    normalize.NewFormatter(),
		logger:       logger,
		config:       cfg,
		newID:        idgen.Default,
		monitorID:    idgen.Prefixed("mon_", idgen.UUIDv7()),
		urlValidator: safeurl.Validate,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}

	adapters := svc.adapters
	if len(adapters) == 0 {
		adapters = svc.buildAdapters()
	}
	if len(adapters) == 0 {
		return nil, fmt.Errorf("crawl: no source adapters available")
	}
	kinds := make([]adapter.Kind, len(adapters))
	for i, a := range adapters {
		kinds[i] = a.Kind()
	}
	stats := svc.stats
	if stats == nil {
		stats = st
	}
	svc.selector = selector.New(stats, kinds, selector.Config{Logger: logger})
	svc.runner = pipeline.New(adapters, stats, st, pipeline.Config{Logger: logger, NewID: svc.newID})
	return svc, nil
}

// buildAdapters constructs the source adapters the config enables. The
// bulk crawler is always on; the browser drops out when no Chrome is
// reachable and hosted search when no API key is set, so a degraded
// install still serves every operation over the remaining chain.
func (svc *Service) buildAdapters() []adapter.SourceAdapter {
	cfg := svc.config
	out := []adapter.SourceAdapter{
		adapter.NewBulk(adapter.BulkConfig{
			UserAgent:   cfg.UserAgent,
			ValidateURL: svc.urlValidator,
		}),
	}
	if !cfg.DisableBrowser {
		br, err := adapter.NewBrowser(adapter.BrowserConfig{
			RemoteURL:   cfg.BrowserRemoteURL,
			ValidateURL: svc.urlValidator,
			Logger:      svc.logger,
		})
		if err != nil {
			svc.logger.Warn("browser adapter unavailable", "error", err)
		} else {
			out = append(out, br)
			svc.closers = append(svc.closers, br)
		}
	}
	if cfg.SearchAPIKey != "" {
		hosted, err := adapter.NewHosted(adapter.HostedConfig{
			APIHost: cfg.SearchAPIHost,
			APIKey:  cfg.SearchAPIKey,
		})
		if err != nil {
			svc.logger.Warn("hosted search adapter unavailable", "error", err)
		} else {
			out = append(out, hosted)
		}
	}
	return out
}

// Close releases adapter resources (the browser's Chrome process). The
// database handle is the caller's to close.
func (svc *Service) Close() error {
	var firstErr error
	for _, c := range svc.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ServiceOption configures a Service during creation.
type ServiceOption func(*Service)

// WithURLValidator overrides URL validation (default: safeurl.Validate).
// Use in tests with httptest servers that listen on loopback addresses.
func WithURLValidator(fn func(string) error) ServiceOption {
	return func(svc *Service) { svc.urlValidator = fn }
}

// WithClock overrides the service clock. Tests use it to cross cache
// TTL boundaries without sleeping.
func WithClock(now func() time.Time) ServiceOption {
	return func(svc *Service) { svc.now = now }
}

// WithAdapters replaces the config-driven adapter set. The service does
// not manage injected adapters' lifecycles; callers close them.
func WithAdapters(adapters ...adapter.SourceAdapter) ServiceOption {
	return func(svc *Service) { svc.adapters = adapters }
}

// WithStats replaces the sqlite-backed success statistics, for example
// with selector.NewMemoryStats for ephemeral runs.
func WithStats(stats selector.StatsStore) ServiceOption {
	return func(svc *Service) { svc.stats = stats }
}

// ApplySchema applies the crawl schema to a database. Exported for the
// server binary and migration scripts.
func ApplySchema(db *sql.DB) error {
	return store.ApplySchema(db)
}

// --- Operations ---

// ExtractPageContent fetches one page and returns its normalized
// content in the requested format.
func (svc *Service) ExtractPageContent(ctx context.Context, req *ExtractRequest) (*PageContent, error) {
	if err := svc.validateExtract(req); err != nil {
		return nil, err
	}

	key := extractKey(req)
	var hit PageContent
	if svc.cached(ctx, key, &hit) {
		return &hit, nil
	}

	task := &adapter.Task{
		Operation:      OpExtractContent,
		URL:            req.URL,
		Domain:         domainOf(req.URL),
		Selectors:      req.Selectors,
		IncludeImages:  req.IncludeImages,
		MaxPages:       1,
		AttemptTimeout: svc.config.ExtractTimeout,
	}
	res, kind, err := svc.runner.Run(ctx, task, svc.selector.Order(ctx, task))
	if err != nil || len(res.Pages) == 0 {
		attempts, ok := exhausted(err)
		if err != nil && !ok {
			return nil, err
		}
		out := normalize.NewPageContent(req.URL, req.Format)
		out.Guidance = buildGuidance(OpExtractContent, extractQueries(req.URL), attempts)
		return out, nil
	}

	out := normalize.PageContentFrom(&res.Pages[0], kind, svc.formatter, req.Format)
	svc.cachePut(ctx, OpExtractContent, key, out, svc.config.ExtractTTL)
	return out, nil
}

// SearchDestinationInfo gathers information about a destination across
// topics. Each topic is its own fetch task; the result carries whatever
// topics succeeded, and guidance only when every topic failed.
func (svc *Service) SearchDestinationInfo(ctx context.Context, req *SearchRequest) (*DestinationInfo, error) {
	if err := svc.validateSearch(req); err != nil {
		return nil, err
	}
	topics := req.Topics
	if len(topics) == 0 {
		topics = defaultSearchTopics
	}
	maxResults := req.MaxResults
	if maxResults == 0 {
		maxResults = svc.config.MaxTopicResults
	}

	key := searchKey(req, topics, maxResults)
	var hit DestinationInfo
	if svc.cached(ctx, key, &hit) {
		return &hit, nil
	}

	out := normalize.NewDestinationInfo(req.Destination, topics)
	seen := make(map[string]bool)
	allFailed := true
	attempts := 0
	for _, topic := range topics {
		task := &adapter.Task{
			Operation:      OpSearchDestination,
			Query:          seedQuery(req.Destination, topic),
			Seeds:          referenceSeeds(req.Destination),
			MaxResults:     maxResults,
			AttemptTimeout: svc.config.SearchTimeout,
		}
		res, kind, err := svc.runner.Run(ctx, task, svc.selector.Order(ctx, task))
		if err != nil {
			n, ok := exhausted(err)
			if !ok {
				return nil, err
			}
			attempts += n
			continue
		}
		allFailed = false
		out.Topics[topic] = normalize.TopicResultsFrom(res, kind, maxResults)
		for _, u := range normalize.SourceURLs(res) {
			if !seen[u] {
				seen[u] = true
				out.Sources = append(out.Sources, u)
			}
		}
	}

	if allFailed {
		out.Guidance = buildGuidance(OpSearchDestination, searchQueries(req.Destination, topics), attempts)
		return out, nil
	}
	svc.cachePut(ctx, OpSearchDestination, key, out, svc.config.DestinationTTL)
	return out, nil
}

// MonitorPriceChanges registers a price monitor for a URL (or refreshes
// the existing one for the same target) and runs an immediate check.
func (svc *Service) MonitorPriceChanges(ctx context.Context, req *MonitorRequest) (*PriceMonitorResult, error) {
	if err := svc.validateMonitor(req); err != nil {
		return nil, err
	}
	frequency := canon(req.Frequency)
	if frequency == "" {
		frequency = svc.config.DefaultFrequency
	}
	threshold := req.NotificationThreshold
	if threshold == 0 {
		threshold = svc.config.DefaultThresholdPct
	}
	priceSelector := strings.TrimSpace(req.PriceSelector)

	key := monitorKey(req, frequency, threshold)
	var hit PriceMonitorResult
	if svc.cached(ctx, key, &hit) {
		return &hit, nil
	}

	canonical := canonURL(req.URL)
	mon, err := svc.store.GetMonitorByTarget(ctx, canonical, priceSelector)
	if err != nil {
		return nil, fmt.Errorf("lookup monitor: %w", err)
	}
	if mon == nil {
		now := svc.now().UnixMilli()
		mon = &store.Monitor{
			ID:            svc.monitorID(),
			URL:           req.URL,
			CanonicalURL:  canonical,
			PriceSelector: priceSelector,
			Frequency:     frequency,
			ThresholdPct:  threshold,
			Status:        MonitorActive,
			Currency:      svc.config.DefaultCurrency,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := svc.store.InsertMonitor(ctx, mon); err != nil {
			return nil, fmt.Errorf("insert monitor: %w", err)
		}
	}

	out, attempts, err := svc.checkMonitor(ctx, mon)
	if err != nil {
		return nil, err
	}
	if attempts > 0 {
		out.Guidance = buildGuidance(OpMonitorPrice, monitorQueries(req.URL), attempts)
		return out, nil
	}
	if out.Status == MonitorError {
		// Fetched but no price found; do not let the error state stick
		// for a whole TTL window.
		return out, nil
	}
	svc.cachePut(ctx, OpMonitorPrice, key, out, svc.config.PriceTTL)
	return out, nil
}

// GetLatestEvents finds events at a destination within a date range.
func (svc *Service) GetLatestEvents(ctx context.Context, req *EventsRequest) (*EventList, error) {
	if err := svc.validateEvents(req); err != nil {
		return nil, err
	}

	key := eventsKey(req)
	var hit EventList
	if svc.cached(ctx, key, &hit) {
		return &hit, nil
	}

	out := normalize.NewEventList(req.Destination, req.StartDate, req.EndDate)
	task := &adapter.Task{
		Operation:      OpGetEvents,
		Query:          fmt.Sprintf("%s events %s to %s", req.Destination, req.StartDate, req.EndDate),
		Seeds:          referenceSeeds(req.Destination),
		MaxResults:     maxResultsCap,
		AttemptTimeout: svc.config.EventsTimeout,
	}
	res, kind, err := svc.runner.Run(ctx, task, svc.selector.Order(ctx, task))
	if err != nil {
		attempts, ok := exhausted(err)
		if !ok {
			return nil, err
		}
		out.Guidance = buildGuidance(OpGetEvents, eventsQueries(req.Destination, req.StartDate, req.EndDate), attempts)
		return out, nil
	}

	events := normalize.EventsFrom(res, kind)
	events = normalize.FilterEventsByDate(events, req.StartDate, req.EndDate)
	events = normalize.FilterEventsByCategory(events, req.Categories)
	normalize.SortEvents(events)

	out.Events = events
	out.EventCount = len(events)
	out.Categories = normalize.CountCategories(events)
	out.Sources = normalize.SourceURLs(res)
	svc.cachePut(ctx, OpGetEvents, key, out, svc.config.EventsTTL)
	return out, nil
}

// CrawlTravelBlog gathers blog insights about a destination per topic.
func (svc *Service) CrawlTravelBlog(ctx context.Context, req *BlogRequest) (*BlogInsights, error) {
	if err := svc.validateBlog(req); err != nil {
		return nil, err
	}
	topics := req.Topics
	if len(topics) == 0 {
		topics = defaultBlogTopics
	}
	maxBlogs := req.MaxBlogs
	if maxBlogs == 0 {
		maxBlogs = svc.config.MaxBlogs
	}
	recentOnly := true
	if req.RecentOnly != nil {
		recentOnly = *req.RecentOnly
	}

	key := blogKey(req, topics, maxBlogs, recentOnly)
	var hit BlogInsights
	if svc.cached(ctx, key, &hit) {
		return &hit, nil
	}

	out := normalize.NewBlogInsights(req.Destination, topics)
	seen := make(map[string]bool)
	allFailed := true
	attempts := 0
	for _, topic := range topics {
		task := &adapter.Task{
			Operation:      OpCrawlBlog,
			Query:          fmt.Sprintf("%s travel blog %s", req.Destination, topic),
			Seeds:          referenceSeeds(req.Destination),
			MaxResults:     maxBlogs,
			MaxPages:       maxBlogs,
			SameDomain:     true,
			AttemptTimeout: svc.config.BlogTimeout,
		}
		res, kind, err := svc.runner.Run(ctx, task, svc.selector.Order(ctx, task))
		if err != nil {
			n, ok := exhausted(err)
			if !ok {
				return nil, err
			}
			attempts += n
			continue
		}
		allFailed = false
		items := normalize.BlogTopicsFrom(res, kind, maxBlogs)
		if recentOnly {
			items = svc.filterRecentBlogTopics(items)
		}
		out.Topics[topic] = items
		for _, src := range normalize.BlogSourcesFrom(res, kind) {
			if !seen[src.URL] {
				seen[src.URL] = true
				out.Sources = append(out.Sources, src)
			}
		}
	}

	if allFailed {
		out.Guidance = buildGuidance(OpCrawlBlog, blogQueries(req.Destination, topics), attempts)
		return out, nil
	}
	svc.cachePut(ctx, OpCrawlBlog, key, out, svc.config.BlogTTL)
	return out, nil
}

// --- Monitor plumbing ---

// checkMonitor fetches the monitored page, parses the price, and
// updates monitor state and history. A fully exhausted fetch returns
// the stored state with the attempt count; attempts == 0 means the
// fetch ran.
func (svc *Service) checkMonitor(ctx context.Context, mon *store.Monitor) (*PriceMonitorResult, int, error) {
	task := &adapter.Task{
		Operation:      OpMonitorPrice,
		URL:            mon.URL,
		Domain:         domainOf(mon.URL),
		Selectors:      []string{mon.PriceSelector},
		MaxPages:       1,
		AttemptTimeout: svc.config.PriceTimeout,
	}
	res, kind, err := svc.runner.Run(ctx, task, svc.selector.Order(ctx, task))
	if err != nil {
		var ex *pipeline.ExhaustedError
		if !errors.As(err, &ex) {
			return nil, 0, err
		}
		return svc.monitorResult(ctx, mon, "", ""), len(ex.Attempts), nil
	}

	checkedAt := svc.now()
	next := checkedAt.Add(checkIntervals[mon.Frequency])
	nextMs := next.UnixMilli()

	price, currency, ok := priceFromResult(res, mon.PriceSelector, svc.config.DefaultCurrency)
	if !ok {
		if err := svc.store.UpdateMonitorCheck(ctx, mon.ID, nil, mon.Currency, MonitorError, checkedAt.UnixMilli(), nextMs); err != nil {
			return nil, 0, fmt.Errorf("update monitor: %w", err)
		}
		mon.Status = MonitorError
		checked := checkedAt.UnixMilli()
		mon.LastCheckedAt = &checked
		mon.NextCheckAt = &nextMs
		svc.logger.Warn("crawl: no price at selector",
			"monitor_id", mon.ID, "url", mon.URL, "selector", mon.PriceSelector)
		return svc.monitorResult(ctx, mon, string(kind), extract.MethodSelectors), 0, nil
	}

	if mon.InitialPrice == nil {
		if err := svc.store.SetMonitorInitialPrice(ctx, mon.ID, price, currency); err != nil {
			return nil, 0, fmt.Errorf("set initial price: %w", err)
		}
		mon.InitialPrice = &price
		mon.Currency = currency
	}
	changePct := 0.0
	if *mon.InitialPrice > 0 {
		changePct = (price - *mon.InitialPrice) / *mon.InitialPrice * 100
	}
	status := MonitorActive
	if math.Abs(changePct) >= mon.ThresholdPct {
		status = MonitorTriggered
	}

	point := &store.PricePoint{
		ID:        svc.newID(),
		MonitorID: mon.ID,
		Price:     price,
		Currency:  currency,
		ChangePct: changePct,
		CheckedAt: checkedAt.UnixMilli(),
	}
	if err := svc.store.RecordPriceCheck(ctx, point, status, nextMs); err != nil {
		return nil, 0, fmt.Errorf("record price check: %w", err)
	}
	mon.CurrentPrice = &price
	mon.Currency = currency
	mon.Status = status
	checked := checkedAt.UnixMilli()
	mon.LastCheckedAt = &checked
	mon.NextCheckAt = &nextMs

	return svc.monitorResult(ctx, mon, string(kind), extract.MethodSelectors), 0, nil
}

// monitorResult builds the result shape from monitor state and history.
func (svc *Service) monitorResult(ctx context.Context, mon *store.Monitor, kind, method string) *PriceMonitorResult {
	out := &PriceMonitorResult{
		URL:          mon.URL,
		MonitoringID: mon.ID,
		Status:       mon.Status,
		History:      []PriceObservation{},
		Source:       hostOr(mon.URL),
		Confidence:   normalize.Confidence(adapter.Kind(kind)),
		Metadata: normalize.ItemMeta{
			ExtractionMethod:       method,
			SourceType:             sourceTypeOf(kind),
			NormalizationTimestamp: normalize.Timestamp(),
		},
	}
	if mon.InitialPrice != nil {
		out.InitialPrice = PriceSnapshot{
			Amount:    *mon.InitialPrice,
			Currency:  mon.Currency,
			Timestamp: msToISO(mon.CreatedAt),
		}
	}
	if mon.CurrentPrice != nil && mon.LastCheckedAt != nil {
		out.CurrentPrice = PriceSnapshot{
			Amount:    *mon.CurrentPrice,
			Currency:  mon.Currency,
			Timestamp: msToISO(*mon.LastCheckedAt),
		}
	}
	if mon.NextCheckAt != nil {
		out.NextCheck = msToISO(*mon.NextCheckAt)
	}

	history, err := svc.store.PriceHistory(ctx, mon.ID, 20)
	if err != nil {
		svc.logger.Warn("crawl: price history read failed", "monitor_id", mon.ID, "error", err)
		return out
	}
	for _, p := range history {
		out.History = append(out.History, PriceObservation{
			Amount:    p.Price,
			Currency:  p.Currency,
			ChangePct: p.ChangePct,
			Timestamp: msToISO(p.CheckedAt),
		})
	}
	return out
}

// priceFromResult parses a price from the selector texts of the fetched
// pages. Only selector matches count; free-running page text is full of
// numbers that are not prices.
func priceFromResult(res *adapter.Result, priceSelector, defaultCurrency string) (float64, string, bool) {
	for _, page := range res.Pages {
		texts := page.Selections[priceSelector]
		if len(texts) == 0 {
			continue
		}
		if price, currency, ok := normalize.ParsePrice(strings.Join(texts, " "), defaultCurrency); ok {
			return price, currency, true
		}
	}
	return 0, "", false
}

// GetPriceMonitor returns the stored state of one monitor.
func (svc *Service) GetPriceMonitor(ctx context.Context, id string) (*PriceMonitorResult, error) {
	mon, err := svc.store.GetMonitor(ctx, id)
	if err != nil {
		return nil, err
	}
	if mon == nil {
		return nil, fmt.Errorf("%w: %s", ErrMonitorNotFound, id)
	}
	return svc.monitorResult(ctx, mon, "", ""), nil
}

// ListPriceMonitors returns the stored state of all monitors.
func (svc *Service) ListPriceMonitors(ctx context.Context) ([]*PriceMonitorResult, error) {
	monitors, err := svc.store.ListMonitors(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*PriceMonitorResult, 0, len(monitors))
	for _, mon := range monitors {
		out = append(out, svc.monitorResult(ctx, mon, "", ""))
	}
	return out, nil
}

// DeletePriceMonitor removes a monitor and its history.
func (svc *Service) DeletePriceMonitor(ctx context.Context, id string) error {
	mon, err := svc.store.GetMonitor(ctx, id)
	if err != nil {
		return err
	}
	if mon == nil {
		return fmt.Errorf("%w: %s", ErrMonitorNotFound, id)
	}
	return svc.store.DeleteMonitor(ctx, id)
}

// CheckDueMonitors runs a price check for every monitor whose next
// check time has passed. Called from the server's background loop.
func (svc *Service) CheckDueMonitors(ctx context.Context) (int, error) {
	monitors, err := svc.store.ListMonitors(ctx)
	if err != nil {
		return 0, err
	}
	checked := 0
	nowMs := svc.now().UnixMilli()
	for _, mon := range monitors {
		if mon.NextCheckAt != nil && *mon.NextCheckAt > nowMs {
			continue
		}
		if ctx.Err() != nil {
			return checked, ctx.Err()
		}
		out, attempts, err := svc.checkMonitor(ctx, mon)
		if err != nil {
			svc.logger.Warn("crawl: monitor check failed", "monitor_id", mon.ID, "error", err)
			continue
		}
		if attempts > 0 {
			svc.logger.Warn("crawl: monitor check exhausted all adapters",
				"monitor_id", mon.ID, "attempts", attempts)
			continue
		}
		checked++
		if out.Status == MonitorTriggered {
			svc.logger.Info("crawl: price threshold crossed",
				"monitor_id", mon.ID, "url", mon.URL, "status", out.Status)
		}
	}
	return checked, nil
}

// --- Maintenance ---

// Stats returns aggregate service counters.
func (svc *Service) Stats(ctx context.Context) (*CrawlStats, error) {
	return svc.store.Stats(ctx)
}

// Prune removes expired cache entries and trims the fetch log and
// selection stats to their retention bounds.
func (svc *Service) Prune(ctx context.Context) error {
	nowMs := svc.now().UnixMilli()
	if n, err := svc.store.PruneExpiredCache(ctx, nowMs); err != nil {
		return fmt.Errorf("prune cache: %w", err)
	} else if n > 0 {
		svc.logger.Debug("crawl: pruned cache entries", "count", n)
	}
	cutoff := svc.now().Add(-svc.config.FetchLogRetention).UnixMilli()
	if n, err := svc.store.PruneFetchLog(ctx, cutoff); err != nil {
		return fmt.Errorf("prune fetch log: %w", err)
	} else if n > 0 {
		svc.logger.Debug("crawl: pruned fetch log", "count", n)
	}
	if n, err := svc.store.PruneStats(ctx, svc.config.MaxStatDomains); err != nil {
		return fmt.Errorf("prune stats: %w", err)
	} else if n > 0 {
		svc.logger.Debug("crawl: pruned stat domains", "count", n)
	}
	return nil
}

// --- Cache plumbing ---

// cached looks up key and decodes the stored payload into out.
func (svc *Service) cached(ctx context.Context, key string, out any) bool {
	e, err := svc.store.CacheGet(ctx, key, svc.now().UnixMilli())
	if err != nil {
		svc.logger.Warn("crawl: cache read failed", "key", key, "error", err)
		return false
	}
	if e == nil {
		return false
	}
	if err := json.Unmarshal([]byte(e.Payload), out); err != nil {
		svc.logger.Warn("crawl: cache entry corrupt", "key", key, "error", err)
		return false
	}
	return true
}

// cachePut stores a normalized payload under key. Best-effort: a failed
// write only costs a refetch.
func (svc *Service) cachePut(ctx context.Context, op, key string, payload any, ttl time.Duration) {
	raw, err := json.Marshal(payload)
	if err != nil {
		svc.logger.Warn("crawl: cache encode failed", "key", key, "error", err)
		return
	}
	nowMs := svc.now().UnixMilli()
	e := &store.CacheEntry{
		Key:       key,
		Operation: op,
		Payload:   string(raw),
		CreatedAt: nowMs,
		ExpiresAt: nowMs + ttl.Milliseconds(),
	}
	if err := svc.store.CachePut(ctx, e); err != nil {
		svc.logger.Warn("crawl: cache write failed", "key", key, "error", err)
	}
}

// --- Helpers ---

// recentWindow bounds recent_only blog filtering: posts older than a
// year are dropped, undated posts kept.
const recentWindow = 365 * 24 * time.Hour

func (svc *Service) filterRecentBlogTopics(items []BlogTopic) []BlogTopic {
	cutoff := svc.now().Add(-recentWindow).Format("2006-01-02")
	out := items[:0]
	for _, it := range items {
		if it.Metadata.PublishedDate != "" && it.Metadata.PublishedDate < cutoff {
			continue
		}
		out = append(out, it)
	}
	return out
}

func exhausted(err error) (int, bool) {
	var ex *pipeline.ExhaustedError
	if errors.As(err, &ex) {
		return len(ex.Attempts), true
	}
	return 0, false
}

// domainOf extracts the host for routing decisions; empty when the URL
// will not parse.
func domainOf(raw string) string {
	h, err := safeurl.Host(raw)
	if err != nil {
		return ""
	}
	return h
}

// hostOr extracts the host for source attribution, keeping the raw
// value when it will not parse.
func hostOr(raw string) string {
	h, err := safeurl.Host(raw)
	if err != nil || h == "" {
		return raw
	}
	return h
}

func sourceTypeOf(kind string) string {
	if kind == "" {
		return "unknown"
	}
	return kind
}

func msToISO(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}
