package adapter

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/tripsage/webcrawl/safeurl"
)

// BulkConfig tunes the colly-backed crawler.
type BulkConfig struct {
	UserAgent   string
	Parallelism int
	Delay       time.Duration
	MaxPages    int // hard cap on pages per multi-page crawl

	// ValidateURL guards every request before it leaves the process.
	// Defaults to safeurl.Validate; tests override it for loopback servers.
	ValidateURL func(string) error
}

func (c BulkConfig) defaults() BulkConfig {
	if c.UserAgent == "" {
		c.UserAgent = "tripsage-webcrawl/1.0"
	}
	if c.Parallelism <= 0 {
		c.Parallelism = 2
	}
	if c.Delay <= 0 {
		c.Delay = 200 * time.Millisecond
	}
	if c.MaxPages <= 0 {
		c.MaxPages = 10
	}
	if c.ValidateURL == nil {
		c.ValidateURL = safeurl.Validate
	}
	return c
}

// Bulk fetches static pages over plain HTTP. Single-page tasks visit one
// URL; blog crawls follow same-domain links one level deep; query tasks
// fetch the caller's seed URLs.
type Bulk struct {
	cfg BulkConfig
}

// NewBulk returns a bulk crawler adapter.
func NewBulk(cfg BulkConfig) *Bulk {
	return &Bulk{cfg: cfg.defaults()}
}

func (b *Bulk) Kind() Kind { return KindBulk }

// Fetch runs one crawl. A fresh collector per call keeps handler state and
// the visited-URL set scoped to the request.
func (b *Bulk) Fetch(ctx context.Context, task *Task) (*Result, error) {
	urls, maxPages, maxDepth := b.plan(task)
	if len(urls) == 0 {
		return nil, &FetchError{Adapter: KindBulk, Reason: "no target url"}
	}

	c := colly.NewCollector(
		colly.UserAgent(b.cfg.UserAgent),
		colly.MaxDepth(maxDepth),
		colly.Async(true),
	)
	c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: b.cfg.Parallelism,
		Delay:       b.cfg.Delay,
	})
	if dl, ok := ctx.Deadline(); ok {
		c.SetRequestTimeout(time.Until(dl))
	}

	var (
		mu       sync.Mutex
		pages    []RawPage
		fetchErr *FetchError
	)

	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
			return
		}
		if err := b.cfg.ValidateURL(r.URL.String()); err != nil {
			r.Abort()
		}
	})

	c.OnResponse(func(r *colly.Response) {
		if ct := r.Headers.Get("Content-Type"); ct != "" && !strings.Contains(ct, "html") {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if len(pages) >= maxPages {
			return
		}
		page, err := BuildPage(task, r.Request.URL.String(), string(r.Body), r.StatusCode)
		if err != nil || !page.Usable() {
			return
		}
		pages = append(pages, *page)
	})

	if maxDepth > 1 {
		c.OnHTML("a[href]", func(e *colly.HTMLElement) {
			mu.Lock()
			full := len(pages) >= maxPages
			mu.Unlock()
			if full || ctx.Err() != nil {
				return
			}
			link := e.Request.AbsoluteURL(e.Attr("href"))
			if link == "" {
				return
			}
			if task.SameDomain && !sameHost(link, e.Request.URL) {
				return
			}
			_ = e.Request.Visit(link)
		})
	}

	c.OnError(func(r *colly.Response, err error) {
		mu.Lock()
		defer mu.Unlock()
		if fetchErr != nil {
			return
		}
		fe := &FetchError{Adapter: KindBulk, Reason: "request failed", Err: err, Retryable: RetryableErr(err)}
		if r != nil && r.StatusCode > 0 {
			fe.StatusCode = r.StatusCode
			fe.Reason = fmt.Sprintf("http %d", r.StatusCode)
			fe.Retryable = RetryableStatus(r.StatusCode)
		}
		fetchErr = fe
	})

	for _, u := range urls {
		if err := c.Visit(u); err != nil {
			mu.Lock()
			if fetchErr == nil {
				fetchErr = &FetchError{Adapter: KindBulk, Reason: "visit rejected", Err: err}
			}
			mu.Unlock()
		}
	}
	c.Wait()

	if err := ctx.Err(); err != nil {
		return nil, AsFetchError(err, KindBulk)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(pages) == 0 {
		if fetchErr != nil {
			return nil, fetchErr
		}
		return nil, &FetchError{Adapter: KindBulk, Reason: "no extractable content"}
	}
	return &Result{Pages: pages}, nil
}

// plan resolves the start URLs and crawl bounds for a task. Multi-page
// crawls go one level deep from each start page, with seed-rooted tasks
// following links only when confined to their own domains. Everything
// else stays on the pages given.
func (b *Bulk) plan(task *Task) (urls []string, maxPages, maxDepth int) {
	switch {
	case task.URL != "":
		urls = []string{task.URL}
	case len(task.Seeds) > 0:
		urls = task.Seeds
	default:
		return nil, 0, 0
	}

	maxPages = task.MaxPages
	if maxPages <= 0 {
		maxPages = len(urls)
	}
	if maxPages > b.cfg.MaxPages {
		maxPages = b.cfg.MaxPages
	}

	maxDepth = 1
	if maxPages > 1 && (task.URL != "" || task.SameDomain) {
		// colly depth 1 is the start page itself, 2 its outgoing links
		maxDepth = 2
	}
	return urls, maxPages, maxDepth
}

func sameHost(link string, base *url.URL) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Hostname(), base.Hostname())
}
