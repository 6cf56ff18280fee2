package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"
	"github.com/tripsage/webcrawl/extract"
	"github.com/tripsage/webcrawl/safeurl"
)

// BrowserConfig configures the headless-Chrome adapter.
type BrowserConfig struct {
	// RemoteURL is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local Chrome via launcher.
	RemoteURL string

	// RecycleInterval is the maximum lifetime of a Chrome process before
	// it is torn down and relaunched. Default: 4h.
	RecycleInterval time.Duration

	// SettleDelay is how long to wait after load for client rendering to
	// finish before the DOM is captured. Default: 500ms.
	SettleDelay time.Duration

	ValidateURL func(string) error
	Logger      *slog.Logger
}

func (c BrowserConfig) defaults() BrowserConfig {
	if c.RecycleInterval <= 0 {
		c.RecycleInterval = 4 * time.Hour
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = 500 * time.Millisecond
	}
	if c.ValidateURL == nil {
		c.ValidateURL = safeurl.Validate
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Browser renders pages in headless Chrome for sites that need JS. Chrome
// launches lazily on first use and is recycled once it exceeds the
// configured age.
type Browser struct {
	cfg BrowserConfig

	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	startAt time.Time
	closed  bool
}

// NewBrowser returns a browser adapter. It fails when no Chrome binary is
// found and no remote URL is configured, so callers can leave the adapter
// out of rotation instead of discovering the gap on first fetch.
func NewBrowser(cfg BrowserConfig) (*Browser, error) {
	cfg = cfg.defaults()
	if cfg.RemoteURL == "" {
		if _, found := launcher.LookPath(); !found {
			return nil, fmt.Errorf("adapter: no chrome binary found and no remote browser url configured")
		}
	}
	return &Browser{cfg: cfg}, nil
}

func (b *Browser) Kind() Kind { return KindBrowser }

// Fetch renders one page and runs the extraction pipeline over the final
// DOM. Selector texts come from the live page so dynamically inserted
// nodes are visible.
func (b *Browser) Fetch(ctx context.Context, task *Task) (*Result, error) {
	if task.URL == "" {
		return nil, &FetchError{Adapter: KindBrowser, Reason: "no target url"}
	}
	if err := b.cfg.ValidateURL(task.URL); err != nil {
		return nil, &FetchError{Adapter: KindBrowser, Reason: "unsafe url", Err: err}
	}

	br, err := b.acquire()
	if err != nil {
		return nil, &FetchError{Adapter: KindBrowser, Reason: "browser unavailable", Err: err, Retryable: true}
	}

	page, err := stealth.Page(br)
	if err != nil {
		return nil, &FetchError{Adapter: KindBrowser, Reason: "create page", Err: err, Retryable: true}
	}
	defer page.Close()

	if err := page.Context(ctx).Navigate(task.URL); err != nil {
		return nil, &FetchError{Adapter: KindBrowser, Reason: "navigate", Err: err, Retryable: RetryableErr(err)}
	}
	if err := page.Context(ctx).WaitLoad(); err != nil {
		b.cfg.Logger.Warn("browser: wait load", "url", task.URL, "error", err)
	}
	if err := sleepCtx(ctx, b.cfg.SettleDelay); err != nil {
		return nil, AsFetchError(err, KindBrowser)
	}

	res, err := page.Context(ctx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return nil, &FetchError{Adapter: KindBrowser, Reason: "capture dom", Err: err, Retryable: RetryableErr(err)}
	}
	rendered := res.Value.Str()

	// Extract from the serialized DOM; resolve selectors on the live page
	// first and fall back to the snapshot when that fails.
	live := b.liveSelections(ctx, page, task.Selectors)
	buildTask := *task
	if live != nil {
		buildTask.Selectors = nil
	}
	raw, err := BuildPage(&buildTask, task.URL, rendered, http.StatusOK)
	if err != nil && live == nil {
		return nil, &FetchError{Adapter: KindBrowser, Reason: "no extractable content", Err: err}
	}
	if raw == nil {
		raw = &RawPage{URL: task.URL, StatusCode: http.StatusOK}
	}
	if live != nil {
		raw.Selections = live
		if raw.Method == "" {
			raw.Method = extract.MethodSelectors
		}
	}
	if !raw.Usable() {
		return nil, &FetchError{Adapter: KindBrowser, Reason: "no extractable content"}
	}
	return &Result{Pages: []RawPage{*raw}}, nil
}

// Close tears down the managed Chrome instance.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.teardownLocked()
	return nil
}

// acquire returns a connected browser, launching or recycling as needed.
// The browser outlives any single request, so connection is not bound to
// the caller's context.
func (b *Browser) acquire() (*rod.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, fmt.Errorf("adapter: browser adapter is closed")
	}
	if b.browser != nil && time.Since(b.startAt) > b.cfg.RecycleInterval {
		b.cfg.Logger.Info("browser: recycling", "uptime", time.Since(b.startAt))
		b.teardownLocked()
	}
	if b.browser != nil {
		return b.browser, nil
	}

	var wsURL string
	if b.cfg.RemoteURL != "" {
		wsURL = b.cfg.RemoteURL
		b.cfg.Logger.Info("browser: connecting to remote", "url", wsURL)
	} else {
		l := launcher.New().
			Headless(true).
			Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("adapter: launch chrome: %w", err)
		}
		wsURL = u
		b.lnch = l
		b.cfg.Logger.Info("browser: launched local chrome")
	}

	br := rod.New().ControlURL(wsURL)
	if err := br.Connect(); err != nil {
		b.teardownLocked()
		return nil, fmt.Errorf("adapter: connect chrome: %w", err)
	}
	if err := br.IgnoreCertErrors(true); err != nil {
		b.cfg.Logger.Debug("browser: ignore cert errors failed", "error", err)
	}

	b.browser = br
	b.startAt = time.Now()
	return br, nil
}

func (b *Browser) teardownLocked() {
	if b.browser != nil {
		_ = b.browser.Close()
		b.browser = nil
	}
	if b.lnch != nil {
		b.lnch.Cleanup()
		b.lnch = nil
	}
}

// liveSelections resolves selector texts against the rendered page. Returns
// nil when nothing was requested or the page-side query failed entirely.
func (b *Browser) liveSelections(ctx context.Context, page *rod.Page, selectors []string) map[string][]string {
	if len(selectors) == 0 {
		return nil
	}
	out := make(map[string][]string, len(selectors))
	ok := false
	for _, sel := range selectors {
		sel = strings.TrimSpace(sel)
		if sel == "" {
			continue
		}
		texts := []string{}
		els, err := page.Context(ctx).Elements(sel)
		if err != nil {
			b.cfg.Logger.Debug("browser: selector query failed", "selector", sel, "error", err)
			return nil
		}
		ok = true
		for _, el := range els {
			t, terr := el.Text()
			if terr != nil {
				continue
			}
			if t = strings.Join(strings.Fields(t), " "); t != "" {
				texts = append(texts, t)
			}
		}
		out[sel] = texts
	}
	if !ok {
		return nil
	}
	return out
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
