package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tripsage/webcrawl/safeurl"
)

// HostedConfig configures the hosted research API client.
type HostedConfig struct {
	APIHost string // e.g. https://api.tavily.com
	APIKey  string

	// SearchDepth is passed through to the API ("basic" or "advanced").
	SearchDepth string

	// IncludeDomains / ExcludeDomains restrict search scope globally,
	// on top of whatever the task carries.
	IncludeDomains []string
	ExcludeDomains []string

	HTTPClient *http.Client
}

func (c HostedConfig) defaults() HostedConfig {
	if c.APIHost == "" {
		c.APIHost = "https://api.tavily.com"
	}
	c.APIHost = strings.TrimRight(c.APIHost, "/")
	if c.SearchDepth == "" {
		c.SearchDepth = "basic"
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	return c
}

// Hosted talks to a hosted research API: /search for query tasks, /extract
// for URL-bound tasks where the local crawlers came up empty.
type Hosted struct {
	cfg HostedConfig
}

// NewHosted returns a hosted search adapter. The API key is required; the
// constructor fails rather than producing an adapter that 401s on first use.
func NewHosted(cfg HostedConfig) (*Hosted, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("adapter: hosted search requires an api key")
	}
	return &Hosted{cfg: cfg.defaults()}, nil
}

func (h *Hosted) Kind() Kind { return KindHosted }

func (h *Hosted) Fetch(ctx context.Context, task *Task) (*Result, error) {
	if task.SearchTask() {
		return h.search(ctx, task)
	}
	if task.URL != "" {
		return h.extract(ctx, task)
	}
	return nil, &FetchError{Adapter: KindHosted, Reason: "no query or url"}
}

type hostedSearchRequest struct {
	Query             string   `json:"query"`
	SearchDepth       string   `json:"search_depth,omitempty"`
	MaxResults        int      `json:"max_results,omitempty"`
	IncludeDomains    []string `json:"include_domains,omitempty"`
	ExcludeDomains    []string `json:"exclude_domains,omitempty"`
	IncludeAnswer     bool     `json:"include_answer,omitempty"`
	IncludeRawContent bool     `json:"include_raw_content,omitempty"`
}

type hostedSearchResponse struct {
	Query   string `json:"query"`
	Results []struct {
		Title         string  `json:"title"`
		URL           string  `json:"url"`
		Content       string  `json:"content"`
		Score         float64 `json:"score"`
		PublishedDate string  `json:"published_date,omitempty"`
	} `json:"results"`
}

func (h *Hosted) search(ctx context.Context, task *Task) (*Result, error) {
	req := hostedSearchRequest{
		Query:          task.Query,
		SearchDepth:    h.cfg.SearchDepth,
		MaxResults:     task.MaxResults,
		IncludeDomains: h.cfg.IncludeDomains,
		ExcludeDomains: h.cfg.ExcludeDomains,
	}
	if req.MaxResults <= 0 {
		req.MaxResults = 5
	}

	var resp hostedSearchResponse
	if err := h.post(ctx, "/search", req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, &FetchError{Adapter: KindHosted, Reason: "no search results"}
	}

	hits := make([]SearchHit, 0, len(resp.Results))
	for _, r := range resp.Results {
		hits = append(hits, SearchHit{
			Title:     r.Title,
			URL:       r.URL,
			Snippet:   r.Content,
			Score:     r.Score,
			Published: r.PublishedDate,
		})
	}
	return &Result{Hits: hits}, nil
}

type hostedExtractRequest struct {
	URLs []string `json:"urls"`
}

type hostedExtractResponse struct {
	Results []struct {
		URL        string `json:"url"`
		RawContent string `json:"raw_content"`
	} `json:"results"`
	FailedResults []struct {
		URL   string `json:"url"`
		Error string `json:"error"`
	} `json:"failed_results,omitempty"`
}

func (h *Hosted) extract(ctx context.Context, task *Task) (*Result, error) {
	var resp hostedExtractResponse
	if err := h.post(ctx, "/extract", hostedExtractRequest{URLs: []string{task.URL}}, &resp); err != nil {
		return nil, err
	}

	var pages []RawPage
	for _, r := range resp.Results {
		if strings.TrimSpace(r.RawContent) == "" {
			continue
		}
		if page, err := BuildPage(task, r.URL, r.RawContent, http.StatusOK); err == nil && page.Usable() {
			pages = append(pages, *page)
			continue
		}
		// The API returns markdown-ish text for non-HTML responses; keep
		// it as plain text rather than dropping the page.
		pages = append(pages, RawPage{
			URL:        r.URL,
			Text:       strings.TrimSpace(r.RawContent),
			Method:     "hosted_extract",
			StatusCode: http.StatusOK,
		})
	}
	if len(pages) == 0 {
		reason := "no extractable content"
		if len(resp.FailedResults) > 0 && resp.FailedResults[0].Error != "" {
			reason = resp.FailedResults[0].Error
		}
		return nil, &FetchError{Adapter: KindHosted, Reason: reason}
	}
	return &Result{Pages: pages}, nil
}

func (h *Hosted) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &FetchError{Adapter: KindHosted, Reason: "encode request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.cfg.APIHost+path, bytes.NewReader(payload))
	if err != nil {
		return &FetchError{Adapter: KindHosted, Reason: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+h.cfg.APIKey)

	resp, err := h.cfg.HTTPClient.Do(req)
	if err != nil {
		return &FetchError{Adapter: KindHosted, Reason: "request failed", Err: err, Retryable: RetryableErr(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &FetchError{
			Adapter:    KindHosted,
			Reason:     fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
			StatusCode: resp.StatusCode,
			Retryable:  RetryableStatus(resp.StatusCode),
		}
	}
	data, err := safeurl.LimitedReadAll(resp.Body, safeurl.MaxResponseBody)
	if err != nil {
		return &FetchError{Adapter: KindHosted, Reason: "read response", Err: err}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &FetchError{Adapter: KindHosted, Reason: "decode response", Err: err}
	}
	return nil
}
