// Package adapter defines the acquisition backends the crawl service routes
// between. Every backend implements SourceAdapter: one Fetch method that
// turns a Task into raw pages or search hits, with typed errors the
// orchestrator can classify.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/tripsage/webcrawl/extract"
)

// Kind identifies an acquisition backend.
type Kind string

const (
	KindBulk    Kind = "bulk_crawler"
	KindBrowser Kind = "interactive_browser"
	KindHosted  Kind = "hosted_search"
)

// Task is one acquisition request handed to an adapter.
//
// Page-bound operations set URL; search-bound operations set Query. Domain
// carries the lowercased host for URL tasks so adapters and stats agree on
// the grouping key. Seeds are reference-site URLs the caller synthesized for
// query tasks, giving page-fetching adapters something to crawl when they
// stand in for a search backend.
type Task struct {
	Operation     string
	URL           string
	Query         string
	Domain        string
	Seeds         []string
	Selectors     []string
	IncludeImages bool
	MaxResults    int
	MaxPages      int
	SameDomain    bool

	// AttemptTimeout bounds each adapter attempt. Set per operation by the
	// service; the orchestrator applies a default when zero.
	AttemptTimeout time.Duration
}

// SearchTask reports whether the task is query-driven rather than URL-driven.
func (t *Task) SearchTask() bool { return t.URL == "" && t.Query != "" }

// Target returns the URL or query, whichever drives the task.
func (t *Task) Target() string {
	if t.URL != "" {
		return t.URL
	}
	return t.Query
}

// RawPage is one fetched page before normalization.
type RawPage struct {
	URL        string
	Title      string
	Text       string
	HTML       string // content subtree HTML, for markdown rendering
	Method     string // extraction method that produced Text
	StatusCode int
	Meta       extract.Meta
	Images     []extract.Image
	Selections map[string][]string // selector → matched texts
}

// SearchHit is one result from a search-capable backend.
type SearchHit struct {
	Title     string
	URL       string
	Snippet   string
	Score     float64
	Published string
}

// Result is what an adapter returns: pages for URL-bound tasks, hits for
// search tasks. Empty results are failures; adapters return an error instead.
type Result struct {
	Pages []RawPage
	Hits  []SearchHit
}

// Empty reports whether the result carries no usable content.
func (r *Result) Empty() bool {
	return r == nil || (len(r.Pages) == 0 && len(r.Hits) == 0)
}

// SourceAdapter is the single interface every acquisition backend implements.
type SourceAdapter interface {
	Kind() Kind
	Fetch(ctx context.Context, task *Task) (*Result, error)
}

// FetchError describes an adapter failure in a form the orchestrator can
// log and classify. Retryable failures leave the next adapter worth trying
// for transient reasons; non-retryable ones still fall through, but the
// distinction drives logging and stats.
type FetchError struct {
	Adapter    Kind
	Reason     string
	StatusCode int
	Retryable  bool
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Adapter, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Adapter, e.Reason)
}

func (e *FetchError) Unwrap() error { return e.Err }

// AsFetchError coerces any error into a *FetchError attributed to kind.
func AsFetchError(err error, kind Kind) *FetchError {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}
	return &FetchError{
		Adapter:   kind,
		Reason:    "fetch failed",
		Retryable: RetryableErr(err),
		Err:       err,
	}
}

// RetryableErr reports whether err looks transient: timeouts, connection
// resets, DNS hiccups. Parse failures and client errors are permanent.
func RetryableErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	msg := err.Error()
	for _, hint := range []string{"connection refused", "connection reset", "no such host", "EOF", "timeout"} {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}

// RetryableStatus reports whether an HTTP status is worth retrying through
// another adapter for transient reasons.
func RetryableStatus(code int) bool {
	switch {
	case code == 429:
		return true
	case code >= 500:
		return true
	default:
		return false
	}
}
