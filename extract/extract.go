// Package extract pulls article content, metadata, and selector-targeted
// fragments out of raw HTML. The main path runs go-readability; pages where
// readability finds too little text fall back to text-density analysis over
// the parsed DOM (semantic landmarks first, densest subtree second).
package extract

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
)

// Extraction methods recorded on results.
const (
	MethodReadability = "readability"
	MethodDensity     = "density"
	MethodSelectors   = "css_selectors"
)

// MinContentLen is the default minimum text length for a subtree to count
// as content.
const MinContentLen = 80

// Result is the outcome of content extraction from one HTML document.
type Result struct {
	Title  string
	Text   string // clean text content
	HTML   string // HTML of the content subtree, for downstream rendering
	Hash   string // sha256 hex of Text
	Method string // MethodReadability, MethodDensity, MethodSelectors
}

// Content extracts the main article content from rawHTML. pageURL resolves
// relative references inside the document; it may be empty.
func Content(rawHTML, pageURL string, minLen int) (*Result, error) {
	if minLen <= 0 {
		minLen = MinContentLen
	}

	var base *url.URL
	if pageURL != "" {
		base, _ = url.Parse(pageURL)
	}

	parser := readability.NewParser()
	article, rerr := parser.Parse(strings.NewReader(rawHTML), base)
	if rerr == nil {
		text := strings.TrimSpace(article.TextContent)
		if len(text) >= minLen {
			return &Result{
				Title:  article.Title,
				Text:   collapseWhitespace(text),
				HTML:   article.Content,
				Hash:   hashText(text),
				Method: MethodReadability,
			}, nil
		}
	}

	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("extract: parse html: %w", err)
	}

	title := documentTitle(doc)
	if rerr == nil && article.Title != "" {
		title = article.Title
	}

	res, err := extractDensity(doc, title, minLen)
	if err != nil {
		return nil, err
	}
	res.Method = MethodDensity
	return res, nil
}

func hashText(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
