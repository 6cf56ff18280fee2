package extract

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Meta holds document metadata scraped from head tags.
type Meta struct {
	Author       string
	PublishDate  string
	LastModified string
	SiteName     string
	Description  string
}

// Image is one image reference found in a document.
type Image struct {
	URL string
	Alt string
}

// Metadata scrapes author/date/site metadata from meta tags, with
// OpenGraph and article:* properties taking precedence.
func Metadata(rawHTML string) Meta {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return Meta{}
	}

	m := Meta{
		Author: firstMetaContent(doc,
			`meta[name="author"]`, `meta[property="article:author"]`, `meta[name="twitter:creator"]`),
		PublishDate: firstMetaContent(doc,
			`meta[property="article:published_time"]`, `meta[name="publish_date"]`,
			`meta[name="date"]`, `meta[itemprop="datePublished"]`),
		LastModified: firstMetaContent(doc,
			`meta[property="article:modified_time"]`, `meta[name="last-modified"]`,
			`meta[itemprop="dateModified"]`),
		SiteName: firstMetaContent(doc,
			`meta[property="og:site_name"]`, `meta[name="application-name"]`),
		Description: firstMetaContent(doc,
			`meta[name="description"]`, `meta[property="og:description"]`),
	}

	// <time datetime=...> fallback for pages without article meta.
	if m.PublishDate == "" {
		if dt, ok := doc.Find("time[datetime]").First().Attr("datetime"); ok {
			m.PublishDate = strings.TrimSpace(dt)
		}
	}
	return m
}

// Images collects image references, resolving relative URLs against baseURL.
// The og:image, if present, sorts first.
func Images(rawHTML, baseURL string) []Image {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil
	}
	base, _ := url.Parse(baseURL)

	var out []Image
	seen := make(map[string]bool)
	add := func(src, alt string) {
		src = strings.TrimSpace(src)
		if src == "" || strings.HasPrefix(src, "data:") {
			return
		}
		if base != nil {
			if ref, err := url.Parse(src); err == nil {
				src = base.ResolveReference(ref).String()
			}
		}
		if seen[src] {
			return
		}
		seen[src] = true
		out = append(out, Image{URL: src, Alt: strings.TrimSpace(alt)})
	}

	if og, ok := doc.Find(`meta[property="og:image"]`).First().Attr("content"); ok {
		add(og, "")
	}
	doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		alt, _ := s.Attr("alt")
		add(src, alt)
	})
	return out
}

// SelectorTexts extracts the trimmed text of every match per CSS selector.
// Selectors with no matches map to an empty slice, so callers can tell
// "selector missed" apart from "selector not requested".
func SelectorTexts(rawHTML string, selectors []string) (map[string][]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("extract: parse html: %w", err)
	}

	out := make(map[string][]string, len(selectors))
	for _, sel := range selectors {
		sel = strings.TrimSpace(sel)
		if sel == "" {
			continue
		}
		texts := []string{}
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			if t := collapseWhitespace(s.Text()); t != "" {
				texts = append(texts, t)
			}
		})
		out[sel] = texts
	}
	return out, nil
}

func firstMetaContent(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if v, ok := doc.Find(sel).First().Attr("content"); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}
