package crawl

import (
	"net/url"
	"strings"
)

// referenceSeeds builds encyclopedia URLs for a destination so the bulk
// crawler has concrete pages to fetch when it backs up hosted search.
// The primary place name (before any comma) becomes the wiki slug.
func referenceSeeds(destination string) []string {
	primary := strings.TrimSpace(strings.SplitN(destination, ",", 2)[0])
	if primary == "" {
		return nil
	}
	slug := url.PathEscape(strings.ReplaceAll(primary, " ", "_"))
	return []string{
		"https://en.wikivoyage.org/wiki/" + slug,
		"https://en.wikipedia.org/wiki/" + slug,
	}
}
