package crawl

import (
	"strings"
	"time"

	"github.com/tripsage/webcrawl/crawl/internal/normalize"
)

const (
	maxURLLen         = 4096
	maxDestinationLen = 256
	maxSelectorCount  = 20
	maxSelectorLen    = 256
	maxTopicCount     = 10
	maxTopicLen       = 64
	maxResultsCap     = 20
	maxBlogsCap       = 10
)

var allowedFormats = map[string]bool{
	normalize.FormatMarkdown: true,
	normalize.FormatText:     true,
	normalize.FormatHTML:     true,
}

// checkURL validates presence, length, and safety of a URL parameter.
func (svc *Service) checkURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return invalidf("url is required")
	}
	if len(raw) > maxURLLen {
		return invalidf("url exceeds %d characters", maxURLLen)
	}
	if err := svc.urlValidator(raw); err != nil {
		return invalidf("url: %v", err)
	}
	return nil
}

func validateDestination(dest string) error {
	if strings.TrimSpace(dest) == "" {
		return invalidf("destination is required")
	}
	if len(dest) > maxDestinationLen {
		return invalidf("destination exceeds %d characters", maxDestinationLen)
	}
	return nil
}

func validateTopics(topics []string) error {
	if len(topics) > maxTopicCount {
		return invalidf("topics: at most %d allowed", maxTopicCount)
	}
	for _, t := range topics {
		if strings.TrimSpace(t) == "" {
			return invalidf("topics: empty topic")
		}
		if len(t) > maxTopicLen {
			return invalidf("topics: topic exceeds %d characters", maxTopicLen)
		}
	}
	return nil
}

func (svc *Service) validateExtract(req *ExtractRequest) error {
	if err := svc.checkURL(req.URL); err != nil {
		return err
	}
	if req.Format != "" && !allowedFormats[canon(req.Format)] {
		return invalidf("format must be one of markdown, text, html")
	}
	if len(req.Selectors) > maxSelectorCount {
		return invalidf("selectors: at most %d allowed", maxSelectorCount)
	}
	for _, sel := range req.Selectors {
		if strings.TrimSpace(sel) == "" {
			return invalidf("selectors: empty selector")
		}
		if len(sel) > maxSelectorLen {
			return invalidf("selectors: selector exceeds %d characters", maxSelectorLen)
		}
	}
	return nil
}

func (svc *Service) validateSearch(req *SearchRequest) error {
	if err := validateDestination(req.Destination); err != nil {
		return err
	}
	if err := validateTopics(req.Topics); err != nil {
		return err
	}
	if req.MaxResults < 0 || req.MaxResults > maxResultsCap {
		return invalidf("max_results must be between 0 and %d", maxResultsCap)
	}
	return nil
}

func (svc *Service) validateMonitor(req *MonitorRequest) error {
	if err := svc.checkURL(req.URL); err != nil {
		return err
	}
	if strings.TrimSpace(req.PriceSelector) == "" {
		return invalidf("price_selector is required")
	}
	if len(req.PriceSelector) > maxSelectorLen {
		return invalidf("price_selector exceeds %d characters", maxSelectorLen)
	}
	if req.Frequency != "" {
		if _, ok := checkIntervals[canon(req.Frequency)]; !ok {
			return invalidf("frequency must be one of hourly, daily, weekly")
		}
	}
	if req.NotificationThreshold < 0 {
		return invalidf("notification_threshold must not be negative")
	}
	return nil
}

func (svc *Service) validateEvents(req *EventsRequest) error {
	if err := validateDestination(req.Destination); err != nil {
		return err
	}
	start, err := parseISODate(req.StartDate, "start_date")
	if err != nil {
		return err
	}
	end, err := parseISODate(req.EndDate, "end_date")
	if err != nil {
		return err
	}
	if end.Before(start) {
		return invalidf("end_date is before start_date")
	}
	return validateCategories(req.Categories)
}

func (svc *Service) validateBlog(req *BlogRequest) error {
	if err := validateDestination(req.Destination); err != nil {
		return err
	}
	if err := validateTopics(req.Topics); err != nil {
		return err
	}
	if req.MaxBlogs < 0 || req.MaxBlogs > maxBlogsCap {
		return invalidf("max_blogs must be between 0 and %d", maxBlogsCap)
	}
	return nil
}

func parseISODate(s, field string) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, invalidf("%s is required", field)
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, invalidf("%s must be an ISO date (YYYY-MM-DD)", field)
	}
	return t, nil
}

func validateCategories(categories []string) error {
	if len(categories) == 0 {
		return nil
	}
	allowed := map[string]bool{normalize.CategoryGeneral: true}
	for _, c := range normalize.Categories() {
		allowed[c] = true
	}
	for _, c := range categories {
		if !allowed[canon(c)] {
			return invalidf("categories: unknown category %q", c)
		}
	}
	return nil
}
