package adapter

import (
	"github.com/tripsage/webcrawl/extract"
)

// BuildPage runs the extraction pipeline over one fetched document and
// assembles a RawPage. Selector extraction and image collection only run
// when the task asks for them. A page whose main content cannot be
// extracted is still returned when selectors matched, since selector-driven
// tasks (price monitoring) care about fragments, not articles.
func BuildPage(task *Task, pageURL, rawHTML string, statusCode int) (*RawPage, error) {
	page := &RawPage{
		URL:        pageURL,
		StatusCode: statusCode,
	}

	content, cerr := extract.Content(rawHTML, pageURL, 0)
	if cerr == nil {
		page.Title = content.Title
		// Density extraction reports an empty Text for hopeless pages
		// instead of failing; leave Method unset so the selector branch
		// can claim the page.
		if content.Text != "" {
			page.Text = content.Text
			page.HTML = content.HTML
			page.Method = content.Method
		}
	}

	if len(task.Selectors) > 0 {
		sel, serr := extract.SelectorTexts(rawHTML, task.Selectors)
		if serr == nil && len(sel) > 0 {
			page.Selections = sel
			if page.Method == "" {
				page.Method = extract.MethodSelectors
			}
		}
	}

	if cerr != nil && !page.HasSelections() {
		return nil, cerr
	}

	page.Meta = extract.Metadata(rawHTML)
	if task.IncludeImages {
		page.Images = extract.Images(rawHTML, pageURL)
	}
	return page, nil
}

// HasSelections reports whether any requested selector matched at least once.
func (p *RawPage) HasSelections() bool {
	for _, texts := range p.Selections {
		if len(texts) > 0 {
			return true
		}
	}
	return false
}

// Usable reports whether the page carries enough to normalize: extracted
// text or at least one selector match.
func (p *RawPage) Usable() bool {
	return p.Text != "" || p.HasSelections()
}
