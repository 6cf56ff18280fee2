package normalize

import (
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"

	"github.com/tripsage/webcrawl/crawl/internal/adapter"
)

// Output formats for extracted page content.
const (
	FormatMarkdown = "markdown"
	FormatText     = "text"
	FormatHTML     = "html"
)

// NormalizeFormat maps a requested format onto a supported one,
// defaulting to markdown.
func NormalizeFormat(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatText:
		return FormatText
	case FormatHTML:
		return FormatHTML
	default:
		return FormatMarkdown
	}
}

// Formatter renders raw page HTML into the requested output format.
// Safe for concurrent use.
type Formatter struct {
	conv   *converter.Converter
	policy *bluemonday.Policy
}

func NewFormatter() *Formatter {
	return &Formatter{
		conv: converter.NewConverter(converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		)),
		policy: bluemonday.UGCPolicy(),
	}
}

// Render produces the content body for a page in the given format.
// Markdown conversion falls back to the extracted plain text when the
// page carried no HTML or the conversion came back empty.
func (f *Formatter) Render(page *adapter.RawPage, format string) string {
	switch NormalizeFormat(format) {
	case FormatHTML:
		if page.HTML == "" {
			return page.Text
		}
		return f.policy.Sanitize(page.HTML)
	case FormatText:
		return page.Text
	default:
		if page.HTML == "" {
			return page.Text
		}
		md, err := f.conv.ConvertString(page.HTML, converter.WithDomain(page.URL))
		if err != nil || strings.TrimSpace(md) == "" {
			return page.Text
		}
		return strings.TrimSpace(md)
	}
}
