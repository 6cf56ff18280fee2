package extract

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// extractDensity extracts content using text density analysis: the DOM
// subtree with the highest text-to-markup ratio wins, with boilerplate
// regions (nav, footer, sidebar, ads) filtered out.
func extractDensity(doc *html.Node, title string, minLen int) (*Result, error) {
	// Semantic landmarks first: <main>/<article> beat any heuristic.
	if landmarks := findContentByLandmarks(doc); len(landmarks) > 0 {
		var texts, htmls []string
		for _, n := range landmarks {
			if isBoilerplate(n) {
				continue
			}
			text := collectText(n)
			if len(text) >= minLen {
				texts = append(texts, text)
				htmls = append(htmls, renderNode(n))
			}
		}
		if len(texts) > 0 {
			combined := strings.Join(texts, "\n\n")
			return &Result{
				Text:  combined,
				HTML:  strings.Join(htmls, "\n"),
				Title: title,
				Hash:  hashText(combined),
			}, nil
		}
	}

	body := findBody(doc)
	if body == nil {
		body = doc
	}

	best := findDensestNode(body, minLen)
	if best == nil {
		// Last resort: all non-boilerplate text from the body.
		text := collectCleanText(body)
		if len(text) < minLen {
			return &Result{Title: title, Hash: hashText("")}, nil
		}
		return &Result{
			Text:  text,
			HTML:  renderNode(body),
			Title: title,
			Hash:  hashText(text),
		}, nil
	}

	text := collectText(best)
	return &Result{
		Text:  text,
		HTML:  renderNode(best),
		Title: title,
		Hash:  hashText(text),
	}, nil
}

// nodeScore holds density analysis for a DOM subtree.
type nodeScore struct {
	node     *html.Node
	textLen  int
	density  float64
	linkDens float64 // fraction of text inside <a> tags
}

// findDensestNode walks the DOM and finds the node with highest content density.
func findDensestNode(root *html.Node, minLen int) *html.Node {
	var candidates []nodeScore

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type != html.ElementNode || isBoilerplate(n) {
			return
		}
		if !isContentTag(n.DataAtom) && n.DataAtom != atom.Body {
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				walk(c)
			}
			return
		}

		text := collectText(n)
		textLen := len(text)
		if textLen < minLen {
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				walk(c)
			}
			return
		}

		markupLen := len(renderNode(n))
		if markupLen == 0 {
			markupLen = 1
		}
		linkDens := float64(len(collectLinkText(n))) / float64(textLen)

		candidates = append(candidates, nodeScore{
			node:     n,
			textLen:  textLen,
			density:  float64(textLen) / float64(markupLen),
			linkDens: linkDens,
		})

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	if len(candidates) == 0 {
		return nil
	}

	var best *nodeScore
	var bestScore float64
	for i := range candidates {
		c := &candidates[i]
		if c.linkDens > 0.5 {
			continue // mostly links, probably navigation
		}
		score := c.density * logScale(c.textLen) * (1 - c.linkDens)
		if score > bestScore {
			bestScore = score
			best = c
		}
	}
	if best == nil {
		return nil
	}
	return best.node
}

// logScale returns a log-based scale factor for text length, so long text
// wins over dense-but-tiny fragments.
func logScale(n int) float64 {
	if n <= 0 {
		return 0
	}
	scale := 1.0
	for v := n; v > 100; v /= 2 {
		scale++
	}
	return scale
}

// collectLinkText extracts text only from <a> elements.
func collectLinkText(n *html.Node) string {
	var sb strings.Builder
	var f func(*html.Node, bool)
	f = func(n *html.Node, inLink bool) {
		if n.Type == html.ElementNode && n.DataAtom == atom.A {
			inLink = true
		}
		if n.Type == html.TextNode && inLink {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				sb.WriteString(text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c, inLink)
		}
	}
	f(n, false)
	return sb.String()
}

// collectCleanText extracts text excluding boilerplate regions.
func collectCleanText(n *html.Node) string {
	var sb strings.Builder
	var f func(*html.Node)
	f = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if isBoilerplate(n) {
				return
			}
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript:
				return
			}
		}
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}
	f(n)
	return sb.String()
}

// findBody returns the <body> element from a parsed document.
func findBody(doc *html.Node) *html.Node {
	var body *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if body != nil {
			return
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.Body {
			body = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return body
}
