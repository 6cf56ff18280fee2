package extract

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// collectText extracts all text from a subtree, skipping script/style.
func collectText(n *html.Node) string {
	var sb strings.Builder
	var f func(*html.Node)
	f = func(n *html.Node) {
		if n.Type == html.ElementNode {
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

// renderNode serializes a subtree back to HTML.
func renderNode(n *html.Node) string {
	var sb strings.Builder
	if err := html.Render(&sb, n); err != nil {
		return ""
	}
	return sb.String()
}

// documentTitle returns the <title> text of a parsed document.
func documentTitle(doc *html.Node) string {
	nodes := findAllByTag(doc, atom.Title)
	if len(nodes) == 0 {
		return ""
	}
	return strings.TrimSpace(collectText(nodes[0]))
}

// isContentTag reports whether a tag can host main content.
func isContentTag(a atom.Atom) bool {
	switch a {
	case atom.Article, atom.Main, atom.Section, atom.Div:
		return true
	}
	return false
}

// boilerplateHints flag nav/ad/chrome regions by id or class substring.
var boilerplateHints = []string{
	"nav", "menu", "footer", "header", "sidebar", "banner",
	"advert", "promo", "cookie", "consent", "comment", "share", "social",
}

// isBoilerplate reports whether a node is page chrome rather than content.
func isBoilerplate(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Nav, atom.Footer, atom.Header, atom.Aside, atom.Form:
		return true
	}
	idClass := strings.ToLower(getAttr(n, "id") + " " + getAttr(n, "class"))
	if idClass == " " {
		return false
	}
	for _, h := range boilerplateHints {
		if strings.Contains(idClass, h) {
			return true
		}
	}
	return false
}

// findContentByLandmarks tries to find content in semantic HTML5 elements.
func findContentByLandmarks(doc *html.Node) []*html.Node {
	landmarks := []atom.Atom{atom.Main, atom.Article}
	for _, tag := range landmarks {
		nodes := findAllByTag(doc, tag)
		if len(nodes) > 0 {
			return nodes
		}
	}
	return nil
}

// findAllByTag finds all elements with a specific tag.
func findAllByTag(root *html.Node, tag atom.Atom) []*html.Node {
	var results []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == tag {
			results = append(results, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return results
}

// getAttr returns the value of an attribute on a node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
