package crawler

import (
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/linkaudit/linkaudit/internal/model"
)

// ExtractAnchors parses HTML content and returns every anchor element in
// document order. Each anchor records whether an href attribute was
// present at all, which later classification distinguishes from an empty
// href value.
//
// Design decision: We use golang.org/x/net/html for parsing rather than
// regex because:
//  1. It correctly handles malformed HTML common on the web
//  2. Provides a proper DOM-like structure
//  3. More maintainable than complex regex patterns
//  4. Standard library extension, well-maintained
func ExtractAnchors(content io.Reader) ([]model.Anchor, error) {
	doc, err := html.Parse(content)
	if err != nil {
		return nil, err
	}

	anchors := make([]model.Anchor, 0)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			href, hasHref := findAttr(n, "href")
			anchors = append(anchors, model.Anchor{
				Href:    href,
				HasHref: hasHref,
				Text:    anchorText(n),
			})
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return anchors, nil
}

// anchorText concatenates all descendant text of an anchor, matching how
// browsers derive the visible text of nested markup like
// <a><span>Read</span> more</a>. Whitespace is preserved as written.
func anchorText(n *html.Node) string {
	var b strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)

	return b.String()
}

// findAttr retrieves an attribute value from an HTML node, reporting
// whether the attribute exists. An empty value with the attribute present
// is distinct from a missing attribute.
func findAttr(n *html.Node, key string) (string, bool) {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val, true
		}
	}
	return "", false
}
