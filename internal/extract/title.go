package extract

import (
	"bytes"
	"path"
	"strings"

	"golang.org/x/net/html"

	"github.com/yangguo/epub2audio/internal/epub"
)

// titleHeadings are tried in priority order when a document has no <title>
var titleHeadings = []string{"h1", "h2", "h3"}

// InferTitle derives a display title for a document unit. It prefers the
// document's <title>, then the first h1-h3 with text, then the file name
// stem with underscores replaced by spaces. It never fails.
func InferTitle(unit *epub.ContentUnit) string {
	doc, err := html.Parse(bytes.NewReader(unit.Data))
	if err == nil {
		if n := findFirst(doc, "title"); n != nil {
			if t := nodeText(n); t != "" {
				return t
			}
		}
		for _, tag := range titleHeadings {
			if n := findFirst(doc, tag); n != nil {
				if t := nodeText(n); t != "" {
					return t
				}
			}
		}
	}
	return hrefStem(unit.Href)
}

// findFirst returns the first element with the given tag in document order
func findFirst(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, tag); found != nil {
			return found
		}
	}
	return nil
}

// hrefStem turns a document href into a readable fallback title
func hrefStem(href string) string {
	base := path.Base(href)
	stem := strings.TrimSuffix(base, path.Ext(base))
	return strings.ReplaceAll(stem, "_", " ")
}
