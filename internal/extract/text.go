package extract

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// skipTags are non-content elements removed before text extraction
var skipTags = map[string]bool{
	"script": true,
	"style":  true,
	"nav":    true,
	"header": true,
	"footer": true,
	"aside":  true,
}

// NormalizeHTML extracts readable text from markup. Non-content elements
// are dropped, whitespace runs collapse to single spaces, and the result
// carries no leading or trailing whitespace. Malformed markup is handled
// best-effort and never produces an error.
func NormalizeHTML(data []byte) string {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return ""
	}

	var buf strings.Builder
	appendText(&buf, doc)
	return collapseWhitespace(buf.String())
}

// appendText collects the text content of a node tree into buf,
// separating text nodes with spaces and skipping non-content subtrees
func appendText(buf *strings.Builder, n *html.Node) {
	if n.Type == html.ElementNode && skipTags[n.Data] {
		return
	}
	if n.Type == html.TextNode {
		buf.WriteString(n.Data)
		buf.WriteString(" ")
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		appendText(buf, c)
	}
}

// collapseWhitespace folds all whitespace runs into single spaces and trims
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// nodeText returns the collapsed text content of a single node
func nodeText(n *html.Node) string {
	var buf strings.Builder
	appendText(&buf, n)
	return collapseWhitespace(buf.String())
}
