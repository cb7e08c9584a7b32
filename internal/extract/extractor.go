package extract

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/yangguo/epub2audio/internal/epub"
	"github.com/yangguo/epub2audio/pkg/types"
)

// section is one heading-delimited slice of a document unit
type section struct {
	title string
	text  string
}

// Extract walks the container spine and produces chapters in reading order.
// Orders are unique and strictly increasing from 0. Each document unit is
// visited once; repeated spine references are ignored.
//
// When splitOn names heading tags, each unit is divided at those headings
// and every non-empty section becomes its own chapter. A unit whose
// headings yield no chapters, or that has no matching headings, is emitted
// whole. If the spine produces nothing at all, the loaded units are
// emitted in manifest order as a last resort.
func Extract(c *epub.Container, splitOn []string) []types.Chapter {
	var chapters []types.Chapter
	seen := make(map[string]bool)
	order := 0

	for _, href := range c.Spine {
		unit, ok := c.Units[href]
		if !ok || seen[href] {
			continue
		}
		seen[href] = true

		if len(splitOn) > 0 {
			sections, found := splitUnit(unit, splitOn)
			emitted := 0
			for _, s := range sections {
				if s.text == "" {
					continue
				}
				chapters = append(chapters, types.Chapter{
					Order: order,
					Title: s.title,
					Text:  s.text,
				})
				order++
				emitted++
			}
			// Headings that produced at least one chapter fully cover
			// the unit; otherwise fall through to the whole-unit path
			if found && emitted > 0 {
				continue
			}
		}

		chapters = append(chapters, types.Chapter{
			Order: order,
			Title: InferTitle(unit),
			Text:  NormalizeHTML(unit.Data),
		})
		order++
	}

	// Last resort when the spine is empty or resolves to nothing
	if len(chapters) == 0 {
		for i, href := range c.UnitOrder {
			unit := c.Units[href]
			chapters = append(chapters, types.Chapter{
				Order: i,
				Title: InferTitle(unit),
				Text:  NormalizeHTML(unit.Data),
			})
		}
	}

	return chapters
}

// splitUnit divides a unit at the given heading tags. Each section spans
// the siblings following its heading up to the next matching heading.
// The second return value reports whether any matching heading was found.
func splitUnit(unit *epub.ContentUnit, splitOn []string) ([]section, bool) {
	doc, err := html.Parse(bytes.NewReader(unit.Data))
	if err != nil {
		return nil, false
	}

	match := make(map[string]bool, len(splitOn))
	for _, tag := range splitOn {
		match[strings.ToLower(tag)] = true
	}

	headings := findAll(doc, match)
	if len(headings) == 0 {
		return nil, false
	}

	sections := make([]section, 0, len(headings))
	for i, h := range headings {
		var buf strings.Builder
		for sib := h.NextSibling; sib != nil; sib = sib.NextSibling {
			if sib.Type == html.ElementNode && match[sib.Data] {
				break
			}
			appendText(&buf, sib)
		}

		title := nodeText(h)
		if title == "" {
			title = fmt.Sprintf("Section %d", i+1)
		}
		sections = append(sections, section{
			title: title,
			text:  collapseWhitespace(buf.String()),
		})
	}
	return sections, true
}

// findAll returns all elements whose tag is in match, in document order
func findAll(n *html.Node, match map[string]bool) []*html.Node {
	var nodes []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && match[n.Data] {
			nodes = append(nodes, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return nodes
}
