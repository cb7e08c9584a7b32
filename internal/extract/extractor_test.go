package extract

import (
	"reflect"
	"strings"
	"testing"

	"github.com/yangguo/epub2audio/internal/epub"
)

// makeContainer builds an in-memory container from href -> markup pairs.
// The spine and the manifest order both follow the given href order.
func makeContainer(hrefs []string, markup map[string]string) *epub.Container {
	c := &epub.Container{Units: make(map[string]*epub.ContentUnit)}
	for _, href := range hrefs {
		body, ok := markup[href]
		if !ok {
			continue
		}
		c.Units[href] = &epub.ContentUnit{Href: href, Data: []byte(body)}
		c.UnitOrder = append(c.UnitOrder, href)
	}
	c.Spine = hrefs
	return c
}

func TestExtractWholeUnits(t *testing.T) {
	c := makeContainer(
		[]string{"a.xhtml", "b.xhtml", "c.xhtml"},
		map[string]string{
			"a.xhtml": "<html><head><title>Alpha</title></head><body><p>First unit text.</p></body></html>",
			"b.xhtml": "<html><body><h1>Beta</h1><p>Second unit text.</p></body></html>",
			"c.xhtml": "<html><body><p>Third unit text.</p></body></html>",
		},
	)

	chapters := Extract(c, nil)
	if len(chapters) != 3 {
		t.Fatalf("Expected 3 chapters, got %d", len(chapters))
	}

	for i, ch := range chapters {
		if ch.Order != i {
			t.Errorf("Expected order %d, got %d", i, ch.Order)
		}
	}
	if chapters[0].Title != "Alpha" {
		t.Errorf("Expected title 'Alpha', got '%s'", chapters[0].Title)
	}
	if chapters[1].Title != "Beta" {
		t.Errorf("Expected title 'Beta', got '%s'", chapters[1].Title)
	}
	if chapters[2].Title != "c" {
		t.Errorf("Expected fallback title 'c', got '%s'", chapters[2].Title)
	}
	if chapters[1].Text != "Beta Second unit text." {
		t.Errorf("Unexpected chapter text: %q", chapters[1].Text)
	}
}

func TestExtractDedup(t *testing.T) {
	c := makeContainer(
		[]string{"a.xhtml", "b.xhtml"},
		map[string]string{
			"a.xhtml": "<body><p>Text A</p></body>",
			"b.xhtml": "<body><p>Text B</p></body>",
		},
	)
	// Reference the first unit twice in the reading order
	c.Spine = []string{"a.xhtml", "b.xhtml", "a.xhtml"}

	chapters := Extract(c, nil)
	if len(chapters) != 2 {
		t.Fatalf("Expected 2 chapters after dedup, got %d", len(chapters))
	}
	if chapters[0].Text != "Text A" || chapters[1].Text != "Text B" {
		t.Errorf("Unexpected chapter texts: %q, %q", chapters[0].Text, chapters[1].Text)
	}
}

func TestExtractSkipsUnresolvedSpineRefs(t *testing.T) {
	c := makeContainer(
		[]string{"a.xhtml"},
		map[string]string{"a.xhtml": "<body><p>Only unit</p></body>"},
	)
	c.Spine = []string{"ghost.xhtml", "a.xhtml"}

	chapters := Extract(c, nil)
	if len(chapters) != 1 {
		t.Fatalf("Expected 1 chapter, got %d", len(chapters))
	}
	if chapters[0].Order != 0 {
		t.Errorf("Expected order 0, got %d", chapters[0].Order)
	}
}

func TestExtractSplitOnHeadings(t *testing.T) {
	c := makeContainer(
		[]string{"book.xhtml"},
		map[string]string{
			"book.xhtml": `<html><body>
<h2>One</h2><p>Text of part one.</p>
<h2>Two</h2><p>Text of part two.</p>
<h2>Three</h2><p>Text of part three.</p>
</body></html>`,
		},
	)

	chapters := Extract(c, []string{"h2"})
	if len(chapters) != 3 {
		t.Fatalf("Expected 3 chapters, got %d", len(chapters))
	}

	wantTitles := []string{"One", "Two", "Three"}
	wantTexts := []string{"Text of part one.", "Text of part two.", "Text of part three."}
	for i, ch := range chapters {
		if ch.Order != i {
			t.Errorf("Expected order %d, got %d", i, ch.Order)
		}
		if ch.Title != wantTitles[i] {
			t.Errorf("Expected title %q, got %q", wantTitles[i], ch.Title)
		}
		if ch.Text != wantTexts[i] {
			t.Errorf("Expected text %q, got %q", wantTexts[i], ch.Text)
		}
	}
}

func TestExtractSplitPreservesContent(t *testing.T) {
	c := makeContainer(
		[]string{"book.xhtml"},
		map[string]string{
			"book.xhtml": "<body><h2>A</h2><p>one</p><h2>B</h2><p>two</p></body>",
		},
	)

	chapters := Extract(c, []string{"h2"})
	var texts []string
	for _, ch := range chapters {
		texts = append(texts, ch.Text)
	}
	if got := strings.Join(texts, " "); got != "one two" {
		t.Errorf("Splitting dropped content: got %q", got)
	}
}

func TestExtractSplitSkipsEmptySections(t *testing.T) {
	c := makeContainer(
		[]string{"book.xhtml"},
		map[string]string{
			"book.xhtml": `<body>
<h2>First</h2><p>alpha text</p>
<h2></h2><p>beta text</p>
<h2>Last</h2>
</body>`,
		},
	)

	chapters := Extract(c, []string{"h2"})
	if len(chapters) != 2 {
		t.Fatalf("Expected 2 chapters, got %d", len(chapters))
	}

	// An untitled heading takes its position number; the trailing
	// empty section is dropped without consuming an order
	if chapters[0].Title != "First" || chapters[0].Order != 0 {
		t.Errorf("Unexpected first chapter: %+v", chapters[0])
	}
	if chapters[1].Title != "Section 2" {
		t.Errorf("Expected title 'Section 2', got %q", chapters[1].Title)
	}
	if chapters[1].Order != 1 {
		t.Errorf("Expected order 1, got %d", chapters[1].Order)
	}
}

func TestExtractSplitFallThrough(t *testing.T) {
	// All headings produce empty sections, so the unit is emitted whole
	c := makeContainer(
		[]string{"book.xhtml"},
		map[string]string{
			"book.xhtml": "<html><head><title>Whole</title></head><body><h2>A</h2><h2>B</h2></body></html>",
		},
	)

	chapters := Extract(c, []string{"h2"})
	if len(chapters) != 1 {
		t.Fatalf("Expected 1 whole-unit chapter, got %d", len(chapters))
	}
	if chapters[0].Title != "Whole" {
		t.Errorf("Expected whole-unit title 'Whole', got %q", chapters[0].Title)
	}
	// The whole-unit text keeps the <title> text; only non-content
	// elements are stripped
	if chapters[0].Text != "Whole A B" {
		t.Errorf("Expected whole-unit text 'Whole A B', got %q", chapters[0].Text)
	}
}

func TestExtractSplitMixedUnits(t *testing.T) {
	c := makeContainer(
		[]string{"split.xhtml", "plain.xhtml"},
		map[string]string{
			"split.xhtml": "<body><h2>A</h2><p>aaa</p><h2>B</h2><p>bbb</p></body>",
			"plain.xhtml": "<body><p>ordinary prose long enough to matter</p></body>",
		},
	)

	chapters := Extract(c, []string{"h2"})
	if len(chapters) != 3 {
		t.Fatalf("Expected 3 chapters, got %d", len(chapters))
	}
	for i, ch := range chapters {
		if ch.Order != i {
			t.Errorf("Expected order %d, got %d", i, ch.Order)
		}
	}
	if chapters[0].Title != "A" || chapters[1].Title != "B" {
		t.Errorf("Unexpected split titles: %q, %q", chapters[0].Title, chapters[1].Title)
	}
	if chapters[2].Title != "plain" {
		t.Errorf("Expected whole-unit title 'plain', got %q", chapters[2].Title)
	}
}

func TestExtractFallbackNativeOrder(t *testing.T) {
	c := makeContainer(
		[]string{"one.xhtml", "two.xhtml"},
		map[string]string{
			"one.xhtml": "<body><p>unit one</p></body>",
			"two.xhtml": "<body><p>unit two</p></body>",
		},
	)
	c.Spine = nil // No declared reading order

	chapters := Extract(c, nil)
	if len(chapters) != 2 {
		t.Fatalf("Expected 2 fallback chapters, got %d", len(chapters))
	}
	if chapters[0].Order != 0 || chapters[1].Order != 1 {
		t.Errorf("Expected orders 0,1, got %d,%d", chapters[0].Order, chapters[1].Order)
	}
	if chapters[0].Text != "unit one" || chapters[1].Text != "unit two" {
		t.Errorf("Fallback chapters out of collection order: %q, %q", chapters[0].Text, chapters[1].Text)
	}
}

func TestExtractDeterministic(t *testing.T) {
	c := makeContainer(
		[]string{"a.xhtml", "b.xhtml"},
		map[string]string{
			"a.xhtml": "<body><h2>X</h2><p>xxx</p><h2>Y</h2><p>yyy</p></body>",
			"b.xhtml": "<body><p>zzz</p></body>",
		},
	)

	first := Extract(c, []string{"h2"})
	second := Extract(c, []string{"h2"})
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Extraction is not deterministic:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}
