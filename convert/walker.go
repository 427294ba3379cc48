package convert

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/agentplexus/blockeditor/blocks"
)

// doubleBreak splits inline paragraph text into separate paragraphs.
var doubleBreak = regexp.MustCompile(`(?i)<br\s*/?>\s*<br\s*/?>`)

// walker accumulates blocks in document order. pending collects loose text until the
// next structural element (or the end of input) flushes it as paragraphs; a top-level
// <br> closes the current run into segments.
type walker struct {
	blocks   []blocks.Block
	segments []string
	pending  strings.Builder
}

// top dispatches one top-level node.
func (w *walker) top(s *goquery.Selection) {
	switch goquery.NodeName(s) {
	case "div":
		w.flush()
		s.Contents().Each(func(_ int, child *goquery.Selection) {
			w.structural(child)
		})
	case "br":
		w.segments = append(w.segments, w.pending.String())
		w.pending.Reset()
	default:
		w.structural(s)
	}
}

// structural handles the tags shared by the top level and the first level inside a div.
func (w *walker) structural(s *goquery.Selection) {
	switch name := goquery.NodeName(s); name {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		w.flush()
		w.blocks = append(w.blocks, &blocks.Header{
			Text:  escapeText(strings.TrimSpace(s.Text())),
			Level: int(name[1] - '0'),
		})
	case "p":
		w.flush()
		w.paragraphs(Inline(s))
	case "ul", "ol":
		w.flush()
		w.list(s, name)
	case "blockquote":
		w.flush()
		w.blocks = append(w.blocks, &blocks.Quote{
			Text:      Inline(s),
			Caption:   "",
			Alignment: "left",
		})
	case "#text":
		w.text(s.Text())
	}
}

func (w *walker) list(s *goquery.Selection, name string) {
	var items []blocks.ListItem
	s.Find("li").Each(func(_ int, li *goquery.Selection) {
		items = append(items, blocks.ListItem{Content: listItem(li)})
	})
	if len(items) == 0 {
		return
	}
	style := blocks.StyleUnordered
	if name == "ol" {
		style = blocks.StyleOrdered
	}
	w.blocks = append(w.blocks, &blocks.List{Style: style, Items: items})
}

func (w *walker) text(raw string) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return
	}
	w.pending.WriteString(escapeText(text))
}

// flush emits one paragraph per non-blank segment of loose text.
func (w *walker) flush() {
	segments := append(w.segments, w.pending.String())
	w.segments = nil
	w.pending.Reset()
	for _, segment := range segments {
		w.paragraph(segment)
	}
}

// paragraphs splits inline text on double line breaks.
func (w *walker) paragraphs(text string) {
	for _, segment := range doubleBreak.Split(text, -1) {
		w.paragraph(segment)
	}
}

func (w *walker) paragraph(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	w.blocks = append(w.blocks, &blocks.Paragraph{Text: text})
}
