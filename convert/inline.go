package convert

import (
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Inline flattens the children of s into one formatted inline-HTML string:
// <br> stays a line break, bold and italic are normalized to <b> and <i>, anchors keep
// their href, and any other element is copied verbatim. Text is HTML-escaped and the
// result is trimmed.
func Inline(s *goquery.Selection) string {
	return strings.TrimSpace(inline(s, false))
}

// listItem is Inline for an <li>. Nested lists are left out; their items are collected
// separately because the list walk visits every <li> descendant.
func listItem(li *goquery.Selection) string {
	return strings.TrimSpace(inline(li, true))
}

func inline(s *goquery.Selection, skipLists bool) string {
	var b strings.Builder
	s.Contents().Each(func(_ int, child *goquery.Selection) {
		switch goquery.NodeName(child) {
		case "#text":
			b.WriteString(escapeText(child.Text()))
		case "#comment":
		case "br":
			b.WriteString("<br>")
		case "strong", "b":
			b.WriteString("<b>" + inline(child, skipLists) + "</b>")
		case "em", "i":
			b.WriteString("<i>" + inline(child, skipLists) + "</i>")
		case "a":
			b.WriteString(anchor(child, skipLists))
		case "ul", "ol":
			if !skipLists {
				b.WriteString(outer(child))
			}
		default:
			b.WriteString(outer(child))
		}
	})
	return b.String()
}

// anchor re-emits a link. mailto: targets pass through as written; other targets are
// attribute-escaped.
func anchor(a *goquery.Selection, skipLists bool) string {
	text := strings.TrimSpace(inline(a, skipLists))
	href, ok := a.Attr("href")
	if !ok {
		return text
	}
	if strings.HasPrefix(href, "mailto:") {
		href = strings.ReplaceAll(href, `"`, "&quot;")
	} else {
		href = html.EscapeString(href)
	}
	return `<a href="` + href + `">` + text + `</a>`
}

func outer(s *goquery.Selection) string {
	markup, err := goquery.OuterHtml(s)
	if err != nil {
		return escapeText(s.Text())
	}
	return markup
}

// textEscaper escapes only what would otherwise be read back as markup. Quotes stay
// literal so plain text is stored as written.
var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escapeText(s string) string {
	return textEscaper.Replace(s)
}
