package render

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/agentplexus/blockeditor/blocks"
)

// alertTypes are the accepted alert styles; anything else renders as "info".
var alertTypes = map[string]bool{
	"primary": true, "secondary": true, "info": true, "success": true,
	"warning": true, "danger": true, "light": true, "dark": true,
}

var classUnsafe = regexp.MustCompile(`[^a-z0-9-]+`)

// as returns b as a *T for both pointer and value variants.
func as[T any](b blocks.Block) (*T, bool) {
	switch v := any(b).(type) {
	case *T:
		return v, v != nil
	case T:
		return &v, true
	}
	return nil, false
}

func (r *Renderer) paragraph(b blocks.Block) string {
	p, ok := as[blocks.Paragraph](b)
	if !ok {
		return ""
	}
	text := r.Sanitize(p.Text)
	if text == "" {
		return ""
	}
	return "<p>" + text + "</p>"
}

func (r *Renderer) header(b blocks.Block) string {
	h, ok := as[blocks.Header](b)
	if !ok {
		return ""
	}
	text := r.Sanitize(h.Text)
	if text == "" {
		return ""
	}
	level := h.Level
	if level < 1 {
		level = 1
	}
	if level > 6 {
		level = 6
	}
	return fmt.Sprintf("<h%d>%s</h%d>", level, text, level)
}

func (r *Renderer) list(b blocks.Block) string {
	l, ok := as[blocks.List](b)
	if !ok {
		return ""
	}
	tag := "ul"
	if l.Ordered() {
		tag = "ol"
	}
	return r.listItems(tag, l.Items)
}

func (r *Renderer) listItems(tag string, items []blocks.ListItem) string {
	if len(items) == 0 {
		return ""
	}
	var buf strings.Builder
	buf.WriteString("<" + tag + ">")
	for _, item := range items {
		buf.WriteString("<li>")
		buf.WriteString(r.Sanitize(item.Content))
		buf.WriteString(r.listItems(tag, item.Items))
		buf.WriteString("</li>")
	}
	buf.WriteString("</" + tag + ">")
	return buf.String()
}

func (r *Renderer) quote(b blocks.Block) string {
	q, ok := as[blocks.Quote](b)
	if !ok {
		return ""
	}
	text := r.Sanitize(q.Text)
	if text == "" {
		return ""
	}
	var buf strings.Builder
	buf.WriteString("<blockquote")
	switch q.Alignment {
	case "center", "right":
		buf.WriteString(` class="text-` + q.Alignment + `"`)
	}
	buf.WriteString(">")
	buf.WriteString(text)
	if caption := r.Sanitize(q.Caption); caption != "" {
		buf.WriteString("<cite>" + caption + "</cite>")
	}
	buf.WriteString("</blockquote>")
	return buf.String()
}

func (r *Renderer) image(b blocks.Block) string {
	img, ok := as[blocks.Image](b)
	if !ok {
		return ""
	}
	src, ok := safeURL(img.URL, true, "http", "https")
	if !ok {
		return ""
	}

	classes := []string{"image"}
	if img.WithBorder {
		classes = append(classes, "with-border")
	}
	if img.Stretched {
		classes = append(classes, "stretched")
	}
	if img.WithBackground {
		classes = append(classes, "with-background")
	}

	var buf strings.Builder
	buf.WriteString(`<figure class="` + strings.Join(classes, " ") + `">`)
	buf.WriteString(`<img src="` + html.EscapeString(src) + `" alt="` + plain(img.Caption) + `">`)
	if caption := r.Sanitize(img.Caption); caption != "" {
		buf.WriteString("<figcaption>" + caption + "</figcaption>")
	}
	buf.WriteString("</figure>")
	return buf.String()
}

func (r *Renderer) table(b blocks.Block) string {
	t, ok := as[blocks.Table](b)
	if !ok || len(t.Rows) == 0 {
		return ""
	}
	rows := t.Rows

	var buf strings.Builder
	buf.WriteString("<table>")
	if t.WithHeadings {
		buf.WriteString("<thead>")
		r.tableRow(&buf, "th", rows[0])
		buf.WriteString("</thead>")
		rows = rows[1:]
	}
	if len(rows) > 0 {
		buf.WriteString("<tbody>")
		for _, row := range rows {
			r.tableRow(&buf, "td", row)
		}
		buf.WriteString("</tbody>")
	}
	buf.WriteString("</table>")
	return buf.String()
}

func (r *Renderer) tableRow(buf *strings.Builder, cell string, row []string) {
	buf.WriteString("<tr>")
	for _, c := range row {
		buf.WriteString("<" + cell + ">" + r.Sanitize(c) + "</" + cell + ">")
	}
	buf.WriteString("</tr>")
}

func (r *Renderer) embed(b blocks.Block) string {
	e, ok := as[blocks.Embed](b)
	if !ok {
		return ""
	}
	src, ok := safeURL(e.Embed, false, "http", "https")
	if !ok {
		return ""
	}

	var buf strings.Builder
	buf.WriteString(`<figure class="embed`)
	if service := classUnsafe.ReplaceAllString(strings.ToLower(e.Service), ""); service != "" {
		buf.WriteString(" embed-" + service)
	}
	buf.WriteString(`"><iframe src="` + html.EscapeString(src) + `"`)
	if e.Width > 0 {
		buf.WriteString(` width="` + strconv.Itoa(e.Width) + `"`)
	}
	if e.Height > 0 {
		buf.WriteString(` height="` + strconv.Itoa(e.Height) + `"`)
	}
	buf.WriteString(` frameborder="0" allowfullscreen></iframe>`)
	if caption := r.Sanitize(e.Caption); caption != "" {
		buf.WriteString("<figcaption>" + caption + "</figcaption>")
	}
	buf.WriteString("</figure>")
	return buf.String()
}

func (r *Renderer) alert(b blocks.Block) string {
	a, ok := as[blocks.Alert](b)
	if !ok {
		return ""
	}
	message := r.Sanitize(a.Message)
	if message == "" {
		return ""
	}
	typ := strings.ToLower(a.Type)
	if !alertTypes[typ] {
		typ = "info"
	}
	class := "alert alert-" + typ
	switch a.Align {
	case "center", "right":
		class += " text-" + a.Align
	}
	return `<div class="` + class + `" role="alert">` + message + `</div>`
}
