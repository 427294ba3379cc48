package render

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentplexus/blockeditor/blocks"
)

func TestRenderBlock(t *testing.T) {
	tests := []struct {
		name  string
		block blocks.Block
		want  string
	}{
		{
			name:  "paragraph",
			block: &blocks.Paragraph{Text: "Hello <b>world</b>"},
			want:  "<p>Hello <b>world</b></p>",
		},
		{
			name:  "paragraph value variant",
			block: blocks.Paragraph{Text: "Value"},
			want:  "<p>Value</p>",
		},
		{
			name:  "paragraph strips script",
			block: &blocks.Paragraph{Text: "<script>bad()</script>hello"},
			want:  "<p>hello</p>",
		},
		{
			name:  "paragraph blank after sanitizing",
			block: &blocks.Paragraph{Text: "<img src=x onerror=alert(1)>  "},
			want:  "",
		},
		{
			name:  "paragraph keeps entities",
			block: &blocks.Paragraph{Text: "A &amp; B"},
			want:  "<p>A &amp; B</p>",
		},
		{
			name:  "paragraph drops javascript link",
			block: &blocks.Paragraph{Text: `<a href="javascript:alert(1)">x</a>`},
			want:  "<p>x</p>",
		},
		{
			name:  "paragraph keeps safe link",
			block: &blocks.Paragraph{Text: `<a href="https://example.com">x</a>`},
			want:  `<p><a href="https://example.com">x</a></p>`,
		},
		{
			name:  "paragraph keeps mailto link",
			block: &blocks.Paragraph{Text: `<a href="mailto:a@b.com">x</a>`},
			want:  `<p><a href="mailto:a@b.com">x</a></p>`,
		},
		{
			name:  "paragraph strips event attributes",
			block: &blocks.Paragraph{Text: `<span onclick="x()">hi</span>`},
			want:  "<p>hi</p>",
		},
		{
			name:  "header",
			block: &blocks.Header{Text: "Title", Level: 2},
			want:  "<h2>Title</h2>",
		},
		{
			name:  "header level clamped low",
			block: &blocks.Header{Text: "Low", Level: 0},
			want:  "<h1>Low</h1>",
		},
		{
			name:  "header level clamped high",
			block: &blocks.Header{Text: "High", Level: 9},
			want:  "<h6>High</h6>",
		},
		{
			name:  "header blank",
			block: &blocks.Header{Text: " ", Level: 2},
			want:  "",
		},
		{
			name: "unordered list",
			block: &blocks.List{Style: blocks.StyleUnordered, Items: []blocks.ListItem{
				{Content: "a"}, {Content: "<i>b</i>"},
			}},
			want: "<ul><li>a</li><li><i>b</i></li></ul>",
		},
		{
			name: "ordered nested list",
			block: &blocks.List{Style: blocks.StyleOrdered, Items: []blocks.ListItem{
				{Content: "a", Items: []blocks.ListItem{{Content: "a.1"}}},
				{Content: "b"},
			}},
			want: "<ol><li>a<ol><li>a.1</li></ol></li><li>b</li></ol>",
		},
		{
			name:  "empty list",
			block: &blocks.List{Style: blocks.StyleUnordered},
			want:  "",
		},
		{
			name:  "quote",
			block: &blocks.Quote{Text: "Quoted", Alignment: "left"},
			want:  "<blockquote>Quoted</blockquote>",
		},
		{
			name:  "quote with caption and alignment",
			block: &blocks.Quote{Text: "Quoted", Caption: "Someone", Alignment: "center"},
			want:  `<blockquote class="text-center">Quoted<cite>Someone</cite></blockquote>`,
		},
		{
			name:  "quote with bogus alignment",
			block: &blocks.Quote{Text: "Quoted", Alignment: `x" onclick="y`},
			want:  "<blockquote>Quoted</blockquote>",
		},
		{
			name:  "image",
			block: &blocks.Image{URL: "https://e.com/a.png", Caption: "Cat <b>x</b>"},
			want:  `<figure class="image"><img src="https://e.com/a.png" alt="Cat x"><figcaption>Cat <b>x</b></figcaption></figure>`,
		},
		{
			name:  "image flags and relative url",
			block: &blocks.Image{URL: "/media/a.png", WithBorder: true, Stretched: true, WithBackground: true},
			want:  `<figure class="image with-border stretched with-background"><img src="/media/a.png" alt=""></figure>`,
		},
		{
			name:  "image without url",
			block: &blocks.Image{Caption: "nothing"},
			want:  "",
		},
		{
			name:  "image with script url",
			block: &blocks.Image{URL: "javascript:alert(1)"},
			want:  "",
		},
		{
			name: "table with headings",
			block: &blocks.Table{WithHeadings: true, Rows: [][]string{
				{"H1", "H2"}, {"a", "<b>b</b>"},
			}},
			want: "<table><thead><tr><th>H1</th><th>H2</th></tr></thead><tbody><tr><td>a</td><td><b>b</b></td></tr></tbody></table>",
		},
		{
			name:  "table without headings",
			block: &blocks.Table{Rows: [][]string{{"a"}}},
			want:  "<table><tbody><tr><td>a</td></tr></tbody></table>",
		},
		{
			name:  "table without rows",
			block: &blocks.Table{},
			want:  "",
		},
		{
			name: "embed",
			block: &blocks.Embed{
				Service: "YouTube",
				Source:  "https://www.youtube.com/watch?v=abc",
				Embed:   "https://www.youtube.com/embed/abc",
				Width:   580,
				Height:  320,
				Caption: "Clip",
			},
			want: `<figure class="embed embed-youtube"><iframe src="https://www.youtube.com/embed/abc" width="580" height="320" frameborder="0" allowfullscreen></iframe><figcaption>Clip</figcaption></figure>`,
		},
		{
			name:  "embed rejects relative url",
			block: &blocks.Embed{Service: "youtube", Embed: "/embed/abc"},
			want:  "",
		},
		{
			name:  "alert",
			block: &blocks.Alert{Type: "Danger", Message: "Careful", Align: "right"},
			want:  `<div class="alert alert-danger text-right" role="alert">Careful</div>`,
		},
		{
			name:  "alert unknown type",
			block: &blocks.Alert{Type: `x" onclick="y`, Message: "Hi"},
			want:  `<div class="alert alert-info" role="alert">Hi</div>`,
		},
		{
			name:  "alert blank message",
			block: &blocks.Alert{Type: "info"},
			want:  "",
		},
		{
			name:  "unknown type",
			block: &blocks.Opaque{Type: "frobnicate", Data: json.RawMessage(`{"x":1}`)},
			want:  "",
		},
		{
			name:  "known type with degenerate data",
			block: &blocks.Opaque{Type: blocks.TypeHeader, Data: json.RawMessage(`{"level":"two"}`)},
			want:  "",
		},
		{
			name:  "nil block",
			block: nil,
			want:  "",
		},
		{
			name:  "nil pointer block",
			block: (*blocks.Paragraph)(nil),
			want:  "",
		},
	}

	r := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.RenderBlock(tt.block))
		})
	}
}

func TestRenderConcatenatesInOrder(t *testing.T) {
	doc := &blocks.Document{Blocks: []blocks.Block{
		&blocks.Header{Text: "Title", Level: 1},
		&blocks.Opaque{Type: "frobnicate"},
		&blocks.Paragraph{Text: "Body"},
		&blocks.Paragraph{Text: "   "},
		&blocks.List{Style: blocks.StyleUnordered, Items: []blocks.ListItem{{Content: "a"}}},
	}}

	assert.Equal(t, "<h1>Title</h1><p>Body</p><ul><li>a</li></ul>", Render(doc))
	assert.Equal(t, "", Render(nil))
	assert.Equal(t, "", Render(&blocks.Document{}))
}

func TestRenderParsedDocument(t *testing.T) {
	doc, err := blocks.ParseJSON([]byte(`{
		"time": 0,
		"version": "1",
		"blocks": [
			{"type": "paragraph", "data": {"text": "hi"}},
			{"type": "frobnicate", "data": {"anything": true}},
			{"type": "list", "data": {"style": "ordered", "items": ["x", {"content": "y", "items": ["z"]}]}}
		]
	}`))
	require.NoError(t, err)

	assert.Equal(t, "<p>hi</p><ol><li>x</li><li>y<ol><li>z</li></ol></li></ol>", Render(doc))
}

func TestWithBlockRenderer(t *testing.T) {
	r := New(
		WithBlockRenderer("frobnicate", BlockRendererFunc(func(b blocks.Block) string {
			return "<hr>"
		})),
		WithBlockRenderer(blocks.TypeParagraph, BlockRendererFunc(func(b blocks.Block) string {
			return "[" + b.(*blocks.Paragraph).Text + "]"
		})),
	)

	doc := &blocks.Document{Blocks: []blocks.Block{
		&blocks.Opaque{Type: "frobnicate"},
		&blocks.Paragraph{Text: "p"},
		&blocks.Header{Text: "h", Level: 3},
	}}
	assert.Equal(t, "<hr>[p]<h3>h</h3>", r.Render(doc))
}

func TestCustomRendererOutputSanitized(t *testing.T) {
	raw := BlockRendererFunc(func(b blocks.Block) string {
		return `<div class="note" onclick="steal()"><p>` + b.(*blocks.Paragraph).Text + `</p><script>bad()</script>` +
			`<a href="javascript:alert(1)">x</a><img src="https://e.com/a.png" onerror="bad()"></div>`
	})

	tests := []struct {
		name string
		opt  Option
		want string
	}{
		{
			name: "sanitized",
			opt:  WithBlockRenderer(blocks.TypeParagraph, raw),
			want: `<div class="note"><p>hi</p>x<img src="https://e.com/a.png"></div>`,
		},
		{
			name: "trusted",
			opt:  WithTrustedBlockRenderer(blocks.TypeParagraph, raw),
			want: `<div class="note" onclick="steal()"><p>hi</p><script>bad()</script>` +
				`<a href="javascript:alert(1)">x</a><img src="https://e.com/a.png" onerror="bad()"></div>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(tt.opt)
			assert.Equal(t, tt.want, r.RenderBlock(&blocks.Paragraph{Text: "hi"}))
		})
	}
}

func TestRenderRecoversFromPanics(t *testing.T) {
	r := New(WithBlockRenderer("boom", BlockRendererFunc(func(b blocks.Block) string {
		panic("renderer bug")
	})))

	doc := &blocks.Document{Blocks: []blocks.Block{
		&blocks.Paragraph{Text: "before"},
		&blocks.Opaque{Type: "boom"},
		&blocks.Paragraph{Text: "after"},
	}}

	var out string
	require.NotPanics(t, func() { out = r.Render(doc) })
	assert.Equal(t, "<p>before</p><p>after</p>", out)
}

func TestWithAllowList(t *testing.T) {
	r := New(WithAllowList(AllowList{Elements: []string{"u"}}))

	assert.Equal(t, "<p><u>x</u> y</p>", r.RenderBlock(&blocks.Paragraph{Text: "<u>x</u> <b>y</b>"}))
	assert.Equal(t, "<p>link</p>", r.RenderBlock(&blocks.Paragraph{Text: `<a href="https://e.com">link</a>`}))
}

func TestDefaultAllowList(t *testing.T) {
	a := DefaultAllowList()
	assert.ElementsMatch(t, []string{"b", "strong", "i", "em", "a", "br"}, a.Elements)
	assert.Equal(t, []string{"href"}, a.Attributes["a"])
	assert.ElementsMatch(t, []string{"http", "https", "mailto"}, a.URLSchemes)

	out := a.Policy().Sanitize(`<strong>s</strong><em>e</em><u>u</u>`)
	assert.Equal(t, "<strong>s</strong><em>e</em>u", out)
}

func TestSanitize(t *testing.T) {
	r := New()
	out := r.Sanitize(`line<br>break <iframe src="https://evil"></iframe><style>p{}</style>`)
	assert.True(t, strings.HasPrefix(out, "line<br"), out)
	assert.NotContains(t, out, "iframe")
	assert.NotContains(t, out, "style")
}

func TestSafeURL(t *testing.T) {
	tests := []struct {
		raw      string
		relative bool
		wantOK   bool
	}{
		{"https://e.com/a.png", false, true},
		{"HTTP://e.com/a.png", false, true},
		{"/a.png", true, true},
		{"a.png", true, true},
		{"/a.png", false, false},
		{"//evil.com/a.png", true, false},
		{"javascript:alert(1)", true, false},
		{"data:image/png;base64,AAAA", true, false},
		{"https://", false, false},
		{"https://e.com/a b.png", false, false},
		{"", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			_, ok := safeURL(tt.raw, tt.relative, "http", "https")
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestMarkdown(t *testing.T) {
	doc := &blocks.Document{Blocks: []blocks.Block{
		&blocks.Header{Text: "Title", Level: 1},
		&blocks.Paragraph{Text: "Hello <b>world</b>"},
		&blocks.List{Style: blocks.StyleUnordered, Items: []blocks.ListItem{{Content: "item"}}},
	}}

	out, err := New().Markdown(doc)
	require.NoError(t, err)
	assert.Contains(t, out, "# Title")
	assert.Contains(t, out, "Hello **world**")
	assert.Contains(t, out, "item")
}
