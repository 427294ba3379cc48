// Package render turns block documents into sanitized display HTML.
//
// Each block type is rendered by a BlockRenderer looked up by type string. Unknown
// types, opaque blocks and blocks with degenerate data render to the empty string so
// that one bad block never breaks a page.
package render

import (
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/microcosm-cc/bluemonday"
	"github.com/ternarybob/arbor"

	"github.com/agentplexus/blockeditor/blocks"
)

// BlockRenderer renders one block into an HTML fragment, or "" when the block cannot be
// rendered.
type BlockRenderer interface {
	RenderBlock(b blocks.Block) string
}

// BlockRendererFunc adapts a function to BlockRenderer.
type BlockRendererFunc func(b blocks.Block) string

// RenderBlock implements BlockRenderer.
func (f BlockRendererFunc) RenderBlock(b blocks.Block) string { return f(b) }

// Renderer renders documents. It is immutable after New and safe for concurrent use.
type Renderer struct {
	allow     AllowList
	policy    *bluemonday.Policy
	custom    map[string]BlockRenderer
	renderers map[string]BlockRenderer
	markdown  *md.Converter
	logger    arbor.ILogger
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithAllowList replaces the default sanitization allow-list.
func WithAllowList(a AllowList) Option {
	return func(r *Renderer) {
		r.allow = a
	}
}

// WithBlockRenderer registers br for blocks of type typ, replacing any built-in renderer
// for that type. Its output is sanitized as a block fragment: scripts, event handlers and
// unsafe URLs are removed, ordinary block and inline markup is kept.
func WithBlockRenderer(typ string, br BlockRenderer) Option {
	return func(r *Renderer) {
		r.custom[typ] = sanitized{br}
	}
}

// WithTrustedBlockRenderer is WithBlockRenderer without sanitizing. br must escape any
// block data it emits.
func WithTrustedBlockRenderer(typ string, br BlockRenderer) Option {
	return func(r *Renderer) {
		r.custom[typ] = br
	}
}

type sanitized struct {
	BlockRenderer
}

func (s sanitized) RenderBlock(b blocks.Block) string {
	return fragmentPolicy.Sanitize(s.BlockRenderer.RenderBlock(b))
}

// WithLogger sets the logger used for recovered renderer failures.
func WithLogger(logger arbor.ILogger) Option {
	return func(r *Renderer) {
		r.logger = logger
	}
}

// New creates a Renderer with the built-in block renderers.
func New(opts ...Option) *Renderer {
	r := &Renderer{
		allow:    DefaultAllowList(),
		custom:   make(map[string]BlockRenderer),
		markdown: md.NewConverter("", true, nil),
		logger:   arbor.NewLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.policy = r.allow.Policy()

	r.renderers = map[string]BlockRenderer{
		blocks.TypeParagraph: BlockRendererFunc(r.paragraph),
		blocks.TypeHeader:    BlockRendererFunc(r.header),
		blocks.TypeList:      BlockRendererFunc(r.list),
		blocks.TypeQuote:     BlockRendererFunc(r.quote),
		blocks.TypeImage:     BlockRendererFunc(r.image),
		blocks.TypeTable:     BlockRendererFunc(r.table),
		blocks.TypeEmbed:     BlockRendererFunc(r.embed),
		blocks.TypeAlert:     BlockRendererFunc(r.alert),
	}
	for typ, br := range r.custom {
		r.renderers[typ] = br
	}
	r.custom = nil
	return r
}

// Default renders with the default allow-list and no custom renderers.
var Default = New()

// Render renders doc with the default Renderer.
func Render(doc *blocks.Document) string {
	return Default.Render(doc)
}

// Render concatenates the fragments of doc's blocks in order, with no separator.
func (r *Renderer) Render(doc *blocks.Document) string {
	if doc == nil {
		return ""
	}
	var buf strings.Builder
	for _, b := range doc.Blocks {
		buf.WriteString(r.RenderBlock(b))
	}
	return buf.String()
}

// RenderBlock renders a single block. It never panics: a failing renderer is logged and
// the block contributes "".
func (r *Renderer) RenderBlock(b blocks.Block) (out string) {
	if b == nil {
		return ""
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error().Msgf("block renderer panicked: %v", rec)
			out = ""
		}
	}()

	typ := b.BlockType()
	br, ok := r.renderers[typ]
	if !ok {
		r.logger.Debug().Str("type", typ).Msg("No renderer for block type")
		return ""
	}
	return br.RenderBlock(b)
}

// Sanitize applies the allow-list to inline HTML.
func (r *Renderer) Sanitize(s string) string {
	return strings.TrimSpace(r.policy.Sanitize(s))
}

// Markdown renders doc and converts the HTML to Markdown.
func (r *Renderer) Markdown(doc *blocks.Document) (string, error) {
	out, err := r.markdown.ConvertString(r.Render(doc))
	if err != nil {
		r.logger.Error().Err(err).Msg("Markdown conversion failed")
		return "", err
	}
	return out, nil
}

// plain strips all markup, for attribute values such as alt text.
func plain(s string) string {
	return strings.TrimSpace(plainPolicy.Sanitize(s))
}
