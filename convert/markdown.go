package convert

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/agentplexus/blockeditor/blocks"
)

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.Strikethrough, extension.Linkify),
)

// ConvertMarkdown renders Markdown to HTML and converts the result. Raw HTML embedded in
// the Markdown is dropped by the renderer before conversion.
func (c *Converter) ConvertMarkdown(src string) (*blocks.Document, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		c.logger.Error().Err(err).Msg("Markdown rendering failed")
		return nil, &ConversionError{Cause: err}
	}
	return c.Convert(buf.String())
}

// ConvertMarkdown converts Markdown with the default Converter.
func ConvertMarkdown(src string) (*blocks.Document, error) {
	return defaultConverter.ConvertMarkdown(src)
}
