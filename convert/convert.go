// Package convert turns legacy or untrusted HTML fragments into block documents.
//
// The walk is deliberately shallow: top-level nodes are dispatched by tag, and a div
// is opened exactly one level deep. Anything nested further inside a div is ignored.
package convert

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/agentplexus/blockeditor/blocks"
)

// ConversionError reports HTML that could not be parsed at all. No partial document
// accompanies it.
type ConversionError struct {
	Cause error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("failed to convert HTML to block document: %v", e.Cause)
}

func (e *ConversionError) Unwrap() error { return e.Cause }

// Converter converts HTML fragments into block documents. It holds no mutable state and
// is safe for concurrent use.
type Converter struct {
	logger  arbor.ILogger
	now     func() time.Time
	version string
}

// Option configures a Converter.
type Option func(*Converter)

// WithLogger sets the logger used to report conversion failures.
func WithLogger(logger arbor.ILogger) Option {
	return func(c *Converter) {
		c.logger = logger
	}
}

// WithClock sets the time source for the document timestamp.
func WithClock(now func() time.Time) Option {
	return func(c *Converter) {
		c.now = now
	}
}

// WithVersion overrides the schema version stamped on converted documents.
func WithVersion(version string) Option {
	return func(c *Converter) {
		c.version = version
	}
}

// New creates a Converter.
func New(opts ...Option) *Converter {
	c := &Converter{
		logger:  arbor.NewLogger(),
		now:     time.Now,
		version: blocks.SchemaVersion,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var defaultConverter = New()

// Convert converts an HTML fragment with the default Converter.
func Convert(fragment string) (*blocks.Document, error) {
	return defaultConverter.Convert(fragment)
}

// ConvertValue converts v with the default Converter. See Converter.ConvertValue.
func ConvertValue(v interface{}) (*blocks.Document, error) {
	return defaultConverter.ConvertValue(v)
}

// Convert parses an HTML fragment (not a full document) into a Document. Blank input
// yields an empty Document.
func (c *Converter) Convert(fragment string) (*blocks.Document, error) {
	if strings.TrimSpace(fragment) == "" {
		return emptyDocument(), nil
	}
	return c.ConvertReader(strings.NewReader(fragment))
}

// ConvertReader is Convert for a streamed fragment.
func (c *Converter) ConvertReader(r io.Reader) (*blocks.Document, error) {
	root, err := parseFragment(r)
	if err != nil {
		c.logger.Error().Err(err).Msg("HTML to block conversion failed")
		return nil, &ConversionError{Cause: err}
	}

	w := &walker{blocks: []blocks.Block{}}
	root.Contents().Each(func(_ int, s *goquery.Selection) {
		w.top(s)
	})
	w.flush()

	c.logger.Debug().
		Int("blocks", len(w.blocks)).
		Str("version", c.version).
		Msg("HTML converted to block document")

	return &blocks.Document{
		Time:    c.now().UnixMilli(),
		Blocks:  w.blocks,
		Version: c.version,
	}, nil
}

// ConvertValue accepts already-structured input as well as HTML. A *blocks.Document, a
// mapping with a non-empty "blocks" entry, or a JSON string of such a mapping is returned
// without reprocessing. Any other string or byte slice is converted as HTML.
func (c *Converter) ConvertValue(v interface{}) (*blocks.Document, error) {
	switch in := v.(type) {
	case nil:
		return emptyDocument(), nil
	case *blocks.Document:
		if in == nil {
			return emptyDocument(), nil
		}
		return in, nil
	case blocks.Document:
		return &in, nil
	case map[string]interface{}:
		if !blocks.LooksLikeDocument(in) {
			return emptyDocument(), nil
		}
		return blocks.FromMap(in)
	case json.RawMessage:
		return c.convertString(string(in))
	case []byte:
		return c.convertString(string(in))
	case string:
		return c.convertString(in)
	default:
		return nil, fmt.Errorf("convert: unsupported input type %T", v)
	}
}

func (c *Converter) convertString(s string) (*blocks.Document, error) {
	if doc, ok := structured(s); ok {
		return doc, nil
	}
	return c.Convert(s)
}

// structured decodes s when it is a JSON object with a non-empty "blocks" entry.
func structured(s string) (*blocks.Document, bool) {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "{") {
		return nil, false
	}
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(trimmed), &m); err != nil || !blocks.LooksLikeDocument(m) {
		return nil, false
	}
	doc, err := blocks.ParseJSON([]byte(trimmed))
	if err != nil {
		return nil, false
	}
	return doc, true
}

func emptyDocument() *blocks.Document {
	return &blocks.Document{Blocks: []blocks.Block{}}
}

// parseFragment parses r in a <body> context and returns a selection over a synthetic
// body holding the fragment's top-level nodes.
func parseFragment(r io.Reader) (*goquery.Selection, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(r, body)
	if err != nil {
		return nil, err
	}
	for _, n := range nodes {
		body.AppendChild(n)
	}
	return goquery.NewDocumentFromNode(body).Selection, nil
}
