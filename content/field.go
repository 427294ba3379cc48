// Package content keeps a persisted content value and its cached HTML rendering
// consistent.
//
// A Field stores either legacy plain text or a serialized block document in Content.
// CachedContent is derived from Content by BeforeSave and is never the source of truth.
package content

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/agentplexus/blockeditor/blocks"
)

// Renderer produces display HTML for a document.
type Renderer interface {
	Render(doc *blocks.Document) string
}

// Hook is implemented by records that must refresh derived state before they are
// committed. Stores call BeforeSave synchronously on every write.
type Hook interface {
	BeforeSave(r Renderer) error
}

// Field is a content attribute with its cached rendering. It is meant to be embedded in
// persisted records.
type Field struct {
	Content       string `json:"content"`
	CachedContent string `json:"cached_content"`
}

// Set stores value. Documents and mappings are serialized to JSON; strings and byte
// slices are stored as given.
func (f *Field) Set(value interface{}) error {
	switch v := value.(type) {
	case nil:
		f.Content = ""
	case string:
		f.Content = v
	case []byte:
		f.Content = string(v)
	case json.RawMessage:
		f.Content = string(v)
	case *blocks.Document:
		if v == nil {
			f.Content = ""
			return nil
		}
		return f.setJSON(v)
	case blocks.Document:
		return f.setJSON(v)
	case map[string]interface{}:
		return f.setJSON(v)
	default:
		return fmt.Errorf("content: unsupported value type %T", value)
	}
	return nil
}

func (f *Field) setJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("content: failed to serialize value: %w", err)
	}
	f.Content = string(data)
	return nil
}

// Get returns the stored value: the decoded map or slice when Content holds a JSON object
// or array, otherwise the raw string. JSON scalars and malformed JSON are returned as the
// raw string, so legacy text such as "42" or "true" reads back as written.
func (f *Field) Get() interface{} {
	if v, ok := structured(f.Content); ok {
		return v
	}
	return f.Content
}

// Document returns Content as a block document when it holds one with at least one block.
func (f *Field) Document() (*blocks.Document, bool) {
	m, ok := object(f.Content)
	if !ok || !blocks.LooksLikeDocument(m) {
		return nil, false
	}
	doc, err := blocks.ParseJSON([]byte(f.Content))
	if err != nil {
		return nil, false
	}
	return doc, true
}

// BeforeSave regenerates CachedContent from Content. A document with blocks is rendered
// with r and non-empty plain text is copied verbatim. Any other structured value clears
// the cache.
func (f *Field) BeforeSave(r Renderer) error {
	if _, ok := structured(f.Content); ok {
		f.CachedContent = ""
		if doc, ok := f.Document(); ok {
			f.CachedContent = r.Render(doc)
		}
		return nil
	}
	if strings.TrimSpace(f.Content) != "" {
		f.CachedContent = f.Content
		return nil
	}
	f.CachedContent = ""
	return nil
}

// structured decodes s when it is a JSON object or array.
func structured(s string) (interface{}, bool) {
	if m, ok := object(s); ok {
		return m, true
	}
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "[") {
		return nil, false
	}
	var a []interface{}
	if err := json.Unmarshal([]byte(trimmed), &a); err != nil {
		return nil, false
	}
	return a, true
}

// object decodes s when it is a JSON object.
func object(s string) (map[string]interface{}, bool) {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "{") {
		return nil, false
	}
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(trimmed), &m); err != nil {
		return nil, false
	}
	return m, true
}
