package mcpserver

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/agentplexus/blockeditor/blocks"
	"github.com/agentplexus/blockeditor/store"
)

func stringArg(input map[string]interface{}, key string) string {
	s, _ := input[key].(string)
	return strings.TrimSpace(s)
}

// intArg reads a JSON number argument.
func intArg(input map[string]interface{}, key string, def int) int {
	switch v := input[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
	}
	return def
}

func boolArg(input map[string]interface{}, key string, def bool) bool {
	if b, ok := input[key].(bool); ok {
		return b
	}
	return def
}

// documentArg decodes a document given as an object or as a JSON string.
func documentArg(input map[string]interface{}, key string) (*blocks.Document, error) {
	switch v := input[key].(type) {
	case map[string]interface{}:
		if _, ok := v["blocks"]; !ok {
			return nil, fmt.Errorf("%s must have a blocks array", key)
		}
		return blocks.FromMap(v)
	case string:
		if strings.TrimSpace(v) == "" {
			break
		}
		doc, err := blocks.ParseJSON([]byte(v))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", key, err)
		}
		return doc, nil
	}
	return nil, fmt.Errorf("%s is required", key)
}

// pageToJSON includes the stored content in its decoded form.
func pageToJSON(p *store.Page) map[string]interface{} {
	m := pageSummary(p)
	m["content"] = p.Get()
	m["cached_content"] = p.CachedContent
	return m
}

func pageSummary(p *store.Page) map[string]interface{} {
	return map[string]interface{}{
		"id":         p.ID,
		"title":      p.Title,
		"version":    p.Version,
		"created_at": p.CreatedAt.Format(time.RFC3339),
		"updated_at": p.UpdatedAt.Format(time.RFC3339),
	}
}

func pageSummaries(pages []*store.Page) []map[string]interface{} {
	out := make([]map[string]interface{}, len(pages))
	for i, p := range pages {
		out[i] = pageSummary(p)
	}
	return out
}
