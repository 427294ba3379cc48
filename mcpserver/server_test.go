package mcpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/agentplexus/blockeditor/config"
	"github.com/agentplexus/blockeditor/confluence"
	"github.com/agentplexus/blockeditor/convert"
	"github.com/agentplexus/blockeditor/render"
	"github.com/agentplexus/blockeditor/store"
)

func newTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	pages, err := store.NewBadgerStore(arbor.NewLogger(), &config.BadgerConfig{
		Path: filepath.Join(t.TempDir(), "db"),
	}, render.Default)
	require.NoError(t, err)
	t.Cleanup(func() { pages.Close() })

	return New(convert.New(), render.New(), pages, opts...)
}

// call runs a tool and decodes its JSON text result.
func call(t *testing.T, s *Server, name string, input map[string]interface{}) (map[string]interface{}, bool) {
	t.Helper()
	result, err := s.HandleTool(context.Background(), name, input)
	require.NoError(t, err)
	require.Len(t, result.Content, 1)

	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "content should be text, got %T", result.Content[0])
	if result.IsError {
		return map[string]interface{}{"error": text.Text}, true
	}

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	return out, false
}

func document(t *testing.T, raw string) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &m))
	return m
}

func TestNew(t *testing.T) {
	server := New(convert.New(), render.New(), nil)

	if server == nil {
		t.Fatal("New() returned nil")
	}
	if server.client != nil {
		t.Error("New() should not set a Confluence client")
	}
}

func TestTools(t *testing.T) {
	client := confluence.NewClient("http://example.com", confluence.BasicAuth{})

	tests := []struct {
		name   string
		server *Server
		want   []string
	}{
		{
			name:   "converter only",
			server: New(convert.New(), render.New(), nil),
			want:   []string{"convert_html", "convert_markdown", "render_document", "render_markdown", "validate_document"},
		},
		{
			name:   "with storage",
			server: newTestServer(t),
			want: []string{
				"convert_html", "convert_markdown", "render_document", "render_markdown", "validate_document",
				"save_content", "get_content", "list_pages", "search_pages", "delete_page",
			},
		},
		{
			name:   "with confluence",
			server: newTestServer(t, WithConfluence(client)),
			want: []string{
				"convert_html", "convert_markdown", "render_document", "render_markdown", "validate_document",
				"save_content", "get_content", "list_pages", "search_pages", "delete_page",
				"import_confluence_page", "search_confluence_pages",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var names []string
			for _, tool := range tt.server.Tools() {
				names = append(names, tool.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestToolSchema(t *testing.T) {
	client := confluence.NewClient("http://example.com", confluence.BasicAuth{})
	server := newTestServer(t, WithConfluence(client))

	for _, tool := range server.Tools() {
		if tool.Description == "" {
			t.Errorf("Tool %s has empty description", tool.Name)
		}
		if tool.InputSchema.Type != "object" {
			t.Errorf("Tool %s InputSchema type = %v, want object", tool.Name, tool.InputSchema.Type)
		}
		for _, req := range tool.InputSchema.Required {
			if _, ok := tool.InputSchema.Properties[req]; !ok {
				t.Errorf("Tool %s requires undeclared property %s", tool.Name, req)
			}
		}
	}
}

func TestHandleToolUnknown(t *testing.T) {
	server := New(convert.New(), render.New(), nil)

	_, err := server.HandleTool(context.Background(), "unknown_tool", nil)
	if err == nil {
		t.Error("HandleTool() should return error for unknown tool")
	}

	// storage tools are absent without a store
	_, err = server.HandleTool(context.Background(), "get_content", map[string]interface{}{"id": "x"})
	assert.Error(t, err)
}

func TestConvertHTML(t *testing.T) {
	server := New(convert.New(), render.New(), nil)

	out, isErr := call(t, server, "convert_html", map[string]interface{}{
		"html": "<h2>Title</h2><p>Hello <strong>world</strong></p><ul><li>one</li><li>two</li></ul>",
	})
	require.False(t, isErr, out["error"])

	assert.Equal(t, "2.28.2", out["version"])
	blks := out["blocks"].([]interface{})
	require.Len(t, blks, 3)
	assert.Equal(t, "header", blks[0].(map[string]interface{})["type"])
	assert.Equal(t, "paragraph", blks[1].(map[string]interface{})["type"])
	assert.Equal(t, "Hello <b>world</b>", blks[1].(map[string]interface{})["data"].(map[string]interface{})["text"])
	assert.Equal(t, "list", blks[2].(map[string]interface{})["type"])
}

func TestConvertHTMLMissingArgument(t *testing.T) {
	server := New(convert.New(), render.New(), nil)

	out, isErr := call(t, server, "convert_html", map[string]interface{}{})
	assert.True(t, isErr)
	assert.Contains(t, out["error"], "html is required")
}

func TestConvertMarkdown(t *testing.T) {
	server := New(convert.New(), render.New(), nil)

	out, isErr := call(t, server, "convert_markdown", map[string]interface{}{
		"markdown": "# Title\n\nSome *text*.\n",
	})
	require.False(t, isErr, out["error"])

	blks := out["blocks"].([]interface{})
	require.Len(t, blks, 2)
	assert.Equal(t, "header", blks[0].(map[string]interface{})["type"])
	assert.Equal(t, "paragraph", blks[1].(map[string]interface{})["type"])
}

func TestRenderDocument(t *testing.T) {
	server := New(convert.New(), render.New(), nil)
	doc := `{"time":0,"version":"1","blocks":[
		{"type":"header","data":{"text":"Hi","level":2}},
		{"type":"paragraph","data":{"text":"<span onclick=\"x()\">ok</span>"}},
		{"type":"mystery","data":{}}
	]}`

	tests := []struct {
		name  string
		input interface{}
	}{
		{"object", document(t, doc)},
		{"json string", doc},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, isErr := call(t, server, "render_document", map[string]interface{}{"document": tt.input})
			require.False(t, isErr, out["error"])
			assert.Equal(t, "<h2>Hi</h2><p>ok</p>", out["html"])
		})
	}
}

func TestRenderDocumentErrors(t *testing.T) {
	server := New(convert.New(), render.New(), nil)

	tests := []struct {
		name  string
		input map[string]interface{}
		want  string
	}{
		{"missing", map[string]interface{}{}, "document is required"},
		{"no blocks", map[string]interface{}{"document": map[string]interface{}{"time": 1.0}}, "blocks"},
		{"bad json", map[string]interface{}{"document": "{not json"}, "invalid document"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, isErr := call(t, server, "render_document", tt.input)
			assert.True(t, isErr)
			assert.Contains(t, out["error"], tt.want)
		})
	}
}

func TestRenderMarkdown(t *testing.T) {
	server := New(convert.New(), render.New(), nil)

	out, isErr := call(t, server, "render_markdown", map[string]interface{}{
		"document": document(t, `{"blocks":[{"type":"header","data":{"text":"Title","level":1}}]}`),
	})
	require.False(t, isErr, out["error"])
	assert.Contains(t, out["markdown"], "# Title")
}

func TestValidateDocument(t *testing.T) {
	server := New(convert.New(), render.New(), nil)

	tests := []struct {
		name      string
		doc       string
		wantValid bool
	}{
		{
			name:      "valid",
			doc:       `{"blocks":[{"type":"paragraph","data":{"text":"a"}},{"type":"header","data":{"text":"b","level":3}}]}`,
			wantValid: true,
		},
		{
			name:      "header level out of range",
			doc:       `{"blocks":[{"type":"header","data":{"text":"b","level":9}}]}`,
			wantValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, isErr := call(t, server, "validate_document", map[string]interface{}{"document": document(t, tt.doc)})
			require.False(t, isErr, out["error"])
			assert.Equal(t, tt.wantValid, out["valid"])
			if !tt.wantValid {
				assert.NotEmpty(t, out["errors"])
			}
		})
	}
}

func TestSaveGetContent(t *testing.T) {
	server := newTestServer(t)

	created, isErr := call(t, server, "save_content", map[string]interface{}{
		"title": "Home",
		"html":  "<h1>Welcome</h1><p>Hello</p>",
	})
	require.False(t, isErr, created["error"])
	id := created["id"].(string)
	assert.NotEmpty(t, id)
	assert.Equal(t, float64(1), created["version"])
	assert.Equal(t, "<h1>Welcome</h1><p>Hello</p>", created["cached_content"])

	got, isErr := call(t, server, "get_content", map[string]interface{}{"id": id})
	require.False(t, isErr, got["error"])
	assert.Equal(t, "Home", got["title"])
	content, ok := got["content"].(map[string]interface{})
	require.True(t, ok, "structured content should decode to an object")
	assert.Len(t, content["blocks"], 2)

	updated, isErr := call(t, server, "save_content", map[string]interface{}{
		"id":      id,
		"content": "just text",
	})
	require.False(t, isErr, updated["error"])
	assert.Equal(t, float64(2), updated["version"])
	assert.Equal(t, "Home", updated["title"])
	assert.Equal(t, "just text", updated["content"])
	assert.Equal(t, "just text", updated["cached_content"])
}

func TestSaveContentErrors(t *testing.T) {
	server := newTestServer(t)

	tests := []struct {
		name  string
		input map[string]interface{}
		want  string
	}{
		{"missing title", map[string]interface{}{"content": "x"}, "title is required"},
		{"two sources", map[string]interface{}{"title": "t", "html": "<p>a</p>", "content": "b"}, "only one of"},
		{"content not string", map[string]interface{}{"title": "t", "content": 3.0}, "content must be a string"},
		{"unknown id", map[string]interface{}{"id": "nope", "content": "x"}, store.ErrPageNotFound.Error()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, isErr := call(t, server, "save_content", tt.input)
			assert.True(t, isErr)
			assert.Contains(t, out["error"], tt.want)
		})
	}
}

func TestListSearchDeletePages(t *testing.T) {
	server := newTestServer(t)

	for _, title := range []string{"Alpha notes", "Beta notes", "Gamma"} {
		_, isErr := call(t, server, "save_content", map[string]interface{}{
			"title":    title,
			"markdown": "Body of " + title,
		})
		require.False(t, isErr)
	}

	listed, isErr := call(t, server, "list_pages", map[string]interface{}{})
	require.False(t, isErr)
	assert.Equal(t, float64(3), listed["count"])

	limited, isErr := call(t, server, "list_pages", map[string]interface{}{"limit": 2.0})
	require.False(t, isErr)
	assert.Equal(t, float64(2), limited["count"])

	found, isErr := call(t, server, "search_pages", map[string]interface{}{"query": "NOTES"})
	require.False(t, isErr)
	assert.Equal(t, float64(2), found["count"])

	id := found["pages"].([]interface{})[0].(map[string]interface{})["id"].(string)
	deleted, isErr := call(t, server, "delete_page", map[string]interface{}{"id": id})
	require.False(t, isErr)
	assert.Equal(t, "deleted", deleted["status"])

	out, isErr := call(t, server, "get_content", map[string]interface{}{"id": id})
	assert.True(t, isErr)
	assert.Contains(t, out["error"], "page not found")

	_, isErr = call(t, server, "search_pages", map[string]interface{}{})
	assert.True(t, isErr)
}

func confluenceServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var response interface{}
		switch r.URL.Path {
		case "/rest/api/content/42":
			response = map[string]interface{}{
				"id":      "42",
				"type":    "page",
				"status":  "current",
				"title":   "Imported",
				"body":    map[string]interface{}{"view": map[string]string{"value": "<h2>Intro</h2><p>From Confluence</p>"}},
				"version": map[string]int{"number": 3},
				"space":   map[string]string{"key": "DEV"},
			}
		case "/rest/api/content/search":
			response = map[string]interface{}{
				"results": []map[string]string{{"id": "42", "type": "page", "status": "current", "title": "Imported"}},
			}
		default:
			http.NotFound(w, r)
			return
		}
		if err := json.NewEncoder(w).Encode(response); err != nil {
			panic(err)
		}
	}))
}

func TestImportConfluencePage(t *testing.T) {
	ts := confluenceServer(t)
	defer ts.Close()

	client := confluence.NewClient(ts.URL, confluence.BearerAuth{Token: "t"})
	server := newTestServer(t, WithConfluence(client))

	out, isErr := call(t, server, "import_confluence_page", map[string]interface{}{"page_id": "42"})
	require.False(t, isErr, out["error"])
	assert.Equal(t, "Imported", out["title"])
	stored := out["stored"].(map[string]interface{})

	got, isErr := call(t, server, "get_content", map[string]interface{}{"id": stored["id"]})
	require.False(t, isErr)
	assert.Equal(t, "<h2>Intro</h2><p>From Confluence</p>", got["cached_content"])

	out, isErr = call(t, server, "import_confluence_page", map[string]interface{}{"page_id": "42", "save": false})
	require.False(t, isErr)
	assert.NotContains(t, out, "stored")

	_, isErr = call(t, server, "import_confluence_page", map[string]interface{}{"page_id": "7"})
	assert.True(t, isErr)
}

func TestSearchConfluencePages(t *testing.T) {
	ts := confluenceServer(t)
	defer ts.Close()

	client := confluence.NewClient(ts.URL, confluence.BearerAuth{Token: "t"})
	server := New(convert.New(), render.New(), nil, WithConfluence(client))

	out, isErr := call(t, server, "search_confluence_pages", map[string]interface{}{"cql": `space = "DEV"`})
	require.False(t, isErr, out["error"])
	assert.Equal(t, float64(1), out["count"])
	result := out["results"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "42", result["page_id"])
}
