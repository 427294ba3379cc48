// Package mcpserver exposes block-document conversion, rendering and page storage as
// MCP (Model Context Protocol) tools. Tool failures are reported as error results,
// never as transport errors.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"

	"github.com/agentplexus/blockeditor/confluence"
	"github.com/agentplexus/blockeditor/convert"
	"github.com/agentplexus/blockeditor/render"
	"github.com/agentplexus/blockeditor/store"
)

// Server holds the components the tools operate on.
type Server struct {
	converter *convert.Converter
	renderer  *render.Renderer
	pages     store.PageStore
	client    *confluence.Client
	logger    arbor.ILogger
}

// Option configures a Server.
type Option func(*Server)

// WithConfluence enables the Confluence import tools.
func WithConfluence(client *confluence.Client) Option {
	return func(s *Server) {
		s.client = client
	}
}

// WithLogger sets the server logger.
func WithLogger(logger arbor.ILogger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New creates a new MCP server.
func New(conv *convert.Converter, r *render.Renderer, pages store.PageStore, opts ...Option) *Server {
	s := &Server{
		converter: conv,
		renderer:  r,
		pages:     pages,
		logger:    arbor.NewLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ToolHandler is a function that handles a tool call.
type ToolHandler func(ctx context.Context, input map[string]interface{}) (interface{}, error)

func (s *Server) handlers() map[string]ToolHandler {
	h := map[string]ToolHandler{
		"convert_html":      s.handleConvertHTML,
		"convert_markdown":  s.handleConvertMarkdown,
		"render_document":   s.handleRenderDocument,
		"render_markdown":   s.handleRenderMarkdown,
		"validate_document": s.handleValidateDocument,
	}
	if s.pages != nil {
		h["save_content"] = s.handleSaveContent
		h["get_content"] = s.handleGetContent
		h["list_pages"] = s.handleListPages
		h["search_pages"] = s.handleSearchPages
		h["delete_page"] = s.handleDeletePage
	}
	if s.client != nil {
		h["import_confluence_page"] = s.handleImportConfluencePage
		h["search_confluence_pages"] = s.handleSearchConfluencePages
	}
	return h
}

// HandleTool dispatches a tool call to the appropriate handler.
func (s *Server) HandleTool(ctx context.Context, name string, input map[string]interface{}) (*mcp.CallToolResult, error) {
	handler, ok := s.handlers()[name]
	if !ok {
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
	if input == nil {
		input = map[string]interface{}{}
	}

	result, err := handler(ctx, input)
	if err != nil {
		s.logger.Warn().Err(err).Str("tool", name).Msg("Tool call failed")
		return mcp.NewToolResultError(err.Error()), nil
	}

	text, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(text)), nil
}

// Register adds every available tool to srv.
func (s *Server) Register(srv *server.MCPServer) {
	for _, tool := range s.Tools() {
		srv.AddTool(tool, s.toolHandler(tool.Name))
	}
}

func (s *Server) toolHandler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return s.HandleTool(ctx, name, request.GetArguments())
	}
}
