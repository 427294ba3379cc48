package mcpserver

import "github.com/mark3labs/mcp-go/mcp"

// Tools returns the MCP tools available with the configured components. Storage tools
// need a page store and import tools need a Confluence client.
func (s *Server) Tools() []mcp.Tool {
	all := []mcp.Tool{
		mcp.NewTool("convert_html",
			mcp.WithDescription("Convert an HTML fragment into a block document ({time, blocks, version}). Headings, paragraphs, lists and blockquotes become blocks; other markup is dropped."),
			mcp.WithString("html",
				mcp.Required(),
				mcp.Description("HTML fragment to convert"),
			),
		),
		mcp.NewTool("convert_markdown",
			mcp.WithDescription("Convert Markdown into a block document"),
			mcp.WithString("markdown",
				mcp.Required(),
				mcp.Description("Markdown source"),
			),
		),
		mcp.NewTool("render_document",
			mcp.WithDescription("Render a block document to sanitized HTML. Unknown block types render to nothing."),
			mcp.WithObject("document",
				mcp.Required(),
				mcp.Description("Block document with a blocks array"),
			),
		),
		mcp.NewTool("render_markdown",
			mcp.WithDescription("Render a block document to Markdown"),
			mcp.WithObject("document",
				mcp.Required(),
				mcp.Description("Block document with a blocks array"),
			),
		),
		mcp.NewTool("validate_document",
			mcp.WithDescription("Check every block of a document against its type's schema"),
			mcp.WithObject("document",
				mcp.Required(),
				mcp.Description("Block document with a blocks array"),
			),
		),
		mcp.NewTool("save_content",
			mcp.WithDescription("Create a page, or update it when id is given. Provide exactly one of document, html, markdown or content. The cached HTML rendering is regenerated on every save."),
			mcp.WithString("id",
				mcp.Description("Page ID to update; omit to create a page"),
			),
			mcp.WithString("title",
				mcp.Description("Page title (required when creating)"),
			),
			mcp.WithObject("document",
				mcp.Description("Block document to store"),
			),
			mcp.WithString("html",
				mcp.Description("HTML converted to a block document before storing"),
			),
			mcp.WithString("markdown",
				mcp.Description("Markdown converted to a block document before storing"),
			),
			mcp.WithString("content",
				mcp.Description("Raw value stored as given: plain text or a JSON document"),
			),
		),
		mcp.NewTool("get_content",
			mcp.WithDescription("Get a page with its stored content and cached HTML rendering"),
			mcp.WithString("id",
				mcp.Required(),
				mcp.Description("Page ID"),
			),
		),
		mcp.NewTool("list_pages",
			mcp.WithDescription("List stored pages, most recently updated first"),
			mcp.WithNumber("limit",
				mcp.Description("Max results (default: all)"),
			),
		),
		mcp.NewTool("search_pages",
			mcp.WithDescription("Search stored pages by title and rendered content (case-insensitive)"),
			mcp.WithString("query",
				mcp.Required(),
				mcp.Description("Text to search for"),
			),
			mcp.WithNumber("limit",
				mcp.Description("Max results (default: 20)"),
			),
		),
		mcp.NewTool("delete_page",
			mcp.WithDescription("Delete a stored page"),
			mcp.WithString("id",
				mcp.Required(),
				mcp.Description("Page ID"),
			),
		),
		mcp.NewTool("import_confluence_page",
			mcp.WithDescription("Fetch a Confluence page, convert its body to a block document and store it as a page"),
			mcp.WithString("page_id",
				mcp.Required(),
				mcp.Description("The Confluence page ID"),
			),
			mcp.WithBoolean("save",
				mcp.Description("Store the imported page (default: true)"),
			),
		),
		mcp.NewTool("search_confluence_pages",
			mcp.WithDescription("Search Confluence pages with a CQL query"),
			mcp.WithString("cql",
				mcp.Required(),
				mcp.Description(`CQL query, e.g. space = "DEV" and title ~ "release"`),
			),
			mcp.WithNumber("limit",
				mcp.Description("Max results (default: 25)"),
			),
		),
	}

	available := s.handlers()
	tools := make([]mcp.Tool, 0, len(all))
	for _, tool := range all {
		if _, ok := available[tool.Name]; ok {
			tools = append(tools, tool)
		}
	}
	return tools
}
