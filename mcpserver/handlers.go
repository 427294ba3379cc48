package mcpserver

import (
	"context"
	"errors"
	"fmt"

	"github.com/agentplexus/blockeditor/blocks"
	"github.com/agentplexus/blockeditor/store"
)

func (s *Server) handleConvertHTML(_ context.Context, input map[string]interface{}) (interface{}, error) {
	html, ok := input["html"].(string)
	if !ok {
		return nil, fmt.Errorf("html is required")
	}
	return s.converter.Convert(html)
}

func (s *Server) handleConvertMarkdown(_ context.Context, input map[string]interface{}) (interface{}, error) {
	markdown, ok := input["markdown"].(string)
	if !ok {
		return nil, fmt.Errorf("markdown is required")
	}
	return s.converter.ConvertMarkdown(markdown)
}

func (s *Server) handleRenderDocument(_ context.Context, input map[string]interface{}) (interface{}, error) {
	doc, err := documentArg(input, "document")
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"html": s.renderer.Render(doc),
	}, nil
}

func (s *Server) handleRenderMarkdown(_ context.Context, input map[string]interface{}) (interface{}, error) {
	doc, err := documentArg(input, "document")
	if err != nil {
		return nil, err
	}
	markdown, err := s.renderer.Markdown(doc)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"markdown": markdown,
	}, nil
}

func (s *Server) handleValidateDocument(_ context.Context, input map[string]interface{}) (interface{}, error) {
	doc, err := documentArg(input, "document")
	if err != nil {
		return nil, err
	}

	problems := []string{}
	if err := blocks.Validate(doc); err != nil {
		var verrs blocks.ValidationErrors
		if errors.As(err, &verrs) {
			for _, e := range verrs {
				problems = append(problems, e.Error())
			}
		} else {
			problems = append(problems, err.Error())
		}
	}
	return map[string]interface{}{
		"valid":  len(problems) == 0,
		"blocks": len(doc.Blocks),
		"errors": problems,
	}, nil
}

// contentArg resolves the single content argument of save_content. The boolean is false
// when none was given.
func (s *Server) contentArg(input map[string]interface{}) (interface{}, bool, error) {
	var given []string
	for _, key := range []string{"document", "html", "markdown", "content"} {
		if _, ok := input[key]; ok {
			given = append(given, key)
		}
	}
	if len(given) == 0 {
		return nil, false, nil
	}
	if len(given) > 1 {
		return nil, false, fmt.Errorf("provide only one of document, html, markdown or content (got %v)", given)
	}

	switch given[0] {
	case "document":
		doc, err := documentArg(input, "document")
		return doc, true, err
	case "html":
		doc, err := s.converter.Convert(stringArg(input, "html"))
		return doc, true, err
	case "markdown":
		doc, err := s.converter.ConvertMarkdown(stringArg(input, "markdown"))
		return doc, true, err
	default:
		content, ok := input["content"].(string)
		if !ok {
			return nil, false, fmt.Errorf("content must be a string")
		}
		return content, true, nil
	}
}

func (s *Server) handleSaveContent(ctx context.Context, input map[string]interface{}) (interface{}, error) {
	id := stringArg(input, "id")
	value, hasValue, err := s.contentArg(input)
	if err != nil {
		return nil, err
	}

	if id == "" {
		title := stringArg(input, "title")
		if title == "" {
			return nil, fmt.Errorf("title is required")
		}
		if !hasValue {
			value = ""
		}
		page, err := s.pages.Create(ctx, title, value)
		if err != nil {
			return nil, err
		}
		s.logger.Info().Str("id", page.ID).Str("title", page.Title).Msg("Page created")
		return pageToJSON(page), nil
	}

	update := &store.PageUpdate{}
	if _, ok := input["title"]; ok {
		title := stringArg(input, "title")
		update.Title = &title
	}
	if hasValue {
		update.Content = value
	}
	page, err := s.pages.Update(ctx, id, update)
	if err != nil {
		return nil, err
	}
	return pageToJSON(page), nil
}

func (s *Server) handleGetContent(ctx context.Context, input map[string]interface{}) (interface{}, error) {
	id := stringArg(input, "id")
	if id == "" {
		return nil, fmt.Errorf("id is required")
	}
	page, err := s.pages.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return pageToJSON(page), nil
}

func (s *Server) handleListPages(ctx context.Context, input map[string]interface{}) (interface{}, error) {
	pages, err := s.pages.List(ctx)
	if err != nil {
		return nil, err
	}
	if limit := intArg(input, "limit", 0); limit > 0 && len(pages) > limit {
		pages = pages[:limit]
	}
	return map[string]interface{}{
		"count": len(pages),
		"pages": pageSummaries(pages),
	}, nil
}

func (s *Server) handleSearchPages(ctx context.Context, input map[string]interface{}) (interface{}, error) {
	query := stringArg(input, "query")
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}
	pages, err := s.pages.Search(ctx, query, intArg(input, "limit", 20))
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"count": len(pages),
		"pages": pageSummaries(pages),
	}, nil
}

func (s *Server) handleDeletePage(ctx context.Context, input map[string]interface{}) (interface{}, error) {
	id := stringArg(input, "id")
	if id == "" {
		return nil, fmt.Errorf("id is required")
	}
	if err := s.pages.Delete(ctx, id); err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"status": "deleted",
		"id":     id,
	}, nil
}

func (s *Server) handleImportConfluencePage(ctx context.Context, input map[string]interface{}) (interface{}, error) {
	pageID := stringArg(input, "page_id")
	if pageID == "" {
		return nil, fmt.Errorf("page_id is required")
	}

	imp, err := s.client.ImportPage(ctx, pageID)
	if err != nil {
		return nil, err
	}

	result := map[string]interface{}{
		"page_id":  imp.ID,
		"title":    imp.Title,
		"version":  imp.Version,
		"document": imp.Document,
	}
	if boolArg(input, "save", true) && s.pages != nil {
		page, err := s.pages.Create(ctx, imp.Title, imp.Document)
		if err != nil {
			return nil, fmt.Errorf("store imported page: %w", err)
		}
		result["stored"] = pageSummary(page)
	}
	return result, nil
}

func (s *Server) handleSearchConfluencePages(ctx context.Context, input map[string]interface{}) (interface{}, error) {
	cql := stringArg(input, "cql")
	if cql == "" {
		return nil, fmt.Errorf("cql is required")
	}

	pages, err := s.client.SearchPages(ctx, cql, intArg(input, "limit", 25))
	if err != nil {
		return nil, err
	}

	results := make([]map[string]interface{}, len(pages))
	for i, p := range pages {
		results[i] = map[string]interface{}{
			"page_id": p.ID,
			"title":   p.Title,
			"type":    p.Type,
			"status":  p.Status,
		}
	}

	return map[string]interface{}{
		"count":   len(results),
		"results": results,
	}, nil
}
