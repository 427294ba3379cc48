// Package confluence imports legacy pages from the Confluence REST API.
// A page's rendered HTML body is fetched and converted into a block document.
package confluence

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/agentplexus/blockeditor/blocks"
	"github.com/agentplexus/blockeditor/convert"
)

// Client is a Confluence REST API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	auth       AuthMethod
	converter  Converter
	logger     arbor.ILogger
}

// Converter turns a fetched HTML body into a block document.
type Converter interface {
	Convert(fragment string) (*blocks.Document, error)
}

// AuthMethod represents an authentication method.
type AuthMethod interface {
	Apply(req *http.Request)
}

// BasicAuth implements basic authentication using API tokens.
type BasicAuth struct {
	Username string
	Token    string // API token (not password)
}

// Apply implements AuthMethod.
func (b BasicAuth) Apply(req *http.Request) {
	req.SetBasicAuth(b.Username, b.Token)
}

// BearerAuth implements bearer token authentication.
type BearerAuth struct {
	Token string
}

// Apply implements AuthMethod.
func (b BearerAuth) Apply(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+b.Token)
}

// NewClient creates a new Confluence client.
func NewClient(baseURL string, auth AuthMethod, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
		auth:       auth,
		converter:  convert.New(),
		logger:     arbor.NewLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithConverter sets the converter used by ImportPage.
func WithConverter(conv Converter) Option {
	return func(c *Client) {
		c.converter = conv
	}
}

// WithLogger sets the client logger.
func WithLogger(logger arbor.ILogger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// APIError represents an error returned by the Confluence API.
type APIError struct {
	StatusCode int
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("confluence API error %d: %s", e.StatusCode, e.Message)
}

// PageInfo contains metadata about a Confluence page.
type PageInfo struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Status   string `json:"status"`
	Title    string `json:"title"`
	Version  int    `json:"version"`
	SpaceKey string `json:"spaceKey,omitempty"`
}

// Page is a fetched page with its rendered HTML body.
type Page struct {
	PageInfo
	HTML string `json:"html"`
}

// Import is a page converted to a block document.
type Import struct {
	PageInfo
	Document *blocks.Document `json:"document"`
}

// GetPage retrieves a page and its rendered (view) HTML body.
func (c *Client) GetPage(ctx context.Context, pageID string) (*Page, error) {
	path := "/rest/api/content/" + url.PathEscape(pageID) + "?expand=body.view,version,space"
	body, err := c.get(ctx, path, "failed to get page")
	if err != nil {
		return nil, err
	}

	var result struct {
		ID     string `json:"id"`
		Type   string `json:"type"`
		Status string `json:"status"`
		Title  string `json:"title"`
		Body   struct {
			View struct {
				Value string `json:"value"`
			} `json:"view"`
		} `json:"body"`
		Version struct {
			Number int `json:"number"`
		} `json:"version"`
		Space struct {
			Key string `json:"key"`
		} `json:"space"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("json decode error: %w", err)
	}

	return &Page{
		PageInfo: PageInfo{
			ID:       result.ID,
			Type:     result.Type,
			Status:   result.Status,
			Title:    result.Title,
			Version:  result.Version.Number,
			SpaceKey: result.Space.Key,
		},
		HTML: result.Body.View.Value,
	}, nil
}

// ImportPage fetches a page and converts its body into a block document.
func (c *Client) ImportPage(ctx context.Context, pageID string) (*Import, error) {
	page, err := c.GetPage(ctx, pageID)
	if err != nil {
		return nil, err
	}

	doc, err := c.converter.Convert(page.HTML)
	if err != nil {
		return nil, fmt.Errorf("convert page %s: %w", pageID, err)
	}

	c.logger.Info().
		Str("page_id", page.ID).
		Str("title", page.Title).
		Int("blocks", len(doc.Blocks)).
		Msg("Imported Confluence page")

	return &Import{PageInfo: page.PageInfo, Document: doc}, nil
}

// SearchPages searches for pages matching the given CQL query.
func (c *Client) SearchPages(ctx context.Context, cql string, limit int) ([]PageInfo, error) {
	params := url.Values{}
	params.Set("cql", cql)
	if limit > 0 {
		params.Set("limit", fmt.Sprint(limit))
	}
	body, err := c.get(ctx, "/rest/api/content/search?"+params.Encode(), "failed to search pages")
	if err != nil {
		return nil, err
	}

	var result struct {
		Results []struct {
			ID     string `json:"id"`
			Type   string `json:"type"`
			Status string `json:"status"`
			Title  string `json:"title"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("json decode error: %w", err)
	}

	pages := make([]PageInfo, len(result.Results))
	for i, r := range result.Results {
		pages[i] = PageInfo{
			ID:     r.ID,
			Type:   r.Type,
			Status: r.Status,
			Title:  r.Title,
		}
	}

	return pages, nil
}

// get performs an authenticated GET and returns the body of a 200 response.
func (c *Client) get(ctx context.Context, path, failure string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.auth != nil {
		c.auth.Apply(req)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn().Int("status", resp.StatusCode).Str("path", path).Msg(failure)
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    failure,
			Body:       string(body),
		}
	}
	return body, nil
}
