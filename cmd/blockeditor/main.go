// Command blockeditor runs an MCP server over stdio that converts HTML and Markdown into
// block documents, renders them to sanitized HTML and stores pages with a cached
// rendering.
//
// Configuration is read from TOML files, a .env file and BLOCKEDITOR_* environment
// variables, in that order of precedence (lowest first):
//
//	blockeditor -config blockeditor.toml
//	BLOCKEDITOR_CONFIG=blockeditor.toml blockeditor
//
// Confluence import tools are enabled when BLOCKEDITOR_CONFLUENCE_BASE_URL is set.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"

	"github.com/agentplexus/blockeditor/config"
	"github.com/agentplexus/blockeditor/confluence"
	"github.com/agentplexus/blockeditor/convert"
	"github.com/agentplexus/blockeditor/logging"
	"github.com/agentplexus/blockeditor/mcpserver"
	"github.com/agentplexus/blockeditor/render"
	"github.com/agentplexus/blockeditor/store"
)

const (
	serverName    = "blockeditor"
	serverVersion = "0.2.0"
)

func main() {
	configPath := flag.String("config", os.Getenv("BLOCKEDITOR_CONFIG"), "path to a TOML config file")
	flag.Parse()

	var paths []string
	if *configPath != "" {
		paths = append(paths, *configPath)
	}
	cfg, err := config.Load(paths...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// stdout carries MCP traffic, so console logging is opt-in
	logger := logging.New(cfg.Logging)

	renderer := newRenderer(cfg, logger)
	converter := convert.New(
		convert.WithLogger(logger),
		convert.WithVersion(cfg.Converter.Version),
	)

	pages, err := store.New(logger, &cfg.Storage, renderer)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize storage")
	}
	defer pages.Close()

	opts := []mcpserver.Option{mcpserver.WithLogger(logger)}
	client, err := newConfluenceClient(cfg.Confluence, converter, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid confluence configuration")
	}
	if client != nil {
		opts = append(opts, mcpserver.WithConfluence(client))
		logger.Info().Str("base_url", cfg.Confluence.BaseURL).Msg("Confluence import enabled")
	}

	mcpServer := server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(true),
	)
	mcpserver.New(converter, renderer, pages, opts...).Register(mcpServer)

	logger.Info().Str("storage", cfg.Storage.Type).Msg("MCP server starting")
	if err := server.ServeStdio(mcpServer); err != nil {
		logger.Error().Err(err).Msg("MCP server failed")
	}
}

func newRenderer(cfg *config.Config, logger arbor.ILogger) *render.Renderer {
	return render.New(
		render.WithLogger(logger),
		render.WithAllowList(render.AllowList{
			Elements:          cfg.Sanitizer.Elements,
			Attributes:        cfg.Sanitizer.Attributes,
			URLSchemes:        cfg.Sanitizer.URLSchemes,
			AllowRelativeURLs: cfg.Sanitizer.AllowRelativeURLs,
		}),
	)
}

// newConfluenceClient returns nil when no base URL is configured. A bearer token takes
// precedence over basic credentials.
func newConfluenceClient(cfg config.ConfluenceConfig, conv confluence.Converter, logger arbor.ILogger) (*confluence.Client, error) {
	if cfg.BaseURL == "" {
		return nil, nil
	}

	var auth confluence.AuthMethod
	switch {
	case cfg.Token != "":
		auth = confluence.BearerAuth{Token: cfg.Token}
	case cfg.Username != "" && cfg.APIToken != "":
		auth = confluence.BasicAuth{Username: cfg.Username, Token: cfg.APIToken}
	default:
		return nil, fmt.Errorf("confluence credentials missing: set token, or username and api_token")
	}

	timeout := 30 * time.Second
	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid confluence timeout %q: %w", cfg.Timeout, err)
		}
		timeout = d
	}

	return confluence.NewClient(cfg.BaseURL, auth,
		confluence.WithHTTPClient(&http.Client{Timeout: timeout}),
		confluence.WithConverter(conv),
		confluence.WithLogger(logger),
	), nil
}
