// Package config loads blockeditor configuration.
//
// Priority: defaults, then each TOML file in order, then variables from a .env file,
// then BLOCKEDITOR_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "BLOCKEDITOR_"

// Config is the complete application configuration.
type Config struct {
	Logging    LoggingConfig    `toml:"logging"`
	Storage    StorageConfig    `toml:"storage"`
	Sanitizer  SanitizerConfig  `toml:"sanitizer"`
	Converter  ConverterConfig  `toml:"converter"`
	Confluence ConfluenceConfig `toml:"confluence"`
}

type LoggingConfig struct {
	Level      string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output     []string `toml:"output"` // "console", "file"
	TimeFormat string   `toml:"time_format"`
	File       string   `toml:"file"`
}

// StorageConfig selects and configures the page store.
type StorageConfig struct {
	Type     string         `toml:"type"` // "badger" or "postgres"
	Badger   BadgerConfig   `toml:"badger"`
	Postgres PostgresConfig `toml:"postgres"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`
	ResetOnStartup bool   `toml:"reset_on_startup"` // delete the database before opening
}

type PostgresConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	SSLMode  string `toml:"sslmode"`
}

// ConnectionString returns a lib/pq keyword/value connection string.
func (p PostgresConfig) ConnectionString() string {
	parts := []string{
		"host=" + p.Host,
		"port=" + strconv.Itoa(p.Port),
		"user=" + p.User,
		"dbname=" + p.Database,
		"sslmode=" + p.SSLMode,
	}
	if p.Password != "" {
		parts = append(parts, "password="+p.Password)
	}
	return strings.Join(parts, " ")
}

// SanitizerConfig is the inline HTML allow-list applied by the renderer.
type SanitizerConfig struct {
	Elements          []string            `toml:"elements"`
	Attributes        map[string][]string `toml:"attributes"` // element -> attributes
	URLSchemes        []string            `toml:"url_schemes"`
	AllowRelativeURLs bool                `toml:"allow_relative_urls"`
}

type ConverterConfig struct {
	Version string `toml:"version"` // schema version stamped on converted documents
}

// ConfluenceConfig configures the legacy page importer. An empty BaseURL disables it.
type ConfluenceConfig struct {
	BaseURL  string `toml:"base_url"`
	Username string `toml:"username"`
	APIToken string `toml:"api_token"`
	Token    string `toml:"token"` // bearer token; takes precedence over username/api_token
	Timeout  string `toml:"timeout"`
}

// NewDefaultConfig returns the built-in defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"file"},
			TimeFormat: "15:04:05",
			File:       "./logs/blockeditor.log",
		},
		Storage: StorageConfig{
			Type: "badger",
			Badger: BadgerConfig{
				Path: "./data/blockeditor",
			},
			Postgres: PostgresConfig{
				Host:     "localhost",
				Port:     5432,
				User:     "postgres",
				Database: "blockeditor",
				SSLMode:  "disable",
			},
		},
		Sanitizer: SanitizerConfig{
			Elements:          []string{"b", "strong", "i", "em", "a", "br"},
			Attributes:        map[string][]string{"a": {"href"}},
			URLSchemes:        []string{"http", "https", "mailto"},
			AllowRelativeURLs: true,
		},
		Converter: ConverterConfig{
			Version: "2.28.2",
		},
		Confluence: ConfluenceConfig{
			Timeout: "30s",
		},
	}
}

// Load builds the configuration from defaults, the TOML files in paths (later files
// override earlier ones), a .env file in the working directory if present, and
// environment overrides.
func Load(paths ...string) (*Config, error) {
	return load(".env", paths...)
}

func load(envFile string, paths ...string) (*Config, error) {
	cfg := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies BLOCKEDITOR_* environment variables to cfg.
func applyEnvOverrides(cfg *Config) error {
	if level := getenv("LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if output := getenv("LOG_OUTPUT"); output != "" {
		cfg.Logging.Output = splitList(output)
	}
	if file := getenv("LOG_FILE"); file != "" {
		cfg.Logging.File = file
	}

	if typ := getenv("STORAGE_TYPE"); typ != "" {
		cfg.Storage.Type = typ
	}
	if path := getenv("BADGER_PATH"); path != "" {
		cfg.Storage.Badger.Path = path
	}
	if reset := getenv("BADGER_RESET_ON_STARTUP"); reset != "" {
		b, err := strconv.ParseBool(reset)
		if err != nil {
			return fmt.Errorf("invalid %sBADGER_RESET_ON_STARTUP: %w", EnvPrefix, err)
		}
		cfg.Storage.Badger.ResetOnStartup = b
	}
	if host := getenv("POSTGRES_HOST"); host != "" {
		cfg.Storage.Postgres.Host = host
	}
	if port := getenv("POSTGRES_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid %sPOSTGRES_PORT: %w", EnvPrefix, err)
		}
		cfg.Storage.Postgres.Port = p
	}
	if user := getenv("POSTGRES_USER"); user != "" {
		cfg.Storage.Postgres.User = user
	}
	if password := getenv("POSTGRES_PASSWORD"); password != "" {
		cfg.Storage.Postgres.Password = password
	}
	if db := getenv("POSTGRES_DB"); db != "" {
		cfg.Storage.Postgres.Database = db
	}
	if sslMode := getenv("POSTGRES_SSLMODE"); sslMode != "" {
		cfg.Storage.Postgres.SSLMode = sslMode
	}

	if schemes := getenv("SANITIZER_URL_SCHEMES"); schemes != "" {
		cfg.Sanitizer.URLSchemes = splitList(schemes)
	}
	if elements := getenv("SANITIZER_ELEMENTS"); elements != "" {
		cfg.Sanitizer.Elements = splitList(elements)
	}

	if version := getenv("CONVERTER_VERSION"); version != "" {
		cfg.Converter.Version = version
	}

	if baseURL := getenv("CONFLUENCE_BASE_URL"); baseURL != "" {
		cfg.Confluence.BaseURL = baseURL
	}
	if username := getenv("CONFLUENCE_USERNAME"); username != "" {
		cfg.Confluence.Username = username
	}
	if apiToken := getenv("CONFLUENCE_API_TOKEN"); apiToken != "" {
		cfg.Confluence.APIToken = apiToken
	}
	if token := getenv("CONFLUENCE_TOKEN"); token != "" {
		cfg.Confluence.Token = token
	}
	return nil
}

func getenv(name string) string {
	return strings.TrimSpace(os.Getenv(EnvPrefix + name))
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
