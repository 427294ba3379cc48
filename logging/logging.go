// Package logging builds the arbor logger shared by every component.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"

	"github.com/agentplexus/blockeditor/config"
)

// Rotation limits for the file writer.
const (
	maxFileSize    = 10 * 1024 * 1024
	maxFileBackups = 3
)

// New creates a logger with the writers named in cfg.Output. The MCP server speaks on
// stdout, so "console" output is only safe when the server is not attached to stdio.
func New(cfg config.LoggingConfig) arbor.ILogger {
	logger := arbor.NewLogger()

	timeFormat := cfg.TimeFormat
	if timeFormat == "" {
		timeFormat = "15:04:05"
	}

	for _, output := range cfg.Output {
		switch output {
		case "console", "stdout":
			logger = logger.WithConsoleWriter(models.WriterConfiguration{
				Type:       models.LogWriterTypeConsole,
				TimeFormat: timeFormat,
				TextOutput: true,
			})
		case "file":
			if cfg.File == "" {
				continue
			}
			if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to create log directory: %v\n", err)
				continue
			}
			logger = logger.WithFileWriter(models.WriterConfiguration{
				Type:       models.LogWriterTypeFile,
				FileName:   cfg.File,
				TimeFormat: timeFormat,
				MaxSize:    maxFileSize,
				MaxBackups: maxFileBackups,
				TextOutput: true,
			})
		}
	}

	level := cfg.Level
	if level == "" {
		level = "info"
	}
	return logger.WithLevelFromString(level)
}
