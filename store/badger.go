package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/agentplexus/blockeditor/config"
	"github.com/agentplexus/blockeditor/content"
)

// BadgerStore keeps pages in an embedded Badger database.
type BadgerStore struct {
	store    *badgerhold.Store
	renderer content.Renderer
	logger   arbor.ILogger

	// mu serializes read-modify-write updates.
	mu sync.Mutex
}

// NewBadgerStore opens (or creates) the database at cfg.Path.
func NewBadgerStore(logger arbor.ILogger, cfg *config.BadgerConfig, r content.Renderer) (*BadgerStore, error) {
	if cfg.ResetOnStartup {
		if _, err := os.Stat(cfg.Path); err == nil {
			logger.Debug().Str("path", cfg.Path).Msg("Deleting existing database (reset_on_startup=true)")
			if err := os.RemoveAll(cfg.Path); err != nil {
				logger.Warn().Err(err).Str("path", cfg.Path).Msg("Failed to delete database directory")
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = cfg.Path
	options.ValueDir = cfg.Path
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		logger.Error().Err(err).Str("path", cfg.Path).Msg("Failed to open badger database")
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	logger.Debug().Str("path", cfg.Path).Msg("Badger page store initialized")
	return &BadgerStore{store: store, renderer: r, logger: logger}, nil
}

func (s *BadgerStore) Create(ctx context.Context, title string, value interface{}) (*Page, error) {
	page, err := newPage(title, value, s.renderer)
	if err != nil {
		return nil, err
	}
	if err := s.store.Insert(page.ID, page); err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	return page, nil
}

func (s *BadgerStore) Get(ctx context.Context, id string) (*Page, error) {
	var page Page
	if err := s.store.Get(id, &page); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, ErrPageNotFound
		}
		return nil, fmt.Errorf("failed to get page: %w", err)
	}
	return &page, nil
}

func (s *BadgerStore) Update(ctx context.Context, id string, update *PageUpdate) (*Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	page, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	changed, err := apply(page, update, s.renderer)
	if err != nil || !changed {
		return page, err
	}
	if err := s.store.Update(id, page); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, ErrPageNotFound
		}
		return nil, fmt.Errorf("failed to update page: %w", err)
	}
	return page, nil
}

func (s *BadgerStore) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(id, &Page{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return ErrPageNotFound
		}
		return fmt.Errorf("failed to delete page: %w", err)
	}
	return nil
}

func (s *BadgerStore) List(ctx context.Context) ([]*Page, error) {
	var pages []Page
	if err := s.store.Find(&pages, badgerhold.Where("ID").Ne("").SortBy("UpdatedAt").Reverse()); err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	return pointers(pages), nil
}

func (s *BadgerStore) Search(ctx context.Context, query string, limit int) ([]*Page, error) {
	regex, err := regexp.Compile("(?i)" + regexp.QuoteMeta(query))
	if err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	q := badgerhold.Where("Title").RegExp(regex).Or(badgerhold.Where("CachedContent").RegExp(regex))
	if limit > 0 {
		q = q.Limit(limit)
	}

	var pages []Page
	if err := s.store.Find(&pages, q); err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	return pointers(pages), nil
}

// Close closes the database.
func (s *BadgerStore) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

func pointers(pages []Page) []*Page {
	out := make([]*Page, len(pages))
	for i := range pages {
		out[i] = &pages[i]
	}
	return out
}
