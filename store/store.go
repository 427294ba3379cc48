// Package store persists pages whose body is a content field. Every write regenerates
// the cached rendering before the record is committed.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/agentplexus/blockeditor/config"
	"github.com/agentplexus/blockeditor/content"
)

// ErrPageNotFound is returned when no page has the requested id.
var ErrPageNotFound = errors.New("page not found")

// Page is a titled content record.
type Page struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	content.Field
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int       `json:"version"`
}

// PageUpdate is a partial update. A nil Title or Content leaves that part unchanged;
// an empty string clears it.
type PageUpdate struct {
	Title   *string
	Content interface{}
}

// PageStore persists pages.
type PageStore interface {
	Create(ctx context.Context, title string, value interface{}) (*Page, error)
	Get(ctx context.Context, id string) (*Page, error)
	Update(ctx context.Context, id string, update *PageUpdate) (*Page, error)
	Delete(ctx context.Context, id string) error
	// List returns all pages, most recently updated first.
	List(ctx context.Context) ([]*Page, error)
	// Search matches query case-insensitively against titles and cached renderings.
	Search(ctx context.Context, query string, limit int) ([]*Page, error)
	Close() error
}

// New opens the store selected by cfg.Type.
func New(logger arbor.ILogger, cfg *config.StorageConfig, r content.Renderer) (PageStore, error) {
	switch cfg.Type {
	case "", "badger":
		return NewBadgerStore(logger, &cfg.Badger, r)
	case "postgres":
		return NewPostgresStore(logger, cfg.Postgres.ConnectionString(), r)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

// newPage builds a fresh page with its content set and cache rendered.
func newPage(title string, value interface{}, r content.Renderer) (*Page, error) {
	now := time.Now().UTC()
	page := &Page{
		ID:        uuid.New().String(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
	if err := page.Set(value); err != nil {
		return nil, err
	}
	if err := page.BeforeSave(r); err != nil {
		return nil, err
	}
	return page, nil
}

// apply merges update into page and re-renders the cache. It reports whether anything
// changed.
func apply(page *Page, update *PageUpdate, r content.Renderer) (bool, error) {
	if update == nil || (update.Title == nil && update.Content == nil) {
		return false, nil
	}
	if update.Title != nil {
		page.Title = *update.Title
	}
	if update.Content != nil {
		if err := page.Set(update.Content); err != nil {
			return false, err
		}
	}
	if err := page.BeforeSave(r); err != nil {
		return false, err
	}
	page.UpdatedAt = time.Now().UTC()
	page.Version++
	return true, nil
}
