package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/ternarybob/arbor"

	"github.com/agentplexus/blockeditor/content"
)

const pageColumns = "id, title, content, cached_content, created_at, updated_at, version"

// PostgresStore keeps pages in PostgreSQL. Each page row carries the authoritative
// content and its cached rendering in two text columns.
type PostgresStore struct {
	db       *sql.DB
	renderer content.Renderer
	logger   arbor.ILogger
}

// NewPostgresStore connects to connStr and migrates the schema.
func NewPostgresStore(logger arbor.ILogger, connStr string, r content.Renderer) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &PostgresStore{db: db, renderer: r, logger: logger}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	logger.Debug().Msg("Postgres page store initialized")
	return s, nil
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) Create(ctx context.Context, title string, value interface{}) (*Page, error) {
	page, err := newPage(title, value, s.renderer)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO pages (` + pageColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + pageColumns

	created, err := scanPage(s.db.QueryRowContext(ctx, query,
		page.ID, page.Title, page.Content, page.CachedContent,
		page.CreatedAt, page.UpdatedAt, page.Version,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	return created, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Page, error) {
	query := `SELECT ` + pageColumns + ` FROM pages WHERE id = $1`

	page, err := scanPage(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPageNotFound
		}
		return nil, fmt.Errorf("failed to get page: %w", err)
	}
	return page, nil
}

// Update re-renders the cache from the merged page, then writes title, content and
// cache together so the row is never stale.
func (s *PostgresStore) Update(ctx context.Context, id string, update *PageUpdate) (*Page, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	page, err := scanPage(tx.QueryRowContext(ctx,
		`SELECT `+pageColumns+` FROM pages WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPageNotFound
		}
		return nil, fmt.Errorf("failed to get page: %w", err)
	}

	changed, err := apply(page, update, s.renderer)
	if err != nil {
		return nil, err
	}
	if !changed {
		return page, nil
	}

	query, args := buildUpdate(id, update, page)
	updated, err := scanPage(tx.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("failed to update page: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit update: %w", err)
	}
	return updated, nil
}

// buildUpdate returns the UPDATE statement for the fields named in update, using the
// already merged and rendered page for the values.
func buildUpdate(id string, update *PageUpdate, page *Page) (string, []interface{}) {
	sets := []string{}
	args := []interface{}{}
	argPos := 1

	if update.Title != nil {
		sets = append(sets, fmt.Sprintf("title = $%d", argPos))
		args = append(args, page.Title)
		argPos++
	}
	if update.Content != nil {
		sets = append(sets, fmt.Sprintf("content = $%d", argPos))
		args = append(args, page.Content)
		argPos++
	}

	// The cache is always rewritten alongside any change.
	sets = append(sets, fmt.Sprintf("cached_content = $%d", argPos))
	args = append(args, page.CachedContent)
	argPos++
	sets = append(sets, fmt.Sprintf("updated_at = $%d", argPos))
	args = append(args, page.UpdatedAt)
	argPos++
	sets = append(sets, "version = version + 1")

	args = append(args, id)

	query := fmt.Sprintf(`
		UPDATE pages
		SET %s
		WHERE id = $%d
		RETURNING %s
	`, strings.Join(sets, ", "), argPos, pageColumns)
	return query, args
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM pages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete page: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrPageNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*Page, error) {
	return s.query(ctx, `SELECT `+pageColumns+` FROM pages ORDER BY updated_at DESC`)
}

func (s *PostgresStore) Search(ctx context.Context, query string, limit int) ([]*Page, error) {
	pattern := "%" + escapeLike(query) + "%"
	stmt := `SELECT ` + pageColumns + ` FROM pages
		WHERE title ILIKE $1 OR cached_content ILIKE $1
		ORDER BY updated_at DESC`
	if limit > 0 {
		return s.query(ctx, stmt+` LIMIT $2`, pattern, limit)
	}
	return s.query(ctx, stmt, pattern)
}

func (s *PostgresStore) query(ctx context.Context, query string, args ...interface{}) ([]*Page, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	defer rows.Close()

	var pages []*Page
	for rows.Next() {
		page, err := scanPage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		pages = append(pages, page)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pages: %w", err)
	}
	return pages, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanPage(row scanner) (*Page, error) {
	page := &Page{}
	var created, updated time.Time
	err := row.Scan(
		&page.ID,
		&page.Title,
		&page.Content,
		&page.CachedContent,
		&created,
		&updated,
		&page.Version,
	)
	if err != nil {
		return nil, err
	}
	page.CreatedAt = created.UTC()
	page.UpdatedAt = updated.UTC()
	return page, nil
}

// escapeLike escapes the ILIKE wildcards in s.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
