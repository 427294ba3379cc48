package store

import "context"

// migrate creates the pages table if it doesn't exist and adds the cache column to
// tables created before it was introduced.
func (s *PostgresStore) migrate(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS pages (
		id VARCHAR(36) PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		cached_content TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP WITH TIME ZONE NOT NULL,
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
		version INTEGER NOT NULL DEFAULT 1
	);

	ALTER TABLE pages ADD COLUMN IF NOT EXISTS cached_content TEXT NOT NULL DEFAULT '';

	CREATE INDEX IF NOT EXISTS idx_pages_updated_at ON pages(updated_at);
	`

	_, err := s.db.ExecContext(ctx, query)
	return err
}
