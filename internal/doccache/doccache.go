// Package doccache stores fetched library documentation pages in a small
// SQLite database separate from the record store, keyed by library, topic,
// and page number.
package doccache

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// FileName is the cache database file inside the base directory.
const FileName = "library-cache.db"

const schema = `
CREATE TABLE IF NOT EXISTS doc_cache (
    cache_key  TEXT PRIMARY KEY,
    library_id TEXT NOT NULL,
    topic      TEXT NOT NULL DEFAULT '',
    page       INTEGER NOT NULL DEFAULT 1,
    content    TEXT NOT NULL,
    created_at TEXT NOT NULL
);
`

// Cache is a documentation page cache backed by its own SQLite file.
type Cache struct {
	db *sql.DB
}

// Open opens (creating if needed) the cache database in baseDir.
func Open(baseDir string) (*Cache, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)",
		filepath.Join(baseDir, FileName))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening doc cache: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating doc cache schema: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close closes the underlying database.
func (c *Cache) Close() error { return c.db.Close() }

// Key builds the cache key for a lookup. A nil topic and a page-1 lookup
// share keys with their explicit-default equivalents.
func Key(libraryID string, topic *string, page int) string {
	t := ""
	if topic != nil {
		t = *topic
	}
	if page <= 0 {
		page = 1
	}
	return fmt.Sprintf("%s::%s::%d", libraryID, t, page)
}

// Get returns the cached content for the key, or ok=false on a miss.
func (c *Cache) Get(libraryID string, topic *string, page int) (content string, ok bool, err error) {
	err = c.db.QueryRow(
		`SELECT content FROM doc_cache WHERE cache_key = ?`,
		Key(libraryID, topic, page),
	).Scan(&content)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return content, true, nil
}

// Set stores content for the key, replacing any previous entry.
func (c *Cache) Set(libraryID string, topic *string, page int, content string) error {
	t := ""
	if topic != nil {
		t = *topic
	}
	if page <= 0 {
		page = 1
	}
	_, err := c.db.Exec(
		`INSERT OR REPLACE INTO doc_cache (cache_key, library_id, topic, page, content, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		Key(libraryID, topic, page), libraryID, t, page, content,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// Purge removes every cached page for a library. Returns the number of
// entries removed.
func (c *Cache) Purge(libraryID string) (int64, error) {
	res, err := c.db.Exec(`DELETE FROM doc_cache WHERE library_id = ?`, libraryID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
