package runner

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// Cache remembers, per file path, the content-and-options hash of the last
// completed transform. A file whose hash matches can be skipped entirely:
// the engine is deterministic and idempotent, so re-running it would be a
// no-op.
type Cache struct {
	db *sql.DB
	mu sync.Mutex
}

// OpenCache opens (or creates) the cache database at path.
func OpenCache(path string) (*Cache, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	const schema = `
	CREATE TABLE IF NOT EXISTS transforms (
		path TEXT PRIMARY KEY,
		hash TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close closes the cache database.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.db.Close()
}

// Hash computes the cache key for file content under an options
// fingerprint.
func Hash(content []byte, fingerprint string) string {
	h := sha256.New()
	h.Write(content)
	h.Write([]byte{0})
	h.Write([]byte(fingerprint))
	return hex.EncodeToString(h.Sum(nil))
}

// Fresh reports whether path was last transformed with exactly this hash.
func (c *Cache) Fresh(path, hash string) bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	var stored string
	err := c.db.QueryRow(`SELECT hash FROM transforms WHERE path = ?`, path).Scan(&stored)
	return err == nil && stored == hash
}

// Record stores the hash of a completed transform.
func (c *Cache) Record(path, hash string) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.db.Exec(
		`INSERT INTO transforms (path, hash, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(path) DO UPDATE SET hash = excluded.hash, updated_at = CURRENT_TIMESTAMP`,
		path, hash)
	return err
}
