package cache

import (
	"bytes"
	"database/sql"
	"encoding/gob"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/tursodatabase/go-libsql"
)

func init() {
	// Concrete value shapes persisted by the scan and library operations.
	gob.Register(map[string]int{})
	gob.Register(map[string]bool{})
	gob.Register(map[string]string{})
	gob.Register(map[string]map[string]string{})
	gob.Register([]string{})
}

// LibsqlCacheService persists cache entries in a local libsql database so
// derived dictionary indices and whole-study scan results survive between
// validation runs.
type LibsqlCacheService struct {
	db *sql.DB
}

// NewLibsqlCacheService opens or initializes the cache database at dbPath.
func NewLibsqlCacheService(dbPath string) (*LibsqlCacheService, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("could not create cache directory: %w", err)
	}

	db, err := sql.Open("libsql", "file:"+dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	service := &LibsqlCacheService{db: db}
	if err := service.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return service, nil
}

func (c *LibsqlCacheService) initSchema() error {
	_, err := c.db.Exec(`CREATE TABLE IF NOT EXISTS cache_entries (
		key TEXT PRIMARY KEY UNIQUE,
		value BLOB,
		time_stamp DATETIME DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("failed to create cache_entries table: %w", err)
	}
	return nil
}

// Get returns the cached value for key, if any. Undecodable or absent
// entries report a miss so the caller recomputes and overwrites.
func (c *LibsqlCacheService) Get(key string) (interface{}, bool) {
	var blob []byte
	err := c.db.QueryRow(`SELECT value FROM cache_entries WHERE key = ?`, key).Scan(&blob)
	if err != nil {
		if err != sql.ErrNoRows {
			slog.Warn("Cache read failed", "key", key, "error", err)
		}
		return nil, false
	}

	var value interface{}
	if err := gob.NewDecoder(bytes.NewReader(blob)).Decode(&value); err != nil {
		slog.Warn("Cache entry undecodable, treating as miss", "key", key, "error", err)
		return nil, false
	}
	return value, true
}

// Add stores value under key, overwriting any previous entry. Values that
// cannot be gob-encoded are skipped; the cache is a memoization layer, not a
// source of truth.
func (c *LibsqlCacheService) Add(key string, value interface{}) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&value); err != nil {
		slog.Warn("Cache entry not encodable, skipping", "key", key, "error", err)
		return
	}

	_, err := c.db.Exec(
		`INSERT INTO cache_entries (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, time_stamp = CURRENT_TIMESTAMP`,
		key, buf.Bytes(),
	)
	if err != nil {
		slog.Warn("Cache write failed", "key", key, "error", err)
	}
}

// Close releases the underlying database handle.
func (c *LibsqlCacheService) Close() error {
	return c.db.Close()
}
