package database

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/clinterm/medspan/helper"
	"github.com/clinterm/medspan/model"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS term_cache (
	term TEXT PRIMARY KEY,
	entity_type TEXT,
	vocabulary_code TEXT,
	confidence REAL,
	metadata TEXT,
	timestamp INTEGER
);
`

// SQLiteCache is the default single-file durable term cache
type SQLiteCache struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// OpenSQLiteCache opens (or creates) a SQLite term cache at path with
// WAL mode enabled. Entries older than ttl are treated as absent on
// read; there is no background sweep.
func OpenSQLiteCache(ctx context.Context, path string, ttl time.Duration) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, helper.NewError("open sqlite cache", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, helper.NewError("enable WAL mode", err)
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, helper.NewError("initialize cache schema", err)
	}

	return &SQLiteCache{
		db:  db,
		ttl: ttl,
		now: time.Now,
	}, nil
}

// Get returns the live entry for term, or nil on miss or lazy expiry
func (c *SQLiteCache) Get(ctx context.Context, term string) (*model.CacheEntry, error) {
	entry := &model.CacheEntry{}
	row := c.db.QueryRowContext(ctx,
		`SELECT term, entity_type, vocabulary_code, confidence, metadata, timestamp
		 FROM term_cache WHERE term = ?`,
		cacheKey(term),
	)

	err := row.Scan(
		&entry.Term,
		&entry.EntityType,
		&entry.VocabularyCode,
		&entry.Confidence,
		&entry.Metadata,
		&entry.Timestamp,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, helper.NewError("scan cache entry", err)
	}

	if entry.Expired(c.ttl, c.now()) {
		return nil, nil
	}

	return entry, nil
}

// Put inserts or replaces the entry for its term
func (c *SQLiteCache) Put(ctx context.Context, entry *model.CacheEntry) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO term_cache
		 (term, entity_type, vocabulary_code, confidence, metadata, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		cacheKey(entry.Term),
		string(entry.EntityType),
		entry.VocabularyCode,
		entry.Confidence,
		entry.Metadata,
		entry.Timestamp,
	)
	if err != nil {
		return helper.NewError("upsert cache entry", err)
	}
	return nil
}

// Close closes the underlying database
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}

// cacheKey lower-cases and trims a term into its cache key form
func cacheKey(term string) string {
	return strings.ToLower(strings.TrimSpace(term))
}
