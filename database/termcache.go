package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/clinterm/medspan/helper"
	"github.com/clinterm/medspan/model"
	medspansql "github.com/clinterm/medspan/sql"
)

// TermCacheDBHandler stores lookup results in a shared Postgres table so
// multiple workers can reuse each other's terminology lookups.
type TermCacheDBHandler struct {
	db  *helper.Database
	ttl time.Duration
	now func() time.Time
}

// NewTermCacheDBHandler creates a new term cache database handler.
// It initializes the database connection and loads cache-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewTermCacheDBHandler(db *helper.Database, ttl time.Duration, force bool) (*TermCacheDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	handler := &TermCacheDBHandler{
		db:  db,
		ttl: ttl,
		now: time.Now,
	}

	err := medspansql.LoadTermCacheSql(handler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load term cache sql", err)
	}

	err = handler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized TermCacheDBHandler")

	return handler, nil
}

// CreateTable creates the 'term_cache' table in the database.
// If the table already exists, it does not create it again.
func (h *TermCacheDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_term_cache();`)
	if err != nil {
		log.Panicf("error initializing term_cache table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table term_cache")

	return nil
}

// Get retrieves a cached lookup result by term.
// It returns (nil, nil) when the term is not cached or the entry is expired.
func (h *TermCacheDBHandler) Get(ctx context.Context, term string) (*model.CacheEntry, error) {
	entry := &model.CacheEntry{}
	row := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM select_term_cache($1)`,
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
		return nil, helper.NewError("scan", err)
	}

	if entry.Expired(h.ttl, h.now()) {
		return nil, nil
	}

	return entry, nil
}

// Put stores a lookup result (or updates it if the term already exists).
func (h *TermCacheDBHandler) Put(ctx context.Context, entry *model.CacheEntry) error {
	row := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM upsert_term_cache($1, $2, $3, $4, $5, $6)`,
		cacheKey(entry.Term),
		entry.EntityType,
		entry.VocabularyCode,
		entry.Confidence,
		entry.Metadata,
		entry.Timestamp,
	)

	err := row.Scan(
		&entry.Term,
		&entry.EntityType,
		&entry.VocabularyCode,
		&entry.Confidence,
		&entry.Metadata,
		&entry.Timestamp,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// Close is a no-op, the underlying connection is owned by the caller.
func (h *TermCacheDBHandler) Close() error {
	return nil
}
