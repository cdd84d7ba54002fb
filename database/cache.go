package database

import (
	"context"

	"github.com/clinterm/medspan/model"
)

// CacheStore is the durable term cache owned by the knowledge-base
// client. Writes are upserts (the latest lookup always wins); reads
// treat entries older than the store's TTL as absent. Implementations
// must be safe for concurrent use.
type CacheStore interface {
	// Get returns the live entry for a lower-cased term, or nil when
	// the term is absent or its entry has expired.
	Get(ctx context.Context, term string) (*model.CacheEntry, error)
	// Put inserts or replaces the entry for its term.
	Put(ctx context.Context, entry *model.CacheEntry) error
	Close() error
}
