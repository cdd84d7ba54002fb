package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/clinterm/medspan/helper"
)

// Search outcome markers stored in LookupMetadata.Search.
const (
	SearchSuccess   = "success"
	SearchNoResults = "no_results"
	SearchError     = "error"
)

// LookupMetadata describes how a knowledge-base lookup was resolved.
// It is a closed record so the cache column stays statically verifiable.
type LookupMetadata struct {
	ConceptName    string   `json:"concept_name,omitempty"`
	SemanticTypes  []string `json:"semantic_types,omitempty"`
	NameSimilarity float64  `json:"name_similarity,omitempty"`
	Search         string   `json:"search,omitempty"`
}

// Value implements the driver.Valuer interface for database storage
func (m LookupMetadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

// Scan implements the sql.Scanner interface for database retrieval
func (m *LookupMetadata) Scan(value interface{}) error {
	if value == nil {
		*m = LookupMetadata{}
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return helper.NewError("byte assertion", errors.New("type assertion to []byte failed"))
	}
}

// LookupResult is the outcome of a knowledge-base term resolution
type LookupResult struct {
	EntityType     EntityType     `json:"entity_type"`
	VocabularyCode string         `json:"vocabulary_code,omitempty"`
	Confidence     float64        `json:"confidence"`
	Metadata       LookupMetadata `json:"metadata"`
}

// CacheEntry is one row of the durable term cache, keyed by lower-cased
// term. Timestamp is the unix insertion time; entries older than the
// configured TTL are treated as absent on read.
type CacheEntry struct {
	Term           string         `json:"term"`
	EntityType     EntityType     `json:"entity_type"`
	VocabularyCode string         `json:"vocabulary_code,omitempty"`
	Confidence     float64        `json:"confidence"`
	Metadata       LookupMetadata `json:"metadata"`
	Timestamp      int64          `json:"timestamp"`
}

// Expired reports whether the entry is older than ttl at the given time.
func (e *CacheEntry) Expired(ttl time.Duration, now time.Time) bool {
	return now.Unix()-e.Timestamp >= int64(ttl.Seconds())
}
