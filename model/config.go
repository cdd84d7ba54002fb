package model

import "time"

// Config is the immutable pipeline configuration. A value is passed to
// each component constructor; components never reach for ambient state.
type Config struct {
	// Tagger parameters
	TaggerModel string `json:"tagger_model"`

	// Confidence gate thresholds
	AutoAcceptThreshold float64 `json:"auto_accept_threshold"`
	ReviewThreshold     float64 `json:"review_threshold"`

	// Knowledge-base parameters
	EnableKnowledgeBase bool          `json:"enable_knowledge_base"`
	APIKey              string        `json:"-"`
	AuthURL             string        `json:"auth_url"`
	SearchURL           string        `json:"search_url"`
	ContentURL          string        `json:"content_url"`
	Vocabulary          string        `json:"vocabulary,omitempty"`
	RequestTimeout      time.Duration `json:"request_timeout"`

	// Cache parameters
	UseCache  bool          `json:"use_cache"`
	CachePath string        `json:"cache_path"`
	CacheTTL  time.Duration `json:"cache_ttl"`

	// Lookup call policy (enforced by the orchestrator, not the client)
	MinLookupInterval time.Duration `json:"min_lookup_interval"`
	MaxLookupAttempts int           `json:"max_lookup_attempts"`
}

// DefaultConfig returns the default pipeline configuration.
func DefaultConfig() Config {
	return Config{
		TaggerModel:         "KnightsAnalytics/distilbert-NER",
		AutoAcceptThreshold: 0.50,
		ReviewThreshold:     0.30,
		EnableKnowledgeBase: true,
		AuthURL:             "https://utslogin.nlm.nih.gov/cas/v1/api-key",
		SearchURL:           "https://uts-ws.nlm.nih.gov/rest/search/current",
		ContentURL:          "https://uts-ws.nlm.nih.gov/rest/content/current",
		RequestTimeout:      15 * time.Second,
		UseCache:            true,
		CachePath:           "medical_term_cache.db",
		CacheTTL:            30 * 24 * time.Hour,
		MinLookupInterval:   500 * time.Millisecond,
		MaxLookupAttempts:   3,
	}
}
