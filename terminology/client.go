package terminology

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/clinterm/medspan/database"
	"github.com/clinterm/medspan/model"
)

// ErrRateLimited signals that the knowledge base rejected a request
// with HTTP 429. It is the only error LookupTerm returns; every other
// failure degrades to an UNKNOWN result so one bad lookup never stops
// a document.
var ErrRateLimited = errors.New("knowledge base rate limited")

// noResultConfidence marks terms the knowledge base genuinely does not
// know, so repeat lookups are answered from cache.
const noResultConfidence = 0.3

// Client resolves medical terms against the UMLS REST API. Lookups are
// answered from the durable cache when possible; live results are
// written back through it. The zero confidence UNKNOWN result is never
// cached, transient failures stay retryable.
type Client struct {
	config     model.Config
	auth       *AuthSession
	cache      database.CacheStore
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

// NewClient creates a terminology client. cache may be nil to disable
// caching, httpClient may be nil to use a default client with the
// configured request timeout.
func NewClient(config model.Config, cache database.CacheStore, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.RequestTimeout}
	}

	return &Client{
		config:     config,
		auth:       NewAuthSession(config.AuthURL, config.APIKey, httpClient),
		cache:      cache,
		httpClient: httpClient,
		logger:     logger,
		now:        time.Now,
	}
}

type searchResult struct {
	UI   string `json:"ui"`
	Name string `json:"name"`
}

type searchResponse struct {
	Result struct {
		Results []searchResult `json:"results"`
	} `json:"result"`
}

type conceptResponse struct {
	Result struct {
		SemanticTypes []struct {
			URI string `json:"uri"`
		} `json:"semanticTypes"`
	} `json:"result"`
}

// CachedResult answers a lookup from the durable cache alone, with no
// network traffic. ok is false on a miss, an expired entry, a cache
// read failure, or when no cache is configured. Callers can use it to
// decide whether a LookupTerm call will go out to the backend.
func (c *Client) CachedResult(ctx context.Context, term string) (model.LookupResult, bool) {
	if c.cache == nil {
		return model.LookupResult{}, false
	}

	entry, err := c.cache.Get(ctx, term)
	if err != nil {
		c.logger.Warn("Term cache read failed", "term", term, "error", err)
		return model.LookupResult{}, false
	}
	if entry == nil {
		return model.LookupResult{}, false
	}

	c.logger.Debug("Term cache hit", "term", term)
	return model.LookupResult{
		EntityType:     entry.EntityType,
		VocabularyCode: entry.VocabularyCode,
		Confidence:     entry.Confidence,
		Metadata:       entry.Metadata,
	}, true
}

// LookupTerm resolves a single term. The returned error is non-nil only
// for rate limiting (ErrRateLimited); callers may retry those. All
// other outcomes, including transport and auth failures, come back as
// an UNKNOWN result with a nil error.
func (c *Client) LookupTerm(ctx context.Context, term string) (model.LookupResult, error) {
	if result, ok := c.CachedResult(ctx, term); ok {
		return result, nil
	}

	if c.config.APIKey == "" {
		c.logger.Warn("Knowledge base API key not configured")
		return unknownResult(model.SearchError), nil
	}

	results, err := c.searchConcept(ctx, term)
	if errors.Is(err, ErrRateLimited) {
		return unknownResult(model.SearchError), ErrRateLimited
	}
	if err != nil {
		c.logger.Error("Knowledge base search failed", "term", term, "error", err)
		return unknownResult(model.SearchError), nil
	}

	if len(results) == 0 {
		c.logger.Info("No knowledge base results", "term", term)
		result := model.LookupResult{
			EntityType: model.EntityTypeUnknown,
			Confidence: noResultConfidence,
			Metadata:   model.LookupMetadata{Search: model.SearchNoResults},
		}
		c.store(ctx, term, result)
		return result, nil
	}

	best := results[0]
	c.logger.Debug("Found concept", "term", term, "concept", best.Name, "cui", best.UI)

	semanticTypes, err := c.conceptSemanticTypes(ctx, best.UI)
	if errors.Is(err, ErrRateLimited) {
		return unknownResult(model.SearchError), ErrRateLimited
	}
	if err != nil {
		c.logger.Error("Concept detail fetch failed", "cui", best.UI, "error", err)
		return unknownResult(model.SearchError), nil
	}

	entityType, baseConfidence := MapSemanticTypes(semanticTypes)
	similarity := NameSimilarity(strings.ToLower(term), strings.ToLower(best.Name))

	result := model.LookupResult{
		EntityType:     entityType,
		VocabularyCode: best.UI,
		Confidence:     round3(baseConfidence * similarity),
		Metadata: model.LookupMetadata{
			ConceptName:    best.Name,
			SemanticTypes:  semanticTypes,
			NameSimilarity: round3(similarity),
			Search:         model.SearchSuccess,
		},
	}
	c.store(ctx, term, result)

	c.logger.Info("Knowledge base lookup resolved",
		"term", term,
		"entityType", result.EntityType,
		"confidence", result.Confidence,
	)

	return result, nil
}

// Close releases the cache backing the client, if any.
func (c *Client) Close() error {
	if c.cache != nil {
		return c.cache.Close()
	}
	return nil
}

// searchConcept runs an exact search, falling back to an approximate
// search when nothing matches. Service tickets are single use, each
// request gets a fresh one.
func (c *Client) searchConcept(ctx context.Context, term string) ([]searchResult, error) {
	results, err := c.searchOnce(ctx, term, "exact")
	if err != nil {
		return nil, err
	}
	if len(results) > 0 {
		return results, nil
	}

	c.logger.Debug("No exact matches, trying approximate", "term", term)
	return c.searchOnce(ctx, term, "approximate")
}

func (c *Client) searchOnce(ctx context.Context, term string, searchType string) ([]searchResult, error) {
	ticket, err := c.auth.ServiceTicket(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{
		"ticket":       {ticket},
		"string":       {term},
		"searchType":   {searchType},
		"returnIdType": {"concept"},
		"pageNumber":   {strconv.Itoa(1)},
		"pageSize":     {strconv.Itoa(10)},
	}
	if c.config.Vocabulary != "" {
		params.Set("sabs", c.config.Vocabulary)
	}

	var payload searchResponse
	if err := c.getJSON(ctx, c.config.SearchURL, params, &payload); err != nil {
		return nil, err
	}

	return payload.Result.Results, nil
}

// conceptSemanticTypes fetches concept details and extracts the
// semantic type identifiers from their URIs.
func (c *Client) conceptSemanticTypes(ctx context.Context, cui string) ([]string, error) {
	// Identifiers that are not standard CUIs have no detail record.
	if !strings.HasPrefix(cui, "C") || len(cui) != 8 {
		c.logger.Debug("Identifier is not a standard concept, skipping details", "cui", cui)
		return nil, nil
	}

	ticket, err := c.auth.ServiceTicket(ctx)
	if err != nil {
		return nil, err
	}

	var payload conceptResponse
	params := url.Values{"ticket": {ticket}}
	if err := c.getJSON(ctx, c.config.ContentURL+"/CUI/"+cui, params, &payload); err != nil {
		return nil, err
	}

	var semanticTypes []string
	for _, st := range payload.Result.SemanticTypes {
		if _, tcode, found := strings.Cut(st.URI, "/TUI/"); found {
			semanticTypes = append(semanticTypes, tcode)
		}
	}

	return semanticTypes, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return errors.New("unexpected status " + strconv.Itoa(resp.StatusCode))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// store writes a result back through the cache, logging but otherwise
// ignoring failures.
func (c *Client) store(ctx context.Context, term string, result model.LookupResult) {
	if c.cache == nil {
		return
	}

	entry := &model.CacheEntry{
		Term:           term,
		EntityType:     result.EntityType,
		VocabularyCode: result.VocabularyCode,
		Confidence:     result.Confidence,
		Metadata:       result.Metadata,
		Timestamp:      c.now().Unix(),
	}
	if err := c.cache.Put(ctx, entry); err != nil {
		c.logger.Warn("Term cache write failed", "term", term, "error", err)
	}
}

func unknownResult(search string) model.LookupResult {
	return model.LookupResult{
		EntityType: model.EntityTypeUnknown,
		Confidence: 0.0,
		Metadata:   model.LookupMetadata{Search: search},
	}
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
