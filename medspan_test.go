package medspan

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/clinterm/medspan/core/pipeline"
	"github.com/clinterm/medspan/database"
	"github.com/clinterm/medspan/model"
	"github.com/clinterm/medspan/terminology"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rulesOnlyConfig() model.Config {
	config := model.DefaultConfig()
	config.TaggerModel = ""
	config.EnableKnowledgeBase = false
	config.UseCache = false
	config.MinLookupInterval = time.Millisecond
	return config
}

func newRulesOnlyExtractor(t *testing.T) *Extractor {
	t.Helper()

	extractor, err := NewExtractor(rulesOnlyConfig())
	require.NoError(t, err, "failed to create extractor")
	t.Cleanup(func() { extractor.Close() })

	return extractor
}

func TestExtractEntitiesRulesOnly(t *testing.T) {
	extractor := newRulesOnlyExtractor(t)

	entities := extractor.ExtractEntities(context.Background(), "Mild headache, no fever.")
	require.Len(t, entities, 2)

	for _, entity := range entities {
		assert.Equal(t, model.EntityTypeSymptom, entity.Type)
		assert.Equal(t, model.ReviewStatusAutoAccepted, entity.Metadata.ReviewStatus)
		// Full rule match (0.95) times the regex detection score (0.85).
		assert.InDelta(t, 0.8075, entity.Confidence, 1e-9)
		assert.NotEmpty(t, entity.Metadata.Context)
	}

	assert.Equal(t, "headache", entities[0].Text)
	assert.Equal(t, "fever", entities[1].Text)
}

func TestExtractEntitiesOffsetsPointIntoOriginalText(t *testing.T) {
	extractor := newRulesOnlyExtractor(t)

	// Abbreviation expansion and digit splitting shift the normalized
	// text, entity positions must still index the original.
	text := "Pt c/o fever w/ 500mg ibuprofen."
	entities := extractor.ExtractEntities(context.Background(), text)
	require.NotEmpty(t, entities)

	for _, entity := range entities {
		require.LessOrEqual(t, entity.Position.End, len(text))
		require.GreaterOrEqual(t, entity.Position.Start, 0)
	}

	var fever *model.MedicalEntity
	for _, entity := range entities {
		if entity.Text == "fever" {
			fever = entity
		}
	}
	require.NotNil(t, fever, "Expected fever to survive the pipeline")
	assert.Equal(t, "fever", text[fever.Position.Start:fever.Position.End])
}

func TestProcessDocumentRulesOnly(t *testing.T) {
	extractor := newRulesOnlyExtractor(t)

	doc := model.NewDocument("visit note", "Pt diagnosed w/ diabetes. Prescribed metformin 500 mg daily.")
	result := extractor.ProcessDocument(context.Background(), doc)

	assert.Equal(t, doc.RID, result.DocumentRID)
	assert.Equal(t, "success", result.Status)
	assert.Equal(t, len(doc.Text), result.TextLength)
	assert.Equal(t, 4, result.TotalEntities)

	t.Run("Diseases are grouped", func(t *testing.T) {
		require.Len(t, result.Entities.Diseases, 1)
		assert.Equal(t, "diabetes", result.Entities.Diseases[0].Text)
		assert.InDelta(t, 0.855, result.Entities.Diseases[0].Confidence, 1e-9)
	})

	t.Run("Dosage is linked to its medication", func(t *testing.T) {
		// The pipeline emits "500 mg" before "metformin"; linking must
		// not depend on the emission order.
		var metformin *model.MedicationEntry
		for i := range result.Entities.Medications {
			if result.Entities.Medications[i].Name == "metformin" {
				metformin = &result.Entities.Medications[i]
			}
		}
		require.NotNil(t, metformin, "Expected a metformin medication entry")
		require.NotNil(t, metformin.Dosage, "Expected the dosage to be linked")
		assert.Equal(t, "500 mg", *metformin.Dosage)
		assert.Equal(t, "metformin", metformin.NormalizedName)

		assert.Empty(t, result.Entities.Dosages, "Expected no orphan dosages")
	})

	t.Run("Statistics and histogram", func(t *testing.T) {
		assert.Equal(t, 1, result.Statistics.Diseases)
		assert.Equal(t, 0, result.Statistics.Symptoms)
		assert.Equal(t, 2, result.Statistics.Medications)
		assert.Equal(t, 4, result.Statistics.AutoAccepted)
		assert.Equal(t, 0, result.Statistics.NeedsReview)

		assert.Equal(t, 0, result.ConfidenceSummary.High)
		assert.Equal(t, 4, result.ConfidenceSummary.Medium)
		assert.Equal(t, 0, result.ConfidenceSummary.Low)
	})

	t.Run("Report rendering", func(t *testing.T) {
		report := result.FormatReport()
		assert.Contains(t, report, "MEDICATIONS IDENTIFIED:")
		assert.Contains(t, report, "Dosage: 500 mg")
		assert.Contains(t, report, "DISEASES IDENTIFIED:")
		assert.Contains(t, report, "Total entities extracted: 4")
	})
}

func TestNormalizeDrugNameInResults(t *testing.T) {
	extractor := newRulesOnlyExtractor(t)
	extractor.SetTagger(staticTagger(pipeline.TaggedSpan{Word: "tylenol", Start: 7, End: 14, Score: 0.9}))

	result := extractor.ProcessText(context.Background(), "Taking tylenol 500 mg for the pain.")

	var tylenol *model.MedicationEntry
	for i := range result.Entities.Medications {
		if result.Entities.Medications[i].Name == "tylenol" {
			tylenol = &result.Entities.Medications[i]
		}
	}
	require.NotNil(t, tylenol)
	assert.Equal(t, "acetaminophen", tylenol.NormalizedName, "Expected brand name to normalize to generic")
}

type roundTrip func(*http.Request) *http.Response

func (rt roundTrip) RoundTrip(req *http.Request) (*http.Response, error) {
	return rt(req), nil
}

// kbStub fakes the knowledge base REST API including the CAS ticket
// flow. rateLimitSearches makes the first n search requests answer 429.
type kbStub struct {
	cui          string
	name         string
	semanticType string

	rateLimitSearches int
	searchCalls       int
	ticketSeq         int
}

func (s *kbStub) client(t *testing.T) *http.Client {
	return &http.Client{
		Transport: roundTrip(func(req *http.Request) *http.Response {
			switch {
			case strings.HasSuffix(req.URL.Path, "/api-key"):
				header := make(http.Header)
				header.Set("Location", "https://auth.test/cas/v1/tickets/TGT-1")
				return &http.Response{StatusCode: http.StatusCreated, Header: header, Body: io.NopCloser(strings.NewReader(""))}

			case strings.Contains(req.URL.Path, "/tickets/TGT-"):
				s.ticketSeq++
				return &http.Response{
					StatusCode: http.StatusOK,
					Header:     make(http.Header),
					Body:       io.NopCloser(strings.NewReader(fmt.Sprintf("ST-%d", s.ticketSeq))),
				}

			case strings.HasSuffix(req.URL.Path, "/search/current"):
				s.searchCalls++
				if s.rateLimitSearches > 0 {
					s.rateLimitSearches--
					return &http.Response{StatusCode: http.StatusTooManyRequests, Header: make(http.Header), Body: io.NopCloser(strings.NewReader(""))}
				}
				body := fmt.Sprintf(`{"result":{"results":[{"ui":"%s","name":"%s"}]}}`, s.cui, s.name)
				return &http.Response{StatusCode: http.StatusOK, Header: make(http.Header), Body: io.NopCloser(strings.NewReader(body))}

			case strings.Contains(req.URL.Path, "/CUI/"):
				body := fmt.Sprintf(`{"result":{"semanticTypes":[{"uri":"https://kb.test/TUI/%s"}]}}`, s.semanticType)
				return &http.Response{StatusCode: http.StatusOK, Header: make(http.Header), Body: io.NopCloser(strings.NewReader(body))}

			default:
				t.Fatalf("unexpected request to %s", req.URL)
				return nil
			}
		}),
	}
}

func newKnowledgeBaseExtractor(t *testing.T, stub *kbStub) *Extractor {
	t.Helper()

	config := rulesOnlyConfig()
	config.APIKey = "test-key"
	config.AuthURL = "https://auth.test/cas/v1/api-key"
	config.SearchURL = "https://kb.test/rest/search/current"
	config.ContentURL = "https://kb.test/rest/content/current"

	extractor, err := NewExtractor(config)
	require.NoError(t, err)
	t.Cleanup(func() { extractor.Close() })

	extractor.SetTermClient(terminology.NewClient(config, nil, stub.client(t), extractor.log))

	return extractor
}

// staticTagger fakes the statistical tagger with fixed spans.
func staticTagger(spans ...pipeline.TaggedSpan) pipeline.TaggerFunc {
	return func(text string) ([]pipeline.TaggedSpan, error) {
		return spans, nil
	}
}

func TestExtractEntitiesWithKnowledgeBase(t *testing.T) {
	stub := &kbStub{cui: "C0013595", name: "Eczema", semanticType: "T047"}
	extractor := newKnowledgeBaseExtractor(t, stub)

	// "eczema" matches no rule pattern; only the knowledge base can
	// classify it.
	text := "Skin eczema on the left arm."
	extractor.SetTagger(staticTagger(pipeline.TaggedSpan{Word: "eczema", Start: 5, End: 11, Score: 0.85}))

	entities := extractor.ExtractEntities(context.Background(), text)

	var eczema *model.MedicalEntity
	for _, entity := range entities {
		if entity.Text == "eczema" {
			eczema = entity
		}
	}
	require.NotNil(t, eczema, "Expected the knowledge base to classify eczema")
	assert.Equal(t, model.EntityTypeDisease, eczema.Type)
	assert.Equal(t, "C0013595", eczema.VocabularyCode)
	// Lookup confidence 0.9 times tagger score 0.85.
	assert.InDelta(t, 0.765, eczema.Confidence, 1e-9)
}

func TestExtractEntitiesRetriesRateLimits(t *testing.T) {
	stub := &kbStub{cui: "C0013595", name: "Eczema", semanticType: "T047", rateLimitSearches: 1}
	extractor := newKnowledgeBaseExtractor(t, stub)
	extractor.SetTagger(staticTagger(pipeline.TaggedSpan{Word: "eczema", Start: 5, End: 11, Score: 0.85}))

	entities := extractor.ExtractEntities(context.Background(), "Skin eczema on the left arm.")

	require.NotEmpty(t, entities)
	assert.Equal(t, model.EntityTypeDisease, entities[0].Type, "Expected the retry to succeed")
	assert.GreaterOrEqual(t, stub.searchCalls, 2, "Expected the rate limited search to be retried")
}

func TestLookupThrottleSpacing(t *testing.T) {
	stub := &kbStub{cui: "C0013595", name: "Eczema", semanticType: "T047"}
	extractor := newKnowledgeBaseExtractor(t, stub)
	extractor.config.MinLookupInterval = 50 * time.Millisecond
	extractor.SetTermClient(extractor.Terms) // rebuild the lookup with the new interval

	extractor.SetTagger(staticTagger(
		pipeline.TaggedSpan{Word: "eczema", Start: 5, End: 11, Score: 0.85},
		pipeline.TaggedSpan{Word: "psoriasis", Start: 15, End: 24, Score: 0.85},
	))

	start := time.Now()
	extractor.ExtractEntities(context.Background(), "Skin eczema or psoriasis here.")
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond, "Expected live lookups to be spaced apart")
}

func TestCachedLookupsSkipThrottle(t *testing.T) {
	stub := &kbStub{cui: "C0013595", name: "Eczema", semanticType: "T047"}
	extractor := newKnowledgeBaseExtractor(t, stub)

	cache, err := database.OpenSQLiteCache(context.Background(), filepath.Join(t.TempDir(), "terms.db"), time.Hour)
	require.NoError(t, err)
	extractor.SetTermClient(terminology.NewClient(extractor.config, cache, stub.client(t), extractor.log))
	extractor.SetTagger(staticTagger(pipeline.TaggedSpan{Word: "eczema", Start: 5, End: 11, Score: 0.85}))

	text := "Skin eczema on the left arm."
	extractor.ExtractEntities(context.Background(), text)
	require.Equal(t, 1, stub.searchCalls, "Expected one live lookup to warm the cache")

	extractor.config.MinLookupInterval = 2 * time.Second

	start := time.Now()
	entities := extractor.ExtractEntities(context.Background(), text)
	require.NotEmpty(t, entities)
	assert.Equal(t, model.EntityTypeDisease, entities[0].Type)
	assert.Equal(t, 1, stub.searchCalls, "Expected the second pass to be served from cache")
	assert.Less(t, time.Since(start), 2*time.Second, "Expected cached lookups to skip the lookup spacing")
}
