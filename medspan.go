package medspan

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/clinterm/medspan/core/pipeline"
	"github.com/clinterm/medspan/database"
	"github.com/clinterm/medspan/helper"
	"github.com/clinterm/medspan/model"
	"github.com/clinterm/medspan/terminology"
)

// maxLookupBackoff caps the exponential backoff between retries of a
// rate limited knowledge base lookup.
const maxLookupBackoff = 8 * time.Second

// Extractor provides a unified interface to the extraction pipeline
type Extractor struct {
	Normalizer *pipeline.Normalizer
	Candidates *pipeline.CandidateGenerator
	Rules      *pipeline.RuleClassifier
	Classifier *pipeline.EntityClassifier
	Post       *pipeline.PostProcessor
	Gate       *pipeline.ConfidenceGate
	Terms      *terminology.Client // nil when the knowledge base is disabled

	config model.Config
	// Logging
	log *slog.Logger

	// Lookup throttle state
	lookupMu   sync.Mutex
	lastLookup time.Time
}

// NewExtractor creates a new Extractor instance with all pipeline stages
// initialized. The statistical tagger is loaded from the configured
// model; if loading fails the extractor degrades to regex-only candidate
// detection. The knowledge base client and its durable cache are wired
// in according to the config.
func NewExtractor(config model.Config) (*Extractor, error) {
	// Logger
	opts := helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelInfo,
		},
	}
	logger := slog.New(helper.NewPrettyHandler(os.Stdout, opts))

	extractor := &Extractor{
		Normalizer: pipeline.NewNormalizer(),
		Rules:      pipeline.NewRuleClassifier(),
		Post:       pipeline.NewPostProcessor(),
		Gate:       pipeline.NewConfidenceGate(config.AutoAcceptThreshold, config.ReviewThreshold, logger),
		config:     config,
		log:        logger,
	}

	var tagger pipeline.TaggerFunc
	if config.TaggerModel != "" {
		var err error
		tagger, err = pipeline.DefaultTagger(config.TaggerModel)
		if err != nil {
			logger.Warn("Span tagger unavailable, using regex-only candidates", "model", config.TaggerModel, "error", err)
			tagger = nil
		}
	}
	extractor.Candidates = pipeline.NewCandidateGenerator(tagger, logger)

	if config.EnableKnowledgeBase {
		var cache database.CacheStore
		if config.UseCache {
			sqliteCache, err := database.OpenSQLiteCache(context.Background(), config.CachePath, config.CacheTTL)
			if err != nil {
				logger.Warn("Term cache unavailable, lookups will not be cached", "path", config.CachePath, "error", err)
			} else {
				cache = sqliteCache
			}
		}
		extractor.Terms = terminology.NewClient(config, cache, nil, logger)
	}

	extractor.Classifier = pipeline.NewEntityClassifier(extractor.Rules, extractor.lookupFunc(), logger)

	return extractor, nil
}

// Close releases the knowledge base client and its cache
func (e *Extractor) Close() error {
	if e.Terms != nil {
		return e.Terms.Close()
	}
	return nil
}

// SetTagger replaces the statistical tagger used for candidate
// detection. A nil tagger means regex-only candidates.
func (e *Extractor) SetTagger(tagger pipeline.TaggerFunc) {
	e.Candidates = pipeline.NewCandidateGenerator(tagger, e.log)
}

// SetTermClient replaces the knowledge base client. Passing nil turns
// knowledge base resolution off; the rule classifier keeps working.
func (e *Extractor) SetTermClient(client *terminology.Client) {
	e.Terms = client
	e.Classifier = pipeline.NewEntityClassifier(e.Rules, e.lookupFunc(), e.log)
}

// UseSharedTermCache switches the knowledge base client to the shared
// Postgres-backed term cache, so multiple workers reuse each other's
// lookups. force reloads the SQL functions even if they already exist.
func (e *Extractor) UseSharedTermCache(db *helper.Database, force bool) error {
	cache, err := database.NewTermCacheDBHandler(db, e.config.CacheTTL, force)
	if err != nil {
		return helper.NewError("create shared term cache", err)
	}

	e.SetTermClient(terminology.NewClient(e.config, cache, nil, e.log))
	return nil
}

// lookupFunc wraps the knowledge base client with the call policy: a
// minimum interval between live lookups, and capped exponential backoff
// retries when the backend rate limits. Returns nil when the knowledge
// base is disabled.
func (e *Extractor) lookupFunc() pipeline.LookupFunc {
	if e.Terms == nil {
		return nil
	}

	return func(ctx context.Context, term string) model.LookupResult {
		e.lookupMu.Lock()
		defer e.lookupMu.Unlock()

		// Cached terms cost no network call, only live lookups are spaced.
		if result, ok := e.Terms.CachedResult(ctx, term); ok {
			return result
		}

		if wait := e.config.MinLookupInterval - time.Since(e.lastLookup); wait > 0 {
			time.Sleep(wait)
		}

		attempts := max(e.config.MaxLookupAttempts, 1)
		backoff := e.config.MinLookupInterval

		var result model.LookupResult
		var err error
		for attempt := 1; attempt <= attempts; attempt++ {
			result, err = e.Terms.LookupTerm(ctx, term)
			e.lastLookup = time.Now()
			if err == nil {
				return result
			}

			if attempt < attempts {
				e.log.Warn("Knowledge base rate limited, backing off",
					slog.String("term", term),
					slog.Int("attempt", attempt),
					slog.Duration("backoff", backoff),
				)
				time.Sleep(backoff)
				backoff = min(backoff*2, maxLookupBackoff)
			}
		}

		e.log.Error("Knowledge base lookup gave up after rate limiting", slog.String("term", term))
		return result
	}
}

// ExtractEntities runs the full pipeline over one text and returns the
// surviving entities: normalization, candidate detection, hybrid
// classification, post-processing, and the confidence gate.
func (e *Extractor) ExtractEntities(ctx context.Context, text string) []*model.MedicalEntity {
	e.log.Info("Processing text", slog.Int("chars", len(text)))

	normalized, offsets := e.Normalizer.NormalizeWithOffsets(text)
	candidates := e.Candidates.Generate(normalized, offsets)
	entities := e.Classifier.Classify(ctx, candidates)
	e.Post.Process(entities, text)
	entities = e.Gate.Apply(entities)

	e.log.Info("Extracted entities", slog.Int("count", len(entities)))

	return entities
}

// ProcessDocument extracts entities from a document and groups them
// into the structured result: entities bucketed by type, medications
// restructured with their linked dosages, counts, and a confidence
// histogram.
func (e *Extractor) ProcessDocument(ctx context.Context, doc *model.Document) *model.DocumentResult {
	start := time.Now()

	entities := e.ExtractEntities(ctx, doc.Text)

	result := &model.DocumentResult{
		DocumentRID:   doc.RID,
		Status:        "success",
		TextLength:    len(doc.Text),
		TotalEntities: len(entities),
	}

	// Medications are keyed by surface text and collected in a first
	// pass, so a dosage attaches to its medication no matter which of
	// the two the pipeline emitted first.
	medications := map[string]*model.MedicationEntry{}
	var medicationOrder []string

	for _, entity := range entities {
		entity.Confidence = entity.RoundConfidence()
		if entity.Type != model.EntityTypeMedication {
			continue
		}

		if _, ok := medications[entity.Text]; !ok {
			medicationOrder = append(medicationOrder, entity.Text)
		}
		medications[entity.Text] = &model.MedicationEntry{
			Name:           entity.Text,
			NormalizedName: entity.NormalizedText,
			Confidence:     entity.Confidence,
			Position:       entity.Position,
			VocabularyCode: entity.VocabularyCode,
		}
	}

	for _, entity := range entities {
		switch entity.Type {
		case model.EntityTypeDisease:
			result.Entities.Diseases = append(result.Entities.Diseases, *entity)
		case model.EntityTypeSymptom:
			result.Entities.Symptoms = append(result.Entities.Symptoms, *entity)
		case model.EntityTypeMedication:
			// collected in the first pass
		case model.EntityTypeDosage:
			linked := entity.Metadata.LinkedMedication
			if med, ok := medications[linked]; linked != "" && ok {
				dosage := entity.Text
				med.Dosage = &dosage
			} else {
				result.Entities.Dosages = append(result.Entities.Dosages, *entity)
			}
		case model.EntityTypeAnatomy:
			result.Entities.Anatomy = append(result.Entities.Anatomy, *entity)
		default:
			result.Entities.Unclassified = append(result.Entities.Unclassified, *entity)
		}

		switch entity.Metadata.ReviewStatus {
		case model.ReviewStatusAutoAccepted:
			result.Statistics.AutoAccepted++
		case model.ReviewStatusNeedsReview:
			result.Statistics.NeedsReview++
		}

		switch {
		case entity.Confidence >= 0.9:
			result.ConfidenceSummary.High++
		case entity.Confidence >= 0.7:
			result.ConfidenceSummary.Medium++
		default:
			result.ConfidenceSummary.Low++
		}
	}

	for _, name := range medicationOrder {
		result.Entities.Medications = append(result.Entities.Medications, *medications[name])
	}

	result.Statistics.Diseases = len(result.Entities.Diseases)
	result.Statistics.Symptoms = len(result.Entities.Symptoms)
	result.Statistics.Medications = len(result.Entities.Medications)

	result.ProcessingTimeMs = float64(time.Since(start).Microseconds()) / 1000

	return result
}

// ProcessText is a convenience wrapper around ProcessDocument for bare
// strings.
func (e *Extractor) ProcessText(ctx context.Context, text string) *model.DocumentResult {
	return e.ProcessDocument(ctx, model.NewDocument("", text))
}

// ProcessFile reads a file and processes its content as one document
func (e *Extractor) ProcessFile(ctx context.Context, filePath string) (*model.DocumentResult, error) {
	doc, err := model.NewDocumentFromFile(filePath)
	if err != nil {
		return nil, helper.NewError("read document file", err)
	}

	return e.ProcessDocument(ctx, doc), nil
}
