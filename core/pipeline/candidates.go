package pipeline

import (
	"log/slog"
	"regexp"
	"strings"
)

// candidatePattern is one detector regex with its pre-assigned base
// detection score.
type candidatePattern struct {
	re    *regexp.Regexp
	score float64
}

// Fixed detector patterns, evaluated against the normalized text.
var candidatePatterns = []candidatePattern{
	// Medications with dosages
	{regexp.MustCompile(`(?i)\b(\w+)\s+(\d+\s?mg)\b`), 0.85},
	// Diseases and conditions
	{regexp.MustCompile(`(?i)\b(diabetes|hypertension|infection|infarction)\b`), 0.90},
	// Symptoms
	{regexp.MustCompile(`(?i)\b(fever|headache|pain|stiffness|nausea)\b`), 0.85},
	// Dosage patterns
	{regexp.MustCompile(`(?i)\b\d+\s?(mg|ml|mcg|daily|twice daily|BID)\b`), 0.80},
	// Medical terms with suffixes
	{regexp.MustCompile(`(?i)\b\w+(itis|osis|emia|oma|pathy)\b`), 0.75},
	// Common medications
	{regexp.MustCompile(`(?i)\b(metformin|aspirin|atorvastatin|metoprolol|ibuprofen|lisinopril)\b`), 0.90},
}

// CandidateGenerator merges spans from the statistical tagger with spans
// matched by the fixed regex pattern set, deduplicated but never
// overlap-resolved.
type CandidateGenerator struct {
	tagger TaggerFunc
	log    *slog.Logger
}

// NewCandidateGenerator creates a generator. A nil tagger means
// regex-only candidate detection.
func NewCandidateGenerator(tagger TaggerFunc, logger *slog.Logger) *CandidateGenerator {
	return &CandidateGenerator{
		tagger: tagger,
		log:    logger,
	}
}

// Generate produces the deduplicated candidate list for one document.
// Detection runs against the normalized text; candidate offsets are
// mapped back to the original text through the offset map. Two
// candidates with the same lowercased text and start offset collapse to
// the first occurrence; overlapping near-duplicates are kept as is.
func (g *CandidateGenerator) Generate(normalized string, offsets OffsetMap) []Candidate {
	var candidates []Candidate

	if g.tagger != nil {
		spans, err := g.tagger(normalized)
		if err != nil {
			g.log.Warn("Span tagger failed, falling back to regex-only candidates", slog.String("error", err.Error()))
		}
		for _, span := range spans {
			if span.Start < 0 || span.End > len(normalized) || span.Start >= span.End {
				continue
			}
			start, end := offsets.OriginalSpan(span.Start, span.End)
			candidates = append(candidates, Candidate{
				Text:  span.Word,
				Start: start,
				End:   end,
				Score: span.Score,
			})
		}
	}

	for _, pattern := range candidatePatterns {
		for _, match := range pattern.re.FindAllStringIndex(normalized, -1) {
			start, end := offsets.OriginalSpan(match[0], match[1])
			candidates = append(candidates, Candidate{
				Text:  normalized[match[0]:match[1]],
				Start: start,
				End:   end,
				Score: pattern.score,
			})
		}
	}

	return dedupeCandidates(candidates)
}

// dedupeCandidates collapses exact duplicates, keyed by lowercased text
// and start offset. Near-duplicates with different offsets or casing are
// intentionally kept; downstream consumers may see the same physical
// span tagged twice with different types.
func dedupeCandidates(candidates []Candidate) []Candidate {
	type key struct {
		text  string
		start int
	}

	seen := make(map[key]struct{}, len(candidates))
	unique := make([]Candidate, 0, len(candidates))

	for _, c := range candidates {
		k := key{text: strings.ToLower(c.Text), start: c.Start}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		unique = append(unique, c)
	}

	return unique
}
