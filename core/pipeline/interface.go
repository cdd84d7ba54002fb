package pipeline

import (
	"context"

	"github.com/clinterm/medspan/model"
)

// TaggedSpan is one span returned by the statistical tagger
type TaggedSpan struct {
	Word  string  `json:"word"`
	Start int     `json:"start"`
	End   int     `json:"end"`
	Score float64 `json:"score"`
}

// TaggerFunc runs a statistical span tagger over normalized text.
// Tagger failure is non-fatal; the candidate generator falls back to
// regex-only candidates.
type TaggerFunc func(text string) ([]TaggedSpan, error)

// LookupFunc resolves a term against the knowledge base. Implementations
// never fail hard; unresolvable terms come back as UNKNOWN with zero
// confidence.
type LookupFunc func(ctx context.Context, term string) model.LookupResult

// Candidate is a span proposed for classification. Start and End are
// offsets into the original (pre-normalization) document text; Score is
// the detection score of whichever source produced the span.
type Candidate struct {
	Text  string
	Start int
	End   int
	Score float64
}
