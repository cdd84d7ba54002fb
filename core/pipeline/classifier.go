package pipeline

import (
	"context"
	"log/slog"

	"github.com/clinterm/medspan/model"
)

// Knowledge-base lookups are skipped when the rule classifier is already
// at or above this confidence.
const ruleShortCircuitConfidence = 0.8

// EntityClassifier fuses the rule classifier with knowledge-base lookups
// into one typed, confidence-scored entity per candidate.
type EntityClassifier struct {
	rules  *RuleClassifier
	lookup LookupFunc
	log    *slog.Logger
}

// NewEntityClassifier creates the fusion classifier. A nil lookup
// disables knowledge-base resolution; candidates are then classified by
// rules alone.
func NewEntityClassifier(rules *RuleClassifier, lookup LookupFunc, logger *slog.Logger) *EntityClassifier {
	return &EntityClassifier{
		rules:  rules,
		lookup: lookup,
		log:    logger,
	}
}

// Classify turns candidates into typed entities. Per candidate: a rule
// result at or above 0.8 wins outright and skips the knowledge base;
// otherwise the knowledge-base result is adopted iff its confidence
// strictly exceeds the rule's, including when no rule matched. The
// stored confidence is classification confidence times the candidate's
// detection score, clamped to [0, 1]. Candidates that never receive a
// type are dropped silently.
func (c *EntityClassifier) Classify(ctx context.Context, candidates []Candidate) []*model.MedicalEntity {
	classified := make([]*model.MedicalEntity, 0, len(candidates))

	for _, cand := range candidates {
		entityType, confidence, matched := c.rules.Classify(cand.Text)
		vocabularyCode := ""

		if (!matched || confidence < ruleShortCircuitConfidence) && c.lookup != nil {
			result := c.lookup(ctx, cand.Text)
			if result.Confidence > confidence {
				entityType = result.EntityType
				confidence = result.Confidence
				vocabularyCode = result.VocabularyCode
				matched = true
			}
		}

		if !matched {
			continue
		}

		fused := confidence * cand.Score
		if fused < 0 {
			fused = 0
		}
		if fused > 1 {
			fused = 1
		}

		classified = append(classified, &model.MedicalEntity{
			Text:           cand.Text,
			Type:           entityType,
			Position:       model.Position{Start: cand.Start, End: cand.End},
			Confidence:     fused,
			VocabularyCode: vocabularyCode,
		})
	}

	return classified
}
