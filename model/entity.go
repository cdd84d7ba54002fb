package model

import "math"

// EntityType classifies an extracted span. Types are mutually exclusive
// and assigned exactly once by the fusion classifier.
type EntityType string

const (
	EntityTypeDisease    EntityType = "DISEASE"
	EntityTypeSymptom    EntityType = "SYMPTOM"
	EntityTypeMedication EntityType = "MEDICATION"
	EntityTypeDosage     EntityType = "DOSAGE"
	EntityTypeAnatomy    EntityType = "ANATOMY"
	EntityTypeUnknown    EntityType = "UNKNOWN"
)

// ReviewStatus marks which confidence tier an entity landed in.
type ReviewStatus string

const (
	ReviewStatusAutoAccepted ReviewStatus = "auto_accepted"
	ReviewStatusNeedsReview  ReviewStatus = "needs_review"
)

// EntityMetadata holds the post-processing annotations of an entity.
// LinkedMedication is only set for DOSAGE entities that were linked
// to a nearby MEDICATION entity.
type EntityMetadata struct {
	ReviewStatus     ReviewStatus `json:"review_status,omitempty"`
	Context          string       `json:"context,omitempty"`
	LinkedMedication string       `json:"linked_medication,omitempty"`
}

// Position is a half-open character offset range [start, end) into the
// original (pre-normalization) document text.
type Position struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// MedicalEntity is the unit of pipeline output. Instances are created by
// the candidate generator, mutated in place through classification and
// post-processing, and serialized into the document result.
type MedicalEntity struct {
	Text           string         `json:"text"`
	Type           EntityType     `json:"type"`
	Position       Position       `json:"position"`
	Confidence     float64        `json:"confidence"`
	VocabularyCode string         `json:"vocabulary_code,omitempty"`
	NormalizedText string         `json:"normalized,omitempty"`
	Metadata       EntityMetadata `json:"metadata"`
}

// RoundConfidence returns the confidence rounded to three decimals,
// the precision used everywhere in the document result.
func (e *MedicalEntity) RoundConfidence() float64 {
	return math.Round(e.Confidence*1000) / 1000
}
