package model

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// MedicationEntry is a medication restructured with its linked dosage.
// Dosage is nil when no DOSAGE entity was linked to this medication.
type MedicationEntry struct {
	Name           string   `json:"name"`
	NormalizedName string   `json:"normalized_name,omitempty"`
	Confidence     float64  `json:"confidence"`
	Position       Position `json:"position"`
	Dosage         *string  `json:"dosage"`
	VocabularyCode string   `json:"vocabulary_code,omitempty"`
}

// EntityGroups buckets surviving entities by type. Dosages holds only
// DOSAGE entities that could not be linked to a medication; linked
// dosages are embedded in their MedicationEntry instead.
type EntityGroups struct {
	Diseases     []MedicalEntity   `json:"diseases"`
	Symptoms     []MedicalEntity   `json:"symptoms"`
	Medications  []MedicationEntry `json:"medications"`
	Dosages      []MedicalEntity   `json:"dosages"`
	Anatomy      []MedicalEntity   `json:"anatomy"`
	Unclassified []MedicalEntity   `json:"unclassified"`
}

// Statistics holds per-type and per-tier counts for one document
type Statistics struct {
	Diseases     int `json:"diseases"`
	Symptoms     int `json:"symptoms"`
	Medications  int `json:"medications"`
	AutoAccepted int `json:"auto_accepted"`
	NeedsReview  int `json:"needs_review"`
}

// ConfidenceSummary is a three-bin confidence histogram:
// high >= 0.9, medium [0.7, 0.9), low < 0.7
type ConfidenceSummary struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// DocumentResult is the structured output for one processed document
type DocumentResult struct {
	DocumentRID       uuid.UUID         `json:"document_rid"`
	Status            string            `json:"status"`
	ProcessingTimeMs  float64           `json:"processing_time_ms"`
	TextLength        int               `json:"text_length"`
	TotalEntities     int               `json:"total_entities"`
	Entities          EntityGroups      `json:"entities"`
	Statistics        Statistics        `json:"statistics"`
	ConfidenceSummary ConfidenceSummary `json:"confidence_summary"`
}

// FormatReport renders the result as a human-readable summary for
// downstream reasoning consumers that take plain text.
func (r *DocumentResult) FormatReport() string {
	var b strings.Builder
	b.WriteString("Medical Entity Extraction Results:\n\n")

	if len(r.Entities.Diseases) > 0 {
		b.WriteString("DISEASES IDENTIFIED:\n")
		for _, d := range r.Entities.Diseases {
			fmt.Fprintf(&b, "- %s (confidence: %.2f)\n", d.Text, d.Confidence)
		}
		b.WriteString("\n")
	}

	if len(r.Entities.Symptoms) > 0 {
		b.WriteString("SYMPTOMS IDENTIFIED:\n")
		for _, s := range r.Entities.Symptoms {
			fmt.Fprintf(&b, "- %s (confidence: %.2f)\n", s.Text, s.Confidence)
		}
		b.WriteString("\n")
	}

	if len(r.Entities.Medications) > 0 {
		b.WriteString("MEDICATIONS IDENTIFIED:\n")
		for _, m := range r.Entities.Medications {
			dosage := ""
			if m.Dosage != nil {
				dosage = fmt.Sprintf(" - Dosage: %s", *m.Dosage)
			}
			fmt.Fprintf(&b, "- %s%s (confidence: %.2f)\n", m.Name, dosage, m.Confidence)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Total entities extracted: %d\n", r.TotalEntities)
	fmt.Fprintf(&b, "Processing time: %.2fms\n", r.ProcessingTimeMs)

	return b.String()
}
