package pipeline

import (
	"math"
	"strings"

	"github.com/clinterm/medspan/model"
)

// A dosage links to the nearest medication only within this distance.
const maxDosageLinkDistance = 50

// brandToGeneric maps common brand names to their generic drug name
var brandToGeneric = map[string]string{
	"tylenol":  "acetaminophen",
	"advil":    "ibuprofen",
	"motrin":   "ibuprofen",
	"lipitor":  "atorvastatin",
	"zocor":    "simvastatin",
	"prilosec": "omeprazole",
	"nexium":   "esomeprazole",
}

// PostProcessor normalizes medication names, links dosage spans to their
// nearest medication and attaches surrounding-text context.
type PostProcessor struct{}

// NewPostProcessor creates a PostProcessor
func NewPostProcessor() *PostProcessor {
	return &PostProcessor{}
}

// Process mutates entities in place. Context windows are sliced from the
// original (pre-normalization) text.
func (p *PostProcessor) Process(entities []*model.MedicalEntity, originalText string) {
	for _, entity := range entities {
		if entity.Type == model.EntityTypeMedication {
			entity.NormalizedText = NormalizeDrugName(entity.Text)
		}

		if entity.Type == model.EntityTypeDosage {
			if med := nearestMedication(entity, entities); med != nil {
				entity.Metadata.LinkedMedication = med.Text
			}
		}

		contextStart := max(0, entity.Position.Start-20)
		contextEnd := min(len(originalText), entity.Position.End+20)
		if contextStart <= contextEnd {
			entity.Metadata.Context = originalText[contextStart:contextEnd]
		}
	}
}

// NormalizeDrugName resolves a brand name to its generic form.
// Unresolved names pass through unchanged.
func NormalizeDrugName(name string) string {
	if generic, ok := brandToGeneric[strings.ToLower(name)]; ok {
		return generic
	}
	return name
}

// nearestMedication returns the medication entity minimizing
// |dosageStart - medicationEnd|, provided that minimum is below the
// linking distance; nil otherwise.
func nearestMedication(dosage *model.MedicalEntity, entities []*model.MedicalEntity) *model.MedicalEntity {
	var nearest *model.MedicalEntity
	minDistance := math.MaxInt

	for _, e := range entities {
		if e.Type != model.EntityTypeMedication {
			continue
		}
		distance := abs(dosage.Position.Start - e.Position.End)
		if distance < minDistance && distance < maxDosageLinkDistance {
			minDistance = distance
			nearest = e
		}
	}

	return nearest
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
