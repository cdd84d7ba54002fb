package terminology

import "github.com/clinterm/medspan/model"

// semanticTypeMapping maps UMLS semantic type identifiers (T-codes) to
// the entity types the pipeline emits.
var semanticTypeMapping = map[string]model.EntityType{
	// Diseases and disorders
	"T047": model.EntityTypeDisease, // Disease or Syndrome
	"T046": model.EntityTypeDisease, // Pathologic Function
	"T048": model.EntityTypeDisease, // Mental or Behavioral Dysfunction
	"T049": model.EntityTypeDisease, // Cell or Molecular Dysfunction
	"T019": model.EntityTypeDisease, // Congenital Abnormality
	"T020": model.EntityTypeDisease, // Acquired Abnormality
	"T037": model.EntityTypeDisease, // Injury or Poisoning
	"T050": model.EntityTypeDisease, // Experimental Model of Disease

	// Signs, symptoms and findings
	"T184": model.EntityTypeSymptom, // Sign or Symptom
	"T033": model.EntityTypeDisease, // Finding, disease reading wins over symptom
	"T034": model.EntityTypeSymptom, // Laboratory or Test Result
	"T201": model.EntityTypeSymptom, // Clinical Attribute

	// Medications and substances
	"T121": model.EntityTypeMedication, // Pharmacologic Substance
	"T195": model.EntityTypeMedication, // Antibiotic
	"T200": model.EntityTypeMedication, // Clinical Drug
	"T203": model.EntityTypeMedication, // Drug Delivery Device
	"T122": model.EntityTypeMedication, // Biomedical or Dental Material
	"T103": model.EntityTypeMedication, // Chemical
	"T109": model.EntityTypeMedication, // Organic Chemical
	"T114": model.EntityTypeMedication, // Nucleic Acid, Nucleoside, or Nucleotide
	"T115": model.EntityTypeMedication, // Organophosphorus Compound
	"T116": model.EntityTypeMedication, // Amino Acid, Peptide, or Protein
	"T118": model.EntityTypeMedication, // Carbohydrate
	"T119": model.EntityTypeMedication, // Lipid
	"T120": model.EntityTypeMedication, // Chemical Viewed Functionally
	"T125": model.EntityTypeMedication, // Hormone
	"T126": model.EntityTypeMedication, // Enzyme
	"T127": model.EntityTypeMedication, // Vitamin
	"T129": model.EntityTypeMedication, // Immunologic Factor
	"T130": model.EntityTypeMedication, // Indicator, Reagent, or Diagnostic Aid
	"T131": model.EntityTypeMedication, // Hazardous or Poisonous Substance

	// Anatomy
	"T017": model.EntityTypeAnatomy, // Anatomical Structure
	"T029": model.EntityTypeAnatomy, // Body Location or Region
	"T023": model.EntityTypeAnatomy, // Body Part, Organ, or Organ Component
	"T030": model.EntityTypeAnatomy, // Body Space or Junction
	"T031": model.EntityTypeAnatomy, // Body Substance
	"T022": model.EntityTypeAnatomy, // Body System
	"T025": model.EntityTypeAnatomy, // Cell
	"T026": model.EntityTypeAnatomy, // Cell Component
	"T018": model.EntityTypeAnatomy, // Embryonic Structure
	"T021": model.EntityTypeAnatomy, // Fully Formed Anatomical Structure
	"T024": model.EntityTypeAnatomy, // Tissue
	"T028": model.EntityTypeAnatomy, // Gene or Genome
}

const (
	semanticTypeWeight   = 0.9
	semanticScoreCeiling = 0.95
	unmappedConfidence   = 0.5
)

// Bucket order on score ties, so repeated runs classify identically.
var semanticTieOrder = []model.EntityType{
	model.EntityTypeDisease,
	model.EntityTypeSymptom,
	model.EntityTypeMedication,
	model.EntityTypeAnatomy,
}

// MapSemanticTypes folds a concept's semantic types into a single entity
// type with a base confidence. Each mapped T-code adds weight to its
// bucket; the highest bucket wins and the score is capped. A concept
// whose types all fall outside the table maps to UNKNOWN at 0.5.
func MapSemanticTypes(semanticTypes []string) (model.EntityType, float64) {
	scores := map[model.EntityType]float64{}
	for _, tcode := range semanticTypes {
		if entityType, ok := semanticTypeMapping[tcode]; ok {
			scores[entityType] += semanticTypeWeight
		}
	}

	bestType := model.EntityTypeUnknown
	bestScore := 0.0
	for _, entityType := range semanticTieOrder {
		if scores[entityType] > bestScore {
			bestType = entityType
			bestScore = scores[entityType]
		}
	}

	if bestScore <= 0 {
		return model.EntityTypeUnknown, unmappedConfidence
	}

	return bestType, min(bestScore, semanticScoreCeiling)
}
