package pipeline

import (
	"regexp"
	"strings"

	"github.com/clinterm/medspan/model"
)

// Rule-based classification confidences: a pattern covering the whole
// candidate string scores higher than a partial match.
const (
	fullMatchConfidence    = 0.95
	partialMatchConfidence = 0.85
)

// rulePattern pairs a search regex with its fully-anchored variant so a
// full-string match can be distinguished from a partial one.
type rulePattern struct {
	search *regexp.Regexp
	full   *regexp.Regexp
}

// ruleGroup binds one entity type to its patterns. Groups live in an
// explicit ordered slice; classification priority is a documented
// invariant, not an artifact of map iteration.
type ruleGroup struct {
	entityType model.EntityType
	patterns   []rulePattern
}

// RuleClassifier is a stateless, deterministic classifier over ordered
// pattern groups. Evaluation order: MEDICATION, DOSAGE, SYMPTOM,
// DISEASE, ANATOMY. The first group with any matching pattern wins.
type RuleClassifier struct {
	groups []ruleGroup
}

// NewRuleClassifier compiles the built-in pattern tables
func NewRuleClassifier() *RuleClassifier {
	return &RuleClassifier{groups: []ruleGroup{
		{model.EntityTypeMedication, compileRules(
			// Common drug suffixes
			`\w+(olol|pril|pine|zole|cillin|mycin|vir|mab|nib|stat|pram|zepam|done|sone|ide|ine|ate)`,
			// Common drug names
			`(metformin|insulin|aspirin|ibuprofen|acetaminophen|tylenol|advil|`+
				`amoxicillin|lisinopril|metoprolol|atorvastatin|lipitor|omeprazole|`+
				`levothyroxine|gabapentin|prednisone|hydrochlorothiazide|furosemide|`+
				`amlodipine|losartan|simvastatin|pantoprazole|warfarin|tramadol)`,
		)},
		{model.EntityTypeDosage, compileRules(
			`\d+\.?\d*\s?(mg|milligrams?|mcg|micrograms?|g|grams?|ml|milliliters?|`+
				`cc|units?|iu|tablets?|pills?|caps?|capsules?|drops?|puffs?)`,
			`(once|twice|three times|four times)\s+(daily|a day|per day)`,
			`(bid|tid|qid|prn|qd|qhs|qod)`,
			`(every|each)\s+\d+\s+(hours?|days?|weeks?|months?)`,
		)},
		{model.EntityTypeSymptom, compileRules(
			// Pain patterns
			`\w*\s*(pain|ache|soreness|tenderness|discomfort)`,
			// Common symptoms
			`(fever|chills|fatigue|weakness|nausea|vomiting|diarrhea|constipation|`+
				`cough|shortness of breath|dyspnea|headache|dizziness|vertigo|`+
				`rash|itching|pruritus|swelling|edema|bleeding|discharge|`+
				`numbness|tingling|paresthesia|insomnia|anxiety|depression)`,
			// Symptom descriptors
			`(acute|chronic|severe|mild|moderate|intermittent|constant|`+
				`sudden|gradual|sharp|dull|burning|throbbing|stabbing)\s+\w+`,
		)},
		{model.EntityTypeDisease, compileRules(
			// Disease suffixes
			`\w+(itis|osis|emia|oma|pathy|syndrome|disease|disorder|deficiency)`,
			// Common diseases
			`(diabetes|hypertension|asthma|copd|pneumonia|bronchitis|`+
				`arthritis|osteoporosis|cancer|tumor|malignancy|`+
				`infection|sepsis|stroke|cva|mi|myocardial infarction|`+
				`heart failure|chf|atrial fibrillation|afib|`+
				`anemia|hypothyroidism|hyperthyroidism|`+
				`depression|anxiety|bipolar|schizophrenia|`+
				`alzheimer|dementia|parkinson|epilepsy|seizure)`,
		)},
		{model.EntityTypeAnatomy, compileRules(
			// Body parts and organs
			`(head|brain|skull|eye|ear|nose|mouth|throat|neck|`+
				`chest|heart|lung|liver|kidney|stomach|intestine|colon|`+
				`arm|leg|foot|hand|finger|toe|back|spine|bone|muscle|`+
				`skin|blood|nerve|vessel|artery|vein)`,
			// Anatomical regions
			`(cardiac|pulmonary|hepatic|renal|gastric|cerebral|`+
				`thoracic|abdominal|cervical|lumbar|cranial)`,
		)},
	}}
}

func compileRules(patterns ...string) []rulePattern {
	rules := make([]rulePattern, 0, len(patterns))
	for _, p := range patterns {
		rules = append(rules, rulePattern{
			search: regexp.MustCompile(`(?i)\b` + p + `\b`),
			full:   regexp.MustCompile(`(?i)^(?:\b` + p + `\b)$`),
		})
	}
	return rules
}

// Classify evaluates the pattern groups in order and returns the first
// matching group's type. Confidence is 0.95 when a pattern covers the
// whole candidate string, 0.85 otherwise. The bool reports whether any
// group matched.
func (c *RuleClassifier) Classify(text string) (model.EntityType, float64, bool) {
	lowered := strings.ToLower(strings.TrimSpace(text))

	for _, group := range c.groups {
		for _, pattern := range group.patterns {
			if !pattern.search.MatchString(lowered) {
				continue
			}
			confidence := partialMatchConfidence
			if pattern.full.MatchString(lowered) {
				confidence = fullMatchConfidence
			}
			return group.entityType, confidence, true
		}
	}

	return model.EntityTypeUnknown, 0.0, false
}
