package terminology

import "strings"

// NameSimilarity scores how close a searched term is to the concept name
// the knowledge base returned. Both inputs are expected lower-cased.
func NameSimilarity(term, conceptName string) float64 {
	if term == conceptName {
		return 1.0
	}

	if strings.Contains(conceptName, term) || strings.Contains(term, conceptName) {
		return 0.9
	}

	termWords := wordSet(term)
	conceptWords := wordSet(conceptName)

	overlap := 0
	for w := range termWords {
		if _, ok := conceptWords[w]; ok {
			overlap++
		}
	}

	if overlap > 0 {
		total := len(termWords) + len(conceptWords) - overlap
		return 0.7 + (float64(overlap)/float64(total))*0.2
	}

	return 0.6
}

func wordSet(s string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, w := range strings.Fields(s) {
		set[w] = struct{}{}
	}
	return set
}
