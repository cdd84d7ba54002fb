package main

import (
	"context"
	"fmt"
	"log"

	"github.com/clinterm/medspan"
	"github.com/clinterm/medspan/model"
)

// Rules-only extraction: no statistical tagger, no knowledge base, no
// cache. Everything runs offline and deterministically.
func main() {
	config := model.DefaultConfig()
	config.TaggerModel = ""
	config.EnableKnowledgeBase = false
	config.UseCache = false

	extractor, err := medspan.NewExtractor(config)
	if err != nil {
		log.Fatalf("Failed to create extractor: %v", err)
	}
	defer extractor.Close()

	entities := extractor.ExtractEntities(context.Background(),
		"Pt c/o severe headache and nausea. Taking ibuprofen 400mg twice daily.")

	for _, entity := range entities {
		fmt.Printf("%-12s %-24q confidence=%.3f status=%s\n",
			entity.Type, entity.Text, entity.Confidence, entity.Metadata.ReviewStatus)
	}
}
