package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/clinterm/medspan"
	"github.com/clinterm/medspan/model"
	"github.com/joho/godotenv"
)

const sampleNote = `Pt is a 58 y/o male c/o chest pain and shortness of breath.
Hx of type 2 diabetes and hypertension. Currently taking metformin 500mg
twice daily and lisinopril 10mg daily. Pt also reports mild headache
w/o fever. Prescribed aspirin 81mg daily for cardiac protection.`

func main() {
	// Load UMLS_API_KEY from .env if present; without a key the
	// pipeline still runs, classification then relies on rules alone.
	_ = godotenv.Load()

	config := model.DefaultConfig()
	config.APIKey = os.Getenv("UMLS_API_KEY")

	extractor, err := medspan.NewExtractor(config)
	if err != nil {
		log.Fatalf("Failed to create extractor: %v", err)
	}
	defer extractor.Close()

	doc := model.NewDocument("sample visit note", sampleNote)
	result := extractor.ProcessDocument(context.Background(), doc)

	// Human-readable summary
	fmt.Println(result.FormatReport())

	// Full structured result
	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode result: %v", err)
	}
	fmt.Println(string(encoded))
}
