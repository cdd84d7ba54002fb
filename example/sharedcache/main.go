package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/clinterm/medspan"
	"github.com/clinterm/medspan/helper"
	"github.com/clinterm/medspan/model"
	"github.com/joho/godotenv"
)

// Shared term cache: multiple extractor processes pointed at the same
// Postgres database reuse each other's knowledge base lookups. This
// example starts a throwaway container; production deployments point
// DB_* environment variables at a real database.
func main() {
	_ = godotenv.Load()

	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(context.Background())

	dbConfig := &helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		User:     "postgres",
		Password: "postgres",
		Name:     "medspan_test",
		Schema:   "public",
	}

	logger := slog.New(helper.NewPrettyHandler(os.Stdout, helper.PrettyHandlerOptions{}))
	db := helper.NewDatabase("medspan", dbConfig, logger)
	defer db.Instance.Close()

	config := model.DefaultConfig()
	config.TaggerModel = "" // keep the example light, regex candidates only
	config.APIKey = os.Getenv("UMLS_API_KEY")
	config.UseCache = false // the shared cache replaces the local one

	extractor, err := medspan.NewExtractor(config)
	if err != nil {
		log.Fatalf("Failed to create extractor: %v", err)
	}
	defer extractor.Close()

	if err := extractor.UseSharedTermCache(db, false); err != nil {
		log.Fatalf("Failed to wire shared term cache: %v", err)
	}

	result := extractor.ProcessText(context.Background(),
		"Pt diagnosed with hypothyroidism, started levothyroxine 50mcg daily.")

	fmt.Println(result.FormatReport())
}
