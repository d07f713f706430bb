package main

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/finance-insights/internal/export"
	infraBQ "github.com/dvloznov/finance-insights/internal/infra/bigquery"
	"github.com/dvloznov/finance-insights/internal/logger"
)

func main() {
	// Initialize structured logger
	log := logger.New()

	projectID := flag.String("project", "", "GCP project ID (required)")
	datasetID := flag.String("dataset", infraBQ.DefaultDatasetID, "BigQuery dataset ID")
	bucket := flag.String("bucket", "", "GCS bucket for audit bundles (required)")
	users := flag.String("users", "", "Comma-separated user IDs to export (required)")
	flag.Parse()

	if *projectID == "" {
		log.Fatal().Msg("Error: --project is required")
	}
	if *bucket == "" {
		log.Fatal().Msg("Error: --bucket is required")
	}
	if *users == "" {
		log.Fatal().Msg("Error: --users is required")
	}

	var userIDs []string
	for _, id := range strings.Split(*users, ",") {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			userIDs = append(userIDs, trimmed)
		}
	}
	if len(userIDs) == 0 {
		log.Fatal().Msg("Error: --users contained no user IDs")
	}

	// Create context with timeout so the export doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	log.Info().
		Int("users", len(userIDs)).
		Str("bucket", *bucket).
		Msg("Starting audit export")

	repo, err := infraBQ.NewRepository(ctx, *projectID, *datasetID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize BigQuery repository")
	}
	defer repo.Close()

	exporter, err := export.NewExporter(ctx, *bucket)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize GCS exporter")
	}
	defer exporter.Close()

	uris, err := exporter.ExportUsers(ctx, repo, userIDs, time.Now().UTC())
	if err != nil {
		log.Fatal().Err(err).Msg("Audit export aborted")
	}

	for _, uri := range uris {
		fmt.Println(uri)
	}
	fmt.Printf("Exported %d of %d audit bundles.\n", len(uris), len(userIDs))
}
