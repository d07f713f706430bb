package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dvloznov/finance-insights/internal/compliance"
	"github.com/dvloznov/finance-insights/internal/guardrail"
	infraBQ "github.com/dvloznov/finance-insights/internal/infra/bigquery"
	"github.com/dvloznov/finance-insights/internal/jobs"
	"github.com/dvloznov/finance-insights/internal/jobs/inmemory"
	"github.com/dvloznov/finance-insights/internal/logger"
	"github.com/dvloznov/finance-insights/internal/pipeline"
	"github.com/dvloznov/finance-insights/internal/signals"
)

func main() {
	// Initialize logger
	log := logger.New()

	projectID := flag.String("project", "", "GCP project ID (required)")
	datasetID := flag.String("dataset", infraBQ.DefaultDatasetID, "BigQuery dataset ID")
	review := flag.Bool("review", false, "Run rationales through the model compliance reviewer")
	seedUsers := flag.String("users", "", "Comma-separated user IDs to enqueue at startup")
	windowDays := flag.Int("window", signals.Window30, "Analysis window for seeded jobs (30 or 180)")
	flag.Parse()

	if *projectID == "" {
		log.Fatal().Msg("Error: --project is required")
	}
	if !signals.SupportedWindow(*windowDays) {
		log.Fatal().Int("window_days", *windowDays).Msg("Error: --window must be 30 or 180")
	}

	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	repo, err := infraBQ.NewRepository(ctx, *projectID, *datasetID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize BigQuery repository")
	}
	defer repo.Close()

	var reviewer guardrail.Reviewer
	if *review {
		modelReviewer, err := compliance.NewModelReviewer(ctx, compliance.DefaultModelName)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize compliance reviewer")
		}
		reviewer = modelReviewer
	}

	engine := pipeline.NewEngine(pipeline.Deps{
		Accounts:        repo,
		Catalog:         repo,
		Signals:         repo,
		Personas:        repo,
		Recommendations: repo,
		Consents:        repo,
		Reviewer:        reviewer,
		ReviewTimeout:   30 * time.Second,
	})

	// Initialize job store and queue
	// In production, this would be replaced with Cloud Tasks or Pub/Sub
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore)

	log.Info().Msg("Starting insights worker service")

	// Create job handler that processes recompute jobs
	handler := func(ctx context.Context, job jobs.Job) error {
		recomputeJob, ok := job.(*jobs.RecomputeJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log.Info().
			Str("job_id", recomputeJob.JobID).
			Str("user_id", recomputeJob.UserID).
			Int("window_days", recomputeJob.WindowDays).
			Msg("Processing recompute job")

		state, err := engine.Run(ctx, recomputeJob.UserID, recomputeJob.WindowDays, time.Now().UTC())
		if err != nil {
			log.Error().
				Err(err).
				Str("job_id", recomputeJob.JobID).
				Str("user_id", recomputeJob.UserID).
				Msg("Recompute failed")
			return err
		}

		log.Info().
			Str("job_id", recomputeJob.JobID).
			Str("user_id", recomputeJob.UserID).
			Str("primary_persona", state.Assignment.Primary.PersonaType).
			Int("recommendations", len(state.Recommendations)).
			Msg("Recompute completed successfully")

		return nil
	}

	// Start consuming jobs
	if err := jobQueue.Start(ctx, handler); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	log.Info().Msg("Worker service started, waiting for jobs...")

	// Seed recompute jobs for the requested users
	if *seedUsers != "" {
		for _, id := range strings.Split(*seedUsers, ",") {
			userID := strings.TrimSpace(id)
			if userID == "" {
				continue
			}
			job := &jobs.RecomputeJob{UserID: userID, WindowDays: *windowDays}
			if err := jobQueue.PublishRecompute(ctx, job); err != nil {
				log.Error().Err(err).Str("user_id", userID).Msg("Failed to enqueue recompute job")
				continue
			}
			log.Info().Str("job_id", job.JobID).Str("user_id", userID).Msg("Enqueued recompute job")
		}
	}

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker service...")

	// Cancel context to stop workers
	cancel()

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop the queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	// Close the queue
	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Worker service exited")
}
