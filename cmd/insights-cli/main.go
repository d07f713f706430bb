package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-insights/internal/batch"
	"github.com/dvloznov/finance-insights/internal/compliance"
	"github.com/dvloznov/finance-insights/internal/guardrail"
	infraBQ "github.com/dvloznov/finance-insights/internal/infra/bigquery"
	"github.com/dvloznov/finance-insights/internal/logger"
	"github.com/dvloznov/finance-insights/internal/pipeline"
	"github.com/dvloznov/finance-insights/internal/reviewsync"
	"github.com/dvloznov/finance-insights/internal/signals"
	"github.com/dvloznov/finance-insights/internal/store"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "recompute":
		runRecompute(log)
	case "batch":
		runBatch(log)
	case "consent":
		runConsent(log)
	case "article":
		runArticle(log)
	case "review-push":
		runReviewPush(log)
	case "review-pull":
		runReviewPull(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Finance Insights CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  insights-cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  recompute    Recompute insights for one user")
	fmt.Println("  batch        Recompute insights for a list of users")
	fmt.Println("  consent      Grant or revoke a user's data consent")
	fmt.Println("  article      Generate an educational article from a user's top recommendation")
	fmt.Println("  review-push  Push flagged recommendations to the operator review board")
	fmt.Println("  review-pull  Apply operator decisions from the review board")
	fmt.Println("  help         Show this help message")
	fmt.Println("\nRun 'insights-cli <command> -h' for more information on a command.")
}

func newEngine(ctx context.Context, log zerolog.Logger, projectID, datasetID string, review bool) (*pipeline.Engine, *infraBQ.Repository) {
	repo, err := infraBQ.NewRepository(ctx, projectID, datasetID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize BigQuery repository")
	}

	var reviewer guardrail.Reviewer
	if review {
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

	return engine, repo
}

func runRecompute(log zerolog.Logger) {
	fs := flag.NewFlagSet("recompute", flag.ExitOnError)
	projectID := fs.String("project", "", "GCP project ID (required)")
	datasetID := fs.String("dataset", infraBQ.DefaultDatasetID, "BigQuery dataset ID")
	userID := fs.String("user", "", "User ID to recompute (required)")
	windowDays := fs.Int("window", signals.Window30, "Analysis window in days (30 or 180)")
	review := fs.Bool("review", false, "Run rationales through the model compliance reviewer")
	fs.Parse(os.Args[2:])

	if *projectID == "" {
		log.Fatal().Msg("Error: --project is required")
	}
	if *userID == "" {
		log.Fatal().Msg("Error: --user is required")
	}
	if !signals.SupportedWindow(*windowDays) {
		log.Fatal().Int("window_days", *windowDays).Msg("Error: --window must be 30 or 180")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	engine, repo := newEngine(ctx, log, *projectID, *datasetID, *review)
	defer repo.Close()

	state, err := engine.Run(ctx, *userID, *windowDays, time.Now().UTC())
	if err != nil {
		log.Fatal().Err(err).Str("user_id", *userID).Msg("Recompute failed")
	}

	fmt.Printf("Recompute completed: primary persona %s, %d recommendations\n",
		state.Assignment.Primary.PersonaType, len(state.Recommendations))
}

func runBatch(log zerolog.Logger) {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	projectID := fs.String("project", "", "GCP project ID (required)")
	datasetID := fs.String("dataset", infraBQ.DefaultDatasetID, "BigQuery dataset ID")
	users := fs.String("users", "", "Comma-separated user IDs (required)")
	windowDays := fs.Int("window", signals.Window30, "Analysis window in days (30 or 180)")
	review := fs.Bool("review", false, "Run rationales through the model compliance reviewer")
	fs.Parse(os.Args[2:])

	if *projectID == "" {
		log.Fatal().Msg("Error: --project is required")
	}
	if *users == "" {
		log.Fatal().Msg("Error: --users is required")
	}
	if !signals.SupportedWindow(*windowDays) {
		log.Fatal().Int("window_days", *windowDays).Msg("Error: --window must be 30 or 180")
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

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	engine, repo := newEngine(ctx, log, *projectID, *datasetID, *review)
	defer repo.Close()

	runner := batch.NewRunner(engine)
	result, err := runner.Run(ctx, userIDs, *windowDays, time.Now().UTC())
	if err != nil {
		log.Fatal().Err(err).Msg("Batch recompute aborted")
	}

	printBatchSummary(result)
}

func printBatchSummary(result *batch.Result) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"User", "Status", "Persona", "Recs", "Error"})

	for _, ur := range result.Users {
		table.Append([]string{
			ur.UserID,
			ur.Status,
			ur.PrimaryPersona,
			strconv.Itoa(ur.Recommendations),
			ur.Error,
		})
	}

	table.Render()

	fmt.Printf("\nTotal: %d  Completed: %d  Skipped: %d  Failed: %d  (%s)\n",
		result.Total, result.Completed, result.Skipped, result.Failed,
		result.Duration.Round(time.Millisecond))
}

func runConsent(log zerolog.Logger) {
	fs := flag.NewFlagSet("consent", flag.ExitOnError)
	projectID := fs.String("project", "", "GCP project ID (required)")
	datasetID := fs.String("dataset", infraBQ.DefaultDatasetID, "BigQuery dataset ID")
	userID := fs.String("user", "", "User ID (required)")
	grant := fs.Bool("grant", false, "Grant data consent")
	revoke := fs.Bool("revoke", false, "Revoke data consent and hide active recommendations")
	fs.Parse(os.Args[2:])

	if *projectID == "" {
		log.Fatal().Msg("Error: --project is required")
	}
	if *userID == "" {
		log.Fatal().Msg("Error: --user is required")
	}
	if *grant == *revoke {
		log.Fatal().Msg("Error: exactly one of --grant or --revoke is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	repo, err := infraBQ.NewRepository(ctx, *projectID, *datasetID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize BigQuery repository")
	}
	defer repo.Close()

	gate := guardrail.NewConsentGate(repo, repo)

	if *grant {
		if err := gate.Grant(ctx, *userID); err != nil {
			log.Fatal().Err(err).Msg("Failed to grant consent")
		}
		fmt.Printf("Consent granted for %s\n", *userID)
		return
	}

	if err := gate.Revoke(ctx, *userID); err != nil {
		log.Fatal().Err(err).Msg("Failed to revoke consent")
	}
	fmt.Printf("Consent revoked for %s\n", *userID)
}

func runArticle(log zerolog.Logger) {
	fs := flag.NewFlagSet("article", flag.ExitOnError)
	projectID := fs.String("project", "", "GCP project ID (required)")
	datasetID := fs.String("dataset", infraBQ.DefaultDatasetID, "BigQuery dataset ID")
	userID := fs.String("user", "", "User ID (required)")
	title := fs.String("title", "", "Article title (required)")
	model := fs.String("model", compliance.DefaultModelName, "Model used for generation")
	fs.Parse(os.Args[2:])

	if *projectID == "" {
		log.Fatal().Msg("Error: --project is required")
	}
	if *userID == "" {
		log.Fatal().Msg("Error: --user is required")
	}
	if *title == "" {
		log.Fatal().Msg("Error: --title is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	repo, err := infraBQ.NewRepository(ctx, *projectID, *datasetID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize BigQuery repository")
	}
	defer repo.Close()

	recs, err := repo.ListRecommendationsByUser(ctx, *userID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list recommendations")
	}

	var top *store.RecommendationRow
	for _, rec := range recs {
		if rec.RecType == store.RecTypeEducation && rec.Status == store.RecStatusActive {
			top = rec
			break
		}
	}
	if top == nil {
		log.Fatal().Str("user_id", *userID).Msg("No active education recommendation to write from")
	}

	generator, err := compliance.NewArticleGenerator(ctx, *model)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize article generator")
	}

	body, err := generator.Generate(ctx, compliance.ArticleContext{
		Title:         *title,
		Rationale:     top.Rationale,
		PersonaType:   top.PersonaType,
		SignalSummary: strings.Join(top.SignalsUsed, ", "),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Article generation failed")
	}

	fmt.Println(body)
}

func runReviewPush(log zerolog.Logger) {
	fs := flag.NewFlagSet("review-push", flag.ExitOnError)
	projectID := fs.String("project", "", "GCP project ID (required)")
	datasetID := fs.String("dataset", infraBQ.DefaultDatasetID, "BigQuery dataset ID")
	notionToken := fs.String("notion-token", "", "Notion API token (required)")
	notionDBID := fs.String("notion-db-id", "", "Notion review board database ID (required)")
	dryRun := fs.Bool("dry-run", false, "Preview changes without pushing")
	fs.Parse(os.Args[2:])

	repo, notion := reviewBoardDeps(log, *projectID, *datasetID, *notionToken, *notionDBID)
	defer repo.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	result, err := reviewsync.PushFlagged(ctx, repo, notion, *notionDBID, *dryRun)
	if err != nil {
		log.Fatal().Err(err).Msg("Review board push failed")
	}

	fmt.Printf("Flagged: %d  Pushed: %d  Skipped: %d\n", result.Flagged, result.Pushed, result.Skipped)
}

func runReviewPull(log zerolog.Logger) {
	fs := flag.NewFlagSet("review-pull", flag.ExitOnError)
	projectID := fs.String("project", "", "GCP project ID (required)")
	datasetID := fs.String("dataset", infraBQ.DefaultDatasetID, "BigQuery dataset ID")
	notionToken := fs.String("notion-token", "", "Notion API token (required)")
	notionDBID := fs.String("notion-db-id", "", "Notion review board database ID (required)")
	dryRun := fs.Bool("dry-run", false, "Preview changes without applying")
	fs.Parse(os.Args[2:])

	repo, notion := reviewBoardDeps(log, *projectID, *datasetID, *notionToken, *notionDBID)
	defer repo.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	result, err := reviewsync.PullDecisions(ctx, repo, notion, *notionDBID, *dryRun)
	if err != nil {
		log.Fatal().Err(err).Msg("Review board pull failed")
	}

	fmt.Printf("Pages: %d  Approved: %d  Rejected: %d  Pending: %d\n",
		result.Pages, result.Approved, result.Rejected, result.Pending)
}

func reviewBoardDeps(log zerolog.Logger, projectID, datasetID, notionToken, notionDBID string) (*infraBQ.Repository, *reviewsync.NotionClient) {
	if projectID == "" {
		log.Fatal().Msg("Error: --project is required")
	}
	if notionToken == "" {
		log.Fatal().Msg("Error: --notion-token is required")
	}
	if notionDBID == "" {
		log.Fatal().Msg("Error: --notion-db-id is required")
	}

	repo, err := infraBQ.NewRepository(context.Background(), projectID, datasetID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize BigQuery repository")
	}

	return repo, reviewsync.NewNotionClient(notionToken)
}
