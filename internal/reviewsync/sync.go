package reviewsync

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/finance-insights/internal/logger"
	"github.com/dvloznov/finance-insights/internal/store"
)

// PushResult summarizes one push of flagged recommendations to the board.
type PushResult struct {
	Flagged int
	Pushed  int
	Skipped int
}

// PullResult summarizes one pull of operator decisions from the board.
type PullResult struct {
	Pages    int
	Approved int
	Rejected int
	Pending  int
}

// PushFlagged pushes recommendations the agentic reviewer flagged onto the
// operator review board. The external_reference field on recommendations
// tracks Notion page IDs, so a recommendation is pushed at most once.
func PushFlagged(ctx context.Context, repo store.RecommendationStore, notion NotionService, databaseID string, dryRun bool) (*PushResult, error) {
	log := logger.FromContext(ctx)

	flagged, err := repo.ListFlaggedRecommendations(ctx)
	if err != nil {
		return nil, fmt.Errorf("PushFlagged: list flagged: %w", err)
	}

	result := &PushResult{Flagged: len(flagged)}

	for _, rec := range flagged {
		// Already on the board
		if GetNotionPageID(rec) != "" {
			result.Skipped++
			continue
		}

		if dryRun {
			log.Info().
				Str("recommendation_id", rec.RecommendationID).
				Msg("[DRY RUN] Would push flagged recommendation to review board")
			result.Pushed++
			continue
		}

		props := RecommendationToNotionProperties(rec)
		page, err := notion.CreatePage(ctx, databaseID, props)
		if err != nil {
			log.Warn().
				Err(err).
				Str("recommendation_id", rec.RecommendationID).
				Msg("Failed to create review board page")
			continue
		}

		if err := repo.SetExternalReference(ctx, rec.RecommendationID, FormatPageRef(string(page.ID))); err != nil {
			log.Warn().
				Err(err).
				Str("recommendation_id", rec.RecommendationID).
				Str("page_id", string(page.ID)).
				Msg("Failed to record review board page reference")
			continue
		}

		log.Info().
			Str("recommendation_id", rec.RecommendationID).
			Str("page_id", string(page.ID)).
			Msg("Pushed flagged recommendation to review board")
		result.Pushed++
	}

	log.Info().
		Int("flagged", result.Flagged).
		Int("pushed", result.Pushed).
		Int("skipped", result.Skipped).
		Msg("Review board push completed")

	return result, nil
}

// PullDecisions reads operator decisions back from the review board and
// applies them. Approved recommendations move to operator_approved; rejected
// ones are dismissed, so they never surface to the user.
func PullDecisions(ctx context.Context, repo store.RecommendationStore, notion NotionService, databaseID string, dryRun bool) (*PullResult, error) {
	log := logger.FromContext(ctx)

	pages, err := queryAllPages(ctx, notion, databaseID)
	if err != nil {
		return nil, fmt.Errorf("PullDecisions: %w", err)
	}

	result := &PullResult{Pages: len(pages)}

	for _, page := range pages {
		recID := extractRecommendationID(page)
		if recID == "" {
			continue
		}

		decision := extractDecision(page)
		note := extractDecisionNote(page)

		switch decision {
		case DecisionApproved:
			if dryRun {
				log.Info().
					Str("recommendation_id", recID).
					Msg("[DRY RUN] Would apply operator approval")
				result.Approved++
				continue
			}
			if err := repo.UpdateReviewStatus(ctx, recID, store.ReviewOperatorApproved, note); err != nil {
				log.Warn().
					Err(err).
					Str("recommendation_id", recID).
					Msg("Failed to apply operator approval")
				continue
			}
			log.Info().
				Str("recommendation_id", recID).
				Msg("Applied operator approval")
			result.Approved++

		case DecisionRejected:
			if dryRun {
				log.Info().
					Str("recommendation_id", recID).
					Msg("[DRY RUN] Would dismiss rejected recommendation")
				result.Rejected++
				continue
			}
			if err := repo.UpdateRecommendationStatus(ctx, recID, store.RecStatusDismissed); err != nil {
				log.Warn().
					Err(err).
					Str("recommendation_id", recID).
					Msg("Failed to dismiss rejected recommendation")
				continue
			}
			log.Info().
				Str("recommendation_id", recID).
				Msg("Dismissed rejected recommendation")
			result.Rejected++

		default:
			result.Pending++
		}
	}

	log.Info().
		Int("pages", result.Pages).
		Int("approved", result.Approved).
		Int("rejected", result.Rejected).
		Int("pending", result.Pending).
		Msg("Review board pull completed")

	return result, nil
}

// queryAllPages queries all pages from a Notion database and returns them.
// Handles pagination automatically.
func queryAllPages(ctx context.Context, notion NotionService, databaseID string) ([]notionapi.Page, error) {
	var allPages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{
			PageSize: 100,
		}

		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := notion.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllPages: %w", err)
		}

		allPages = append(allPages, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return allPages, nil
}
