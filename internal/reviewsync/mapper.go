package reviewsync

import (
	"fmt"
	"strings"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/finance-insights/internal/store"
)

// Operator decision values used on the review board's Decision select.
const (
	DecisionPending  = "Pending"
	DecisionApproved = "Approved"
	DecisionRejected = "Rejected"
)

// RecommendationToNotionProperties converts a flagged RecommendationRow to
// Notion properties for the operator review board.
func RecommendationToNotionProperties(rec *store.RecommendationRow) notionapi.Properties {
	props := notionapi.Properties{
		"Recommendation ID": notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: rec.RecommendationID,
					},
				},
			},
		},
		"User": notionapi.RichTextProperty{
			RichText: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: rec.UserID,
					},
				},
			},
		},
		"Type": notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: rec.RecType,
			},
		},
		"Persona": notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: rec.PersonaType,
			},
		},
		"Decision": notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: DecisionPending,
			},
		},
	}

	// Rationale text the operator reviews
	if rec.Rationale != "" {
		props["Rationale"] = notionapi.RichTextProperty{
			RichText: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: rec.Rationale,
					},
				},
			},
		}
	}

	// Why the agentic reviewer flagged it
	if rec.ReviewReason.Valid && rec.ReviewReason.StringVal != "" {
		props["Flag Reason"] = notionapi.RichTextProperty{
			RichText: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: rec.ReviewReason.StringVal,
					},
				},
			},
		}
	}

	// Flagged At
	if !rec.CreatedTS.IsZero() {
		props["Flagged At"] = notionapi.DateProperty{
			Date: &notionapi.DateObject{
				Start: (*notionapi.Date)(&rec.CreatedTS),
			},
		}
	}

	return props
}

// GetNotionPageID extracts the Notion page ID from the external_reference field.
// Returns empty string if not set.
func GetNotionPageID(rec *store.RecommendationRow) string {
	if rec.ExternalReference.Valid {
		return extractPageID(rec.ExternalReference.StringVal)
	}
	return ""
}

// FormatPageRef creates a formatted external_reference string for storing a
// Notion page ID.
func FormatPageRef(pageID string) string {
	return fmt.Sprintf("notion:%s", pageID)
}

// extractPageID extracts the page ID from the external_reference format "notion:page_id"
func extractPageID(externalRef string) string {
	if strings.HasPrefix(externalRef, "notion:") {
		return strings.TrimPrefix(externalRef, "notion:")
	}
	return externalRef
}

// extractRecommendationID extracts the recommendation ID from a Notion page's
// properties. Returns empty string if not found.
func extractRecommendationID(page notionapi.Page) string {
	if prop, ok := page.Properties["Recommendation ID"]; ok {
		if title, ok := prop.(*notionapi.TitleProperty); ok {
			if len(title.Title) > 0 {
				return title.Title[0].PlainText
			}
		}
	}
	return ""
}

// extractDecision extracts the operator's Decision select value from a Notion
// page's properties. Returns empty string if not found.
func extractDecision(page notionapi.Page) string {
	if prop, ok := page.Properties["Decision"]; ok {
		if sel, ok := prop.(*notionapi.SelectProperty); ok {
			return sel.Select.Name
		}
	}
	return ""
}

// extractDecisionNote extracts the operator's note from a Notion page's
// properties. Returns empty string if not found.
func extractDecisionNote(page notionapi.Page) string {
	if prop, ok := page.Properties["Decision Note"]; ok {
		if richText, ok := prop.(*notionapi.RichTextProperty); ok {
			if len(richText.RichText) > 0 {
				return richText.RichText[0].PlainText
			}
		}
	}
	return ""
}
