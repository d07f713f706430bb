package compliance

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/dvloznov/finance-insights/internal/guardrail"
)

// DefaultModelName is the model used for compliance review and article
// generation.
const DefaultModelName = "gemini-2.5-flash"

// ModelReviewer delegates compliance review of generated text to Gemini.
// It implements guardrail.Reviewer; wiring it behind an AgenticReviewer
// keeps the fail-open policy in one place.
type ModelReviewer struct {
	client *genai.Client
	model  string
}

var _ guardrail.Reviewer = (*ModelReviewer)(nil)

// NewModelReviewer creates a reviewer with its own GenAI client.
func NewModelReviewer(ctx context.Context, model string) (*ModelReviewer, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewModelReviewer: create genai client: %w", err)
	}
	if model == "" {
		model = DefaultModelName
	}
	return &ModelReviewer{client: client, model: model}, nil
}

// Review asks the model whether the text is compliant for the given persona
// and recommendation type. The model must answer with a strict JSON object.
func (r *ModelReviewer) Review(ctx context.Context, text, personaType, recType string) (*guardrail.ReviewVerdict, error) {
	prompt :=
		"You are a compliance reviewer for consumer financial guidance text.\n\n" +
			"Review the text below for:\n" +
			"- directive financial advice (telling the user what they must or should do)\n" +
			"- guarantees or predictions of financial outcomes\n" +
			"- shaming or judgmental language about the user's finances\n" +
			"- pressure or urgency language\n\n" +
			"Context:\n" +
			"- persona: " + personaType + "\n" +
			"- recommendation type: " + recType + "\n\n" +
			"Text to review:\n" + text + "\n\n" +
			"Output STRICT JSON only (no comments, no extra text).\n" +
			"Do NOT wrap the response in code fences.\n" +
			"Output must be a single object: {\"approved\": boolean, \"reason\": string}.\n" +
			"When approved is true the reason may be empty.\n"

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	resp, err := r.client.Models.GenerateContent(ctx, r.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("ModelReviewer.Review: generate content: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return nil, fmt.Errorf("ModelReviewer.Review: empty response from model")
	}

	clean := cleanModelJSON(rawText)

	var verdict guardrail.ReviewVerdict
	if err := json.Unmarshal([]byte(clean), &verdict); err != nil {
		return nil, fmt.Errorf("ModelReviewer.Review: unmarshal JSON: %w\nraw response: %s", err, rawText)
	}
	return &verdict, nil
}

// cleanModelJSON strips Markdown fences and surrounding junk when the model
// ignores the raw-JSON instruction.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	// Keep only from the first '{' to the last '}' if junk remains.
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = s[start : end+1]
			s = strings.TrimSpace(s)
		}
	}

	return s
}
