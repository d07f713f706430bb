package compliance

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// EducationalDisclaimer is appended to generated article bodies that do not
// already carry a disclaimer of their own.
const EducationalDisclaimer = "This content is for educational purposes only and is not financial advice."

// disclaimerMarkers are fragments whose presence means the body already
// carries a disclaimer.
var disclaimerMarkers = []string{
	"educational purposes",
	"not financial advice",
	"informational purposes",
}

// ArticleContext is the input for one generated article.
type ArticleContext struct {
	Title         string
	Rationale     string
	PersonaType   string
	SignalSummary string
}

// ArticleGenerator produces educational article bodies with Gemini.
type ArticleGenerator struct {
	client *genai.Client
	model  string
}

// NewArticleGenerator creates a generator with its own GenAI client.
func NewArticleGenerator(ctx context.Context, model string) (*ArticleGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewArticleGenerator: create genai client: %w", err)
	}
	if model == "" {
		model = DefaultModelName
	}
	return &ArticleGenerator{client: client, model: model}, nil
}

// Generate produces an article body for the given context. The disclaimer is
// appended here when the model's own output lacks one; callers receive a body
// that always carries it.
func (g *ArticleGenerator) Generate(ctx context.Context, article ArticleContext) (string, error) {
	prompt :=
		"You are a financial education writer. Write a short article body.\n\n" +
			"Constraints:\n" +
			"- Neutral, educational tone. Never tell the reader what they should or must do.\n" +
			"- No guarantees or predictions of financial outcomes.\n" +
			"- No shaming language about the reader's finances.\n" +
			"- 3 to 5 short paragraphs, plain text, no Markdown headings.\n\n" +
			"Article title: " + article.Title + "\n" +
			"Why the reader is seeing it: " + article.Rationale + "\n" +
			"Reader profile: " + article.PersonaType + "\n" +
			"Relevant signals: " + article.SignalSummary + "\n"

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("ArticleGenerator.Generate: generate content: %w", err)
	}

	body := strings.TrimSpace(resp.Text())
	if body == "" {
		return "", fmt.Errorf("ArticleGenerator.Generate: empty response from model")
	}

	return EnsureDisclaimer(body), nil
}

// EnsureDisclaimer appends the educational disclaimer unless the body already
// carries one.
func EnsureDisclaimer(body string) string {
	lower := strings.ToLower(body)
	for _, marker := range disclaimerMarkers {
		if strings.Contains(lower, marker) {
			return body
		}
	}
	return body + "\n\n" + EducationalDisclaimer
}
