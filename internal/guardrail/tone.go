package guardrail

import "strings"

// blockedPhrases are prohibited fragments in user-facing text: directive
// financial advice, shaming, guarantees and predictions, and mandate
// language. Matching is a case-insensitive substring check.
var blockedPhrases = []string{
	"you should",
	"you must",
	"you need to",
	"you have to",
	"we recommend you",
	"guarantee",
	"will definitely",
	"will certainly",
	"can't lose",
	"risk-free",
	"you're wasting",
	"you are wasting",
	"irresponsible",
	"bad with money",
	"failing to",
	"always invest",
	"never invest",
	"act now",
	"don't miss out",
	"last chance",
}

// ToneResult lists every blocked phrase found in a text.
type ToneResult struct {
	Passed  bool     `json:"passed"`
	Matches []string `json:"matches,omitempty"`
}

// ValidateTone checks generated text against the blocklist. Any hit fails
// validation; all hits are reported, not just the first.
func ValidateTone(text string) *ToneResult {
	lower := strings.ToLower(text)

	result := &ToneResult{Passed: true}
	for _, phrase := range blockedPhrases {
		if strings.Contains(lower, phrase) {
			result.Passed = false
			result.Matches = append(result.Matches, phrase)
		}
	}
	return result
}
