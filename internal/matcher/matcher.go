package matcher

import (
	"fmt"
	"sort"

	"github.com/dvloznov/finance-insights/internal/guardrail"
	"github.com/dvloznov/finance-insights/internal/store"
)

// Relevance weights for content scoring.
const (
	personaFitWeight    = 0.7
	signalOverlapWeight = 0.3
)

// ContentMatch is a ranked content candidate with the filters that admitted
// it.
type ContentMatch struct {
	Item      *store.ContentItemRow
	Relevance float64

	PersonaFit    bool
	SignalOverlap float64

	// RulePath records which content filters fired, in order.
	RulePath []string
}

// OfferMatch is an eligible offer with its eligibility detail.
type OfferMatch struct {
	Offer *store.OfferRow

	PersonaFit     bool
	MatchedSignals []string
	Eligibility    *guardrail.EligibilityResult

	RulePath []string
}

// MatchContent scores the content catalog against the user's persona and tag
// set. An item is a candidate if the persona fits or any signal tag overlaps.
func MatchContent(items []*store.ContentItemRow, personaType string, tags *TagSet) []*ContentMatch {
	var matches []*ContentMatch

	for _, item := range items {
		if !item.IsActive {
			continue
		}

		fit := containsString(item.PersonaFit, personaType)
		overlap := overlapFraction(item.SignalTags, tags)

		if !fit && overlap == 0 {
			continue
		}

		match := &ContentMatch{
			Item:          item,
			PersonaFit:    fit,
			SignalOverlap: overlap,
			Relevance:     personaFitWeight*boolToFloat(fit) + signalOverlapWeight*overlap,
		}
		if fit {
			match.RulePath = append(match.RulePath, "content_filter:persona_fit="+personaType)
		}
		if overlap > 0 {
			match.RulePath = append(match.RulePath, fmt.Sprintf("content_filter:signal_overlap=%.2f", overlap))
		}
		matches = append(matches, match)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Relevance != matches[j].Relevance {
			return matches[i].Relevance > matches[j].Relevance
		}
		return matches[i].Item.EditorialPriority < matches[j].Item.EditorialPriority
	})

	return matches
}

// MatchOffers filters the offer catalog down to eligible offers. Eligibility
// requires all typed rules to pass, every required signal tag present, and no
// excluded account type held. Rule parse failures disqualify the offer.
func MatchOffers(offers []*store.OfferRow, personaType string, tags *TagSet, data guardrail.UserData, heldAccountTypes []string) []*OfferMatch {
	held := make(map[string]bool, len(heldAccountTypes))
	for _, t := range heldAccountTypes {
		held[t] = true
	}

	var matches []*OfferMatch

	for _, offer := range offers {
		if !offer.IsActive {
			continue
		}
		if excluded := excludedTypeHeld(offer, held); excluded != "" {
			continue
		}

		matched, allPresent := matchedSignals(offer.RequiredSignals, tags)
		if !allPresent {
			continue
		}

		rules, err := guardrail.ParseRules(offer.Rules)
		if err != nil {
			continue
		}
		eligibility := guardrail.EvaluateRules(rules, data)
		if !eligibility.Passed {
			continue
		}

		match := &OfferMatch{
			Offer:          offer,
			PersonaFit:     containsString(offer.PersonaFit, personaType),
			MatchedSignals: matched,
			Eligibility:    eligibility,
		}
		match.RulePath = append(match.RulePath, fmt.Sprintf("offer_filter:rules_passed=%d", len(rules)))
		match.RulePath = append(match.RulePath, fmt.Sprintf("offer_filter:signals_matched=%d", len(matched)))
		if match.PersonaFit {
			match.RulePath = append(match.RulePath, "offer_filter:persona_fit="+personaType)
		}
		matches = append(matches, match)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].PersonaFit != matches[j].PersonaFit {
			return matches[i].PersonaFit
		}
		return len(matches[i].MatchedSignals) > len(matches[j].MatchedSignals)
	})

	return matches
}

// HeldAccountTypes collects the distinct account types and subtypes a user
// holds, for offer exclusion checks.
func HeldAccountTypes(accounts []*store.AccountRow) []string {
	seen := make(map[string]bool)
	var types []string
	for _, account := range accounts {
		for _, t := range []string{account.AccountType, account.Subtype} {
			if t == "" || seen[t] {
				continue
			}
			seen[t] = true
			types = append(types, t)
		}
	}
	return types
}

func excludedTypeHeld(offer *store.OfferRow, held map[string]bool) string {
	for _, t := range offer.ExcludedAccountTypes {
		if held[t] {
			return t
		}
	}
	return ""
}

func matchedSignals(required []string, tags *TagSet) ([]string, bool) {
	var matched []string
	for _, tag := range required {
		if !tags.Has(tag) {
			return nil, false
		}
		matched = append(matched, tag)
	}
	return matched, true
}

func overlapFraction(declared []string, tags *TagSet) float64 {
	if len(declared) == 0 {
		return 0
	}
	var hits int
	for _, tag := range declared {
		if tags.Has(tag) {
			hits++
		}
	}
	return float64(hits) / float64(len(declared))
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
