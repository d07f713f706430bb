package matcher

import (
	"testing"

	"github.com/dvloznov/finance-insights/internal/guardrail"
	"github.com/dvloznov/finance-insights/internal/store"
)

func tagsFor(tags ...string) *TagSet {
	set := newTagSet()
	for _, tag := range tags {
		set.add(tag)
	}
	return set
}

func contentItem(id string, priority int64, personaFit, signalTags []string) *store.ContentItemRow {
	return &store.ContentItemRow{
		ContentID:         id,
		Title:             id,
		PersonaFit:        personaFit,
		SignalTags:        signalTags,
		EditorialPriority: priority,
		IsActive:          true,
	}
}

func TestMatchContent_RelevanceOrdering(t *testing.T) {
	items := []*store.ContentItemRow{
		contentItem("signal-only", 1, nil, []string{TagHighUtilization, TagPayingInterest}),
		contentItem("persona-and-signal", 1, []string{"high_utilization"}, []string{TagHighUtilization}),
		contentItem("persona-only", 1, []string{"high_utilization"}, []string{TagSavingsBuilder}),
		contentItem("no-match", 1, []string{"savings_builder"}, []string{TagSavingsBuilder}),
	}
	tags := tagsFor(TagHighUtilization, TagPayingInterest)

	matches := MatchContent(items, "high_utilization", tags)

	if len(matches) != 3 {
		t.Fatalf("len(matches) = %d, want 3", len(matches))
	}
	if matches[0].Item.ContentID != "persona-and-signal" {
		t.Errorf("top match = %q, want persona-and-signal", matches[0].Item.ContentID)
	}
	if matches[0].Relevance != 1.0 {
		t.Errorf("top relevance = %f, want 1.0", matches[0].Relevance)
	}
	// Persona fit alone (0.7) beats full signal overlap alone (0.3).
	if matches[1].Item.ContentID != "persona-only" {
		t.Errorf("second match = %q, want persona-only", matches[1].Item.ContentID)
	}
}

func TestMatchContent_TieBrokenByEditorialPriority(t *testing.T) {
	items := []*store.ContentItemRow{
		contentItem("later", 5, []string{"savings_builder"}, nil),
		contentItem("sooner", 2, []string{"savings_builder"}, nil),
	}

	matches := MatchContent(items, "savings_builder", tagsFor())

	if len(matches) != 2 || matches[0].Item.ContentID != "sooner" {
		t.Errorf("matches = %v, want sooner first on lower editorial priority", matches)
	}
}

func TestMatchContent_InactiveSkipped(t *testing.T) {
	item := contentItem("inactive", 1, []string{"savings_builder"}, nil)
	item.IsActive = false

	if matches := MatchContent([]*store.ContentItemRow{item}, "savings_builder", tagsFor()); len(matches) != 0 {
		t.Errorf("len(matches) = %d, want 0", len(matches))
	}
}

func TestMatchContent_RulePathTokens(t *testing.T) {
	items := []*store.ContentItemRow{
		contentItem("c", 1, []string{"high_utilization"}, []string{TagHighUtilization, TagPayingInterest, TagOverduePayments}),
	}
	tags := tagsFor(TagHighUtilization)

	matches := MatchContent(items, "high_utilization", tags)

	if len(matches) != 1 {
		t.Fatal("expected one match")
	}
	path := matches[0].RulePath
	if len(path) != 2 {
		t.Fatalf("RulePath = %v, want persona and overlap tokens", path)
	}
	if path[0] != "content_filter:persona_fit=high_utilization" {
		t.Errorf("path[0] = %q", path[0])
	}
	if path[1] != "content_filter:signal_overlap=0.33" {
		t.Errorf("path[1] = %q", path[1])
	}
}

func offerRow(id, rules string, personaFit, required, excluded []string) *store.OfferRow {
	return &store.OfferRow{
		OfferID:              id,
		Name:                 id,
		PersonaFit:           personaFit,
		RequiredSignals:      required,
		Rules:                rules,
		ExcludedAccountTypes: excluded,
		IsActive:             true,
	}
}

func TestMatchOffers_Eligibility(t *testing.T) {
	data := guardrail.UserData{
		"max_utilization": 0.68,
		"annual_income":   50000.0,
		"is_overdue":      true,
	}
	tags := tagsFor(TagHighUtilization, TagPayingInterest)
	rules := `[{"field":"max_utilization","op":">=","value":0.5},{"field":"annual_income","op":">=","value":40000}]`

	tests := []struct {
		name  string
		offer *store.OfferRow
		want  int
	}{
		{
			name:  "rules and signals pass",
			offer: offerRow("balance-transfer", rules, []string{"high_utilization"}, []string{TagHighUtilization}, nil),
			want:  1,
		},
		{
			name: "overdue rule fails",
			offer: offerRow(
				"premium-card",
				`[{"field":"max_utilization","op":">=","value":0.5},{"field":"annual_income","op":">=","value":40000},{"field":"is_overdue","op":"==","value":false}]`,
				nil, nil, nil,
			),
			want: 0,
		},
		{
			name:  "missing required signal",
			offer: offerRow("hysa", rules, nil, []string{TagSavingsBuilder}, nil),
			want:  0,
		},
		{
			name:  "excluded account type held",
			offer: offerRow("starter-card", rules, nil, nil, []string{store.AccountTypeCreditCard}),
			want:  0,
		},
		{
			name:  "malformed rules disqualify",
			offer: offerRow("broken", `{not json`, nil, nil, nil),
			want:  0,
		},
		{
			name:  "rule field absent fails closed",
			offer: offerRow("score-gated", `[{"field":"credit_score","op":">=","value":700}]`, nil, nil, nil),
			want:  0,
		},
	}

	held := []string{store.AccountTypeChecking, store.AccountTypeCreditCard}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches := MatchOffers([]*store.OfferRow{tt.offer}, "high_utilization", tags, data, held)
			if len(matches) != tt.want {
				t.Errorf("len(matches) = %d, want %d", len(matches), tt.want)
			}
		})
	}
}

func TestMatchOffers_Ordering(t *testing.T) {
	tags := tagsFor(TagHighUtilization, TagPayingInterest, TagMinimumPayments)

	offers := []*store.OfferRow{
		offerRow("two-signals", "", nil, []string{TagHighUtilization, TagPayingInterest}, nil),
		offerRow("persona-fit", "", []string{"high_utilization"}, []string{TagHighUtilization}, nil),
		offerRow("three-signals", "", nil, []string{TagHighUtilization, TagPayingInterest, TagMinimumPayments}, nil),
	}

	matches := MatchOffers(offers, "high_utilization", tags, guardrail.UserData{}, nil)

	if len(matches) != 3 {
		t.Fatalf("len(matches) = %d, want 3", len(matches))
	}
	if matches[0].Offer.OfferID != "persona-fit" {
		t.Errorf("first = %q, want persona-fit offers ahead of signal counts", matches[0].Offer.OfferID)
	}
	if matches[1].Offer.OfferID != "three-signals" || matches[2].Offer.OfferID != "two-signals" {
		t.Errorf("tail order = %q, %q, want three-signals then two-signals", matches[1].Offer.OfferID, matches[2].Offer.OfferID)
	}
}

func TestHeldAccountTypes(t *testing.T) {
	accounts := []*store.AccountRow{
		{AccountType: store.AccountTypeChecking, Subtype: "standard"},
		{AccountType: store.AccountTypeChecking, Subtype: "standard"},
		{AccountType: store.AccountTypeCreditCard},
	}

	types := HeldAccountTypes(accounts)

	want := map[string]bool{store.AccountTypeChecking: true, "standard": true, store.AccountTypeCreditCard: true}
	if len(types) != len(want) {
		t.Fatalf("types = %v, want %d distinct entries", types, len(want))
	}
	for _, typ := range types {
		if !want[typ] {
			t.Errorf("unexpected type %q", typ)
		}
	}
}
