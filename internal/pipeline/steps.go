package pipeline

import (
	"context"
	"fmt"

	"github.com/dvloznov/finance-insights/internal/guardrail"
	"github.com/dvloznov/finance-insights/internal/matcher"
	"github.com/dvloznov/finance-insights/internal/persona"
	"github.com/dvloznov/finance-insights/internal/signals"
	"github.com/dvloznov/finance-insights/internal/store"
)

// Step 1: CheckConsentStep blocks the run for users without consent.
type CheckConsentStep struct {
	Gate *guardrail.ConsentGate
}

func (s *CheckConsentStep) Execute(ctx context.Context, state *PipelineState) error {
	return s.Gate.Check(ctx, state.UserID)
}

// Step 2: LoadRecordsStep fetches the user's accounts, transactions and
// liabilities for the window.
type LoadRecordsStep struct {
	Extractor *signals.Extractor
}

func (s *LoadRecordsStep) Execute(ctx context.Context, state *PipelineState) error {
	in, err := s.Extractor.Load(ctx, state.UserID, state.WindowDays, state.AsOf)
	if err != nil {
		return err
	}
	state.Input = in
	return nil
}

// Step 3: ExtractSignalsStep runs the four analyzers over the loaded records.
type ExtractSignalsStep struct{}

func (s *ExtractSignalsStep) Execute(ctx context.Context, state *PipelineState) error {
	state.Snapshot = signals.ExtractFromInput(state.Input)
	return nil
}

// Step 4: PersistSignalsStep upserts the computed signal rows.
type PersistSignalsStep struct {
	Signals store.SignalStore
}

func (s *PersistSignalsStep) Execute(ctx context.Context, state *PipelineState) error {
	rows, err := state.Snapshot.Rows(state.UserID, state.WindowDays, state.AsOf)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if err := s.Signals.UpsertSignal(ctx, row); err != nil {
			return fmt.Errorf("PersistSignalsStep: upsert %s: %w", row.SignalType, err)
		}
	}
	return nil
}

// Step 5: ScorePersonasStep assigns the primary and secondary personas. Max
// utilization is derived from live account balances, not the stored signal.
type ScorePersonasStep struct{}

func (s *ScorePersonasStep) Execute(ctx context.Context, state *PipelineState) error {
	maxUtilization := persona.MaxUtilizationFromAccounts(state.Input.Accounts)
	state.Assignment = persona.Compute(state.Snapshot, maxUtilization)
	return nil
}

// Step 6: PersistPersonasStep replaces the persona scores for the window.
type PersistPersonasStep struct {
	Personas store.PersonaStore
}

func (s *PersistPersonasStep) Execute(ctx context.Context, state *PipelineState) error {
	rows := state.Assignment.Rows(state.UserID, state.WindowDays, state.AsOf)
	if err := s.Personas.ReplacePersonaScores(ctx, state.UserID, state.WindowDays, rows); err != nil {
		return fmt.Errorf("PersistPersonasStep: %w", err)
	}
	return nil
}

// Step 7: DeriveTagsStep maps the snapshot onto the catalog tag vocabulary
// and builds the eligibility user-data record.
type DeriveTagsStep struct{}

func (s *DeriveTagsStep) Execute(ctx context.Context, state *PipelineState) error {
	state.Tags = matcher.DeriveTags(state.Snapshot)
	state.UserData = matcher.BuildUserData(state.Snapshot)
	return nil
}

// Step 8: MatchContentStep ranks the content catalog for the user.
type MatchContentStep struct {
	Catalog store.CatalogReader
}

func (s *MatchContentStep) Execute(ctx context.Context, state *PipelineState) error {
	items, err := s.Catalog.ListContentItems(ctx)
	if err != nil {
		return fmt.Errorf("MatchContentStep: list content: %w", err)
	}
	state.ContentMatches = matcher.MatchContent(items, state.Assignment.Primary.PersonaType, state.Tags)
	return nil
}

// Step 9: MatchOffersStep filters the offer catalog down to eligible offers.
type MatchOffersStep struct {
	Catalog store.CatalogReader
}

func (s *MatchOffersStep) Execute(ctx context.Context, state *PipelineState) error {
	offers, err := s.Catalog.ListOffers(ctx)
	if err != nil {
		return fmt.Errorf("MatchOffersStep: list offers: %w", err)
	}
	held := matcher.HeldAccountTypes(state.Input.Accounts)
	state.OfferMatches = matcher.MatchOffers(offers, state.Assignment.Primary.PersonaType, state.Tags, state.UserData, held)
	return nil
}

// Step 11: PersistRecommendationsStep supersedes the prior recommendations
// for the window with the new batch.
type PersistRecommendationsStep struct {
	Recommendations store.RecommendationStore
}

func (s *PersistRecommendationsStep) Execute(ctx context.Context, state *PipelineState) error {
	if err := s.Recommendations.ReplaceRecommendations(ctx, state.UserID, state.WindowDays, state.Recommendations); err != nil {
		return fmt.Errorf("PersistRecommendationsStep: %w", err)
	}
	return nil
}
