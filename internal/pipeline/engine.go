package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/finance-insights/internal/guardrail"
	"github.com/dvloznov/finance-insights/internal/logger"
	"github.com/dvloznov/finance-insights/internal/signals"
	"github.com/dvloznov/finance-insights/internal/store"
)

// Deps bundles the collaborators the insights pipeline needs.
type Deps struct {
	Accounts        store.AccountReader
	Catalog         store.CatalogReader
	Signals         store.SignalStore
	Personas        store.PersonaStore
	Recommendations store.RecommendationStore
	Consents        store.ConsentStore

	// Reviewer may be nil; the agentic reviewer then auto-approves text that
	// clears the tone blocklist.
	Reviewer guardrail.Reviewer

	// ReviewTimeout bounds one external review call. Zero disables the
	// deadline.
	ReviewTimeout time.Duration
}

// Engine runs the full per-user insights computation.
type Engine struct {
	deps     Deps
	pipeline *Pipeline
}

// NewEngine wires the standard eleven-step pipeline from the given
// dependencies.
func NewEngine(deps Deps) *Engine {
	gate := guardrail.NewConsentGate(deps.Consents, deps.Recommendations)
	reviewer := guardrail.NewAgenticReviewer(deps.Reviewer, deps.ReviewTimeout)

	return &Engine{
		deps: deps,
		pipeline: NewPipeline(
			&CheckConsentStep{Gate: gate},
			&LoadRecordsStep{Extractor: signals.NewExtractor(deps.Accounts)},
			&ExtractSignalsStep{},
			&PersistSignalsStep{Signals: deps.Signals},
			&ScorePersonasStep{},
			&PersistPersonasStep{Personas: deps.Personas},
			&DeriveTagsStep{},
			&MatchContentStep{Catalog: deps.Catalog},
			&MatchOffersStep{Catalog: deps.Catalog},
			&BuildRecommendationsStep{Reviewer: reviewer},
			&PersistRecommendationsStep{Recommendations: deps.Recommendations},
		),
	}
}

// Run recomputes signals, personas and recommendations for one user and
// window. Prior rows for the (user, window) scope are superseded, never
// merged.
func (e *Engine) Run(ctx context.Context, userID string, windowDays int, asOf time.Time) (*PipelineState, error) {
	log := logger.FromContext(ctx)

	if !signals.SupportedWindow(windowDays) {
		return nil, fmt.Errorf("Run: unsupported analysis window %d days, want %d or %d",
			windowDays, signals.Window30, signals.Window180)
	}

	state := &PipelineState{UserID: userID, WindowDays: windowDays, AsOf: asOf}
	if err := e.pipeline.Execute(ctx, state); err != nil {
		return nil, err
	}

	log.Info().
		Str("user_id", userID).
		Int("window_days", windowDays).
		Str("primary_persona", state.Assignment.Primary.PersonaType).
		Int("recommendations", len(state.Recommendations)).
		Msg("insights recompute finished")

	return state, nil
}
