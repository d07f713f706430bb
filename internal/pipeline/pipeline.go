package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/finance-insights/internal/guardrail"
	"github.com/dvloznov/finance-insights/internal/matcher"
	"github.com/dvloznov/finance-insights/internal/persona"
	"github.com/dvloznov/finance-insights/internal/signals"
	"github.com/dvloznov/finance-insights/internal/store"
)

// PipelineStep represents a single step in the insights pipeline.
type PipelineStep interface {
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps. Each step
// reads the fields earlier steps populated and fills its own.
type PipelineState struct {
	UserID     string
	WindowDays int
	AsOf       time.Time

	Input      *signals.Input
	Snapshot   *signals.Snapshot
	Assignment *persona.Assignment

	Tags     *matcher.TagSet
	UserData guardrail.UserData

	ContentMatches []*matcher.ContentMatch
	OfferMatches   []*matcher.OfferMatch

	Recommendations []*store.RecommendationRow
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially, stopping at the first
// failure.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}
