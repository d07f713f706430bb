package guardrail

import (
	"context"
	"fmt"

	"github.com/dvloznov/finance-insights/internal/logger"
	"github.com/dvloznov/finance-insights/internal/store"
)

// ErrNoConsent is returned when a data-bearing operation runs without the
// user's personalization consent.
var ErrNoConsent = fmt.Errorf("user has not granted personalization consent")

// ConsentGate enforces the consent flag in front of data-bearing operations
// and applies the revoke side effect.
type ConsentGate struct {
	consents        store.ConsentStore
	recommendations store.RecommendationStore
}

// NewConsentGate creates a gate over the given stores.
func NewConsentGate(consents store.ConsentStore, recommendations store.RecommendationStore) *ConsentGate {
	return &ConsentGate{consents: consents, recommendations: recommendations}
}

// Check returns ErrNoConsent when the user has no granted consent. A missing
// consent record counts as no consent.
func (g *ConsentGate) Check(ctx context.Context, userID string) error {
	granted, err := g.consents.GetConsent(ctx, userID)
	if err != nil {
		return fmt.Errorf("ConsentGate.Check: %w", err)
	}
	if !granted {
		return ErrNoConsent
	}
	return nil
}

// Grant records the user's consent.
func (g *ConsentGate) Grant(ctx context.Context, userID string) error {
	if err := g.consents.SetConsent(ctx, userID, true); err != nil {
		return fmt.Errorf("ConsentGate.Grant: %w", err)
	}
	return nil
}

// Revoke withdraws consent and synchronously hides every active
// recommendation the user holds. Hiding is part of the revoke operation
// itself, not a deferred cleanup.
func (g *ConsentGate) Revoke(ctx context.Context, userID string) error {
	log := logger.FromContext(ctx)

	if err := g.consents.SetConsent(ctx, userID, false); err != nil {
		return fmt.Errorf("ConsentGate.Revoke: set consent: %w", err)
	}

	hidden, err := g.recommendations.HideActiveRecommendations(ctx, userID)
	if err != nil {
		return fmt.Errorf("ConsentGate.Revoke: hide recommendations: %w", err)
	}

	log.Info().
		Str("user_id", userID).
		Int("hidden_recommendations", hidden).
		Msg("consent revoked")
	return nil
}
