package guardrail

import (
	"context"
	"errors"
	"testing"

	"github.com/dvloznov/finance-insights/internal/store"
)

type mockConsentStore struct {
	getConsentFunc func(ctx context.Context, userID string) (bool, error)
	setConsentFunc func(ctx context.Context, userID string, granted bool) error
}

var _ store.ConsentStore = (*mockConsentStore)(nil)

func (m *mockConsentStore) GetConsent(ctx context.Context, userID string) (bool, error) {
	return m.getConsentFunc(ctx, userID)
}

func (m *mockConsentStore) SetConsent(ctx context.Context, userID string, granted bool) error {
	return m.setConsentFunc(ctx, userID, granted)
}

type mockRecommendationStore struct {
	hideActiveFunc func(ctx context.Context, userID string) (int, error)
}

var _ store.RecommendationStore = (*mockRecommendationStore)(nil)

func (m *mockRecommendationStore) ReplaceRecommendations(ctx context.Context, userID string, windowDays int, rows []*store.RecommendationRow) error {
	return nil
}

func (m *mockRecommendationStore) ListRecommendationsByUser(ctx context.Context, userID string) ([]*store.RecommendationRow, error) {
	return nil, nil
}

func (m *mockRecommendationStore) ListFlaggedRecommendations(ctx context.Context) ([]*store.RecommendationRow, error) {
	return nil, nil
}

func (m *mockRecommendationStore) UpdateRecommendationStatus(ctx context.Context, recommendationID, status string) error {
	return nil
}

func (m *mockRecommendationStore) UpdateReviewStatus(ctx context.Context, recommendationID, reviewStatus, reason string) error {
	return nil
}

func (m *mockRecommendationStore) SetExternalReference(ctx context.Context, recommendationID, ref string) error {
	return nil
}

func (m *mockRecommendationStore) HideActiveRecommendations(ctx context.Context, userID string) (int, error) {
	return m.hideActiveFunc(ctx, userID)
}

func TestConsentGateCheck(t *testing.T) {
	tests := []struct {
		name    string
		granted bool
		err     error
		wantErr error
	}{
		{"granted", true, nil, nil},
		{"not granted", false, nil, ErrNoConsent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := NewConsentGate(&mockConsentStore{
				getConsentFunc: func(ctx context.Context, userID string) (bool, error) {
					return tt.granted, tt.err
				},
			}, &mockRecommendationStore{})

			err := gate.Check(context.Background(), "user-1")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Check error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestConsentGateCheck_StoreError(t *testing.T) {
	wantErr := errors.New("read failed")
	gate := NewConsentGate(&mockConsentStore{
		getConsentFunc: func(ctx context.Context, userID string) (bool, error) {
			return false, wantErr
		},
	}, &mockRecommendationStore{})

	if err := gate.Check(context.Background(), "user-1"); !errors.Is(err, wantErr) {
		t.Errorf("Check error = %v, want wrapped %v", err, wantErr)
	}
}

func TestConsentGateRevoke_HidesActiveRecommendations(t *testing.T) {
	var setGranted *bool
	var hiddenFor string

	gate := NewConsentGate(
		&mockConsentStore{
			setConsentFunc: func(ctx context.Context, userID string, granted bool) error {
				setGranted = &granted
				return nil
			},
		},
		&mockRecommendationStore{
			hideActiveFunc: func(ctx context.Context, userID string) (int, error) {
				hiddenFor = userID
				return 3, nil
			},
		},
	)

	if err := gate.Revoke(context.Background(), "user-1"); err != nil {
		t.Fatalf("Revoke returned error: %v", err)
	}
	if setGranted == nil || *setGranted {
		t.Error("consent flag was not set to false")
	}
	if hiddenFor != "user-1" {
		t.Errorf("recommendations hidden for %q, want user-1", hiddenFor)
	}
}

func TestConsentGateRevoke_HideFailureSurfaces(t *testing.T) {
	wantErr := errors.New("update failed")
	gate := NewConsentGate(
		&mockConsentStore{
			setConsentFunc: func(ctx context.Context, userID string, granted bool) error { return nil },
		},
		&mockRecommendationStore{
			hideActiveFunc: func(ctx context.Context, userID string) (int, error) { return 0, wantErr },
		},
	)

	if err := gate.Revoke(context.Background(), "user-1"); !errors.Is(err, wantErr) {
		t.Errorf("Revoke error = %v, want wrapped %v", err, wantErr)
	}
}

func TestConsentGateGrant(t *testing.T) {
	var granted bool
	gate := NewConsentGate(&mockConsentStore{
		setConsentFunc: func(ctx context.Context, userID string, g bool) error {
			granted = g
			return nil
		},
	}, &mockRecommendationStore{})

	if err := gate.Grant(context.Background(), "user-1"); err != nil {
		t.Fatalf("Grant returned error: %v", err)
	}
	if !granted {
		t.Error("consent flag was not set to true")
	}
}
