package reviewsync

import (
	"context"
	"fmt"
	"testing"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/jomei/notionapi"

	"github.com/dvloznov/finance-insights/internal/store"
)

type mockNotion struct {
	createPageFunc    func(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error)
	updatePageFunc    func(ctx context.Context, pageID string, properties notionapi.Properties) (*notionapi.Page, error)
	queryDatabaseFunc func(ctx context.Context, databaseID string, filter *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)

	createdPages []notionapi.Properties
}

var _ NotionService = (*mockNotion)(nil)

func (m *mockNotion) CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
	m.createdPages = append(m.createdPages, properties)
	if m.createPageFunc != nil {
		return m.createPageFunc(ctx, databaseID, properties)
	}
	return &notionapi.Page{ID: notionapi.ObjectID(fmt.Sprintf("page-%d", len(m.createdPages)))}, nil
}

func (m *mockNotion) UpdatePage(ctx context.Context, pageID string, properties notionapi.Properties) (*notionapi.Page, error) {
	if m.updatePageFunc != nil {
		return m.updatePageFunc(ctx, pageID, properties)
	}
	return &notionapi.Page{ID: notionapi.ObjectID(pageID)}, nil
}

func (m *mockNotion) QueryDatabase(ctx context.Context, databaseID string, filter *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	if m.queryDatabaseFunc != nil {
		return m.queryDatabaseFunc(ctx, databaseID, filter)
	}
	return &notionapi.DatabaseQueryResponse{}, nil
}

type mockRecStore struct {
	flagged []*store.RecommendationRow

	externalRefs map[string]string
	reviewStatus map[string]string
	recStatus    map[string]string
}

var _ store.RecommendationStore = (*mockRecStore)(nil)

func newMockRecStore(flagged ...*store.RecommendationRow) *mockRecStore {
	return &mockRecStore{
		flagged:      flagged,
		externalRefs: make(map[string]string),
		reviewStatus: make(map[string]string),
		recStatus:    make(map[string]string),
	}
}

func (m *mockRecStore) ReplaceRecommendations(ctx context.Context, userID string, windowDays int, rows []*store.RecommendationRow) error {
	return nil
}

func (m *mockRecStore) ListRecommendationsByUser(ctx context.Context, userID string) ([]*store.RecommendationRow, error) {
	return nil, nil
}

func (m *mockRecStore) ListFlaggedRecommendations(ctx context.Context) ([]*store.RecommendationRow, error) {
	return m.flagged, nil
}

func (m *mockRecStore) UpdateRecommendationStatus(ctx context.Context, recommendationID, status string) error {
	m.recStatus[recommendationID] = status
	return nil
}

func (m *mockRecStore) UpdateReviewStatus(ctx context.Context, recommendationID, reviewStatus, reason string) error {
	m.reviewStatus[recommendationID] = reviewStatus
	return nil
}

func (m *mockRecStore) SetExternalReference(ctx context.Context, recommendationID, ref string) error {
	m.externalRefs[recommendationID] = ref
	return nil
}

func (m *mockRecStore) HideActiveRecommendations(ctx context.Context, userID string) (int, error) {
	return 0, nil
}

func flaggedRec(id string) *store.RecommendationRow {
	return &store.RecommendationRow{
		RecommendationID:   id,
		UserID:             "user-1",
		RecType:            store.RecTypeEducation,
		Rationale:          "Your card balance is worth a look.",
		PersonaType:        "high_utilization",
		AgenticReviewState: store.ReviewFlagged,
		ReviewReason:       bigquery.NullString{StringVal: "predictive phrasing", Valid: true},
		CreatedTS:          time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func boardPage(recID, decision, note string) notionapi.Page {
	props := notionapi.Properties{
		"Recommendation ID": &notionapi.TitleProperty{
			Title: []notionapi.RichText{{PlainText: recID}},
		},
	}
	if decision != "" {
		props["Decision"] = &notionapi.SelectProperty{
			Select: notionapi.Option{Name: decision},
		}
	}
	if note != "" {
		props["Decision Note"] = &notionapi.RichTextProperty{
			RichText: []notionapi.RichText{{PlainText: note}},
		}
	}
	return notionapi.Page{ID: "board-page", Properties: props}
}

func TestPushFlaggedCreatesPagesAndRecordsRefs(t *testing.T) {
	repo := newMockRecStore(flaggedRec("rec-1"), flaggedRec("rec-2"))
	notion := &mockNotion{}

	result, err := PushFlagged(context.Background(), repo, notion, "db-1", false)
	if err != nil {
		t.Fatalf("PushFlagged returned error: %v", err)
	}

	if result.Pushed != 2 || result.Skipped != 0 {
		t.Errorf("got pushed=%d skipped=%d, want 2 pushed", result.Pushed, result.Skipped)
	}
	if len(notion.createdPages) != 2 {
		t.Fatalf("created %d pages, want 2", len(notion.createdPages))
	}
	if repo.externalRefs["rec-1"] != "notion:page-1" {
		t.Errorf("external ref = %q, want notion:page-1", repo.externalRefs["rec-1"])
	}
}

func TestPushFlaggedSkipsAlreadyPushed(t *testing.T) {
	rec := flaggedRec("rec-1")
	rec.ExternalReference = bigquery.NullString{StringVal: "notion:existing-page", Valid: true}
	repo := newMockRecStore(rec)
	notion := &mockNotion{}

	result, err := PushFlagged(context.Background(), repo, notion, "db-1", false)
	if err != nil {
		t.Fatalf("PushFlagged returned error: %v", err)
	}

	if result.Skipped != 1 || result.Pushed != 0 {
		t.Errorf("got pushed=%d skipped=%d, want 1 skipped", result.Pushed, result.Skipped)
	}
	if len(notion.createdPages) != 0 {
		t.Errorf("created %d pages, want none", len(notion.createdPages))
	}
}

func TestPushFlaggedDryRun(t *testing.T) {
	repo := newMockRecStore(flaggedRec("rec-1"))
	notion := &mockNotion{}

	result, err := PushFlagged(context.Background(), repo, notion, "db-1", true)
	if err != nil {
		t.Fatalf("PushFlagged returned error: %v", err)
	}

	if result.Pushed != 1 {
		t.Errorf("pushed = %d, want 1", result.Pushed)
	}
	if len(notion.createdPages) != 0 {
		t.Errorf("dry run created %d pages, want none", len(notion.createdPages))
	}
	if len(repo.externalRefs) != 0 {
		t.Errorf("dry run recorded %d refs, want none", len(repo.externalRefs))
	}
}

func TestPullDecisionsAppliesOutcomes(t *testing.T) {
	repo := newMockRecStore()
	notion := &mockNotion{
		queryDatabaseFunc: func(ctx context.Context, databaseID string, filter *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
			return &notionapi.DatabaseQueryResponse{
				Results: []notionapi.Page{
					boardPage("rec-1", DecisionApproved, "reads fine"),
					boardPage("rec-2", DecisionRejected, ""),
					boardPage("rec-3", DecisionPending, ""),
				},
			}, nil
		},
	}

	result, err := PullDecisions(context.Background(), repo, notion, "db-1", false)
	if err != nil {
		t.Fatalf("PullDecisions returned error: %v", err)
	}

	if result.Approved != 1 || result.Rejected != 1 || result.Pending != 1 {
		t.Errorf("got approved=%d rejected=%d pending=%d, want 1 each",
			result.Approved, result.Rejected, result.Pending)
	}
	if repo.reviewStatus["rec-1"] != store.ReviewOperatorApproved {
		t.Errorf("rec-1 review status = %q, want operator_approved", repo.reviewStatus["rec-1"])
	}
	if repo.recStatus["rec-2"] != store.RecStatusDismissed {
		t.Errorf("rec-2 status = %q, want dismissed", repo.recStatus["rec-2"])
	}
	if _, touched := repo.reviewStatus["rec-3"]; touched {
		t.Error("pending page must not change review status")
	}
}

func TestPullDecisionsPaginates(t *testing.T) {
	repo := newMockRecStore()
	calls := 0
	notion := &mockNotion{
		queryDatabaseFunc: func(ctx context.Context, databaseID string, filter *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
			calls++
			if calls == 1 {
				return &notionapi.DatabaseQueryResponse{
					Results:    []notionapi.Page{boardPage("rec-1", DecisionApproved, "")},
					HasMore:    true,
					NextCursor: "cursor-2",
				}, nil
			}
			if filter.StartCursor != "cursor-2" {
				t.Errorf("second query cursor = %q, want cursor-2", filter.StartCursor)
			}
			return &notionapi.DatabaseQueryResponse{
				Results: []notionapi.Page{boardPage("rec-2", DecisionApproved, "")},
			}, nil
		},
	}

	result, err := PullDecisions(context.Background(), repo, notion, "db-1", false)
	if err != nil {
		t.Fatalf("PullDecisions returned error: %v", err)
	}

	if result.Pages != 2 || result.Approved != 2 {
		t.Errorf("got pages=%d approved=%d, want 2 and 2", result.Pages, result.Approved)
	}
	if calls != 2 {
		t.Errorf("queried %d times, want 2", calls)
	}
}

func TestPageRefRoundTrip(t *testing.T) {
	rec := &store.RecommendationRow{
		ExternalReference: bigquery.NullString{StringVal: FormatPageRef("abc-123"), Valid: true},
	}
	if got := GetNotionPageID(rec); got != "abc-123" {
		t.Errorf("GetNotionPageID = %q, want abc-123", got)
	}

	if got := GetNotionPageID(&store.RecommendationRow{}); got != "" {
		t.Errorf("GetNotionPageID on empty ref = %q, want empty", got)
	}
}

func TestRecommendationToNotionProperties(t *testing.T) {
	props := RecommendationToNotionProperties(flaggedRec("rec-1"))

	title, ok := props["Recommendation ID"].(notionapi.TitleProperty)
	if !ok || title.Title[0].Text.Content != "rec-1" {
		t.Errorf("unexpected title property %+v", props["Recommendation ID"])
	}
	decision, ok := props["Decision"].(notionapi.SelectProperty)
	if !ok || decision.Select.Name != DecisionPending {
		t.Errorf("new board page decision = %+v, want Pending", props["Decision"])
	}
	if _, ok := props["Flag Reason"]; !ok {
		t.Error("expected the flag reason to be carried onto the board")
	}
}
