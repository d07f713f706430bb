package store

import (
	"context"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
)

// Account types recognized by the signal extractors.
const (
	AccountTypeChecking    = "checking"
	AccountTypeSavings     = "savings"
	AccountTypeMoneyMarket = "money_market"
	AccountTypeHSA         = "hsa"
	AccountTypeCreditCard  = "credit_card"
)

// Recommendation lifecycle statuses.
const (
	RecStatusActive    = "active"
	RecStatusDismissed = "dismissed"
	RecStatusCompleted = "completed"
	RecStatusSaved     = "saved"
	RecStatusHidden    = "hidden"
)

// Agentic review statuses.
const (
	ReviewApproved         = "approved"
	ReviewFlagged          = "flagged"
	ReviewOperatorApproved = "operator_approved"
)

// Recommendation types.
const (
	RecTypeEducation = "education"
	RecTypeOffer     = "offer"
)

// AccountReader provides read access to a user's financial records.
type AccountReader interface {
	// ListAccountsByUser retrieves all accounts belonging to a user.
	ListAccountsByUser(ctx context.Context, userID string) ([]*AccountRow, error)

	// ListTransactionsByAccount retrieves transactions for an account within
	// the inclusive date range.
	ListTransactionsByAccount(ctx context.Context, accountID string, start, end civil.Date) ([]*TransactionRow, error)

	// FindLiabilityByAccount retrieves the liability record linked to a credit
	// card account, or nil when none exists.
	FindLiabilityByAccount(ctx context.Context, accountID string) (*LiabilityRow, error)
}

// CatalogReader provides read access to the content and offer catalogs.
type CatalogReader interface {
	// ListContentItems retrieves all active content items.
	ListContentItems(ctx context.Context) ([]*ContentItemRow, error)

	// ListOffers retrieves all active offers.
	ListOffers(ctx context.Context) ([]*OfferRow, error)
}

// SignalStore persists derived behavioral signals.
type SignalStore interface {
	// UpsertSignal replaces the signal for (user, type, window) with the given row.
	UpsertSignal(ctx context.Context, row *SignalRow) error

	// ListSignalsByUser retrieves all signals for a user and window.
	ListSignalsByUser(ctx context.Context, userID string, windowDays int) ([]*SignalRow, error)
}

// PersonaStore persists persona score assignments.
type PersonaStore interface {
	// ReplacePersonaScores deletes prior scores for (user, window) and inserts
	// the given rows.
	ReplacePersonaScores(ctx context.Context, userID string, windowDays int, rows []*PersonaScoreRow) error

	// ListPersonaScores retrieves persona scores for a user and window,
	// ordered by rank.
	ListPersonaScores(ctx context.Context, userID string, windowDays int) ([]*PersonaScoreRow, error)
}

// RecommendationStore persists recommendations and their decision traces.
type RecommendationStore interface {
	// ReplaceRecommendations supersedes prior recommendations for
	// (user, window) and inserts the given rows.
	ReplaceRecommendations(ctx context.Context, userID string, windowDays int, rows []*RecommendationRow) error

	// ListRecommendationsByUser retrieves all recommendations for a user.
	ListRecommendationsByUser(ctx context.Context, userID string) ([]*RecommendationRow, error)

	// ListFlaggedRecommendations retrieves recommendations pending operator review.
	ListFlaggedRecommendations(ctx context.Context) ([]*RecommendationRow, error)

	// UpdateRecommendationStatus sets the lifecycle status of a recommendation.
	UpdateRecommendationStatus(ctx context.Context, recommendationID, status string) error

	// UpdateReviewStatus sets the agentic review status and reason.
	UpdateReviewStatus(ctx context.Context, recommendationID, reviewStatus, reason string) error

	// SetExternalReference records an external tracking id (e.g. a review
	// board page) for a recommendation.
	SetExternalReference(ctx context.Context, recommendationID, ref string) error

	// HideActiveRecommendations transitions all of a user's active
	// recommendations to hidden and returns how many were affected.
	HideActiveRecommendations(ctx context.Context, userID string) (int, error)
}

// ConsentStore reads and writes the per-user data consent flag.
type ConsentStore interface {
	// GetConsent reports whether the user has granted data consent.
	GetConsent(ctx context.Context, userID string) (bool, error)

	// SetConsent records the user's consent flag.
	SetConsent(ctx context.Context, userID string, granted bool) error
}

// AccountRow represents an account record in BigQuery.
type AccountRow struct {
	AccountID string `bigquery:"account_id"`
	UserID    string `bigquery:"user_id"`

	AccountType string `bigquery:"account_type"`
	Subtype     string `bigquery:"subtype"`
	Name        string `bigquery:"name"`

	CurrentBalance   float64 `bigquery:"current_balance"`
	AvailableBalance float64 `bigquery:"available_balance"`

	// CreditLimit is only meaningful for credit_card accounts. Utilization is
	// defined only when the limit is positive.
	CreditLimit float64 `bigquery:"credit_limit"`

	CreatedTS time.Time `bigquery:"created_ts"`
}

// Utilization returns balance/limit for credit card accounts with a positive
// limit, and false otherwise.
func (a *AccountRow) Utilization() (float64, bool) {
	if a.AccountType != AccountTypeCreditCard || a.CreditLimit <= 0 {
		return 0, false
	}
	return a.CurrentBalance / a.CreditLimit, true
}

// TransactionRow represents a transaction record in BigQuery.
// Transactions are immutable once recorded.
type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"`

	AccountID string `bigquery:"account_id"`
	UserID    string `bigquery:"user_id"`

	Date civil.Date `bigquery:"transaction_date"`

	// Amount is signed: negative values are outflows.
	Amount float64 `bigquery:"amount"`

	MerchantName string `bigquery:"merchant_name"`

	CategoryPrimary  string `bigquery:"category_primary"`
	CategoryDetailed string `bigquery:"category_detailed"`

	IsPending bool `bigquery:"is_pending"`

	CreatedTS time.Time `bigquery:"created_ts"`
}

// LiabilityRow represents a credit-card liability record in BigQuery.
type LiabilityRow struct {
	LiabilityID string `bigquery:"liability_id"`
	AccountID   string `bigquery:"account_id"`

	MinimumPayment       float64 `bigquery:"minimum_payment"`
	LastPaymentAmount    float64 `bigquery:"last_payment_amount"`
	IsOverdue            bool    `bigquery:"is_overdue"`
	LastStatementBalance float64 `bigquery:"last_statement_balance"`
}

// SignalRow represents a derived signal record in BigQuery. The payload is a
// versioned JSON encoding of the typed signal struct for the signal type.
type SignalRow struct {
	SignalID string `bigquery:"signal_id"`
	UserID   string `bigquery:"user_id"`

	SignalType string `bigquery:"signal_type"`
	WindowDays int64  `bigquery:"window_days"`

	Payload string `bigquery:"payload"`

	ComputedTS time.Time `bigquery:"computed_ts"`
}

// PersonaScoreRow represents a persona score record in BigQuery.
type PersonaScoreRow struct {
	UserID      string `bigquery:"user_id"`
	PersonaType string `bigquery:"persona_type"`
	WindowDays  int64  `bigquery:"window_days"`

	Score float64 `bigquery:"score"`

	// Rank is 1 for the primary persona and 2 for the secondary.
	Rank int64 `bigquery:"rank"`

	CriteriaMet []string `bigquery:"criteria_met"`

	ComputedTS time.Time `bigquery:"computed_ts"`
}

// ContentItemRow represents a content catalog entry in BigQuery. Read-only
// from the pipeline's perspective.
type ContentItemRow struct {
	ContentID string `bigquery:"content_id"`
	Title     string `bigquery:"title"`

	TopicTags  []string `bigquery:"topic_tags"`
	PersonaFit []string `bigquery:"persona_fit"`
	SignalTags []string `bigquery:"signal_tags"`

	// EditorialPriority breaks relevance ties; lower is more important.
	EditorialPriority int64 `bigquery:"editorial_priority"`

	IsActive bool `bigquery:"is_active"`
}

// OfferRow represents an offer catalog entry in BigQuery. Rules is a JSON
// encoding of the offer's typed eligibility rules.
type OfferRow struct {
	OfferID string `bigquery:"offer_id"`
	Name    string `bigquery:"name"`

	PersonaFit      []string `bigquery:"persona_fit"`
	RequiredSignals []string `bigquery:"required_signals"`

	Rules string `bigquery:"rules"`

	ExcludedAccountTypes []string `bigquery:"excluded_account_types"`

	Benefit string `bigquery:"benefit"`

	IsActive bool `bigquery:"is_active"`
}

// RecommendationRow represents a recommendation record in BigQuery. The
// decision trace is a frozen JSON snapshot and is never regenerated after
// creation.
type RecommendationRow struct {
	RecommendationID string `bigquery:"recommendation_id"`
	UserID           string `bigquery:"user_id"`

	RecType   string              `bigquery:"rec_type"`
	ContentID bigquery.NullString `bigquery:"content_id"`
	OfferID   bigquery.NullString `bigquery:"offer_id"`

	Rationale   string `bigquery:"rationale"`
	PersonaType string `bigquery:"persona_type"`
	WindowDays  int64  `bigquery:"window_days"`

	SignalsUsed []string `bigquery:"signals_used"`

	DecisionTrace string `bigquery:"decision_trace"`

	Status             string              `bigquery:"status"`
	AgenticReviewState string              `bigquery:"agentic_review_status"`
	ReviewReason       bigquery.NullString `bigquery:"review_reason"`

	ExternalReference bigquery.NullString `bigquery:"external_reference"`

	CreatedTS time.Time              `bigquery:"created_ts"`
	UpdatedTS bigquery.NullTimestamp `bigquery:"updated_ts"`
}

// ConsentRow represents a user's data consent record in BigQuery.
type ConsentRow struct {
	UserID      string    `bigquery:"user_id"`
	DataConsent bool      `bigquery:"data_consent"`
	UpdatedTS   time.Time `bigquery:"updated_ts"`
}
