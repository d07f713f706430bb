package bigquery

import (
	"context"
	"fmt"

	"google.golang.org/api/iterator"

	"github.com/dvloznov/finance-insights/internal/store"
)

var _ store.CatalogReader = (*Repository)(nil)

// ListContentItems retrieves all active content catalog entries.
func (r *Repository) ListContentItems(ctx context.Context) ([]*store.ContentItemRow, error) {
	query := fmt.Sprintf(`
		SELECT
			content_id,
			title,
			topic_tags,
			persona_fit,
			signal_tags,
			editorial_priority,
			is_active
		FROM %s
		WHERE is_active = TRUE
		ORDER BY editorial_priority
	`, r.table("content_items"))

	q := r.client.Query(query)

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListContentItems: reading query: %w", err)
	}

	var items []*store.ContentItemRow
	for {
		var row store.ContentItemRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListContentItems: iterating: %w", err)
		}
		items = append(items, &row)
	}

	return items, nil
}

// ListOffers retrieves all active offer catalog entries.
func (r *Repository) ListOffers(ctx context.Context) ([]*store.OfferRow, error) {
	query := fmt.Sprintf(`
		SELECT
			offer_id,
			name,
			persona_fit,
			required_signals,
			rules,
			excluded_account_types,
			benefit,
			is_active
		FROM %s
		WHERE is_active = TRUE
		ORDER BY offer_id
	`, r.table("offers"))

	q := r.client.Query(query)

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListOffers: reading query: %w", err)
	}

	var offers []*store.OfferRow
	for {
		var row store.OfferRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListOffers: iterating: %w", err)
		}
		offers = append(offers, &row)
	}

	return offers, nil
}
