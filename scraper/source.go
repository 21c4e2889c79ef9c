// Package scraper holds the data-source collaborators. Each source returns
// either structured listing records or flat price-per-area samples; the
// analytics never see raw HTML or JSON.
package scraper

import (
	"context"

	"realestate-market/models"
)

// ListingSource fetches structured listing records.
type ListingSource interface {
	Name() string
	URL() string
	FetchListings(ctx context.Context) ([]*models.RawListing, error)
}

// PriceSource fetches price-per-area samples (€/m²).
type PriceSource interface {
	Name() string
	URL() string
	FetchPrices(ctx context.Context) ([]float64, error)
}
