package interfaces

import (
	"context"

	"cryptofolio/internal/models"
)

// Listing is one entry from the provider's market listings, used to sync
// the asset catalog.
type Listing struct {
	SourceID int
	Symbol   string
	Name     string
	Rank     int
	Quote    models.Quote
}

// MarketClient is the quote-provider boundary (CoinMarketCap in production).
type MarketClient interface {
	// GetQuotes retrieves latest quotes keyed by upper-case symbol.
	// Unknown symbols are absent from the result rather than an error.
	GetQuotes(ctx context.Context, symbols []string) (map[string]models.Quote, error)

	// GetListings retrieves the top market listings by capitalization.
	GetListings(ctx context.Context, limit int) ([]Listing, error)
}
