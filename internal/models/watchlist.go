package models

import "time"

// WatchlistEntry marks one asset watched by one user.
type WatchlistEntry struct {
	Username string    `json:"username"`
	AssetID  string    `json:"asset_id"`
	AddedAt  time.Time `json:"added_at"`
}

// WatchlistItem is a watchlist entry enriched with catalog and quote data.
type WatchlistItem struct {
	AssetID          string    `json:"asset_id"`
	Symbol           string    `json:"symbol"`
	Name             string    `json:"name"`
	Price            float64   `json:"price"`
	PriceKnown       bool      `json:"price_known"`
	PercentChange24h float64   `json:"percent_change_24h,omitempty"`
	AddedAt          time.Time `json:"added_at"`
}
