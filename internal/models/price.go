package models

import "time"

// Quote is a point-in-time market quote from the quote provider.
type Quote struct {
	Symbol           string    `json:"symbol"`
	Price            float64   `json:"price"`
	Volume24h        float64   `json:"volume_24h,omitempty"`
	MarketCap        float64   `json:"market_cap,omitempty"`
	PercentChange24h float64   `json:"percent_change_24h,omitempty"`
	LastUpdated      time.Time `json:"last_updated"`
	Source           string    `json:"source,omitempty"`
}

// PricePoint is a persisted price observation for an asset.
type PricePoint struct {
	ID        string    `json:"id"`
	AssetID   string    `json:"asset_id"`
	Price     float64   `json:"price"`
	Volume24h float64   `json:"volume_24h,omitempty"`
	MarketCap float64   `json:"market_cap,omitempty"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}
