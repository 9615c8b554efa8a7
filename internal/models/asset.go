package models

import (
	"strings"
	"time"
)

// Asset is a catalog entry for a tracked cryptocurrency.
// ID is the canonical lowercase symbol (e.g. "btc"); SourceID is the
// numeric id assigned by the quote provider, kept for quote lookups.
type Asset struct {
	ID        string    `json:"id"`
	Symbol    string    `json:"symbol"`
	Name      string    `json:"name"`
	SourceID  int       `json:"source_id,omitempty"`
	LogoURL   string    `json:"logo_url,omitempty"`
	Rank      int       `json:"rank,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AssetID normalizes a ticker symbol to its catalog id.
func AssetID(symbol string) string {
	return strings.ToLower(strings.TrimSpace(symbol))
}
