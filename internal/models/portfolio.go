package models

import "time"

// Portfolio groups positions and transactions for one user.
type Portfolio struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// HoldingView is a position enriched with catalog and market data for display.
// PriceKnown is false when no quote is available for the asset; valuation
// fields are then computed against a zero price rather than omitted.
type HoldingView struct {
	PortfolioID   string    `json:"portfolio_id"`
	AssetID       string    `json:"asset_id"`
	Symbol        string    `json:"symbol"`
	Name          string    `json:"name"`
	LogoURL       string    `json:"logo_url,omitempty"`
	Quantity      float64   `json:"quantity"`
	AverageCost   float64   `json:"average_cost"`
	TotalInvested float64   `json:"total_invested"`
	CurrentPrice  float64   `json:"current_price"`
	PriceKnown    bool      `json:"price_known"`
	CurrentValue  float64   `json:"current_value"`
	ProfitLoss    float64   `json:"profit_loss"`
	ProfitLossPct float64   `json:"profit_loss_pct"`
	WeightPct     float64   `json:"weight_pct"` // share of portfolio current value
	UpdatedAt     time.Time `json:"updated_at"`
}

// PortfolioSummary is the aggregated valuation of one portfolio.
type PortfolioSummary struct {
	PortfolioID   string    `json:"portfolio_id"`
	Name          string    `json:"name"`
	TotalValue    float64   `json:"total_value"`
	TotalInvested float64   `json:"total_invested"`
	ProfitLoss    float64   `json:"profit_loss"`
	ProfitLossPct float64   `json:"profit_loss_pct"`
	HoldingsCount int       `json:"holdings_count"`
	MissingQuotes []string  `json:"missing_quotes,omitempty"` // symbols valued at zero for lack of a quote
	PricedAt      time.Time `json:"priced_at"`
}
