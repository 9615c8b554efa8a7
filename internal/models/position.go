package models

import "time"

// Position is the aggregated holding state for one (portfolio, asset) pair.
// TotalInvested always equals Quantity * AverageCost within floating-point
// tolerance; the ledger package maintains that invariant on every mutation.
// A position whose quantity has fallen to zero is kept in storage as a
// zero-value record for historical average-cost reference.
type Position struct {
	PortfolioID   string    `json:"portfolio_id"`
	AssetID       string    `json:"asset_id"`
	Quantity      float64   `json:"quantity"`
	AverageCost   float64   `json:"average_cost"`   // USD cost basis per unit
	TotalInvested float64   `json:"total_invested"` // USD capital at risk
	UpdatedAt     time.Time `json:"updated_at"`
}

// IsOpen reports whether the position still holds units.
func (p Position) IsOpen() bool {
	return p.Quantity > 0
}
