package models

import "time"

// TransactionType distinguishes buy and sell events.
type TransactionType string

const (
	TransactionBuy  TransactionType = "buy"
	TransactionSell TransactionType = "sell"
)

// Valid reports whether the type is a known transaction kind.
func (t TransactionType) Valid() bool {
	return t == TransactionBuy || t == TransactionSell
}

// Transaction records a single buy or sell event against a portfolio.
// Fee is recorded for reporting but excluded from cost-basis arithmetic.
type Transaction struct {
	ID           string          `json:"id"`
	Username     string          `json:"username"`
	PortfolioID  string          `json:"portfolio_id"`
	AssetID      string          `json:"asset_id"`
	Type         TransactionType `json:"type"`
	Quantity     float64         `json:"quantity"`
	PricePerUnit float64         `json:"price_per_unit"`
	Fee          float64         `json:"fee,omitempty"`
	Exchange     string          `json:"exchange,omitempty"`
	Notes        string          `json:"notes,omitempty"`
	RealizedGain float64         `json:"realized_gain,omitempty"` // sells only: quantity * (price - average cost at sale)
	Timestamp    time.Time       `json:"timestamp"`
	CreatedAt    time.Time       `json:"created_at"`
}

// TotalCost returns the gross cash amount of the event excluding fees.
func (t *Transaction) TotalCost() float64 {
	return t.Quantity * t.PricePerUnit
}

// TransactionExport is the CSV row shape for transaction exports.
type TransactionExport struct {
	Timestamp    string  `csv:"timestamp"`
	Type         string  `csv:"type"`
	Symbol       string  `csv:"symbol"`
	Quantity     float64 `csv:"quantity"`
	PricePerUnit float64 `csv:"price_per_unit"`
	TotalCost    float64 `csv:"total_cost"`
	Fee          float64 `csv:"fee"`
	Exchange     string  `csv:"exchange"`
	Notes        string  `csv:"notes"`
}
