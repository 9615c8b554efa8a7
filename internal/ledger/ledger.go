// Package ledger implements average-cost holding accounting: it turns
// buy/sell events into a running position (quantity, weighted-average cost,
// total invested) and derives valuations and portfolio totals from positions
// plus externally supplied prices.
//
// All functions are pure computation over values supplied by the caller;
// persistence, price fetching, and locking belong to the surrounding layers.
// Callers are expected to serialize events per (portfolio, asset) pair so
// each event sees the prior committed position state.
package ledger

import (
	"errors"
	"math"

	"cryptofolio/internal/models"
)

// Epsilon is the tolerance used when comparing monetary values. Positions
// maintain totalInvested == quantity * averageCost only up to floating-point
// drift, so equality checks must not be exact.
const Epsilon = 1e-9

var (
	// ErrInsufficientBalance is returned when a sell exceeds the held
	// quantity. The position is left unchanged.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInvalidInput is returned for non-positive quantities or prices,
	// or an unknown transaction kind, before any computation.
	ErrInvalidInput = errors.New("invalid input")
)

// Valuation is the market view of a single position at a given price.
type Valuation struct {
	CurrentValue  float64 `json:"current_value"`
	ProfitLoss    float64 `json:"profit_loss"`
	ProfitLossPct float64 `json:"profit_loss_pct"`
	PriceKnown    bool    `json:"price_known"`
}

// Totals is the aggregated valuation of a set of positions.
type Totals struct {
	TotalValue    float64 `json:"total_value"`
	TotalInvested float64 `json:"total_invested"`
	ProfitLoss    float64 `json:"profit_loss"`
	ProfitLossPct float64 `json:"profit_loss_pct"`
	Holdings      int     `json:"holdings"`
}

// PriceLookup resolves the latest known price for an asset. The boolean is
// false when no quote is available; the asset is then valued at zero.
type PriceLookup func(assetID string) (float64, bool)

func validate(kind models.TransactionType, quantity, pricePerUnit float64) error {
	if !kind.Valid() {
		return ErrInvalidInput
	}
	if quantity <= 0 || math.IsNaN(quantity) || math.IsInf(quantity, 0) {
		return ErrInvalidInput
	}
	if pricePerUnit <= 0 || math.IsNaN(pricePerUnit) || math.IsInf(pricePerUnit, 0) {
		return ErrInvalidInput
	}
	return nil
}

// Apply returns the position after a buy or sell event.
//
// Buys blend the event's cost into the running weighted average in proportion
// to contributed capital. Sells reduce total invested proportionally at the
// existing average cost, leaving the average per remaining unit unchanged;
// a sell exceeding the held quantity returns ErrInsufficientBalance and the
// position untouched.
func Apply(pos models.Position, kind models.TransactionType, quantity, pricePerUnit float64) (models.Position, error) {
	if err := validate(kind, quantity, pricePerUnit); err != nil {
		return pos, err
	}

	switch kind {
	case models.TransactionBuy:
		pos.Quantity += quantity
		pos.TotalInvested += quantity * pricePerUnit
		pos.AverageCost = safeAverage(pos.TotalInvested, pos.Quantity)

	case models.TransactionSell:
		if quantity > pos.Quantity {
			return pos, ErrInsufficientBalance
		}
		reduction := quantity / pos.Quantity
		pos.Quantity -= quantity
		pos.TotalInvested *= 1 - reduction
		if pos.Quantity <= Epsilon {
			// Full exit: zero the residuals so the record reads cleanly.
			pos.Quantity = 0
			pos.TotalInvested = 0
		}
	}

	return pos, nil
}

// Reverse undoes a previously applied event, restoring the prior quantity
// and total invested within Epsilon.
//
// Reversing a buy removes the units and the exact capital they contributed
// (quantity * pricePerUnit). Reversing a sell restores the units at the
// position's unchanged average cost; the event price is not used, since
// selling never altered the cost basis per unit.
func Reverse(pos models.Position, kind models.TransactionType, quantity, pricePerUnit float64) (models.Position, error) {
	if err := validate(kind, quantity, pricePerUnit); err != nil {
		return pos, err
	}

	switch kind {
	case models.TransactionBuy:
		if quantity > pos.Quantity+Epsilon {
			return pos, ErrInsufficientBalance
		}
		pos.Quantity -= quantity
		pos.TotalInvested -= quantity * pricePerUnit
		if pos.Quantity <= Epsilon || pos.TotalInvested < 0 {
			pos.Quantity = math.Max(pos.Quantity, 0)
			pos.TotalInvested = math.Max(pos.TotalInvested, 0)
		}
		pos.AverageCost = safeAverage(pos.TotalInvested, pos.Quantity)

	case models.TransactionSell:
		pos.TotalInvested += quantity * pos.AverageCost
		pos.Quantity += quantity
		pos.AverageCost = safeAverage(pos.TotalInvested, pos.Quantity)
	}

	return pos, nil
}

// RealizedGain computes the profit locked in by a sell at the given price
// against the position's average cost. The ledger does not store this on
// the position; the transaction layer records it per event.
func RealizedGain(pos models.Position, quantity, pricePerUnit float64) float64 {
	return quantity * (pricePerUnit - pos.AverageCost)
}

// Valuate derives the market value and unrealized profit/loss of a position
// at the supplied price. A missing quote must be passed as price 0 with
// known=false: the position is then valued at zero and profit/loss equals
// the negative of total invested, which keeps the degraded mode explicit
// instead of hiding positions without quotes.
func Valuate(pos models.Position, currentPrice float64, known bool) Valuation {
	v := Valuation{PriceKnown: known}
	if known {
		v.CurrentValue = pos.Quantity * currentPrice
	}
	v.ProfitLoss = v.CurrentValue - pos.TotalInvested
	if pos.TotalInvested > Epsilon {
		v.ProfitLossPct = v.ProfitLoss / pos.TotalInvested * 100
	}
	return v
}

// Aggregate sums valuations across all open positions (quantity > 0).
// Zero-quantity positions are excluded from totals but remain in storage.
// The portfolio-level percentage is computed from the summed totals, never
// by summing per-position percentages.
func Aggregate(positions []models.Position, lookup PriceLookup) Totals {
	var t Totals
	for _, pos := range positions {
		if !pos.IsOpen() {
			continue
		}
		price, ok := lookup(pos.AssetID)
		if !ok {
			price = 0
		}
		v := Valuate(pos, price, ok)
		t.TotalValue += v.CurrentValue
		t.TotalInvested += pos.TotalInvested
		t.Holdings++
	}
	t.ProfitLoss = t.TotalValue - t.TotalInvested
	if t.TotalInvested > Epsilon {
		t.ProfitLossPct = t.ProfitLoss / t.TotalInvested * 100
	}
	return t
}

// CheckInvariant reports whether totalInvested == quantity * averageCost
// within tolerance. Used by tests and defensive assertions.
func CheckInvariant(pos models.Position) bool {
	return math.Abs(pos.TotalInvested-pos.Quantity*pos.AverageCost) <= tolerance(pos.TotalInvested)
}

// tolerance scales Epsilon with magnitude so large portfolios don't fail
// invariant checks on ordinary floating-point drift.
func tolerance(v float64) float64 {
	return Epsilon * math.Max(1, math.Abs(v))
}

func safeAverage(invested, quantity float64) float64 {
	if quantity <= Epsilon {
		return 0
	}
	return invested / quantity
}
