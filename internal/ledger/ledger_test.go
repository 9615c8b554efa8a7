package ledger

import (
	"math"
	"testing"

	"cryptofolio/internal/models"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= 1e-6*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

func mustApply(t *testing.T, pos models.Position, kind models.TransactionType, qty, price float64) models.Position {
	t.Helper()
	next, err := Apply(pos, kind, qty, price)
	if err != nil {
		t.Fatalf("Apply(%s, %v, %v) failed: %v", kind, qty, price, err)
	}
	if !CheckInvariant(next) {
		t.Fatalf("invariant violated after %s: quantity=%v avg=%v invested=%v",
			kind, next.Quantity, next.AverageCost, next.TotalInvested)
	}
	return next
}

func TestApplyBuyBlendsWeightedAverage(t *testing.T) {
	var pos models.Position

	pos = mustApply(t, pos, models.TransactionBuy, 0.5, 50000)
	if !almostEqual(pos.Quantity, 0.5) || !almostEqual(pos.AverageCost, 50000) || !almostEqual(pos.TotalInvested, 25000) {
		t.Fatalf("after first buy: %+v", pos)
	}

	pos = mustApply(t, pos, models.TransactionBuy, 0.3, 55000)
	if !almostEqual(pos.Quantity, 0.8) {
		t.Errorf("quantity = %v, want 0.8", pos.Quantity)
	}
	if !almostEqual(pos.TotalInvested, 41500) {
		t.Errorf("totalInvested = %v, want 41500", pos.TotalInvested)
	}
	if !almostEqual(pos.AverageCost, 51875) {
		t.Errorf("averageCost = %v, want 51875", pos.AverageCost)
	}
}

func TestApplySellReducesProportionally(t *testing.T) {
	var pos models.Position
	pos = mustApply(t, pos, models.TransactionBuy, 0.5, 50000)
	pos = mustApply(t, pos, models.TransactionBuy, 0.3, 55000)

	// Sell 0.2 of 0.8: reduction ratio 0.25, average cost unchanged.
	pos = mustApply(t, pos, models.TransactionSell, 0.2, 60000)
	if !almostEqual(pos.Quantity, 0.6) {
		t.Errorf("quantity = %v, want 0.6", pos.Quantity)
	}
	if !almostEqual(pos.TotalInvested, 31125) {
		t.Errorf("totalInvested = %v, want 31125", pos.TotalInvested)
	}
	if !almostEqual(pos.AverageCost, 51875) {
		t.Errorf("averageCost = %v, want 51875 (unchanged)", pos.AverageCost)
	}

	v := Valuate(pos, 60000, true)
	if !almostEqual(v.CurrentValue, 36000) {
		t.Errorf("currentValue = %v, want 36000", v.CurrentValue)
	}
	if !almostEqual(v.ProfitLoss, 4875) {
		t.Errorf("profitLoss = %v, want 4875", v.ProfitLoss)
	}
	if math.Abs(v.ProfitLossPct-15.6626506) > 0.001 {
		t.Errorf("profitLossPct = %v, want ~15.66", v.ProfitLossPct)
	}
}

func TestApplySellInsufficientBalance(t *testing.T) {
	var pos models.Position
	pos = mustApply(t, pos, models.TransactionBuy, 1, 100)
	before := pos

	got, err := Apply(pos, models.TransactionSell, 1.5, 100)
	if err != ErrInsufficientBalance {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}
	if got != before {
		t.Errorf("position mutated on rejected sell: %+v", got)
	}

	// Selling from an empty position is also rejected.
	if _, err := Apply(models.Position{}, models.TransactionSell, 0.1, 100); err != ErrInsufficientBalance {
		t.Errorf("sell from empty position: err = %v, want ErrInsufficientBalance", err)
	}
}

func TestApplyFullExitZeroesInvested(t *testing.T) {
	var pos models.Position
	pos = mustApply(t, pos, models.TransactionBuy, 0.3, 41000)
	pos = mustApply(t, pos, models.TransactionBuy, 0.7, 47000)

	pos = mustApply(t, pos, models.TransactionSell, 1.0, 52000)
	if pos.Quantity != 0 {
		t.Errorf("quantity = %v, want exactly 0", pos.Quantity)
	}
	if pos.TotalInvested != 0 {
		t.Errorf("totalInvested = %v, want exactly 0", pos.TotalInvested)
	}
	// Average cost is retained for historical reference.
	if !almostEqual(pos.AverageCost, 45200) {
		t.Errorf("averageCost = %v, want 45200 retained", pos.AverageCost)
	}
}

func TestApplyInvalidInput(t *testing.T) {
	base := models.Position{Quantity: 1, AverageCost: 10, TotalInvested: 10}

	tests := []struct {
		name  string
		kind  models.TransactionType
		qty   float64
		price float64
	}{
		{"zero quantity", models.TransactionBuy, 0, 10},
		{"negative quantity", models.TransactionSell, -1, 10},
		{"zero price", models.TransactionBuy, 1, 0},
		{"negative price", models.TransactionBuy, 1, -5},
		{"NaN quantity", models.TransactionBuy, math.NaN(), 10},
		{"unknown kind", models.TransactionType("transfer"), 1, 10},
	}
	for _, tt := range tests {
		got, err := Apply(base, tt.kind, tt.qty, tt.price)
		if err != ErrInvalidInput {
			t.Errorf("%s: err = %v, want ErrInvalidInput", tt.name, err)
		}
		if got != base {
			t.Errorf("%s: position mutated on invalid input", tt.name)
		}
	}
}

func TestReverseRoundTrip(t *testing.T) {
	starting := []models.Position{
		{},
		{Quantity: 0.8, AverageCost: 51875, TotalInvested: 41500},
		{Quantity: 12, AverageCost: 3.25, TotalInvested: 39},
	}
	events := []struct {
		kind  models.TransactionType
		qty   float64
		price float64
	}{
		{models.TransactionBuy, 0.5, 50000},
		{models.TransactionBuy, 0.0001, 99999},
		{models.TransactionSell, 0.25, 61000},
	}

	for _, pos := range starting {
		for _, e := range events {
			applied, err := Apply(pos, e.kind, e.qty, e.price)
			if err == ErrInsufficientBalance {
				continue // sell larger than this starting position
			}
			if err != nil {
				t.Fatalf("Apply: %v", err)
			}
			restored, err := Reverse(applied, e.kind, e.qty, e.price)
			if err != nil {
				t.Fatalf("Reverse: %v", err)
			}
			if !almostEqual(restored.Quantity, pos.Quantity) {
				t.Errorf("%s %v@%v from %+v: quantity %v, want %v",
					e.kind, e.qty, e.price, pos, restored.Quantity, pos.Quantity)
			}
			if !almostEqual(restored.TotalInvested, pos.TotalInvested) {
				t.Errorf("%s %v@%v from %+v: invested %v, want %v",
					e.kind, e.qty, e.price, pos, restored.TotalInvested, pos.TotalInvested)
			}
		}
	}
}

func TestReverseBuyExceedingHeldQuantity(t *testing.T) {
	// A buy cannot be reversed once later sells consumed its units.
	pos := models.Position{Quantity: 0.1, AverageCost: 50000, TotalInvested: 5000}
	if _, err := Reverse(pos, models.TransactionBuy, 0.5, 50000); err != ErrInsufficientBalance {
		t.Errorf("err = %v, want ErrInsufficientBalance", err)
	}
}

func TestReverseSellRestoresAtAverageCost(t *testing.T) {
	var pos models.Position
	pos = mustApply(t, pos, models.TransactionBuy, 2, 100)
	sold := mustApply(t, pos, models.TransactionSell, 1, 250) // sold well above cost

	restored, err := Reverse(sold, models.TransactionSell, 1, 250)
	if err != nil {
		t.Fatalf("Reverse: %v", err)
	}
	// The sale price must not leak into the cost basis on reversal.
	if !almostEqual(restored.AverageCost, 100) {
		t.Errorf("averageCost = %v, want 100", restored.AverageCost)
	}
	if !almostEqual(restored.TotalInvested, 200) {
		t.Errorf("totalInvested = %v, want 200", restored.TotalInvested)
	}
}

func TestRealizedGain(t *testing.T) {
	pos := models.Position{Quantity: 0.8, AverageCost: 51875, TotalInvested: 41500}
	got := RealizedGain(pos, 0.2, 60000)
	if !almostEqual(got, 0.2*(60000-51875)) {
		t.Errorf("RealizedGain = %v, want %v", got, 0.2*(60000-51875))
	}
}

func TestValuateMissingPrice(t *testing.T) {
	pos := models.Position{Quantity: 2, AverageCost: 1500, TotalInvested: 3000}
	v := Valuate(pos, 0, false)
	if v.PriceKnown {
		t.Error("PriceKnown = true, want false")
	}
	if v.CurrentValue != 0 {
		t.Errorf("currentValue = %v, want 0", v.CurrentValue)
	}
	if !almostEqual(v.ProfitLoss, -3000) {
		t.Errorf("profitLoss = %v, want -3000", v.ProfitLoss)
	}
}

func TestValuateZeroInvested(t *testing.T) {
	v := Valuate(models.Position{}, 100, true)
	if v.ProfitLossPct != 0 {
		t.Errorf("profitLossPct = %v, want 0 (no division by zero)", v.ProfitLossPct)
	}
}

func TestAggregateEmpty(t *testing.T) {
	got := Aggregate(nil, func(string) (float64, bool) { return 0, false })
	if got != (Totals{}) {
		t.Errorf("Aggregate(nil) = %+v, want zero totals", got)
	}
}

func TestAggregate(t *testing.T) {
	positions := []models.Position{
		{AssetID: "btc", Quantity: 0.6, AverageCost: 51875, TotalInvested: 31125},
		{AssetID: "eth", Quantity: 2, AverageCost: 1500, TotalInvested: 3000},
		{AssetID: "doge", Quantity: 0, AverageCost: 0.2, TotalInvested: 0}, // closed: excluded
		{AssetID: "xrp", Quantity: 100, AverageCost: 0.5, TotalInvested: 50},
	}
	prices := map[string]float64{"btc": 60000, "eth": 2000}
	lookup := func(assetID string) (float64, bool) {
		p, ok := prices[assetID]
		return p, ok
	}

	got := Aggregate(positions, lookup)
	if got.Holdings != 3 {
		t.Errorf("holdings = %d, want 3 (closed position excluded)", got.Holdings)
	}
	wantValue := 0.6*60000 + 2*2000.0 // xrp has no quote: valued at zero
	if !almostEqual(got.TotalValue, wantValue) {
		t.Errorf("totalValue = %v, want %v", got.TotalValue, wantValue)
	}
	wantInvested := 31125 + 3000 + 50.0
	if !almostEqual(got.TotalInvested, wantInvested) {
		t.Errorf("totalInvested = %v, want %v", got.TotalInvested, wantInvested)
	}
	wantPct := (wantValue - wantInvested) / wantInvested * 100
	if !almostEqual(got.ProfitLossPct, wantPct) {
		t.Errorf("profitLossPct = %v, want %v (from summed totals)", got.ProfitLossPct, wantPct)
	}
}

func TestLongBuySequenceKeepsInvariant(t *testing.T) {
	var pos models.Position
	price := 100.0
	for i := 0; i < 500; i++ {
		pos = mustApply(t, pos, models.TransactionBuy, 0.013, price)
		price *= 1.001
		if i%7 == 3 {
			pos = mustApply(t, pos, models.TransactionSell, pos.Quantity/3, price)
		}
	}
	if !almostEqual(pos.AverageCost, pos.TotalInvested/pos.Quantity) {
		t.Errorf("averageCost drifted: %v vs %v", pos.AverageCost, pos.TotalInvested/pos.Quantity)
	}
}
