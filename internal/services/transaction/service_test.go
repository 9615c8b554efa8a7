package transaction

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"cryptofolio/internal/common"
	"cryptofolio/internal/interfaces"
	"cryptofolio/internal/ledger"
	"cryptofolio/internal/models"
	"cryptofolio/internal/storage/memory"
)

func newTestService(t *testing.T) (*Service, interfaces.StorageManager) {
	t.Helper()
	storage := memory.NewManager()
	svc := NewService(storage, common.NewSilentLogger())

	err := storage.PortfolioStore().Save(context.Background(), &models.Portfolio{
		ID:       "pf1",
		Username: "alice",
		Name:     "Main",
	})
	if err != nil {
		t.Fatalf("seed portfolio: %v", err)
	}
	return svc, storage
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestRecordBuyCreatesPosition(t *testing.T) {
	svc, storage := newTestService(t)
	ctx := context.Background()

	tx, err := svc.Record(ctx, interfaces.RecordTransactionRequest{
		Username:     "alice",
		PortfolioID:  "pf1",
		Symbol:       "btc",
		Type:         models.TransactionBuy,
		Quantity:     0.5,
		PricePerUnit: 50000,
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if tx.AssetID != "btc" {
		t.Errorf("asset id = %q, want btc", tx.AssetID)
	}
	if tx.ID == "" {
		t.Error("transaction id not assigned")
	}

	pos, err := storage.PositionStore().Get(ctx, "pf1", "btc")
	if err != nil {
		t.Fatalf("position not persisted: %v", err)
	}
	if !almostEqual(pos.Quantity, 0.5) || !almostEqual(pos.AverageCost, 50000) || !almostEqual(pos.TotalInvested, 25000) {
		t.Errorf("position = %+v, want qty 0.5 avg 50000 invested 25000", pos)
	}
}

func TestRecordBuyBlendsAverageCost(t *testing.T) {
	svc, storage := newTestService(t)
	ctx := context.Background()

	buys := []struct {
		qty, price float64
	}{
		{0.5, 50000},
		{0.3, 55000},
	}
	for _, b := range buys {
		_, err := svc.Record(ctx, interfaces.RecordTransactionRequest{
			Username: "alice", PortfolioID: "pf1", Symbol: "BTC",
			Type: models.TransactionBuy, Quantity: b.qty, PricePerUnit: b.price,
		})
		if err != nil {
			t.Fatalf("Record buy %v: %v", b, err)
		}
	}

	pos, err := storage.PositionStore().Get(ctx, "pf1", "btc")
	if err != nil {
		t.Fatalf("Get position: %v", err)
	}
	if !almostEqual(pos.AverageCost, 51875) {
		t.Errorf("average cost = %v, want 51875", pos.AverageCost)
	}
	if !ledger.CheckInvariant(*pos) {
		t.Errorf("invariant violated: %+v", pos)
	}
}

func TestRecordSellStoresRealizedGain(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Record(ctx, interfaces.RecordTransactionRequest{
		Username: "alice", PortfolioID: "pf1", Symbol: "ETH",
		Type: models.TransactionBuy, Quantity: 10, PricePerUnit: 2000,
	})
	if err != nil {
		t.Fatalf("Record buy: %v", err)
	}

	tx, err := svc.Record(ctx, interfaces.RecordTransactionRequest{
		Username: "alice", PortfolioID: "pf1", Symbol: "ETH",
		Type: models.TransactionSell, Quantity: 4, PricePerUnit: 2500,
	})
	if err != nil {
		t.Fatalf("Record sell: %v", err)
	}
	// 4 * (2500 - 2000)
	if !almostEqual(tx.RealizedGain, 2000) {
		t.Errorf("realized gain = %v, want 2000", tx.RealizedGain)
	}
}

func TestRecordOversellRejectedBeforeCommit(t *testing.T) {
	svc, storage := newTestService(t)
	ctx := context.Background()

	_, err := svc.Record(ctx, interfaces.RecordTransactionRequest{
		Username: "alice", PortfolioID: "pf1", Symbol: "BTC",
		Type: models.TransactionBuy, Quantity: 1, PricePerUnit: 40000,
	})
	if err != nil {
		t.Fatalf("Record buy: %v", err)
	}

	_, err = svc.Record(ctx, interfaces.RecordTransactionRequest{
		Username: "alice", PortfolioID: "pf1", Symbol: "BTC",
		Type: models.TransactionSell, Quantity: 2, PricePerUnit: 45000,
	})
	if !errors.Is(err, ledger.ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}

	// Neither the position nor the history may show the rejected sell.
	pos, err := storage.PositionStore().Get(ctx, "pf1", "btc")
	if err != nil {
		t.Fatalf("Get position: %v", err)
	}
	if !almostEqual(pos.Quantity, 1) {
		t.Errorf("quantity = %v, want 1", pos.Quantity)
	}
	txs, err := storage.TransactionStore().ListByPortfolio(ctx, "pf1", 0)
	if err != nil {
		t.Fatalf("ListByPortfolio: %v", err)
	}
	if len(txs) != 1 {
		t.Errorf("transaction count = %d, want 1", len(txs))
	}
}

func TestRecordSellWithoutPosition(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Record(context.Background(), interfaces.RecordTransactionRequest{
		Username: "alice", PortfolioID: "pf1", Symbol: "DOGE",
		Type: models.TransactionSell, Quantity: 100, PricePerUnit: 0.1,
	})
	if !errors.Is(err, ledger.ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}
}

func TestRecordValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  interfaces.RecordTransactionRequest
	}{
		{"missing symbol", interfaces.RecordTransactionRequest{
			Username: "alice", PortfolioID: "pf1",
			Type: models.TransactionBuy, Quantity: 1, PricePerUnit: 10,
		}},
		{"zero quantity", interfaces.RecordTransactionRequest{
			Username: "alice", PortfolioID: "pf1", Symbol: "BTC",
			Type: models.TransactionBuy, Quantity: 0, PricePerUnit: 10,
		}},
		{"negative price", interfaces.RecordTransactionRequest{
			Username: "alice", PortfolioID: "pf1", Symbol: "BTC",
			Type: models.TransactionBuy, Quantity: 1, PricePerUnit: -5,
		}},
		{"unknown type", interfaces.RecordTransactionRequest{
			Username: "alice", PortfolioID: "pf1", Symbol: "BTC",
			Type: "short", Quantity: 1, PricePerUnit: 10,
		}},
		{"negative fee", interfaces.RecordTransactionRequest{
			Username: "alice", PortfolioID: "pf1", Symbol: "BTC",
			Type: models.TransactionBuy, Quantity: 1, PricePerUnit: 10, Fee: -1,
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Record(ctx, tc.req); !errors.Is(err, ledger.ErrInvalidInput) {
				t.Errorf("err = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestRecordRejectsForeignPortfolio(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Record(context.Background(), interfaces.RecordTransactionRequest{
		Username: "mallory", PortfolioID: "pf1", Symbol: "BTC",
		Type: models.TransactionBuy, Quantity: 1, PricePerUnit: 10,
	})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestRecordUnknownPortfolio(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Record(context.Background(), interfaces.RecordTransactionRequest{
		Username: "alice", PortfolioID: "missing", Symbol: "BTC",
		Type: models.TransactionBuy, Quantity: 1, PricePerUnit: 10,
	})
	if !errors.Is(err, interfaces.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteReversesBuy(t *testing.T) {
	svc, storage := newTestService(t)
	ctx := context.Background()

	_, err := svc.Record(ctx, interfaces.RecordTransactionRequest{
		Username: "alice", PortfolioID: "pf1", Symbol: "BTC",
		Type: models.TransactionBuy, Quantity: 1, PricePerUnit: 40000,
	})
	if err != nil {
		t.Fatalf("Record first buy: %v", err)
	}
	second, err := svc.Record(ctx, interfaces.RecordTransactionRequest{
		Username: "alice", PortfolioID: "pf1", Symbol: "BTC",
		Type: models.TransactionBuy, Quantity: 1, PricePerUnit: 60000,
	})
	if err != nil {
		t.Fatalf("Record second buy: %v", err)
	}

	if err := svc.Delete(ctx, second.ID, "alice"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	pos, err := storage.PositionStore().Get(ctx, "pf1", "btc")
	if err != nil {
		t.Fatalf("Get position: %v", err)
	}
	if !almostEqual(pos.Quantity, 1) || !almostEqual(pos.TotalInvested, 40000) || !almostEqual(pos.AverageCost, 40000) {
		t.Errorf("position after reversal = %+v, want qty 1 invested 40000 avg 40000", pos)
	}

	if _, err := storage.TransactionStore().Get(ctx, second.ID); !errors.Is(err, interfaces.ErrNotFound) {
		t.Errorf("transaction still present after delete: err = %v", err)
	}
}

func TestDeleteReversesSellAtAverageCost(t *testing.T) {
	svc, storage := newTestService(t)
	ctx := context.Background()

	_, err := svc.Record(ctx, interfaces.RecordTransactionRequest{
		Username: "alice", PortfolioID: "pf1", Symbol: "ETH",
		Type: models.TransactionBuy, Quantity: 10, PricePerUnit: 2000,
	})
	if err != nil {
		t.Fatalf("Record buy: %v", err)
	}
	sell, err := svc.Record(ctx, interfaces.RecordTransactionRequest{
		Username: "alice", PortfolioID: "pf1", Symbol: "ETH",
		Type: models.TransactionSell, Quantity: 4, PricePerUnit: 3000,
	})
	if err != nil {
		t.Fatalf("Record sell: %v", err)
	}

	if err := svc.Delete(ctx, sell.ID, "alice"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	pos, err := storage.PositionStore().Get(ctx, "pf1", "eth")
	if err != nil {
		t.Fatalf("Get position: %v", err)
	}
	// Units come back at the 2000 cost basis, not the 3000 sale price.
	if !almostEqual(pos.Quantity, 10) || !almostEqual(pos.TotalInvested, 20000) || !almostEqual(pos.AverageCost, 2000) {
		t.Errorf("position after reversal = %+v, want qty 10 invested 20000 avg 2000", pos)
	}
}

func TestDeleteRejectsForeignUser(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tx, err := svc.Record(ctx, interfaces.RecordTransactionRequest{
		Username: "alice", PortfolioID: "pf1", Symbol: "BTC",
		Type: models.TransactionBuy, Quantity: 1, PricePerUnit: 10000,
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	if err := svc.Delete(ctx, tx.ID, "mallory"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_, err := svc.Record(ctx, interfaces.RecordTransactionRequest{
			Username: "alice", PortfolioID: "pf1", Symbol: "BTC",
			Type: models.TransactionBuy, Quantity: 1, PricePerUnit: 100,
			Timestamp: base.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatalf("Record %d: %v", i, err)
		}
	}

	txs, err := svc.List(ctx, "pf1", 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("len = %d, want 2", len(txs))
	}
	if !txs[0].Timestamp.After(txs[1].Timestamp) {
		t.Errorf("transactions not newest first: %v then %v", txs[0].Timestamp, txs[1].Timestamp)
	}
}
