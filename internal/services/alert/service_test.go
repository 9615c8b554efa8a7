package alert

import (
	"context"
	"errors"
	"testing"
	"time"

	"cryptofolio/internal/common"
	"cryptofolio/internal/interfaces"
	"cryptofolio/internal/ledger"
	"cryptofolio/internal/models"
	"cryptofolio/internal/services/price"
	"cryptofolio/internal/storage/memory"
)

type stubClient struct{}

func (stubClient) GetQuotes(context.Context, []string) (map[string]models.Quote, error) {
	return map[string]models.Quote{}, nil
}

func (stubClient) GetListings(context.Context, int) ([]interfaces.Listing, error) {
	return nil, nil
}

func newTestService(t *testing.T) (*Service, interfaces.StorageManager) {
	t.Helper()
	storage := memory.NewManager()
	prices := price.NewService(storage, stubClient{}, common.NewSilentLogger())
	svc := NewService(storage, prices, common.NewSilentLogger())

	if err := storage.UserStore().Save(context.Background(), &models.User{Username: "alice"}); err != nil {
		t.Fatal(err)
	}
	return svc, storage
}

func setPrice(t *testing.T, storage interfaces.StorageManager, assetID string, price float64) {
	t.Helper()
	err := storage.PriceStore().SaveBatch(context.Background(), []*models.PricePoint{
		{AssetID: assetID, Price: price, Timestamp: time.Now()},
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		symbol    string
		condition models.AlertCondition
		target    float64
	}{
		{"empty symbol", "", models.AlertAbove, 100},
		{"bad condition", "BTC", "crosses", 100},
		{"zero target", "BTC", models.AlertBelow, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, "alice", tc.symbol, tc.condition, tc.target)
			if !errors.Is(err, ledger.ErrInvalidInput) {
				t.Errorf("err = %v, want ErrInvalidInput", err)
			}
		})
	}

	if _, err := svc.Create(ctx, "nobody", "BTC", models.AlertAbove, 100); !errors.Is(err, interfaces.ErrNotFound) {
		t.Errorf("unknown user: err = %v, want ErrNotFound", err)
	}
}

func TestEvaluateTriggersAndDisarms(t *testing.T) {
	svc, storage := newTestService(t)
	ctx := context.Background()
	setPrice(t, storage, "btc", 70000)

	above, err := svc.Create(ctx, "alice", "BTC", models.AlertAbove, 65000)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	// Not crossed: price is below 80k.
	if _, err := svc.Create(ctx, "alice", "BTC", models.AlertAbove, 80000); err != nil {
		t.Fatalf("Create: %v", err)
	}

	n, err := svc.Evaluate(ctx)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if n != 1 {
		t.Errorf("triggered = %d, want 1", n)
	}

	got, err := storage.AlertStore().Get(ctx, above.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.Triggered || got.Active || got.TriggeredAt == nil {
		t.Errorf("alert not disarmed after trigger: %+v", got)
	}

	// Second pass must not re-fire the disarmed alert.
	n, err = svc.Evaluate(ctx)
	if err != nil {
		t.Fatalf("Evaluate again: %v", err)
	}
	if n != 0 {
		t.Errorf("re-triggered = %d, want 0", n)
	}
}

func TestEvaluateBelowCondition(t *testing.T) {
	svc, storage := newTestService(t)
	ctx := context.Background()
	setPrice(t, storage, "eth", 1800)

	if _, err := svc.Create(ctx, "alice", "ETH", models.AlertBelow, 2000); err != nil {
		t.Fatalf("Create: %v", err)
	}

	n, err := svc.Evaluate(ctx)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if n != 1 {
		t.Errorf("triggered = %d, want 1", n)
	}
}

func TestEvaluateSkipsUnpricedAssets(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, "alice", "XMR", models.AlertAbove, 1); err != nil {
		t.Fatalf("Create: %v", err)
	}

	n, err := svc.Evaluate(ctx)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if n != 0 {
		t.Errorf("triggered = %d, want 0 with no price", n)
	}
}

func TestSetActiveRearmsClearsTrigger(t *testing.T) {
	svc, storage := newTestService(t)
	ctx := context.Background()
	setPrice(t, storage, "btc", 70000)

	alert, err := svc.Create(ctx, "alice", "BTC", models.AlertAbove, 65000)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Evaluate(ctx); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	rearmed, err := svc.SetActive(ctx, alert.ID, "alice", true)
	if err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	if !rearmed.Active || rearmed.Triggered || rearmed.TriggeredAt != nil {
		t.Errorf("re-arm did not clear trigger: %+v", rearmed)
	}
}

func TestOwnershipChecks(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	alert, err := svc.Create(ctx, "alice", "BTC", models.AlertAbove, 65000)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.SetActive(ctx, alert.ID, "mallory", false); !errors.Is(err, ErrForbidden) {
		t.Errorf("SetActive: err = %v, want ErrForbidden", err)
	}
	if err := svc.Delete(ctx, alert.ID, "mallory"); !errors.Is(err, ErrForbidden) {
		t.Errorf("Delete: err = %v, want ErrForbidden", err)
	}
	if err := svc.Delete(ctx, alert.ID, "alice"); err != nil {
		t.Errorf("owner Delete: %v", err)
	}
}
