package server

import (
	"context"
	"net/http"
	"testing"
	"time"

	"cryptofolio/internal/models"
)

func TestWatchlistEndpoints(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerUser(t, "alice")
	ctx := context.Background()

	err := env.storage.PriceStore().SaveBatch(ctx, []*models.PricePoint{
		{AssetID: "btc", Price: 65000, Timestamp: time.Now()},
	})
	if err != nil {
		t.Fatal(err)
	}

	rec := env.do(t, http.MethodPost, "/api/watchlist", token, map[string]string{"symbol": "BTC"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add: status %d, body %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/api/watchlist", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status %d", rec.Code)
	}
	var items []models.WatchlistItem
	decodeBody(t, rec, &items)
	if len(items) != 1 {
		t.Fatalf("len = %d, want 1", len(items))
	}
	if !items[0].PriceKnown || items[0].Price != 65000 {
		t.Errorf("item = %+v", items[0])
	}

	rec = env.do(t, http.MethodDelete, "/api/watchlist/BTC", token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("remove: status %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/api/watchlist", token, nil)
	decodeBody(t, rec, &items)
	if len(items) != 0 {
		t.Errorf("len after remove = %d, want 0", len(items))
	}
}

func TestWatchlistAddEmptySymbol(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerUser(t, "alice")

	rec := env.do(t, http.MethodPost, "/api/watchlist", token, map[string]string{"symbol": "  "})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestWatchlistIsolatedPerUser(t *testing.T) {
	env := newTestEnv(t)
	aliceToken := env.registerUser(t, "alice")
	bobToken := env.registerUser(t, "bob")

	rec := env.do(t, http.MethodPost, "/api/watchlist", aliceToken, map[string]string{"symbol": "BTC"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add: status %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/watchlist", bobToken, nil)
	var items []models.WatchlistItem
	decodeBody(t, rec, &items)
	if len(items) != 0 {
		t.Errorf("bob sees alice's watchlist: %+v", items)
	}
}
