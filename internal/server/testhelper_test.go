package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"cryptofolio/internal/app"
	"cryptofolio/internal/common"
	"cryptofolio/internal/interfaces"
	"cryptofolio/internal/models"
	"cryptofolio/internal/storage/memory"
)

// fakeMarket is a scripted quote provider for handler tests.
type fakeMarket struct {
	quotes   map[string]models.Quote
	listings []interfaces.Listing
}

func (f *fakeMarket) GetQuotes(_ context.Context, symbols []string) (map[string]models.Quote, error) {
	out := make(map[string]models.Quote)
	for _, s := range symbols {
		if q, ok := f.quotes[s]; ok {
			out[s] = q
		}
	}
	return out, nil
}

func (f *fakeMarket) GetListings(context.Context, int) ([]interfaces.Listing, error) {
	return f.listings, nil
}

type testEnv struct {
	server  *Server
	app     *app.App
	storage interfaces.StorageManager
	market  *fakeMarket
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	config := common.NewDefaultConfig()
	config.Auth.JWTSecret = "test-secret"
	logger := common.NewSilentLogger()
	storage := memory.NewManager()
	market := &fakeMarket{quotes: map[string]models.Quote{}}

	a := app.NewWithDependencies(config, logger, storage, market)
	return &testEnv{
		server:  NewServer(a),
		app:     a,
		storage: storage,
		market:  market,
	}
}

// do runs a request through the full middleware stack.
func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v (body: %s)", err, rec.Body.String())
	}
}

// registerUser creates a user through the API and returns a session token.
func (e *testEnv) registerUser(t *testing.T, username string) string {
	t.Helper()

	rec := e.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "hunter2hunter2",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d, body %s", username, rec.Code, rec.Body.String())
	}

	var resp struct {
		Token string `json:"token"`
	}
	decodeBody(t, rec, &resp)
	if resp.Token == "" {
		t.Fatal("no token in register response")
	}
	return resp.Token
}

// createPortfolio creates a portfolio through the API and returns its id.
func (e *testEnv) createPortfolio(t *testing.T, token, name string) string {
	t.Helper()

	rec := e.do(t, http.MethodPost, "/api/portfolios", token, map[string]string{"name": name})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create portfolio: status %d, body %s", rec.Code, rec.Body.String())
	}

	var pf models.Portfolio
	decodeBody(t, rec, &pf)
	return pf.ID
}
