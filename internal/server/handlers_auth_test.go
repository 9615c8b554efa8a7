package server

import (
	"net/http"
	"testing"
)

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)

	token := env.registerUser(t, "alice")

	rec := env.do(t, http.MethodGet, "/api/users/me", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("users/me: status %d, body %s", rec.Code, rec.Body.String())
	}
	var me map[string]interface{}
	decodeBody(t, rec, &me)
	if me["username"] != "alice" {
		t.Errorf("username = %v, want alice", me["username"])
	}
	if _, leaked := me["password_hash"]; leaked {
		t.Error("password hash leaked in response")
	}

	rec = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "alice",
		"password": "hunter2hunter2",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: status %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body map[string]string
		want int
	}{
		{"short username", map[string]string{"username": "ab", "email": "a@b.com", "password": "hunter2hunter2"}, http.StatusBadRequest},
		{"bad characters", map[string]string{"username": "al ice!", "email": "a@b.com", "password": "hunter2hunter2"}, http.StatusBadRequest},
		{"missing email", map[string]string{"username": "alice", "password": "hunter2hunter2"}, http.StatusBadRequest},
		{"weak password", map[string]string{"username": "alice", "email": "a@b.com", "password": "short"}, http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/auth/register", "", tc.body)
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d (body: %s)", rec.Code, tc.want, rec.Body.String())
			}
		})
	}
}

func TestRegisterDuplicate(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "alice")

	rec := env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "alice", "email": "other@example.com", "password": "hunter2hunter2",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate username: status %d, want 409", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "alice2", "email": "alice@example.com", "password": "hunter2hunter2",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate email: status %d, want 409", rec.Code)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "alice")

	for name, body := range map[string]map[string]string{
		"wrong password": {"username": "alice", "password": "not-the-password"},
		"unknown user":   {"username": "nobody", "password": "hunter2hunter2"},
	} {
		rec := env.do(t, http.MethodPost, "/api/auth/login", "", body)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: status %d, want 401", name, rec.Code)
		}
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)

	paths := []struct {
		method, path string
	}{
		{http.MethodGet, "/api/users/me"},
		{http.MethodGet, "/api/portfolios"},
		{http.MethodGet, "/api/watchlist"},
		{http.MethodGet, "/api/alerts"},
		{http.MethodPost, "/api/market/refresh"},
	}
	for _, p := range paths {
		rec := env.do(t, p.method, p.path, "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: status %d, want 401", p.method, p.path, rec.Code)
		}
	}
}

func TestInvalidBearerToken(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/users/me", "garbage.token.here", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if rec.Header().Get("WWW-Authenticate") == "" {
		t.Error("missing WWW-Authenticate challenge")
	}
}

func TestHealthAndVersionArePublic(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/api/health", "/api/version"} {
		rec := env.do(t, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status %d, want 200", path, rec.Code)
		}
	}
}
