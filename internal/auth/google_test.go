// ABOUTME: Tests for the Google OAuth login flow
// ABOUTME: Uses a fake provider for token exchange and userinfo fetching

package auth

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

// fakeProvider stands in for Google's token and userinfo endpoints.
func fakeProvider(t *testing.T, email, name string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "fake-access-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"email": email, "name": name})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestGoogleAuth(t *testing.T, provider *httptest.Server, allowed []string) *GoogleAuthenticator {
	t.Helper()
	codec := NewTokenCodec(testSecret, time.Hour)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	g := NewGoogleAuthenticator(GoogleConfig{
		ClientID:      "client-id",
		ClientSecret:  "client-secret",
		RedirectURL:   "http://localhost/auth/google/callback",
		AllowedEmails: allowed,
	}, codec, logger)
	g.oauth.Endpoint = oauth2.Endpoint{
		AuthURL:  provider.URL + "/auth",
		TokenURL: provider.URL + "/token",
	}
	g.userInfoURL = provider.URL + "/userinfo"
	return g
}

// loginState runs HandleLogin and returns the issued state cookie.
func loginState(t *testing.T, g *GoogleAuthenticator) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	g.HandleLogin(rec, httptest.NewRequest(http.MethodGet, "/auth/google", nil))

	if rec.Code != http.StatusFound {
		t.Fatalf("login status = %d, want 302", rec.Code)
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == stateCookieName {
			return c
		}
	}
	t.Fatal("no state cookie issued")
	return nil
}

func TestGoogleCallback_Success(t *testing.T) {
	provider := fakeProvider(t, "Alice@Example.com", "Alice")
	g := newTestGoogleAuth(t, provider, nil)
	state := loginState(t, g)

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?state="+state.Value+"&code=fake-code", nil)
	req.AddCookie(state)
	rec := httptest.NewRecorder()
	g.HandleCallback(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("callback status = %d, want 302: %s", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != "/" {
		t.Errorf("redirect location = %q, want /", loc)
	}

	var sessionCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookieName {
			sessionCookie = c
		}
	}
	if sessionCookie == nil {
		t.Fatal("no session cookie issued")
	}

	sess, err := g.codec.Verify(sessionCookie.Value)
	if err != nil {
		t.Fatalf("session token does not verify: %v", err)
	}
	if sess.User != "alice@example.com" {
		t.Errorf("session user = %q, want lowercased email", sess.User)
	}
	if sess.Name != "Alice" {
		t.Errorf("session name = %q", sess.Name)
	}
}

func TestGoogleCallback_StateMismatch(t *testing.T) {
	provider := fakeProvider(t, "alice@example.com", "Alice")
	g := newTestGoogleAuth(t, provider, nil)
	state := loginState(t, g)

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?state=somebody-else&code=fake-code", nil)
	req.AddCookie(state)
	rec := httptest.NewRecorder()
	g.HandleCallback(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookieName {
			t.Error("session cookie issued despite state mismatch")
		}
	}
}

func TestGoogleCallback_MissingStateCookie(t *testing.T) {
	provider := fakeProvider(t, "alice@example.com", "Alice")
	g := newTestGoogleAuth(t, provider, nil)

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?state=whatever&code=fake-code", nil)
	rec := httptest.NewRecorder()
	g.HandleCallback(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestGoogleCallback_EmailNotAllowed(t *testing.T) {
	provider := fakeProvider(t, "mallory@example.com", "Mallory")
	g := newTestGoogleAuth(t, provider, []string{"Alice@Example.com"})
	state := loginState(t, g)

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?state="+state.Value+"&code=fake-code", nil)
	req.AddCookie(state)
	rec := httptest.NewRecorder()
	g.HandleCallback(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookieName {
			t.Error("session cookie issued for disallowed email")
		}
	}
}

func TestGoogleCallback_AllowListIsCaseInsensitive(t *testing.T) {
	provider := fakeProvider(t, "ALICE@example.COM", "Alice")
	g := newTestGoogleAuth(t, provider, []string{"alice@example.com"})
	state := loginState(t, g)

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?state="+state.Value+"&code=fake-code", nil)
	req.AddCookie(state)
	rec := httptest.NewRecorder()
	g.HandleCallback(rec, req)

	if rec.Code != http.StatusFound {
		t.Errorf("status = %d, want 302", rec.Code)
	}
}
