// ABOUTME: Google OAuth login flow with email allow-list
// ABOUTME: Redirect handshake, state cookie validation, and session issuance

package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// ErrEmailNotAllowed is returned when a verified email is absent from a
// non-empty allow-list.
var ErrEmailNotAllowed = errors.New("email not allowed")

// stateCookieName holds the OAuth state between redirect and callback.
const stateCookieName = "dushu_oauth_state"

// stateTTL bounds how long a login redirect may stay pending.
const stateTTL = 10 * time.Minute

// googleUserInfoURL is where the verified profile is fetched after the
// code exchange. Overridden in tests.
const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// GoogleAuthenticator implements the redirect-based Google sign-in flow.
type GoogleAuthenticator struct {
	oauth       *oauth2.Config
	allowed     map[string]bool // lowercased; empty means any verified account
	codec       *TokenCodec
	userInfoURL string
	logger      *slog.Logger
}

// GoogleConfig carries the provider credentials and allow-list.
type GoogleConfig struct {
	ClientID      string
	ClientSecret  string
	RedirectURL   string
	AllowedEmails []string
}

// NewGoogleAuthenticator creates the Google sign-in flow. Allow-list
// entries are lowercased at load.
func NewGoogleAuthenticator(cfg GoogleConfig, codec *TokenCodec, logger *slog.Logger) *GoogleAuthenticator {
	allowed := make(map[string]bool, len(cfg.AllowedEmails))
	for _, email := range cfg.AllowedEmails {
		allowed[strings.ToLower(strings.TrimSpace(email))] = true
	}

	return &GoogleAuthenticator{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		allowed:     allowed,
		codec:       codec,
		userInfoURL: googleUserInfoURL,
		logger:      logger.With("component", "google-auth"),
	}
}

// HandleLogin starts the handshake: random state in a short-lived cookie,
// then redirect to the provider.
func (g *GoogleAuthenticator) HandleLogin(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   int(stateTTL.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, g.oauth.AuthCodeURL(state), http.StatusFound)
}

// userInfo is the subset of the Google userinfo response we use.
type userInfo struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// HandleCallback finishes the handshake: validate state, exchange the
// code, fetch the verified profile, apply the allow-list, issue the
// session cookie, and send the user back to the app.
func (g *GoogleAuthenticator) HandleCallback(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(stateCookieName)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		writeAuthError(w, http.StatusBadRequest, "Invalid state")
		return
	}
	// State is single-use
	http.SetCookie(w, &http.Cookie{Name: stateCookieName, Value: "", Path: "/", MaxAge: -1})

	code := r.URL.Query().Get("code")
	if code == "" {
		writeAuthError(w, http.StatusBadRequest, "Missing code")
		return
	}

	token, err := g.oauth.Exchange(r.Context(), code)
	if err != nil {
		g.logger.Error("code exchange failed", "error", err)
		writeAuthError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	info, err := g.fetchUserInfo(r, token)
	if err != nil {
		g.logger.Error("fetching userinfo failed", "error", err)
		writeAuthError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	email := strings.ToLower(info.Email)
	if email == "" {
		writeAuthError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	if len(g.allowed) > 0 && !g.allowed[email] {
		g.logger.Warn("login rejected", "email", email, "reason", "not on allow-list")
		writeAuthError(w, http.StatusForbidden, "Email not allowed")
		return
	}

	sess := Session{Authenticated: true, User: email, Name: info.Name}
	if err := g.codec.SetSessionCookie(w, r, sess); err != nil {
		g.logger.Error("issuing session failed", "error", err)
		writeAuthError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	g.logger.Info("user logged in", "user", email)
	http.Redirect(w, r, "/", http.StatusFound)
}

// fetchUserInfo retrieves the verified email and display name using the
// exchanged token.
func (g *GoogleAuthenticator) fetchUserInfo(r *http.Request, token *oauth2.Token) (*userInfo, error) {
	client := g.oauth.Client(r.Context(), token)
	resp, err := client.Get(g.userInfoURL)
	if err != nil {
		return nil, fmt.Errorf("requesting userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}

	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decoding userinfo: %w", err)
	}
	return &info, nil
}

func writeAuthError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
