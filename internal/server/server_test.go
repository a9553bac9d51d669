// ABOUTME: Tests for server construction, variant route registration, and lifecycle
// ABOUTME: Verifies only the active auth variant's routes exist

package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/dushu/internal/config"
)

func testDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func googleTestConfig(t *testing.T) *config.Config {
	cfg := testConfig(t)
	cfg.Auth.Mode = config.ModeGoogle
	cfg.Auth.Password = ""
	cfg.Auth.Google = config.GoogleConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
	}
	return cfg
}

func TestRoutes_PasswordMode(t *testing.T) {
	s := newTestServer(t, testConfig(t))

	// Login route exists
	rec := doJSON(s, http.MethodPost, "/api/login", `{"password":"nope"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Google routes do not
	rec = doJSON(s, http.MethodGet, "/auth/google", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = doJSON(s, http.MethodGet, "/auth/google/callback", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRoutes_GoogleMode(t *testing.T) {
	s := newTestServer(t, googleTestConfig(t))

	// Password login does not exist
	rec := doJSON(s, http.MethodPost, "/api/login", `{"password":"sesame"}`, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Google login redirects to the provider
	rec = doJSON(s, http.MethodGet, "/auth/google", "", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "client_id=client-id")
}

func TestRoutes_StaticSurface(t *testing.T) {
	s := newTestServer(t, testConfig(t))

	rec := doJSON(s, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "dushu")

	rec = doJSON(s, http.MethodGet, "/static/style.css", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(s, http.MethodGet, "/help", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "<h1"))

	// Root pattern is exact: unknown paths are 404
	rec = doJSON(s, http.MethodGet, "/no-such-page", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNew_UnknownModeFails(t *testing.T) {
	cfg := testConfig(t)
	cfg.Auth.Mode = "ldap"

	_, err := New(cfg, testDiscardLogger())
	require.Error(t, err)
}

func TestRun_GracefulShutdown(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.HTTPAddr = "127.0.0.1:0"
	s := newTestServer(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	// Give the listener a moment, then cancel
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}
