// ABOUTME: Server orchestrator that builds routes and manages lifecycle
// ABOUTME: Wires store, dictionary, OCR, and auth; serves over TCP or tsnet

package server

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"tailscale.com/tsnet"

	"github.com/2389/dushu/internal/auth"
	"github.com/2389/dushu/internal/config"
	"github.com/2389/dushu/internal/dict"
	"github.com/2389/dushu/internal/ocr"
	"github.com/2389/dushu/internal/store"
	"github.com/2389/dushu/internal/web"
)

// textDetector is the OCR collaborator as the handlers see it.
type textDetector interface {
	DetectText(ctx context.Context, imageBase64 string) (string, error)
}

// Server orchestrates the dushu HTTP server components.
type Server struct {
	config      *config.Config
	store       store.Store
	dict        *dict.Dict
	ocr         textDetector
	codec       *auth.TokenCodec
	password    *auth.PasswordAuthenticator // password mode only
	google      *auth.GoogleAuthenticator   // google mode only
	handler     http.Handler
	httpServer  *http.Server
	tsnetServer *tsnet.Server
	logger      *slog.Logger
}

// initStore creates a store based on config and environment.
func initStore(cfg *config.Config) (store.Store, error) {
	dbPath := cfg.Store.DBPath
	if envPath := os.Getenv("DUSHU_DB_PATH"); envPath != "" {
		dbPath = envPath
	}

	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}
	return s, nil
}

// sessionSecret returns the configured signing secret. Password mode may
// run without one: sessions then die with the process, which the original
// single-user deployments accepted.
func sessionSecret(cfg *config.Config, logger *slog.Logger) ([]byte, error) {
	if cfg.Auth.SessionSecret != "" {
		return []byte(cfg.Auth.SessionSecret), nil
	}
	logger.Warn("no session_secret configured, using a random per-process key (sessions will not survive restarts)")
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generating session secret: %w", err)
	}
	return secret, nil
}

// New creates a Server: opens the store, loads the dictionary, and builds
// the route table for the configured auth mode.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	s, err := initStore(cfg)
	if err != nil {
		return nil, err
	}

	d, err := dict.Load(cfg.Dict.Path, logger.With("component", "dict"))
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("loading dictionary: %w", err)
	}

	secret, err := sessionSecret(cfg, logger)
	if err != nil {
		s.Close()
		return nil, err
	}
	codec := auth.NewTokenCodec(secret, cfg.Auth.SessionTTL)

	srv := &Server{
		config: cfg,
		store:  s,
		dict:   d,
		ocr:    ocr.New(cfg.Vision.APIKey, cfg.Vision.Timeout, logger),
		codec:  codec,
		logger: logger.With("component", "server"),
	}

	switch cfg.Auth.Mode {
	case config.ModePassword:
		srv.password, err = auth.NewPasswordAuthenticator(cfg.Auth.Password, cfg.Auth.PasswordBcrypt)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("configuring password auth: %w", err)
		}
	case config.ModeGoogle:
		srv.google = auth.NewGoogleAuthenticator(auth.GoogleConfig{
			ClientID:      cfg.Auth.Google.ClientID,
			ClientSecret:  cfg.Auth.Google.ClientSecret,
			RedirectURL:   cfg.Auth.Google.RedirectURL,
			AllowedEmails: cfg.Auth.Google.AllowedEmails,
		}, codec, logger)
	default:
		s.Close()
		return nil, fmt.Errorf("unknown auth mode %q", cfg.Auth.Mode)
	}

	handler, err := srv.routes()
	if err != nil {
		s.Close()
		return nil, err
	}
	srv.handler = handler
	srv.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return srv, nil
}

// routes builds the full route table. Only the active auth variant's
// login routes are registered.
func (s *Server) routes() (http.Handler, error) {
	mux := http.NewServeMux()

	mux.Handle("GET /{$}", web.ShellHandler())
	mux.Handle("GET /static/", http.StripPrefix("/static/", web.StaticHandler()))

	helpHandler, err := web.HelpHandler()
	if err != nil {
		return nil, err
	}
	mux.Handle("GET /help", helpHandler)

	if s.password != nil {
		mux.HandleFunc("POST /api/login", s.handleLogin)
	}
	if s.google != nil {
		mux.HandleFunc("GET /auth/google", s.google.HandleLogin)
		mux.HandleFunc("GET /auth/google/callback", s.google.HandleCallback)
	}

	mux.HandleFunc("POST /api/logout", s.handleLogout)
	mux.HandleFunc("GET /api/me", s.handleMe)
	mux.HandleFunc("GET /api/health", s.handleHealth)

	protected := auth.RequireSession(s.codec)
	mux.Handle("GET /api/data", protected(http.HandlerFunc(s.handleGetData)))
	mux.Handle("POST /api/data", protected(http.HandlerFunc(s.handlePutData)))
	mux.Handle("POST /api/ocr", protected(http.HandlerFunc(s.handleOCR)))
	mux.Handle("POST /api/lookup", protected(http.HandlerFunc(s.handleLookup)))

	return s.withRecovery(s.withRequestLog(mux)), nil
}

// Run starts the server and blocks until the context is canceled or the
// server fails. Returns nil on graceful shutdown.
func (s *Server) Run(ctx context.Context) error {
	ln, err := s.setupListener(ctx)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		s.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		s.logger.Error("server error", "error", serverErr)
	}

	shutdownErr := s.gracefulShutdown()
	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// setupListener creates a listener based on configuration (Tailscale or TCP).
func (s *Server) setupListener(ctx context.Context) (net.Listener, error) {
	if s.config.Tailscale.Enabled {
		return s.setupTailscaleListener(ctx)
	}
	return net.Listen("tcp", s.config.Server.HTTPAddr)
}

// resolveTailscaleStateDir returns the state directory, using the data
// dir default if not configured.
func resolveTailscaleStateDir(configured string) string {
	if configured != "" {
		return configured
	}
	return filepath.Join(config.DataDir(), "tailscale")
}

// setupTailscaleListener starts a tsnet node and returns its listener.
func (s *Server) setupTailscaleListener(ctx context.Context) (net.Listener, error) {
	tsCfg := s.config.Tailscale

	if s.config.Server.HTTPAddr != "" {
		s.logger.Warn("server.http_addr is ignored when tailscale is enabled", "http_addr", s.config.Server.HTTPAddr)
	}

	stateDir := resolveTailscaleStateDir(tsCfg.StateDir)
	if err := os.MkdirAll(stateDir, 0700); err != nil {
		return nil, fmt.Errorf("creating tailscale state dir: %w", err)
	}

	authKey := tsCfg.AuthKey
	if authKey == "" {
		return nil, errors.New("tailscale auth key required: set tailscale.auth_key in config or TS_AUTHKEY environment variable")
	}

	s.tsnetServer = &tsnet.Server{
		Hostname:  tsCfg.Hostname,
		Dir:       stateDir,
		Ephemeral: tsCfg.Ephemeral,
		AuthKey:   authKey,
	}

	s.logger.Info("starting tailscale node", "hostname", tsCfg.Hostname, "state_dir", stateDir, "ephemeral", tsCfg.Ephemeral)
	status, err := s.tsnetServer.Up(ctx)
	if err != nil {
		_ = s.tsnetServer.Close()
		return nil, fmt.Errorf("starting tailscale: %w", err)
	}
	if status.Self != nil {
		s.logger.Info("tailscale node ready", "dns_name", status.Self.DNSName)
	}

	if tsCfg.Funnel {
		s.logger.Info("enabling tailscale funnel (public HTTPS) on :443")
		ln, err := s.tsnetServer.ListenFunnel("tcp", ":443")
		if err != nil {
			_ = s.tsnetServer.Close()
			return nil, fmt.Errorf("listening on tailscale funnel: %w", err)
		}
		return ln, nil
	}

	ln, err := s.tsnetServer.Listen("tcp", ":80")
	if err != nil {
		_ = s.tsnetServer.Close()
		return nil, fmt.Errorf("listening on tailscale HTTP port: %w", err)
	}
	return ln, nil
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
// Uses context.Background() intentionally since the original context is
// already canceled.
func (s *Server) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Shutdown(ctx)
}

// appendCloseError appends an error with label if err is non-nil.
func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}

// Shutdown gracefully stops the server and releases resources.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")

	var errs []error
	errs = appendCloseError(errs, "HTTP shutdown", s.httpServer.Shutdown(ctx))
	if s.tsnetServer != nil {
		errs = appendCloseError(errs, "tailscale shutdown", s.tsnetServer.Close())
	}
	errs = appendCloseError(errs, "store close", s.store.Close())

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}
