// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/sessionguard/internal/clock"
	"github.com/jeranaias/sessionguard/internal/config"
	"github.com/jeranaias/sessionguard/internal/oracle"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// LoginPath issues a new session token.
	LoginPath = "/auth/login"

	// LogoutPath ends the caller's session.
	LogoutPath = "/auth/logout"

	// HealthPath reports liveness.
	HealthPath = "/health"

	// CookieName carries the token for clients that do not send a bearer header.
	CookieName = "sessionguard_token"

	// Version is the server version.
	Version = "0.1.0"
)

// ============================================================================
// RESPONSES
// ============================================================================

// StatusResponse answers the session-status endpoint.
type StatusResponse struct {
	RemainingSeconds int `json:"remainingSeconds"`
}

// LoginResponse answers the login endpoint.
type LoginResponse struct {
	Token            string `json:"token"`
	RemainingSeconds int    `json:"remainingSeconds"`
}

// HealthResponse answers the health endpoint.
type HealthResponse struct {
	Status         string `json:"status"`
	Version        string `json:"version"`
	ActiveSessions int    `json:"active_sessions"`
	WindowSeconds  int    `json:"window_seconds"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ============================================================================
// SERVER
// ============================================================================

// Server is a reference session oracle: it issues tokens and answers the
// remaining-seconds and keep-alive endpoints the coordinator polls.
type Server struct {
	cfg      config.ServerConfig
	sessions *Sessions
	router   *http.ServeMux
	logger   *log.Logger
	limiter  *RateLimiter
	cors     *CORSConfig
	clk      clock.Clock

	mu     sync.Mutex
	server *http.Server
}

// NewServer creates a server from cfg. Call WithClock or WithLogger before
// Handler or Start.
func NewServer(cfg config.ServerConfig) *Server {
	if cfg.Listen == "" {
		cfg.Listen = config.Default().Server.Listen
	}
	if cfg.SessionMinutes < 1 {
		cfg.SessionMinutes = config.Default().Server.SessionMinutes
	}

	cors := DefaultCORSConfig()
	if len(cfg.AllowedOrigins) > 0 {
		cors.AllowedOrigins = append([]string(nil), cfg.AllowedOrigins...)
	}

	s := &Server{
		cfg:     cfg,
		router:  http.NewServeMux(),
		logger:  log.Default(),
		limiter: NewRateLimiter(cfg.RateLimit, cfg.RateBurst),
		cors:    cors,
		clk:     clock.New(),
	}
	s.sessions = NewSessions(s.clk, s.window())
	s.setupRoutes()
	return s
}

// WithClock replaces the clock, discarding existing sessions.
func (s *Server) WithClock(clk clock.Clock) *Server {
	s.clk = clk
	s.sessions = NewSessions(clk, s.window())
	return s
}

// WithLogger sets the request and event logger.
func (s *Server) WithLogger(logger *log.Logger) *Server {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Sessions exposes the session table.
func (s *Server) Sessions() *Sessions {
	return s.sessions
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.cfg.Listen
}

func (s *Server) window() time.Duration {
	return time.Duration(s.cfg.SessionMinutes) * time.Minute
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("GET "+oracle.DefaultStatusPath, s.handleStatus)
	s.router.HandleFunc("POST "+oracle.DefaultKeepAlivePath, s.handleKeepAlive)
	s.router.HandleFunc("POST "+LoginPath, s.handleLogin)
	s.router.HandleFunc("POST "+LogoutPath, s.handleLogout)
	s.router.HandleFunc("GET "+HealthPath, s.handleHealth)
}

// Handler returns the router wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	return Chain(
		RecoveryMiddleware(s.logger),
		LoggingMiddleware(s.logger),
		SecurityHeadersMiddleware(),
		CORSMiddleware(s.cors),
		RateLimitMiddleware(s.limiter, s.logger),
	)(s.router)
}

// ============================================================================
// HANDLERS
// ============================================================================

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	token := tokenFrom(r)
	remaining, ok := s.sessions.Remaining(token)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unknown session")
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{RemainingSeconds: remaining})
}

func (s *Server) handleKeepAlive(w http.ResponseWriter, r *http.Request) {
	token := tokenFrom(r)
	if !s.sessions.Touch(token) {
		s.logger.Printf("KEEPALIVE_REJECTED | ip=%s", GetClientIP(r))
		writeError(w, http.StatusUnauthorized, "session expired")
		return
	}
	remaining, _ := s.sessions.Remaining(token)
	writeJSON(w, http.StatusOK, StatusResponse{RemainingSeconds: remaining})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	token := s.sessions.Login()
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	s.logger.Printf("SESSION_LOGIN | ip=%s window=%s", GetClientIP(r), s.window())
	writeJSON(w, http.StatusOK, LoginResponse{
		Token:            token,
		RemainingSeconds: int(s.window().Seconds()),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if !s.sessions.Logout(tokenFrom(r)) {
		writeError(w, http.StatusUnauthorized, "unknown session")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: CookieName, Value: "", Path: "/", MaxAge: -1})
	s.logger.Printf("SESSION_LOGOUT | ip=%s", GetClientIP(r))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:         "ok",
		Version:        Version,
		ActiveSessions: s.sessions.Active(),
		WindowSeconds:  int(s.window().Seconds()),
	})
}

// tokenFrom reads a bearer token, falling back to the session cookie.
func tokenFrom(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		scheme, token, ok := strings.Cut(auth, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}

// ============================================================================
// LIFECYCLE
// ============================================================================

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve serves on ln until Shutdown. It returns nil after a clean shutdown.
func (s *Server) Serve(ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	s.mu.Lock()
	s.server = srv
	s.mu.Unlock()

	s.logger.Printf("SERVER_START | addr=%s version=%s window=%s", ln.Addr(), Version, s.window())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	s.logger.Printf("SERVER_SHUTDOWN | active_sessions=%d", s.sessions.Active())
	return srv.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
