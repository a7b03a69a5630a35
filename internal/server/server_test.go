// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/sessionguard/internal/clock"
	"github.com/jeranaias/sessionguard/internal/config"
	"github.com/jeranaias/sessionguard/internal/oracle"
)

var start = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) (*Server, *clock.Fake) {
	t.Helper()
	clk := clock.NewFake(start)
	cfg := config.Default().Server
	cfg.RateLimit = 0
	srv := NewServer(cfg).WithClock(clk).WithLogger(log.New(io.Discard, "", 0))
	return srv, clk
}

func do(t *testing.T, h http.Handler, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := do(t, h, http.MethodPost, LoginPath, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	assert.Equal(t, 900, resp.RemainingSeconds)
	return resp.Token
}

func remainingOf(t *testing.T, rec *httptest.ResponseRecorder) int {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.RemainingSeconds
}

// =============================================================================
// CONSTRUCTION
// =============================================================================

func TestNewServer_FillsDefaults(t *testing.T) {
	srv := NewServer(config.ServerConfig{})
	assert.Equal(t, config.Default().Server.Listen, srv.Addr())
	assert.Equal(t, 15*time.Minute, srv.Sessions().Window())
}

func TestNewServer_AllowedOrigins(t *testing.T) {
	srv := NewServer(config.ServerConfig{AllowedOrigins: []string{"https://app.example"}})
	assert.Equal(t, []string{"https://app.example"}, srv.cors.AllowedOrigins)
}

// =============================================================================
// SESSION ENDPOINTS
// =============================================================================

func TestStatus_CountsDown(t *testing.T) {
	srv, clk := newTestServer(t)
	h := srv.Handler()
	token := login(t, h)

	assert.Equal(t, 900, remainingOf(t, do(t, h, http.MethodGet, oracle.DefaultStatusPath, token)))

	clk.Advance(100*time.Second + 500*time.Millisecond)
	assert.Equal(t, 799, remainingOf(t, do(t, h, http.MethodGet, oracle.DefaultStatusPath, token)))
}

func TestKeepAlive_ExtendsWindow(t *testing.T) {
	srv, clk := newTestServer(t)
	h := srv.Handler()
	token := login(t, h)

	clk.Advance(5 * time.Minute)
	assert.Equal(t, 600, remainingOf(t, do(t, h, http.MethodGet, oracle.DefaultStatusPath, token)))

	assert.Equal(t, 900, remainingOf(t, do(t, h, http.MethodPost, oracle.DefaultKeepAlivePath, token)))
	assert.Equal(t, 900, remainingOf(t, do(t, h, http.MethodGet, oracle.DefaultStatusPath, token)))
}

func TestExpiredSession(t *testing.T) {
	srv, clk := newTestServer(t)
	h := srv.Handler()
	token := login(t, h)

	clk.Advance(15 * time.Minute)
	assert.Equal(t, 0, remainingOf(t, do(t, h, http.MethodGet, oracle.DefaultStatusPath, token)))

	rec := do(t, h, http.MethodPost, oracle.DefaultKeepAlivePath, token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, srv.Sessions().Active())
}

func TestUnknownToken(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	for _, token := range []string{"", "nope"} {
		assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodGet, oracle.DefaultStatusPath, token).Code)
		assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodPost, oracle.DefaultKeepAlivePath, token).Code)
	}
}

func TestLogout(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()
	token := login(t, h)

	rec := do(t, h, http.MethodPost, LogoutPath, token)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodGet, oracle.DefaultStatusPath, token).Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodPost, LogoutPath, token).Code)
}

func TestCookieToken(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	rec := do(t, h, http.MethodPost, LoginPath, "")
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	req := httptest.NewRequest(http.MethodGet, oracle.DefaultStatusPath, nil)
	req.AddCookie(cookies[0])
	out := httptest.NewRecorder()
	h.ServeHTTP(out, req)
	assert.Equal(t, 900, remainingOf(t, out))
}

func TestTokenFrom(t *testing.T) {
	tests := []struct {
		name, header, want string
	}{
		{"bearer", "Bearer abc", "abc"},
		{"case insensitive", "bearer abc", "abc"},
		{"basic ignored", "Basic abc", ""},
		{"malformed", "Bearer", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", tt.header)
			assert.Equal(t, tt.want, tokenFrom(req))
		})
	}
}

func TestWrongMethod(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := do(t, srv.Handler(), http.MethodGet, oracle.DefaultKeepAlivePath, "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()
	login(t, h)
	login(t, h)

	rec := do(t, h, http.MethodGet, HealthPath, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var health HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, Version, health.Version)
	assert.Equal(t, 2, health.ActiveSessions)
	assert.Equal(t, 900, health.WindowSeconds)
}

// =============================================================================
// SESSIONS
// =============================================================================

func TestSessions_TombstonesAreSwept(t *testing.T) {
	clk := clock.NewFake(start)
	s := NewSessions(clk, time.Minute)
	old := s.Login()

	clk.Advance(90 * time.Second)
	_, ok := s.Remaining(old)
	assert.True(t, ok, "tombstone kept for one extra window")

	clk.Advance(30 * time.Second)
	s.Login()
	_, ok = s.Remaining(old)
	assert.False(t, ok)
}

func TestSessions_TouchDoesNotRevive(t *testing.T) {
	clk := clock.NewFake(start)
	s := NewSessions(clk, time.Minute)
	token := s.Login()

	clk.Advance(59 * time.Second)
	assert.True(t, s.Touch(token))
	clk.Advance(time.Minute)
	assert.False(t, s.Touch(token))
	assert.False(t, s.Touch("unknown"))
}

// =============================================================================
// END TO END
// =============================================================================

func TestOracleClientAgainstServer(t *testing.T) {
	srv, clk := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	token := login(t, srv.Handler())
	cfg := oracle.DefaultConfig()
	cfg.BaseURL = ts.URL
	cfg.Token = token
	client := oracle.NewClientWithConfig(cfg)

	ctx := context.Background()
	remaining, err := client.Remaining(ctx)
	require.NoError(t, err)
	assert.Equal(t, 900, remaining)

	clk.Advance(10 * time.Minute)
	remaining, err = client.Remaining(ctx)
	require.NoError(t, err)
	assert.Equal(t, 300, remaining)

	require.NoError(t, client.KeepAlive(ctx))
	remaining, err = client.Remaining(ctx)
	require.NoError(t, err)
	assert.Equal(t, 900, remaining)

	cfg.Token = "stale"
	_, err = oracle.NewClientWithConfig(cfg).Remaining(ctx)
	assert.True(t, oracle.IsUnauthorized(err))
}

func TestServeAndShutdown(t *testing.T) {
	srv, _ := newTestServer(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + HealthPath)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	assert.NoError(t, <-done)
}

func TestShutdownBeforeStart(t *testing.T) {
	srv, _ := newTestServer(t)
	assert.NoError(t, srv.Shutdown(context.Background()))
}
