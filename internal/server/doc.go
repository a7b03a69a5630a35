// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server is a reference session oracle for exercising the
// coordinator end to end. It is not a production backend.
//
// # Endpoints
//
//   - GET  /auth/session-status - {"remainingSeconds": n} for the caller's session
//   - POST /auth/keep-alive     - resets the caller's idle window
//   - POST /auth/login          - issues a token (also set as a cookie)
//   - POST /auth/logout         - ends the caller's session
//   - GET  /health              - liveness and session count
//
// Callers authenticate with "Authorization: Bearer <token>" or the
// sessionguard_token cookie. An expired session still answers
// session-status with 0 until it is swept; keep-alive on it fails with 401.
//
// # Middleware
//
// Requests pass through recovery, logging, security headers, CORS and a
// per-IP token bucket (golang.org/x/time/rate), in that order.
//
// # Usage
//
//	srv := server.NewServer(cfg.Server)
//	go srv.Start()
//	defer srv.Shutdown(ctx)
package server
