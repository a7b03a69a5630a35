// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/sessionguard/internal/clock"
)

// Sessions tracks idle-timeout sessions by token. A session expires when it
// has not been touched for the idle window. Expired sessions are kept as
// tombstones for one more window so status queries can still answer 0.
type Sessions struct {
	clk    clock.Clock
	window time.Duration

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	created  time.Time
	lastSeen time.Time
}

// NewSessions creates a store with the given idle window.
func NewSessions(clk clock.Clock, window time.Duration) *Sessions {
	if clk == nil {
		clk = clock.New()
	}
	return &Sessions{
		clk:      clk,
		window:   window,
		sessions: make(map[string]*session),
	}
}

// Window returns the idle window.
func (s *Sessions) Window() time.Duration {
	return s.window
}

// Login starts a session and returns its token.
func (s *Sessions) Login() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clk.Now()
	s.sweepLocked(now)
	token := uuid.NewString()
	s.sessions[token] = &session{created: now, lastSeen: now}
	return token
}

// Remaining returns the whole seconds left before the session expires,
// rounded down. ok is false for unknown tokens.
func (s *Sessions) Remaining(token string) (seconds int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		return 0, false
	}
	left := sess.lastSeen.Add(s.window).Sub(s.clk.Now())
	if left <= 0 {
		return 0, true
	}
	return int(math.Floor(left.Seconds())), true
}

// Touch resets the idle window. Expired or unknown sessions are not revived.
func (s *Sessions) Touch(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		return false
	}
	now := s.clk.Now()
	if !now.Before(sess.lastSeen.Add(s.window)) {
		return false
	}
	sess.lastSeen = now
	return true
}

// Logout ends a session. It reports whether the token was known.
func (s *Sessions) Logout(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.sessions[token]
	delete(s.sessions, token)
	return ok
}

// Active returns the number of unexpired sessions.
func (s *Sessions) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clk.Now()
	n := 0
	for _, sess := range s.sessions {
		if now.Before(sess.lastSeen.Add(s.window)) {
			n++
		}
	}
	return n
}

// sweepLocked drops tombstones older than one extra window.
func (s *Sessions) sweepLocked(now time.Time) {
	for token, sess := range s.sessions {
		if now.Sub(sess.lastSeen) >= 2*s.window {
			delete(s.sessions, token)
		}
	}
}
