// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package coordinator

import (
	"github.com/jeranaias/sessionguard/internal/broadcast"
	"github.com/jeranaias/sessionguard/internal/clock"
	"github.com/jeranaias/sessionguard/internal/eventlog"
)

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithOracle sets the server oracle. Without one the coordinator runs in
// pure client mode: every window is the configured default.
func WithOracle(o Oracle) Option {
	return func(c *Coordinator) {
		c.oracle = o
	}
}

// WithStore sets the shared store used for cross-instance signals. The
// caller keeps ownership and closes it.
func WithStore(s broadcast.Store) Option {
	return func(c *Coordinator) {
		c.store = s
	}
}

// WithClock replaces the wall clock.
func WithClock(clk clock.Clock) Option {
	return func(c *Coordinator) {
		if clk != nil {
			c.clk = clk
		}
	}
}

// WithLogger sets the event logger.
func WithLogger(l *eventlog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = l
	}
}

// WithID overrides the generated instance identifier.
func WithID(id string) Option {
	return func(c *Coordinator) {
		if id != "" {
			c.id = id
		}
	}
}

// OnLogout sets the host's logout function.
func OnLogout(fn LogoutFunc) Option {
	return func(c *Coordinator) {
		c.onLogout = fn
	}
}

// OnWarning is called once each time the warning phase begins.
func OnWarning(fn func(remaining int)) Option {
	return func(c *Coordinator) {
		c.onWarning = fn
	}
}

// OnCountdown receives every Countdown.
func OnCountdown(fn func(Countdown)) Option {
	return func(c *Coordinator) {
		c.onCountdown = fn
	}
}

// OnKeepAliveError is called when an explicit KeepAlive fails.
func OnKeepAliveError(fn func(error)) Option {
	return func(c *Coordinator) {
		c.onKeepAliveError = fn
	}
}
