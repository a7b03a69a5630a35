// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package coordinator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// STATE
// =============================================================================

// State is the coordinator's position in the session lifecycle.
type State int

const (
	// StateInactive means not authenticated. No timers are armed.
	StateInactive State = iota
	// StateArmed means timers are scheduled and no warning is showing.
	StateArmed
	// StateWarning means the countdown is visible and ticking.
	StateWarning
	// StateLoggedOut is terminal until the next Activate.
	StateLoggedOut
)

func (s State) String() string {
	switch s {
	case StateInactive:
		return "inactive"
	case StateArmed:
		return "armed"
	case StateWarning:
		return "warning"
	case StateLoggedOut:
		return "logged_out"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Active reports whether the state holds armed timers.
func (s State) Active() bool {
	return s == StateArmed || s == StateWarning
}

// Reason says what triggered a logout.
type Reason int

const (
	// ReasonTimeout is the local countdown reaching zero.
	ReasonTimeout Reason = iota
	// ReasonRemote is a logout announced by another instance.
	ReasonRemote
	// ReasonManual is an explicit Logout call.
	ReasonManual
)

func (r Reason) String() string {
	switch r {
	case ReasonTimeout:
		return "timeout"
	case ReasonRemote:
		return "remote"
	case ReasonManual:
		return "manual"
	default:
		return fmt.Sprintf("Reason(%d)", int(r))
	}
}

// =============================================================================
// COLLABORATORS
// =============================================================================

// Oracle is the server's view of the session.
type Oracle interface {
	// Remaining returns the whole seconds left before forced logout.
	Remaining(ctx context.Context) (int, error)
	// KeepAlive resets the server's inactivity clock.
	KeepAlive(ctx context.Context) error
}

// LogoutFunc performs the host's logout. It may be called from a timer or
// store goroutine.
type LogoutFunc func(ctx context.Context, reason Reason) error

// =============================================================================
// OBSERVABLES
// =============================================================================

// Countdown is emitted on every tick and every state transition.
// Remaining is nil when no warning is active.
type Countdown struct {
	State     State
	Remaining *int
}

// Active reports whether a warning countdown is visible.
func (c Countdown) Active() bool {
	return c.Remaining != nil
}

func (c Countdown) String() string {
	if c.Remaining == nil {
		return c.State.String()
	}
	return fmt.Sprintf("%s remaining=%d", c.State, *c.Remaining)
}

// Status is a point-in-time snapshot of a coordinator.
type Status struct {
	ID    string
	State State
	// Remaining is the warning countdown, nil outside StateWarning.
	Remaining *int
	// Window is the total seconds of the current schedule.
	Window        int
	ScheduledAt   time.Time
	ExpiresAt     time.Time
	LastKeepAlive time.Time
	Listening     bool
}

// =============================================================================
// CONFIG
// =============================================================================

// DefaultActivityEvents are the input kinds that count as user activity.
var DefaultActivityEvents = []string{
	"click", "mousedown", "mousemove", "keydown", "keypress", "scroll", "touchstart",
}

// Config controls timing. The zero value is not usable; start from
// DefaultConfig.
type Config struct {
	// SessionMinutes is the fallback window when the oracle cannot answer.
	SessionMinutes int
	// WarningSeconds is the countdown lead before forced logout.
	WarningSeconds int
	// KeepAliveInterval is the minimum gap between activity-driven
	// keep-alive calls. Zero disables throttling.
	KeepAliveInterval time.Duration
	// ActivityEvents lists the kinds Activity reacts to.
	ActivityEvents []string
	// OracleTimeout bounds each oracle call.
	OracleTimeout time.Duration
}

// DefaultConfig returns the canonical timing: a 15 minute window with a 30
// second warning and at most one keep-alive per minute.
func DefaultConfig() Config {
	return Config{
		SessionMinutes:    15,
		WarningSeconds:    30,
		KeepAliveInterval: 60 * time.Second,
		ActivityEvents:    append([]string(nil), DefaultActivityEvents...),
		OracleTimeout:     10 * time.Second,
	}
}

// DefaultWindow is the fallback window in seconds.
func (c Config) DefaultWindow() int {
	return c.SessionMinutes * 60
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch {
	case c.SessionMinutes <= 0:
		return fmt.Errorf("%w: session minutes must be positive, got %d", ErrInvalidConfig, c.SessionMinutes)
	case c.WarningSeconds < 0:
		return fmt.Errorf("%w: warning seconds must not be negative, got %d", ErrInvalidConfig, c.WarningSeconds)
	case c.KeepAliveInterval < 0:
		return fmt.Errorf("%w: keep-alive interval must not be negative, got %s", ErrInvalidConfig, c.KeepAliveInterval)
	case c.OracleTimeout < 0:
		return fmt.Errorf("%w: oracle timeout must not be negative, got %s", ErrInvalidConfig, c.OracleTimeout)
	}
	return nil
}

func (c Config) monitors(kind string) bool {
	kind = strings.ToLower(strings.TrimSpace(kind))
	if kind == "" {
		return false
	}
	for _, ev := range c.ActivityEvents {
		if strings.EqualFold(ev, kind) {
			return true
		}
	}
	return false
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrClosed is returned by entry points after Close.
	ErrClosed = errors.New("coordinator closed")
	// ErrNotActive is returned when an operation needs an armed session.
	ErrNotActive = errors.New("session not active")
	// ErrInvalidConfig wraps Config validation failures.
	ErrInvalidConfig = errors.New("invalid coordinator config")
)
