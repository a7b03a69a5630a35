// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package coordinator runs one view's session lifecycle: it arms the
// warning and logout timers from the server's remaining time, keeps the
// session alive on user activity, and stays in step with sibling views
// through a shared signal store.
//
// # States
//
//	Inactive --Activate--> Armed --warning timer--> Warning --countdown 0--> LoggedOut
//	                         ^                         |
//	                         +-------KeepAlive---------+
//
// Deactivate returns any state to Inactive without logging out. A logout
// announced by another view moves an active coordinator to LoggedOut.
//
// All state is guarded by one mutex. Host callbacks, oracle calls and store
// writes happen with no lock held.
package coordinator

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/jeranaias/sessionguard/internal/broadcast"
	"github.com/jeranaias/sessionguard/internal/clock"
	"github.com/jeranaias/sessionguard/internal/eventlog"
	"github.com/jeranaias/sessionguard/internal/oracle"
	"github.com/jeranaias/sessionguard/internal/scheduler"
)

// Coordinator is the session state machine for one view.
type Coordinator struct {
	cfg    Config
	id     string
	clk    clock.Clock
	oracle Oracle
	store  broadcast.Store
	logger *eventlog.Logger
	bc     *broadcast.Broadcaster
	sched  *scheduler.Scheduler

	onLogout         LogoutFunc
	onWarning        func(int)
	onCountdown      func(Countdown)
	onKeepAliveError func(error)

	// ctx parents calls made from timers and remote signals.
	ctx    context.Context
	cancel context.CancelFunc

	mu            sync.Mutex
	state         State
	closed        bool
	activation    uint64
	loggedOut     *atomic.Bool
	limiter       *rate.Limiter
	window        int
	// serverWindow is the last window the oracle reported; 0 when unknown.
	serverWindow  int
	scheduledAt   time.Time
	lastKeepAlive time.Time
}

// New creates an inactive coordinator.
func New(cfg Config, opts ...Option) (*Coordinator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(cfg.ActivityEvents) == 0 {
		cfg.ActivityEvents = append([]string(nil), DefaultActivityEvents...)
	}
	if cfg.OracleTimeout == 0 {
		cfg.OracleTimeout = DefaultConfig().OracleTimeout
	}

	c := &Coordinator{
		cfg: cfg,
		id:  uuid.NewString(),
		clk: clock.New(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.bc = broadcast.NewBroadcaster(c.store, c.id, c.logger)
	c.sched = scheduler.New(c.clk, scheduler.Hooks{
		OnWarning: c.handleWarning,
		OnTick:    c.handleTick,
		OnExpire:  c.handleExpire,
	})
	return c, nil
}

// ID returns the instance identifier used in logs.
func (c *Coordinator) ID() string {
	return c.id
}

// Config returns the timing configuration.
func (c *Coordinator) Config() Config {
	return c.cfg
}

// =============================================================================
// ENTRY POINTS
// =============================================================================

// Activate moves an Inactive or LoggedOut coordinator to Armed. The window
// comes from the oracle, or from the configured default when the oracle is
// absent or fails. Activating an active coordinator does nothing.
func (c *Coordinator) Activate(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state.Active() {
		c.mu.Unlock()
		return nil
	}
	c.activation++
	act := c.activation
	c.state = StateArmed
	c.loggedOut = new(atomic.Bool)
	c.serverWindow = 0
	c.resetThrottleLocked()
	c.mu.Unlock()

	c.bc.Listen(c.handleRemote)

	remaining, fromOracle := c.fetchRemaining(ctx)

	c.mu.Lock()
	if c.activation != act || c.state != StateArmed {
		c.mu.Unlock()
		return nil
	}
	if fromOracle {
		c.serverWindow = remaining
	}
	// A remote signal may already have armed timers during the fetch.
	if c.scheduledAt.IsZero() {
		c.scheduleLocked(remaining)
	}
	cd := c.countdownLocked()
	c.mu.Unlock()

	c.logger.Event("SESSION_ARMED", c.id, fmt.Sprintf("remaining=%d oracle=%t", remaining, fromOracle))
	c.emit(cd)
	return nil
}

// Activity feeds one user input event. Unmonitored kinds and events outside
// StateArmed are ignored. The first event after each keep-alive interval
// calls the oracle's keep-alive; the rest only restart the local timers with
// the last window the oracle reported.
func (c *Coordinator) Activity(ctx context.Context, kind string) {
	if !c.cfg.monitors(kind) {
		return
	}

	c.mu.Lock()
	if c.closed || c.state != StateArmed {
		c.mu.Unlock()
		return
	}
	act := c.activation
	if !c.limiter.AllowN(c.clk.Now(), 1) {
		c.scheduleLocked(c.resetWindowLocked())
		cd := c.countdownLocked()
		c.mu.Unlock()

		c.logger.Debug("ACTIVITY_LOCAL_RESET", c.id, "kind="+kind)
		c.emit(cd)
		return
	}
	c.mu.Unlock()

	if err := c.extend(ctx, act); err != nil {
		c.logger.Error("ACTIVITY_KEEPALIVE_FAILED", c.id, err)
		return
	}
	c.logger.Event("SESSION_KEEPALIVE", c.id, "trigger=activity kind="+kind)
}

// KeepAlive is the "stay connected" action. It extends the server session,
// re-fetches the remaining time and returns to StateArmed. When the server
// call fails the local timers are still restarted with the default window
// and the error is returned after OnKeepAliveError. A rejected session is
// logged out instead.
func (c *Coordinator) KeepAlive(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if !c.state.Active() {
		c.mu.Unlock()
		return ErrNotActive
	}
	act := c.activation
	c.mu.Unlock()

	if err := c.extend(ctx, act); err != nil {
		c.logger.Error("KEEPALIVE_FAILED", c.id, err)
		if c.onKeepAliveError != nil && !oracle.IsUnauthorized(err) {
			c.onKeepAliveError(err)
		}
		return err
	}
	c.logger.Event("SESSION_KEEPALIVE", c.id, "trigger=user")
	return nil
}

// Deactivate returns to StateInactive, clearing timers and the store
// subscription without calling the logout function.
func (c *Coordinator) Deactivate() {
	c.mu.Lock()
	if c.state == StateInactive {
		c.mu.Unlock()
		return
	}
	c.activation++
	c.state = StateInactive
	c.loggedOut = nil
	c.clearScheduleLocked()
	cd := c.countdownLocked()
	c.mu.Unlock()

	c.bc.Stop()
	c.logger.Event("SESSION_DEACTIVATED", c.id, "")
	c.emit(cd)
}

// Logout ends an active session now and tells the other views.
func (c *Coordinator) Logout(ctx context.Context) error {
	c.mu.Lock()
	closed := c.closed
	active := c.state.Active()
	c.mu.Unlock()

	if closed {
		return ErrClosed
	}
	if !active || !c.logout(ctx, ReasonManual, true, nil) {
		return ErrNotActive
	}
	return nil
}

// Close tears the coordinator down: timers are stopped and the store
// subscription released. The store itself is left open. Safe to call more
// than once.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.activation++
	c.state = StateInactive
	c.loggedOut = nil
	c.clearScheduleLocked()
	c.mu.Unlock()

	c.bc.Stop()
	c.cancel()
	c.logger.Debug("COORDINATOR_CLOSED", c.id, "")
	return nil
}

// Status returns a snapshot.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Status{
		ID:            c.id,
		State:         c.state,
		Window:        c.window,
		ScheduledAt:   c.scheduledAt,
		LastKeepAlive: c.lastKeepAlive,
		Listening:     c.bc.Listening(),
	}
	if !c.scheduledAt.IsZero() {
		st.ExpiresAt = c.scheduledAt.Add(time.Duration(c.window) * time.Second)
	}
	st.Remaining = c.countdownLocked().Remaining
	return st
}

// State returns the current state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Countdown returns the current countdown value.
func (c *Coordinator) Countdown() Countdown {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.countdownLocked()
}

// =============================================================================
// SCHEDULER HOOKS
// =============================================================================

func (c *Coordinator) handleWarning(w scheduler.Warning) {
	c.mu.Lock()
	if c.closed || !c.state.Active() || !c.sched.Current(w.Epoch) {
		c.mu.Unlock()
		return
	}
	// A remote warning can re-sync a view that is already warning.
	entering := c.state != StateWarning
	c.state = StateWarning
	expiry := clock.UnixMilli(c.clk) + int64(w.Remaining)*1000
	cd := c.countdownLocked()
	c.mu.Unlock()

	c.logger.Event("SESSION_WARNING", c.id, fmt.Sprintf("remaining=%d resumed=%t", w.Remaining, w.Resumed))
	if entering {
		if !w.Resumed {
			c.bc.Announce(broadcast.ChannelWarning, expiry)
		}
		if c.onWarning != nil {
			c.onWarning(w.Remaining)
		}
	}
	c.emit(cd)
}

func (c *Coordinator) handleTick(t scheduler.Tick) {
	c.mu.Lock()
	if c.closed || c.state != StateWarning || !c.sched.Current(t.Epoch) {
		c.mu.Unlock()
		return
	}
	remaining := t.Remaining
	cd := Countdown{State: StateWarning, Remaining: &remaining}
	c.mu.Unlock()

	c.logger.Debug("SESSION_TICK", c.id, fmt.Sprintf("remaining=%d", remaining))
	c.emit(cd)
}

func (c *Coordinator) handleExpire(epoch scheduler.Epoch) {
	c.logout(c.ctx, ReasonTimeout, true, func() bool {
		return c.sched.Current(epoch)
	})
}

// =============================================================================
// REMOTE SIGNALS
// =============================================================================

func (c *Coordinator) handleRemote(ch broadcast.Channel, value int64) {
	switch ch {
	case broadcast.ChannelLogout:
		c.logout(c.ctx, ReasonRemote, false, nil)

	case broadcast.ChannelKeepAlive:
		c.mu.Lock()
		if c.closed || !c.state.Active() {
			c.mu.Unlock()
			return
		}
		act := c.activation
		c.mu.Unlock()

		remaining, fromOracle := c.fetchRemaining(c.ctx)

		c.mu.Lock()
		if c.activation != act || !c.state.Active() {
			c.mu.Unlock()
			return
		}
		if fromOracle {
			c.serverWindow = remaining
		}
		c.scheduleLocked(remaining)
		cd := c.countdownLocked()
		c.mu.Unlock()

		c.logger.Event("REMOTE_KEEPALIVE", c.id, fmt.Sprintf("at=%d remaining=%d", value, remaining))
		c.emit(cd)

	case broadcast.ChannelWarning:
		c.mu.Lock()
		if c.closed || !c.state.Active() {
			c.mu.Unlock()
			return
		}
		remaining := remainingUntil(value, clock.UnixMilli(c.clk))
		c.sched.Resume(remaining)
		c.window = remaining
		c.scheduledAt = c.clk.Now()
		c.mu.Unlock()

		c.logger.Event("REMOTE_WARNING", c.id, fmt.Sprintf("expires_at=%d remaining=%d", value, remaining))
	}
}

// remainingUntil converts an expiry in epoch milliseconds to whole seconds
// from now, rounded to nearest and never negative.
func remainingUntil(expiryMS, nowMS int64) int {
	secs := math.Round(float64(expiryMS-nowMS) / 1000)
	if secs < 0 {
		return 0
	}
	return int(secs)
}

// =============================================================================
// INTERNALS
// =============================================================================

// extend calls keep-alive and re-fetches the window, then reschedules. On
// failure the default window is scheduled and the keep-alive error returned.
// When the oracle rejects the session it is logged out.
func (c *Coordinator) extend(ctx context.Context, act uint64) error {
	remaining := c.cfg.DefaultWindow()
	fromOracle := false
	var kaErr error
	if c.oracle != nil {
		kctx, cancel := context.WithTimeout(ctx, c.cfg.OracleTimeout)
		kaErr = c.oracle.KeepAlive(kctx)
		cancel()
		if kaErr == nil {
			remaining, fromOracle = c.fetchRemaining(ctx)
		}
	}

	if oracle.IsUnauthorized(kaErr) {
		c.logger.Error("KEEPALIVE_REJECTED", c.id, kaErr)
		c.logout(ctx, ReasonTimeout, true, func() bool {
			return c.activation == act
		})
		return kaErr
	}

	c.mu.Lock()
	if c.closed || c.activation != act || !c.state.Active() {
		c.mu.Unlock()
		if kaErr != nil {
			return kaErr
		}
		return ErrNotActive
	}
	if fromOracle {
		c.serverWindow = remaining
	}
	c.scheduleLocked(remaining)
	now := c.clk.Now()
	if kaErr == nil {
		c.lastKeepAlive = now
		c.resetThrottleLocked()
	}
	cd := c.countdownLocked()
	c.mu.Unlock()

	c.emit(cd)
	if kaErr != nil {
		return kaErr
	}
	c.bc.Announce(broadcast.ChannelKeepAlive, now.UnixMilli())
	return nil
}

// fetchRemaining asks the oracle for the window, falling back to the default.
func (c *Coordinator) fetchRemaining(ctx context.Context) (int, bool) {
	if c.oracle == nil {
		return c.cfg.DefaultWindow(), false
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.OracleTimeout)
	defer cancel()

	remaining, err := c.oracle.Remaining(ctx)
	if err != nil {
		c.logger.Error("ORACLE_FALLBACK", c.id, err)
		return c.cfg.DefaultWindow(), false
	}
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}

// logout performs the at-most-once logout for the current activation.
// check, when set, runs under the lock and can veto a stale trigger.
func (c *Coordinator) logout(ctx context.Context, reason Reason, announce bool, check func() bool) bool {
	c.mu.Lock()
	if c.closed || c.loggedOut == nil || (check != nil && !check()) {
		c.mu.Unlock()
		return false
	}
	if !c.loggedOut.CompareAndSwap(false, true) {
		c.mu.Unlock()
		return false
	}
	c.state = StateLoggedOut
	c.clearScheduleLocked()
	cd := c.countdownLocked()
	c.mu.Unlock()

	c.bc.Stop()
	if announce {
		c.bc.Announce(broadcast.ChannelLogout, clock.UnixMilli(c.clk))
	}
	c.logger.Event("SESSION_LOGOUT", c.id, "reason="+reason.String())
	c.emit(cd)

	if c.onLogout != nil {
		if err := c.onLogout(ctx, reason); err != nil {
			c.logger.Error("LOGOUT_CALLBACK_FAILED", c.id, err)
		}
	}
	return true
}

func (c *Coordinator) scheduleLocked(total int) {
	c.sched.Schedule(total, c.cfg.WarningSeconds)
	c.state = StateArmed
	c.window = total
	c.scheduledAt = c.clk.Now()
}

// resetWindowLocked is the window for a local restart: the oracle's last
// answer, else the configured default.
func (c *Coordinator) resetWindowLocked() int {
	if c.serverWindow > 0 {
		return c.serverWindow
	}
	return c.cfg.DefaultWindow()
}

func (c *Coordinator) clearScheduleLocked() {
	c.sched.Cancel()
	c.window = 0
	c.scheduledAt = time.Time{}
}

// resetThrottleLocked starts a new keep-alive interval at now.
func (c *Coordinator) resetThrottleLocked() {
	limit := rate.Inf
	if c.cfg.KeepAliveInterval > 0 {
		limit = rate.Every(c.cfg.KeepAliveInterval)
	}
	c.limiter = rate.NewLimiter(limit, 1)
	c.limiter.AllowN(c.clk.Now(), 1)
}

func (c *Coordinator) countdownLocked() Countdown {
	if c.state != StateWarning {
		return Countdown{State: c.state}
	}
	ws := c.sched.State()
	remaining := ws.Remaining
	return Countdown{State: c.state, Remaining: &remaining}
}

func (c *Coordinator) emit(cd Countdown) {
	if c.onCountdown != nil {
		c.onCountdown(cd)
	}
}
