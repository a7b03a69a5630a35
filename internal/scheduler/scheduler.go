// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package scheduler arms the warning, hard-logout and countdown timers that
// derive from a single "remaining seconds" value.
//
// # Timers
//
//   - warning: fires at total-lead seconds and starts the warning phase
//   - hard-logout: fires at total seconds as a backstop for the countdown
//   - countdown: re-armed every second while the warning phase runs
//
// Hooks are always invoked from timer callbacks with no scheduler lock held,
// never from inside Schedule, Resume or Cancel. A caller may therefore hold its
// own lock while calling into the scheduler.
package scheduler

import (
	"sync"
	"time"

	"github.com/jeranaias/sessionguard/internal/clock"
)

// Window is the session window a schedule was derived from, in seconds.
type Window struct {
	Total int
	Lead  int
}

// WarningState is the visible part of the warning phase.
type WarningState struct {
	Shown     bool
	Remaining int
}

// Epoch identifies one Schedule or Resume call. Hooks carry the epoch they
// were armed under so a caller can discard events that raced a reschedule.
type Epoch uint64

// Warning describes the start of a warning phase.
type Warning struct {
	Epoch Epoch
	// Remaining is the first countdown value.
	Remaining int
	// Resumed is true when the phase was entered through Resume rather
	// than by the schedule's own warning timer.
	Resumed bool
}

// Tick is one step of the countdown.
type Tick struct {
	Epoch     Epoch
	Remaining int
}

// Hooks receive scheduler events. Nil hooks are skipped.
type Hooks struct {
	OnWarning func(w Warning)
	OnTick    func(t Tick)
	OnExpire  func(epoch Epoch)
}

// Scheduler owns one set of session timers.
type Scheduler struct {
	clk   clock.Clock
	hooks Hooks

	mu      sync.Mutex
	gen     Epoch
	window  Window
	state   WarningState
	expired bool

	warningTimer clock.Timer
	expireTimer  clock.Timer
	tickTimer    clock.Timer
}

// New creates a scheduler with no timers armed.
func New(clk clock.Clock, hooks Hooks) *Scheduler {
	if clk == nil {
		clk = clock.New()
	}
	return &Scheduler{clk: clk, hooks: hooks}
}

// WarningDelay is how long after scheduling the warning phase begins.
// A lead larger than the window clamps to zero.
func WarningDelay(total, lead int) time.Duration {
	delay := total - lead
	if delay < 0 {
		delay = 0
	}
	return seconds(delay)
}

// Schedule cancels any armed timers and arms a fresh warning and hard-logout
// pair for a window of total seconds with a warning lead of lead seconds.
func (s *Scheduler) Schedule(total, lead int) Epoch {
	if total < 0 {
		total = 0
	}
	if lead < 0 {
		lead = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.resetLocked()
	gen := s.gen
	s.window = Window{Total: total, Lead: lead}

	s.warningTimer = s.clk.AfterFunc(WarningDelay(total, lead), func() {
		s.startWarning(gen, false)
	})
	s.expireTimer = s.clk.AfterFunc(seconds(total), func() {
		s.expire(gen)
	})
	return gen
}

// Resume cancels any armed timers and enters the warning phase at once with
// the given number of seconds left.
func (s *Scheduler) Resume(remaining int) Epoch {
	if remaining < 0 {
		remaining = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.resetLocked()
	gen := s.gen
	s.window = Window{Total: remaining, Lead: remaining}

	s.warningTimer = s.clk.AfterFunc(0, func() {
		s.startWarning(gen, true)
	})
	s.expireTimer = s.clk.AfterFunc(seconds(remaining), func() {
		s.expire(gen)
	})
	return gen
}

// Cancel stops every timer and hides the warning. Safe to call repeatedly.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

// Current reports whether epoch is the most recent Schedule or Resume.
func (s *Scheduler) Current(epoch Epoch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen == epoch
}

// State returns the current warning state.
func (s *Scheduler) State() WarningState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Window returns the window of the most recent schedule.
func (s *Scheduler) Window() Window {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.window
}

// Pending returns the number of armed timers.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, t := range []clock.Timer{s.warningTimer, s.expireTimer, s.tickTimer} {
		if t != nil {
			n++
		}
	}
	return n
}

// =============================================================================
// TIMER CALLBACKS
// =============================================================================

func (s *Scheduler) startWarning(gen Epoch, resumed bool) {
	s.mu.Lock()
	if gen != s.gen || s.expired || s.state.Shown {
		s.mu.Unlock()
		return
	}
	s.warningTimer = nil

	remaining := s.window.Lead
	if remaining > s.window.Total {
		remaining = s.window.Total
	}
	s.state = WarningState{Shown: true, Remaining: remaining}
	if remaining > 0 {
		s.tickTimer = s.clk.AfterFunc(time.Second, func() { s.tick(gen) })
	}
	onWarning := s.hooks.OnWarning
	s.mu.Unlock()

	if onWarning != nil {
		onWarning(Warning{Epoch: gen, Remaining: remaining, Resumed: resumed})
	}
	if remaining == 0 {
		s.expire(gen)
	}
}

func (s *Scheduler) tick(gen Epoch) {
	s.mu.Lock()
	if gen != s.gen || s.expired || !s.state.Shown {
		s.mu.Unlock()
		return
	}

	s.state.Remaining--
	remaining := s.state.Remaining
	if remaining > 0 {
		s.tickTimer = s.clk.AfterFunc(time.Second, func() { s.tick(gen) })
	} else {
		s.tickTimer = nil
	}
	onTick := s.hooks.OnTick
	s.mu.Unlock()

	if onTick != nil {
		onTick(Tick{Epoch: gen, Remaining: remaining})
	}
	if remaining <= 0 {
		s.expire(gen)
	}
}

func (s *Scheduler) expire(gen Epoch) {
	s.mu.Lock()
	if gen != s.gen || s.expired {
		s.mu.Unlock()
		return
	}
	s.expired = true
	s.stopTimersLocked()
	s.state = WarningState{}
	onExpire := s.hooks.OnExpire
	s.mu.Unlock()

	if onExpire != nil {
		onExpire(gen)
	}
}

// resetLocked invalidates callbacks of the current generation and clears state.
func (s *Scheduler) resetLocked() {
	s.stopTimersLocked()
	s.gen++
	s.expired = false
	s.state = WarningState{}
}

func (s *Scheduler) stopTimersLocked() {
	for _, t := range []*clock.Timer{&s.warningTimer, &s.expireTimer, &s.tickTimer} {
		if *t != nil {
			(*t).Stop()
			*t = nil
		}
	}
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
