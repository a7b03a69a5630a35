// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/sessionguard/internal/coordinator"
)

// Sender delivers messages into a running program. *tea.Program implements it.
type Sender interface {
	Send(msg tea.Msg)
}

// Bridge turns coordinator callbacks into Bubble Tea messages. Messages
// sent before Attach are dropped, so activate the coordinator from inside
// the program (Model.Init does).
type Bridge struct {
	mu     sync.Mutex
	sender Sender
}

// NewBridge creates an unattached bridge.
func NewBridge() *Bridge {
	return &Bridge{}
}

// Attach sets the program messages are sent to.
func (b *Bridge) Attach(s Sender) {
	b.mu.Lock()
	b.sender = s
	b.mu.Unlock()
}

// Send forwards msg to the attached program.
func (b *Bridge) Send(msg tea.Msg) {
	b.mu.Lock()
	s := b.sender
	b.mu.Unlock()
	if s != nil {
		s.Send(msg)
	}
}

// Options returns coordinator options that feed the program. next, if not
// nil, runs the host's own logout after the view has been told.
func (b *Bridge) Options(next coordinator.LogoutFunc) []coordinator.Option {
	return []coordinator.Option{
		coordinator.OnCountdown(func(cd coordinator.Countdown) {
			b.Send(CountdownMsg{Countdown: cd})
		}),
		coordinator.OnWarning(func(remaining int) {
			b.Send(WarningMsg{Remaining: remaining})
		}),
		coordinator.OnKeepAliveError(func(err error) {
			b.Send(KeepAliveFailedMsg{Err: err})
		}),
		coordinator.OnLogout(func(ctx context.Context, reason coordinator.Reason) error {
			b.Send(LoggedOutMsg{Reason: reason})
			if next != nil {
				return next(ctx, reason)
			}
			return nil
		}),
	}
}
