// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/sessionguard/internal/coordinator"
)

// CountdownMsg carries a coordinator countdown event.
type CountdownMsg struct {
	Countdown coordinator.Countdown
}

// WarningMsg is sent when the warning phase begins.
type WarningMsg struct {
	Remaining int
}

// LoggedOutMsg is sent once the coordinator has logged out.
type LoggedOutMsg struct {
	Reason coordinator.Reason
}

// KeepAliveFailedMsg reports a failed "stay connected" request.
type KeepAliveFailedMsg struct {
	Err error
}

type activatedMsg struct{ err error }

type keepAliveDoneMsg struct{ err error }

type statusTickMsg time.Time

type exitMsg struct{}

func statusTick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return statusTickMsg(t)
	})
}
