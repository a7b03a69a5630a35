// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// Run shows model full screen until the user quits or the session ends.
// bridge must be the one whose Options were given to the coordinator.
func Run(ctx context.Context, model Model, bridge *Bridge) (Model, error) {
	p := tea.NewProgram(model,
		tea.WithContext(ctx),
		tea.WithAltScreen(),
		tea.WithMouseAllMotion(),
	)
	bridge.Attach(p)
	defer bridge.Attach(nil)

	final, err := p.Run()
	if fm, ok := final.(Model); ok {
		model = fm
	}
	return model, err
}
