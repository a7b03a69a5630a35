// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui is the terminal host for a session coordinator.
//
// Coordinator callbacks reach the Bubble Tea program through a Bridge,
// which calls tea.Program.Send. Every key press and mouse event is
// reported back to the coordinator as activity. While the warning overlay
// is up, enter calls KeepAlive. After logout the expired screen is shown
// and the program exits on the next key or after Config.ExitDelay.
//
//	bridge := ui.NewBridge()
//	coord, _ := coordinator.New(cfg, append(opts, bridge.Options(nil)...)...)
//	model := ui.NewModel(coord, ui.Config{WarningSeconds: cfg.WarningSeconds}, nil)
//	_, err := ui.Run(ctx, model, bridge)
package ui
