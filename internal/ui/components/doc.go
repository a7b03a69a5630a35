// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package components provides the pieces of the session UI.

  - CountdownBadge (badge.go) - status-bar indicator for the session state
  - TimeoutOverlay (timeout_overlay.go) - warning modal with a draining bar, and the expired screen
  - ToastManager (toast.go) - self-dismissing notifications, one line each

Components render with lipgloss and the palette in package styles. They hold
no timers of their own; the host model drives them from coordinator events.
*/
package components
