// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/sessionguard/internal/ui/styles"
	"github.com/jeranaias/sessionguard/internal/util"
)

// =============================================================================
// TIMEOUT OVERLAY
// =============================================================================

// TimeoutOverlay is the modal shown during the warning phase and after
// logout.
type TimeoutOverlay struct {
	visible   bool
	expired   bool
	remaining int
	lead      int
	reason    string
	stayKey   string

	width  int
	height int
}

// NewTimeoutOverlay creates a hidden overlay. stayKey is the key named in
// the "stay connected" hint.
func NewTimeoutOverlay(stayKey string) TimeoutOverlay {
	if stayKey == "" {
		stayKey = "enter"
	}
	return TimeoutOverlay{stayKey: stayKey}
}

// SetSize sets the area the overlay is centred in.
func (o *TimeoutOverlay) SetSize(width, height int) {
	o.width = width
	o.height = height
}

// Show opens the warning with remaining seconds out of a lead of lead seconds.
func (o *TimeoutOverlay) Show(remaining, lead int) {
	o.visible = true
	o.expired = false
	o.lead = lead
	o.SetRemaining(remaining)
}

// SetRemaining updates the countdown.
func (o *TimeoutOverlay) SetRemaining(remaining int) {
	if remaining < 0 {
		remaining = 0
	}
	o.remaining = remaining
	if remaining > o.lead {
		o.lead = remaining
	}
}

// Expire switches to the logged-out view.
func (o *TimeoutOverlay) Expire(reason string) {
	o.visible = true
	o.expired = true
	o.remaining = 0
	o.reason = reason
}

// Hide closes the overlay.
func (o *TimeoutOverlay) Hide() {
	o.visible = false
	o.expired = false
}

func (o *TimeoutOverlay) IsVisible() bool { return o.visible }
func (o *TimeoutOverlay) IsExpired() bool { return o.expired }
func (o *TimeoutOverlay) Remaining() int  { return o.remaining }

// View renders the overlay, or "" when hidden.
func (o TimeoutOverlay) View() string {
	if !o.visible {
		return ""
	}
	if o.expired {
		return o.place(o.viewExpired(), styles.Rose)
	}
	return o.place(o.viewWarning(), styles.Amber)
}

// =============================================================================
// RENDER METHODS
// =============================================================================

func (o TimeoutOverlay) boxWidth() int {
	w := o.width - 8
	if w < 40 {
		w = 40
	}
	if w > 60 {
		w = 60
	}
	return w
}

func (o TimeoutOverlay) viewWarning() string {
	inner := o.boxWidth() - 8

	title := lipgloss.NewStyle().Foreground(styles.Amber).Bold(true).
		Render(styles.StatusIndicators.Warning + " Session Timeout Warning")
	clock := lipgloss.NewStyle().Foreground(styles.Amber).Bold(true).
		Render(util.FormatCountdown(o.remaining))
	msg := lipgloss.NewStyle().Foreground(styles.TextPrimary).
		Render("You will be logged out in " + clock)
	bar := lipgloss.NewStyle().Foreground(styles.Amber).
		Render(styles.RenderDrainBar(inner, o.remaining, o.lead))
	hint := lipgloss.NewStyle().Foreground(styles.TextSecondary).Italic(true).
		Render("Press " + o.stayKey + " to stay connected")

	return lipgloss.JoinVertical(lipgloss.Center, title, "", msg, bar, "", hint)
}

func (o TimeoutOverlay) viewExpired() string {
	title := lipgloss.NewStyle().Foreground(styles.Rose).Bold(true).
		Render(styles.StatusIndicators.Error + " Session Expired")

	text := "Your session has ended."
	switch o.reason {
	case "timeout":
		text = "Your session timed out due to inactivity."
	case "remote":
		text = "You were logged out from another window."
	}
	msg := lipgloss.NewStyle().Foreground(styles.TextPrimary).Render(text)
	hint := lipgloss.NewStyle().Foreground(styles.TextSecondary).
		Render("Press any key to exit.")

	return lipgloss.JoinVertical(lipgloss.Center, title, "", msg, "", hint)
}

func (o TimeoutOverlay) place(content string, border lipgloss.AdaptiveColor) string {
	box := lipgloss.NewStyle().
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(border).
		Padding(1, 3).
		Width(o.boxWidth()).
		Align(lipgloss.Center).
		Render(content)

	if o.width == 0 || o.height == 0 {
		return box
	}
	return lipgloss.Place(o.width, o.height, lipgloss.Center, lipgloss.Center, box,
		lipgloss.WithWhitespaceBackground(styles.SurfaceDim))
}
