// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"time"

	"github.com/jeranaias/sessionguard/internal/coordinator"
	"github.com/jeranaias/sessionguard/internal/ui/styles"
	"github.com/jeranaias/sessionguard/internal/util"
)

// CountdownBadge is the status-bar indicator for the session.
type CountdownBadge struct {
	State coordinator.State

	// Remaining is the warning countdown; nil outside the warning phase.
	Remaining *int

	// ExpiresIn is the time until logout while armed.
	ExpiresIn time.Duration
}

// BadgeFrom builds a badge from a coordinator status snapshot.
func BadgeFrom(st coordinator.Status, now time.Time) CountdownBadge {
	b := CountdownBadge{State: st.State, Remaining: st.Remaining}
	if st.State.Active() && !st.ExpiresAt.IsZero() {
		b.ExpiresIn = st.ExpiresAt.Sub(now)
	}
	return b
}

// Text is the badge label without styling.
func (b CountdownBadge) Text() string {
	switch b.State {
	case coordinator.StateWarning:
		secs := 0
		if b.Remaining != nil {
			secs = *b.Remaining
		}
		return styles.StatusIndicators.Warning + " logout in " + util.FormatCountdown(secs)
	case coordinator.StateArmed:
		return styles.StatusIndicators.Active + " session " + util.FormatDuration(b.ExpiresIn)
	case coordinator.StateLoggedOut:
		return styles.StatusIndicators.Error + " logged out"
	default:
		return "signed out"
	}
}

// View renders the badge with the theme's colours.
func (b CountdownBadge) View(t *styles.Theme) string {
	switch b.State {
	case coordinator.StateWarning:
		return t.BadgeWarning.Render(b.Text())
	case coordinator.StateArmed:
		return t.BadgeArmed.Render(b.Text())
	case coordinator.StateLoggedOut:
		return t.BadgeExpired.Render(b.Text())
	default:
		return t.BadgeIdle.Render(b.Text())
	}
}
