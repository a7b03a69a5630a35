// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styles used by the session UI.
type Theme struct {
	ColorProfile termenv.Profile

	App       lipgloss.Style
	StatusBar lipgloss.Style
	Title     lipgloss.Style
	Muted     lipgloss.Style

	BadgeArmed   lipgloss.Style
	BadgeWarning lipgloss.Style
	BadgeExpired lipgloss.Style
	BadgeIdle    lipgloss.Style
}

// DetectProfile returns the terminal colour profile. NO_COLOR (any
// non-empty value) forces plain ASCII output.
func DetectProfile(lookup func(string) (string, bool)) termenv.Profile {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if v, ok := lookup("NO_COLOR"); ok && strings.TrimSpace(v) != "" {
		return termenv.Ascii
	}
	return termenv.ColorProfile()
}

// NewTheme detects the terminal profile, applies it to lipgloss and builds
// the styles.
func NewTheme() *Theme {
	profile := DetectProfile(nil)
	lipgloss.SetColorProfile(profile)
	return NewThemeWithProfile(profile)
}

// NewThemeWithProfile builds the styles without touching global state.
func NewThemeWithProfile(profile termenv.Profile) *Theme {
	t := &Theme{ColorProfile: profile}

	badge := lipgloss.NewStyle().Bold(true).Padding(0, 1)

	t.App = lipgloss.NewStyle().Padding(0, 1)
	t.StatusBar = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Background(SurfaceDim)
	t.Title = lipgloss.NewStyle().Foreground(Cyan).Bold(true)
	t.Muted = lipgloss.NewStyle().Foreground(TextMuted)

	t.BadgeArmed = badge.Foreground(TextInverse).Background(Cyan)
	t.BadgeWarning = badge.Foreground(TextInverse).Background(Amber)
	t.BadgeExpired = badge.Foreground(TextInverse).Background(Rose)
	t.BadgeIdle = badge.Foreground(TextSecondary).Background(Overlay)
	return t
}

// Plain reports whether the profile has no colour at all.
func (t *Theme) Plain() bool {
	return t.ColorProfile == termenv.Ascii
}

// =============================================================================
// PROGRESS
// =============================================================================

var (
	ProgressFull  = "#"
	ProgressEmpty = "-"
)

// RenderDrainBar renders a bar of width cells with remaining/total of it
// filled. It drains from the right as remaining falls.
func RenderDrainBar(width, remaining, total int) string {
	if width <= 0 {
		return ""
	}
	filled := 0
	if total > 0 && remaining > 0 {
		filled = (remaining*width + total - 1) / total
		if filled > width {
			filled = width
		}
	}
	return strings.Repeat(ProgressFull, filled) + strings.Repeat(ProgressEmpty, width-filled)
}
