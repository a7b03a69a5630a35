// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles holds the palette and lipgloss styles for the session UI.

Colours are lipgloss AdaptiveColor values so they follow the terminal's
light or dark background. Every coloured status is paired with an ASCII
marker from StatusIndicators.

# Colour Profile

NewTheme detects the terminal profile with termenv and applies it to
lipgloss. Setting NO_COLOR to any non-empty value forces termenv.Ascii.

# Badges

	Armed   - cyan, countdown not yet visible
	Warning - amber, countdown ticking
	Expired - rose, session ended
	Idle    - grey, not authenticated
*/
package styles
