// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"
	"time"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/sessionguard/internal/coordinator"
	"github.com/jeranaias/sessionguard/internal/ui/styles"
	"github.com/jeranaias/sessionguard/internal/util"
)

var now = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func intPtr(n int) *int { return &n }

// =============================================================================
// BADGE
// =============================================================================

func TestCountdownBadge_Text(t *testing.T) {
	tests := []struct {
		name  string
		badge CountdownBadge
		want  string
	}{
		{"warning", CountdownBadge{State: coordinator.StateWarning, Remaining: intPtr(29)}, "[!] logout in 0:29"},
		{"warning without remaining", CountdownBadge{State: coordinator.StateWarning}, "[!] logout in 0:00"},
		{"armed", CountdownBadge{State: coordinator.StateArmed, ExpiresIn: 14*time.Minute + 30*time.Second}, "[*] session 14m 30s"},
		{"logged out", CountdownBadge{State: coordinator.StateLoggedOut}, "[X] logged out"},
		{"inactive", CountdownBadge{}, "signed out"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.badge.Text())
			assert.Contains(t, tt.badge.View(styles.NewThemeWithProfile(termenv.Ascii)), tt.want)
		})
	}
}

func TestBadgeFrom(t *testing.T) {
	st := coordinator.Status{State: coordinator.StateArmed, ExpiresAt: now.Add(90 * time.Second)}
	b := BadgeFrom(st, now)
	assert.Equal(t, 90*time.Second, b.ExpiresIn)

	st = coordinator.Status{State: coordinator.StateLoggedOut, ExpiresAt: now.Add(time.Minute)}
	assert.Zero(t, BadgeFrom(st, now).ExpiresIn)
}

// =============================================================================
// OVERLAY
// =============================================================================

func TestTimeoutOverlay_Lifecycle(t *testing.T) {
	o := NewTimeoutOverlay("")
	assert.Empty(t, o.View())

	o.Show(30, 30)
	require.True(t, o.IsVisible())
	assert.False(t, o.IsExpired())
	assert.Contains(t, o.View(), "0:30")
	assert.Contains(t, o.View(), "Press enter to stay connected")

	o.SetRemaining(12)
	assert.Equal(t, 12, o.Remaining())
	assert.Contains(t, o.View(), "0:12")

	o.SetRemaining(-3)
	assert.Zero(t, o.Remaining())

	o.Hide()
	assert.False(t, o.IsVisible())
	assert.Empty(t, o.View())
}

func TestTimeoutOverlay_Expired(t *testing.T) {
	o := NewTimeoutOverlay("enter")
	o.SetSize(80, 24)
	o.Expire("remote")

	assert.True(t, o.IsExpired())
	view := o.View()
	assert.Contains(t, view, "Session Expired")
	assert.Contains(t, view, "another window")
	assert.Len(t, strings.Split(view, "\n"), 24)
}

func TestTimeoutOverlay_LeadGrowsWithRemaining(t *testing.T) {
	o := NewTimeoutOverlay("enter")
	o.Show(45, 30)
	o.SetRemaining(45)
	assert.Contains(t, o.View(), "0:45")
}

// =============================================================================
// TOASTS
// =============================================================================

func TestToastManager_AddAndExpire(t *testing.T) {
	m := NewToastManager()
	first := m.Add(ToastKindSuccess, "session extended", now)
	second := m.Add(ToastKindError, "keep-alive failed", now)
	assert.NotEqual(t, first, second)

	toasts := m.Toasts()
	require.Len(t, toasts, 2)
	assert.Equal(t, second, toasts[0].ID, "newest first")

	assert.True(t, m.Tick(now.Add(DefaultToastDuration)))
	assert.Equal(t, 1, m.Len())
	assert.Equal(t, ToastKindError, m.Toasts()[0].Kind)

	assert.False(t, m.Tick(now.Add(ErrorToastDuration)))
	assert.Zero(t, m.Len())
}

func TestToastManager_Cap(t *testing.T) {
	m := NewToastManager()
	for i := 0; i < 5; i++ {
		m.Add(ToastKindStatus, "msg", now)
	}
	assert.Equal(t, maxToasts, m.Len())
}

func TestRenderToast_Truncates(t *testing.T) {
	long := strings.Repeat("connection refused ", 10)
	out := RenderToast(Toast{Message: long, Kind: ToastKindError}, 40)

	assert.Contains(t, out, "...")
	for _, line := range strings.Split(out, "\n") {
		assert.LessOrEqual(t, util.StringWidth(line), 36)
	}
}

func TestRenderToastStack(t *testing.T) {
	assert.Empty(t, RenderToastStack(nil, 80))

	out := RenderToastStack([]Toast{{Message: "a"}, {Message: "b", Kind: ToastKindWarning}}, 0)
	assert.Contains(t, out, "[i] a")
	assert.Contains(t, out, "[!] b")
}
