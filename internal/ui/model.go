// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/sessionguard/internal/coordinator"
	"github.com/jeranaias/sessionguard/internal/ui/components"
	"github.com/jeranaias/sessionguard/internal/ui/styles"
	"github.com/jeranaias/sessionguard/internal/util"
)

// Controller is the part of the coordinator the view drives.
type Controller interface {
	Activate(ctx context.Context) error
	Activity(ctx context.Context, kind string)
	KeepAlive(ctx context.Context) error
	Logout(ctx context.Context) error
	Status() coordinator.Status
}

// Config configures the view.
type Config struct {
	Title string

	// WarningSeconds sizes the overlay's progress bar.
	WarningSeconds int

	// ExitDelay is how long the expired screen stays before the program quits.
	ExitDelay time.Duration
}

// DefaultExitDelay is used when Config.ExitDelay is zero.
const DefaultExitDelay = 5 * time.Second

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea host for one coordinator.
type Model struct {
	ctrl  Controller
	cfg   Config
	theme *styles.Theme
	keys  KeyMap
	help  help.Model

	overlay components.TimeoutOverlay
	toasts  *components.ToastManager
	ticking bool

	status coordinator.Status
	done   bool
	now    func() time.Time

	width  int
	height int
}

// NewModel creates the view for ctrl.
func NewModel(ctrl Controller, cfg Config, theme *styles.Theme) Model {
	if cfg.Title == "" {
		cfg.Title = "sessionguard"
	}
	if cfg.ExitDelay <= 0 {
		cfg.ExitDelay = DefaultExitDelay
	}
	if theme == nil {
		theme = styles.NewTheme()
	}
	keys := DefaultKeyMap()
	return Model{
		ctrl:    ctrl,
		cfg:     cfg,
		theme:   theme,
		keys:    keys,
		help:    help.New(),
		overlay: components.NewTimeoutOverlay(keys.Stay.Help().Key),
		toasts:  components.NewToastManager(),
		now:     time.Now,
	}
}

// Init activates the coordinator from inside the program so its first
// countdown reaches Update.
func (m Model) Init() tea.Cmd {
	ctrl := m.ctrl
	return tea.Batch(
		func() tea.Msg {
			return activatedMsg{err: ctrl.Activate(context.Background())}
		},
		statusTick(),
	)
}

// Done reports whether the session has ended.
func (m Model) Done() bool {
	return m.done
}

// =============================================================================
// UPDATE
// =============================================================================

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.overlay.SetSize(msg.Width, msg.Height)
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		if m.done {
			return m, nil
		}
		if kind := mouseKind(msg); kind != "" {
			return m, m.activity(kind)
		}
		return m, nil

	case activatedMsg:
		m.status = m.ctrl.Status()
		if msg.err != nil {
			return m, m.toast(components.ToastKindError, "activation failed: "+msg.err.Error())
		}
		return m, nil

	case CountdownMsg:
		m.status = m.ctrl.Status()
		m.applyCountdown(msg.Countdown)
		return m, nil

	case WarningMsg:
		m.overlay.Show(msg.Remaining, m.cfg.WarningSeconds)
		return m, nil

	case LoggedOutMsg:
		m.done = true
		m.status = m.ctrl.Status()
		m.overlay.Expire(msg.Reason.String())
		return m, tea.Tick(m.cfg.ExitDelay, func(time.Time) tea.Msg { return exitMsg{} })

	case KeepAliveFailedMsg:
		return m, m.toast(components.ToastKindError, "could not reach server: "+msg.Err.Error())

	case keepAliveDoneMsg:
		m.status = m.ctrl.Status()
		if msg.err == nil {
			return m, m.toast(components.ToastKindSuccess, "session extended")
		}
		return m, nil

	case statusTickMsg:
		if m.done {
			return m, nil
		}
		m.status = m.ctrl.Status()
		return m, statusTick()

	case components.ToastTickMsg:
		if m.toasts.Tick(msg.Time) {
			return m, components.ToastTickCmd()
		}
		m.ticking = false
		return m, nil

	case exitMsg:
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.done {
		return m, tea.Quit
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Stay) && m.overlay.IsVisible():
		return m, m.keepAlive()
	case key.Matches(msg, m.keys.Logout):
		ctrl := m.ctrl
		return m, func() tea.Msg {
			_ = ctrl.Logout(context.Background())
			return nil
		}
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, m.activity("keydown")
}

func (m *Model) applyCountdown(cd coordinator.Countdown) {
	switch cd.State {
	case coordinator.StateWarning:
		if cd.Remaining == nil {
			return
		}
		if m.overlay.IsVisible() && !m.overlay.IsExpired() {
			m.overlay.SetRemaining(*cd.Remaining)
		} else {
			m.overlay.Show(*cd.Remaining, m.cfg.WarningSeconds)
		}
	case coordinator.StateArmed, coordinator.StateInactive:
		m.overlay.Hide()
	}
}

func (m Model) activity(kind string) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctrl.Activity(context.Background(), kind)
		return nil
	}
}

func (m Model) keepAlive() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		return keepAliveDoneMsg{err: ctrl.KeepAlive(context.Background())}
	}
}

// toast shows a toast and starts the expiry ticker if it is not running.
func (m *Model) toast(kind components.ToastKind, text string) tea.Cmd {
	m.toasts.Add(kind, text, m.now())
	if m.ticking {
		return nil
	}
	m.ticking = true
	return components.ToastTickCmd()
}

func mouseKind(msg tea.MouseMsg) string {
	switch msg.Type {
	case tea.MouseMotion:
		return "mousemove"
	case tea.MouseWheelUp, tea.MouseWheelDown:
		return "scroll"
	case tea.MouseLeft, tea.MouseRight, tea.MouseMiddle:
		return "click"
	default:
		return ""
	}
}

// =============================================================================
// VIEW
// =============================================================================

// View implements tea.Model.
func (m Model) View() string {
	if m.overlay.IsVisible() {
		return m.overlay.View()
	}

	width := m.width
	if width == 0 {
		width = 80
	}

	badge := components.BadgeFrom(m.status, m.now()).View(m.theme)
	title := m.theme.Title.Render(m.cfg.Title)
	gap := width - lipgloss.Width(title) - lipgloss.Width(badge) - 2
	if gap < 1 {
		gap = 1
	}
	header := m.theme.App.Render(title + strings.Repeat(" ", gap) + badge)

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n\n")
	for _, line := range m.details() {
		b.WriteString(m.theme.App.Render(line))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	if toasts := components.RenderToastStack(m.toasts.Toasts(), width); toasts != "" {
		b.WriteString(toasts)
		b.WriteString("\n")
	}
	b.WriteString(m.theme.App.Render(m.help.View(m.keys)))
	return b.String()
}

func (m Model) details() []string {
	st := m.status
	label := func(name, value string) string {
		return m.theme.Muted.Render(util.PadRight(name, 16)) + value
	}

	lines := []string{label("state", st.State.String())}
	if st.State.Active() && !st.ExpiresAt.IsZero() {
		lines = append(lines,
			label("expires in", util.FormatDuration(st.ExpiresAt.Sub(m.now()))),
			label("window", fmt.Sprintf("%ds", st.Window)))
	}
	if !st.LastKeepAlive.IsZero() {
		lines = append(lines, label("last keep-alive", st.LastKeepAlive.Local().Format("15:04:05")))
	}
	sync := "off"
	if st.Listening {
		sync = "on"
	}
	lines = append(lines,
		label("cross-tab sync", sync),
		label("instance", st.ID),
		"",
		m.theme.Muted.Render("Any key press or mouse movement counts as activity."))
	return lines
}
