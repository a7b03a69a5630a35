// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/peterh/liner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/sessionguard/internal/broadcast"
	"github.com/jeranaias/sessionguard/internal/clock"
	"github.com/jeranaias/sessionguard/internal/coordinator"
)

type shellFixture struct {
	sh    *shell
	coord *coordinator.Coordinator
	clk   *clock.Fake
	hub   *broadcast.Hub
	out   *bytes.Buffer
}

// newShellFixture hosts a one-minute session with a ten-second warning
// on an in-memory hub, without an oracle.
func newShellFixture(t *testing.T) *shellFixture {
	t.Helper()
	f := &shellFixture{
		clk: clock.NewFake(start),
		hub: broadcast.NewHub(),
		out: &bytes.Buffer{},
	}
	f.sh = newShell(f.out)
	f.sh.now = f.clk.Now

	store := f.hub.Tab()
	cfg := coordinator.DefaultConfig()
	cfg.SessionMinutes = 1
	cfg.WarningSeconds = 10

	opts := append([]coordinator.Option{
		coordinator.WithClock(f.clk),
		coordinator.WithStore(store),
	}, f.sh.options()...)
	coord, err := coordinator.New(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		coord.Close()
		store.Close()
	})

	f.coord = coord
	f.sh.ctrl = coord
	require.NoError(t, coord.Activate(context.Background()))
	return f
}

type scriptedReader struct {
	lines   []string
	prompts []string
	history []string
	// onPrompt runs before each line is returned
	onPrompt func(i int)
}

func (r *scriptedReader) Prompt(p string) (string, error) {
	i := len(r.prompts)
	r.prompts = append(r.prompts, p)
	if r.onPrompt != nil {
		r.onPrompt(i)
	}
	if i >= len(r.lines) {
		return "", io.EOF
	}
	return r.lines[i], nil
}

func (r *scriptedReader) AppendHistory(item string) {
	r.history = append(r.history, item)
}

// =============================================================================
// COMMANDS
// =============================================================================

func TestShell_Status(t *testing.T) {
	f := newShellFixture(t)
	f.clk.Advance(15 * time.Second)

	assert.False(t, f.sh.exec(context.Background(), "status"))
	out := f.out.String()
	assert.Contains(t, out, "armed")
	assert.Contains(t, out, "45s")
	assert.Contains(t, out, "60s")
	assert.Contains(t, out, f.coord.ID())
}

func TestShell_TypingCountsAsActivity(t *testing.T) {
	f := newShellFixture(t)
	ctx := context.Background()

	f.clk.Advance(15 * time.Second)
	f.sh.exec(ctx, "status")
	assert.Contains(t, f.out.String(), "45s", "status reports before the reset")
	assert.Equal(t, start.Add(15*time.Second), f.coord.Status().ScheduledAt)

	f.clk.Advance(10 * time.Second)
	f.sh.exec(ctx, "help")
	assert.Equal(t, start.Add(25*time.Second), f.coord.Status().ScheduledAt)

	f.clk.Advance(10 * time.Second)
	f.sh.exec(ctx, "reboot")
	assert.Equal(t, start.Add(35*time.Second), f.coord.Status().ScheduledAt)

	f.clk.Advance(50 * time.Second)
	require.Equal(t, coordinator.StateWarning, f.coord.State())
	f.sh.exec(ctx, "status")
	assert.Equal(t, coordinator.StateWarning, f.coord.State(), "typing does not cancel the warning")
}

func TestShell_WarningStayAndCountdown(t *testing.T) {
	f := newShellFixture(t)

	f.clk.Advance(50 * time.Second)
	assert.Contains(t, f.out.String(), "session expires in 0:10")
	assert.Equal(t, "sessionguard [!]> ", f.sh.prompt())

	f.out.Reset()
	f.sh.exec(context.Background(), "activity mousemove")
	assert.Contains(t, f.out.String(), "type 'stay'")
	assert.Equal(t, coordinator.StateWarning, f.coord.State())

	f.out.Reset()
	f.clk.Advance(5 * time.Second)
	assert.Contains(t, f.out.String(), "logout in 0:05")
	assert.NotContains(t, f.out.String(), "0:09")

	f.out.Reset()
	f.sh.exec(context.Background(), "stay")
	assert.Contains(t, f.out.String(), "session extended")
	assert.Equal(t, coordinator.StateArmed, f.coord.State())
	assert.Equal(t, "sessionguard> ", f.sh.prompt())
}

func TestShell_Timeout(t *testing.T) {
	f := newShellFixture(t)
	f.clk.Advance(time.Minute)

	assert.True(t, f.sh.done.Load())
	assert.Contains(t, f.out.String(), "timed out due to inactivity")
	assert.Equal(t, coordinator.StateLoggedOut, f.coord.State())
}

func TestShell_RemoteLogout(t *testing.T) {
	f := newShellFixture(t)
	other := f.hub.Tab()
	defer other.Close()

	require.NoError(t, announce(io.Discard, other, broadcast.ChannelLogout, f.clk, 0, nil))
	assert.True(t, f.sh.done.Load())
	assert.Contains(t, f.out.String(), "Logged out from another window")
}

func TestShell_LogoutCommand(t *testing.T) {
	f := newShellFixture(t)
	other := f.hub.Tab()
	defer other.Close()

	assert.True(t, f.sh.exec(context.Background(), "logout"))
	assert.Equal(t, coordinator.StateLoggedOut, f.coord.State())
	assert.NotContains(t, f.out.String(), "Press enter")

	_, ok, err := other.Get(broadcast.KeyLogout)
	require.NoError(t, err)
	assert.True(t, ok, "logout is announced to other instances")
}

func TestShell_UnknownAndHelp(t *testing.T) {
	f := newShellFixture(t)

	assert.False(t, f.sh.exec(context.Background(), "reboot"))
	assert.Contains(t, f.out.String(), `unknown command "reboot"`)

	assert.False(t, f.sh.exec(context.Background(), "help"))
	assert.Contains(t, f.out.String(), "activity [kind]")

	assert.True(t, f.sh.exec(context.Background(), "QUIT"))
}

// =============================================================================
// LOOP
// =============================================================================

func TestShell_LoopQuit(t *testing.T) {
	f := newShellFixture(t)
	r := &scriptedReader{lines: []string{"", "  help ", "status", "quit", "status"}}

	require.NoError(t, f.sh.loop(context.Background(), r))
	assert.Equal(t, []string{"help", "status", "quit"}, r.history)
	assert.Len(t, r.prompts, 4)
}

func TestShell_LoopEndsOnEOFAndAbort(t *testing.T) {
	f := newShellFixture(t)
	require.NoError(t, f.sh.loop(context.Background(), &scriptedReader{}))

	aborted := &abortReader{}
	require.NoError(t, f.sh.loop(context.Background(), aborted))
}

func TestShell_LoopStopsAfterLogout(t *testing.T) {
	f := newShellFixture(t)
	r := &scriptedReader{
		lines: []string{"status", "stay"},
		onPrompt: func(i int) {
			if i == 1 {
				f.clk.Advance(time.Minute)
			}
		},
	}

	require.NoError(t, f.sh.loop(context.Background(), r))
	assert.Equal(t, []string{"status"}, r.history, "input typed after the logout is dropped")
	assert.NotContains(t, f.out.String(), "session extended")
}

type abortReader struct{}

func (abortReader) Prompt(string) (string, error) { return "", liner.ErrPromptAborted }
func (abortReader) AppendHistory(string)          {}
