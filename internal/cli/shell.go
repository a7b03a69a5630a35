// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/peterh/liner"

	"github.com/jeranaias/sessionguard/internal/coordinator"
	"github.com/jeranaias/sessionguard/internal/ui"
	"github.com/jeranaias/sessionguard/internal/util"
)

// lineReader is the part of *liner.State the shell uses.
type lineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// shell is the line-oriented session host behind "run". Coordinator
// callbacks arrive on timer and store goroutines, so writes to out are
// serialised.
type shell struct {
	ctrl ui.Controller
	now  func() time.Time

	mu  sync.Mutex
	out io.Writer

	done        atomic.Bool
	lastPrinted int
}

func newShell(out io.Writer) *shell {
	return &shell{out: out, now: time.Now, lastPrinted: -1}
}

func (s *shell) printf(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, format, args...)
}

// options returns the coordinator callbacks that report to the terminal.
func (s *shell) options() []coordinator.Option {
	return []coordinator.Option{
		coordinator.OnWarning(func(remaining int) {
			s.mu.Lock()
			s.lastPrinted = remaining
			s.mu.Unlock()
			s.printf("\n%s session expires in %s. Type 'stay' to remain signed in.\n",
				WarningStyle.Render("[!]"), util.FormatCountdown(remaining))
		}),
		coordinator.OnCountdown(s.countdown),
		coordinator.OnKeepAliveError(func(err error) {
			s.printf("%s keep-alive failed: %v\n", ErrorStyle.Render("[X]"), err)
		}),
		coordinator.OnLogout(func(_ context.Context, reason coordinator.Reason) error {
			s.done.Store(true)
			if reason == coordinator.ReasonManual {
				s.printf("%s %s.\n", ErrorStyle.Render("[X]"), logoutMessage(reason))
				return nil
			}
			s.printf("\n%s %s. Press enter to exit.\n", ErrorStyle.Render("[X]"), logoutMessage(reason))
			return nil
		}),
	}
}

// countdown prints the warning countdown every ten seconds and then every
// second for the last five.
func (s *shell) countdown(cd coordinator.Countdown) {
	if cd.State != coordinator.StateWarning || cd.Remaining == nil {
		s.mu.Lock()
		s.lastPrinted = -1
		s.mu.Unlock()
		return
	}

	r := *cd.Remaining
	if r <= 0 || (r > 5 && r%10 != 0) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if r == s.lastPrinted {
		return
	}
	s.lastPrinted = r
	fmt.Fprintf(s.out, "%s logout in %s\n", WarningStyle.Render("[!]"), util.FormatCountdown(r))
}

func logoutMessage(reason coordinator.Reason) string {
	switch reason {
	case coordinator.ReasonTimeout:
		return "Session timed out due to inactivity"
	case coordinator.ReasonRemote:
		return "Logged out from another window"
	default:
		return "Logged out"
	}
}

func (s *shell) prompt() string {
	if s.ctrl != nil && s.ctrl.Status().State == coordinator.StateWarning {
		return "sessionguard [!]> "
	}
	return "sessionguard> "
}

// loop reads commands until quit, logout, end of input or Ctrl+C.
func (s *shell) loop(ctx context.Context, r lineReader) error {
	for !s.done.Load() {
		line, err := r.Prompt(s.prompt())
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
				return nil
			}
			return err
		}
		if s.done.Load() {
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r.AppendHistory(line)

		if quit := s.exec(ctx, line); quit {
			return nil
		}
	}
	return nil
}

// exec runs one command line and reports whether the shell should exit.
// Lines that do not act on the session still count as a key press.
func (s *shell) exec(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	switch strings.ToLower(fields[0]) {
	case "stay", "keepalive":
		if err := s.ctrl.KeepAlive(ctx); err != nil {
			s.printf("%s %v\n", ErrorStyle.Render("[X]"), err)
			return false
		}
		s.printf("%s session extended\n", SuccessStyle.Render("[OK]"))

	case "activity":
		kind := "keydown"
		if len(fields) > 1 {
			kind = fields[1]
		}
		if s.ctrl.Status().State == coordinator.StateWarning {
			s.printf("%s activity does not cancel the warning; type 'stay'\n", WarningStyle.Render("[!]"))
			return false
		}
		s.ctrl.Activity(ctx, kind)

	case "status":
		s.printStatus()
		s.ctrl.Activity(ctx, "keydown")

	case "logout":
		if err := s.ctrl.Logout(ctx); err != nil {
			s.printf("%s %v\n", ErrorStyle.Render("[X]"), err)
		}
		return true

	case "quit", "exit", "q":
		return true

	case "help", "?":
		s.printf("%s\n", shellHelp)
		s.ctrl.Activity(ctx, "keydown")

	default:
		s.printf("unknown command %q (type 'help')\n", fields[0])
		s.ctrl.Activity(ctx, "keydown")
	}
	return false
}

const shellHelp = `Commands:
  stay              keep the session alive now
  activity [kind]   report user activity (default: keydown)
  status            show the session state
  logout            log out every instance
  quit              leave without logging out`

func (s *shell) printStatus() {
	st := s.ctrl.Status()
	lines := []string{field("state", st.State.String())}
	if st.Remaining != nil {
		lines = append(lines, field("logout in", util.FormatCountdown(*st.Remaining)))
	}
	if st.State.Active() && !st.ExpiresAt.IsZero() {
		lines = append(lines,
			field("expires in", util.FormatDuration(st.ExpiresAt.Sub(s.now()))),
			field("window", fmt.Sprintf("%ds", st.Window)))
	}
	if !st.LastKeepAlive.IsZero() {
		lines = append(lines, field("last keep-alive", st.LastKeepAlive.Local().Format("15:04:05")))
	}
	syncState := "off"
	if st.Listening {
		syncState = "on"
	}
	lines = append(lines, field("cross-tab sync", syncState), field("instance", st.ID))
	s.printf("%s\n", strings.Join(lines, "\n"))
}
