// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/jeranaias/sessionguard/internal/config"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Host the session from a line prompt",
	Long: `Run hosts the session without a full-screen view. Type commands at the
prompt to report activity, keep the session alive or log out. Warnings and
logouts, including those from other instances, are printed as they happen.`,
	Example: `  sessionguard run
  sessionguard run --store memory --config ./dev.toml`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func runRun(cmd *cobra.Command, _ []string) error {
	sh := newShell(cmd.OutOrStdout())
	sess, err := newSession(cfg, logger, sh.options()...)
	if err != nil {
		return err
	}
	defer sess.Close()
	sh.ctrl = sess.coord

	ctx := cmd.Context()
	if err := sess.coord.Activate(ctx); err != nil {
		return fmt.Errorf("failed to activate session: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), TitleStyle.Render("sessionguard")+DimStyle.Render("  type 'help' for commands"))

	p := newPrompt()
	defer p.Close()
	return sh.loop(ctx, p.line)
}

// prompt wraps liner with a history file in the config directory.
type prompt struct {
	line        *liner.State
	historyFile string
}

func newPrompt() *prompt {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	p := &prompt{line: line}
	if dir, err := config.ConfigDir(); err == nil {
		p.historyFile = filepath.Join(dir, "run_history")
		if f, err := os.Open(p.historyFile); err == nil {
			_, _ = line.ReadHistory(f)
			f.Close()
		}
	}
	return p
}

// Close saves history and restores the terminal.
func (p *prompt) Close() {
	if p.historyFile != "" {
		if err := os.MkdirAll(filepath.Dir(p.historyFile), 0o700); err == nil {
			if f, err := os.OpenFile(p.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600); err == nil {
				_, _ = p.line.WriteHistory(f)
				f.Close()
			}
		}
	}
	p.line.Close()
}

func init() {
	rootCmd.AddCommand(runCmd)
}
