// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jeranaias/sessionguard/internal/ui"
	"github.com/jeranaias/sessionguard/internal/ui/styles"
)

var watchTitle string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Show the session countdown full screen",
	Long: `Watch runs the session in a full-screen terminal view. Every key press and
mouse movement counts as activity. Shortly before the session runs out a
warning with a countdown appears; press enter to stay signed in.

Logouts and keep-alives from other instances sharing the signal store are
picked up immediately.`,
	Example: `  sessionguard watch
  sessionguard watch --store sqlite --title "billing console"`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, _ []string) error {
	if err := RequiresTTY("watch the session"); err != nil {
		return err
	}

	bridge := ui.NewBridge()
	sess, err := newSession(cfg, logger, bridge.Options(nil)...)
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	model := ui.NewModel(sess.coord, ui.Config{
		Title:          watchTitle,
		WarningSeconds: cfg.Session.WarningSeconds,
	}, styles.NewTheme())

	final, err := ui.Run(ctx, model, bridge)
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("session view failed: %w", err)
	}
	if final.Done() {
		fmt.Fprintln(cmd.OutOrStdout(), WarningStyle.Render("Session ended."))
	}
	return nil
}

func init() {
	watchCmd.Flags().StringVar(&watchTitle, "title", "", "title shown in the header")
	rootCmd.AddCommand(watchCmd)
}
