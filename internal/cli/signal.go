// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jeranaias/sessionguard/internal/broadcast"
	"github.com/jeranaias/sessionguard/internal/clock"
	"github.com/jeranaias/sessionguard/internal/eventlog"
)

var signalExpiresIn int

var signalCmd = &cobra.Command{
	Use:   "signal keepalive|logout|warning",
	Short: "Announce a signal to every instance on this machine",
	Long: `Signal writes to the shared store the way a sibling instance would.

  keepalive   instances refresh their window from the server
  logout      instances log out immediately
  warning     instances show the warning, counting down --expires-in seconds`,
	Example: `  sessionguard signal logout
  sessionguard signal warning --expires-in 20 --store sqlite`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"keepalive", "logout", "warning"},
	RunE:      runSignal,
}

func runSignal(cmd *cobra.Command, args []string) error {
	ch, err := broadcast.ParseChannel(args[0])
	if err != nil {
		return usageErrorf("%v (want keepalive, logout or warning)", err)
	}
	if ch == broadcast.ChannelWarning && signalExpiresIn <= 0 {
		return usageErrorf("--expires-in must be positive for a warning")
	}

	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	return announce(cmd.OutOrStdout(), store, ch, clock.New(), signalExpiresIn, logger)
}

// announce publishes ch with the value an instance would write: the current
// time, or for a warning the expiry expiresIn seconds from now.
func announce(w io.Writer, store broadcast.Store, ch broadcast.Channel, clk clock.Clock, expiresIn int, l *eventlog.Logger) error {
	value := clock.UnixMilli(clk)
	if ch == broadcast.ChannelWarning {
		value += int64(expiresIn) * 1000
	}

	b := broadcast.NewBroadcaster(store, "cli-"+uuid.NewString(), l)
	if !b.Announce(ch, value) {
		return fmt.Errorf("failed to write %s signal", ch)
	}

	fmt.Fprintf(w, "%s %s sent (%s)\n", SuccessStyle.Render("[OK]"), ch,
		time.UnixMilli(value).Local().Format("15:04:05"))
	return nil
}

func init() {
	signalCmd.Flags().IntVar(&signalExpiresIn, "expires-in", 30, "seconds until logout for a warning signal")
	rootCmd.AddCommand(signalCmd)
}
