// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/sessionguard/internal/config"
	"github.com/jeranaias/sessionguard/internal/eventlog"
	"github.com/jeranaias/sessionguard/internal/server"
)

var (
	// Global flags
	configPath string
	storeKind  string
	verbose    bool

	// Global state initialized in PersistentPreRunE
	cfg       *config.Config
	logger    *eventlog.Logger
	logCloser io.Closer
)

// annotationNoConfig marks commands that must run without a readable
// config file, such as the ones that create it.
const annotationNoConfig = "sessionguard/no-config"

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "sessionguard",
	Short: "Session keep-alive and auto-logout coordinator",
	Long: `sessionguard keeps an authenticated session alive while the user is active
and logs every open instance out together once the session runs out.

Instances on the same machine share keep-alive, warning and logout signals
through a common store, so one user action extends the session everywhere.

Example:
  sessionguard serve
  sessionguard watch
  sessionguard signal logout`,
	Version:       server.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return initGlobals(cmd)
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		cleanup()
	},
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		DisplayError(err)
	}
	return err
}

// SetVersion sets the string printed by --version.
func SetVersion(version, commit, date string) {
	rootCmd.Version = fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
}

// initGlobals loads the configuration, applies flag overrides and opens the
// event log. The TUI owns the terminal, so without a log file its events are
// discarded rather than written over the screen.
func initGlobals(cmd *cobra.Command) error {
	if cmd.Annotations[annotationNoConfig] != "" {
		cfg, logger = config.Default(), nil
		return nil
	}

	loaded, err := loadConfig()
	if err != nil {
		return err
	}

	if storeKind != "" {
		loaded.Store.Kind = strings.ToLower(strings.TrimSpace(storeKind))
		if err := loaded.Validate(); err != nil {
			return fmt.Errorf("invalid --store: %w", err)
		}
	}
	if verbose {
		loaded.Logging.Level = "debug"
	}

	var fallback io.Writer = os.Stderr
	if cmd == watchCmd {
		fallback = io.Discard
	}
	l, closer, err := loaded.OpenLogger(fallback)
	if err != nil {
		return err
	}

	cfg, logger, logCloser = loaded, l, closer
	return nil
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromPath(config.ExpandHome(configPath))
	}
	return config.Load()
}

// cleanup releases resources.
func cleanup() {
	if logCloser != nil {
		_ = logCloser.Close()
		logCloser = nil
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: ~/.sessionguard/config.toml)")
	rootCmd.PersistentFlags().StringVar(&storeKind, "store", "", "signal store: memory, file, sqlite")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}
