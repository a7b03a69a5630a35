// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/sessionguard/internal/server"
)

var (
	serveListen     string
	serveIssueToken bool
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the reference session server",
	Long: `Serve runs a small session server that answers the remaining-seconds and
keep-alive endpoints the coordinator polls. Sessions live in memory and
expire after server.session_minutes without a keep-alive.

Endpoints:
  POST /auth/login            issue a session token
  GET  /auth/session-status   {"remainingSeconds": n}
  POST /auth/keep-alive       reset the idle window
  POST /auth/logout           end the session
  GET  /health                liveness`,
	Example: `  sessionguard serve
  sessionguard serve --listen 127.0.0.1:9000 --issue-token`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	serverCfg := cfg.Server
	if serveListen != "" {
		serverCfg.Listen = serveListen
	}

	srv := server.NewServer(serverCfg).
		WithLogger(log.New(cmd.ErrOrStderr(), "[sessionguard] ", log.LstdFlags))

	if serveIssueToken {
		token := srv.Sessions().Login()
		fmt.Fprintln(cmd.OutOrStdout(), field("token", token))
		fmt.Fprintln(cmd.OutOrStdout(), DimStyle.Render("  export SESSIONGUARD_TOKEN="+token))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	select {
	case err := <-errCh:
		return err
	case <-shutdownCtx.Done():
		return nil
	}
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "listen address (default: server.listen)")
	serveCmd.Flags().BoolVar(&serveIssueToken, "issue-token", false, "create a session at startup and print its token")
	rootCmd.AddCommand(serveCmd)
}
