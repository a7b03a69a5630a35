// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/sessionguard/internal/coordinator"
	"github.com/jeranaias/sessionguard/internal/util"
)

var (
	statusJSON      bool
	statusKeepAlive bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Ask the server how long the session has left",
	Long: `Status queries the session-status endpoint once and prints the remaining
time. With --keep-alive the session is extended first.`,
	Example: `  sessionguard status
  sessionguard status --json
  SESSIONGUARD_TOKEN=... sessionguard status --keep-alive`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

// StatusReport is the result of a one-shot oracle query.
type StatusReport struct {
	BaseURL          string    `json:"baseUrl"`
	RemainingSeconds int       `json:"remainingSeconds"`
	ExpiresAt        time.Time `json:"expiresAt"`
	Extended         bool      `json:"extended"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	o := newOracle(cfg)
	if o == nil {
		err := usageErrorf("the oracle is disabled (oracle.enabled = false)")
		if statusJSON {
			_ = NewJSONErrorResponse("status", err).Print(cmd.OutOrStdout())
		}
		return err
	}

	report, err := queryStatus(cmd.Context(), o, statusKeepAlive, time.Now)
	report.BaseURL = cfg.Oracle.BaseURL
	if statusJSON {
		resp := NewJSONResponse("status", report)
		if err != nil {
			resp = NewJSONErrorResponse("status", err)
		}
		if perr := resp.Print(cmd.OutOrStdout()); perr != nil {
			return perr
		}
		return err
	}
	if err != nil {
		return err
	}
	writeStatus(cmd.OutOrStdout(), report)
	return nil
}

// queryStatus optionally extends the session, then reads the remaining time.
func queryStatus(ctx context.Context, o coordinator.Oracle, keepAlive bool, now func() time.Time) (StatusReport, error) {
	var report StatusReport
	if keepAlive {
		if err := o.KeepAlive(ctx); err != nil {
			return report, fmt.Errorf("keep-alive failed: %w", err)
		}
		report.Extended = true
	}

	remaining, err := o.Remaining(ctx)
	if err != nil {
		return report, fmt.Errorf("status query failed: %w", err)
	}
	report.RemainingSeconds = remaining
	report.ExpiresAt = now().Add(time.Duration(remaining) * time.Second).UTC()
	return report, nil
}

func writeStatus(w io.Writer, r StatusReport) {
	if r.RemainingSeconds <= 0 {
		fmt.Fprintln(w, ErrorStyle.Render("[X] session expired"))
	} else {
		fmt.Fprintln(w, SuccessStyle.Render("[OK] session active"))
	}
	if r.BaseURL != "" {
		fmt.Fprintln(w, field("server", r.BaseURL))
	}
	fmt.Fprintln(w, field("remaining", util.FormatDuration(time.Duration(r.RemainingSeconds)*time.Second)))
	if r.RemainingSeconds > 0 {
		fmt.Fprintln(w, field("expires at", r.ExpiresAt.Local().Format("15:04:05")))
	}
	if r.Extended {
		fmt.Fprintln(w, DimStyle.Render("session extended"))
	}
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "print JSON")
	statusCmd.Flags().BoolVar(&statusKeepAlive, "keep-alive", false, "extend the session before reading it")
	rootCmd.AddCommand(statusCmd)
}
