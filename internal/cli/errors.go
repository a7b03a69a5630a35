// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/jeranaias/sessionguard/internal/config"
	"github.com/jeranaias/sessionguard/internal/oracle"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates configuration file or settings error
	ExitConfigError = 3
	// ExitAuthError indicates the oracle rejected the credentials
	ExitAuthError = 4
	// ExitNetworkError indicates the oracle could not be reached
	ExitNetworkError = 5
)

// UsageError marks a bad argument or flag value.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string {
	return e.Message
}

func usageErrorf(format string, args ...any) error {
	return &UsageError{Message: fmt.Sprintf(format, args...)}
}

// ExitCode maps an error to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var usage *UsageError
	if errors.As(err, &usage) {
		return ExitUsageError
	}
	var tty *TTYRequiredError
	if errors.As(err, &tty) {
		return ExitUsageError
	}

	var invalid config.ValidateErrors
	if errors.As(err, &invalid) {
		return ExitConfigError
	}

	switch oracle.TypeOf(err) {
	case oracle.ErrTypeUnauthorized:
		return ExitAuthError
	case oracle.ErrTypeConnection, oracle.ErrTypeTimeout:
		return ExitNetworkError
	}
	return ExitGeneralError
}

// DisplayError prints err to stderr in the CLI's error format.
func DisplayError(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "%s %s\n", ErrorStyle.Render("[ERROR]"), err.Error())
}
