// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// sessionguard keeps an authenticated session alive while the user is
// active and logs every open instance out together when it runs out.
package main

import (
	"os"

	"github.com/jeranaias/sessionguard/internal/cli"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	cli.SetVersion(Version, GitCommit, BuildDate)
	if err := cli.Execute(); err != nil {
		os.Exit(cli.ExitCode(err))
	}
}
