// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the sessionguard command-line interface.
//
// Commands are package-level cobra commands registered in init. Global
// flags are parsed into package state, and PersistentPreRunE turns them
// into the loaded configuration and event logger every command uses.
//
// # Commands
//
//   - watch: full-screen session view (requires a terminal)
//   - run: line-prompt session host
//   - serve: reference session server
//   - status: one-shot remaining-time query
//   - signal: announce keepalive, logout or warning on the shared store
//   - config: show, get, path and init
//
// # Exit codes
//
// ExitCode maps errors to process exit codes: 2 for usage errors, 3 for
// invalid configuration, 4 when the server rejects the session and 5 when
// it cannot be reached.
package cli
