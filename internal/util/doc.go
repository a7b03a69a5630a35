// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util holds small helpers shared by the sessionguard packages.
//
//   - AtomicWriteFile: crash-safe file writes, used by the file signal store
//     and config saving
//   - FormatCountdown, FormatDuration: countdown text for the terminal views
//   - TruncateWidth: display-width aware truncation for toasts and badges
package util
