// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package broadcast lets sibling session views agree on one logical session
// through a shared key/value store.
//
// Three facts are published, each under its own key holding a decimal string
// of epoch milliseconds:
//
//	sessionguard.keepalive_at        a keep-alive happened
//	sessionguard.logout_at           a logout happened
//	sessionguard.warning_expires_at  a warning started; value is its expiry
//
// A write is seen by every other view of the same store, never by the writer.
// Readers drop any value that is not newer than the last one they processed
// for that key.
//
// # Stores
//
//   - Hub: in-process, synchronous delivery (tests, embedded hosts)
//   - FileStore: one file per key in a shared directory, watched with fsnotify
//   - SQLStore: SQLite table polled for rows written by other instances
package broadcast
