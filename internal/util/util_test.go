// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// ATOMIC WRITE TESTS
// =============================================================================

func TestAtomicWriteFile_Basic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signal")

	require.NoError(t, AtomicWriteFile(path, []byte("1700000000000"), 0o600))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "1700000000000", string(content))

	info, err := os.Stat(path)
	require.NoError(t, err)
	if os.PathSeparator == '/' {
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}
}

func TestAtomicWriteFile_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "signal")

	require.NoError(t, AtomicWriteFile(path, []byte("x"), 0o600))
	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestAtomicWriteFile_OverwritesWithoutLeftovers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "signal")

	require.NoError(t, AtomicWriteFile(path, []byte("first"), 0o600))
	require.NoError(t, AtomicWriteFile(path, []byte("second"), 0o600))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(content))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must be renamed away")
}

func TestAtomicWriteFileWithDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "signal")

	require.NoError(t, AtomicWriteFileWithDir(path, []byte("y"), 0o600, 0o750))
	info, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

// =============================================================================
// FORMATTING TESTS
// =============================================================================

func TestFormatCountdown(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{0, "0:00"},
		{5, "0:05"},
		{30, "0:30"},
		{60, "1:00"},
		{125, "2:05"},
		{900, "15:00"},
		{-4, "0:00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatCountdown(tt.seconds), "seconds=%d", tt.seconds)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0s"},
		{45 * time.Second, "45s"},
		{14*time.Minute + 30*time.Second, "14m 30s"},
		{15 * time.Minute, "15m"},
		{time.Hour + 5*time.Minute, "1h 5m"},
		{2 * time.Hour, "2h"},
		{-time.Second, "0s"},
		{1400 * time.Millisecond, "1s"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.d), "d=%s", tt.d)
	}
}

func TestTruncateWidth(t *testing.T) {
	assert.Equal(t, "hello", TruncateWidth("hello", 10))
	assert.Equal(t, "hello w...", TruncateWidth("hello world!", 10))
	assert.Equal(t, "", TruncateWidth("hello", 0))
	assert.Equal(t, "he", TruncateWidth("hello", 2))

	// Wide runes take two cells and are never split.
	got := TruncateWidth("セッション切れ", 7)
	assert.LessOrEqual(t, StringWidth(got), 7)
}

func TestPadRight(t *testing.T) {
	assert.Equal(t, "ab  ", PadRight("ab", 4))
	assert.Equal(t, 4, StringWidth(PadRight("ab", 4)))
}
