// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package eventlog

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"off":     LevelOff,
		"NONE":    LevelOff,
		"error":   LevelError,
		" debug ": LevelDebug,
		"info":    LevelInfo,
		"bogus":   LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
	assert.Equal(t, "debug", LevelDebug.String())
	assert.Equal(t, "off", LevelOff.String())
}

func TestLogger_Format(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelInfo)
	l.now = func() time.Time { return time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC) }

	l.Event("SESSION_ARMED", "tab-1", "remaining=900")
	assert.Equal(t, "2026-02-03 04:05:06 UTC | SESSION_ARMED | session=tab-1 remaining=900\n", buf.String())
}

func TestLogger_LevelGating(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelError)

	l.Debug("TICK", "s", "")
	l.Event("ARMED", "s", "")
	assert.Empty(t, buf.String())

	l.Error("STORE_ERROR", "s", errors.New("disk full"))
	assert.True(t, strings.Contains(buf.String(), "STORE_ERROR | session=s error=disk full"))
}

func TestLogger_NilAndOff(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() {
		l.Event("X", "s", "")
		l.Error("X", "s", nil)
		l.Debug("X", "s", "")
	})
	assert.Equal(t, LevelOff, l.Level())

	var buf bytes.Buffer
	off := New(&buf, LevelOff)
	off.Error("X", "s", errors.New("boom"))
	assert.Empty(t, buf.String())
}
