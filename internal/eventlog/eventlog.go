// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package eventlog writes session audit lines in the form
//
//	2026-01-02 15:04:05 UTC | SESSION_WARNING | session=<id> remaining=30
//
// A nil *Logger discards everything, so components can log unconditionally.
package eventlog

import (
	"fmt"
	"io"
	"log"
	"strings"
	"time"
)

// Level gates which events are written.
type Level int

const (
	LevelOff Level = iota
	LevelError
	LevelInfo
	LevelDebug
)

// ParseLevel parses off, error, info or debug. Unknown values mean info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "none":
		return LevelOff
	case "error":
		return LevelError
	case "debug":
		return LevelDebug
	default:
		return LevelInfo
	}
}

// String returns the level name.
func (l Level) String() string {
	switch l {
	case LevelOff:
		return "off"
	case LevelError:
		return "error"
	case LevelDebug:
		return "debug"
	default:
		return "info"
	}
}

// Logger writes event lines through a standard library logger.
type Logger struct {
	out   *log.Logger
	level Level
	now   func() time.Time
}

// New creates a logger writing to w at the given level.
func New(w io.Writer, level Level) *Logger {
	if w == nil {
		w = io.Discard
	}
	return &Logger{
		out:   log.New(w, "", 0),
		level: level,
		now:   time.Now,
	}
}

// Level returns the configured level.
func (l *Logger) Level() Level {
	if l == nil {
		return LevelOff
	}
	return l.level
}

// Event records an informational event.
func (l *Logger) Event(eventType, session, details string) {
	l.write(LevelInfo, eventType, session, details)
}

// Error records a failure event.
func (l *Logger) Error(eventType, session string, err error) {
	details := ""
	if err != nil {
		details = "error=" + err.Error()
	}
	l.write(LevelError, eventType, session, details)
}

// Debug records a high-volume event such as a countdown tick.
func (l *Logger) Debug(eventType, session, details string) {
	l.write(LevelDebug, eventType, session, details)
}

func (l *Logger) write(level Level, eventType, session, details string) {
	if l == nil || l.level == LevelOff || level > l.level {
		return
	}
	timestamp := l.now().UTC().Format("2006-01-02 15:04:05 UTC")
	line := fmt.Sprintf("%s | %s | session=%s", timestamp, eventType, session)
	if details != "" {
		line += " " + details
	}
	l.out.Print(line)
}
