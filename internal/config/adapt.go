// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/jeranaias/sessionguard/internal/coordinator"
	"github.com/jeranaias/sessionguard/internal/eventlog"
	"github.com/jeranaias/sessionguard/internal/oracle"
)

// CoordinatorConfig converts the session section.
func (c *Config) CoordinatorConfig() coordinator.Config {
	return coordinator.Config{
		SessionMinutes:    c.Session.SessionMinutes,
		WarningSeconds:    c.Session.WarningSeconds,
		KeepAliveInterval: time.Duration(c.Session.KeepAliveIntervalSecs) * time.Second,
		ActivityEvents:    append([]string(nil), c.Session.ActivityEvents...),
		OracleTimeout:     time.Duration(c.Oracle.TimeoutSecs) * time.Second,
	}
}

// OracleClientConfig converts the oracle section.
func (c *Config) OracleClientConfig() *oracle.ClientConfig {
	return &oracle.ClientConfig{
		BaseURL:       c.Oracle.BaseURL,
		StatusPath:    c.Oracle.StatusPath,
		KeepAlivePath: c.Oracle.KeepAlivePath,
		Token:         c.Oracle.Token,
		Cookie:        c.Oracle.Cookie,
		Timeout:       time.Duration(c.Oracle.TimeoutSecs) * time.Second,
	}
}

// PollInterval is the SQLite store's poll interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Store.PollIntervalMs) * time.Millisecond
}

// OpenLogger builds the event logger. When logging.file is set the log is
// appended there and the returned closer closes it; otherwise fallback is
// used and the closer does nothing.
func (c *Config) OpenLogger(fallback io.Writer) (*eventlog.Logger, io.Closer, error) {
	level := c.LogLevel()
	if c.Logging.File == "" {
		return eventlog.New(fallback, level), io.NopCloser(nil), nil
	}

	path := ExpandHome(c.Logging.File)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	// #nosec G304 -- path comes from the user's own config
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return eventlog.New(f, level), f, nil
}
