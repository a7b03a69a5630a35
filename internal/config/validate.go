// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/jeranaias/sessionguard/internal/eventlog"
)

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks every section and returns all problems at once as
// ValidateErrors.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	// Session
	if c.Session.SessionMinutes < 1 || c.Session.SessionMinutes > 1440 {
		add("session.session_minutes", "must be between 1 and 1440, got %d", c.Session.SessionMinutes)
	}
	if c.Session.WarningSeconds < 0 || c.Session.WarningSeconds > 3600 {
		add("session.warning_seconds", "must be between 0 and 3600, got %d", c.Session.WarningSeconds)
	}
	if c.Session.KeepAliveIntervalSecs < 0 {
		add("session.keepalive_interval_secs", "must not be negative, got %d", c.Session.KeepAliveIntervalSecs)
	}
	for _, ev := range c.Session.ActivityEvents {
		if strings.TrimSpace(ev) == "" {
			add("session.activity_events", "must not contain empty names")
			break
		}
	}

	// Oracle
	if c.Oracle.Enabled {
		u, err := url.Parse(c.Oracle.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			add("oracle.base_url", "must be an http or https URL, got %q", c.Oracle.BaseURL)
		}
		for field, p := range map[string]string{
			"oracle.status_path":    c.Oracle.StatusPath,
			"oracle.keepalive_path": c.Oracle.KeepAlivePath,
		} {
			if !strings.HasPrefix(p, "/") {
				add(field, "must start with '/', got %q", p)
			}
		}
	}
	if c.Oracle.TimeoutSecs < 1 || c.Oracle.TimeoutSecs > 300 {
		add("oracle.timeout_secs", "must be between 1 and 300, got %d", c.Oracle.TimeoutSecs)
	}

	// Store
	switch c.Store.Kind {
	case StoreMemory, StoreFile, StoreSQLite:
	default:
		add("store.kind", "invalid kind %q, must be one of: memory, file, sqlite", c.Store.Kind)
	}
	if c.Store.PollIntervalMs < 10 {
		add("store.poll_interval_ms", "must be at least 10, got %d", c.Store.PollIntervalMs)
	}

	// Server
	if c.Server.Listen == "" {
		add("server.listen", "must not be empty")
	}
	if c.Server.SessionMinutes < 1 {
		add("server.session_minutes", "must be positive, got %d", c.Server.SessionMinutes)
	}
	if c.Server.RateLimit < 0 {
		add("server.rate_limit", "must not be negative, got %g", c.Server.RateLimit)
	}
	if c.Server.RateBurst < 0 {
		add("server.rate_burst", "must not be negative, got %d", c.Server.RateBurst)
	}

	// Logging
	switch strings.ToLower(c.Logging.Level) {
	case "off", "none", "error", "info", "debug":
	default:
		add("logging.level", "invalid level %q, must be one of: off, error, info, debug", c.Logging.Level)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// LogLevel returns the parsed logging level.
func (c *Config) LogLevel() eventlog.Level {
	return eventlog.ParseLevel(c.Logging.Level)
}
