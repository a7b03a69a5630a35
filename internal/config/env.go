// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"strconv"
	"strings"
)

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - SESSIONGUARD_SESSION_MINUTES: session.session_minutes
//   - SESSIONGUARD_WARNING_SECONDS: session.warning_seconds
//   - SESSIONGUARD_ORACLE_URL: oracle.base_url (an empty oracle disables it)
//   - SESSIONGUARD_TOKEN: oracle.token
//   - SESSIONGUARD_STORE: store.kind
//   - SESSIONGUARD_STORE_PATH: store.path
//   - SESSIONGUARD_LOG_LEVEL: logging.level
//
// Unparseable numbers are ignored and the file value is kept.
func (c *Config) ApplyEnvOverrides() {
	if n, ok := envInt("SESSIONGUARD_SESSION_MINUTES"); ok {
		c.Session.SessionMinutes = n
	}
	if n, ok := envInt("SESSIONGUARD_WARNING_SECONDS"); ok {
		c.Session.WarningSeconds = n
	}

	if v, ok := os.LookupEnv("SESSIONGUARD_ORACLE_URL"); ok {
		v = strings.TrimSpace(v)
		if v == "" || strings.EqualFold(v, "off") {
			c.Oracle.Enabled = false
		} else {
			c.Oracle.Enabled = true
			c.Oracle.BaseURL = v
		}
	}
	if v := os.Getenv("SESSIONGUARD_TOKEN"); v != "" {
		c.Oracle.Token = v
	}

	if v := os.Getenv("SESSIONGUARD_STORE"); v != "" {
		c.Store.Kind = strings.ToLower(v)
	}
	if v := os.Getenv("SESSIONGUARD_STORE_PATH"); v != "" {
		c.Store.Path = v
	}

	if v := os.Getenv("SESSIONGUARD_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

func envInt(name string) (int, bool) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}
