// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads and validates sessionguard configuration.
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (SESSIONGUARD_*)
//   - ~/.sessionguard/config.toml
//   - ~/.sessionguard/config.json
//   - ~/.sessionguard/config.yaml
//   - Built-in defaults
//
// SESSIONGUARD_HOME moves the configuration directory.
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	coord, err := coordinator.New(cfg.CoordinatorConfig(), ...)
package config
