// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/jeranaias/sessionguard/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete sessionguard configuration.
type Config struct {
	Session SessionConfig `toml:"session" json:"session" yaml:"session"`
	Oracle  OracleConfig  `toml:"oracle" json:"oracle" yaml:"oracle"`
	Store   StoreConfig   `toml:"store" json:"store" yaml:"store"`
	Server  ServerConfig  `toml:"server" json:"server" yaml:"server"`
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`
}

// SessionConfig holds the coordinator timing.
type SessionConfig struct {
	// Fallback window when the oracle cannot answer
	SessionMinutes int `toml:"session_minutes" json:"session_minutes" yaml:"session_minutes"`

	// Countdown lead before forced logout
	WarningSeconds int `toml:"warning_seconds" json:"warning_seconds" yaml:"warning_seconds"`

	// Minimum gap between activity-driven keep-alive calls (0 = no throttle)
	KeepAliveIntervalSecs int `toml:"keepalive_interval_secs" json:"keepalive_interval_secs" yaml:"keepalive_interval_secs"`

	// Input kinds that count as activity
	ActivityEvents []string `toml:"activity_events" json:"activity_events" yaml:"activity_events"`
}

// OracleConfig points at the server's session endpoints.
type OracleConfig struct {
	// false runs in pure client mode with only the local window
	Enabled       bool   `toml:"enabled" json:"enabled" yaml:"enabled"`
	BaseURL       string `toml:"base_url" json:"base_url" yaml:"base_url"`
	StatusPath    string `toml:"status_path" json:"status_path" yaml:"status_path"`
	KeepAlivePath string `toml:"keepalive_path" json:"keepalive_path" yaml:"keepalive_path"`
	Token         string `toml:"token" json:"token" yaml:"token"`
	Cookie        string `toml:"cookie" json:"cookie" yaml:"cookie"`
	TimeoutSecs   int    `toml:"timeout_secs" json:"timeout_secs" yaml:"timeout_secs"`
}

// StoreConfig selects the shared signal store.
type StoreConfig struct {
	// memory | file | sqlite
	Kind string `toml:"kind" json:"kind" yaml:"kind"`

	// Directory for file, database file for sqlite. Empty uses a default
	// under the config directory.
	Path string `toml:"path" json:"path" yaml:"path"`

	// SQLite poll interval
	PollIntervalMs int `toml:"poll_interval_ms" json:"poll_interval_ms" yaml:"poll_interval_ms"`
}

// ServerConfig configures the reference session server.
type ServerConfig struct {
	Listen         string   `toml:"listen" json:"listen" yaml:"listen"`
	SessionMinutes int      `toml:"session_minutes" json:"session_minutes" yaml:"session_minutes"`
	RateLimit      float64  `toml:"rate_limit" json:"rate_limit" yaml:"rate_limit"`
	RateBurst      int      `toml:"rate_burst" json:"rate_burst" yaml:"rate_burst"`
	AllowedOrigins []string `toml:"allowed_origins" json:"allowed_origins" yaml:"allowed_origins"`
}

// LoggingConfig controls the event log.
type LoggingConfig struct {
	// off | error | info | debug
	Level string `toml:"level" json:"level" yaml:"level"`
	// Empty writes to stderr (or nowhere under the TUI)
	File string `toml:"file" json:"file" yaml:"file"`
}

// Store kinds.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreSQLite = "sqlite"
)

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Session: SessionConfig{
			SessionMinutes:        15,
			WarningSeconds:        30,
			KeepAliveIntervalSecs: 60,
			ActivityEvents: []string{
				"click", "mousedown", "mousemove", "keydown", "keypress", "scroll", "touchstart",
			},
		},
		Oracle: OracleConfig{
			Enabled:       true,
			BaseURL:       "http://127.0.0.1:8790",
			StatusPath:    "/auth/session-status",
			KeepAlivePath: "/auth/keep-alive",
			TimeoutSecs:   10,
		},
		Store: StoreConfig{
			Kind:           StoreFile,
			PollIntervalMs: 500,
		},
		Server: ServerConfig{
			Listen:         "127.0.0.1:8790",
			SessionMinutes: 15,
			RateLimit:      20,
			RateBurst:      40,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the sessionguard configuration directory path.
func ConfigDir() (string, error) {
	if dir := os.Getenv("SESSIONGUARD_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".sessionguard"), nil
}

func configPath(name string) (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) { return configPath("config.toml") }

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) { return configPath("config.json") }

// ConfigPathYAML returns the path to the YAML config file.
func ConfigPathYAML() (string, error) { return configPath("config.yaml") }

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// StorePath resolves the store location, defaulting by kind.
func (c *Config) StorePath() (string, error) {
	if c.Store.Path != "" {
		return ExpandHome(c.Store.Path), nil
	}
	switch c.Store.Kind {
	case StoreSQLite:
		return configPath("signals.db")
	default:
		return configPath("signals")
	}
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads the first config file found under ConfigDir (TOML, then JSON,
// then YAML), applies environment overrides and validates. With no file
// present the defaults are used.
func Load() (*Config, error) {
	finders := []func() (string, error){ConfigPathTOML, ConfigPathJSON, ConfigPathYAML}
	for _, find := range finders {
		path, err := find()
		if err != nil {
			continue
		}
		if _, statErr := os.Stat(path); statErr == nil {
			return LoadFromPath(path)
		}
	}

	cfg := Default()
	return finish(cfg)
}

// LoadFromPath loads configuration from a specific file. The format follows
// the extension; anything other than .json, .yaml or .yml is read as TOML.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = LoadJSON(cfg, path)
	case ".yaml", ".yml":
		err = LoadYAML(cfg, path)
	default:
		err = LoadTOML(cfg, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg.
func LoadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON decodes a JSON file over cfg.
func LoadJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// LoadYAML decodes a YAML file over cfg.
func LoadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read YAML file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode YAML file: %w", err)
	}
	return nil
}

// SetDefaults fills zero values that have no meaning with defaults.
func (c *Config) SetDefaults() {
	d := Default()

	if c.Session.SessionMinutes == 0 {
		c.Session.SessionMinutes = d.Session.SessionMinutes
	}
	if len(c.Session.ActivityEvents) == 0 {
		c.Session.ActivityEvents = d.Session.ActivityEvents
	}

	if c.Oracle.BaseURL == "" {
		c.Oracle.BaseURL = d.Oracle.BaseURL
	}
	if c.Oracle.StatusPath == "" {
		c.Oracle.StatusPath = d.Oracle.StatusPath
	}
	if c.Oracle.KeepAlivePath == "" {
		c.Oracle.KeepAlivePath = d.Oracle.KeepAlivePath
	}
	if c.Oracle.TimeoutSecs == 0 {
		c.Oracle.TimeoutSecs = d.Oracle.TimeoutSecs
	}

	if c.Store.Kind == "" {
		c.Store.Kind = d.Store.Kind
	}
	c.Store.Kind = strings.ToLower(c.Store.Kind)
	if c.Store.PollIntervalMs == 0 {
		c.Store.PollIntervalMs = d.Store.PollIntervalMs
	}

	if c.Server.Listen == "" {
		c.Server.Listen = d.Server.Listen
	}
	if c.Server.SessionMinutes == 0 {
		c.Server.SessionMinutes = d.Server.SessionMinutes
	}
	if c.Server.RateLimit == 0 {
		c.Server.RateLimit = d.Server.RateLimit
	}
	if c.Server.RateBurst == 0 {
		c.Server.RateBurst = d.Server.RateBurst
	}

	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes cfg to the default TOML path.
func Save(cfg *Config) (string, error) {
	path, err := ConfigPathTOML()
	if err != nil {
		return "", err
	}
	return path, SaveTOML(cfg, path)
}

// SaveTOML writes cfg atomically with owner-only permissions, since the
// file may hold a session token.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# sessionguard configuration file\n")
	buf.WriteString("# Generated by sessionguard - edit with care\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Encode renders cfg as toml, json or yaml.
func Encode(cfg *Config, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "", "toml":
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case "json":
		return json.MarshalIndent(cfg, "", "  ")
	case "yaml", "yml":
		return yaml.Marshal(cfg)
	default:
		return nil, fmt.Errorf("unknown format %q (want toml, json or yaml)", format)
	}
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Session.ActivityEvents = append([]string(nil), c.Session.ActivityEvents...)
	clone.Server.AllowedOrigins = append([]string(nil), c.Server.AllowedOrigins...)
	return &clone
}

// Redacted returns a copy safe to print: the token and cookie are masked.
func (c *Config) Redacted() *Config {
	safe := c.Clone()
	if safe.Oracle.Token != "" {
		safe.Oracle.Token = "[REDACTED]"
	}
	if safe.Oracle.Cookie != "" {
		safe.Oracle.Cookie = "[REDACTED]"
	}
	return safe
}

// String returns the redacted config as JSON.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c.Redacted(), "", "  ")
	return string(data)
}
