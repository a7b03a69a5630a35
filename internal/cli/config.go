// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/sessionguard/internal/config"
	"github.com/jeranaias/sessionguard/internal/util"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `View and create the sessionguard configuration.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Display the configuration after file, environment and flag overrides.
Tokens and cookies are masked.

Example:
  sessionguard config show
  sessionguard config show --format yaml`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configGetCmd = &cobra.Command{
	Use:   "get <path>",
	Short: "Get a configuration value",
	Long: `Get one configuration value by its dotted path.

Examples:
  sessionguard config get session.warning_seconds
  sessionguard config get store`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigGet,
}

var configPathCmd = &cobra.Command{
	Use:         "path",
	Short:       "Show the configuration file path",
	Annotations: map[string]string{annotationNoConfig: "true"},
	Args:        cobra.NoArgs,
	RunE:        runConfigPath,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Create a default configuration file at ~/.sessionguard/config.toml, or at
--config when given.

If a configuration file already exists, this command will not overwrite it
unless --force is specified.

Example:
  sessionguard config init
  sessionguard config init --force`,
	Annotations: map[string]string{annotationNoConfig: "true"},
	Args:        cobra.NoArgs,
	RunE:        runConfigInit,
}

var (
	configFormat string
	configForce  bool
)

func runConfigShow(cmd *cobra.Command, _ []string) error {
	data, err := config.Encode(cfg.Redacted(), configFormat)
	if err != nil {
		return usageErrorf("%v", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	value, err := configValue(cfg.Redacted(), args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), value)
	return nil
}

// configValue looks up a dotted path such as "oracle.base_url" using the
// file key names. Sections print as JSON.
func configValue(c *config.Config, path string) (string, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	var node interface{}
	if err := json.Unmarshal(raw, &node); err != nil {
		return "", err
	}

	for _, part := range strings.Split(path, ".") {
		m, ok := node.(map[string]interface{})
		if !ok {
			return "", usageErrorf("unknown config key %q", path)
		}
		if node, ok = m[part]; !ok {
			return "", usageErrorf("unknown config key %q", path)
		}
	}

	switch v := node.(type) {
	case string:
		return v, nil
	case map[string]interface{}, []interface{}:
		out, err := json.MarshalIndent(v, "", "  ")
		return string(out), err
	default:
		return fmt.Sprint(v), nil
	}
}

func runConfigPath(cmd *cobra.Command, _ []string) error {
	path, err := configFilePath()
	if err != nil {
		return err
	}
	exists := "not created"
	if _, err := os.Stat(path); err == nil {
		exists = "exists"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", path, DimStyle.Render("("+exists+")"))
	return nil
}

// configFilePath is --config when set, else the first existing default file,
// else the default TOML path.
func configFilePath() (string, error) {
	if configPath != "" {
		return config.ExpandHome(configPath), nil
	}
	for _, find := range []func() (string, error){config.ConfigPathTOML, config.ConfigPathJSON, config.ConfigPathYAML} {
		path, err := find()
		if err != nil {
			return "", err
		}
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return config.ConfigPathTOML()
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	path, err := configFilePath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil && !configForce {
		return usageErrorf("configuration already exists at %s. Use --force to overwrite.", path)
	}

	if err := writeDefaultConfig(path); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s configuration written to %s\n", SuccessStyle.Render("[OK]"), path)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Edit this file to configure:")
	fmt.Fprintln(w, "  - oracle.base_url: your session server")
	fmt.Fprintln(w, "  - session.session_minutes: fallback window without a server")
	fmt.Fprintln(w, "  - store.kind: memory, file or sqlite")
	return nil
}

// writeDefaultConfig writes the defaults in the format the extension names.
func writeDefaultConfig(path string) error {
	var format string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		format = "json"
	case ".yaml", ".yml":
		format = "yaml"
	default:
		return config.SaveTOML(config.Default(), path)
	}

	data, err := config.Encode(config.Default(), format)
	if err != nil {
		return err
	}
	return util.AtomicWriteFile(path, data, 0o600)
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configInitCmd)

	configShowCmd.Flags().StringVarP(&configFormat, "format", "f", "toml", "output format: toml, json, yaml")
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite existing configuration")
}
