// Copyright (c) 2026 Keymaster Team
// u2fmap - pam_u2f mapping file editor
// This source code is licensed under the MIT license found in the LICENSE file.

// Package config provides configuration loading, merging, and persistence
// helpers for u2fmap. It uses Viper for file/env/flag parsing and writes
// default files with go-yaml.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config is the application configuration.
type Config struct {
	Mapping  MappingConfig  `mapstructure:"mapping" yaml:"mapping"`
	History  HistoryConfig  `mapstructure:"history" yaml:"history"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Language string         `mapstructure:"language" yaml:"language"`
	LogLevel string         `mapstructure:"log_level" yaml:"log_level"`
}

// MappingConfig selects the mapping file to edit.
type MappingConfig struct {
	// Path of the mapping file. Empty means the pam_u2f per-user default.
	Path string `mapstructure:"path" yaml:"path"`
}

// HistoryConfig controls the audit log and snapshot store.
type HistoryConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// DatabaseConfig is the connection of the history store.
type DatabaseConfig struct {
	Type string `mapstructure:"type" yaml:"type"`
	Dsn  string `mapstructure:"dsn" yaml:"dsn"`
}

// Defaults returns the default values keyed by their viper names.
func Defaults() map[string]any {
	dsn := "./u2fmap.db"
	if dir, err := os.UserConfigDir(); err == nil {
		dsn = filepath.Join(dir, "u2fmap", "history.db")
	}
	return map[string]any{
		"mapping.path":    "",
		"history.enabled": true,
		"database.type":   "sqlite",
		"database.dsn":    dsn,
		"language":        "en",
		"log_level":       "info",
	}
}

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() Config {
	d := Defaults()
	return Config{
		Mapping:  MappingConfig{Path: d["mapping.path"].(string)},
		History:  HistoryConfig{Enabled: d["history.enabled"].(bool)},
		Database: DatabaseConfig{Type: d["database.type"].(string), Dsn: d["database.dsn"].(string)},
		Language: d["language"].(string),
		LogLevel: d["log_level"].(string),
	}
}

// GetConfigPath returns the full path for the configuration file.
func GetConfigPath(system bool) (string, error) {
	var configDir string
	var err error

	if system {
		switch runtime.GOOS {
		case "windows":
			configDir = filepath.Join(os.Getenv("ProgramData"), "u2fmap")
		default:
			configDir = "/etc/u2fmap"
		}
	} else {
		configDir, err = os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("could not get user config directory: %w", err)
		}
		configDir = filepath.Join(configDir, "u2fmap")
	}

	return filepath.Join(configDir, "u2fmap.yaml"), nil
}

// LoadConfig reads defaults, the config file, U2FMAP_* environment variables
// and the flags of cmd, in increasing order of precedence. A missing config
// file is reported as viper.ConfigFileNotFoundError together with the
// resolved configuration.
func LoadConfig[T any](cmd *cobra.Command, defaults map[string]any, explicitPath *string) (T, error) {
	var c T
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("u2fmap")
	v.SetConfigType("yaml")
	if explicitPath != nil {
		v.SetConfigFile(*explicitPath)
	}
	if userConfigPath, err := GetConfigPath(false); err == nil {
		v.AddConfigPath(filepath.Dir(userConfigPath))
	}
	if systemConfigPath, err := GetConfigPath(true); err == nil {
		v.AddConfigPath(filepath.Dir(systemConfigPath))
	}
	v.AddConfigPath(".")

	var notFound error
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return c, err
		}
		notFound = err
	} else if isEmptyFile(v.ConfigFileUsed()) {
		notFound = viper.ConfigFileNotFoundError{}
	}

	v.SetEnvPrefix("u2fmap")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cmd != nil {
		if err := bindFlags(v, cmd); err != nil {
			return c, err
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	return c, notFound
}

// flagKeys maps command line flags to configuration keys.
var flagKeys = map[string]string{
	"file":     "mapping.path",
	"language": "language",
	"db-type":  "database.type",
	"db-dsn":   "database.dsn",
}

func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	for flag, key := range flagKeys {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return err
		}
	}
	return nil
}

func isEmptyFile(path string) bool {
	if path == "" {
		return false
	}
	st, err := os.Stat(path)
	return err == nil && st.Size() == 0
}

// WriteConfigFile writes c as YAML to the user (or system) config path.
func WriteConfigFile[T any](c *T, system bool) error {
	path, err := GetConfigPath(system)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("could not create config directory %s: %w", configDir, err)
	}

	return os.WriteFile(path, data, 0600)
}
