// Package config handles configuration loading for the engine: a global
// user config, a project-local override, environment variables, and CLI
// flags, layered the way the teacher's config package does it.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the engine.
type Config struct {
	Defaults DefaultsConfig `mapstructure:"defaults"`
	TUI      TUIConfig      `mapstructure:"tui"`
}

// DefaultsConfig holds default values for orchestrator runs.
type DefaultsConfig struct {
	Concurrency   int     `mapstructure:"concurrency"`
	TestingRatio  float64 `mapstructure:"testing_ratio"`
	ReviewEnabled bool    `mapstructure:"review_enabled"`
	Entrypoint    string  `mapstructure:"entrypoint"`
	ProviderFile  string  `mapstructure:"provider_file"`
}

// TUIConfig holds status-view display settings.
type TUIConfig struct {
	RefreshRate time.Duration `mapstructure:"refresh_rate"`
}

// projectConfigName is the project-local override file, relative to the
// project's .forge directory.
const projectConfigName = "config.yaml"

// Load loads configuration from the global XDG path, a project-local
// override, and FORGE_* environment variables.
// Precedence (highest to lowest):
//  1. Environment variables (FORGE_*)
//  2. Project config (<projectDir>/.forge/config.yaml)
//  3. User config (~/.config/forge/config.yaml)
//  4. Built-in defaults
func Load(projectDir string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir())
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectDir != "" {
		projectPath := filepath.Join(projectDir, ".forge", projectConfigName)
		if _, err := os.Stat(projectPath); err == nil {
			pv := viper.New()
			pv.SetConfigFile(projectPath)
			if err := pv.ReadInConfig(); err == nil {
				if err := v.MergeConfigMap(pv.AllSettings()); err != nil {
					return nil, fmt.Errorf("merging project config: %w", err)
				}
			}
		}
	}

	v.SetEnvPrefix("FORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return cfg, nil
}

// Save writes cfg to the user's global config file.
func Save(cfg *Config) error {
	dir := userConfigDir()
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(filepath.Join(dir, "config.yaml"))
	v.Set("defaults.concurrency", cfg.Defaults.Concurrency)
	v.Set("defaults.testing_ratio", cfg.Defaults.TestingRatio)
	v.Set("defaults.review_enabled", cfg.Defaults.ReviewEnabled)
	v.Set("defaults.entrypoint", cfg.Defaults.Entrypoint)
	v.Set("defaults.provider_file", cfg.Defaults.ProviderFile)
	v.Set("tui.refresh_rate", cfg.TUI.RefreshRate.String())
	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the global config file.
func GetUserConfigPath() string {
	return filepath.Join(userConfigDir(), "config.yaml")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("defaults.concurrency", 4)
	v.SetDefault("defaults.testing_ratio", 0.25)
	v.SetDefault("defaults.review_enabled", true)
	v.SetDefault("defaults.entrypoint", "forge-worker")
	v.SetDefault("defaults.provider_file", "providers.json")
	v.SetDefault("tui.refresh_rate", "1s")
}

// userConfigDir returns the XDG config directory for the engine.
func userConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "forge")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "forge")
	}
	return filepath.Join(home, ".config", "forge")
}

// Default returns a Config with built-in default values, used when no
// config file is present and Load cannot be called (e.g. in tests).
func Default() *Config {
	return &Config{
		Defaults: DefaultsConfig{
			Concurrency:   4,
			TestingRatio:  0.25,
			ReviewEnabled: true,
			Entrypoint:    "forge-worker",
			ProviderFile:  "providers.json",
		},
		TUI: TUIConfig{RefreshRate: time.Second},
	}
}
