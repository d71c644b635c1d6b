package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	require.Equal(t, 4, cfg.Defaults.Concurrency)
	require.Equal(t, 0.25, cfg.Defaults.TestingRatio)
	require.True(t, cfg.Defaults.ReviewEnabled)
	require.Equal(t, "forge-worker", cfg.Defaults.Entrypoint)
	require.Equal(t, "providers.json", cfg.Defaults.ProviderFile)
	require.Equal(t, time.Second, cfg.TUI.RefreshRate)
}

func TestLoadAppliesProjectOverride(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)

	project := t.TempDir()
	forgeDir := filepath.Join(project, ".forge")
	require.NoError(t, os.MkdirAll(forgeDir, 0o755))

	projectConfig := `
defaults:
  concurrency: 8
  testing_ratio: 0.5
`
	require.NoError(t, os.WriteFile(filepath.Join(forgeDir, "config.yaml"), []byte(projectConfig), 0o644))

	cfg, err := Load(project)
	require.NoError(t, err)
	require.Equal(t, 8, cfg.Defaults.Concurrency)
	require.Equal(t, 0.5, cfg.Defaults.TestingRatio)
	require.True(t, cfg.Defaults.ReviewEnabled) // untouched default survives the merge
}

func TestLoadEnvOverridesProjectAndGlobal(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)
	t.Setenv("FORGE_DEFAULTS_ENTRYPOINT", "custom-worker")
	defer os.Unsetenv("FORGE_DEFAULTS_ENTRYPOINT")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "custom-worker", cfg.Defaults.Entrypoint)
}

func TestGetUserConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	require.Equal(t, "/custom/config/forge/config.yaml", GetUserConfigPath())
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)

	cfg := Default()
	cfg.Defaults.Concurrency = 6
	require.NoError(t, Save(cfg))

	loaded, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 6, loaded.Defaults.Concurrency)
}
