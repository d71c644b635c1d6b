package provider

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/autoforge/engine/pkg/models"
)

func writeProfilesFile(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "providers.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadRegistryResolvesActiveProfile(t *testing.T) {
	path := writeProfilesFile(t, `{
		"defaults": {"profile": "direct"},
		"profiles": {
			"direct": {
				"description": "Direct Anthropic API",
				"models": {"opus": "claude-opus-4", "sonnet": "claude-sonnet-4", "haiku": "claude-haiku-4"}
			}
		}
	}`)

	reg, err := LoadRegistry(path)
	require.NoError(t, err)

	active := reg.Active()
	require.Equal(t, "direct", active.Name)
	id, err := active.ModelFor(models.RoleCoding)
	require.NoError(t, err)
	require.Equal(t, "claude-sonnet-4", id)
}

func TestLoadRegistryRejectsUnknownActiveProfile(t *testing.T) {
	path := writeProfilesFile(t, `{
		"defaults": {"profile": "missing"},
		"profiles": {"direct": {"models": {"opus": "x", "sonnet": "y", "haiku": "z"}}}
	}`)
	_, err := LoadRegistry(path)
	require.Error(t, err)
}

func TestModelForErrorsOnMissingTier(t *testing.T) {
	p := Profile{Name: "bare", Models: map[models.ModelTier]string{}}
	_, err := p.ModelFor(models.RoleTesting)
	require.Error(t, err)
}

func TestTranslateModelForBedrockPicksRegionPrefix(t *testing.T) {
	require.Equal(t, "us.claude-sonnet-4", TranslateModelForBedrock("claude-sonnet-4", "us-east-1"))
	require.Equal(t, "eu.claude-sonnet-4", TranslateModelForBedrock("claude-sonnet-4", "eu-west-1"))
	require.Equal(t, "apac.claude-sonnet-4", TranslateModelForBedrock("claude-sonnet-4", "ap-southeast-1"))
}
