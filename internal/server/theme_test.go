package server

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-handyadmin/internal/config"
)

func TestThemeFromConfig_DarkVariant(t *testing.T) {
	cfg, err := ThemeFromConfig(config.ThemeConfig{Variant: "dark"})
	require.NoError(t, err)

	assert.Equal(t, DefaultThemeName, cfg.Theme)
	assert.Equal(t, "dark", cfg.Variant)
	assert.Equal(t, "#1e3a8a", cfg.Tokens["ha-brand"])
	assert.Equal(t, "#1e3a8a", cfg.CSSVars["--ha-brand"])
	assert.Equal(t, "#dc2626", cfg.CSSVars["--ha-danger"])
	assert.Len(t, cfg.CSSVars, 5)
}

func TestThemeFromConfig_ConfiguredTokensWin(t *testing.T) {
	cfg, err := ThemeFromConfig(config.ThemeConfig{
		Variant: "dark",
		Tokens:  map[string]string{"ha-brand": "#000000", "ha-accent": "#ff9900"},
	})
	require.NoError(t, err)

	assert.Equal(t, "#000000", cfg.CSSVars["--ha-brand"])
	assert.Equal(t, "#ff9900", cfg.CSSVars["--ha-accent"])
	assert.Equal(t, "#1f2937", cfg.CSSVars["--ha-surface"])
}

func TestThemeFromConfig_UnknownVariant(t *testing.T) {
	_, err := ThemeFromConfig(config.ThemeConfig{Variant: "sepia"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no variant "sepia"`)
}

func TestThemeFromConfig_ManifestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "acme.yaml")
	manifest := []byte(`
name: acme
version: 2.0.0
tokens:
  ha-brand: "#123456"
assets:
  prefix: /static/acme
  files:
    logo: logo.svg
variants:
  dark:
    tokens:
      ha-brand: "#654321"
    assets:
      files:
        logo: logo-dark.svg
`)
	require.NoError(t, os.WriteFile(path, manifest, 0o600))

	cfg, err := ThemeFromConfig(config.ThemeConfig{Manifest: path, Variant: "dark"})
	require.NoError(t, err)

	assert.Equal(t, "acme", cfg.Theme)
	assert.Equal(t, "#654321", cfg.CSSVars["--ha-brand"])
	require.NotNil(t, cfg.AssetURL)
	assert.Equal(t, "/static/acme/logo-dark.svg", cfg.AssetURL("logo"))
	assert.Empty(t, cfg.AssetURL("missing"))
}
