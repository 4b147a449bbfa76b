package server

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-handyadmin/internal/config"
)

// StaticPrefix is where the embedded assets are served.
const StaticPrefix = "/static"

// DefaultThemeName names the built-in manifest.
const DefaultThemeName = "handyadmin"

func defaultManifest(name string) *theme.Manifest {
	return &theme.Manifest{
		Name:    name,
		Version: "1.0.0",
		Tokens: map[string]string{
			"ha-brand":   "#1d4ed8",
			"ha-surface": "#ffffff",
			"ha-muted":   "#6b7280",
			"ha-danger":  "#dc2626",
			"ha-success": "#16a34a",
		},
		Assets: theme.Assets{Prefix: StaticPrefix},
		Variants: map[string]theme.Variant{
			"light": {},
			"dark": {
				Tokens: map[string]string{
					"ha-brand":   "#1e3a8a",
					"ha-surface": "#1f2937",
					"ha-muted":   "#9ca3af",
				},
			},
		},
	}
}

// loadManifest reads the configured manifest file, or builds the default.
func loadManifest(cfg config.ThemeConfig) (*theme.Manifest, error) {
	if cfg.Manifest == "" {
		name := strings.TrimSpace(cfg.Name)
		if name == "" {
			name = DefaultThemeName
		}
		return defaultManifest(name), nil
	}
	manifest, err := theme.LoadFile(os.DirFS(filepath.Dir(cfg.Manifest)), filepath.Base(cfg.Manifest))
	if err != nil {
		return nil, fmt.Errorf("server: theme manifest: %w", err)
	}
	return manifest, nil
}

// overrideTokens writes configured tokens into the base set and every
// variant, so they win whichever variant is selected.
func overrideTokens(manifest *theme.Manifest, tokens map[string]string) {
	if len(tokens) == 0 {
		return
	}
	if manifest.Tokens == nil {
		manifest.Tokens = make(map[string]string, len(tokens))
	}
	for key, value := range tokens {
		manifest.Tokens[key] = value
	}
	for name, variant := range manifest.Variants {
		if len(variant.Tokens) == 0 {
			continue
		}
		merged := make(map[string]string, len(variant.Tokens)+len(tokens))
		for key, value := range variant.Tokens {
			merged[key] = value
		}
		for key, value := range tokens {
			merged[key] = value
		}
		variant.Tokens = merged
		manifest.Variants[name] = variant
	}
}

// ThemeFromConfig resolves the page shell theme through a go-theme
// registry. Configured tokens override the variant's, which override the
// manifest's base tokens.
func ThemeFromConfig(cfg config.ThemeConfig) (*theme.RendererConfig, error) {
	manifest, err := loadManifest(cfg)
	if err != nil {
		return nil, err
	}
	overrideTokens(manifest, cfg.Tokens)

	registry := theme.NewRegistry()
	if err := registry.Register(manifest); err != nil {
		return nil, fmt.Errorf("server: register theme %s: %w", manifest.Name, err)
	}

	variant := strings.TrimSpace(cfg.Variant)
	if _, ok := manifest.Variants[variant]; variant != "" && !ok {
		return nil, fmt.Errorf("server: theme %s has no variant %q", manifest.Name, variant)
	}

	selection, err := theme.Selector{Registry: registry, DefaultTheme: manifest.Name}.Select(manifest.Name, variant)
	if err != nil {
		return nil, fmt.Errorf("server: select theme %s: %w", manifest.Name, err)
	}
	rendered := selection.RendererTheme(nil)
	return &rendered, nil
}
