// Package config loads handyadmin settings from YAML with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "HANDYADMIN_"

// Config is the full server configuration.
type Config struct {
	Listen  string        `yaml:"listen"`
	API     APIConfig     `yaml:"api"`
	Auth    AuthConfig    `yaml:"auth"`
	Catalog CatalogConfig `yaml:"catalog"`
	Theme   ThemeConfig   `yaml:"theme"`
	Log     LogConfig     `yaml:"log"`
}

// APIConfig points at the upstream REST API.
type APIConfig struct {
	BaseURL string `yaml:"base_url"`
	// Timeout is a Go duration string such as "10s".
	Timeout string `yaml:"timeout"`
}

// AuthConfig names the token cookies.
type AuthConfig struct {
	AccessCookie  string `yaml:"access_cookie"`
	RefreshCookie string `yaml:"refresh_cookie"`
	LoginPath     string `yaml:"login_path"`
	SecureCookies bool   `yaml:"secure_cookies"`
}

// CatalogConfig optionally replaces the embedded resource catalog.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// ThemeConfig selects the page shell theme.
type ThemeConfig struct {
	Name    string            `yaml:"name"`
	Variant string            `yaml:"variant"`
	Tokens  map[string]string `yaml:"tokens"`
	// Manifest is an optional go-theme manifest file (JSON or YAML). When
	// set, its name replaces Name.
	Manifest string `yaml:"manifest"`
}

// LogConfig configures zap.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Listen: ":8080",
		API: APIConfig{
			BaseURL: "http://localhost:8000/api",
			Timeout: "10s",
		},
		Auth: AuthConfig{
			AccessCookie:  "access",
			RefreshCookie: "refresh",
			LoginPath:     "/login",
		},
		Theme: ThemeConfig{
			Name:    "handyadmin",
			Variant: "light",
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads path over the defaults and applies HANDYADMIN_* overrides. A
// missing file is not an error; an empty path skips the file.
func Load(path string) (*Config, error) {
	return LoadWithEnv(path, os.LookupEnv)
}

// LoadWithEnv is Load with an injectable environment lookup.
func LoadWithEnv(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		return nil
	}
	strs := map[string]*string{
		"LISTEN":              &c.Listen,
		"API_BASE_URL":        &c.API.BaseURL,
		"API_TIMEOUT":         &c.API.Timeout,
		"AUTH_ACCESS_COOKIE":  &c.Auth.AccessCookie,
		"AUTH_REFRESH_COOKIE": &c.Auth.RefreshCookie,
		"AUTH_LOGIN_PATH":     &c.Auth.LoginPath,
		"CATALOG_PATH":        &c.Catalog.Path,
		"THEME_NAME":          &c.Theme.Name,
		"THEME_VARIANT":       &c.Theme.Variant,
		"THEME_MANIFEST":      &c.Theme.Manifest,
		"LOG_LEVEL":           &c.Log.Level,
	}
	for key, dst := range strs {
		if v, ok := lookup(EnvPrefix + key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	bools := map[string]*bool{
		"AUTH_SECURE_COOKIES": &c.Auth.SecureCookies,
		"LOG_DEVELOPMENT":     &c.Log.Development,
	}
	for key, dst := range bools {
		v, ok := lookup(EnvPrefix + key)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: %s%s: %w", EnvPrefix, key, err)
		}
		*dst = parsed
	}
	return nil
}

// Validate checks values that would otherwise fail at first use.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.API.BaseURL) == "" {
		errs = append(errs, errors.New("config: api.base_url is required"))
	}
	if c.API.Timeout != "" {
		if _, err := time.ParseDuration(c.API.Timeout); err != nil {
			errs = append(errs, fmt.Errorf("config: api.timeout: %w", err))
		}
	}
	if c.Auth.AccessCookie == "" || c.Auth.RefreshCookie == "" {
		errs = append(errs, errors.New("config: auth cookie names are required"))
	}
	return errors.Join(errs...)
}

// APITimeout returns the parsed request timeout, 10s when unset.
func (c *Config) APITimeout() time.Duration {
	d, err := time.ParseDuration(c.API.Timeout)
	if err != nil || c.API.Timeout == "" {
		return 10 * time.Second
	}
	return d
}
