// Package config loads application settings from TOML files and the
// environment, and manages provider API credentials.
//
// Settings are split across two files: settings.toml in the config
// directory points at the data directory, and config.toml inside the data
// directory holds everything else. Environment variables override both.
package config

import (
	"fmt"
	"os"
)

type ProviderConfig struct {
	ID      string `toml:"id"`
	BaseURL string `toml:"base_url,omitempty"`
	Enabled bool   `toml:"enabled"`
}

type WebhookConfig struct {
	URL string `toml:"url,omitempty"`
}

type userConfig struct {
	ListenAddr          string           `toml:"listen_addr,omitempty"`
	DefaultModel        string           `toml:"default_model,omitempty"`
	DefaultSystemPrompt string           `toml:"default_system_prompt,omitempty"`
	Providers           []ProviderConfig `toml:"providers"`
	Webhook             WebhookConfig    `toml:"webhook"`
}

type systemConfig struct {
	DataDirectory string `toml:"data_directory"`
}

type Config struct {
	DataDirectory       string
	ListenAddr          string
	DefaultModel        string
	DefaultSystemPrompt string
	Providers           []ProviderConfig
	Webhook             WebhookConfig
	Debug               bool
}

func (c *Config) DataDir() string {
	return ExpandPath(c.DataDirectory)
}

// BaseURL returns the configured base URL override for a provider, or "".
func (c *Config) BaseURL(providerID string) string {
	for _, p := range c.Providers {
		if p.ID == providerID {
			return p.BaseURL
		}
	}
	return ""
}

func (c *Config) applyEnvOverrides() {
	if dataDir := os.Getenv("AILAB_DATA_DIR"); dataDir != "" {
		c.DataDirectory = dataDir
	}
	if addr := os.Getenv("AILAB_LISTEN_ADDR"); addr != "" {
		c.ListenAddr = addr
	}
	if model := os.Getenv("AILAB_DEFAULT_MODEL"); model != "" {
		c.DefaultModel = model
	}
}

func CheckDebug() bool {
	debug := os.Getenv("AILAB_DEBUG")
	return debug == "true" || debug == "1"
}

func Load() (*Config, error) {
	cfg := &Config{
		DataDirectory: GetDefaultDataDir(),
		ListenAddr:    ":8420",
		DefaultModel:  "gemini-2.5-flash",
		Debug:         CheckDebug(),
	}

	settingsPath := GetSettingsFilePath()
	if FileExists(settingsPath) {
		sysCfg, err := loadSystemConfig(settingsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load system config: %w", err)
		}
		if sysCfg.DataDirectory != "" {
			cfg.DataDirectory = sysCfg.DataDirectory
		}
	}

	cfg.applyEnvOverrides()

	dataDir := cfg.DataDir()
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := EnsureDataDirPermissions(dataDir); err != nil {
		return nil, fmt.Errorf("failed to set data directory permissions: %w", err)
	}

	userCfg, err := loadUserConfig(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}
	if userCfg.ListenAddr != "" && os.Getenv("AILAB_LISTEN_ADDR") == "" {
		cfg.ListenAddr = userCfg.ListenAddr
	}
	if userCfg.DefaultModel != "" && os.Getenv("AILAB_DEFAULT_MODEL") == "" {
		cfg.DefaultModel = userCfg.DefaultModel
	}
	cfg.DefaultSystemPrompt = userCfg.DefaultSystemPrompt
	cfg.Providers = userCfg.Providers
	cfg.Webhook = userCfg.Webhook

	return cfg, nil
}
