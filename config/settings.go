package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const defaultUserConfigTemplate = `# ailab configuration
#
# listen_addr = ":8420"
# default_model = "gemini-2.5-flash"
# default_system_prompt = ""

[[providers]]
id = "gemini"
enabled = true

[[providers]]
id = "openai"
enabled = true

[[providers]]
id = "anthropic"
enabled = true

[webhook]
# url = "https://automation.example.com/webhook/chat"
`

func loadSystemConfig(settingsPath string) (*systemConfig, error) {
	cfg := &systemConfig{}

	_, err := toml.DecodeFile(settingsPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse system config: %w", err)
	}

	return cfg, nil
}

func loadUserConfig(dataDir string) (*userConfig, error) {
	cfg := &userConfig{}
	userConfigPath := filepath.Join(dataDir, "config.toml")

	if !FileExists(userConfigPath) {
		if err := createDefaultUserConfig(userConfigPath); err != nil {
			return nil, fmt.Errorf("failed to create user config: %w", err)
		}
	}

	_, err := toml.DecodeFile(userConfigPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse user config: %w", err)
	}

	return cfg, nil
}

// SaveUserConfig writes the mutable settings back to config.toml.
func SaveUserConfig(cfg *Config) error {
	dataDir := cfg.DataDir()
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	userConfigPath := filepath.Join(dataDir, "config.toml")
	f, err := os.OpenFile(userConfigPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create user config file: %w", err)
	}
	defer f.Close()

	out := userConfig{
		ListenAddr:          cfg.ListenAddr,
		DefaultModel:        cfg.DefaultModel,
		DefaultSystemPrompt: cfg.DefaultSystemPrompt,
		Providers:           cfg.Providers,
		Webhook:             cfg.Webhook,
	}

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(out); err != nil {
		return fmt.Errorf("failed to encode user config: %w", err)
	}

	return nil
}

func createDefaultUserConfig(path string) error {
	return os.WriteFile(path, []byte(defaultUserConfigTemplate), 0600)
}
