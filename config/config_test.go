package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("AILAB_DATA_DIR", "")
	t.Setenv("AILAB_LISTEN_ADDR", "")
	t.Setenv("AILAB_DEFAULT_MODEL", "")
	t.Setenv("AILAB_DEBUG", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ListenAddr != ":8420" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.DefaultModel != "gemini-2.5-flash" {
		t.Errorf("DefaultModel = %q", cfg.DefaultModel)
	}
	if cfg.Debug {
		t.Error("Debug = true without AILAB_DEBUG")
	}

	wantDataDir := filepath.Join(home, ".local", "share", "ailab")
	if cfg.DataDir() != wantDataDir {
		t.Errorf("DataDir = %q, want %q", cfg.DataDir(), wantDataDir)
	}
	if _, err := os.Stat(wantDataDir); err != nil {
		t.Errorf("data directory not created: %v", err)
	}

	// Load seeds a default config.toml with the three provider entries.
	if len(cfg.Providers) != 3 {
		t.Errorf("providers = %d, want 3", len(cfg.Providers))
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	home := t.TempDir()
	dataDir := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("AILAB_DATA_DIR", dataDir)
	t.Setenv("AILAB_LISTEN_ADDR", "127.0.0.1:9999")
	t.Setenv("AILAB_DEFAULT_MODEL", "claude-sonnet-4-20250514")
	t.Setenv("AILAB_DEBUG", "1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.DataDir() != dataDir {
		t.Errorf("DataDir = %q, want %q", cfg.DataDir(), dataDir)
	}
	if cfg.ListenAddr != "127.0.0.1:9999" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.DefaultModel != "claude-sonnet-4-20250514" {
		t.Errorf("DefaultModel = %q", cfg.DefaultModel)
	}
	if !cfg.Debug {
		t.Error("Debug = false with AILAB_DEBUG=1")
	}
}

func TestLoadUserConfigFile(t *testing.T) {
	home := t.TempDir()
	dataDir := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("AILAB_DATA_DIR", dataDir)
	t.Setenv("AILAB_LISTEN_ADDR", "")
	t.Setenv("AILAB_DEFAULT_MODEL", "")
	t.Setenv("AILAB_DEBUG", "")

	content := `
listen_addr = ":7777"
default_model = "gpt-4o"
default_system_prompt = "be concise"

[[providers]]
id = "openai"
base_url = "https://openrouter.ai/api/v1"
enabled = true

[webhook]
url = "https://automation.example.com/hook"
`
	if err := os.WriteFile(filepath.Join(dataDir, "config.toml"), []byte(content), 0600); err != nil {
		t.Fatalf("write config.toml: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ListenAddr != ":7777" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.DefaultModel != "gpt-4o" {
		t.Errorf("DefaultModel = %q", cfg.DefaultModel)
	}
	if cfg.DefaultSystemPrompt != "be concise" {
		t.Errorf("DefaultSystemPrompt = %q", cfg.DefaultSystemPrompt)
	}
	if got := cfg.BaseURL("openai"); got != "https://openrouter.ai/api/v1" {
		t.Errorf("BaseURL(openai) = %q", got)
	}
	if got := cfg.BaseURL("gemini"); got != "" {
		t.Errorf("BaseURL(gemini) = %q, want empty", got)
	}
	if cfg.Webhook.URL != "https://automation.example.com/hook" {
		t.Errorf("Webhook.URL = %q", cfg.Webhook.URL)
	}
}

func TestExpandPath(t *testing.T) {
	t.Setenv("HOME", "/home/tester")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"tilde", "~/.local/share/ailab", "/home/tester/.local/share/ailab"},
		{"plain", "/var/lib/ailab", "/var/lib/ailab"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExpandPath(tt.in); got != tt.want {
				t.Errorf("ExpandPath(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
