package chat

import (
	"errors"
	"testing"
)

func TestResolveModel(t *testing.T) {
	tests := []struct {
		name  string
		model string
		want  ProviderKind
	}{
		{"gemini flash", "gemini-2.5-flash", ProviderGemini},
		{"gemma", "gemma-3-27b-it", ProviderGemini},
		{"claude", "claude-sonnet-4-20250514", ProviderAnthropic},
		{"gpt", "gpt-4o", ProviderOpenAI},
		{"chatgpt", "chatgpt-4o-latest", ProviderOpenAI},
		{"o-series", "o3-mini", ProviderOpenAI},
		{"uppercase", "GPT-4o", ProviderOpenAI},
		{"padded", "  gemini-2.0-flash  ", ProviderGemini},
		{"openrouter vendor prefix", "openai/gpt-4o-mini", ProviderOpenAI},
		{"openrouter anthropic", "anthropic/claude-3.5-haiku", ProviderAnthropic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := ResolveModel(tt.model)
			if err != nil {
				t.Fatalf("ResolveModel(%q) error: %v", tt.model, err)
			}
			if spec.Provider != tt.want {
				t.Errorf("ResolveModel(%q) provider = %s, want %s", tt.model, spec.Provider, tt.want)
			}
			if spec.IsZero() {
				t.Errorf("ResolveModel(%q) returned zero spec", tt.model)
			}
		})
	}
}

func TestResolveModelUnknown(t *testing.T) {
	tests := []struct {
		name  string
		model string
	}{
		{"local model", "llama-unknown"},
		{"mistral", "mistral-large"},
		{"garbage", "not-a-model"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := ResolveModel(tt.model)
			if err == nil {
				t.Fatalf("ResolveModel(%q) succeeded, want error", tt.model)
			}
			var configErr *ConfigurationError
			if !errors.As(err, &configErr) {
				t.Errorf("ResolveModel(%q) error = %T, want *ConfigurationError", tt.model, err)
			}
			if !spec.IsZero() {
				t.Errorf("ResolveModel(%q) spec = %+v, want zero", tt.model, spec)
			}
		})
	}
}

func TestResolveModelEmpty(t *testing.T) {
	_, err := ResolveModel("   ")
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("ResolveModel(blank) error = %v, want *ValidationError", err)
	}
}
