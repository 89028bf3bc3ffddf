package chat

import (
	"fmt"
	"strings"
)

// ProviderKind tags the provider family a model identifier belongs to.
type ProviderKind string

const (
	ProviderGemini    ProviderKind = "gemini"
	ProviderOpenAI    ProviderKind = "openai"
	ProviderAnthropic ProviderKind = "anthropic"
)

// ModelSpec is a model identifier together with its resolved provider
// family. It is computed once when a conversation's model is set.
type ModelSpec struct {
	Provider ProviderKind
	ID       string
}

// IsZero reports whether the spec carries no resolution.
func (s ModelSpec) IsZero() bool {
	return s.Provider == "" && s.ID == ""
}

// Model identifiers follow each vendor's naming convention, so the provider
// family is derived from the identifier prefix. Most specific prefixes come
// first to avoid false matches ("chatgpt-" before "gpt-").
var providerPrefixes = []struct {
	prefix string
	kind   ProviderKind
}{
	{"gemini-", ProviderGemini},
	{"gemma-", ProviderGemini},
	{"claude-", ProviderAnthropic},
	{"chatgpt-", ProviderOpenAI},
	{"gpt-", ProviderOpenAI},
	{"o1", ProviderOpenAI},
	{"o3", ProviderOpenAI},
	{"o4", ProviderOpenAI},
}

// ResolveModel maps a model identifier to its provider family. Identifiers
// carrying an OpenRouter-style vendor prefix ("openai/gpt-4o") are resolved
// on the segment after the slash. Unknown identifiers fail with a
// ConfigurationError; callers that tolerate unknown models keep a zero Spec
// and let dispatch reject the turn.
func ResolveModel(id string) (ModelSpec, error) {
	name := strings.TrimSpace(strings.ToLower(id))
	if name == "" {
		return ModelSpec{}, &ValidationError{Reason: "model identifier is empty"}
	}

	bare := name
	if idx := strings.Index(bare, "/"); idx != -1 {
		bare = bare[idx+1:]
	}

	for _, p := range providerPrefixes {
		if strings.HasPrefix(bare, p.prefix) {
			return ModelSpec{Provider: p.kind, ID: strings.TrimSpace(id)}, nil
		}
	}

	return ModelSpec{}, &ConfigurationError{
		Reason: fmt.Sprintf("unsupported model %q: no provider matches this identifier", id),
	}
}
