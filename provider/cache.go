package provider

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"ailab/chat"
)

// CredentialSource supplies the current API credential for a provider ID.
// Credentials can change at runtime; the cache reads them on every lookup
// and compares against the credential its cached handle was built with.
type CredentialSource interface {
	Credential(providerID string) string
}

// Endpoints maps a provider family to a base URL override. Families left
// out use their SDK default. Primarily used to point the OpenAI-compatible
// adapter at OpenRouter or a local gateway.
type Endpoints map[chat.ProviderKind]string

// Cache lazily constructs and memoizes one adapter per provider family,
// keyed by the credential value the adapter was built with. A changed
// credential invalidates the cached handle on the next lookup; SaveCredential
// paths should additionally call Invalidate so stale handles are dropped
// eagerly.
//
// Cache is safe for concurrent use. It implements chat.AdapterResolver.
type Cache struct {
	creds     CredentialSource
	endpoints Endpoints
	log       *slog.Logger

	mu      sync.Mutex
	entries map[chat.ProviderKind]cacheEntry
}

type cacheEntry struct {
	credential string
	adapter    chat.Adapter
}

// NewCache creates an adapter cache over the given credential source.
func NewCache(creds CredentialSource, endpoints Endpoints, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		creds:     creds,
		endpoints: endpoints,
		log:       logger,
		entries:   make(map[chat.ProviderKind]cacheEntry),
	}
}

// Adapter returns the adapter for a provider family, reusing the cached
// handle while its credential is unchanged. A missing credential and a
// construction failure both surface as a *chat.ConfigurationError so
// callers can produce a uniform "not configured" message.
func (c *Cache) Adapter(ctx context.Context, kind chat.ProviderKind) (chat.Adapter, error) {
	credential := c.creds.Credential(string(kind))
	if credential == "" {
		return nil, &chat.ConfigurationError{
			Reason: fmt.Sprintf("%s API key is not configured", kind),
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[kind]; ok && entry.credential == credential {
		return entry.adapter, nil
	}

	adapter, err := c.build(ctx, kind, credential)
	if err != nil {
		c.log.Warn("provider client construction failed", "provider", kind, "error", err)
		return nil, &chat.ConfigurationError{
			Reason: fmt.Sprintf("%s credential was rejected during client setup", kind),
		}
	}

	c.entries[kind] = cacheEntry{credential: credential, adapter: adapter}
	c.log.Debug("provider client constructed", "provider", kind)
	return adapter, nil
}

// Invalidate drops every cached handle. Wired to credential-save paths so
// the cache observes updated credentials without a restart.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[chat.ProviderKind]cacheEntry)
}

func (c *Cache) build(ctx context.Context, kind chat.ProviderKind, credential string) (chat.Adapter, error) {
	switch kind {
	case chat.ProviderGemini:
		adapter, err := NewGeminiAdapter(ctx, credential)
		if err != nil {
			return nil, err
		}
		return adapter, nil
	case chat.ProviderOpenAI:
		adapter, err := NewOpenAIAdapter(c.endpoints[kind], credential)
		if err != nil {
			return nil, err
		}
		return adapter, nil
	case chat.ProviderAnthropic:
		adapter, err := NewAnthropicAdapter(c.endpoints[kind], credential)
		if err != nil {
			return nil, err
		}
		return adapter, nil
	default:
		return nil, fmt.Errorf("unknown provider kind: %s", kind)
	}
}
