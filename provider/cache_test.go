package provider

import (
	"context"
	"errors"
	"sync"
	"testing"

	"ailab/chat"
)

type mapCredentials struct {
	mu    sync.Mutex
	creds map[string]string
}

func (m *mapCredentials) Credential(providerID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creds[providerID]
}

func (m *mapCredentials) set(providerID, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds[providerID] = key
}

func TestCacheMissingCredential(t *testing.T) {
	creds := &mapCredentials{creds: map[string]string{}}
	cache := NewCache(creds, nil, nil)

	_, err := cache.Adapter(context.Background(), chat.ProviderOpenAI)
	var configErr *chat.ConfigurationError
	if !errors.As(err, &configErr) {
		t.Fatalf("error = %v, want *chat.ConfigurationError", err)
	}
}

func TestCacheReusesAdapter(t *testing.T) {
	creds := &mapCredentials{creds: map[string]string{"openai": "sk-test"}}
	cache := NewCache(creds, nil, nil)

	first, err := cache.Adapter(context.Background(), chat.ProviderOpenAI)
	if err != nil {
		t.Fatalf("Adapter: %v", err)
	}
	second, err := cache.Adapter(context.Background(), chat.ProviderOpenAI)
	if err != nil {
		t.Fatalf("Adapter: %v", err)
	}
	if first != second {
		t.Error("unchanged credential rebuilt the adapter")
	}
}

func TestCacheRebuildsOnCredentialChange(t *testing.T) {
	creds := &mapCredentials{creds: map[string]string{"openai": "sk-old"}}
	cache := NewCache(creds, nil, nil)

	first, err := cache.Adapter(context.Background(), chat.ProviderOpenAI)
	if err != nil {
		t.Fatalf("Adapter: %v", err)
	}

	creds.set("openai", "sk-new")
	second, err := cache.Adapter(context.Background(), chat.ProviderOpenAI)
	if err != nil {
		t.Fatalf("Adapter after credential change: %v", err)
	}
	if first == second {
		t.Error("credential change did not rebuild the adapter")
	}
}

func TestCacheInvalidate(t *testing.T) {
	creds := &mapCredentials{creds: map[string]string{"anthropic": "sk-ant"}}
	cache := NewCache(creds, Endpoints{chat.ProviderAnthropic: "https://gateway.internal/v1"}, nil)

	first, err := cache.Adapter(context.Background(), chat.ProviderAnthropic)
	if err != nil {
		t.Fatalf("Adapter: %v", err)
	}

	cache.Invalidate()

	second, err := cache.Adapter(context.Background(), chat.ProviderAnthropic)
	if err != nil {
		t.Fatalf("Adapter after invalidate: %v", err)
	}
	if first == second {
		t.Error("Invalidate did not drop the cached adapter")
	}
}

func TestCacheUnknownProvider(t *testing.T) {
	creds := &mapCredentials{creds: map[string]string{"mystery": "key"}}
	cache := NewCache(creds, nil, nil)

	_, err := cache.Adapter(context.Background(), chat.ProviderKind("mystery"))
	var configErr *chat.ConfigurationError
	if !errors.As(err, &configErr) {
		t.Fatalf("error = %v, want *chat.ConfigurationError", err)
	}
}
