package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
)

// CredentialStore manages API credentials keyed by provider ID. Credentials
// live in credentials.toml inside the data directory, written with 0600
// permissions. The store is safe for concurrent use; Save notifies
// registered listeners so cached provider clients can drop stale handles.
type CredentialStore struct {
	dataDir string

	mu          sync.Mutex
	credentials map[string]string
	onChange    []func()
}

type credentialsFile struct {
	Credentials map[string]string `toml:"credentials"`
}

// NewCredentialStore creates a credential store rooted at dataDir.
func NewCredentialStore(dataDir string) *CredentialStore {
	return &CredentialStore{
		dataDir:     dataDir,
		credentials: make(map[string]string),
	}
}

// Load reads credentials from disk. A missing file is not an error; the
// store starts empty.
func (c *CredentialStore) Load() error {
	path := c.path()
	if !FileExists(path) {
		return nil
	}

	var cf credentialsFile
	if _, err := toml.DecodeFile(path, &cf); err != nil {
		return fmt.Errorf("failed to parse credentials file: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if cf.Credentials != nil {
		c.credentials = cf.Credentials
	}
	return nil
}

// Save writes credentials to disk and notifies change listeners.
func (c *CredentialStore) Save() error {
	c.mu.Lock()
	cf := credentialsFile{Credentials: make(map[string]string, len(c.credentials))}
	for k, v := range c.credentials {
		cf.Credentials[k] = v
	}
	listeners := append([]func(){}, c.onChange...)
	c.mu.Unlock()

	f, err := os.OpenFile(c.path(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create credentials file: %w", err)
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(cf); err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	for _, fn := range listeners {
		fn()
	}
	return nil
}

// Get retrieves a credential for a provider, or "" when unset.
func (c *CredentialStore) Get(providerID string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.credentials[providerID]
}

// Credential satisfies the provider cache's credential source.
func (c *CredentialStore) Credential(providerID string) string {
	return c.Get(providerID)
}

// Set stores a credential for a provider. The change is in-memory until
// Save is called.
func (c *CredentialStore) Set(providerID, apiKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.credentials[providerID] = apiKey
}

// Delete removes a credential for a provider.
func (c *CredentialStore) Delete(providerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.credentials, providerID)
}

// OnChange registers a listener invoked after every successful Save.
func (c *CredentialStore) OnChange(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = append(c.onChange, fn)
}

func (c *CredentialStore) path() string {
	return filepath.Join(c.dataDir, "credentials.toml")
}
