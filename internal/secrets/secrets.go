// Package secrets resolves credentials that should not live in the config
// file: the remote embedding API key and datastore passwords.
package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
)

// Key identifies the credentials the service consumes.
type Key string

const (
	KeyEmbeddingAPIKey Key = "embedding_api_key"
	KeyNeo4jPassword   Key = "neo4j_password"
)

// Provider is the interface for secret backends.
type Provider interface {
	Get(ctx context.Context, key string) (string, error)
	Name() string
}

// Config selects and configures the secret backend.
type Config struct {
	// Provider is "env" or "file". Empty means env.
	Provider string
	// EnvPrefix for environment variable lookups (default "ANCESTRY_").
	EnvPrefix string
	// File configures the file backend; required when Provider is "file".
	File *FileConfig
}

// Manager resolves secrets from a primary backend with the environment as
// fallback. Resolved values are cached for the process lifetime.
type Manager struct {
	primary  Provider
	fallback Provider

	mu    sync.RWMutex
	cache map[string]string
}

// NewManager creates a Manager from config. A nil config means env-only.
func NewManager(cfg *Config) (*Manager, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	var primary Provider
	switch cfg.Provider {
	case "", "env":
		primary = NewEnvProvider(cfg.EnvPrefix)
	case "file":
		if cfg.File == nil {
			return nil, fmt.Errorf("file config required for file secrets provider")
		}
		fp, err := NewFileProvider(cfg.File)
		if err != nil {
			return nil, fmt.Errorf("create file secrets provider: %w", err)
		}
		primary = fp
	default:
		return nil, fmt.Errorf("unknown secrets provider %q", cfg.Provider)
	}

	return &Manager{
		primary:  primary,
		fallback: NewEnvProvider(cfg.EnvPrefix),
		cache:    make(map[string]string),
	}, nil
}

// Get resolves a secret, trying the primary backend then the environment.
func (m *Manager) Get(ctx context.Context, key Key) (string, error) {
	m.mu.RLock()
	if val, ok := m.cache[string(key)]; ok {
		m.mu.RUnlock()
		return val, nil
	}
	m.mu.RUnlock()

	val, err := m.primary.Get(ctx, string(key))
	if err != nil || val == "" {
		val, err = m.fallback.Get(ctx, string(key))
	}
	if err != nil || val == "" {
		return "", fmt.Errorf("secret not found: %s", key)
	}

	m.mu.Lock()
	m.cache[string(key)] = val
	m.mu.Unlock()
	return val, nil
}

// GetOrDefault resolves a secret or returns defaultVal when missing.
func (m *Manager) GetOrDefault(ctx context.Context, key Key, defaultVal string) string {
	val, err := m.Get(ctx, key)
	if err != nil {
		return defaultVal
	}
	return val
}

// EnvProvider reads secrets from environment variables.
type EnvProvider struct {
	prefix string
}

// NewEnvProvider creates an environment-based provider. The key is looked
// up upper-cased with the prefix first, then bare.
func NewEnvProvider(prefix string) *EnvProvider {
	if prefix == "" {
		prefix = "ANCESTRY_"
	}
	return &EnvProvider{prefix: prefix}
}

func (p *EnvProvider) Name() string { return "env" }

func (p *EnvProvider) Get(ctx context.Context, key string) (string, error) {
	envKey := p.prefix + strings.ToUpper(key)
	if val := os.Getenv(envKey); val != "" {
		return val, nil
	}
	if val := os.Getenv(strings.ToUpper(key)); val != "" {
		return val, nil
	}
	return "", fmt.Errorf("env var not found: %s", envKey)
}
