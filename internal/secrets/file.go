package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// FileConfig configures the file-based secrets backend. Intended for
// development; production deployments should inject via environment.
type FileConfig struct {
	// Path to a flat JSON object of key/value pairs.
	Path string
}

// FileProvider reads secrets from a JSON file once at construction.
type FileProvider struct {
	path string

	mu   sync.RWMutex
	data map[string]string
}

// NewFileProvider loads the secrets file at cfg.Path.
func NewFileProvider(cfg *FileConfig) (*FileProvider, error) {
	if cfg == nil || cfg.Path == "" {
		return nil, fmt.Errorf("secrets file path required")
	}

	p := &FileProvider{path: cfg.Path, data: make(map[string]string)}
	if err := p.Reload(); err != nil {
		return nil, fmt.Errorf("load secrets file: %w", err)
	}
	return p, nil
}

func (p *FileProvider) Name() string { return "file" }

func (p *FileProvider) Get(ctx context.Context, key string) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	val, ok := p.data[key]
	if !ok {
		return "", fmt.Errorf("secret not found: %s", key)
	}
	return val, nil
}

// Reload re-reads the secrets file.
func (p *FileProvider) Reload() error {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return err
	}

	parsed := make(map[string]string)
	if err := json.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("parse secrets file: %w", err)
	}

	p.mu.Lock()
	p.data = parsed
	p.mu.Unlock()
	return nil
}
