// Package embedding turns decision text into fixed-length vectors. Three
// interchangeable backends sit behind one Provider contract: a remote
// OpenAI-compatible service, a local deterministic hash-expansion embedder,
// and a simulated wrapper used for deterministic timing under test.
package embedding

import (
	"context"
	"time"
)

// Provider is the interface all embedding backends implement.
type Provider interface {
	// Embed returns the embedding vector for a single text.
	Embed(ctx context.Context, text string) (*Result, error)
	// Name returns the backend identifier (e.g. "remote", "local").
	Name() string
}

// Result is the ephemeral product of one embedding call.
type Result struct {
	Provider   string
	Model      string
	Dimensions int
	Vector     []float32
}

// Config holds everything needed to construct any embedding backend.
type Config struct {
	Provider   string // "remote", "local"
	APIKey     string
	Model      string
	BaseURL    string        // override for self-hosted endpoints
	Dimensions int           // local backend only; clamped to MinDimensions
	Timeout    time.Duration // per-request timeout for remote calls
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Provider: "local",
		Timeout:  30 * time.Second,
	}
}

// Options selects the backend and behavior for a single EmbedText call.
type Options struct {
	Provider      string
	Model         string
	Dimensions    int
	AllowFallback bool
}
