package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"strings"
)

const (
	// MinDimensions is the smallest vector the local backend produces.
	// Requests for fewer dimensions silently use this floor.
	MinDimensions = 64

	localProviderName = "local"
	localModelName    = "hash-expansion-v1"
)

// Local is a provider-free embedder that derives a vector purely from text
// content. Identical text always yields an identical vector; distinct
// non-trivial texts yield non-zero, non-uniform vectors.
type Local struct {
	dims int
}

// NewLocal creates a local deterministic embedder. dims below MinDimensions
// are clamped up.
func NewLocal(dims int) *Local {
	if dims < MinDimensions {
		dims = MinDimensions
	}
	return &Local{dims: dims}
}

// Name returns "local".
func (l *Local) Name() string { return localProviderName }

// Embed expands a SHA-256 seed of the text into l.dims float components in
// [-1, 1). Blank or whitespace-only text yields an all-zero vector.
func (l *Local) Embed(_ context.Context, text string) (*Result, error) {
	vec := make([]float32, l.dims)
	if strings.TrimSpace(text) != "" {
		expand(text, vec)
	}
	return &Result{
		Provider:   localProviderName,
		Model:      localModelName,
		Dimensions: l.dims,
		Vector:     vec,
	}, nil
}

// expand fills vec by hashing (seed, block counter) pairs, four bytes per
// component, so the output is stable across runs and platforms.
func expand(text string, vec []float32) {
	seed := sha256.Sum256([]byte(text))

	var block [36]byte
	copy(block[:32], seed[:])

	i := 0
	for counter := uint32(0); i < len(vec); counter++ {
		binary.LittleEndian.PutUint32(block[32:], counter)
		sum := sha256.Sum256(block[:])
		for off := 0; off+4 <= len(sum) && i < len(vec); off += 4 {
			u := binary.LittleEndian.Uint32(sum[off : off+4])
			// Map uint32 onto [-1, 1).
			vec[i] = float32(u)/float32(1<<31) - 1
			i++
		}
	}
}
