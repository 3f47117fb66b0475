// Package similarity provides cosine scoring over embedding vectors and
// content fingerprinting for cache staleness checks.
package similarity

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"strings"
)

// Cosine computes the cosine similarity between two vectors.
// Mismatched lengths are compared over the shared prefix, non-finite
// components count as 0, and a zero norm on either side yields 0.
func Cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		x := finite(a[i])
		y := finite(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return dot / denom
}

func finite(v float32) float64 {
	f := float64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// SourceHash returns a stable fingerprint of text with all whitespace runs
// collapsed, so two texts differing only in whitespace hash identically.
func SourceHash(text string) string {
	normalized := strings.Join(strings.Fields(text), " ")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
