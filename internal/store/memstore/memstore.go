// Package memstore provides a map-backed datastore gateway used by tests
// and the "memory" store driver.
package memstore

import (
	"context"
	"sync"

	"github.com/boardroomlabs/ancestry/internal/retrieval"
)

// Store implements retrieval.Store in memory. Safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	candidates []retrieval.Candidate
	embeddings map[string]retrieval.EmbeddingRecord
}

// New creates an empty Store.
func New() *Store {
	return &Store{embeddings: make(map[string]retrieval.EmbeddingRecord)}
}

// AddCandidate appends a candidate in insertion order.
func (s *Store) AddCandidate(c retrieval.Candidate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.candidates = append(s.candidates, c)
}

// GetEmbedding returns the stored record for a decision, or nil.
func (s *Store) GetEmbedding(_ context.Context, decisionID string) (*retrieval.EmbeddingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.embeddings[decisionID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// ListCandidates returns up to limit candidates excluding decisionID, in
// insertion order.
func (s *Store) ListCandidates(_ context.Context, decisionID string, limit int) ([]retrieval.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []retrieval.Candidate
	for _, c := range s.candidates {
		if c.ID == decisionID {
			continue
		}
		out = append(out, c)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// ListEmbeddings returns records for the ids that have one.
func (s *Store) ListEmbeddings(_ context.Context, decisionIDs []string) (map[string]retrieval.EmbeddingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]retrieval.EmbeddingRecord)
	for _, id := range decisionIDs {
		if rec, ok := s.embeddings[id]; ok {
			out[id] = rec
		}
	}
	return out, nil
}

// UpsertEmbedding stores or replaces a record.
func (s *Store) UpsertEmbedding(_ context.Context, record retrieval.EmbeddingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.embeddings[record.DecisionID] = record
	return nil
}

var _ retrieval.Store = (*Store)(nil)
