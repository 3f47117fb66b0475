// Package hybrid implements the datastore gateway across two backends:
// candidate decisions live in Neo4j, embedding records in Qdrant.
package hybrid

import (
	"context"

	"github.com/boardroomlabs/ancestry/internal/retrieval"
)

// Store composes a Graph and a VectorCache into one retrieval.Store.
type Store struct {
	graph   *Graph
	vectors *VectorCache
}

// New creates a hybrid store from its two halves.
func New(graph *Graph, vectors *VectorCache) *Store {
	return &Store{graph: graph, vectors: vectors}
}

func (s *Store) GetEmbedding(ctx context.Context, decisionID string) (*retrieval.EmbeddingRecord, error) {
	return s.vectors.GetEmbedding(ctx, decisionID)
}

func (s *Store) ListCandidates(ctx context.Context, decisionID string, limit int) ([]retrieval.Candidate, error) {
	return s.graph.ListCandidates(ctx, decisionID, limit)
}

func (s *Store) ListEmbeddings(ctx context.Context, decisionIDs []string) (map[string]retrieval.EmbeddingRecord, error) {
	return s.vectors.ListEmbeddings(ctx, decisionIDs)
}

func (s *Store) UpsertEmbedding(ctx context.Context, record retrieval.EmbeddingRecord) error {
	return s.vectors.UpsertEmbedding(ctx, record)
}

// Close releases both backends.
func (s *Store) Close(ctx context.Context) error {
	err := s.graph.Close(ctx)
	if cerr := s.vectors.Close(); err == nil {
		err = cerr
	}
	return err
}

var _ retrieval.Store = (*Store)(nil)
