package retrieval

import "context"

// Store is the datastore gateway the retriever consumes. Implementations
// live under internal/store; the retriever treats every read failure the
// same as an empty read and never surfaces a write failure.
type Store interface {
	// GetEmbedding returns the cached embedding record for a decision, or
	// nil when none is stored. Staleness is not checked here.
	GetEmbedding(ctx context.Context, decisionID string) (*EmbeddingRecord, error)

	// ListCandidates returns up to limit prior decisions, excluding the
	// query decision itself, in the store's canonical order.
	ListCandidates(ctx context.Context, decisionID string, limit int) ([]Candidate, error)

	// ListEmbeddings returns cached records keyed by decision id. Ids
	// without a stored record are absent from the map.
	ListEmbeddings(ctx context.Context, decisionIDs []string) (map[string]EmbeddingRecord, error)

	// UpsertEmbedding persists or overwrites a record. Best effort.
	UpsertEmbedding(ctx context.Context, record EmbeddingRecord) error
}
