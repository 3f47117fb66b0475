// Package retrieval implements decision-ancestry lookup: given a new
// decision's text, it finds prior recorded decisions with similar content
// and surfaces their outcomes as lessons. The pipeline degrades gracefully
// from cached vector similarity through fresh embedding to pure lexical
// overlap, and never fails.
package retrieval

import "time"

// GateDecision is the recorded verdict of the decision quality gate.
type GateDecision string

const (
	GateApproved         GateDecision = "approved"
	GateRevisionRequired GateDecision = "revision_required"
	GateRejected         GateDecision = "rejected"
	GateBlocked          GateDecision = "blocked"
)

// Candidate is a prior recorded decision. Read-only to this package;
// candidates are ingested and embedded by an external path.
type Candidate struct {
	ID                  string
	Name                string
	Summary             string
	BodyText            string
	GateDecision        *GateDecision
	DQS                 *float64
	FinalRecommendation *string
	ExecutiveSummary    string
	Blockers            []string
	RequiredRevisions   []string
	LastRunAt           time.Time
}

// EmbeddingRecord is a cached embedding for a decision's text. It is valid
// only while SourceHash matches the text's current fingerprint; a mismatch
// is a cache miss, not corruption.
type EmbeddingRecord struct {
	DecisionID string
	SourceHash string
	Provider   string
	Model      string
	Dimensions int
	Vector     []float32
	UpdatedAt  time.Time
}

// Query describes one retrieval request.
type Query struct {
	DecisionID     string
	Name           string
	Summary        string
	BodyText       string
	TopK           int // 0 means default
	CandidateLimit int // 0 means default
}

// Method identifies which retrieval strategy produced a result.
type Method string

const (
	MethodVectorDB        Method = "vector-db"
	MethodLexicalFallback Method = "lexical-fallback"
)

// SimilarDecision is one ranked ancestry match.
type SimilarDecision struct {
	DecisionID string   `json:"decision_id"`
	Name       string   `json:"name"`
	Summary    string   `json:"summary"`
	Similarity float64  `json:"similarity"`
	Lessons    []string `json:"lessons"`
}

// Result is the product of one Retrieve call.
type Result struct {
	SimilarDecisions []SimilarDecision `json:"similar_decisions"`
	RetrievalMethod  Method            `json:"retrieval_method"`
}
