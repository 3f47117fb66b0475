package retrieval

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/boardroomlabs/ancestry/internal/embedding"
	"github.com/boardroomlabs/ancestry/internal/lessons"
	"github.com/boardroomlabs/ancestry/internal/lexical"
	"github.com/boardroomlabs/ancestry/internal/similarity"
)

const (
	// DefaultCandidateLimit bounds the candidate fetch when the query does
	// not specify one; MaxCandidateLimit caps explicit requests.
	DefaultCandidateLimit = 60
	MaxCandidateLimit     = 250

	// DefaultTopK / MaxTopK bound how many matches are returned.
	DefaultTopK = 5
	MaxTopK     = 25

	// summaryMaxLen is the longest summary returned before truncation.
	summaryMaxLen = 200
	ellipsis      = "..."
)

// Config selects the embedding backend used for fresh query vectors.
type Config struct {
	Provider      string
	Model         string
	Dimensions    int
	AllowFallback bool
}

// Retriever is the top-level ancestry lookup entry point.
type Retriever struct {
	store  Store
	embed  *embedding.Service
	cfg    Config
	logger *slog.Logger
	tracer trace.Tracer
}

// New creates a Retriever.
func New(store Store, embed *embedding.Service, cfg Config, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{
		store:  store,
		embed:  embed,
		cfg:    cfg,
		logger: logger,
		tracer: otel.Tracer("github.com/boardroomlabs/ancestry"),
	}
}

// Retrieve finds prior decisions similar to the query and attaches their
// lessons. It never returns an error: blank input, provider failures,
// cache staleness, and store failures all degrade to a valid result, with
// lexical token overlap as the strategy of last resort.
func (r *Retriever) Retrieve(ctx context.Context, q Query) *Result {
	ctx, span := r.tracer.Start(ctx, "ancestry.retrieve")
	defer span.End()

	queryText := joinText(q.Name, q.Summary, q.BodyText)
	if strings.TrimSpace(q.DecisionID) == "" || strings.TrimSpace(queryText) == "" {
		span.SetAttributes(attribute.String("retrieval.method", string(MethodLexicalFallback)))
		return &Result{SimilarDecisions: []SimilarDecision{}, RetrievalMethod: MethodLexicalFallback}
	}

	limit := clamp(q.CandidateLimit, DefaultCandidateLimit, MaxCandidateLimit)
	topK := clamp(q.TopK, DefaultTopK, MaxTopK)

	candidates, err := r.store.ListCandidates(ctx, q.DecisionID, limit)
	if err != nil {
		r.logger.Warn("candidate listing failed, degrading to empty result", "decision_id", q.DecisionID, "error", err)
		candidates = nil
	}
	span.SetAttributes(attribute.Int("retrieval.candidates", len(candidates)))
	if len(candidates) == 0 {
		span.SetAttributes(attribute.String("retrieval.method", string(MethodLexicalFallback)))
		return &Result{SimilarDecisions: []SimilarDecision{}, RetrievalMethod: MethodLexicalFallback}
	}

	queryVec := r.resolveQueryVector(ctx, q.DecisionID, queryText)

	var ranked []scoredCandidate
	method := MethodLexicalFallback
	if queryVec != nil {
		ranked = r.rankByVector(ctx, queryVec, candidates, topK)
		if len(ranked) > 0 {
			method = MethodVectorDB
		}
	}
	if len(ranked) == 0 {
		ranked = rankByOverlap(queryText, candidates, topK)
	}

	out := make([]SimilarDecision, len(ranked))
	for i, sc := range ranked {
		out[i] = SimilarDecision{
			DecisionID: sc.candidate.ID,
			Name:       sc.candidate.Name,
			Summary:    truncateSummary(sc.candidate.Summary),
			Similarity: sc.score,
			Lessons:    candidateLessons(sc.candidate),
		}
	}

	span.SetAttributes(
		attribute.String("retrieval.method", string(method)),
		attribute.Int("retrieval.results", len(out)),
	)
	return &Result{SimilarDecisions: out, RetrievalMethod: method}
}

// resolveQueryVector returns the query embedding, reusing the cached record
// when its source hash still matches the query text. A fresh vector is
// written back best-effort. Nil means no usable vector exists and the
// caller must fall back to lexical scoring.
func (r *Retriever) resolveQueryVector(ctx context.Context, decisionID, queryText string) []float32 {
	hash := similarity.SourceHash(queryText)

	cached, err := r.store.GetEmbedding(ctx, decisionID)
	if err != nil {
		r.logger.Debug("embedding cache read failed, treating as miss", "decision_id", decisionID, "error", err)
	} else if cached != nil && cached.SourceHash == hash {
		return cached.Vector
	}

	res, err := r.embed.EmbedText(ctx, queryText, embedding.Options{
		Provider:      r.cfg.Provider,
		Model:         r.cfg.Model,
		Dimensions:    r.cfg.Dimensions,
		AllowFallback: r.cfg.AllowFallback,
	})
	if err != nil {
		r.logger.Warn("query embedding failed, falling back to lexical scoring", "decision_id", decisionID, "error", err)
		return nil
	}

	// Cache write is an optimization, never a correctness dependency.
	if err := r.store.UpsertEmbedding(ctx, EmbeddingRecord{
		DecisionID: decisionID,
		SourceHash: hash,
		Provider:   res.Provider,
		Model:      res.Model,
		Dimensions: res.Dimensions,
		Vector:     res.Vector,
		UpdatedAt:  time.Now().UTC(),
	}); err != nil {
		r.logger.Debug("embedding cache write failed", "decision_id", decisionID, "error", err)
	}

	return res.Vector
}

type scoredCandidate struct {
	candidate Candidate
	score     float64
}

// rankByVector scores candidates with valid cached embeddings against the
// query vector and keeps strictly positive similarities. Candidates whose
// cached hash no longer matches their text are excluded rather than
// re-embedded inline.
func (r *Retriever) rankByVector(ctx context.Context, queryVec []float32, candidates []Candidate, topK int) []scoredCandidate {
	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ID
	}

	records, err := r.store.ListEmbeddings(ctx, ids)
	if err != nil {
		r.logger.Debug("candidate embedding fetch failed", "error", err)
		return nil
	}

	var scored []scoredCandidate
	for _, c := range candidates {
		rec, ok := records[c.ID]
		if !ok {
			continue
		}
		if rec.SourceHash != similarity.SourceHash(candidateText(c)) {
			continue
		}
		if s := similarity.Cosine(queryVec, rec.Vector); s > 0 {
			scored = append(scored, scoredCandidate{candidate: c, score: s})
		}
	}

	sortByScore(scored)
	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored
}

// rankByOverlap is the unconditional safety net: every candidate gets a
// token-overlap score, zero included, so the output is non-empty whenever
// candidates exist.
func rankByOverlap(queryText string, candidates []Candidate, topK int) []scoredCandidate {
	queryTokens := lexical.TokenSet(queryText)

	scored := make([]scoredCandidate, len(candidates))
	for i, c := range candidates {
		scored[i] = scoredCandidate{
			candidate: c,
			score:     float64(lexical.Overlap(queryTokens, candidateText(c))),
		}
	}

	sortByScore(scored)
	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored
}

// sortByScore orders by score descending; the stable sort preserves the
// original candidate order as tie-break.
func sortByScore(scored []scoredCandidate) {
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})
}

func candidateLessons(c Candidate) []string {
	var recommendation string
	if c.FinalRecommendation != nil {
		recommendation = *c.FinalRecommendation
	}
	return lessons.Extract(lessons.Outcome{
		FinalRecommendation: recommendation,
		DQS:                 c.DQS,
		Blockers:            c.Blockers,
		RequiredRevisions:   c.RequiredRevisions,
	})
}

// candidateText is the candidate-side fingerprint and scoring text.
func candidateText(c Candidate) string {
	return joinText(c.Name, c.Summary, c.BodyText, c.ExecutiveSummary)
}

func joinText(parts ...string) string {
	return strings.Join(parts, "\n")
}

func clamp(v, def, max int) int {
	if v <= 0 {
		return def
	}
	if v > max {
		return max
	}
	return v
}

func truncateSummary(s string) string {
	runes := []rune(s)
	if len(runes) <= summaryMaxLen {
		return s
	}
	return string(runes[:summaryMaxLen]) + ellipsis
}
