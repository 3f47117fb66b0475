package retrieval_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/boardroomlabs/ancestry/internal/embedding"
	"github.com/boardroomlabs/ancestry/internal/retrieval"
	"github.com/boardroomlabs/ancestry/internal/similarity"
	"github.com/boardroomlabs/ancestry/internal/simulation"
	"github.com/boardroomlabs/ancestry/internal/store/memstore"
)

// trackingStore wraps memstore and records the limits it was queried with.
type trackingStore struct {
	*memstore.Store
	listCalls int
	lastLimit int
	queried   bool
}

func (s *trackingStore) ListCandidates(ctx context.Context, decisionID string, limit int) ([]retrieval.Candidate, error) {
	s.listCalls++
	s.lastLimit = limit
	s.queried = true
	return s.Store.ListCandidates(ctx, decisionID, limit)
}

func (s *trackingStore) GetEmbedding(ctx context.Context, decisionID string) (*retrieval.EmbeddingRecord, error) {
	s.queried = true
	return s.Store.GetEmbedding(ctx, decisionID)
}

type failingStore struct{}

func (failingStore) GetEmbedding(context.Context, string) (*retrieval.EmbeddingRecord, error) {
	return nil, errors.New("store down")
}
func (failingStore) ListCandidates(context.Context, string, int) ([]retrieval.Candidate, error) {
	return nil, errors.New("store down")
}
func (failingStore) ListEmbeddings(context.Context, []string) (map[string]retrieval.EmbeddingRecord, error) {
	return nil, errors.New("store down")
}
func (failingStore) UpsertEmbedding(context.Context, retrieval.EmbeddingRecord) error {
	return errors.New("store down")
}

// countingProvider counts embed calls and returns a fixed vector.
type countingProvider struct {
	calls  *int
	vector []float32
	err    error
}

func (p countingProvider) Embed(context.Context, string) (*embedding.Result, error) {
	*p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return &embedding.Result{
		Provider:   "counting",
		Model:      "test",
		Dimensions: len(p.vector),
		Vector:     p.vector,
	}, nil
}

func (p countingProvider) Name() string { return "counting" }

func noSim() simulation.Controls {
	return simulation.Controls{
		EnabledFn: func() bool { return false },
		DelayFn:   func() time.Duration { return 0 },
		SleepFn:   func(context.Context, time.Duration) {},
	}
}

func newService(p embedding.Provider) *embedding.Service {
	f := embedding.NewFactory()
	embedding.RegisterBuiltins(f)
	if p != nil {
		f.Register("counting", func(embedding.Config) (embedding.Provider, error) { return p, nil })
	}
	return embedding.NewService(f, embedding.Config{}, noSim())
}

func queryHash(q retrieval.Query) string {
	return similarity.SourceHash(strings.Join([]string{q.Name, q.Summary, q.BodyText}, "\n"))
}

func candidateHash(c retrieval.Candidate) string {
	return similarity.SourceHash(strings.Join([]string{c.Name, c.Summary, c.BodyText, c.ExecutiveSummary}, "\n"))
}

func TestRetrieveBlankDecisionIDSkipsStore(t *testing.T) {
	store := &trackingStore{Store: memstore.New()}
	r := retrieval.New(store, newService(nil), retrieval.Config{Provider: "local"}, nil)

	res := r.Retrieve(context.Background(), retrieval.Query{DecisionID: "   ", BodyText: "x"})

	if res.RetrievalMethod != retrieval.MethodLexicalFallback {
		t.Fatalf("expected lexical-fallback, got %s", res.RetrievalMethod)
	}
	if len(res.SimilarDecisions) != 0 {
		t.Fatalf("expected no results, got %d", len(res.SimilarDecisions))
	}
	if store.queried {
		t.Fatal("datastore must not be queried for blank input")
	}
}

func TestRetrieveBlankTextSkipsStore(t *testing.T) {
	store := &trackingStore{Store: memstore.New()}
	r := retrieval.New(store, newService(nil), retrieval.Config{Provider: "local"}, nil)

	res := r.Retrieve(context.Background(), retrieval.Query{DecisionID: "d-1", BodyText: "  \n "})

	if res.RetrievalMethod != retrieval.MethodLexicalFallback || len(res.SimilarDecisions) != 0 {
		t.Fatalf("expected empty lexical-fallback result, got %+v", res)
	}
	if store.queried {
		t.Fatal("datastore must not be queried for blank query text")
	}
}

func TestRetrieveNoCandidatesUsesDefaultLimit(t *testing.T) {
	store := &trackingStore{Store: memstore.New()}
	r := retrieval.New(store, newService(nil), retrieval.Config{Provider: "local"}, nil)

	res := r.Retrieve(context.Background(), retrieval.Query{DecisionID: "d-1", BodyText: "Growth and expansion"})

	if res.RetrievalMethod != retrieval.MethodLexicalFallback || len(res.SimilarDecisions) != 0 {
		t.Fatalf("expected empty lexical-fallback result, got %+v", res)
	}
	if store.lastLimit != retrieval.DefaultCandidateLimit {
		t.Fatalf("expected default candidate limit %d, store saw %d", retrieval.DefaultCandidateLimit, store.lastLimit)
	}
}

func TestRetrieveClampsLimits(t *testing.T) {
	store := &trackingStore{Store: memstore.New()}
	for i := 0; i < 30; i++ {
		store.AddCandidate(retrieval.Candidate{ID: "c-" + strings.Repeat("x", i+1), BodyText: "growth"})
	}
	r := retrieval.New(store, newService(nil), retrieval.Config{Provider: "local"}, nil)

	res := r.Retrieve(context.Background(), retrieval.Query{
		DecisionID:     "d-1",
		BodyText:       "growth",
		TopK:           99,
		CandidateLimit: 999,
	})

	if store.lastLimit != retrieval.MaxCandidateLimit {
		t.Fatalf("expected clamped limit %d, store saw %d", retrieval.MaxCandidateLimit, store.lastLimit)
	}
	if len(res.SimilarDecisions) > retrieval.MaxTopK {
		t.Fatalf("topK ceiling %d exceeded: %d results", retrieval.MaxTopK, len(res.SimilarDecisions))
	}
}

func TestRetrieveVectorPath(t *testing.T) {
	store := memstore.New()

	longSummary := strings.Repeat("s", 400)
	near := retrieval.Candidate{ID: "c-near", Name: "Near", Summary: longSummary, BodyText: "near body"}
	far := retrieval.Candidate{ID: "c-far", Name: "Far", Summary: "far", BodyText: "far body"}
	stale := retrieval.Candidate{ID: "c-stale", Name: "Stale", Summary: "stale", BodyText: "stale body"}
	opposed := retrieval.Candidate{ID: "c-opposed", Name: "Opposed", Summary: "opposed", BodyText: "opposed body"}
	store.AddCandidate(near)
	store.AddCandidate(far)
	store.AddCandidate(stale)
	store.AddCandidate(opposed)

	ctx := context.Background()
	put := func(c retrieval.Candidate, hash string, vec []float32) {
		if err := store.UpsertEmbedding(ctx, retrieval.EmbeddingRecord{
			DecisionID: c.ID, SourceHash: hash, Provider: "local", Model: "m",
			Dimensions: len(vec), Vector: vec, UpdatedAt: time.Now(),
		}); err != nil {
			t.Fatalf("seed embedding: %v", err)
		}
	}
	put(near, candidateHash(near), []float32{0.9, 0.1})
	put(far, candidateHash(far), []float32{0.1, 0.9})
	put(stale, "stale-hash", []float32{1, 0}) // hash mismatch, excluded
	put(opposed, candidateHash(opposed), []float32{-1, 0})

	q := retrieval.Query{DecisionID: "d-1", Name: "Query", BodyText: "query body"}
	put(retrieval.Candidate{ID: q.DecisionID}, queryHash(q), []float32{1, 0})

	calls := 0
	svc := newService(countingProvider{calls: &calls, err: errors.New("must not be called")})
	r := retrieval.New(store, svc, retrieval.Config{Provider: "counting"}, nil)

	res := r.Retrieve(ctx, q)

	if calls != 0 {
		t.Fatalf("cached query vector should be reused, provider called %d times", calls)
	}
	if res.RetrievalMethod != retrieval.MethodVectorDB {
		t.Fatalf("expected vector-db, got %s", res.RetrievalMethod)
	}
	if len(res.SimilarDecisions) != 2 {
		t.Fatalf("expected 2 results (stale excluded, non-positive dropped), got %d", len(res.SimilarDecisions))
	}
	if res.SimilarDecisions[0].DecisionID != "c-near" || res.SimilarDecisions[1].DecisionID != "c-far" {
		t.Fatalf("wrong order: %s, %s", res.SimilarDecisions[0].DecisionID, res.SimilarDecisions[1].DecisionID)
	}
	if res.SimilarDecisions[0].Similarity <= res.SimilarDecisions[1].Similarity {
		t.Fatal("results not sorted descending by similarity")
	}
	got := res.SimilarDecisions[0].Summary
	if !strings.HasSuffix(got, "...") || len([]rune(got)) != 203 {
		t.Fatalf("expected truncated summary with ellipsis, got %d runes", len([]rune(got)))
	}
}

func TestRetrieveLexicalFallbackWhenNoPositiveSimilarity(t *testing.T) {
	store := memstore.New()

	overlapping := retrieval.Candidate{ID: "c-1", Name: "Market entry", BodyText: "expand into the european market"}
	unrelated := retrieval.Candidate{ID: "c-2", Name: "Hiring", BodyText: "engineering hiring plan"}
	store.AddCandidate(unrelated)
	store.AddCandidate(overlapping)

	ctx := context.Background()
	// Candidate vectors are orthogonal or opposed to the query vector.
	for _, c := range []retrieval.Candidate{overlapping, unrelated} {
		if err := store.UpsertEmbedding(ctx, retrieval.EmbeddingRecord{
			DecisionID: c.ID, SourceHash: candidateHash(c), Provider: "local", Model: "m",
			Dimensions: 2, Vector: []float32{0, -1}, UpdatedAt: time.Now(),
		}); err != nil {
			t.Fatalf("seed embedding: %v", err)
		}
	}

	q := retrieval.Query{DecisionID: "d-1", BodyText: "european market expansion"}
	if err := store.UpsertEmbedding(ctx, retrieval.EmbeddingRecord{
		DecisionID: q.DecisionID, SourceHash: queryHash(q), Provider: "local", Model: "m",
		Dimensions: 2, Vector: []float32{0, 1}, UpdatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("seed query embedding: %v", err)
	}

	r := retrieval.New(store, newService(nil), retrieval.Config{Provider: "local"}, nil)
	res := r.Retrieve(ctx, q)

	if res.RetrievalMethod != retrieval.MethodLexicalFallback {
		t.Fatalf("expected lexical-fallback, got %s", res.RetrievalMethod)
	}
	if len(res.SimilarDecisions) != 2 {
		t.Fatalf("lexical fallback must rank every candidate, got %d", len(res.SimilarDecisions))
	}
	if res.SimilarDecisions[0].DecisionID != "c-1" {
		t.Fatalf("expected highest token overlap first, got %s", res.SimilarDecisions[0].DecisionID)
	}
}

func TestRetrieveFreshVectorIsCached(t *testing.T) {
	store := memstore.New()
	c := retrieval.Candidate{ID: "c-1", BodyText: "anything"}
	store.AddCandidate(c)

	calls := 0
	svc := newService(countingProvider{calls: &calls, vector: []float32{1, 0}})
	r := retrieval.New(store, svc, retrieval.Config{Provider: "counting"}, nil)

	q := retrieval.Query{DecisionID: "d-1", BodyText: "fresh text"}
	r.Retrieve(context.Background(), q)

	if calls != 1 {
		t.Fatalf("expected exactly one provider call, got %d", calls)
	}
	rec, err := store.GetEmbedding(context.Background(), "d-1")
	if err != nil || rec == nil {
		t.Fatalf("expected cached record, got %v (err %v)", rec, err)
	}
	if rec.SourceHash != queryHash(q) {
		t.Fatal("cached record carries wrong source hash")
	}
	if rec.Provider != "counting" || rec.Dimensions != 2 {
		t.Fatalf("unexpected record metadata: %+v", rec)
	}
}

func TestRetrieveStaleQueryVectorReembedded(t *testing.T) {
	store := memstore.New()
	store.AddCandidate(retrieval.Candidate{ID: "c-1", BodyText: "anything"})

	ctx := context.Background()
	if err := store.UpsertEmbedding(ctx, retrieval.EmbeddingRecord{
		DecisionID: "d-1", SourceHash: "old-hash", Provider: "local", Model: "m",
		Dimensions: 2, Vector: []float32{0, 1}, UpdatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("seed embedding: %v", err)
	}

	calls := 0
	svc := newService(countingProvider{calls: &calls, vector: []float32{1, 0}})
	r := retrieval.New(store, svc, retrieval.Config{Provider: "counting"}, nil)

	r.Retrieve(ctx, retrieval.Query{DecisionID: "d-1", BodyText: "changed text"})

	if calls != 1 {
		t.Fatalf("stale cached vector must trigger re-embedding, got %d calls", calls)
	}
}

func TestRetrieveProviderFailureDegradesToLexical(t *testing.T) {
	store := memstore.New()
	store.AddCandidate(retrieval.Candidate{ID: "c-1", Name: "Pricing", BodyText: "pricing strategy review"})

	calls := 0
	svc := newService(countingProvider{calls: &calls, err: errors.New("provider down")})
	r := retrieval.New(store, svc, retrieval.Config{Provider: "counting"}, nil)

	res := r.Retrieve(context.Background(), retrieval.Query{DecisionID: "d-1", BodyText: "pricing strategy"})

	if res.RetrievalMethod != retrieval.MethodLexicalFallback {
		t.Fatalf("expected lexical-fallback, got %s", res.RetrievalMethod)
	}
	if len(res.SimilarDecisions) != 1 {
		t.Fatalf("expected candidate ranked lexically, got %d results", len(res.SimilarDecisions))
	}
}

func TestRetrieveStoreFailureNeverPropagates(t *testing.T) {
	r := retrieval.New(failingStore{}, newService(nil), retrieval.Config{Provider: "local"}, nil)

	res := r.Retrieve(context.Background(), retrieval.Query{DecisionID: "d-1", BodyText: "anything"})

	if res == nil || res.RetrievalMethod != retrieval.MethodLexicalFallback || len(res.SimilarDecisions) != 0 {
		t.Fatalf("expected empty lexical-fallback result, got %+v", res)
	}
}

func TestRetrieveLessonsAttached(t *testing.T) {
	store := memstore.New()
	dqs := 8.25
	rec := "Proceed"
	store.AddCandidate(retrieval.Candidate{
		ID:                  "c-1",
		Name:                "Launch",
		BodyText:            "launch the product",
		DQS:                 &dqs,
		FinalRecommendation: &rec,
		Blockers:            []string{"missing compliance review"},
	})

	r := retrieval.New(store, newService(nil), retrieval.Config{Provider: "local"}, nil)
	res := r.Retrieve(context.Background(), retrieval.Query{DecisionID: "d-1", BodyText: "launch product"})

	if len(res.SimilarDecisions) != 1 {
		t.Fatalf("expected 1 result, got %d", len(res.SimilarDecisions))
	}
	lessons := res.SimilarDecisions[0].Lessons
	if len(lessons) != 2 {
		t.Fatalf("expected 2 lesson lines, got %v", lessons)
	}
	if lessons[0] != "Outcome: Proceed; DQS 8.25." {
		t.Fatalf("unexpected outcome line: %q", lessons[0])
	}
	if lessons[1] != "Blocker: missing compliance review" {
		t.Fatalf("unexpected blocker line: %q", lessons[1])
	}
}

func TestRetrieveTieBreakPreservesCandidateOrder(t *testing.T) {
	store := memstore.New()
	store.AddCandidate(retrieval.Candidate{ID: "c-first", BodyText: "unrelated one"})
	store.AddCandidate(retrieval.Candidate{ID: "c-second", BodyText: "unrelated two"})

	r := retrieval.New(store, newService(nil), retrieval.Config{Provider: "local"}, nil)
	res := r.Retrieve(context.Background(), retrieval.Query{DecisionID: "d-1", BodyText: "query text"})

	if res.SimilarDecisions[0].DecisionID != "c-first" || res.SimilarDecisions[1].DecisionID != "c-second" {
		t.Fatalf("zero-score ties must keep original order, got %s then %s",
			res.SimilarDecisions[0].DecisionID, res.SimilarDecisions[1].DecisionID)
	}
}
