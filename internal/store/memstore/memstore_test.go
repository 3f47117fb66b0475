package memstore

import (
	"context"
	"testing"

	"github.com/boardroomlabs/ancestry/internal/retrieval"
)

func TestListCandidatesExcludesQueryDecision(t *testing.T) {
	s := New()
	s.AddCandidate(retrieval.Candidate{ID: "a"})
	s.AddCandidate(retrieval.Candidate{ID: "b"})
	s.AddCandidate(retrieval.Candidate{ID: "c"})

	got, err := s.ListCandidates(context.Background(), "b", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "c" {
		t.Fatalf("unexpected candidates: %+v", got)
	}
}

func TestListCandidatesHonorsLimit(t *testing.T) {
	s := New()
	for _, id := range []string{"a", "b", "c", "d"} {
		s.AddCandidate(retrieval.Candidate{ID: id})
	}
	got, _ := s.ListCandidates(context.Background(), "x", 2)
	if len(got) != 2 {
		t.Fatalf("expected 2, got %d", len(got))
	}
}

func TestEmbeddingRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()

	if rec, _ := s.GetEmbedding(ctx, "missing"); rec != nil {
		t.Fatal("expected nil for missing record")
	}

	err := s.UpsertEmbedding(ctx, retrieval.EmbeddingRecord{
		DecisionID: "d-1", SourceHash: "h", Provider: "local", Model: "m",
		Dimensions: 2, Vector: []float32{1, 2},
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	rec, _ := s.GetEmbedding(ctx, "d-1")
	if rec == nil || rec.SourceHash != "h" {
		t.Fatalf("unexpected record: %+v", rec)
	}

	m, _ := s.ListEmbeddings(ctx, []string{"d-1", "missing"})
	if len(m) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(m))
	}
}
