package temporal

import (
	"context"
	"fmt"

	"github.com/boardroomlabs/ancestry/internal/retrieval"
)

// Dependencies holds the services activities need. Set once at worker
// startup before any activity runs.
type Dependencies struct {
	Retriever *retrieval.Retriever
}

var deps *Dependencies

// SetDependencies installs the activity dependencies.
func SetDependencies(d *Dependencies) {
	deps = d
}

// RetrieveActivity runs one ancestry lookup against the retriever.
func RetrieveActivity(ctx context.Context, input AncestryInput) (AncestryOutput, error) {
	if deps == nil || deps.Retriever == nil {
		return AncestryOutput{}, fmt.Errorf("temporal: dependencies not set")
	}

	result := deps.Retriever.Retrieve(ctx, retrieval.Query{
		DecisionID:     input.DecisionID,
		Name:           input.Name,
		Summary:        input.Summary,
		BodyText:       input.BodyText,
		TopK:           input.TopK,
		CandidateLimit: input.CandidateLimit,
	})

	return AncestryOutput{
		SimilarDecisions: result.SimilarDecisions,
		RetrievalMethod:  string(result.RetrievalMethod),
	}, nil
}
