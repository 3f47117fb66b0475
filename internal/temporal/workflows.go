// Package temporal runs ancestry retrieval as Temporal workflows so
// decision review pipelines can request lookups asynchronously.
package temporal

import (
	"time"

	"go.temporal.io/sdk/workflow"

	"github.com/boardroomlabs/ancestry/internal/retrieval"
)

// AncestryInput holds the workflow parameters for one lookup.
type AncestryInput struct {
	DecisionID     string
	Name           string
	Summary        string
	BodyText       string
	TopK           int
	CandidateLimit int
}

// AncestryOutput is the serializable workflow result.
type AncestryOutput struct {
	SimilarDecisions []retrieval.SimilarDecision
	RetrievalMethod  string
}

// AncestryWorkflow retrieves decision ancestry for one query. Retrieval
// itself never fails; the activity options only bound datastore and
// provider round trips.
func AncestryWorkflow(ctx workflow.Context, input AncestryInput) (*AncestryOutput, error) {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var out AncestryOutput
	if err := workflow.ExecuteActivity(ctx, RetrieveActivity, input).Get(ctx, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
