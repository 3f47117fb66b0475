package temporal

import (
	"fmt"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

// DefaultTaskQueue is the task queue ancestry workers poll by default.
const DefaultTaskQueue = "ancestry-retrieval"

// StartWorker registers the ancestry workflow and activity on a worker
// and starts it. The caller owns stopping it.
func StartWorker(c client.Client, taskQueue string) (worker.Worker, error) {
	if taskQueue == "" {
		taskQueue = DefaultTaskQueue
	}

	w := worker.New(c, taskQueue, worker.Options{})
	w.RegisterWorkflow(AncestryWorkflow)
	w.RegisterActivity(RetrieveActivity)

	if err := w.Start(); err != nil {
		return nil, fmt.Errorf("starting temporal worker: %w", err)
	}
	return w, nil
}
