// Package worker consumes queued workflow execution tasks and hands them to
// the engine.
package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/clientflow-hq/clientflow/internal/engine"
	"github.com/clientflow-hq/clientflow/internal/pkg/queue"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
)

type Worker struct {
	engine *engine.Engine
}

func New(eng *engine.Engine) *Worker {
	return &Worker{engine: eng}
}

// Register wires the worker's task handlers into the queue server.
func (w *Worker) Register(server *queue.Server) {
	server.HandleFunc(queue.TypeWorkflowExecution, w.HandleWorkflowExecution)
}

func (w *Worker) HandleWorkflowExecution(ctx context.Context, task *asynq.Task) error {
	var payload queue.WorkflowExecutionPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		// Malformed payloads never become processable; don't let asynq retry.
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	log.Debug().
		Str("workflow_id", payload.WorkflowID.String()).
		Str("execution_id", payload.ExecutionID.String()).
		Msg("Processing workflow execution task")

	return w.engine.Run(ctx, payload.ExecutionID)
}
