package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/clientflow-hq/clientflow/internal/domain/models"
	"github.com/clientflow-hq/clientflow/internal/pkg/config"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	TypeWorkflowExecution = "workflow:execution"
)

const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

type Client struct {
	client *asynq.Client
}

func NewClient(cfg *config.RedisConfig) *Client {
	client := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &Client{client: client}
}

func (c *Client) Close() error {
	return c.client.Close()
}

type WorkflowExecutionPayload struct {
	WorkflowID  uuid.UUID   `json:"workflow_id"`
	ExecutionID uuid.UUID   `json:"execution_id"`
	TriggerType string      `json:"trigger_type"`
	TriggerData models.JSON `json:"trigger_data,omitempty"`
}

func (c *Client) EnqueueWorkflowExecution(ctx context.Context, payload WorkflowExecutionPayload) (*asynq.TaskInfo, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	task := asynq.NewTask(TypeWorkflowExecution, data,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(3),
		asynq.Timeout(5*time.Minute),
		asynq.Retention(24*time.Hour),
	)

	return c.client.EnqueueContext(ctx, task)
}
