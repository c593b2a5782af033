package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/clientflow-hq/clientflow/internal/domain/models"
	"github.com/clientflow-hq/clientflow/internal/domain/repositories"
	"github.com/clientflow-hq/clientflow/internal/engine"
	pkglogger "github.com/clientflow-hq/clientflow/internal/pkg/logger"
	"github.com/clientflow-hq/clientflow/internal/pkg/queue"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var (
	ErrWorkflowNotActive = errors.New("workflow is not active")
	ErrNoActiveTrigger   = errors.New("workflow has no active trigger")
)

type WorkflowService struct {
	workflowRepo  *repositories.WorkflowRepository
	executionRepo *repositories.ExecutionRepository
	queue         *queue.Client
	validate      *validator.Validate
}

func NewWorkflowService(
	workflowRepo *repositories.WorkflowRepository,
	executionRepo *repositories.ExecutionRepository,
	queueClient *queue.Client,
) *WorkflowService {
	return &WorkflowService{
		workflowRepo:  workflowRepo,
		executionRepo: executionRepo,
		queue:         queueClient,
		validate:      validator.New(),
	}
}

type CreateWorkflowInput struct {
	Name        string   `validate:"required,max=255"`
	Description *string  `validate:"omitempty,max=2000"`
	Tags        []string `validate:"omitempty,dive,max=50"`
}

func (s *WorkflowService) Create(ctx context.Context, input CreateWorkflowInput) (*models.Workflow, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, err
	}

	workflow := &models.Workflow{
		Name:        input.Name,
		Description: input.Description,
		Status:      models.WorkflowStatusDraft,
		Tags:        input.Tags,
	}

	if err := s.workflowRepo.Create(ctx, workflow); err != nil {
		return nil, err
	}

	return workflow, nil
}

func (s *WorkflowService) GetByID(ctx context.Context, id uuid.UUID) (*models.Workflow, error) {
	return s.workflowRepo.FindByID(ctx, id)
}

// List returns workflows page by page, optionally filtered to one status.
func (s *WorkflowService) List(ctx context.Context, status string, opts *repositories.ListOptions) ([]models.Workflow, int64, error) {
	if status != "" {
		return s.workflowRepo.FindByStatus(ctx, status, opts)
	}
	return s.workflowRepo.FindAll(ctx, opts)
}

func (s *WorkflowService) ListExecutions(ctx context.Context, workflowID uuid.UUID, opts *repositories.ListOptions) ([]models.Execution, int64, error) {
	return s.executionRepo.FindByWorkflowID(ctx, workflowID, opts)
}

// DeleteExecution removes a finished execution. In-flight executions are
// refused; cancel them first.
func (s *WorkflowService) DeleteExecution(ctx context.Context, executionID uuid.UUID) error {
	return s.executionRepo.DeleteTerminal(ctx, executionID)
}

func (s *WorkflowService) Activate(ctx context.Context, id uuid.UUID) error {
	return s.workflowRepo.UpdateStatus(ctx, id, models.WorkflowStatusActive)
}

// Pause stops new trigger fires without touching in-flight executions.
func (s *WorkflowService) Pause(ctx context.Context, id uuid.UUID) error {
	return s.workflowRepo.UpdateStatus(ctx, id, models.WorkflowStatusPaused)
}

func (s *WorkflowService) Archive(ctx context.Context, id uuid.UUID) error {
	return s.workflowRepo.UpdateStatus(ctx, id, models.WorkflowStatusArchived)
}

func (s *WorkflowService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.workflowRepo.DeleteCascade(ctx, id)
}

// ReplaceActions swaps the workflow's action set atomically. The proposed
// set is graph-checked first, so a cyclic or malformed set is rejected with
// the prior set untouched.
func (s *WorkflowService) ReplaceActions(ctx context.Context, workflowID uuid.UUID, actions []models.Action) error {
	for i := range actions {
		if actions[i].ID == uuid.Nil {
			actions[i].ID = uuid.New()
		}
	}
	if _, err := engine.BuildGraph(actions); err != nil {
		return err
	}
	return s.workflowRepo.ReplaceActions(ctx, workflowID, actions)
}

func (s *WorkflowService) GetActions(ctx context.Context, workflowID uuid.UUID) ([]models.Action, error) {
	return s.workflowRepo.FindActions(ctx, workflowID)
}

// Fire is the trigger boundary: appointment events, manual runs and webhook
// receipts all enter here. The action graph is validated before the
// execution row exists, so a cyclic graph never produces an Execution.
func (s *WorkflowService) Fire(ctx context.Context, workflowID uuid.UUID, triggerType string, payload models.JSON) (*models.Execution, error) {
	workflow, err := s.workflowRepo.FindByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	if !workflow.CanFire() {
		return nil, ErrWorkflowNotActive
	}

	triggers, err := s.workflowRepo.FindTriggers(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	trigger := firstActiveTrigger(triggers)
	if trigger == nil {
		return nil, ErrNoActiveTrigger
	}

	actions, err := s.workflowRepo.FindActions(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	if _, err := engine.BuildGraph(actions); err != nil {
		return nil, err
	}

	execution := &models.Execution{
		WorkflowID:  workflowID,
		Status:      models.ExecutionStatusPending,
		TriggerType: triggerType,
		TriggerData: payload,
	}
	if err := s.executionRepo.Create(ctx, execution); err != nil {
		return nil, err
	}

	_, err = s.queue.EnqueueWorkflowExecution(ctx, queue.WorkflowExecutionPayload{
		WorkflowID:  workflowID,
		ExecutionID: execution.ID,
		TriggerType: triggerType,
		TriggerData: payload,
	})
	if err != nil {
		// The pending row stays; the stale reaper will fail it if no worker
		// ever picks it up.
		return nil, fmt.Errorf("failed to enqueue execution: %w", err)
	}

	logger := pkglogger.WithWorkflowID(workflowID.String())
	logger.Info().
		Str("execution_id", execution.ID.String()).
		Str("trigger_type", triggerType).
		Msg("Workflow fired")

	return execution, nil
}

// firstActiveTrigger mirrors the engine behavior of only ever acting on the
// first trigger even when more exist.
func firstActiveTrigger(triggers []models.Trigger) *models.Trigger {
	for i := range triggers {
		if triggers[i].IsActive {
			return &triggers[i]
		}
	}
	return nil
}

// CancelExecution moves a pending or running execution to cancelled.
// Terminal executions are left alone.
func (s *WorkflowService) CancelExecution(ctx context.Context, executionID uuid.UUID) error {
	return s.executionRepo.UpdateStatus(ctx, executionID,
		[]string{models.ExecutionStatusPending, models.ExecutionStatusRunning},
		models.ExecutionStatusCancelled)
}
