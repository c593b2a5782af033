// Package engine walks a workflow's action graph for a fired trigger and
// drives the execution lifecycle: pending -> running -> {completed, failed,
// cancelled}. Transitions out of a terminal state never happen.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/clientflow-hq/clientflow/internal/domain/models"
	pkglogger "github.com/clientflow-hq/clientflow/internal/pkg/logger"
	"github.com/clientflow-hq/clientflow/internal/pkg/metrics"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// WorkflowStore is the slice of workflow persistence the engine needs.
// *repositories.WorkflowRepository satisfies it.
type WorkflowStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Workflow, error)
	FindActions(ctx context.Context, workflowID uuid.UUID) ([]models.Action, error)
	RecordResult(ctx context.Context, workflowID uuid.UUID, succeeded bool) error
}

// ExecutionStore is the slice of execution persistence the engine needs.
// *repositories.ExecutionRepository satisfies it.
type ExecutionStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Execution, error)
	UpdateStatus(ctx context.Context, executionID uuid.UUID, from []string, to string) error
	SetOutput(ctx context.Context, executionID uuid.UUID, output models.JSON) error
	SetError(ctx context.Context, executionID uuid.UUID, errorMessage string) error
}

type Engine struct {
	workflows  WorkflowStore
	executions ExecutionStore
	registry   *ExecutorRegistry
}

func New(workflows WorkflowStore, executions ExecutionStore, registry *ExecutorRegistry) *Engine {
	return &Engine{
		workflows:  workflows,
		executions: executions,
		registry:   registry,
	}
}

// Run drives one execution to a terminal state. Re-invoking it for an
// execution that already finished is a no-op, which makes at-least-once task
// delivery safe.
func (e *Engine) Run(ctx context.Context, executionID uuid.UUID) error {
	logger := pkglogger.WithExecutionID(executionID.String())

	execution, err := e.executions.FindByID(ctx, executionID)
	if err != nil {
		return fmt.Errorf("failed to load execution: %w", err)
	}
	if execution.IsTerminal() {
		logger.Debug().Str("status", execution.Status).Msg("Execution already terminal, skipping")
		return nil
	}

	// The action rows are read exactly once here; the walk below works on
	// this owned snapshot, so concurrent workflow edits cannot corrupt an
	// in-flight run.
	actions, err := e.workflows.FindActions(ctx, execution.WorkflowID)
	if err != nil {
		return fmt.Errorf("failed to load actions: %w", err)
	}

	graph, err := BuildGraph(actions)
	if err != nil {
		e.fail(ctx, execution, err.Error())
		return nil
	}

	// pending -> running. Losing this CAS means another worker took the run
	// or it was cancelled; either way we back off.
	err = e.executions.UpdateStatus(ctx, executionID,
		[]string{models.ExecutionStatusPending}, models.ExecutionStatusRunning)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Debug().Msg("Execution no longer pending, skipping")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to start execution: %w", err)
	}

	execCtx := &ExecutionContext{
		ExecutionID: execution.ID,
		WorkflowID:  execution.WorkflowID,
		Trigger:     map[string]interface{}(execution.TriggerData),
		Vars:        make(map[string]interface{}),
		Outputs:     make(map[string]map[string]interface{}),
	}
	if execCtx.Trigger == nil {
		execCtx.Trigger = make(map[string]interface{})
	}

	if err := e.walk(ctx, graph.Roots, execCtx, &logger); err != nil {
		e.fail(ctx, execution, err.Error())
		return nil
	}

	output := make(models.JSON, len(execCtx.Outputs))
	for id, out := range execCtx.Outputs {
		output[id] = out
	}
	if err := e.executions.SetOutput(ctx, executionID, output); err != nil {
		logger.Error().Err(err).Msg("Failed to persist execution output")
	}

	err = e.executions.UpdateStatus(ctx, executionID,
		[]string{models.ExecutionStatusRunning}, models.ExecutionStatusCompleted)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to complete execution")
		return nil
	}

	e.recordResult(ctx, execution, true, &logger)
	metrics.WorkflowExecutionsTotal.WithLabelValues(models.ExecutionStatusCompleted, execution.TriggerType).Inc()
	logger.Info().Int("actions", graph.Size()).Msg("Execution completed")
	return nil
}

// walk processes sibling nodes in order, depth-first. A condition-false node
// is skipped together with its whole subtree.
func (e *Engine) walk(ctx context.Context, nodes []*Node, execCtx *ExecutionContext, logger *zerolog.Logger) error {
	for _, node := range nodes {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		action := node.Action

		pass, err := EvaluateCondition(action.Condition, execCtx.Env())
		if err != nil {
			return fmt.Errorf("action %s: %w", action.ID, err)
		}
		if !pass {
			logger.Debug().Str("action_id", action.ID.String()).Msg("Condition false, skipping subtree")
			metrics.ActionExecutionsTotal.WithLabelValues(action.ActionType, "skipped").Inc()
			continue
		}

		if err := e.executeAction(ctx, node, execCtx, logger); err != nil {
			if action.OnFailure == models.FailurePolicyContinue {
				logger.Warn().
					Err(err).
					Str("action_id", action.ID.String()).
					Str("action_type", action.ActionType).
					Msg("Action failed, policy is continue")
				continue
			}
			return fmt.Errorf("action %s (%s) failed: %w", action.ID, action.ActionType, err)
		}

		if err := e.walk(ctx, node.Children, execCtx, logger); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) executeAction(ctx context.Context, node *Node, execCtx *ExecutionContext, logger *zerolog.Logger) error {
	action := node.Action

	executor := e.registry.Get(action.ActionType)
	if executor == nil {
		metrics.ActionExecutionsTotal.WithLabelValues(action.ActionType, "failed").Inc()
		return fmt.Errorf("unknown action type %q", action.ActionType)
	}

	execCtx.Config = map[string]interface{}(action.ActionConfig)
	if execCtx.Config == nil {
		execCtx.Config = make(map[string]interface{})
	}

	output, err := executor.Execute(ctx, execCtx)
	if err != nil {
		metrics.ActionExecutionsTotal.WithLabelValues(action.ActionType, "failed").Inc()
		return err
	}

	execCtx.Outputs[action.ID.String()] = output
	metrics.ActionExecutionsTotal.WithLabelValues(action.ActionType, "completed").Inc()
	return nil
}

func (e *Engine) fail(ctx context.Context, execution *models.Execution, message string) {
	logger := pkglogger.WithExecutionID(execution.ID.String())

	if err := e.executions.SetError(ctx, execution.ID, message); err != nil {
		logger.Error().Err(err).Msg("Failed to mark execution failed")
	}

	e.recordResult(ctx, execution, false, &logger)
	metrics.WorkflowExecutionsTotal.WithLabelValues(models.ExecutionStatusFailed, execution.TriggerType).Inc()
	logger.Warn().Str("error", message).Msg("Execution failed")
}

// recordResult is best effort: the execution's terminal status is the
// authority, a lost counter update never rolls it back.
func (e *Engine) recordResult(ctx context.Context, execution *models.Execution, succeeded bool, logger *zerolog.Logger) {
	if err := e.workflows.RecordResult(ctx, execution.WorkflowID, succeeded); err != nil {
		logger.Error().Err(err).Msg("Failed to update workflow counters")
	}
}
