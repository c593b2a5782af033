package repositories

import (
	"context"
	"time"

	"github.com/clientflow-hq/clientflow/internal/domain/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type WorkflowRepository struct {
	*BaseRepository[models.Workflow]
}

func NewWorkflowRepository(db *gorm.DB) *WorkflowRepository {
	return &WorkflowRepository{
		BaseRepository: NewBaseRepository[models.Workflow](db),
	}
}

func (r *WorkflowRepository) FindByStatus(ctx context.Context, status string, opts *ListOptions) ([]models.Workflow, int64, error) {
	var workflows []models.Workflow
	var total int64

	query := r.DB().WithContext(ctx).Where("status = ?", status)
	query.Model(&models.Workflow{}).Count(&total)

	if opts != nil {
		query = query.Offset(opts.Offset).Limit(opts.Limit).Order("created_at DESC")
	}

	err := query.Find(&workflows).Error
	return workflows, total, err
}

func (r *WorkflowRepository) UpdateStatus(ctx context.Context, workflowID uuid.UUID, status string) error {
	updates := map[string]interface{}{"status": status}
	if status == models.WorkflowStatusArchived {
		updates["archived_at"] = time.Now()
	}
	return r.DB().WithContext(ctx).Model(&models.Workflow{}).
		Where("id = ?", workflowID).
		Updates(updates).Error
}

// RecordResult bumps the aggregate counters with SQL-side increments so
// concurrent executions never lose updates.
func (r *WorkflowRepository) RecordResult(ctx context.Context, workflowID uuid.UUID, succeeded bool) error {
	updates := map[string]interface{}{
		"execution_count":  gorm.Expr("execution_count + 1"),
		"last_executed_at": time.Now(),
	}
	if succeeded {
		updates["success_count"] = gorm.Expr("success_count + 1")
	} else {
		updates["failure_count"] = gorm.Expr("failure_count + 1")
	}

	return r.DB().WithContext(ctx).Model(&models.Workflow{}).
		Where("id = ?", workflowID).
		Updates(updates).Error
}

func (r *WorkflowRepository) FindTriggers(ctx context.Context, workflowID uuid.UUID) ([]models.Trigger, error) {
	var triggers []models.Trigger
	err := r.DB().WithContext(ctx).
		Where("workflow_id = ?", workflowID).
		Order("created_at ASC").
		Find(&triggers).Error
	return triggers, err
}

// FindActions returns the full action set ordered for deterministic graph
// builds: sort_order ascending, insertion order breaking ties.
func (r *WorkflowRepository) FindActions(ctx context.Context, workflowID uuid.UUID) ([]models.Action, error) {
	var actions []models.Action
	err := r.DB().WithContext(ctx).
		Where("workflow_id = ?", workflowID).
		Order("sort_order ASC, created_at ASC").
		Find(&actions).Error
	return actions, err
}

// ReplaceActions swaps the workflow's action set in one transaction. Either
// the whole new set lands or the old set stays untouched.
func (r *WorkflowRepository) ReplaceActions(ctx context.Context, workflowID uuid.UUID, actions []models.Action) error {
	return r.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("workflow_id = ?", workflowID).Delete(&models.Action{}).Error; err != nil {
			return err
		}
		for i := range actions {
			actions[i].WorkflowID = workflowID
			if err := tx.Create(&actions[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteCascade removes the workflow along with its triggers, actions and
// executions.
func (r *WorkflowRepository) DeleteCascade(ctx context.Context, workflowID uuid.UUID) error {
	return r.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("workflow_id = ?", workflowID).Delete(&models.Trigger{}).Error; err != nil {
			return err
		}
		if err := tx.Where("workflow_id = ?", workflowID).Delete(&models.Action{}).Error; err != nil {
			return err
		}
		if err := tx.Where("workflow_id = ?", workflowID).Delete(&models.Execution{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Workflow{}, "id = ?", workflowID).Error
	})
}
