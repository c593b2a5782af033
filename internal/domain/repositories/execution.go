package repositories

import (
	"context"
	"time"

	"github.com/clientflow-hq/clientflow/internal/domain/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ExecutionRepository struct {
	*BaseRepository[models.Execution]
}

func NewExecutionRepository(db *gorm.DB) *ExecutionRepository {
	return &ExecutionRepository{
		BaseRepository: NewBaseRepository[models.Execution](db),
	}
}

func (r *ExecutionRepository) FindByWorkflowID(ctx context.Context, workflowID uuid.UUID, opts *ListOptions) ([]models.Execution, int64, error) {
	var executions []models.Execution
	var total int64

	query := r.DB().WithContext(ctx).Where("workflow_id = ?", workflowID)
	query.Model(&models.Execution{}).Count(&total)

	if opts != nil {
		query = query.Offset(opts.Offset).Limit(opts.Limit).Order("created_at DESC")
	}

	err := query.Find(&executions).Error
	return executions, total, err
}

// UpdateStatus performs a guarded transition: terminal rows are never moved
// back, and only the expected current statuses are eligible. Returns
// gorm.ErrRecordNotFound when the guard rejects the write.
func (r *ExecutionRepository) UpdateStatus(ctx context.Context, executionID uuid.UUID, from []string, to string) error {
	updates := map[string]interface{}{"status": to}

	now := time.Now()
	switch to {
	case models.ExecutionStatusRunning:
		updates["started_at"] = now
	case models.ExecutionStatusCompleted, models.ExecutionStatusFailed, models.ExecutionStatusCancelled:
		updates["completed_at"] = now
	}

	result := r.DB().WithContext(ctx).Model(&models.Execution{}).
		Where("id = ? AND status IN ?", executionID, from).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *ExecutionRepository) SetOutput(ctx context.Context, executionID uuid.UUID, output models.JSON) error {
	return r.DB().WithContext(ctx).Model(&models.Execution{}).
		Where("id = ?", executionID).
		Update("output", output).Error
}

func (r *ExecutionRepository) SetError(ctx context.Context, executionID uuid.UUID, errorMessage string) error {
	return r.DB().WithContext(ctx).Model(&models.Execution{}).
		Where("id = ? AND status IN ?", executionID,
			[]string{models.ExecutionStatusPending, models.ExecutionStatusRunning}).
		Updates(map[string]interface{}{
			"status":        models.ExecutionStatusFailed,
			"error_message": errorMessage,
			"completed_at":  time.Now(),
		}).Error
}

func (r *ExecutionRepository) FindStale(ctx context.Context, threshold time.Duration) ([]models.Execution, error) {
	var executions []models.Execution
	cutoff := time.Now().Add(-threshold)
	err := r.DB().WithContext(ctx).
		Where("status = ? AND started_at < ?", models.ExecutionStatusRunning, cutoff).
		Find(&executions).Error
	return executions, err
}

// DeleteTerminal deletes an execution only if it reached a terminal state.
func (r *ExecutionRepository) DeleteTerminal(ctx context.Context, executionID uuid.UUID) error {
	result := r.DB().WithContext(ctx).
		Where("id = ? AND status IN ?", executionID,
			[]string{models.ExecutionStatusCompleted, models.ExecutionStatusFailed, models.ExecutionStatusCancelled}).
		Delete(&models.Execution{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
