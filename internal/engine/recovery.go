package engine

import (
	"context"
	"time"

	"github.com/clientflow-hq/clientflow/internal/domain/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// StaleExecutionStore is satisfied by *repositories.ExecutionRepository.
type StaleExecutionStore interface {
	FindStale(ctx context.Context, threshold time.Duration) ([]models.Execution, error)
	SetError(ctx context.Context, executionID uuid.UUID, errorMessage string) error
}

// FailStaleExecutions fails executions stuck in running longer than the
// threshold, usually after a worker crash. Returns the number failed.
func FailStaleExecutions(ctx context.Context, store StaleExecutionStore, threshold time.Duration) (int, error) {
	stale, err := store.FindStale(ctx, threshold)
	if err != nil {
		return 0, err
	}

	failed := 0
	for i := range stale {
		err := store.SetError(ctx, stale[i].ID, "execution exceeded the stale threshold")
		if err != nil {
			log.Error().
				Err(err).
				Str("execution_id", stale[i].ID.String()).
				Msg("Failed to reap stale execution")
			continue
		}
		failed++
	}

	if failed > 0 {
		log.Warn().Int("count", failed).Msg("Reaped stale executions")
	}

	return failed, nil
}
