package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"storybook-server/internal/interfaces"
	"storybook-server/internal/models"
)

// Compile-time check
var _ interfaces.StepLogRepository = (*pgStepLogRepository)(nil)

const (
	selectStepQuery = `
        SELECT run_id, step_index, name, result, completed_at
        FROM workflow_steps WHERE run_id = $1 AND step_index = $2
    `

	// First write wins: a resumed run re-recording a step is a no-op.
	insertStepQuery = `
        INSERT INTO workflow_steps (run_id, step_index, name, result, completed_at)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (run_id, step_index) DO NOTHING
    `

	selectRunStepsQuery = `
        SELECT run_id, step_index, name, result, completed_at
        FROM workflow_steps WHERE run_id = $1 ORDER BY step_index
    `
)

type pgStepLogRepository struct {
	logger *zap.Logger
}

// NewPgStepLogRepository creates the PostgreSQL workflow step log.
func NewPgStepLogRepository(logger *zap.Logger) interfaces.StepLogRepository {
	return &pgStepLogRepository{logger: logger.Named("PgStepLogRepo")}
}

func (r *pgStepLogRepository) Find(ctx context.Context, querier interfaces.DBTX, runID uuid.UUID, stepIndex int) (*models.WorkflowStep, error) {
	step := &models.WorkflowStep{}
	err := querier.QueryRow(ctx, selectStepQuery, runID, stepIndex).Scan(
		&step.RunID, &step.StepIndex, &step.Name, &step.Result, &step.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to find workflow step",
			zap.String("runID", runID.String()), zap.Int("stepIndex", stepIndex), zap.Error(err))
		return nil, fmt.Errorf("failed to find step %d of run %s: %w", stepIndex, runID, err)
	}
	return step, nil
}

func (r *pgStepLogRepository) Record(ctx context.Context, querier interfaces.DBTX, step *models.WorkflowStep) error {
	logFields := []zap.Field{
		zap.String("runID", step.RunID.String()),
		zap.Int("stepIndex", step.StepIndex),
		zap.String("step", step.Name),
	}

	commandTag, err := querier.Exec(ctx, insertStepQuery,
		step.RunID, step.StepIndex, step.Name, step.Result, step.CompletedAt,
	)
	if err != nil {
		r.logger.Error("Failed to record workflow step", append(logFields, zap.Error(err))...)
		return fmt.Errorf("failed to record step %d of run %s: %w", step.StepIndex, step.RunID, err)
	}
	if commandTag.RowsAffected() == 0 {
		r.logger.Debug("Workflow step already recorded", logFields...)
		return nil
	}
	r.logger.Debug("Workflow step recorded", logFields...)
	return nil
}

func (r *pgStepLogRepository) ListByRun(ctx context.Context, querier interfaces.DBTX, runID uuid.UUID) ([]models.WorkflowStep, error) {
	var steps []models.WorkflowStep
	if err := pgxscan.Select(ctx, querier, &steps, selectRunStepsQuery, runID); err != nil {
		r.logger.Error("Failed to list workflow steps",
			zap.String("runID", runID.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to list steps of run %s: %w", runID, err)
	}
	return steps, nil
}
