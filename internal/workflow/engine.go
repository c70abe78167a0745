package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storybook-server/internal/interfaces"
	"storybook-server/internal/models"
)

// Run is one durable workflow execution. Every Step checks the step log
// before executing: a step that already committed a result is short-circuited
// with the recorded value, so re-running the same payload after a crash
// resumes where the run left off instead of repeating side effects.
//
// Step order must be deterministic: indices are assigned by call order, so a
// resumed run must call the same steps in the same sequence.
type Run struct {
	ID        uuid.UUID
	steps     interfaces.StepLogRepository
	tx        interfaces.TxManager
	logger    *zap.Logger
	nextIndex int
}

// NewRun binds a run ID to the step log.
func NewRun(id uuid.UUID, steps interfaces.StepLogRepository, tx interfaces.TxManager, logger *zap.Logger) *Run {
	return &Run{
		ID:     id,
		steps:  steps,
		tx:     tx,
		logger: logger.With(zap.String("runID", id.String())),
	}
}

// Step executes fn once per run. The result is JSON-serialized into the step
// log before the run advances; a recorded step replays its stored result.
func Step[T any](ctx context.Context, r *Run, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	index := r.nextIndex
	r.nextIndex++

	recorded, err := r.steps.Find(ctx, r.tx.DB(), r.ID, index)
	if err == nil {
		var result T
		if unmarshalErr := json.Unmarshal(recorded.Result, &result); unmarshalErr != nil {
			return zero, fmt.Errorf("step %q of run %s has unreadable recorded result: %w", name, r.ID, unmarshalErr)
		}
		r.logger.Info("Step already recorded, skipping execution",
			zap.String("step", name), zap.Int("stepIndex", index))
		return result, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return zero, fmt.Errorf("failed to look up step %q of run %s: %w", name, r.ID, err)
	}

	r.logger.Info("Executing step", zap.String("step", name), zap.Int("stepIndex", index))
	start := time.Now()

	result, err := fn(ctx)
	if err != nil {
		r.logger.Error("Step failed",
			zap.String("step", name), zap.Int("stepIndex", index),
			zap.Duration("duration", time.Since(start)), zap.Error(err))
		return zero, fmt.Errorf("step %q failed: %w", name, err)
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return zero, fmt.Errorf("failed to marshal result of step %q: %w", name, err)
	}

	record := &models.WorkflowStep{
		RunID:       r.ID,
		StepIndex:   index,
		Name:        name,
		Result:      resultJSON,
		CompletedAt: time.Now().UTC(),
	}
	if err := r.steps.Record(ctx, r.tx.DB(), record); err != nil {
		return zero, fmt.Errorf("failed to record step %q of run %s: %w", name, r.ID, err)
	}

	r.logger.Info("Step completed",
		zap.String("step", name), zap.Int("stepIndex", index),
		zap.Duration("duration", time.Since(start)))
	return result, nil
}
