package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storybook-server/internal/messaging"
	"storybook-server/internal/workflow"
)

// TaskHandler decodes queue deliveries and dispatches them to the workflow.
type TaskHandler struct {
	workflow *workflow.StoryWorkflow
	logger   *zap.Logger
}

// NewTaskHandler creates the worker-side task dispatcher.
func NewTaskHandler(wf *workflow.StoryWorkflow, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		workflow: wf,
		logger:   logger.Named("TaskHandler"),
	}
}

// HandleGenerationTask processes one story generation delivery.
func (h *TaskHandler) HandleGenerationTask(ctx context.Context, body []byte) error {
	var payload messaging.GenerateStoryTaskPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		h.logger.Error("Failed to unmarshal generation task, dropping", zap.Error(err))
		return fmt.Errorf("malformed generation task payload: %w", err)
	}
	if payload.RunID == uuid.Nil {
		h.logger.Error("Generation task without run ID, dropping")
		return errors.New("generation task payload missing runId")
	}
	return h.workflow.RunGeneration(ctx, payload)
}

// HandleIllustrationTask processes one re-illustration delivery.
func (h *TaskHandler) HandleIllustrationTask(ctx context.Context, body []byte) error {
	var payload messaging.IllustrateStoryTaskPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		h.logger.Error("Failed to unmarshal illustration task, dropping", zap.Error(err))
		return fmt.Errorf("malformed illustration task payload: %w", err)
	}
	if payload.RunID == uuid.Nil || payload.StoryID == uuid.Nil {
		h.logger.Error("Illustration task missing identifiers, dropping")
		return errors.New("illustration task payload missing runId or storyId")
	}
	return h.workflow.RunIllustration(ctx, payload)
}
