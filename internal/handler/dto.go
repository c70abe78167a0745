package handler

import (
	"time"

	"github.com/google/uuid"
)

// APIError is the standardized error response body.
type APIError struct {
	Message string `json:"message"`
}

// CreateStoryRequest starts a generation run. Illustrate defaults to true
// when omitted.
type CreateStoryRequest struct {
	Prompt     string `json:"prompt"`
	Illustrate *bool  `json:"illustrate"`
}

// RunAcceptedResponse acknowledges an enqueued run.
type RunAcceptedResponse struct {
	RunID   uuid.UUID  `json:"runId"`
	StoryID *uuid.UUID `json:"storyId,omitempty"`
}

// RunStepView is one recorded workflow step, without the raw result payload.
type RunStepView struct {
	StepIndex   int       `json:"stepIndex"`
	Name        string    `json:"name"`
	CompletedAt time.Time `json:"completedAt"`
}

// RunStatusResponse reports the progress of a workflow run.
type RunStatusResponse struct {
	RunID uuid.UUID     `json:"runId"`
	State string        `json:"state"`
	Steps []RunStepView `json:"steps"`
}
