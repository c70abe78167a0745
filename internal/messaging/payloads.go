package messaging

import (
	"time"

	"github.com/google/uuid"
)

// GenerateStoryTaskPayload starts a full story generation run. RunID doubles
// as the workflow run key, so redelivering the same message resumes the run
// instead of duplicating it.
type GenerateStoryTaskPayload struct {
	RunID      uuid.UUID `json:"runId"`
	Prompt     string    `json:"prompt"`
	Illustrate bool      `json:"illustrate"`
}

// IllustrateStoryTaskPayload re-runs illustration generation for an existing
// story's pages that are still missing images.
type IllustrateStoryTaskPayload struct {
	RunID   uuid.UUID `json:"runId"`
	StoryID uuid.UUID `json:"storyId"`
}

// StoryUpdatePayload is a progress event published to the updates queue for
// downstream consumers (websocket pushes, notifications).
type StoryUpdatePayload struct {
	RunID     uuid.UUID `json:"runId"`
	StoryID   uuid.UUID `json:"storyId,omitempty"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
