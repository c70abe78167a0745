package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// WorkflowStep is one committed step of a workflow run. Steps are recorded
// keyed by (run id, step index) before the run advances; re-entering a step
// with a recorded result short-circuits instead of re-executing the side
// effect, which is what makes runs resumable after a crash.
type WorkflowStep struct {
	RunID       uuid.UUID       `json:"runId" db:"run_id"`
	StepIndex   int             `json:"stepIndex" db:"step_index"`
	Name        string          `json:"name" db:"name"`
	Result      json.RawMessage `json:"result" db:"result"`
	CompletedAt time.Time       `json:"completedAt" db:"completed_at"`
}
