package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storybook-server/internal/mocks"
	"storybook-server/internal/models"
)

type stepResult struct {
	Value string `json:"value"`
}

func newTestRun(t *testing.T) (*Run, *mocks.MockStepLogRepository) {
	t.Helper()
	steps := mocks.NewMockStepLogRepository(t)
	tx := mocks.NewMockTxManager(t)
	tx.On("DB").Return(nil).Maybe()
	return NewRun(uuid.New(), steps, tx, zap.NewNop()), steps
}

func TestStep_ExecutesAndRecordsResult(t *testing.T) {
	run, steps := newTestRun(t)
	steps.On("Find", mock.Anything, mock.Anything, run.ID, 0).
		Return(nil, models.ErrNotFound).Once()
	steps.On("Record", mock.Anything, mock.Anything, mock.MatchedBy(func(s *models.WorkflowStep) bool {
		return s.RunID == run.ID && s.StepIndex == 0 && s.Name == "do_thing"
	})).Return(nil).Once()

	executed := false
	result, err := Step(t.Context(), run, "do_thing", func(ctx context.Context) (stepResult, error) {
		executed = true
		return stepResult{Value: "done"}, nil
	})

	require.NoError(t, err)
	assert.True(t, executed)
	assert.Equal(t, "done", result.Value)
	steps.AssertExpectations(t)
}

func TestStep_ReplaysRecordedResult(t *testing.T) {
	run, steps := newTestRun(t)
	recorded := &models.WorkflowStep{
		RunID:       run.ID,
		StepIndex:   0,
		Name:        "do_thing",
		Result:      json.RawMessage(`{"value":"from the log"}`),
		CompletedAt: time.Now().UTC(),
	}
	steps.On("Find", mock.Anything, mock.Anything, run.ID, 0).Return(recorded, nil).Once()

	result, err := Step(t.Context(), run, "do_thing", func(ctx context.Context) (stepResult, error) {
		t.Fatal("recorded step must not re-execute")
		return stepResult{}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, "from the log", result.Value)
	steps.AssertNotCalled(t, "Record")
}

func TestStep_IndicesFollowCallOrder(t *testing.T) {
	run, steps := newTestRun(t)
	steps.On("Find", mock.Anything, mock.Anything, run.ID, 0).Return(nil, models.ErrNotFound).Once()
	steps.On("Find", mock.Anything, mock.Anything, run.ID, 1).Return(nil, models.ErrNotFound).Once()

	var recordedIndices []int
	steps.On("Record", mock.Anything, mock.Anything, mock.AnythingOfType("*models.WorkflowStep")).
		Run(func(args mock.Arguments) {
			recordedIndices = append(recordedIndices, args.Get(2).(*models.WorkflowStep).StepIndex)
		}).Return(nil).Twice()

	_, err := Step(t.Context(), run, "first", func(ctx context.Context) (stepResult, error) {
		return stepResult{}, nil
	})
	require.NoError(t, err)
	_, err = Step(t.Context(), run, "second", func(ctx context.Context) (stepResult, error) {
		return stepResult{}, nil
	})
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1}, recordedIndices)
}

func TestStep_FailureIsNotRecorded(t *testing.T) {
	run, steps := newTestRun(t)
	steps.On("Find", mock.Anything, mock.Anything, run.ID, 0).Return(nil, models.ErrNotFound).Once()

	boom := errors.New("boom")
	_, err := Step(t.Context(), run, "do_thing", func(ctx context.Context) (stepResult, error) {
		return stepResult{}, boom
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	steps.AssertNotCalled(t, "Record")
}

func TestStep_LookupErrorPropagates(t *testing.T) {
	run, steps := newTestRun(t)
	steps.On("Find", mock.Anything, mock.Anything, run.ID, 0).
		Return(nil, errors.New("connection refused")).Once()

	_, err := Step(t.Context(), run, "do_thing", func(ctx context.Context) (stepResult, error) {
		t.Fatal("step must not execute when the lookup fails")
		return stepResult{}, nil
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestStep_CorruptRecordedResult(t *testing.T) {
	run, steps := newTestRun(t)
	recorded := &models.WorkflowStep{
		RunID:     run.ID,
		StepIndex: 0,
		Name:      "do_thing",
		Result:    json.RawMessage(`{not json`),
	}
	steps.On("Find", mock.Anything, mock.Anything, run.ID, 0).Return(recorded, nil).Once()

	_, err := Step(t.Context(), run, "do_thing", func(ctx context.Context) (stepResult, error) {
		return stepResult{}, nil
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unreadable recorded result")
}
