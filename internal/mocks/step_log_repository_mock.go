package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"storybook-server/internal/interfaces"
	"storybook-server/internal/models"
)

// MockStepLogRepository is a mock type for the StepLogRepository type
type MockStepLogRepository struct {
	mock.Mock
}

// Find provides a mock function with given fields: ctx, querier, runID, stepIndex
func (_m *MockStepLogRepository) Find(ctx context.Context, querier interfaces.DBTX, runID uuid.UUID, stepIndex int) (*models.WorkflowStep, error) {
	ret := _m.Called(ctx, querier, runID, stepIndex)

	var r0 *models.WorkflowStep
	if rf, ok := ret.Get(0).(func(context.Context, interfaces.DBTX, uuid.UUID, int) *models.WorkflowStep); ok {
		r0 = rf(ctx, querier, runID, stepIndex)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.WorkflowStep)
	}
	return r0, ret.Error(1)
}

// Record provides a mock function with given fields: ctx, querier, step
func (_m *MockStepLogRepository) Record(ctx context.Context, querier interfaces.DBTX, step *models.WorkflowStep) error {
	ret := _m.Called(ctx, querier, step)
	return ret.Error(0)
}

// ListByRun provides a mock function with given fields: ctx, querier, runID
func (_m *MockStepLogRepository) ListByRun(ctx context.Context, querier interfaces.DBTX, runID uuid.UUID) ([]models.WorkflowStep, error) {
	ret := _m.Called(ctx, querier, runID)

	var r0 []models.WorkflowStep
	if rf, ok := ret.Get(0).(func(context.Context, interfaces.DBTX, uuid.UUID) []models.WorkflowStep); ok {
		r0 = rf(ctx, querier, runID)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).([]models.WorkflowStep)
	}
	return r0, ret.Error(1)
}

// NewMockStepLogRepository creates a new instance of MockStepLogRepository. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockStepLogRepository(t interface {
	mock.TestingT
	Helper()
}) *MockStepLogRepository {
	m := &MockStepLogRepository{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ interfaces.StepLogRepository = (*MockStepLogRepository)(nil)
