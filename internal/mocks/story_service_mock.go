package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"storybook-server/internal/models"
	"storybook-server/internal/service"
)

// MockStoryService is a mock type for the StoryService type
type MockStoryService struct {
	mock.Mock
}

// StartGeneration provides a mock function with given fields: ctx, prompt, illustrate
func (_m *MockStoryService) StartGeneration(ctx context.Context, prompt string, illustrate bool) (uuid.UUID, error) {
	ret := _m.Called(ctx, prompt, illustrate)

	var r0 uuid.UUID
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(uuid.UUID)
	}
	return r0, ret.Error(1)
}

// StartIllustration provides a mock function with given fields: ctx, storyID
func (_m *MockStoryService) StartIllustration(ctx context.Context, storyID uuid.UUID) (uuid.UUID, error) {
	ret := _m.Called(ctx, storyID)

	var r0 uuid.UUID
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(uuid.UUID)
	}
	return r0, ret.Error(1)
}

// ListStories provides a mock function with given fields: ctx, limit
func (_m *MockStoryService) ListStories(ctx context.Context, limit int) ([]models.StorySummary, error) {
	ret := _m.Called(ctx, limit)

	var r0 []models.StorySummary
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]models.StorySummary)
	}
	return r0, ret.Error(1)
}

// GetStory provides a mock function with given fields: ctx, id
func (_m *MockStoryService) GetStory(ctx context.Context, id uuid.UUID) (*models.StoryDetails, error) {
	ret := _m.Called(ctx, id)

	var r0 *models.StoryDetails
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.StoryDetails)
	}
	return r0, ret.Error(1)
}

// GetPage provides a mock function with given fields: ctx, storyID, pageNumber
func (_m *MockStoryService) GetPage(ctx context.Context, storyID uuid.UUID, pageNumber int) (*models.Page, error) {
	ret := _m.Called(ctx, storyID, pageNumber)

	var r0 *models.Page
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.Page)
	}
	return r0, ret.Error(1)
}

// GetRunSteps provides a mock function with given fields: ctx, runID
func (_m *MockStoryService) GetRunSteps(ctx context.Context, runID uuid.UUID) ([]models.WorkflowStep, error) {
	ret := _m.Called(ctx, runID)

	var r0 []models.WorkflowStep
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]models.WorkflowStep)
	}
	return r0, ret.Error(1)
}

// NewMockStoryService creates a new instance of MockStoryService. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockStoryService(t interface {
	mock.TestingT
	Helper()
}) *MockStoryService {
	m := &MockStoryService{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ service.StoryService = (*MockStoryService)(nil)
