package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"storybook-server/internal/interfaces"
	"storybook-server/internal/models"
)

// MockStoryRepository is a mock type for the StoryRepository type
type MockStoryRepository struct {
	mock.Mock
}

// CreateStory provides a mock function with given fields: ctx, querier, story
func (_m *MockStoryRepository) CreateStory(ctx context.Context, querier interfaces.DBTX, story *models.Story) error {
	ret := _m.Called(ctx, querier, story)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, interfaces.DBTX, *models.Story) error); ok {
		r0 = rf(ctx, querier, story)
	} else {
		r0 = ret.Error(0)
	}
	return r0
}

// AddCharacters provides a mock function with given fields: ctx, querier, storyID, characters
func (_m *MockStoryRepository) AddCharacters(ctx context.Context, querier interfaces.DBTX, storyID uuid.UUID, characters []models.Character) ([]uuid.UUID, error) {
	ret := _m.Called(ctx, querier, storyID, characters)

	var r0 []uuid.UUID
	if rf, ok := ret.Get(0).(func(context.Context, interfaces.DBTX, uuid.UUID, []models.Character) []uuid.UUID); ok {
		r0 = rf(ctx, querier, storyID, characters)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).([]uuid.UUID)
	}
	return r0, ret.Error(1)
}

// AddPages provides a mock function with given fields: ctx, querier, storyID, pages
func (_m *MockStoryRepository) AddPages(ctx context.Context, querier interfaces.DBTX, storyID uuid.UUID, pages []models.Page) ([]uuid.UUID, error) {
	ret := _m.Called(ctx, querier, storyID, pages)

	var r0 []uuid.UUID
	if rf, ok := ret.Get(0).(func(context.Context, interfaces.DBTX, uuid.UUID, []models.Page) []uuid.UUID); ok {
		r0 = rf(ctx, querier, storyID, pages)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).([]uuid.UUID)
	}
	return r0, ret.Error(1)
}

// UpdateStoryStatus provides a mock function with given fields: ctx, querier, id, status
func (_m *MockStoryRepository) UpdateStoryStatus(ctx context.Context, querier interfaces.DBTX, id uuid.UUID, status models.StoryStatus) error {
	ret := _m.Called(ctx, querier, id, status)
	return ret.Error(0)
}

// UpdatePageIllustration provides a mock function with given fields: ctx, querier, pageID, url, storageRef
func (_m *MockStoryRepository) UpdatePageIllustration(ctx context.Context, querier interfaces.DBTX, pageID uuid.UUID, url string, storageRef string) error {
	ret := _m.Called(ctx, querier, pageID, url, storageRef)
	return ret.Error(0)
}

// GetStory provides a mock function with given fields: ctx, querier, id
func (_m *MockStoryRepository) GetStory(ctx context.Context, querier interfaces.DBTX, id uuid.UUID) (*models.StoryDetails, error) {
	ret := _m.Called(ctx, querier, id)

	var r0 *models.StoryDetails
	if rf, ok := ret.Get(0).(func(context.Context, interfaces.DBTX, uuid.UUID) *models.StoryDetails); ok {
		r0 = rf(ctx, querier, id)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.StoryDetails)
	}
	return r0, ret.Error(1)
}

// GetPage provides a mock function with given fields: ctx, querier, storyID, pageNumber
func (_m *MockStoryRepository) GetPage(ctx context.Context, querier interfaces.DBTX, storyID uuid.UUID, pageNumber int) (*models.Page, error) {
	ret := _m.Called(ctx, querier, storyID, pageNumber)

	var r0 *models.Page
	if rf, ok := ret.Get(0).(func(context.Context, interfaces.DBTX, uuid.UUID, int) *models.Page); ok {
		r0 = rf(ctx, querier, storyID, pageNumber)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.Page)
	}
	return r0, ret.Error(1)
}

// GetPagesByStoryID provides a mock function with given fields: ctx, querier, storyID
func (_m *MockStoryRepository) GetPagesByStoryID(ctx context.Context, querier interfaces.DBTX, storyID uuid.UUID) ([]models.Page, error) {
	ret := _m.Called(ctx, querier, storyID)

	var r0 []models.Page
	if rf, ok := ret.Get(0).(func(context.Context, interfaces.DBTX, uuid.UUID) []models.Page); ok {
		r0 = rf(ctx, querier, storyID)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).([]models.Page)
	}
	return r0, ret.Error(1)
}

// ListStories provides a mock function with given fields: ctx, querier, limit
func (_m *MockStoryRepository) ListStories(ctx context.Context, querier interfaces.DBTX, limit int) ([]models.StorySummary, error) {
	ret := _m.Called(ctx, querier, limit)

	var r0 []models.StorySummary
	if rf, ok := ret.Get(0).(func(context.Context, interfaces.DBTX, int) []models.StorySummary); ok {
		r0 = rf(ctx, querier, limit)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).([]models.StorySummary)
	}
	return r0, ret.Error(1)
}

// NewMockStoryRepository creates a new instance of MockStoryRepository. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockStoryRepository(t interface {
	mock.TestingT
	Helper()
}) *MockStoryRepository {
	m := &MockStoryRepository{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ interfaces.StoryRepository = (*MockStoryRepository)(nil)
