package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"storybook-server/internal/interfaces"
	"storybook-server/internal/models"
)

// MockStoryCache is a mock type for the StoryCache type
type MockStoryCache struct {
	mock.Mock
}

// Get provides a mock function with given fields: ctx, id
func (_m *MockStoryCache) Get(ctx context.Context, id uuid.UUID) (*models.StoryDetails, error) {
	ret := _m.Called(ctx, id)

	var r0 *models.StoryDetails
	if rf, ok := ret.Get(0).(func(context.Context, uuid.UUID) *models.StoryDetails); ok {
		r0 = rf(ctx, id)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.StoryDetails)
	}
	return r0, ret.Error(1)
}

// Set provides a mock function with given fields: ctx, details
func (_m *MockStoryCache) Set(ctx context.Context, details *models.StoryDetails) error {
	ret := _m.Called(ctx, details)
	return ret.Error(0)
}

// Invalidate provides a mock function with given fields: ctx, id
func (_m *MockStoryCache) Invalidate(ctx context.Context, id uuid.UUID) error {
	ret := _m.Called(ctx, id)
	return ret.Error(0)
}

// NewMockStoryCache creates a new instance of MockStoryCache. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockStoryCache(t interface {
	mock.TestingT
	Helper()
}) *MockStoryCache {
	m := &MockStoryCache{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ interfaces.StoryCache = (*MockStoryCache)(nil)
