package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"storybook-server/internal/messaging"
)

// MockTaskPublisher is a mock type for the TaskPublisher type
type MockTaskPublisher struct {
	mock.Mock
}

// PublishGenerationTask provides a mock function with given fields: ctx, payload
func (_m *MockTaskPublisher) PublishGenerationTask(ctx context.Context, payload messaging.GenerateStoryTaskPayload) error {
	ret := _m.Called(ctx, payload)
	return ret.Error(0)
}

// PublishIllustrationTask provides a mock function with given fields: ctx, payload
func (_m *MockTaskPublisher) PublishIllustrationTask(ctx context.Context, payload messaging.IllustrateStoryTaskPayload) error {
	ret := _m.Called(ctx, payload)
	return ret.Error(0)
}

// NewMockTaskPublisher creates a new instance of MockTaskPublisher. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockTaskPublisher(t interface {
	mock.TestingT
	Helper()
}) *MockTaskPublisher {
	m := &MockTaskPublisher{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ messaging.TaskPublisher = (*MockTaskPublisher)(nil)
