package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"storybook-server/internal/service"
)

// MockIllustrationGenerator is a mock type for the IllustrationGenerator type
type MockIllustrationGenerator struct {
	mock.Mock
}

// GeneratePageIllustration provides a mock function with given fields: ctx, pageID, prompt
func (_m *MockIllustrationGenerator) GeneratePageIllustration(ctx context.Context, pageID uuid.UUID, prompt string) (*service.IllustrationResult, error) {
	ret := _m.Called(ctx, pageID, prompt)

	var r0 *service.IllustrationResult
	if rf, ok := ret.Get(0).(func(context.Context, uuid.UUID, string) *service.IllustrationResult); ok {
		r0 = rf(ctx, pageID, prompt)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(*service.IllustrationResult)
	}
	return r0, ret.Error(1)
}

// NewMockIllustrationGenerator creates a new instance of MockIllustrationGenerator. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockIllustrationGenerator(t interface {
	mock.TestingT
	Helper()
}) *MockIllustrationGenerator {
	m := &MockIllustrationGenerator{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ service.IllustrationGenerator = (*MockIllustrationGenerator)(nil)
