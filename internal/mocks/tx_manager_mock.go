package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"storybook-server/internal/interfaces"
)

// MockTxManager is a mock type for the TxManager type. WithTx runs the given
// function against a nil querier, which is what the repository mocks expect.
type MockTxManager struct {
	mock.Mock
}

// DB provides a mock function with no fields
func (_m *MockTxManager) DB() interfaces.DBTX {
	ret := _m.Called()

	var r0 interfaces.DBTX
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(interfaces.DBTX)
	}
	return r0
}

// WithTx provides a mock function with given fields: ctx, fn
func (_m *MockTxManager) WithTx(ctx context.Context, fn func(q interfaces.DBTX) error) error {
	ret := _m.Called(ctx, fn)

	if rf, ok := ret.Get(0).(func(context.Context, func(interfaces.DBTX) error) error); ok {
		return rf(ctx, fn)
	}
	if err := ret.Error(0); err != nil {
		return err
	}
	return fn(nil)
}

// NewMockTxManager creates a new instance of MockTxManager. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockTxManager(t interface {
	mock.TestingT
	Helper()
}) *MockTxManager {
	m := &MockTxManager{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ interfaces.TxManager = (*MockTxManager)(nil)
