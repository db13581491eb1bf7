package mocks

import (
	"context"

	model "github.com/sells-group/lead-qualifier/internal/model"
	mock "github.com/stretchr/testify/mock"
)

// MockSource is a mock type for the Source interface.
type MockSource struct {
	mock.Mock
}

// Name provides a mock function with no fields
func (_m *MockSource) Name() string {
	ret := _m.Called()

	if len(ret) == 0 {
		panic("no return value specified for Name")
	}
	return ret.String(0)
}

// Resolve provides a mock function with given fields: ctx, addr
func (_m *MockSource) Resolve(ctx context.Context, addr model.Address) (model.Listing, error) {
	ret := _m.Called(ctx, addr)

	if len(ret) == 0 {
		panic("no return value specified for Resolve")
	}

	if rf, ok := ret.Get(0).(func(context.Context, model.Address) (model.Listing, error)); ok {
		return rf(ctx, addr)
	}
	return ret.Get(0).(model.Listing), ret.Error(1)
}

// NewMockSource creates a new instance of MockSource.
func NewMockSource(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockSource {
	m := &MockSource{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
