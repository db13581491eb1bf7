package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"
)

// MockPage is a mock type for the Page interface.
type MockPage struct {
	mock.Mock
}

// Text provides a mock function with given fields: ctx, css
func (_m *MockPage) Text(ctx context.Context, css string) (string, error) {
	ret := _m.Called(ctx, css)

	if len(ret) == 0 {
		panic("no return value specified for Text")
	}
	return ret.String(0), ret.Error(1)
}

// TextX provides a mock function with given fields: ctx, xpath
func (_m *MockPage) TextX(ctx context.Context, xpath string) (string, error) {
	ret := _m.Called(ctx, xpath)

	if len(ret) == 0 {
		panic("no return value specified for TextX")
	}
	return ret.String(0), ret.Error(1)
}

// Close provides a mock function with no fields
func (_m *MockPage) Close() error {
	ret := _m.Called()

	if len(ret) == 0 {
		panic("no return value specified for Close")
	}
	return ret.Error(0)
}

// NewMockPage creates a new instance of MockPage.
func NewMockPage(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockPage {
	m := &MockPage{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
