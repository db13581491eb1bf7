// Package mocks provides test doubles for listing sources and browser sessions.
package mocks

import (
	"context"

	listing "github.com/sells-group/lead-qualifier/internal/listing"
	mock "github.com/stretchr/testify/mock"
)

// MockBrowser is a mock type for the Browser interface.
type MockBrowser struct {
	mock.Mock
}

// Open provides a mock function with given fields: ctx, pageURL
func (_m *MockBrowser) Open(ctx context.Context, pageURL string) (listing.Page, error) {
	ret := _m.Called(ctx, pageURL)

	if len(ret) == 0 {
		panic("no return value specified for Open")
	}

	var r0 listing.Page
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (listing.Page, error)); ok {
		return rf(ctx, pageURL)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(listing.Page)
	}
	r1 = ret.Error(1)

	return r0, r1
}

// NewMockBrowser creates a new instance of MockBrowser.
func NewMockBrowser(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockBrowser {
	m := &MockBrowser{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
