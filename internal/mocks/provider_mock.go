package mocks

import (
	"context"

	"github.com/aretw0/rapport/pkg/ports"
	"github.com/stretchr/testify/mock"
)

// MockProvider is a mock type for the ports.Provider type
type MockProvider struct {
	mock.Mock
}

// Generate provides a mock function with given fields: ctx, req
func (_m *MockProvider) Generate(ctx context.Context, req ports.GenerationRequest) (ports.GenerationResponse, error) {
	ret := _m.Called(ctx, req)

	var r0 ports.GenerationResponse
	if rf, ok := ret.Get(0).(func(context.Context, ports.GenerationRequest) ports.GenerationResponse); ok {
		r0 = rf(ctx, req)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(ports.GenerationResponse)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, ports.GenerationRequest) error); ok {
		r1 = rf(ctx, req)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockProvider creates a new instance of MockProvider. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockProvider(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockProvider {
	m := &MockProvider{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ ports.Provider = (*MockProvider)(nil)
