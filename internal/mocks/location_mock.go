package mocks

import (
	"context"

	"github.com/benmeehan/tracking-agent/pkg/location"
	"github.com/stretchr/testify/mock"
)

// MockLocationSource is a mock implementation of the location.Source interface
type MockLocationSource struct {
	mock.Mock
}

func (m *MockLocationSource) LastKnown() (location.Position, bool) {
	args := m.Called()
	return args.Get(0).(location.Position), args.Bool(1)
}

func (m *MockLocationSource) Fresh(ctx context.Context, priority location.Priority) (location.Position, error) {
	args := m.Called(ctx, priority)
	return args.Get(0).(location.Position), args.Error(1)
}
