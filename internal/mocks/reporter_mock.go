package mocks

import (
	"context"

	"github.com/benmeehan/tracking-agent/internal/services"
	"github.com/benmeehan/tracking-agent/pkg/credentials"
	"github.com/benmeehan/tracking-agent/pkg/location"
	"github.com/stretchr/testify/mock"
)

// MockReporter is a mock implementation of the services.Reporter interface
type MockReporter struct {
	mock.Mock
}

func (m *MockReporter) Deliver(ctx context.Context, sessionID string, sample location.Position, creds credentials.Credentials) services.DeliveryResult {
	args := m.Called(ctx, sessionID, sample, creds)
	return args.Get(0).(services.DeliveryResult)
}
