package mocks

import (
	"context"

	"github.com/benmeehan/tracking-agent/pkg/status"
	"github.com/stretchr/testify/mock"
)

// MockIndicator is a mock implementation of the status.Indicator interface
type MockIndicator struct {
	mock.Mock
	Released int
}

// Show returns a release that counts calls in Released when the mock returns no error.
func (m *MockIndicator) Show(ctx context.Context, notice status.Notice) (status.Release, error) {
	args := m.Called(ctx, notice)
	if err := args.Error(0); err != nil {
		return nil, err
	}
	return func() { m.Released++ }, nil
}
