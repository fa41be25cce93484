package mocks

import (
	"github.com/benmeehan/tracking-agent/pkg/credentials"
	"github.com/stretchr/testify/mock"
)

// MockCredentialStore is a mock implementation of the credentials.Store interface
type MockCredentialStore struct {
	mock.Mock
}

func (m *MockCredentialStore) Read() (*credentials.Credentials, error) {
	args := m.Called()
	creds, _ := args.Get(0).(*credentials.Credentials)
	return creds, args.Error(1)
}
